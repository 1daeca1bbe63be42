// pkg/weights/schema.go
package weights

import (
	"fmt"
	"strings"

	"matchmaking-workers/internal/common/validation"
	"matchmaking-workers/internal/models"
)

// ProfileSchema is the JSON schema every weights profile document must match.
const ProfileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "persona", "weights"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "persona": {"type": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$"},
    "weights": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": "number", "minimum": 0}
    },
    "thresholds": {
      "type": "object",
      "properties": {
        "minimumOverallScore": {"type": "number", "minimum": 0, "maximum": 100},
        "minimumConfidence": {"type": "number", "minimum": 0, "maximum": 1},
        "maximumResults": {"type": "integer", "minimum": 0}
      }
    },
    "contextRules": {
      "type": "object",
      "properties": {
        "platformBoosts": {"type": "object", "additionalProperties": {"type": "number", "exclusiveMinimum": 0}},
        "marketSynergies": {"type": "object", "additionalProperties": {
          "type": "object", "additionalProperties": {"type": "number", "exclusiveMinimum": 0}
        }},
        "stageCompatibility": {"type": "object", "additionalProperties": {
          "type": "object", "additionalProperties": {"type": "number", "exclusiveMinimum": 0}
        }}
      }
    }
  }
}`

var profileSchema = validation.MustCompileSchema(ProfileSchema)

// Problems collects every issue found in a weights document.
type Problems []string

func (p Problems) Error() string {
	return "invalid weights: " + strings.Join(p, "; ")
}

// Validate checks each profile against ProfileSchema and for unknown field
// names and duplicate ids.
func Validate(f *File) error {
	if f == nil || len(f.Profiles) == 0 {
		return Problems{"no profiles defined"}
	}
	var problems Problems
	seen := make(map[string]bool, len(f.Profiles))
	for i := range f.Profiles {
		p := &f.Profiles[i]
		if err := ValidateProfile(p); err != nil {
			if ps, ok := err.(Problems); ok {
				for _, msg := range ps {
					problems = append(problems, fmt.Sprintf("profiles[%d]: %s", i, msg))
				}
			}
		}
		id := strings.ToLower(p.ID)
		if id != "" && seen[id] {
			problems = append(problems, fmt.Sprintf("profiles[%d]: duplicate id %q", i, p.ID))
		}
		seen[id] = true
	}
	if len(problems) > 0 {
		return problems
	}
	return nil
}

// ValidateProfile checks a single profile. The store uses it for documents
// read from Postgres.
func ValidateProfile(p *models.WeightsProfile) error {
	if p == nil {
		return Problems{"profile is nil"}
	}
	var problems Problems
	res := profileSchema.Validate(p)
	if !res.Valid {
		problems = append(problems, res.GetErrorMessages()...)
	}
	for field := range p.Weights {
		if !models.IsField(field) {
			problems = append(problems, fmt.Sprintf("weights: unknown field %q", field))
		}
	}
	if len(problems) > 0 {
		return problems
	}
	return nil
}

// pkg/weights/file.go
package weights

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"matchmaking-workers/internal/models"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// File is a versioned set of persona weights profiles.
type File struct {
	Version     string                  `json:"version" yaml:"version"`
	LastUpdated string                  `json:"lastUpdated" yaml:"lastUpdated"`
	Profiles    []models.WeightsProfile `json:"profiles" yaml:"profiles"`
}

// LoadFile reads a .json or .yaml/.yml weights file and validates it.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data without validating it. ext selects the decoder; YAML is
// the default.
func Parse(data []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	return &f, nil
}

// Find looks a profile up by id, then by persona. Both are case-insensitive.
func (f *File) Find(idOrPersona string) (*models.WeightsProfile, bool) {
	if f == nil {
		return nil, false
	}
	key := strings.ToLower(strings.TrimSpace(idOrPersona))
	for i := range f.Profiles {
		if strings.ToLower(f.Profiles[i].ID) == key {
			p := f.Profiles[i]
			return &p, true
		}
	}
	for i := range f.Profiles {
		if strings.ToLower(f.Profiles[i].Persona) == key {
			p := f.Profiles[i]
			return &p, true
		}
	}
	return nil, false
}

// Personas lists the personas in file order.
func (f *File) Personas() []string {
	out := make([]string, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		out = append(out, p.Persona)
	}
	return out
}

// MarshalProfileYAML renders one profile the way the weights tool prints it.
func MarshalProfileYAML(p *models.WeightsProfile) ([]byte, error) {
	return yaml.Marshal(p)
}

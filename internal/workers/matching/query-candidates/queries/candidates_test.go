package queries

import (
	"testing"

	"matchmaking-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_RequiresIndex(t *testing.T) {
	_, err := BuildQuery(CandidateQuery{Source: &models.Profile{ID: "a"}})
	assert.ErrorIs(t, err, ErrMissingIndex)

	req, err := BuildQuery(CandidateQuery{Index: "profiles", Size: 25})
	require.NoError(t, err)
	assert.Equal(t, []string{"profiles"}, req.Index)
	assert.Equal(t, 25, *req.Size)
}

func TestBody(t *testing.T) {
	tests := []struct {
		name        string
		q           CandidateQuery
		wantShould  int
		wantMustNot bool
		wantFilter  bool
	}{
		{
			name: "lists become should clauses",
			q: CandidateQuery{Source: &models.Profile{
				ID:        "a",
				Industry:  []string{"Fintech"},
				Markets:   []string{"EU", " "},
				Needs:     []string{"funding"},
				Platforms: nil,
			}},
			wantShould:  3,
			wantMustNot: true,
		},
		{
			name:       "no lists and no id",
			q:          CandidateQuery{Source: &models.Profile{}, Types: []string{"startup"}},
			wantFilter: true,
		},
		{
			name:        "exclusions without a source id",
			q:           CandidateQuery{Source: &models.Profile{}, ExcludeIDs: []string{"x", ""}},
			wantMustNot: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Body(tt.q)["query"].(map[string]interface{})["bool"].(map[string]interface{})

			should, _ := b["should"].([]interface{})
			assert.Len(t, should, tt.wantShould)
			_, hasMin := b["minimum_should_match"]
			assert.Equal(t, tt.wantShould > 0, hasMin)

			_, hasMustNot := b["must_not"]
			assert.Equal(t, tt.wantMustNot, hasMustNot)
			_, hasFilter := b["filter"]
			assert.Equal(t, tt.wantFilter, hasFilter)
		})
	}
}

// Package queries builds the Elasticsearch requests behind candidate lookup.
package queries

import (
	"bytes"
	"errors"

	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/similarity"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
)

var ErrMissingIndex = errors.New("index name is required")

// CandidateQuery describes a pre-filter for profiles worth scoring against
// Source. Any shared list value makes a document eligible.
type CandidateQuery struct {
	Index      string
	Source     *models.Profile
	ExcludeIDs []string
	Types      []string
	Size       int
}

// BuildQuery returns the search request for q.
func BuildQuery(q CandidateQuery) (*esapi.SearchRequest, error) {
	if q.Index == "" {
		return nil, ErrMissingIndex
	}
	body, err := json.Marshal(Body(q))
	if err != nil {
		return nil, err
	}
	size := q.Size
	return &esapi.SearchRequest{
		Index: []string{q.Index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}, nil
}

// Body is the query DSL document for q.
func Body(q CandidateQuery) map[string]interface{} {
	boolQuery := map[string]interface{}{}

	var should []interface{}
	if p := q.Source; p != nil {
		should = appendTerms(should, "industry", p.Industry)
		should = appendTerms(should, "markets", p.Markets)
		should = appendTerms(should, "platforms", p.Platforms)
		should = appendTerms(should, "technologies", p.Technologies)
		// what the source needs, others offer, and the other way round
		should = appendTerms(should, "capabilities", p.Needs)
		should = appendTerms(should, "needs", p.Capabilities)
	}
	if len(should) > 0 {
		boolQuery["should"] = should
		boolQuery["minimum_should_match"] = 1
	}

	exclude := make([]string, 0, len(q.ExcludeIDs)+1)
	if q.Source != nil && q.Source.ID != "" {
		exclude = append(exclude, q.Source.ID)
	}
	for _, id := range q.ExcludeIDs {
		if id != "" {
			exclude = append(exclude, id)
		}
	}
	if len(exclude) > 0 {
		boolQuery["must_not"] = []interface{}{
			map[string]interface{}{"ids": map[string]interface{}{"values": exclude}},
		}
	}

	if types := similarity.NormalizeSet(q.Types); len(types) > 0 {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"terms": map[string]interface{}{"type": types}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

func appendTerms(clauses []interface{}, field string, values []string) []interface{} {
	set := similarity.NormalizeSet(values)
	if len(set) == 0 {
		return clauses
	}
	return append(clauses, map[string]interface{}{
		"terms": map[string]interface{}{field: set},
	})
}

package ranking

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/metrics"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/signals"
)

var ErrNoSource = errors.New("source profile is required")

type Ranker struct {
	engine      *signals.Engine
	parallelism int
	jitter      JitterPolicy
	log         logger.Logger
}

type RankerOption func(*Ranker)

func WithParallelism(n int) RankerOption {
	return func(r *Ranker) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

func WithJitter(j JitterPolicy) RankerOption {
	return func(r *Ranker) { r.jitter = j }
}

func WithRankLogger(l logger.Logger) RankerOption {
	return func(r *Ranker) {
		if l != nil {
			r.log = l
		}
	}
}

func NewRanker(engine *signals.Engine, opts ...RankerOption) *Ranker {
	if engine == nil {
		engine = signals.NewEngine()
	}
	r := &Ranker{
		engine:      engine,
		parallelism: runtime.GOMAXPROCS(0),
		log:         logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ranker) Engine() *signals.Engine {
	return r.engine
}

// Score evaluates a single pair without thresholds or jitter.
func (r *Ranker) Score(a, b *models.Profile, w *models.WeightsProfile) (models.Match, Score) {
	eval := r.engine.Evaluate(a, b, w)
	s := Aggregate(eval)
	m := models.Match{
		OverallScore: s.Overall,
		Confidence:   s.Confidence,
		RankScore:    s.Overall,
		Signals:      eval.Signals,
	}
	if a != nil {
		m.ProfileID = a.ID
	}
	if b != nil {
		m.CandidateID = b.ID
		m.CandidateName = b.Name
	}
	return m, s
}

// Rank scores source against every candidate and returns the matches that pass
// the weights profile thresholds, best first.
func (r *Ranker) Rank(ctx context.Context, source *models.Profile, candidates []*models.Profile, w *models.WeightsProfile) ([]models.Match, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if w == nil {
		w = models.DefaultWeightsProfile()
	}
	start := time.Now()
	defer func() {
		metrics.RankDuration.WithLabelValues(personaLabel(w)).Observe(time.Since(start).Seconds())
	}()

	pool := DedupePool(source, candidates)
	results := make([]*models.Match, len(pool))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, c := range pool {
		i, c := i, c
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, s := r.Score(source, c, w)
			if !Passes(s, w.Thresholds) {
				return nil
			}
			m.RankScore = r.jitter.Apply(s.Overall, source.ID, c.ID)
			results[i] = &m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rank %s: %w", source.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank %s: %w", source.ID, err)
	}

	matches := make([]models.Match, 0, len(results))
	for _, m := range results {
		if m != nil {
			matches = append(matches, *m)
		}
	}
	sortMatches(matches)
	if limit := w.Thresholds.MaximumResults; limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	r.log.Debug("ranked candidates", map[string]interface{}{
		"profileId":  source.ID,
		"candidates": len(pool),
		"matches":    len(matches),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return matches, nil
}

// RankAll ranks every profile in pool against the rest of the pool.
func (r *Ranker) RankAll(ctx context.Context, pool []*models.Profile, w *models.WeightsProfile) (map[string][]models.Match, error) {
	out := make(map[string][]models.Match, len(pool))
	for _, source := range pool {
		if source == nil {
			continue
		}
		if _, done := out[source.ID]; done {
			continue
		}
		matches, err := r.Rank(ctx, source, pool, w)
		if err != nil {
			return nil, err
		}
		out[source.ID] = matches
	}
	return out, nil
}

// DedupePool drops nil candidates, the source itself and repeated ids,
// keeping the first occurrence. Rank scores exactly this pool.
func DedupePool(source *models.Profile, candidates []*models.Profile) []*models.Profile {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]*models.Profile, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c == source {
			continue
		}
		if c.ID != "" {
			if c.ID == source.ID {
				continue
			}
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}

func sortMatches(matches []models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		return a.CandidateID < b.CandidateID
	})
}

func personaLabel(w *models.WeightsProfile) string {
	if w.Persona == "" {
		return models.DefaultPersona
	}
	return w.Persona
}

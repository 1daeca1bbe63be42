// Package signals turns a pair of profiles into typed, explained similarity
// signals. The engine holds no I/O: profiles and weights come in, signals come out.
package signals

import (
	"fmt"
	"math"
	"sync/atomic"

	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/metrics"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/similarity"
)

const DefaultMinTextLength = 20

type Engine struct {
	calculators   []calculator
	cache         *similarity.SimilarityCache
	corpus        atomic.Pointer[similarity.Corpus]
	corpusGen     atomic.Uint64
	minTextLength int
	tokenOverlap  float64
	log           logger.Logger
}

type Option func(*Engine)

// WithCache shares a similarity cache between engines. A nil cache disables memoization.
func WithCache(c *similarity.SimilarityCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithCorpus(c *similarity.Corpus) Option {
	return func(e *Engine) { e.SetCorpus(c) }
}

func WithMinTextLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minTextLength = n
		}
	}
}

func WithTokenOverlap(v float64) Option {
	return func(e *Engine) {
		if v > 0 && v <= 1 {
			e.tokenOverlap = v
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Evaluation is the engine output for one pair. ApplicableFields counts the
// calculators whose data requirement was met on both sides, whether or not
// they produced a signal.
type Evaluation struct {
	Signals          []models.Signal
	ApplicableFields int
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		calculators:   defaultCalculators(),
		minTextLength: DefaultMinTextLength,
		tokenOverlap:  similarity.DefaultTokenOverlap,
		log:           logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateSignals returns the signals for a and b in a fixed calculator order.
func (e *Engine) CalculateSignals(a, b *models.Profile, w *models.WeightsProfile) []models.Signal {
	return e.Evaluate(a, b, w).Signals
}

func (e *Engine) Evaluate(a, b *models.Profile, w *models.WeightsProfile) Evaluation {
	if a == nil {
		a = &models.Profile{}
	}
	if b == nil {
		b = &models.Profile{}
	}
	p := pair{a: a, b: b, rules: w.Rules(), minTextLength: e.minTextLength}

	out := Evaluation{Signals: make([]models.Signal, 0, len(e.calculators))}
	for _, c := range e.calculators {
		if !c.applicable(p) {
			continue
		}
		out.ApplicableFields++

		sig, ok := e.run(c, p)
		if !ok {
			continue
		}
		sig.Score = round2(math.Min(100, sig.Score))
		if sig.Score <= 0 || math.IsNaN(sig.Score) {
			continue
		}
		sig.Type = c.kind()
		sig.Field = c.field()
		sig.Weight = w.Weight(sig.Field)
		sig.Contribution = round2(sig.Score * sig.Weight)
		out.Signals = append(out.Signals, sig)
		metrics.SignalsEmitted.WithLabelValues(string(sig.Type)).Inc()
	}
	return out
}

// run isolates a single calculator; a panic drops that signal only.
func (e *Engine) run(c calculator, p pair) (sig models.Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("signal calculator panicked", map[string]interface{}{
				"field":     c.field(),
				"profileA":  p.a.ID,
				"profileB":  p.b.ID,
				"recovered": fmt.Sprint(r),
			})
			sig, ok = models.Signal{}, false
		}
	}()
	return c.calculate(e, p)
}

func (e *Engine) vector(text string) similarity.Vector {
	gen := e.corpusGen.Load()
	corpus := e.corpus.Load()
	return e.cache.Vector(gen, similarity.Normalize(text), func() similarity.Vector {
		return similarity.TermFrequency(similarity.Tokenize(text), corpus)
	})
}

// SetCorpus swaps the IDF corpus and starts a new vector generation, so a
// vector computed against the old corpus can never be served afterwards.
// The caches are cleared as well.
func (e *Engine) SetCorpus(c *similarity.Corpus) {
	e.corpus.Store(c)
	e.corpusGen.Add(1)
	e.cache.ClearCaches()
}

func (e *Engine) ClearCaches() {
	e.cache.ClearCaches()
}

func (e *Engine) Cache() *similarity.SimilarityCache {
	return e.cache
}

// Fields lists the field names the engine can emit, in emission order.
func (e *Engine) Fields() []string {
	out := make([]string, len(e.calculators))
	for i, c := range e.calculators {
		out[i] = c.field()
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package similarity

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"matchmaking-workers/internal/common/metrics"
)

const (
	DefaultCacheEntries = 50000
	maxKeyLength        = 200
)

// SimilarityCache memoizes pairwise scores and text vectors. Lookups never
// fail: a nil cache, a failed construction or an evicted entry all fall back to
// computing the value directly.
type SimilarityCache struct {
	scores  *memo[float64]
	vectors *memo[Vector]

	hits   atomic.Int64
	misses atomic.Int64
}

type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type memo[V any] struct {
	name  string
	store *ristretto.Cache[string, V]
	group singleflight.Group
}

// NewSimilarityCache returns a usable cache even when the bounded store could
// not be built; the error is returned so the caller can log it.
func NewSimilarityCache(maxEntries int64) (*SimilarityCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	scores, errScores := newStore[float64](maxEntries)
	vectors, errVectors := newStore[Vector](maxEntries / 4)

	c := &SimilarityCache{
		scores:  &memo[float64]{name: "scores", store: scores},
		vectors: &memo[Vector]{name: "vectors", store: vectors},
	}
	if errScores != nil {
		return c, errScores
	}
	return c, errVectors
}

func newStore[V any](maxEntries int64) (*ristretto.Cache[string, V], error) {
	if maxEntries < 16 {
		maxEntries = 16
	}
	return ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
}

// Score memoizes fn under kind and the canonical parts.
func (c *SimilarityCache) Score(kind string, parts []string, fn func() float64) float64 {
	if c == nil {
		return fn()
	}
	return get(c, c.scores, CacheKey(kind, parts...), fn)
}

// SymmetricScore is Score for primitives where (a, b) and (b, a) are equal.
func (c *SimilarityCache) SymmetricScore(kind, a, b string, fn func() float64) float64 {
	if a > b {
		a, b = b, a
	}
	return c.Score(kind, []string{a, b}, fn)
}

// Vector memoizes the term vector of a normalized text. generation names the
// corpus the vector was weighted with; vectors from other generations never match.
func (c *SimilarityCache) Vector(generation uint64, text string, fn func() Vector) Vector {
	if c == nil {
		return fn()
	}
	return get(c, c.vectors, CacheKey("vector", strconv.FormatUint(generation, 10), text), fn)
}

func get[V any](c *SimilarityCache, m *memo[V], key string, fn func() V) V {
	if m.store != nil {
		if v, ok := m.store.Get(key); ok {
			c.hits.Add(1)
			metrics.SimilarityCacheRequests.WithLabelValues(m.name, "hit").Inc()
			return v
		}
	}
	c.misses.Add(1)
	metrics.SimilarityCacheRequests.WithLabelValues(m.name, "miss").Inc()

	res, _, _ := m.group.Do(key, func() (interface{}, error) {
		v := fn()
		if m.store != nil {
			m.store.Set(key, v, 1)
		}
		return v, nil
	})
	return res.(V)
}

// ClearCaches drops every memoized value. Safe to call concurrently with lookups.
func (c *SimilarityCache) ClearCaches() {
	if c == nil {
		return
	}
	if c.scores.store != nil {
		c.scores.store.Clear()
	}
	if c.vectors.store != nil {
		c.vectors.store.Clear()
	}
	c.hits.Store(0)
	c.misses.Store(0)
}

// Wait blocks until buffered writes are applied. Mostly useful in tests.
func (c *SimilarityCache) Wait() {
	if c == nil {
		return
	}
	if c.scores.store != nil {
		c.scores.store.Wait()
	}
	if c.vectors.store != nil {
		c.vectors.store.Wait()
	}
}

func (c *SimilarityCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *SimilarityCache) Close() {
	if c == nil {
		return
	}
	if c.scores.store != nil {
		c.scores.store.Close()
	}
	if c.vectors.store != nil {
		c.vectors.store.Close()
	}
}

// CacheKey joins kind and parts; long keys are replaced by their xxhash.
func CacheKey(kind string, parts ...string) string {
	key := kind + ":" + strings.Join(parts, "\x1f")
	if len(key) <= maxKeyLength {
		return key
	}
	return kind + ":#" + strconv.FormatUint(xxhash.Sum64String(key), 16) + ":" + strconv.Itoa(len(key))
}

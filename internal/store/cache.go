// internal/store/cache.go
package store

import (
	"context"
	"errors"
	"time"

	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/metrics"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const keyPrefix = "matching:"

// Cache is the Redis read-through tier in front of Postgres. Every call goes
// through a circuit breaker; when Redis misbehaves lookups report a miss and
// writes are dropped, so callers always fall back to the database.
//
// A nil *Cache is valid and never hits.
type Cache struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker[string]
	ttl     time.Duration
	name    string
	log     logger.Logger
}

type CacheOptions struct {
	Name             string
	TTL              time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func NewCache(rdb *redis.Client, opts CacheOptions, log logger.Logger) *Cache {
	if rdb == nil {
		return nil
	}
	if opts.Name == "" {
		opts.Name = "redis"
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	c := &Cache{rdb: rdb, ttl: opts.TTL, name: opts.Name, log: log}
	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return c
}

// State exposes the breaker state for health reporting.
func (c *Cache) State() gobreaker.State {
	if c == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}

// get decodes the cached value for key into dst and reports whether it did.
func (c *Cache) get(ctx context.Context, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	val, err := c.breaker.Execute(func() (string, error) {
		return c.rdb.Get(ctx, keyPrefix+key).Result()
	})
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		metrics.ProfileCacheRequests.WithLabelValues(c.name, "miss").Inc()
		return false
	default:
		metrics.ProfileCacheRequests.WithLabelValues(c.name, "error").Inc()
		c.log.Debug("cache read failed", map[string]interface{}{"key": key, "error": err})
		return false
	}

	if err := json.Unmarshal([]byte(val), dst); err != nil {
		metrics.ProfileCacheRequests.WithLabelValues(c.name, "error").Inc()
		return false
	}
	metrics.ProfileCacheRequests.WithLabelValues(c.name, "hit").Inc()
	return true
}

func (c *Cache) set(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, err = c.breaker.Execute(func() (string, error) {
		return c.rdb.Set(ctx, keyPrefix+key, data, c.ttl).Result()
	})
	if err != nil {
		c.log.Debug("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

// Invalidate drops cached entries, e.g. after a profile update event.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	_, err := c.breaker.Execute(func() (string, error) {
		return "", c.rdb.Del(ctx, full...).Err()
	})
	return err
}

// internal/workers/matching/rank-candidates/config.go
package rankcandidates

import (
	"time"

	"matchmaking-workers/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	MaxCandidates int
	SlowThreshold time.Duration
}

func LoadConfig(wcfg config.WorkerConfig, mcfg config.MatchingConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxCandidates := mcfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 200
	}
	return &Config{
		Timeout:       timeout,
		MaxCandidates: maxCandidates,
		SlowThreshold: 500 * time.Millisecond,
	}
}

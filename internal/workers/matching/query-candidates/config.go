// internal/workers/matching/query-candidates/config.go
package querycandidates

import (
	"time"

	"matchmaking-workers/internal/common/config"
)

const (
	defaultIndex = "profiles"
	defaultSize  = 50
	maxSize      = 200
)

type Config struct {
	Timeout time.Duration
	Index   string
}

func LoadConfig(wcfg config.WorkerConfig, mcfg config.MatchingConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	index := mcfg.CandidateIndex
	if index == "" {
		index = defaultIndex
	}
	return &Config{Timeout: timeout, Index: index}
}

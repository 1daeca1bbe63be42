package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: matchmaking
    user: matcher
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
workers:
  calculate-signals:
    enabled: true
  rank-candidates:
    enabled: false
    timeout: 60000
matching:
  parallelism: 4
  jitter:
    enabled: true
    seed: 7
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "matchmaking-workers", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "http://localhost:9200", cfg.Database.Elasticsearch.GetURL())

	assert.Equal(t, 4, cfg.Matching.Parallelism)
	assert.Equal(t, 20, cfg.Matching.MinTextLength)
	assert.Equal(t, 0.5, cfg.Matching.TokenOverlap)
	assert.Equal(t, "default", cfg.Matching.DefaultPersona)
	assert.Equal(t, "profiles", cfg.Matching.CandidateIndex)
	assert.True(t, cfg.Matching.Jitter.Enabled)
	assert.Equal(t, int64(7), cfg.Matching.Jitter.Seed)
	assert.Equal(t, 1.0, cfg.Matching.Jitter.Amplitude)

	w := GetWorkerConfig(cfg, "rank-candidates")
	assert.False(t, w.Enabled)
	assert.Equal(t, 60000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "calculate-signals"))
	assert.True(t, IsWorkerEnabled(cfg, "query-candidates"))
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("MATCHING_PARALLELISM", "6")
	t.Setenv("PG_HOST_FOR_TEST", "db.internal")

	body := minimalConfig + "\nlogging:\n  level: debug\n"
	body = strings.Replace(body, "host: localhost", "host: ${PG_HOST_FOR_TEST}", 1)

	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Matching.Parallelism)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing broker", "database:\n  postgres:\n    host: x\n", "camunda.broker_address"},
		{"bad overlap", minimalConfig + "\n  token_overlap: 1.5\n", "matching.token_overlap"},
		{"tracing without endpoint", minimalConfig + "\ntracing:\n  enabled: true\n", "tracing.jaeger_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weightsFile = "../../../configs/weights.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"weights-tool"}, args...))
	return out.String(), err
}

func writeJSON(t *testing.T, name string, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestValidate(t *testing.T) {
	out, err := run(t, "--file", weightsFile, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "investor")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: x\nprofiles:\n  - id: a\n    persona: a\n    weights: {industry: -1}\n"), 0o600))
	_, err = run(t, "-f", bad, "validate")
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	out, err := run(t, "--file", weightsFile, "show", "investor")
	require.NoError(t, err)
	assert.Contains(t, out, "persona: investor")

	_, err = run(t, "--file", weightsFile, "show", "nobody")
	assert.Error(t, err)

	_, err = run(t, "--file", weightsFile, "show")
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	a := writeJSON(t, "a.json", map[string]interface{}{
		"id": "a", "name": "Tiny Castle", "industry": []string{"gaming"}, "needs": []string{"publishing"},
	})
	b := writeJSON(t, "b.json", map[string]interface{}{
		"id": "b", "name": "Northwind", "industry": []string{"gaming"}, "capabilities": []string{"publishing"},
	})

	out, err := run(t, "score", "--format", "json", a, b)
	require.NoError(t, err)

	var report scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "default", report.WeightsProfileID)
	assert.Greater(t, report.OverallScore, 0.0)
	assert.NotEmpty(t, report.Signals)

	out, err = run(t, "--file", weightsFile, "score", "--profile", "investor", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "industry")

	_, err = run(t, "score", a)
	assert.Error(t, err)

	_, err = run(t, "score", "--format", "xml", a, b)
	assert.Error(t, err)
}

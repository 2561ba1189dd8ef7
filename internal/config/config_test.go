package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamgate/internal/budget"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dreamgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "template", cfg.Generator.Source)
	assert.Equal(t, 20, cfg.Growth.MaxIterations)
}

func TestLoad_OverridesMergeOntoDefaults(t *testing.T) {
	path := writeConfig(t, `
debug: true
growth:
  max_iterations: 50
  insight_timeout: 2m
  ceilings:
    deep_analysis: 25
generator:
  source: claude
  model: claude-3-5-haiku-20241022
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 50, cfg.Growth.MaxIterations)
	assert.Equal(t, Duration(2*time.Minute), cfg.Growth.InsightTimeout)
	assert.Equal(t, "claude", cfg.Generator.Source)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.Generator.Model)

	// Untouched fields keep their defaults.
	assert.Equal(t, 5, cfg.Growth.StagnationLimit)
	assert.Equal(t, 4, cfg.Concurrency)

	ceilings, err := cfg.GateCeilings()
	require.NoError(t, err)
	assert.Equal(t, map[budget.Category]int{budget.DeepAnalysis: 25}, ceilings)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad source":       "generator:\n  source: gpt\n",
		"bad ceiling name":  "growth:\n  ceilings:\n    no_such_gate: 5\n",
		"bad ceiling value": "growth:\n  ceilings:\n    deep_analysis: 0\n",
		"bad threshold":     "growth:\n  insight_threshold: 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "growth: [not a map"))
	assert.Error(t, err)
}

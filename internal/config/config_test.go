package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itercheck/internal/exhaust"
	"itercheck/internal/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsRuleEnabled("reused_iterator"))
	assert.True(t, cfg.IsRuleEnabled(exhaust.MessageID))
	assert.False(t, cfg.IsRuleEnabled("useless_suppression"))
	assert.False(t, cfg.IsRuleEnabled("nested_loops"))
	assert.Equal(t, models.SeverityMedium, cfg.Severity())
	assert.Equal(t, int64(1024*1024), cfg.MaxFileBytes())

	cc := cfg.CheckerConfig()
	assert.Equal(t, exhaust.DefaultProducers, cc.Producers)
	assert.True(t, cc.CheckConsumerCalls)
	assert.True(t, cc.CheckComprehensions)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
analysis:
  max_workers: 2
output:
  format: json
rules:
  reused_iterator:
    severity: high
    producers: [map, filter, itertools.chain]
    check_comprehensions: false
  useless_suppression:
    enabled: true
`), "inline")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Analysis.MaxWorkers)
	assert.True(t, cfg.Analysis.FailOnIssues, "unset fields keep their defaults")
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, models.SeverityHigh, cfg.Severity())
	assert.Equal(t, []string{"map", "filter", "itertools.chain"}, cfg.Rules.ReusedIterator.Producers)
	assert.Equal(t, exhaust.DefaultConsumers, cfg.Rules.ReusedIterator.Consumers)
	assert.False(t, cfg.CheckerConfig().CheckComprehensions)
	assert.True(t, cfg.IsRuleEnabled("useless-suppression"))
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "analysis: [1, 2"},
		{"bad format", "output:\n  format: html\n"},
		{"no workers", "analysis:\n  max_workers: 0\n"},
		{"bad severity", "rules:\n  reused_iterator:\n    severity: severe\n"},
		{"no producers", "rules:\n  reused_iterator:\n    producers: []\n"},
		{"thresholds", "analysis:\n  score_thresholds:\n    excellent: 10\n    good: 75\n"},
		{"file size", "files:\n  max_file_size: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "inline")
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".itercheck.yml")
	require.NoError(t, GenerateConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadConfigFindsDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.WriteFile(".itercheck.yml", []byte("output:\n  verbose: true\n"), 0644))
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.Output.Verbose)
}

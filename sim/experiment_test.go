package sim

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/internal/testutil"
	"github.com/inference-sim/cache-sim/sim/workload"
)

func validExperiment() ExperimentConfig {
	return ExperimentConfig{
		Seed:        1,
		CachePolicy: cache.PolicyLRU,
		Strategy:    StrategyConfig{Name: StrategyGRD},
		Workload: workload.Spec{
			Name: workload.NameStationary, Alpha: 1, NContents: 10, Rate: 1, NMeasured: 10,
		},
	}.WithDefaults()
}

func TestLoadExperimentConfig_Online(t *testing.T) {
	path := testutil.TestdataPath(t, "experiment_online.yaml")
	cfg, err := LoadExperimentConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "topology_tree.yaml"), cfg.Topology)
	assert.Equal(t, cache.PolicyLRU, cfg.CachePolicy)
	assert.Equal(t, StrategyQ, cfg.Strategy.Name)
	assert.Equal(t, map[string]float64{"alpha": 0.5}, cfg.Strategy.Params)
	assert.Equal(t, workload.NameStationary, cfg.Workload.Name)
	assert.Equal(t, 50, cfg.Workload.NContents)
	assert.Equal(t, []CollectorKind{CollectorWeight, CollectorHitRatio}, cfg.Collectors)
	assert.Equal(t, 0.2, cfg.NetworkCache)
	assert.Equal(t, 3, cfg.Replications)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.NoError(t, cfg.Validate())
}

func TestLoadExperimentConfig_ResolvesTracePath(t *testing.T) {
	path := testutil.TestdataPath(t, "experiment_offline.yaml")
	cfg, err := LoadExperimentConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Offline)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "requests_single.csv"), cfg.Workload.Path)
}

func TestLoadExperimentConfig_RejectsUnknownField(t *testing.T) {
	_, err := LoadExperimentConfig(testutil.TestdataPath(t, "experiment_typo.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_polcy")
}

func TestLoadExperimentConfig_MisspelledStrategyParamFailsValidation(t *testing.T) {
	// GIVEN a strategy block with a typo in a parameter name
	path := filepath.Join(t.TempDir(), "exp.yaml")
	yamlContent := `
strategy:
  name: Q
  alpah: 0.5
workload:
  name: STATIONARY
  n_contents: 2
  rate: 1
  n_measured: 1
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	// WHEN the file is loaded and validated
	cfg, err := LoadExperimentConfig(path)
	require.NoError(t, err)
	c := cfg.WithDefaults()
	err = c.Validate()

	// THEN the inline parameter is caught
	assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
}

func TestLoadExperimentConfig_MissingFile(t *testing.T) {
	_, err := LoadExperimentConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExperimentConfig_WithDefaults(t *testing.T) {
	c := ExperimentConfig{}.WithDefaults()
	assert.Equal(t, cache.PolicyLRU, c.CachePolicy)
	assert.Equal(t, StrategyGRD, c.Strategy.Name)
	assert.Equal(t, DefaultCollectors, c.Collectors)
	assert.Equal(t, DefaultNetworkCache, c.NetworkCache)
	assert.Equal(t, DefaultReplications, c.Replications)

	off := ExperimentConfig{Offline: true}.WithDefaults()
	assert.Equal(t, StrategyName(""), off.Strategy.Name)
}

func TestExperimentConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ExperimentConfig)
		wantErr error
	}{
		{"valid", func(c *ExperimentConfig) {}, nil},
		{"unknown policy", func(c *ExperimentConfig) { c.CachePolicy = "ARC" }, ErrUnknownPolicy},
		{"unknown strategy", func(c *ExperimentConfig) { c.Strategy.Name = "EDGE" }, ErrUnknownStrategy},
		{"offline ignores strategy", func(c *ExperimentConfig) { c.Offline = true; c.Strategy.Name = "EDGE" }, nil},
		{"unknown collector", func(c *ExperimentConfig) { c.Collectors = []CollectorKind{"LATENCY"} }, ErrUnknownCollector},
		{"duplicate collector", func(c *ExperimentConfig) {
			c.Collectors = []CollectorKind{CollectorWeight, CollectorWeight}
		}, ErrInvalidConfig},
		{"invalid workload", func(c *ExperimentConfig) { c.Workload.NContents = 0 }, ErrInvalidWorkload},
		{"negative network cache", func(c *ExperimentConfig) { c.NetworkCache = -0.1 }, ErrInvalidConfig},
		{"no replications", func(c *ExperimentConfig) { c.Replications = -1 }, ErrInvalidConfig},
		{"negative parallelism", func(c *ExperimentConfig) { c.Parallelism = -2 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validExperiment()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

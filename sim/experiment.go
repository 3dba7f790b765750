package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/workload"
)

// ExperimentConfig describes one experiment, loadable from a YAML file.
// Zero values mean "not set" and are replaced by WithDefaults.
type ExperimentConfig struct {
	Seed        int64           `yaml:"seed"`
	Topology    string          `yaml:"topology"` // path, relative to the config file
	CachePolicy cache.Policy    `yaml:"cache_policy"`
	Strategy    StrategyConfig  `yaml:"strategy"`
	Workload    workload.Spec   `yaml:"workload"`
	Collectors  []CollectorKind `yaml:"collectors"`

	// Offline replaces request simulation with the greedy placement optimizer.
	// Strategy and collectors are ignored.
	Offline bool `yaml:"offline"`

	// NetworkCache is the total cache budget as a fraction of the catalogue, spread over
	// routers when the topology declares no cache sizes.
	NetworkCache float64 `yaml:"network_cache"`

	Replications int `yaml:"replications"` // replicate command only
	Parallelism  int `yaml:"parallelism"`  // 0 = GOMAXPROCS
}

// Defaults applied by WithDefaults.
const (
	DefaultNetworkCache = 0.1
	DefaultReplications = 1
)

// DefaultCollectors are attached when the configuration lists none.
var DefaultCollectors = []CollectorKind{CollectorWeight, CollectorHitRatio}

// LoadExperimentConfig reads and parses a YAML experiment file.
// Uses strict parsing: unrecognized keys (typos) are rejected. A relative topology path
// is resolved against the directory of the config file.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment config: %w", err)
	}
	var cfg ExperimentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing experiment config: %w", err)
	}
	if cfg.Topology != "" && !filepath.IsAbs(cfg.Topology) {
		cfg.Topology = filepath.Join(filepath.Dir(path), cfg.Topology)
	}
	if cfg.Workload.Path != "" && !filepath.IsAbs(cfg.Workload.Path) {
		cfg.Workload.Path = filepath.Join(filepath.Dir(path), cfg.Workload.Path)
	}
	return &cfg, nil
}

// WithDefaults returns a copy with unset fields filled in.
func (c ExperimentConfig) WithDefaults() ExperimentConfig {
	if c.CachePolicy == "" {
		c.CachePolicy = cache.PolicyLRU
	}
	if c.Strategy.Name == "" && !c.Offline {
		c.Strategy.Name = StrategyGRD
	}
	if len(c.Collectors) == 0 {
		c.Collectors = append([]CollectorKind(nil), DefaultCollectors...)
	}
	if c.NetworkCache == 0 {
		c.NetworkCache = DefaultNetworkCache
	}
	if c.Replications == 0 {
		c.Replications = DefaultReplications
	}
	return c
}

// Validate checks every name and range. It expects defaults to be applied.
func (c *ExperimentConfig) Validate() error {
	if _, err := cache.ParsePolicy(string(c.CachePolicy)); err != nil {
		return err
	}
	if !c.Offline {
		if err := c.Strategy.Validate(); err != nil {
			return err
		}
		seen := make(map[CollectorKind]bool, len(c.Collectors))
		for _, k := range c.Collectors {
			if !validCollectors[k] {
				return fmt.Errorf("%w %q; valid: %v", ErrUnknownCollector, k, ValidCollectorNames())
			}
			if seen[k] {
				return fmt.Errorf("%w: collector %s listed twice", ErrInvalidConfig, k)
			}
			seen[k] = true
		}
	}
	if err := c.Workload.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.NetworkCache) || math.IsInf(c.NetworkCache, 0) || c.NetworkCache < 0 {
		return fmt.Errorf("%w: network_cache must be a finite non-negative fraction, got %f", ErrInvalidConfig, c.NetworkCache)
	}
	if c.Replications < 1 {
		return fmt.Errorf("%w: replications must be at least 1, got %d", ErrInvalidConfig, c.Replications)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must be non-negative, got %d", ErrInvalidConfig, c.Parallelism)
	}
	return nil
}

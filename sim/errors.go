package sim

import (
	"errors"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/workload"
)

// Configuration errors. Each is returned wrapped with context; test with errors.Is.
var (
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrUnknownCollector = errors.New("unknown collector")
	ErrInvalidConfig    = errors.New("invalid experiment config")

	// Re-exported from the sub-packages that detect them.
	ErrUnknownPolicy       = cache.ErrUnknownPolicy
	ErrInvalidTopology     = topology.ErrInvalidTopology
	ErrUnsupportedTopology = topology.ErrUnsupportedTopology
	ErrInvalidWorkload     = workload.ErrInvalidWorkload
)

// Invariant violations that abort an experiment.
var (
	ErrNoSource = topology.ErrNoSource
	ErrNoPath   = topology.ErrNoPath
	// ErrTimeReversal reports a workload event earlier than its predecessor.
	ErrTimeReversal = errors.New("event time decreased")
)

package workload

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// Name selects a workload generator.
type Name string

const (
	// NameStationary draws i.i.d. requests: Zipf contents, uniform receivers, Poisson arrivals.
	NameStationary Name = "STATIONARY"
	// NameTraceDriven replays a recorded request CSV.
	NameTraceDriven Name = "TRACE_DRIVEN"
)

// Arrival process names.
const (
	ArrivalPoisson  = "poisson"
	ArrivalConstant = "constant"
)

// ErrInvalidWorkload reports a malformed workload configuration or trace.
var ErrInvalidWorkload = errors.New("invalid workload")

// Valid value registries.
var (
	validNames            = map[Name]bool{NameStationary: true, NameTraceDriven: true}
	validArrivalProcesses = map[string]bool{"": true, ArrivalPoisson: true, ArrivalConstant: true}
)

// Spec is the workload section of an experiment configuration.
type Spec struct {
	Name      Name    `yaml:"name"`
	Alpha     float64 `yaml:"alpha,omitempty"`
	NContents int     `yaml:"n_contents,omitempty"`
	Rate      float64 `yaml:"rate,omitempty"`
	Arrival   string  `yaml:"arrival,omitempty"` // poisson (default) or constant
	NWarmup   int     `yaml:"n_warmup,omitempty"`
	NMeasured int     `yaml:"n_measured,omitempty"`
	Path      string  `yaml:"path,omitempty"` // TRACE_DRIVEN only
}

// Validate checks that all fields relevant to the selected generator are valid.
func (s *Spec) Validate() error {
	if !validNames[s.Name] {
		return fmt.Errorf("%w: unknown workload %q; valid: STATIONARY, TRACE_DRIVEN", ErrInvalidWorkload, s.Name)
	}
	if s.Name == NameTraceDriven {
		if s.Path == "" {
			return fmt.Errorf("%w: %s requires a path", ErrInvalidWorkload, s.Name)
		}
		return nil
	}
	if math.IsNaN(s.Alpha) || math.IsInf(s.Alpha, 0) || s.Alpha < 0 {
		return fmt.Errorf("%w: alpha must be a finite non-negative number, got %f", ErrInvalidWorkload, s.Alpha)
	}
	if s.NContents < 1 {
		return fmt.Errorf("%w: n_contents must be at least 1, got %d", ErrInvalidWorkload, s.NContents)
	}
	if err := validateFinitePositive("rate", s.Rate); err != nil {
		return err
	}
	if !validArrivalProcesses[s.Arrival] {
		return fmt.Errorf("%w: unknown arrival process %q; valid: poisson, constant", ErrInvalidWorkload, s.Arrival)
	}
	if s.NWarmup < 0 {
		return fmt.Errorf("%w: n_warmup must be non-negative, got %d", ErrInvalidWorkload, s.NWarmup)
	}
	if s.NMeasured < 0 {
		return fmt.Errorf("%w: n_measured must be non-negative, got %d", ErrInvalidWorkload, s.NMeasured)
	}
	return nil
}

// New builds the workload described by s over the given receivers.
// rng drives every random draw of the generator.
func New(s Spec, receivers []topology.NodeID, rng *rand.Rand) (Workload, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(receivers) == 0 {
		return nil, fmt.Errorf("%w: topology has no receivers", ErrInvalidWorkload)
	}
	switch s.Name {
	case NameTraceDriven:
		events, err := LoadRequests(s.Path)
		if err != nil {
			return nil, err
		}
		w, err := NewReplay(events, receivers)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		w, err := NewStationary(s, receivers, rng)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %f", ErrInvalidWorkload, name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %f", ErrInvalidWorkload, name, val)
	}
	return nil
}

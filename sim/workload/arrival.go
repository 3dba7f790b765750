package workload

import (
	"math/rand"
)

// ArrivalSampler generates inter-arrival times.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time. Always returns a non-negative value.
	SampleIAT(rng *rand.Rand) float64
}

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	rate float64 // requests per time unit
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) float64 {
	return rng.ExpFloat64() / s.rate
}

// ConstantSampler spaces requests evenly at 1/rate.
type ConstantSampler struct {
	iat float64
}

func (s *ConstantSampler) SampleIAT(_ *rand.Rand) float64 {
	return s.iat
}

// NewArrivalSampler creates an ArrivalSampler for a validated process name and rate.
func NewArrivalSampler(process string, rate float64) ArrivalSampler {
	// Floor to avoid division by zero or numerical instability
	if rate < 1e-15 {
		rate = 1e-15
	}
	switch process {
	case ArrivalConstant:
		return &ConstantSampler{iat: 1.0 / rate}
	default:
		return &PoissonSampler{rate: rate}
	}
}

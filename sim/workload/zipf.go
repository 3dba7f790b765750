package workload

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// TruncatedZipf is a Zipf distribution over contents 1..n: P(k) ∝ 1/k^alpha.
// alpha = 0 is the uniform distribution.
type TruncatedZipf struct {
	alpha float64
	pdf   []float64 // pdf[i] is the probability of content i+1
	cdf   []float64
}

// NewTruncatedZipf builds the distribution. alpha must be finite and non-negative, n >= 1.
func NewTruncatedZipf(alpha float64, n int) (*TruncatedZipf, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha < 0 {
		return nil, fmt.Errorf("zipf alpha must be a finite non-negative number, got %f", alpha)
	}
	if n < 1 {
		return nil, fmt.Errorf("zipf support size must be at least 1, got %d", n)
	}
	pdf := make([]float64, n)
	total := 0.0
	for i := range pdf {
		pdf[i] = 1.0 / math.Pow(float64(i+1), alpha)
		total += pdf[i]
	}
	cdf := make([]float64, n)
	cumulative := 0.0
	for i := range pdf {
		pdf[i] /= total
		cumulative += pdf[i]
		cdf[i] = cumulative
	}
	// Ensure last CDF entry is exactly 1.0
	cdf[n-1] = 1.0
	return &TruncatedZipf{alpha: alpha, pdf: pdf, cdf: cdf}, nil
}

// N returns the support size.
func (z *TruncatedZipf) N() int { return len(z.pdf) }

// Prob returns the probability of content c, 0 outside 1..n.
func (z *TruncatedZipf) Prob(c topology.ContentID) float64 {
	if c < 1 || int(c) > len(z.pdf) {
		return 0
	}
	return z.pdf[c-1]
}

// PDF returns a copy of the probabilities of contents 1..n.
func (z *TruncatedZipf) PDF() []float64 {
	return append([]float64(nil), z.pdf...)
}

// Sample draws a content by inverse CDF.
func (z *TruncatedZipf) Sample(rng *rand.Rand) topology.ContentID {
	u := rng.Float64()
	idx := sort.SearchFloat64s(z.cdf, u)
	if idx >= len(z.cdf) {
		idx = len(z.cdf) - 1
	}
	return topology.ContentID(idx + 1)
}

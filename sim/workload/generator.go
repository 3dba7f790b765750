package workload

import (
	"math/rand"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// Stationary generates NWarmup unlogged then NMeasured logged requests. Each request draws,
// in order, its inter-arrival time, a receiver uniformly at random and a Zipf content.
// Deterministic given the same spec, receivers and RNG state.
type Stationary struct {
	receivers []topology.NodeID
	zipf      *TruncatedZipf
	arrivals  ArrivalSampler
	rng       *rand.Rand
	nWarmup   int
	total     int
	count     int
	now       float64
}

// NewStationary creates a stationary generator. The receivers slice is copied.
func NewStationary(s Spec, receivers []topology.NodeID, rng *rand.Rand) (*Stationary, error) {
	zipf, err := NewTruncatedZipf(s.Alpha, s.NContents)
	if err != nil {
		return nil, err
	}
	return &Stationary{
		receivers: append([]topology.NodeID(nil), receivers...),
		zipf:      zipf,
		arrivals:  NewArrivalSampler(s.Arrival, s.Rate),
		rng:       rng,
		nWarmup:   s.NWarmup,
		total:     s.NWarmup + s.NMeasured,
	}, nil
}

func (w *Stationary) Next() (Event, bool) {
	if w.count >= w.total {
		return Event{}, false
	}
	w.now += w.arrivals.SampleIAT(w.rng)
	e := Event{
		Time:     w.now,
		Receiver: w.receivers[w.rng.Intn(len(w.receivers))],
		Content:  w.zipf.Sample(w.rng),
		Log:      w.count >= w.nWarmup,
	}
	w.count++
	return e, true
}

// Contents returns 1..n_contents.
func (w *Stationary) Contents() []topology.ContentID {
	contents := make([]topology.ContentID, w.zipf.N())
	for i := range contents {
		contents[i] = topology.ContentID(i + 1)
	}
	return contents
}

// Popularity splits each content's Zipf probability evenly across receivers.
func (w *Stationary) Popularity() map[topology.NodeID]map[topology.ContentID]float64 {
	share := 1.0 / float64(len(w.receivers))
	pop := make(map[topology.NodeID]map[topology.ContentID]float64, len(w.receivers))
	for _, r := range w.receivers {
		row := make(map[topology.ContentID]float64, w.zipf.N())
		for i, p := range w.zipf.pdf {
			row[topology.ContentID(i+1)] = p * share
		}
		pop[r] = row
	}
	return pop
}

func (w *Stationary) GlobalPopularity(c topology.ContentID) float64 {
	return w.zipf.Prob(c)
}

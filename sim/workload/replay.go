package workload

import (
	"fmt"
	"sort"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// Replay is a workload over a recorded list of requests. Its popularity is the empirical
// request mix of the logged events (all events when none is logged).
type Replay struct {
	SliceStream
	contents   []topology.ContentID
	popularity map[topology.NodeID]map[topology.ContentID]float64
	global     map[topology.ContentID]float64
}

// NewReplay checks that every event targets a known receiver and arrives in time order.
// An empty trace yields an empty catalogue and no popularity.
func NewReplay(events []Event, receivers []topology.NodeID) (*Replay, error) {
	known := make(map[topology.NodeID]bool, len(receivers))
	for _, r := range receivers {
		known[r] = true
	}
	logged := 0
	for i, e := range events {
		if !known[e.Receiver] {
			return nil, fmt.Errorf("%w: request %d from %q, which is not a receiver", ErrInvalidWorkload, i, e.Receiver)
		}
		if i > 0 && e.Time < events[i-1].Time {
			return nil, fmt.Errorf("%w: request %d at time %f precedes request %d at time %f",
				ErrInvalidWorkload, i, e.Time, i-1, events[i-1].Time)
		}
		if e.Log {
			logged++
		}
	}

	w := &Replay{
		SliceStream: SliceStream{events: events},
		popularity:  make(map[topology.NodeID]map[topology.ContentID]float64),
		global:      make(map[topology.ContentID]float64),
	}
	weight := 0.0
	switch {
	case logged > 0:
		weight = 1.0 / float64(logged)
	case len(events) > 0:
		weight = 1.0 / float64(len(events))
	}
	for _, e := range events {
		if _, seen := w.global[e.Content]; !seen {
			w.global[e.Content] = 0
			w.contents = append(w.contents, e.Content)
		}
		if !e.Log && logged > 0 {
			continue
		}
		if w.popularity[e.Receiver] == nil {
			w.popularity[e.Receiver] = make(map[topology.ContentID]float64)
		}
		w.popularity[e.Receiver][e.Content] += weight
		w.global[e.Content] += weight
	}
	sort.Slice(w.contents, func(i, j int) bool { return w.contents[i] < w.contents[j] })
	return w, nil
}

func (w *Replay) Contents() []topology.ContentID {
	return append([]topology.ContentID(nil), w.contents...)
}

func (w *Replay) Popularity() map[topology.NodeID]map[topology.ContentID]float64 {
	return w.popularity
}

func (w *Replay) GlobalPopularity(c topology.ContentID) float64 {
	return w.global[c]
}

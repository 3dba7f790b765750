package workload

import "github.com/inference-sim/cache-sim/sim/topology"

// Event is one request of a workload: at Time, Receiver asks for Content.
// Events with Log=false still drive cache state but are excluded from statistics.
type Event struct {
	Time     float64
	Receiver topology.NodeID
	Content  topology.ContentID
	Log      bool
}

// Stream yields events in non-decreasing time order.
type Stream interface {
	// Next returns the next event, or false when the stream is exhausted.
	Next() (Event, bool)
}

// Workload is a Stream that also knows its catalogue and request distribution.
type Workload interface {
	Stream
	// Contents returns the catalogue in ascending order.
	Contents() []topology.ContentID
	// Popularity returns the probability that a request is (receiver, content).
	Popularity() map[topology.NodeID]map[topology.ContentID]float64
	// GlobalPopularity returns the probability that a request is for c, any receiver.
	GlobalPopularity(c topology.ContentID) float64
}

// SliceStream replays a fixed list of events.
type SliceStream struct {
	events []Event
	pos    int
}

// NewSliceStream creates a stream over events. The slice is not copied.
func NewSliceStream(events []Event) *SliceStream {
	return &SliceStream{events: events}
}

func (s *SliceStream) Next() (Event, bool) {
	if s.pos >= len(s.events) {
		return Event{}, false
	}
	e := s.events[s.pos]
	s.pos++
	return e, true
}

// Drain collects the remaining events of a stream.
func Drain(s Stream) []Event {
	var out []Event
	for {
		e, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

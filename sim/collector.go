package sim

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/trace"
)

// HopKind tells whether a hop carried the request or the content.
type HopKind int

const (
	HopRequest HopKind = iota
	HopContent
)

func (k HopKind) String() string {
	if k == HopContent {
		return "content"
	}
	return "request"
}

// Results maps metric name -> statistic name -> value.
type Results map[string]map[string]float64

// Collector observes measured sessions. Hooks arrive in the order events happen:
// OnSessionStart, then hops and cache decisions, then OnSessionEnd.
type Collector interface {
	OnSessionStart(s Session)
	OnHop(u, v topology.NodeID, kind HopKind)
	OnCacheHit(node topology.NodeID)
	OnCacheMiss(node topology.NodeID)
	OnServerHit(node topology.NodeID)
	OnSessionEnd()
	Results() Results
}

// InsertObserver is implemented by collectors that also want cache insertions.
type InsertObserver interface {
	OnInsert(node topology.NodeID, evicted topology.ContentID, didEvict bool)
}

// CollectorProxy fans hooks out to every attached collector. Hooks of sessions with the
// log flag unset (warm-up) are suppressed entirely.
type CollectorProxy struct {
	collectors []Collector
	inserts    []InsertObserver
	active     bool
}

// NewCollectorProxy attaches collectors in order.
func NewCollectorProxy(collectors ...Collector) *CollectorProxy {
	p := &CollectorProxy{collectors: collectors}
	for _, c := range collectors {
		if o, ok := c.(InsertObserver); ok {
			p.inserts = append(p.inserts, o)
		}
	}
	return p
}

func (p *CollectorProxy) StartSession(s Session) {
	p.active = s.Log
	if !p.active {
		return
	}
	for _, c := range p.collectors {
		c.OnSessionStart(s)
	}
}

func (p *CollectorProxy) Hop(u, v topology.NodeID, kind HopKind) {
	if !p.active {
		return
	}
	for _, c := range p.collectors {
		c.OnHop(u, v, kind)
	}
}

func (p *CollectorProxy) CacheHit(node topology.NodeID) {
	if !p.active {
		return
	}
	for _, c := range p.collectors {
		c.OnCacheHit(node)
	}
}

func (p *CollectorProxy) CacheMiss(node topology.NodeID) {
	if !p.active {
		return
	}
	for _, c := range p.collectors {
		c.OnCacheMiss(node)
	}
}

func (p *CollectorProxy) ServerHit(node topology.NodeID) {
	if !p.active {
		return
	}
	for _, c := range p.collectors {
		c.OnServerHit(node)
	}
}

func (p *CollectorProxy) Insert(node topology.NodeID, evicted topology.ContentID, didEvict bool) {
	if !p.active {
		return
	}
	for _, o := range p.inserts {
		o.OnInsert(node, evicted, didEvict)
	}
}

func (p *CollectorProxy) EndSession() {
	if p.active {
		for _, c := range p.collectors {
			c.OnSessionEnd()
		}
	}
	p.active = false
}

// Results merges the results of every collector. Collectors report disjoint metric names.
func (p *CollectorProxy) Results() Results {
	out := make(Results)
	for _, c := range p.collectors {
		for metric, stats := range c.Results() {
			out[metric] = stats
		}
	}
	return out
}

// CollectorKind names a collector in experiment configurations.
type CollectorKind string

const (
	CollectorWeight     CollectorKind = "WEIGHT"
	CollectorHitRatio   CollectorKind = "CACHE_HIT_RATIO"
	CollectorTrace      CollectorKind = "TRACE"
	CollectorPrometheus CollectorKind = "PROMETHEUS"
)

// validCollectors is the set of recognized collector names.
var validCollectors = map[CollectorKind]bool{
	CollectorWeight: true, CollectorHitRatio: true, CollectorTrace: true, CollectorPrometheus: true,
}

// IsValidCollector reports whether name is a recognized collector.
func IsValidCollector(name string) bool {
	return validCollectors[CollectorKind(name)]
}

// ValidCollectorNames lists the recognized collector names, sorted.
func ValidCollectorNames() []string {
	names := make([]string, 0, len(validCollectors))
	for k := range validCollectors {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// NewCollector creates a collector of the given kind over view. reg receives the
// PROMETHEUS collector's metrics in addition to its private registry; it may be nil.
func NewCollector(kind CollectorKind, view *NetworkView, reg prometheus.Registerer) (Collector, error) {
	switch kind {
	case CollectorWeight:
		return NewWeightCollector(view), nil
	case CollectorHitRatio:
		return NewHitRatioCollector(view), nil
	case CollectorTrace:
		return NewTraceCollector(view, trace.TraceConfig{Level: trace.TraceLevelSessions}), nil
	case CollectorPrometheus:
		c, err := NewPrometheusCollector(view, reg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w %q; valid: %v", ErrUnknownCollector, kind, ValidCollectorNames())
	}
}

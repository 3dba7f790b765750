package sim

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// PrometheusCollector exports measured sessions as Prometheus metrics. Metrics always
// live on a private registry (read back by Results) and are also registered on an
// optional external Registerer, e.g. for text-file export.
type PrometheusCollector struct {
	view     *NetworkView
	registry *prometheus.Registry

	sessions    prometheus.Counter
	cacheHits   *prometheus.CounterVec // by node
	cacheMisses *prometheus.CounterVec // by node
	serverHits  *prometheus.CounterVec // by node
	insertions  *prometheus.CounterVec // by node
	evictions   *prometheus.CounterVec // by node
	hops        *prometheus.CounterVec // by kind
	pathWeight  prometheus.Histogram

	weight float64
}

// NewPrometheusCollector creates and registers the collector metrics. ext may be nil.
func NewPrometheusCollector(view *NetworkView, ext prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		view:     view,
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cachesim",
			Name:      "sessions_total",
			Help:      "Total number of measured request sessions",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups that found the content",
		}, []string{"node"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that did not find the content",
		}, []string{"node"}),
		serverHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Subsystem: "source",
			Name:      "hits_total",
			Help:      "Requests served by the content source",
		}, []string{"node"}),
		insertions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Subsystem: "cache",
			Name:      "insertions_total",
			Help:      "Contents stored on the way back to the receiver",
		}, []string{"node"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Contents evicted to make room for an insertion",
		}, []string{"node"}),
		hops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachesim",
			Name:      "hops_total",
			Help:      "Link traversals by request or content",
		}, []string{"kind"}),
		pathWeight: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cachesim",
			Name:      "content_path_weight",
			Help:      "Link weight travelled by the content per session",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	metrics := []prometheus.Collector{
		c.sessions, c.cacheHits, c.cacheMisses, c.serverHits,
		c.insertions, c.evictions, c.hops, c.pathWeight,
	}
	for _, m := range metrics {
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("registering collector metric: %w", err)
		}
		if ext != nil {
			if err := ext.Register(m); err != nil {
				return nil, fmt.Errorf("registering collector metric externally: %w", err)
			}
		}
	}
	return c, nil
}

// Gatherer exposes the private registry.
func (c *PrometheusCollector) Gatherer() prometheus.Gatherer { return c.registry }

func (c *PrometheusCollector) OnSessionStart(Session) { c.weight = 0 }

func (c *PrometheusCollector) OnHop(u, v topology.NodeID, kind HopKind) {
	c.hops.WithLabelValues(kind.String()).Inc()
	if kind == HopContent {
		w, _ := c.view.LinkWeight(u, v)
		c.weight += w
	}
}

func (c *PrometheusCollector) OnCacheHit(node topology.NodeID) {
	c.cacheHits.WithLabelValues(string(node)).Inc()
}

func (c *PrometheusCollector) OnCacheMiss(node topology.NodeID) {
	c.cacheMisses.WithLabelValues(string(node)).Inc()
}

func (c *PrometheusCollector) OnServerHit(node topology.NodeID) {
	c.serverHits.WithLabelValues(string(node)).Inc()
}

func (c *PrometheusCollector) OnInsert(node topology.NodeID, _ topology.ContentID, didEvict bool) {
	c.insertions.WithLabelValues(string(node)).Inc()
	if didEvict {
		c.evictions.WithLabelValues(string(node)).Inc()
	}
}

func (c *PrometheusCollector) OnSessionEnd() {
	c.sessions.Inc()
	c.pathWeight.Observe(c.weight)
}

// Results reads the totals back from the private registry.
func (c *PrometheusCollector) Results() Results {
	stats := map[string]float64{
		"SESSIONS":     0,
		"CACHE_HITS":   0,
		"CACHE_MISSES": 0,
		"SERVER_HITS":  0,
		"INSERTIONS":   0,
		"EVICTIONS":    0,
		"MEAN_WEIGHT":  0,
	}
	families, err := c.registry.Gather()
	if err != nil {
		return Results{string(CollectorPrometheus): stats}
	}
	keys := map[string]string{
		"cachesim_sessions_total":         "SESSIONS",
		"cachesim_cache_hits_total":       "CACHE_HITS",
		"cachesim_cache_misses_total":     "CACHE_MISSES",
		"cachesim_source_hits_total":      "SERVER_HITS",
		"cachesim_cache_insertions_total": "INSERTIONS",
		"cachesim_cache_evictions_total":  "EVICTIONS",
	}
	for _, mf := range families {
		if mf.GetName() == "cachesim_content_path_weight" {
			for _, m := range mf.GetMetric() {
				if h := m.GetHistogram(); h.GetSampleCount() > 0 {
					stats["MEAN_WEIGHT"] = h.GetSampleSum() / float64(h.GetSampleCount())
				}
			}
			continue
		}
		key, ok := keys[mf.GetName()]
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			stats[key] += m.GetCounter().GetValue()
		}
	}
	return Results{string(CollectorPrometheus): stats}
}

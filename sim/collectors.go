package sim

import (
	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/trace"
)

// WeightCollector measures the link weight the content travels per request.
//   - MEAN: mean weight of the content path, serving node to receiver.
//   - MEAN_SAVED: mean weight saved against fetching from the source.
type WeightCollector struct {
	view     *NetworkView
	sessions int
	total    float64
	saved    float64

	session Session
	weight  float64
}

func NewWeightCollector(view *NetworkView) *WeightCollector {
	return &WeightCollector{view: view}
}

func (c *WeightCollector) OnSessionStart(s Session) {
	c.session = s
	c.weight = 0
}

func (c *WeightCollector) OnHop(u, v topology.NodeID, kind HopKind) {
	if kind != HopContent {
		return
	}
	w, _ := c.view.LinkWeight(u, v)
	c.weight += w
}

func (c *WeightCollector) OnCacheHit(topology.NodeID)  {}
func (c *WeightCollector) OnCacheMiss(topology.NodeID) {}
func (c *WeightCollector) OnServerHit(topology.NodeID) {}

func (c *WeightCollector) OnSessionEnd() {
	c.sessions++
	c.total += c.weight
	if src, ok := c.view.ContentSource(c.session.Content); ok {
		c.saved += c.view.PathWeight(c.view.ShortestPath(c.session.Receiver, src)) - c.weight
	}
}

func (c *WeightCollector) Results() Results {
	stats := map[string]float64{"MEAN": 0, "MEAN_SAVED": 0}
	if c.sessions > 0 {
		stats["MEAN"] = c.total / float64(c.sessions)
		stats["MEAN_SAVED"] = c.saved / float64(c.sessions)
	}
	return Results{string(CollectorWeight): stats}
}

// HitRatioCollector measures how often requests are served by a cache.
//   - MEAN: cache hits / (cache hits + server hits).
//   - NODE_<id>: share of sessions served by each cache node.
type HitRatioCollector struct {
	view       *NetworkView
	sessions   int
	cacheHits  int
	serverHits int
	perNode    map[topology.NodeID]int
	served     bool
}

func NewHitRatioCollector(view *NetworkView) *HitRatioCollector {
	return &HitRatioCollector{view: view, perNode: make(map[topology.NodeID]int)}
}

func (c *HitRatioCollector) OnSessionStart(Session)                          { c.served = false }
func (c *HitRatioCollector) OnHop(topology.NodeID, topology.NodeID, HopKind) {}
func (c *HitRatioCollector) OnCacheMiss(topology.NodeID)                     {}

// OnCacheHit counts only the first hit of a session.
func (c *HitRatioCollector) OnCacheHit(node topology.NodeID) {
	if c.served {
		return
	}
	c.served = true
	c.cacheHits++
	c.perNode[node]++
}

func (c *HitRatioCollector) OnServerHit(topology.NodeID) {
	if c.served {
		return
	}
	c.served = true
	c.serverHits++
}

func (c *HitRatioCollector) OnSessionEnd() { c.sessions++ }

func (c *HitRatioCollector) Results() Results {
	stats := map[string]float64{"MEAN": 0}
	if served := c.cacheHits + c.serverHits; served > 0 {
		stats["MEAN"] = float64(c.cacheHits) / float64(served)
	}
	for _, node := range c.view.CacheNodes() {
		v := 0.0
		if c.sessions > 0 {
			v = float64(c.perNode[node]) / float64(c.sessions)
		}
		stats["NODE_"+string(node)] = v
	}
	return Results{string(CollectorHitRatio): stats}
}

// TraceCollector records one trace.SessionRecord per measured session.
type TraceCollector struct {
	view  *NetworkView
	trace *trace.SimulationTrace
	cur   trace.SessionRecord
}

func NewTraceCollector(view *NetworkView, cfg trace.TraceConfig) *TraceCollector {
	return &TraceCollector{view: view, trace: trace.NewSimulationTrace(cfg)}
}

// Trace returns the recorded sessions.
func (c *TraceCollector) Trace() *trace.SimulationTrace { return c.trace }

func (c *TraceCollector) OnSessionStart(s Session) {
	c.cur = trace.SessionRecord{
		Time:     s.Time,
		Receiver: string(s.Receiver),
		Content:  int(s.Content),
	}
}

func (c *TraceCollector) OnHop(u, v topology.NodeID, kind HopKind) {
	if kind == HopRequest {
		c.cur.RequestHops++
		return
	}
	c.cur.ContentHops++
	w, _ := c.view.LinkWeight(u, v)
	c.cur.Weight += w
}

func (c *TraceCollector) OnCacheHit(node topology.NodeID) {
	c.cur.Lookups = append(c.cur.Lookups, trace.CacheDecision{Node: string(node), Hit: true})
	if c.cur.ServingNode == "" {
		c.cur.ServingNode = string(node)
		c.cur.CacheHit = true
	}
}

func (c *TraceCollector) OnCacheMiss(node topology.NodeID) {
	c.cur.Lookups = append(c.cur.Lookups, trace.CacheDecision{Node: string(node)})
}

func (c *TraceCollector) OnServerHit(node topology.NodeID) {
	if c.cur.ServingNode == "" {
		c.cur.ServingNode = string(node)
	}
}

func (c *TraceCollector) OnInsert(node topology.NodeID, _ topology.ContentID, _ bool) {
	c.cur.Inserted = append(c.cur.Inserted, string(node))
}

func (c *TraceCollector) OnSessionEnd() {
	c.trace.RecordSession(c.cur)
}

func (c *TraceCollector) Results() Results {
	s := trace.Summarize(c.trace)
	return Results{string(CollectorTrace): {
		"SESSIONS":          float64(s.TotalSessions),
		"HIT_RATIO":         s.HitRatio,
		"MEAN_WEIGHT":       s.MeanWeight,
		"MEAN_REQUEST_HOPS": s.MeanRequestHops,
		"INSERTIONS":        float64(s.Insertions),
		"DROPPED":           float64(c.trace.Dropped),
	}}
}

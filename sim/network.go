package sim

import (
	"fmt"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/topology"
)

// NetworkModel owns the per-node cache stores and the static topology facts of one
// experiment. Strategies never touch it directly: they read through a NetworkView and
// mutate through a NetworkController.
type NetworkModel struct {
	facts  *topology.Facts
	policy cache.Policy
	caches map[topology.NodeID]cache.Store[topology.ContentID]
}

// NewNetworkModel creates one store per caching node of facts. popularity is the
// ground-truth oracle PERFECT_LFU needs; other policies ignore it.
func NewNetworkModel(facts *topology.Facts, policy cache.Policy, popularity func(topology.ContentID) float64) (*NetworkModel, error) {
	if facts == nil {
		panic("NewNetworkModel: facts must not be nil")
	}
	m := &NetworkModel{
		facts:  facts,
		policy: policy,
		caches: make(map[topology.NodeID]cache.Store[topology.ContentID], len(facts.CacheSize)),
	}
	for node, size := range facts.CacheSize {
		store, err := cache.New[topology.ContentID](policy, size, popularity)
		if err != nil {
			return nil, fmt.Errorf("cache on node %q: %w", node, err)
		}
		m.caches[node] = store
	}
	return m, nil
}

// Policy returns the replacement policy shared by every store of the model.
func (m *NetworkModel) Policy() cache.Policy { return m.policy }

// NetworkView is the read-only facade strategies and collectors query.
type NetworkView struct {
	model *NetworkModel
}

// NewNetworkView creates a view over m.
func NewNetworkView(m *NetworkModel) *NetworkView {
	if m == nil {
		panic("NewNetworkView: model must not be nil")
	}
	return &NetworkView{model: m}
}

// ShortestPath returns the path a..b (both included), nil when b is unreachable.
func (v *NetworkView) ShortestPath(a, b topology.NodeID) []topology.NodeID {
	return v.model.facts.ShortestPath(a, b)
}

// LinkWeight returns the weight of hop u->v and whether the hop exists.
func (v *NetworkView) LinkWeight(u, w topology.NodeID) (float64, bool) {
	return v.model.facts.LinkWeight(u, w)
}

// PathWeight sums the link weights along p.
func (v *NetworkView) PathWeight(p []topology.NodeID) float64 {
	total := 0.0
	for _, l := range topology.PathLinks(p) {
		w, _ := v.model.facts.LinkWeight(l.U, l.V)
		total += w
	}
	return total
}

func (v *NetworkView) HasCache(node topology.NodeID) bool {
	_, ok := v.model.caches[node]
	return ok
}

// CacheNodes returns the caching nodes sorted by ID.
func (v *NetworkView) CacheNodes() []topology.NodeID {
	return v.model.facts.CacheNodes()
}

// ContentSource returns the node holding the authoritative copy of c.
func (v *NetworkView) ContentSource(c topology.ContentID) (topology.NodeID, bool) {
	src, ok := v.model.facts.ContentSource[c]
	return src, ok
}

// CacheDump lists the contents stored at node in eviction order, nil for non-caches.
func (v *NetworkView) CacheDump(node topology.NodeID) []topology.ContentID {
	store, ok := v.model.caches[node]
	if !ok {
		return nil
	}
	return store.Keys()
}

// Session is the request currently being processed by the controller.
type Session struct {
	Time     float64
	Receiver topology.NodeID
	Content  topology.ContentID
	Log      bool
}

// NetworkController performs every state change of the model on behalf of exactly one
// strategy, one session at a time, and reports each hop and cache decision to the
// attached collector.
type NetworkController struct {
	model     *NetworkModel
	collector *CollectorProxy
	session   *Session
}

// NewNetworkController creates a controller over m with no collector attached.
func NewNetworkController(m *NetworkModel) *NetworkController {
	if m == nil {
		panic("NewNetworkController: model must not be nil")
	}
	return &NetworkController{model: m}
}

// AttachCollector routes hooks of subsequent sessions to proxy.
func (c *NetworkController) AttachCollector(proxy *CollectorProxy) {
	c.collector = proxy
}

// StartSession begins processing a request. Sessions must not overlap.
func (c *NetworkController) StartSession(time float64, receiver topology.NodeID, content topology.ContentID, log bool) {
	if c.session != nil {
		panic(fmt.Sprintf("StartSession: session for content %d at %q still open", c.session.Content, c.session.Receiver))
	}
	c.session = &Session{Time: time, Receiver: receiver, Content: content, Log: log}
	if c.collector != nil {
		c.collector.StartSession(*c.session)
	}
}

// Session returns the open session.
func (c *NetworkController) Session() Session {
	return *c.mustSession("Session")
}

func (c *NetworkController) mustSession(op string) *Session {
	if c.session == nil {
		panic(op + ": no open session")
	}
	return c.session
}

// ForwardRequestHop records that the request crossed u->v.
func (c *NetworkController) ForwardRequestHop(u, v topology.NodeID) {
	c.mustSession("ForwardRequestHop")
	if c.collector != nil {
		c.collector.Hop(u, v, HopRequest)
	}
}

// ForwardContentHop records that the content crossed u->v.
func (c *NetworkController) ForwardContentHop(u, v topology.NodeID) {
	c.mustSession("ForwardContentHop")
	if c.collector != nil {
		c.collector.Hop(u, v, HopContent)
	}
}

// GetContent looks the session's content up at node. At a cache it is a store Get (a hit
// updates policy state); at the content's source it always succeeds as a server hit.
// Any other node has nothing to serve.
func (c *NetworkController) GetContent(node topology.NodeID) bool {
	s := c.mustSession("GetContent")
	if store, ok := c.model.caches[node]; ok {
		hit := store.Get(s.Content)
		c.reportLookup(node, hit)
		return hit
	}
	if src, ok := c.model.facts.ContentSource[s.Content]; ok && src == node {
		if c.collector != nil {
			c.collector.ServerHit(node)
		}
		return true
	}
	return false
}

// HasContent reports whether node can serve the session's content. It has no side effect
// on stores or collectors.
func (c *NetworkController) HasContent(node topology.NodeID) bool {
	s := c.mustSession("HasContent")
	if store, ok := c.model.caches[node]; ok {
		return store.Has(s.Content)
	}
	src, ok := c.model.facts.ContentSource[s.Content]
	return ok && src == node
}

// PeekContent checks a cache for the session's content without touching policy state and
// reports the outcome to collectors as a hit or miss. Non-cache nodes report nothing.
func (c *NetworkController) PeekContent(node topology.NodeID) bool {
	s := c.mustSession("PeekContent")
	store, ok := c.model.caches[node]
	if !ok {
		return false
	}
	hit := store.Has(s.Content)
	c.reportLookup(node, hit)
	return hit
}

func (c *NetworkController) reportLookup(node topology.NodeID, hit bool) {
	if c.collector == nil {
		return
	}
	if hit {
		c.collector.CacheHit(node)
	} else {
		c.collector.CacheMiss(node)
	}
}

// PutContent stores the session's content at node. It returns the evicted content, if
// any. Putting at a node without a cache does nothing. Collectors only see insertions
// the store accepted.
func (c *NetworkController) PutContent(node topology.NodeID, meta cache.Meta) (topology.ContentID, bool) {
	s := c.mustSession("PutContent")
	store, ok := c.model.caches[node]
	if !ok {
		return 0, false
	}
	evicted, ok := store.Put(s.Content, meta)
	if c.collector != nil && store.Has(s.Content) {
		c.collector.Insert(node, evicted, ok)
	}
	return evicted, ok
}

// RemoveContent drops c from node's cache.
func (c *NetworkController) RemoveContent(node topology.NodeID, content topology.ContentID) bool {
	store, ok := c.model.caches[node]
	if !ok {
		return false
	}
	return store.Remove(content)
}

// EndSession closes the open session and flushes it to collectors.
func (c *NetworkController) EndSession() {
	c.mustSession("EndSession")
	if c.collector != nil {
		c.collector.EndSession()
	}
	c.session = nil
}

package topology

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Facts is the immutable per-experiment fact set consumed by the network model and the
// offline optimizer.
type Facts struct {
	Kind           Kind
	Nodes          []NodeID                      // declaration order
	Paths          map[NodeID]map[NodeID][]NodeID // Paths[a][b] = a, ..., b
	Weights        map[Link]float64               // symmetrized for undirected topologies
	CacheSize      map[NodeID]int                 // caching routers only, every value >= 1
	ContentSource  map[ContentID]NodeID
	SourceContents map[NodeID][]ContentID
}

// Facts validates the topology and derives its fact set. Cache capacities below 1 are
// clamped to 1. For undirected topologies the shortest paths are symmetric:
// Paths[a][b] is the reverse of Paths[b][a].
func (t *Topology) Facts() (*Facts, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	f := &Facts{
		Kind:           t.Kind,
		Nodes:          make([]NodeID, 0, len(t.Nodes)),
		Weights:        make(map[Link]float64, 2*len(t.Links)),
		CacheSize:      make(map[NodeID]int),
		ContentSource:  make(map[ContentID]NodeID),
		SourceContents: make(map[NodeID][]ContentID),
	}
	for _, n := range t.Nodes {
		f.Nodes = append(f.Nodes, n.ID)
		switch n.Stack {
		case StackRouter:
			if n.CacheSize == nil {
				continue
			}
			size := *n.CacheSize
			if size < 1 {
				logrus.Warnf("cache size %d on node %q clamped to 1", size, n.ID)
				size = 1
			}
			f.CacheSize[n.ID] = size
		case StackSource:
			f.SourceContents[n.ID] = append([]ContentID(nil), n.Contents...)
			for _, c := range n.Contents {
				f.ContentSource[c] = n.ID
			}
		}
	}
	for _, l := range t.Links {
		f.Weights[Link{l.From, l.To}] = l.Weight
		if t.Kind == KindUndirected {
			f.Weights[Link{l.To, l.From}] = l.Weight
		}
	}
	f.Paths = shortestPaths(t, f)
	return f, nil
}

// ShortestPath returns the path from a to b (both included), or nil when b is unreachable.
func (f *Facts) ShortestPath(a, b NodeID) []NodeID {
	return f.Paths[a][b]
}

// LinkWeight returns the weight of the directed hop u->v.
func (f *Facts) LinkWeight(u, v NodeID) (float64, bool) {
	w, ok := f.Weights[Link{u, v}]
	return w, ok
}

// CacheNodes returns the caching nodes sorted by ID.
func (f *Facts) CacheNodes() []NodeID {
	nodes := make([]NodeID, 0, len(f.CacheSize))
	for n := range f.CacheSize {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// PathLinks splits a path into its consecutive hops.
func PathLinks(p []NodeID) []Link {
	if len(p) < 2 {
		return nil
	}
	links := make([]Link, 0, len(p)-1)
	for i := 0; i+1 < len(p); i++ {
		links = append(links, Link{p[i], p[i+1]})
	}
	return links
}

// Reverse returns a reversed copy of p.
func Reverse(p []NodeID) []NodeID {
	out := make([]NodeID, len(p))
	for i, n := range p {
		out[len(p)-1-i] = n
	}
	return out
}

// weightedTraverser is satisfied by gonum's simple weighted graphs.
type weightedTraverser interface {
	traverse.Graph
	Weight(xid, yid int64) (w float64, ok bool)
}

// shortestPaths computes all-pairs shortest paths. Distances come from gonum's Dijkstra;
// the paths themselves are rebuilt from deterministic predecessor trees (lowest node index
// wins among equal-cost predecessors) so that equal-cost ties resolve identically on
// every run.
func shortestPaths(t *Topology, f *Facts) map[NodeID]map[NodeID][]NodeID {
	index := make(map[NodeID]int64, len(f.Nodes))
	for i, id := range f.Nodes {
		index[id] = int64(i)
	}

	// in[x] lists the nodes with a usable hop into x, ascending by index.
	in := make([][]int64, len(f.Nodes))
	var g weightedTraverser
	if t.Kind == KindDirected {
		dg := simple.NewWeightedDirectedGraph(0, math.Inf(1))
		for i := range f.Nodes {
			dg.AddNode(simple.Node(i))
		}
		for _, l := range t.Links {
			dg.SetWeightedEdge(dg.NewWeightedEdge(simple.Node(index[l.From]), simple.Node(index[l.To]), l.Weight))
		}
		g = dg
	} else {
		ug := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
		for i := range f.Nodes {
			ug.AddNode(simple.Node(i))
		}
		for _, l := range t.Links {
			ug.SetWeightedEdge(ug.NewWeightedEdge(simple.Node(index[l.From]), simple.Node(index[l.To]), l.Weight))
		}
		g = ug
	}
	for l := range f.Weights {
		in[index[l.V]] = append(in[index[l.V]], index[l.U])
	}
	for i := range in {
		sort.Slice(in[i], func(a, b int) bool { return in[i][a] < in[i][b] })
	}

	// from[root][x] = path root -> x built from the predecessor tree rooted at root.
	from := make([]map[int64][]NodeID, len(f.Nodes))
	for root := range f.Nodes {
		from[root] = predecessorPaths(int64(root), g, in, f.Nodes)
	}

	paths := make(map[NodeID]map[NodeID][]NodeID, len(f.Nodes))
	for _, a := range f.Nodes {
		paths[a] = make(map[NodeID][]NodeID, len(f.Nodes))
	}
	for ai, a := range f.Nodes {
		for bi, b := range f.Nodes {
			if t.Kind == KindDirected {
				if p, ok := from[ai][int64(bi)]; ok {
					paths[a][b] = p
				}
				continue
			}
			// Undirected: both directions come from the tree rooted at the preferred end,
			// so every path ending at a content source lies on that source's tree.
			root, other := ai, bi
			if !preferRoot(f, a, b) {
				root, other = bi, ai
			}
			p, ok := from[root][int64(other)]
			if !ok {
				continue
			}
			if root == ai {
				paths[a][b] = p
			} else {
				paths[a][b] = Reverse(p)
			}
		}
	}
	return paths
}

// preferRoot reports whether a should root the shared path between a and b:
// sources first, then the node declared first.
func preferRoot(f *Facts, a, b NodeID) bool {
	_, aSrc := f.SourceContents[a]
	_, bSrc := f.SourceContents[b]
	if aSrc != bSrc {
		return aSrc
	}
	for _, n := range f.Nodes {
		if n == a {
			return true
		}
		if n == b {
			return false
		}
	}
	return true
}

// predecessorPaths returns root -> x paths for every x reachable from root.
func predecessorPaths(root int64, g weightedTraverser, in [][]int64, ids []NodeID) map[int64][]NodeID {
	tree := path.DijkstraFrom(simple.Node(root), g)
	dist := make([]float64, len(ids))
	var pending []int64
	for i := range ids {
		dist[i] = tree.WeightTo(int64(i))
		if int64(i) != root && !math.IsInf(dist[i], 1) {
			pending = append(pending, int64(i))
		}
	}
	sort.SliceStable(pending, func(a, b int) bool {
		if dist[pending[a]] != dist[pending[b]] {
			return dist[pending[a]] < dist[pending[b]]
		}
		return pending[a] < pending[b]
	})

	pred := map[int64]int64{}
	done := map[int64]bool{root: true}
	for len(pending) > 0 {
		progressed := false
		for i, x := range pending {
			p, ok := tightPredecessor(x, g, in, dist, done)
			if !ok {
				continue
			}
			pred[x] = p
			done[x] = true
			pending = append(pending[:i], pending[i+1:]...)
			progressed = true
			break
		}
		if !progressed {
			break
		}
	}

	out := map[int64][]NodeID{root: {ids[root]}}
	for x := range pred {
		var rev []NodeID
		for cur := x; ; cur = pred[cur] {
			rev = append(rev, ids[cur])
			if cur == root {
				break
			}
		}
		out[x] = Reverse(rev)
	}
	return out
}

// tightPredecessor finds the lowest-index settled node y with dist[y] + w(y,x) == dist[x].
func tightPredecessor(x int64, g weightedTraverser, in [][]int64, dist []float64, done map[int64]bool) (int64, bool) {
	for _, y := range in[x] {
		if !done[y] {
			continue
		}
		w, ok := g.Weight(y, x)
		if !ok {
			continue
		}
		if math.Abs(dist[y]+w-dist[x]) <= 1e-9*math.Max(1, dist[x]) {
			return y, true
		}
	}
	return 0, false
}

// Describe renders a one-line summary for logs.
func (f *Facts) Describe() string {
	return fmt.Sprintf("%d nodes, %d caches, %d sources, %d contents",
		len(f.Nodes), len(f.CacheSize), len(f.SourceContents), len(f.ContentSource))
}

// SourcePath returns the path from node to the source of content c.
func (f *Facts) SourcePath(node NodeID, c ContentID) ([]NodeID, error) {
	src, ok := f.ContentSource[c]
	if !ok {
		return nil, fmt.Errorf("%w: content %d", ErrNoSource, c)
	}
	p := f.ShortestPath(node, src)
	if p == nil {
		return nil, fmt.Errorf("%w: %q to %q", ErrNoPath, node, src)
	}
	return p, nil
}

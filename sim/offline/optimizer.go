// Package offline computes a static cache placement with a global greedy search over
// marginal values (popularity reaching a cache times the distance it saves), without
// simulating individual requests.
package offline

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// pruneThreshold is the marginal value below which a candidate is dropped for good.
const pruneThreshold = 1e-6

// Input is everything the optimizer consumes. Facts must carry symmetric paths and link
// weights; Popularity maps receiver -> content -> request probability.
type Input struct {
	Facts      *topology.Facts
	Contents   []topology.ContentID
	Popularity map[topology.NodeID]map[topology.ContentID]float64
}

// Optimizer holds the state of one placement run. It is single-use and not safe for
// concurrent use.
type Optimizer struct {
	facts      *topology.Facts
	contents   []topology.ContentID
	popularity map[topology.NodeID]map[topology.ContentID]float64
	receivers  []topology.NodeID // sorted
	caches     []topology.NodeID // sorted
	paths      map[topology.NodeID]map[topology.ContentID][]topology.NodeID

	remaining map[topology.NodeID]int
	cachePop  map[topology.NodeID]map[topology.ContentID]float64
	dist      map[topology.NodeID]map[topology.ContentID]float64
	recDist   map[topology.NodeID]map[topology.ContentID]float64
	decided   map[topology.NodeID]map[topology.ContentID]bool
	pruned    map[topology.NodeID]map[topology.ContentID]bool

	iterations int
	objective  float64
	ran        bool
}

// New validates the input and computes the initial distances and popularity.
// Every (receiver, content) pair needs a reachable source.
func New(in Input) (*Optimizer, error) {
	if in.Facts == nil {
		return nil, fmt.Errorf("offline optimizer requires topology facts")
	}
	o := &Optimizer{
		facts:      in.Facts,
		contents:   append([]topology.ContentID(nil), in.Contents...),
		popularity: in.Popularity,
		caches:     in.Facts.CacheNodes(),
		paths:      make(map[topology.NodeID]map[topology.ContentID][]topology.NodeID),
		remaining:  make(map[topology.NodeID]int),
		cachePop:   make(map[topology.NodeID]map[topology.ContentID]float64),
		dist:       make(map[topology.NodeID]map[topology.ContentID]float64),
		recDist:    make(map[topology.NodeID]map[topology.ContentID]float64),
		decided:    make(map[topology.NodeID]map[topology.ContentID]bool),
		pruned:     make(map[topology.NodeID]map[topology.ContentID]bool),
	}
	for r := range in.Popularity {
		o.receivers = append(o.receivers, r)
	}
	sort.Slice(o.receivers, func(i, j int) bool { return o.receivers[i] < o.receivers[j] })

	for _, v := range o.caches {
		o.remaining[v] = in.Facts.CacheSize[v]
		o.cachePop[v] = make(map[topology.ContentID]float64)
		o.dist[v] = make(map[topology.ContentID]float64)
		o.decided[v] = make(map[topology.ContentID]bool)
		o.pruned[v] = make(map[topology.ContentID]bool)
	}
	for _, r := range o.receivers {
		o.recDist[r] = make(map[topology.ContentID]float64)
		o.paths[r] = make(map[topology.ContentID][]topology.NodeID, len(o.contents))
		for _, c := range o.contents {
			p, err := in.Facts.SourcePath(r, c)
			if err != nil {
				return nil, fmt.Errorf("receiver %q: %w", r, err)
			}
			o.paths[r][c] = p
		}
	}

	o.initDistance()
	o.initPopularity()
	return o, nil
}

func (o *Optimizer) isCache(v topology.NodeID) bool {
	_, ok := o.remaining[v]
	return ok
}

// weight returns the hop weight; Facts are validated so every path hop has one.
func (o *Optimizer) weight(u, v topology.NodeID) float64 {
	w, _ := o.facts.LinkWeight(u, v)
	return w
}

// initDistance walks every receiver's path backwards from the source. Each cache records
// the distance accumulated since the source or the last decided cache for the content.
func (o *Optimizer) initDistance() {
	for _, c := range o.contents {
		for _, r := range o.receivers {
			back := topology.Reverse(o.paths[r][c])
			weight := 0.0
			for _, l := range topology.PathLinks(back) {
				weight += o.weight(l.U, l.V)
				if !o.isCache(l.V) {
					continue
				}
				if _, set := o.dist[l.V][c]; !set {
					o.dist[l.V][c] = weight
				}
				if o.decided[l.V][c] {
					weight = 0
				}
			}
			o.recDist[r][c] = weight
		}
	}
}

// initPopularity credits each receiver's popularity to every cache on its path up to and
// including the first decided cache.
func (o *Optimizer) initPopularity() {
	for _, r := range o.receivers {
		for _, c := range o.contents {
			p := o.popularity[r][c]
			for _, l := range topology.PathLinks(o.paths[r][c]) {
				if !o.isCache(l.V) {
					continue
				}
				o.cachePop[l.V][c] += p
				if o.decided[l.V][c] {
					break
				}
			}
		}
	}
}

// Run executes the greedy search to completion and returns the objective: the expected
// weighted distance from receivers to their serving points. Lower is better.
// Subsequent calls return the cached objective.
func (o *Optimizer) Run() float64 {
	if o.ran {
		return o.objective
	}
	for {
		cache, content, best, ok := o.best()
		if !ok {
			break
		}
		o.decide(cache, content)
		o.iterations++
		logrus.Debugf("offline: placed content %d at %s (marginal %.6f)", content, cache, best)
	}
	o.objective = o.calResult()
	o.ran = true
	logrus.Debugf("offline: %d placements, objective %.6f", o.iterations, o.objective)
	return o.objective
}

// best scans the candidates in cache order then catalogue order and returns the strict
// maximum marginal value. Candidates below the prune threshold are dropped permanently.
func (o *Optimizer) best() (topology.NodeID, topology.ContentID, float64, bool) {
	var (
		bestCache   topology.NodeID
		bestContent topology.ContentID
		bestVal     = 0.0
		found       bool
	)
	for _, v := range o.caches {
		if o.remaining[v] <= 0 {
			continue
		}
		for _, c := range o.contents {
			if o.decided[v][c] || o.pruned[v][c] {
				continue
			}
			val := o.cachePop[v][c] * o.dist[v][c]
			if math.Abs(val) < pruneThreshold {
				o.pruned[v][c] = true
				continue
			}
			if val > bestVal {
				bestCache, bestContent, bestVal, found = v, c, val, true
			}
		}
	}
	return bestCache, bestContent, bestVal, found
}

// decide commits content c to cache and propagates the decision.
func (o *Optimizer) decide(cache topology.NodeID, c topology.ContentID) {
	o.decided[cache][c] = true
	o.remaining[cache]--

	// Upstream caches no longer see the receivers now served at cache.
	served := o.cachePop[cache][c]
	upstream, err := o.facts.SourcePath(cache, c)
	if err == nil {
		for _, l := range topology.PathLinks(upstream) {
			if !o.isCache(l.V) {
				continue
			}
			o.cachePop[l.V][c] -= served
			if o.decided[l.V][c] {
				break
			}
		}
	}

	// Receivers whose first decided cache is now this one get closer to their serving
	// point, and so do the caches between them and it.
	for _, r := range o.receivers {
		p := o.paths[r][c]
		at := firstDecided(p, c, o.decided)
		if at < 0 || p[at] != cache {
			continue
		}
		back := topology.Reverse(p[:at+1])
		weight := 0.0
		for _, l := range topology.PathLinks(back) {
			weight += o.weight(l.U, l.V)
			if o.isCache(l.V) {
				o.dist[l.V][c] = weight
			}
		}
		o.recDist[r][c] = weight
	}
}

// firstDecided returns the index of the first node of p (receiver excluded) holding a
// decision for c, or -1.
func firstDecided(p []topology.NodeID, c topology.ContentID, decided map[topology.NodeID]map[topology.ContentID]bool) int {
	for i := 1; i < len(p); i++ {
		if decided[p[i]][c] {
			return i
		}
	}
	return -1
}

func (o *Optimizer) calResult() float64 {
	res := 0.0
	for _, c := range o.contents {
		for _, r := range o.receivers {
			res += o.popularity[r][c] * o.recDist[r][c]
		}
	}
	return res
}

// Iterations returns the number of placements made by Run.
func (o *Optimizer) Iterations() int { return o.iterations }

// Placement returns the decided contents per cache, in catalogue order. Caches with no
// placement are omitted.
func (o *Optimizer) Placement() map[topology.NodeID][]topology.ContentID {
	out := make(map[topology.NodeID][]topology.ContentID)
	for _, v := range o.caches {
		for _, c := range o.contents {
			if o.decided[v][c] {
				out[v] = append(out[v], c)
			}
		}
	}
	return out
}

// Results runs the optimizer if needed and reports the objective as WEIGHT.MEAN.
func (o *Optimizer) Results() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"WEIGHT": {"MEAN": o.Run()},
	}
}

package sim

import (
	"math/rand"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/topology"
)

// qEstimator keeps, per content, an exponentially smoothed distance from the serving
// node, plus the content holding the largest estimate. The maximum is only ever raised:
// when its own estimate shrinks it is not recomputed, so q may exceed 1 until another
// content overtakes it.
type qEstimator struct {
	alpha  float64
	dist   map[topology.ContentID]float64
	maxKey topology.ContentID
	hasMax bool
}

func newQEstimator(alpha float64) *qEstimator {
	return &qEstimator{alpha: alpha, dist: make(map[topology.ContentID]float64)}
}

// q is the probe probability of k: its estimate relative to the largest one.
// 0 until the first observation.
func (e *qEstimator) q(k topology.ContentID) float64 {
	if !e.hasMax {
		return 0
	}
	top := e.dist[e.maxKey]
	if top == 0 {
		return 0
	}
	return e.dist[k] / top
}

func (e *qEstimator) update(k topology.ContentID, d float64) {
	e.dist[k] = (1-e.alpha)*e.dist[k] + e.alpha*d
	if !e.hasMax || e.dist[k] > e.dist[e.maxKey] {
		e.maxKey = k
		e.hasMax = true
	}
}

// qStrategy probes each cache with probability q. A probe is a real lookup (a hit
// updates policy state) and marks the node for insertion on the way back; a node that is
// not probed can still serve a copy it already holds. On the way back every cache
// updates its estimate with the distance travelled so far.
type qStrategy struct {
	onPath
	cfg QConfig
	rng *rand.Rand
	qs  map[topology.NodeID]*qEstimator
}

func newQStrategy(base onPath, cfg QConfig, rng *rand.Rand) *qStrategy {
	s := &qStrategy{onPath: base, cfg: cfg, rng: rng, qs: make(map[topology.NodeID]*qEstimator)}
	for _, v := range base.view.CacheNodes() {
		s.qs[v] = newQEstimator(cfg.Alpha)
	}
	return s
}

func (s *qStrategy) ProcessEvent(time float64, receiver topology.NodeID, content topology.ContentID, log bool) error {
	path, err := s.route(receiver, content)
	if err != nil {
		return err
	}
	probed := make(map[topology.NodeID]bool)
	s.ctrl.StartSession(time, receiver, content, log)
	serving := s.forward(path, func(v topology.NodeID) bool {
		// One draw per cache visited, probed or not.
		if s.rng.Float64() < s.qs[v].q(content) {
			probed[v] = true
			return s.ctrl.GetContent(v)
		}
		return s.ctrl.PeekContent(v)
	})
	s.deliver(serving, receiver, func(v topology.NodeID, weight float64) {
		s.qs[v].update(content, weight)
		if probed[v] {
			s.ctrl.PutContent(v, cache.Meta{Time: time, Weight: weight})
		}
	})
	s.ctrl.EndSession()
	return nil
}

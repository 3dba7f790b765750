package sim

import (
	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/topology"
)

// greedyStrategy looks the content up at every cache on the way and stores it at every
// cache on the way back, weighted by the distance already travelled.
type greedyStrategy struct {
	onPath
}

func (s *greedyStrategy) ProcessEvent(time float64, receiver topology.NodeID, content topology.ContentID, log bool) error {
	path, err := s.route(receiver, content)
	if err != nil {
		return err
	}
	s.ctrl.StartSession(time, receiver, content, log)
	serving := s.forward(path, s.ctrl.GetContent)
	s.deliver(serving, receiver, func(v topology.NodeID, weight float64) {
		s.ctrl.PutContent(v, cache.Meta{Time: time, Weight: weight})
	})
	s.ctrl.EndSession()
	return nil
}

// lceStrategy leaves a copy everywhere without a weight.
type lceStrategy struct {
	onPath
}

func (s *lceStrategy) ProcessEvent(time float64, receiver topology.NodeID, content topology.ContentID, log bool) error {
	path, err := s.route(receiver, content)
	if err != nil {
		return err
	}
	s.ctrl.StartSession(time, receiver, content, log)
	serving := s.forward(path, s.ctrl.GetContent)
	s.deliver(serving, receiver, func(v topology.NodeID, _ float64) {
		s.ctrl.PutContent(v, cache.Meta{Time: time})
	})
	s.ctrl.EndSession()
	return nil
}

// noCacheStrategy ignores caches in both directions.
type noCacheStrategy struct {
	onPath
}

func (s *noCacheStrategy) ProcessEvent(time float64, receiver topology.NodeID, content topology.ContentID, log bool) error {
	path, err := s.route(receiver, content)
	if err != nil {
		return err
	}
	s.ctrl.StartSession(time, receiver, content, log)
	serving := s.forward(path, func(topology.NodeID) bool { return false })
	s.deliver(serving, receiver, func(topology.NodeID, float64) {})
	s.ctrl.EndSession()
	return nil
}

package sim

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/internal/testutil"
	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/workload"
)

// newTestEngine builds an online engine over topo with a fixed strategy seed.
func newTestEngine(t *testing.T, topo *topology.Topology, policy cache.Policy, strategy StrategyConfig, collectors ...CollectorKind) *Engine {
	t.Helper()
	cfg := ExperimentConfig{CachePolicy: policy, Strategy: strategy, Collectors: collectors}
	e, err := NewEngine(testutil.MustFacts(t, topo), cfg, nil, rand.New(rand.NewSource(7)), nil)
	require.NoError(t, err)
	return e
}

// threeRequests is one warm-up request for content 1 at r followed by two measured ones.
func threeRequests() *workload.SliceStream {
	return workload.NewSliceStream([]workload.Event{
		{Time: 0, Receiver: "r", Content: 1, Log: false},
		{Time: 1, Receiver: "r", Content: 1, Log: true},
		{Time: 2, Receiver: "r", Content: 1, Log: true},
	})
}

// recorder is a Collector that logs every hook as a line of text.
type recorder struct {
	events []string
}

func (r *recorder) OnSessionStart(s Session) {
	r.events = append(r.events, fmt.Sprintf("start %s %d", s.Receiver, s.Content))
}
func (r *recorder) OnHop(u, v topology.NodeID, kind HopKind) {
	r.events = append(r.events, fmt.Sprintf("%s %s->%s", kind, u, v))
}
func (r *recorder) OnCacheHit(node topology.NodeID)  { r.events = append(r.events, "hit "+string(node)) }
func (r *recorder) OnCacheMiss(node topology.NodeID) { r.events = append(r.events, "miss "+string(node)) }
func (r *recorder) OnServerHit(node topology.NodeID) { r.events = append(r.events, "server "+string(node)) }
func (r *recorder) OnSessionEnd()                    { r.events = append(r.events, "end") }
func (r *recorder) OnInsert(node topology.NodeID, _ topology.ContentID, _ bool) {
	r.events = append(r.events, "insert "+string(node))
}
func (r *recorder) Results() Results { return Results{"RECORDER": {"EVENTS": float64(len(r.events))}} }

// newRecordedController returns a controller over topo (LRU stores) reporting to a recorder.
func newRecordedController(t *testing.T, topo *topology.Topology) (*NetworkView, *NetworkController, *recorder) {
	t.Helper()
	m, err := NewNetworkModel(testutil.MustFacts(t, topo), cache.PolicyLRU, nil)
	require.NoError(t, err)
	rec := &recorder{}
	ctrl := NewNetworkController(m)
	ctrl.AttachCollector(NewCollectorProxy(rec))
	return NewNetworkView(m), ctrl, rec
}

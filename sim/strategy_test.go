package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cache-sim/sim/cache"
	"github.com/inference-sim/cache-sim/sim/internal/testutil"
	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/workload"
)

func TestStrategyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StrategyConfig
		wantErr error
	}{
		{"Q default alpha", StrategyConfig{Name: StrategyQ}, nil},
		{"Q alpha 0.5", StrategyConfig{Name: StrategyQ, Params: map[string]float64{"alpha": 0.5}}, nil},
		{"Q alpha 0", StrategyConfig{Name: StrategyQ, Params: map[string]float64{"alpha": 0}}, ErrInvalidConfig},
		{"Q alpha above 1", StrategyConfig{Name: StrategyQ, Params: map[string]float64{"alpha": 1.5}}, ErrInvalidConfig},
		{"Q alpha NaN", StrategyConfig{Name: StrategyQ, Params: map[string]float64{"alpha": math.NaN()}}, ErrInvalidConfig},
		{"GRD takes no params", StrategyConfig{Name: StrategyGRD, Params: map[string]float64{"alpha": 1}}, ErrInvalidConfig},
		{"LCE", StrategyConfig{Name: StrategyLCE}, nil},
		{"NO_CACHE", StrategyConfig{Name: StrategyNoCache}, nil},
		{"unknown", StrategyConfig{Name: "PROB_CACHE"}, ErrUnknownStrategy},
		{"empty", StrategyConfig{}, ErrUnknownStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidStrategyNames_Sorted(t *testing.T) {
	assert.Equal(t, []string{"GRD", "LCE", "NO_CACHE", "Q"}, ValidStrategyNames())
	assert.True(t, IsValidStrategy("Q"))
	assert.False(t, IsValidStrategy("q"))
}

func TestQEstimator(t *testing.T) {
	e := newQEstimator(0.5)
	assert.Equal(t, 0.0, e.q(1), "no observation yet")

	e.update(1, 4)
	assert.Equal(t, 1.0, e.q(1))
	assert.Equal(t, 0.0, e.q(2))

	e.update(2, 2)
	assert.Equal(t, 0.5, e.q(2))

	// 2 overtakes 1 and becomes the reference
	e.update(2, 10)
	assert.Equal(t, 5.5, e.dist[2])
	assert.Equal(t, topology.ContentID(2), e.maxKey)
	assert.InDelta(t, 2.0/5.5, e.q(1), 1e-12)

	// The reference only moves up: shrinking 2 below 1 leaves it in place
	e.update(2, 0)
	e.update(2, 0)
	assert.Equal(t, topology.ContentID(2), e.maxKey)
	assert.Greater(t, e.q(1), 1.0)
}

func TestQ_ThreeRequestStream_OneMeasuredHit(t *testing.T) {
	// GIVEN r - a(1) - s with a Q strategy that has never seen content 1
	e := newTestEngine(t, testutil.SingleCache(1, 1), cache.PolicyLRU, StrategyConfig{Name: StrategyQ},
		CollectorHitRatio, CollectorTrace)

	// WHEN a warm-up request and two measured requests for content 1 arrive
	res, err := e.Run(threeRequests())
	require.NoError(t, err)

	// THEN t=0 only learns the distance, t=1 probes, misses and inserts, t=2 hits
	assert.Equal(t, 0.5, res["CACHE_HIT_RATIO"]["MEAN"])
	assert.Equal(t, 0.5, res["CACHE_HIT_RATIO"]["NODE_a"])

	tc := e.Collectors()[1].(*TraceCollector)
	sessions := tc.Trace().Sessions
	require.Len(t, sessions, 2)
	assert.Equal(t, 1.0, sessions[0].Time)
	assert.False(t, sessions[0].CacheHit)
	assert.Equal(t, "s", sessions[0].ServingNode)
	assert.Equal(t, []string{"a"}, sessions[0].Inserted)
	assert.Equal(t, 2.0, sessions[1].Time)
	assert.True(t, sessions[1].CacheHit)
	assert.Equal(t, "a", sessions[1].ServingNode)
	assert.Equal(t, 2, e.Measured())
	assert.Equal(t, 3, e.Processed())
}

func TestInsertEverywhereStrategies_ThreeRequestStream_TwoMeasuredHits(t *testing.T) {
	tests := []struct {
		strategy StrategyName
		policy   cache.Policy
	}{
		{StrategyGRD, cache.PolicyGRD},
		{StrategyGRD, cache.PolicyLRU},
		{StrategyLCE, cache.PolicyLRU},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy)+"/"+string(tt.policy), func(t *testing.T) {
			e := newTestEngine(t, testutil.SingleCache(1, 1), tt.policy, StrategyConfig{Name: tt.strategy}, CollectorHitRatio)

			res, err := e.Run(threeRequests())
			require.NoError(t, err)

			// The warm-up request fills the cache, so both measured requests hit
			assert.Equal(t, 1.0, res["CACHE_HIT_RATIO"]["MEAN"])
			assert.Equal(t, 1.0, res["CACHE_HIT_RATIO"]["NODE_a"])
		})
	}
}

func TestNoCache_NeverStores(t *testing.T) {
	e := newTestEngine(t, testutil.SingleCache(1, 1), cache.PolicyLRU, StrategyConfig{Name: StrategyNoCache}, CollectorHitRatio)
	res, err := e.Run(threeRequests())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res["CACHE_HIT_RATIO"]["MEAN"])
	assert.Empty(t, e.View().CacheDump("a"))
}

func TestQ_InsertsOnlyWhereProbed(t *testing.T) {
	// GIVEN r - a(1) - b(1) - s
	e := newTestEngine(t, testutil.Line(1, 1, 1), cache.PolicyLRU, StrategyConfig{Name: StrategyQ})
	view := e.View()

	// WHEN the first request for content 1 travels: both q values are 0
	_, err := e.Run(workload.NewSliceStream([]workload.Event{{Time: 0, Receiver: "r", Content: 1}}))
	require.NoError(t, err)

	// THEN nothing was probed and nothing stored
	assert.Empty(t, view.CacheDump("a"))
	assert.Empty(t, view.CacheDump("b"))

	// WHEN a second request arrives: both q values are 1
	_, err = e.Run(workload.NewSliceStream([]workload.Event{{Time: 1, Receiver: "r", Content: 1}}))
	require.NoError(t, err)

	// THEN both caches were probed and store the content
	assert.Equal(t, []topology.ContentID{1}, view.CacheDump("a"))
	assert.Equal(t, []topology.ContentID{1}, view.CacheDump("b"))
}

func TestGRD_EqualWeightNewcomerIsRejected(t *testing.T) {
	// GIVEN r - a(1) - b(1) - s with GRD stores
	e := newTestEngine(t, testutil.Line(1, 1, 1, 2), cache.PolicyGRD, StrategyConfig{Name: StrategyGRD})

	// WHEN content 1 is fetched, then content 2
	_, err := e.Run(workload.NewSliceStream([]workload.Event{
		{Time: 0, Receiver: "r", Content: 1},
		{Time: 1, Receiver: "r", Content: 2},
	}))
	require.NoError(t, err)

	// THEN content 2 arrives at each node with the same weight as 1 and is rejected
	assert.Equal(t, []topology.ContentID{1}, e.View().CacheDump("b"))
	assert.Equal(t, []topology.ContentID{1}, e.View().CacheDump("a"))
}

func TestStrategy_MissingSourceFailsBeforeSession(t *testing.T) {
	for _, name := range ValidStrategyNames() {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, testutil.SingleCache(1, 1), cache.PolicyLRU, StrategyConfig{Name: StrategyName(name)})
			_, err := e.Run(workload.NewSliceStream([]workload.Event{{Time: 0, Receiver: "r", Content: 9, Log: true}}))
			assert.True(t, errors.Is(err, ErrNoSource), "got %v", err)

			// The controller is left without an open session
			_, err = e.Run(workload.NewSliceStream([]workload.Event{{Time: 1, Receiver: "r", Content: 1, Log: true}}))
			assert.NoError(t, err)
		})
	}
}

func TestStrategy_UnreachableSource(t *testing.T) {
	topo := &topology.Topology{
		Kind: topology.KindUndirected,
		Nodes: []topology.Node{
			{ID: "r", Stack: topology.StackReceiver},
			{ID: "a", Stack: topology.StackRouter, CacheSize: testutil.Size(1)},
			{ID: "s", Stack: topology.StackSource, Contents: []topology.ContentID{1}},
		},
		Links: []topology.LinkSpec{{From: "a", To: "s", Weight: 1}},
	}
	e := newTestEngine(t, topo, cache.PolicyLRU, StrategyConfig{Name: StrategyGRD})
	_, err := e.Run(workload.NewSliceStream([]workload.Event{{Time: 0, Receiver: "r", Content: 1}}))
	assert.True(t, errors.Is(err, ErrNoPath), "got %v", err)
}

func TestNewStrategy_RejectsInvalidConfig(t *testing.T) {
	m, err := NewNetworkModel(testutil.MustFacts(t, testutil.SingleCache(1, 1)), cache.PolicyLRU, nil)
	require.NoError(t, err)
	_, err = NewStrategy(StrategyConfig{Name: "HASHROUTING"}, NewNetworkView(m), NewNetworkController(m), rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cache-sim/sim/topology"
)

func TestReplicate_MatchesSequentialRuns(t *testing.T) {
	// GIVEN three replications run two at a time
	cfg, topo := loadTestExperiment(t, "experiment_online.yaml")

	// WHEN they complete
	report, err := Replicate(context.Background(), cfg, topo)
	require.NoError(t, err)

	// THEN replication i equals a standalone run with seed+i
	require.Len(t, report.Runs, 3)
	for i, run := range report.Runs {
		assert.Equal(t, cfg.Seed+int64(i), run.Seed)
		single := cfg
		single.Seed = cfg.Seed + int64(i)
		want, err := RunExperiment(single, topo)
		require.NoError(t, err)
		assert.Equal(t, want.Results, run.Results, "replication %d", i)
	}

	// AND the summary covers every statistic over all three runs
	require.NotEmpty(t, report.Summary)
	for _, s := range report.Summary {
		assert.Equal(t, 3, s.N, "%s.%s", s.Metric, s.Stat)
		assert.GreaterOrEqual(t, s.CI95, 0.0)
	}
	assert.Equal(t, "CACHE_HIT_RATIO", report.Summary[0].Metric)
}

func TestReplicate_FirstErrorWins(t *testing.T) {
	cfg, _ := loadTestExperiment(t, "experiment_online.yaml")
	// r2 is cut off from everything
	topo := &topology.Topology{
		Kind: topology.KindUndirected,
		Nodes: []topology.Node{
			{ID: "r1", Stack: topology.StackReceiver},
			{ID: "r2", Stack: topology.StackReceiver},
			{ID: "a", Stack: topology.StackRouter},
			{ID: "s", Stack: topology.StackSource},
		},
		Links: []topology.LinkSpec{{From: "r1", To: "a", Weight: 1}, {From: "a", To: "s", Weight: 1}},
	}
	_, err := Replicate(context.Background(), cfg, topo)
	assert.True(t, errors.Is(err, ErrNoPath), "got %v", err)
}

func TestReplicate_CancelledContext(t *testing.T) {
	cfg, topo := loadTestExperiment(t, "experiment_online.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replicate(ctx, cfg, topo)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestReplicate_LabelsExternalMetrics(t *testing.T) {
	cfg, topo := loadTestExperiment(t, "experiment_online.yaml")
	cfg.Replications = 2
	cfg.Collectors = []CollectorKind{CollectorPrometheus}
	reg := prometheus.NewRegistry()

	_, err := Replicate(context.Background(), cfg, topo, WithRegisterer(reg))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var labels []string
	for _, mf := range families {
		if mf.GetName() != "cachesim_sessions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "replication" {
					labels = append(labels, lp.GetValue())
				}
			}
		}
	}
	assert.ElementsMatch(t, []string{"0", "1"}, labels)
}

func TestSummarize(t *testing.T) {
	runs := []*ExperimentResult{
		{Results: Results{"WEIGHT": {"MEAN": 1, "MEAN_SAVED": 5}}},
		{Results: Results{"WEIGHT": {"MEAN": 2, "MEAN_SAVED": 5}}},
		{Results: Results{"WEIGHT": {"MEAN": 3, "MEAN_SAVED": 5}}},
	}
	got := Summarize(runs)
	require.Len(t, got, 2)

	assert.Equal(t, "MEAN", got[0].Stat)
	assert.Equal(t, 2.0, got[0].Mean)
	assert.InDelta(t, 1.0, got[0].StdDev, 1e-12)
	// t(0.975, 2 dof) = 4.302653
	assert.InDelta(t, 4.302653/math.Sqrt(3), got[0].CI95, 1e-5)

	assert.Equal(t, "MEAN_SAVED", got[1].Stat)
	assert.Equal(t, 0.0, got[1].StdDev)
	assert.Equal(t, 0.0, got[1].CI95)
}

func TestSummarize_SingleRunHasNoSpread(t *testing.T) {
	got := Summarize([]*ExperimentResult{{Results: Results{"WEIGHT": {"MEAN": 4}}}})
	require.Len(t, got, 1)
	assert.Equal(t, MetricSummary{Metric: "WEIGHT", Stat: "MEAN", N: 1, Mean: 4}, got[0])
}

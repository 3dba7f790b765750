package sim

import (
	"context"
	"math"
	"runtime"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// MetricSummary aggregates one metric statistic across replications.
type MetricSummary struct {
	Metric string
	Stat   string
	N      int
	Mean   float64
	StdDev float64
	// CI95 is the half-width of the 95% Student-t confidence interval of the mean.
	CI95 float64
}

// ReplicationReport holds every replication's result, in replication order, and the
// per-statistic summary sorted by metric then statistic.
type ReplicationReport struct {
	Runs    []*ExperimentResult
	Summary []MetricSummary
}

// Replicate runs cfg.Replications independent experiments, replication i with seed
// cfg.Seed+i, at most cfg.Parallelism at a time. Each replication owns its model, RNG and
// topology copy. The first failure cancels the replications not yet started.
// PROMETHEUS metrics registered through WithRegisterer carry a "replication" label.
func Replicate(ctx context.Context, cfg ExperimentConfig, topo *topology.Topology, opts ...Option) (*ReplicationReport, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	limit := cfg.Parallelism
	if limit == 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	runs := make([]*ExperimentResult, cfg.Replications)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < cfg.Replications; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc := cfg
			rc.Seed = cfg.Seed + int64(i)
			var ropts []Option
			if o.registerer != nil {
				ropts = append(ropts, WithRegisterer(prometheus.WrapRegistererWith(
					prometheus.Labels{"replication": strconv.Itoa(i)}, o.registerer)))
			}
			res, err := RunExperiment(rc, topo, ropts...)
			if err != nil {
				return err
			}
			runs[i] = res
			logrus.Debugf("replication %d/%d done (seed %d)", i+1, cfg.Replications, rc.Seed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ReplicationReport{Runs: runs, Summary: Summarize(runs)}, nil
}

// Summarize computes mean, standard deviation and 95% confidence half-width of every
// metric statistic reported by the runs. With a single run the spread is 0.
func Summarize(runs []*ExperimentResult) []MetricSummary {
	values := make(map[[2]string][]float64)
	for _, r := range runs {
		for metric, stats := range r.Results {
			for name, v := range stats {
				key := [2]string{metric, name}
				values[key] = append(values[key], v)
			}
		}
	}
	keys := make([][2]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	out := make([]MetricSummary, 0, len(keys))
	for _, k := range keys {
		xs := values[k]
		s := MetricSummary{Metric: k[0], Stat: k[1], N: len(xs), Mean: stat.Mean(xs, nil)}
		if len(xs) > 1 {
			s.StdDev = stat.StdDev(xs, nil)
			t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(xs) - 1)}.Quantile(0.975)
			s.CI95 = t * s.StdDev / math.Sqrt(float64(len(xs)))
		}
		out = append(out, s)
	}
	return out
}

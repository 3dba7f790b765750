package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/inference-sim/cache-sim/sim/offline"
	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/trace"
	"github.com/inference-sim/cache-sim/sim/workload"
)

// progressInterval throttles the engine's progress log lines.
const progressInterval = 10 * time.Second

// Engine runs one online experiment: it feeds workload events, in order, to a strategy
// acting on a fresh network model. Not safe for concurrent use.
type Engine struct {
	model      *NetworkModel
	view       *NetworkView
	ctrl       *NetworkController
	strategy   Strategy
	proxy      *CollectorProxy
	collectors []Collector

	processed int
	measured  int
	lastTime  float64
	progress  rate.Sometimes
}

// NewEngine builds the network model, strategy and collectors described by cfg over facts.
// popularity is the oracle handed to PERFECT_LFU stores; rng drives strategy decisions.
// reg, when non-nil, also receives PROMETHEUS collector metrics.
func NewEngine(facts *topology.Facts, cfg ExperimentConfig, popularity func(topology.ContentID) float64, rng *rand.Rand, reg prometheus.Registerer) (*Engine, error) {
	model, err := NewNetworkModel(facts, cfg.CachePolicy, popularity)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		model:    model,
		view:     NewNetworkView(model),
		ctrl:     NewNetworkController(model),
		progress: rate.Sometimes{Interval: progressInterval},
	}
	for _, kind := range cfg.Collectors {
		c, err := NewCollector(kind, e.view, reg)
		if err != nil {
			return nil, err
		}
		e.collectors = append(e.collectors, c)
	}
	e.proxy = NewCollectorProxy(e.collectors...)
	e.ctrl.AttachCollector(e.proxy)
	e.strategy, err = NewStrategy(cfg.Strategy, e.view, e.ctrl, rng)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// View exposes the read-only network view, e.g. to dump cache contents after a run.
func (e *Engine) View() *NetworkView { return e.view }

// Collectors returns the attached collectors in configuration order.
func (e *Engine) Collectors() []Collector { return e.collectors }

// Processed returns the number of events dispatched so far, warm-up included.
func (e *Engine) Processed() int { return e.processed }

// Measured returns the number of dispatched events with the log flag set.
func (e *Engine) Measured() int { return e.measured }

// Run dispatches every event of s and returns the merged collector results.
// Event times must never decrease.
func (e *Engine) Run(s workload.Stream) (Results, error) {
	for {
		ev, ok := s.Next()
		if !ok {
			break
		}
		if e.processed > 0 && ev.Time < e.lastTime {
			return nil, fmt.Errorf("%w: event %d at t=%f after t=%f", ErrTimeReversal, e.processed, ev.Time, e.lastTime)
		}
		if err := e.strategy.ProcessEvent(ev.Time, ev.Receiver, ev.Content, ev.Log); err != nil {
			return nil, fmt.Errorf("event %d (t=%f receiver=%s content=%d): %w", e.processed, ev.Time, ev.Receiver, ev.Content, err)
		}
		e.lastTime = ev.Time
		e.processed++
		if ev.Log {
			e.measured++
		}
		e.progress.Do(func() {
			logrus.Infof("processed %d events (%d measured), t=%.3f", e.processed, e.measured, e.lastTime)
		})
	}
	return e.proxy.Results(), nil
}

// RunOffline runs the greedy placement optimizer over facts with the workload's
// per-receiver popularity. Only undirected topologies are supported.
func RunOffline(facts *topology.Facts, wl workload.Workload) (*offline.Optimizer, error) {
	if facts.Kind != topology.KindUndirected {
		return nil, fmt.Errorf("%w: offline placement needs an undirected topology, got %q", ErrUnsupportedTopology, facts.Kind)
	}
	opt, err := offline.New(offline.Input{
		Facts:      facts,
		Contents:   wl.Contents(),
		Popularity: wl.Popularity(),
	})
	if err != nil {
		return nil, err
	}
	opt.Run()
	return opt, nil
}

// Option customizes RunExperiment.
type Option func(*runOptions)

type runOptions struct {
	registerer prometheus.Registerer
}

// WithRegisterer also registers PROMETHEUS collector metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *runOptions) { o.registerer = reg }
}

// ExperimentResult is the outcome of one experiment.
type ExperimentResult struct {
	RunID   string
	Seed    int64
	Offline bool
	Results Results

	Processed int // online only
	Measured  int // online only

	// Placement holds the optimizer's decisions (offline only).
	Placement map[topology.NodeID][]topology.ContentID

	// Trace and Gatherer are set when the TRACE and PROMETHEUS collectors are attached.
	Trace    *trace.SimulationTrace
	Gatherer prometheus.Gatherer
}

// NewWorkload builds the workload of cfg over receivers, seeded exactly as RunExperiment
// seeds it, so an exported stream replays the requests of the experiment.
func NewWorkload(cfg ExperimentConfig, receivers []topology.NodeID) (workload.Workload, error) {
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	return workload.New(cfg.Workload, receivers, rng.ForSubsystem(SubsystemWorkload))
}

// RunExperiment validates cfg and runs it on a private copy of topo. Content and cache
// placement missing from the topology are filled in: contents uniformly over sources,
// and round(network_cache x catalogue) cache slots evenly over routers.
func RunExperiment(cfg ExperimentConfig, topo *topology.Topology, opts ...Option) (*ExperimentResult, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if topo == nil {
		return nil, fmt.Errorf("%w: no topology", ErrInvalidTopology)
	}
	res := &ExperimentResult{RunID: uuid.NewString(), Seed: cfg.Seed, Offline: cfg.Offline}
	log := logrus.WithField("run", res.RunID)

	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	t := topo.Clone()
	wl, err := NewWorkload(cfg, t.Receivers())
	if err != nil {
		return nil, err
	}
	if !t.HasContentPlacement() {
		if err := t.PlaceContentsUniform(wl.Contents(), rng.ForSubsystem(SubsystemPlacement)); err != nil {
			return nil, err
		}
	}
	if !t.HasCachePlacement() {
		budget := int(math.Round(cfg.NetworkCache * float64(len(wl.Contents()))))
		if err := t.PlaceCachesUniform(budget); err != nil {
			return nil, err
		}
	}
	facts, err := t.Facts()
	if err != nil {
		return nil, err
	}

	if cfg.Offline {
		log.Infof("starting offline placement: seed=%d %s", cfg.Seed, facts.Describe())
		opt, err := RunOffline(facts, wl)
		if err != nil {
			return nil, err
		}
		res.Results = Results(opt.Results())
		res.Placement = opt.Placement()
		log.Infof("offline placement done: %d placements, WEIGHT.MEAN=%.6f", opt.Iterations(), res.Results["WEIGHT"]["MEAN"])
		return res, nil
	}

	log.Infof("starting experiment: seed=%d strategy=%s policy=%s %s", cfg.Seed, cfg.Strategy.Name, cfg.CachePolicy, facts.Describe())
	engine, err := NewEngine(facts, cfg, wl.GlobalPopularity, rng.ForSubsystem(SubsystemStrategy), o.registerer)
	if err != nil {
		return nil, err
	}
	res.Results, err = engine.Run(wl)
	if err != nil {
		return nil, err
	}
	res.Processed = engine.Processed()
	res.Measured = engine.Measured()
	for _, c := range engine.Collectors() {
		switch c := c.(type) {
		case *TraceCollector:
			res.Trace = c.Trace()
		case *PrometheusCollector:
			res.Gatherer = c.Gatherer()
		}
	}
	log.Infof("experiment done: %d events (%d measured)", res.Processed, res.Measured)
	return res, nil
}

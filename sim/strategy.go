package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// Strategy processes one request end to end: it routes the request toward the content
// source, picks the serving node and decides where copies are stored on the way back.
type Strategy interface {
	ProcessEvent(time float64, receiver topology.NodeID, content topology.ContentID, log bool) error
}

// StrategyName selects an online strategy.
type StrategyName string

const (
	// StrategyQ probes caches with a per-node adaptive probability and stores copies only
	// where it probed.
	StrategyQ StrategyName = "Q"
	// StrategyGRD looks up every cache and stores copies everywhere, weighted by the
	// distance travelled so far.
	StrategyGRD StrategyName = "GRD"
	// StrategyLCE leaves a copy everywhere, leaving victim choice to the cache policy.
	StrategyLCE StrategyName = "LCE"
	// StrategyNoCache always fetches from the source and never stores copies.
	StrategyNoCache StrategyName = "NO_CACHE"
)

// validStrategyParams lists the recognized strategy names and the parameters each accepts.
var validStrategyParams = map[StrategyName]map[string]bool{
	StrategyQ:       {"alpha": true},
	StrategyGRD:     {},
	StrategyLCE:     {},
	StrategyNoCache: {},
}

// IsValidStrategy reports whether name is a recognized strategy.
func IsValidStrategy(name string) bool {
	_, ok := validStrategyParams[StrategyName(name)]
	return ok
}

// ValidStrategyNames lists the recognized strategy names, sorted.
func ValidStrategyNames() []string {
	names := make([]string, 0, len(validStrategyParams))
	for n := range validStrategyParams {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// StrategyConfig is a strategy name plus flat named parameters, as written in YAML:
//
//	strategy:
//	  name: Q
//	  alpha: 0.5
type StrategyConfig struct {
	Name   StrategyName       `yaml:"name"`
	Params map[string]float64 `yaml:",inline"`
}

// QConfig holds the validated parameters of the Q strategy.
type QConfig struct {
	// Alpha is the smoothing factor of the per-node distance estimates, in (0, 1].
	// 1 keeps only the latest observation.
	Alpha float64
}

// DefaultQAlpha is used when alpha is not configured.
const DefaultQAlpha = 1.0

// Validate checks the strategy name and every parameter.
func (c StrategyConfig) Validate() error {
	allowed, ok := validStrategyParams[c.Name]
	if !ok {
		return fmt.Errorf("%w %q; valid: %v", ErrUnknownStrategy, c.Name, ValidStrategyNames())
	}
	for name, v := range c.Params {
		if !allowed[name] {
			return fmt.Errorf("%w: strategy %s has no parameter %q", ErrInvalidConfig, c.Name, name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: strategy %s parameter %s must be finite, got %f", ErrInvalidConfig, c.Name, name, v)
		}
	}
	if c.Name == StrategyQ {
		if _, err := c.qConfig(); err != nil {
			return err
		}
	}
	return nil
}

func (c StrategyConfig) qConfig() (QConfig, error) {
	q := QConfig{Alpha: DefaultQAlpha}
	if a, ok := c.Params["alpha"]; ok {
		q.Alpha = a
	}
	if q.Alpha <= 0 || q.Alpha > 1 {
		return QConfig{}, fmt.Errorf("%w: Q alpha must be in (0, 1], got %f", ErrInvalidConfig, q.Alpha)
	}
	return q, nil
}

// NewStrategy validates cfg and builds the strategy. rng drives every random decision
// of the strategy and must not be shared with another experiment.
func NewStrategy(cfg StrategyConfig, view *NetworkView, ctrl *NetworkController, rng *rand.Rand) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := onPath{view: view, ctrl: ctrl}
	switch cfg.Name {
	case StrategyQ:
		q, _ := cfg.qConfig()
		return newQStrategy(base, q, rng), nil
	case StrategyGRD:
		return &greedyStrategy{onPath: base}, nil
	case StrategyLCE:
		return &lceStrategy{onPath: base}, nil
	default:
		return &noCacheStrategy{onPath: base}, nil
	}
}

// onPath is the request/response skeleton shared by every strategy.
type onPath struct {
	view *NetworkView
	ctrl *NetworkController
}

// route resolves the request path, receiver first.
func (s *onPath) route(receiver topology.NodeID, content topology.ContentID) ([]topology.NodeID, error) {
	src, ok := s.view.ContentSource(content)
	if !ok {
		return nil, fmt.Errorf("%w: content %d", ErrNoSource, content)
	}
	path := s.view.ShortestPath(receiver, src)
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: %q to %q", ErrNoPath, receiver, src)
	}
	return path, nil
}

// forward walks the request along path, calling probe at each cache. The first cache
// whose probe reports a hit serves; otherwise the content is fetched from the source at
// the end of the path.
func (s *onPath) forward(path []topology.NodeID, probe func(v topology.NodeID) bool) topology.NodeID {
	hit := false
	var serving topology.NodeID
	for _, l := range topology.PathLinks(path) {
		s.ctrl.ForwardRequestHop(l.U, l.V)
		if s.view.HasCache(l.V) && probe(l.V) {
			serving = l.V
			hit = true
			break
		}
	}
	if !hit {
		serving = path[len(path)-1]
		s.ctrl.GetContent(serving)
	}
	return serving
}

// deliver walks the content from serving back to receiver, calling store at each cache
// with the link weight travelled so far.
func (s *onPath) deliver(serving, receiver topology.NodeID, store func(v topology.NodeID, weight float64)) {
	back := topology.Reverse(s.view.ShortestPath(receiver, serving))
	weight := 0.0
	for _, l := range topology.PathLinks(back) {
		s.ctrl.ForwardContentHop(l.U, l.V)
		w, _ := s.view.LinkWeight(l.U, l.V)
		weight += w
		if s.view.HasCache(l.V) {
			store(l.V, weight)
		}
	}
}

package topology

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// HasContentPlacement reports whether any source declares contents.
func (t *Topology) HasContentPlacement() bool {
	for _, n := range t.Nodes {
		if len(n.Contents) > 0 {
			return true
		}
	}
	return false
}

// HasCachePlacement reports whether any router declares a cache size.
func (t *Topology) HasCachePlacement() bool {
	for _, n := range t.Nodes {
		if n.CacheSize != nil {
			return true
		}
	}
	return false
}

// PlaceContentsUniform assigns each content of the catalogue to a source picked uniformly
// at random. Existing content annotations are replaced.
func (t *Topology) PlaceContentsUniform(contents []ContentID, rng *rand.Rand) error {
	var sources []int
	for i := range t.Nodes {
		if t.Nodes[i].Stack == StackSource {
			sources = append(sources, i)
			t.Nodes[i].Contents = nil
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w: no source node to place contents on", ErrInvalidTopology)
	}
	for _, c := range contents {
		idx := sources[rng.Intn(len(sources))]
		t.Nodes[idx].Contents = append(t.Nodes[idx].Contents, c)
	}
	return nil
}

// PlaceCachesUniform splits a total cache budget evenly across all routers.
// Each router ends up with round(budget / routers) slots; the network model clamps
// that to at least 1.
func (t *Topology) PlaceCachesUniform(budget int) error {
	var routers []int
	for i := range t.Nodes {
		if t.Nodes[i].Stack == StackRouter {
			routers = append(routers, i)
		}
	}
	if len(routers) == 0 {
		return fmt.Errorf("%w: no router node to place caches on", ErrInvalidTopology)
	}
	size := int(math.Round(float64(budget) / float64(len(routers))))
	if size < 1 {
		logrus.Warnf("cache budget %d spread over %d routers rounds to %d slots per router", budget, len(routers), size)
	}
	for _, i := range routers {
		s := size
		t.Nodes[i].CacheSize = &s
	}
	return nil
}

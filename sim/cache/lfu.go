package cache

// PerfectLFU evicts the key with the lowest ground-truth popularity. Frequencies are not
// counted from traffic: they come from an oracle over the global request distribution.
// Ties are evicted oldest insertion first.
type PerfectLFU[K comparable] struct {
	rankedSet[K]
	popularity func(K) float64
}

// NewPerfectLFU creates an empty perfect-knowledge LFU store.
func NewPerfectLFU[K comparable](capacity int, popularity func(K) float64) *PerfectLFU[K] {
	return &PerfectLFU[K]{rankedSet: newRankedSet[K](capacity), popularity: popularity}
}

func (c *PerfectLFU[K]) Has(k K) bool { return c.has(k) }

// Get has no side effect beyond reporting the hit: the oracle frequency never changes.
func (c *PerfectLFU[K]) Get(k K) bool { return c.has(k) }

// Put inserts k and, when full, evicts the least popular key. A newcomer strictly less
// popular than every stored key is not admitted and nothing is evicted.
func (c *PerfectLFU[K]) Put(k K, _ Meta) (evicted K, ok bool) {
	pop := c.popularity(k)
	if e, present := c.index[k]; present {
		c.refresh(e, pop)
		return evicted, false
	}
	if len(c.heap) < c.capacity {
		c.push(k, pop)
		return evicted, false
	}
	if victim, _ := c.min(); pop < victim.rank {
		return evicted, false
	}
	evicted = c.popMin()
	c.push(k, pop)
	return evicted, true
}

func (c *PerfectLFU[K]) Remove(k K) bool { return c.remove(k) }
func (c *PerfectLFU[K]) Len() int        { return len(c.heap) }
func (c *PerfectLFU[K]) Capacity() int   { return c.capacity }
func (c *PerfectLFU[K]) Keys() []K       { return c.keys() }
func (c *PerfectLFU[K]) Clear()          { c.clear() }

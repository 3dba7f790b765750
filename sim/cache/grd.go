package cache

// GRD is the weighted greedy store: every key carries the weight supplied at insertion
// (typically the path cost saved by keeping it) and the minimum-weight key is the victim.
// A full store rejects a new key whose weight does not beat the current minimum.
type GRD[K comparable] struct {
	rankedSet[K]
}

// NewGRD creates an empty weighted greedy store.
func NewGRD[K comparable](capacity int) *GRD[K] {
	return &GRD[K]{rankedSet: newRankedSet[K](capacity)}
}

func (c *GRD[K]) Has(k K) bool { return c.has(k) }

// Get never changes a key's weight.
func (c *GRD[K]) Get(k K) bool { return c.has(k) }

// Put inserts k with meta.Weight. Re-inserting a present key replaces its weight.
func (c *GRD[K]) Put(k K, meta Meta) (evicted K, ok bool) {
	if e, present := c.index[k]; present {
		c.refresh(e, meta.Weight)
		return evicted, false
	}
	if len(c.heap) < c.capacity {
		c.push(k, meta.Weight)
		return evicted, false
	}
	if victim, _ := c.min(); meta.Weight <= victim.rank {
		return evicted, false
	}
	evicted = c.popMin()
	c.push(k, meta.Weight)
	return evicted, true
}

// Weight returns the stored weight of k.
func (c *GRD[K]) Weight(k K) (float64, bool) {
	e, ok := c.index[k]
	if !ok {
		return 0, false
	}
	return e.rank, true
}

func (c *GRD[K]) Remove(k K) bool { return c.remove(k) }
func (c *GRD[K]) Len() int        { return len(c.heap) }
func (c *GRD[K]) Capacity() int   { return c.capacity }
func (c *GRD[K]) Keys() []K       { return c.keys() }
func (c *GRD[K]) Clear()          { c.clear() }

package cache

import "container/list"

// LRU evicts the least recently used key. The list front is the most recent entry.
type LRU[K comparable] struct {
	capacity int
	order    *list.List
	index    map[K]*list.Element
}

// NewLRU creates an empty LRU store.
func NewLRU[K comparable](capacity int) *LRU[K] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K]{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[K]*list.Element, capacity),
	}
}

func (c *LRU[K]) Has(k K) bool {
	_, ok := c.index[k]
	return ok
}

// Get moves a hit to the most recent position.
func (c *LRU[K]) Get(k K) bool {
	e, ok := c.index[k]
	if !ok {
		return false
	}
	c.order.MoveToFront(e)
	return true
}

func (c *LRU[K]) Put(k K, _ Meta) (evicted K, ok bool) {
	if e, present := c.index[k]; present {
		c.order.MoveToFront(e)
		return evicted, false
	}
	c.index[k] = c.order.PushFront(k)
	if c.order.Len() <= c.capacity {
		return evicted, false
	}
	tail := c.order.Back()
	evicted = c.order.Remove(tail).(K)
	delete(c.index, evicted)
	return evicted, true
}

func (c *LRU[K]) Remove(k K) bool {
	e, ok := c.index[k]
	if !ok {
		return false
	}
	c.order.Remove(e)
	delete(c.index, k)
	return true
}

func (c *LRU[K]) Len() int      { return c.order.Len() }
func (c *LRU[K]) Capacity() int { return c.capacity }

// Keys returns keys from least to most recently used.
func (c *LRU[K]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for e := c.order.Back(); e != nil; e = e.Prev() {
		keys = append(keys, e.Value.(K))
	}
	return keys
}

func (c *LRU[K]) Clear() {
	c.order.Init()
	c.index = make(map[K]*list.Element, c.capacity)
}

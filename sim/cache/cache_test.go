package cache

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zipfish ranks lower keys as more popular.
func zipfish(k int) float64 { return 1.0 / float64(k) }

func allStores(capacity int) map[Policy]Store[int] {
	stores := make(map[Policy]Store[int])
	for _, p := range []Policy{PolicyLRU, PolicyPerfectLFU, PolicyGRD} {
		s, err := New[int](p, capacity, zipfish)
		if err != nil {
			panic(err)
		}
		stores[p] = s
	}
	return stores
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"LRU", "PERFECT_LFU", "GRD"} {
		p, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, Policy(name), p)
	}
	_, err := ParsePolicy("FIFO")
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}

func TestNew_ClampsCapacityAndRequiresOracle(t *testing.T) {
	s, err := New[int](PolicyLRU, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Capacity())

	_, err = New[int](PolicyPerfectLFU, 3, nil)
	assert.Error(t, err)

	_, err = New[int]("ARC", 3, nil)
	assert.True(t, errors.Is(err, ErrUnknownPolicy))
}

func TestStores_OccupancyNeverExceedsCapacity(t *testing.T) {
	for p, s := range allStores(3) {
		t.Run(string(p), func(t *testing.T) {
			for k := 1; k <= 50; k++ {
				s.Put(k, Meta{Weight: float64(k % 7)})
				s.Get(k % 5)
				assert.LessOrEqual(t, s.Len(), s.Capacity())
			}
		})
	}
}

func TestStores_HasIsPure(t *testing.T) {
	for p, s := range allStores(2) {
		t.Run(string(p), func(t *testing.T) {
			s.Put(1, Meta{Weight: 5})
			s.Put(2, Meta{Weight: 6})
			before := s.Keys()
			for i := 0; i < 3; i++ {
				assert.True(t, s.Has(1))
				assert.False(t, s.Has(3))
			}
			assert.Equal(t, before, s.Keys())
		})
	}
}

func TestStores_RepeatedMissIsIdempotent(t *testing.T) {
	for p, s := range allStores(2) {
		t.Run(string(p), func(t *testing.T) {
			s.Put(1, Meta{Weight: 1})
			before := s.Keys()
			assert.False(t, s.Get(9))
			assert.False(t, s.Get(9))
			assert.Equal(t, before, s.Keys())
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestStores_ReinsertKeepsOccupancy(t *testing.T) {
	for p, s := range allStores(2) {
		t.Run(string(p), func(t *testing.T) {
			s.Put(1, Meta{Weight: 3})
			s.Put(2, Meta{Weight: 4})
			_, evicted := s.Put(1, Meta{Weight: 8})
			assert.False(t, evicted)
			assert.Equal(t, 2, s.Len())
		})
	}
}

func TestStores_NeverEvictTheIncomingKey(t *testing.T) {
	for p, s := range allStores(2) {
		t.Run(string(p), func(t *testing.T) {
			s.Put(1, Meta{Weight: 9})
			s.Put(2, Meta{Weight: 8})
			// 50 is the least popular key and carries the lowest weight
			evicted, ok := s.Put(50, Meta{Weight: 0})
			if ok {
				assert.NotEqual(t, 50, evicted)
				assert.True(t, s.Has(50))
			} else {
				assert.False(t, s.Has(50))
			}
			assert.LessOrEqual(t, s.Len(), s.Capacity())
		})
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	// GIVEN a full LRU holding 1, 2, 3 (1 is the oldest)
	c := NewLRU[int](3)
	for k := 1; k <= 3; k++ {
		c.Put(k, Meta{})
	}

	// WHEN a fourth key arrives
	evicted, ok := c.Put(4, Meta{})

	// THEN the least recently touched key leaves
	require.True(t, ok)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []int{2, 3, 4}, c.Keys())
}

func TestLRU_GetChangesVictim(t *testing.T) {
	c := NewLRU[int](3)
	for k := 1; k <= 3; k++ {
		c.Put(k, Meta{})
	}
	// Touching 1 makes 2 the least recently used
	assert.True(t, c.Get(1))

	evicted, ok := c.Put(4, Meta{})
	require.True(t, ok)
	assert.Equal(t, 2, evicted)
	assert.True(t, c.Has(1))
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c := NewLRU[string](2)
	c.Put("a", Meta{})
	c.Put("b", Meta{})
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, []string{"b"}, c.Keys())
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("b"))
}

func TestPerfectLFU_EvictsLeastPopular(t *testing.T) {
	c := NewPerfectLFU[int](2, zipfish)
	c.Put(3, Meta{})
	c.Put(1, Meta{})

	// 2 is more popular than 3, so 3 goes
	evicted, ok := c.Put(2, Meta{})
	require.True(t, ok)
	assert.Equal(t, 3, evicted)
	assert.Equal(t, []int{2, 1}, c.Keys())

	// An unpopular newcomer is refused and nothing is evicted
	_, ok = c.Put(10, Meta{})
	assert.False(t, ok)
	assert.False(t, c.Has(10))
	assert.Equal(t, []int{2, 1}, c.Keys())
}

func TestPerfectLFU_TiesEvictOldestFirst(t *testing.T) {
	flat := func(int) float64 { return 1 }
	c := NewPerfectLFU[int](2, flat)
	c.Put(7, Meta{})
	c.Put(8, Meta{})
	// Hits do not change the order under an oracle
	c.Get(7)
	evicted, ok := c.Put(9, Meta{})
	require.True(t, ok)
	assert.Equal(t, 7, evicted)
}

func TestGRD_EvictsMinimumWeight(t *testing.T) {
	c := NewGRD[int](2)
	c.Put(1, Meta{Weight: 5})
	c.Put(2, Meta{Weight: 3})

	evicted, ok := c.Put(3, Meta{Weight: 4})
	require.True(t, ok)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, []int{3, 1}, c.Keys())
}

func TestGRD_RejectsWeightNotAboveMinimum(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
	}{
		{"below minimum", 1},
		{"equal to minimum", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a full GRD store with minimum weight 3
			c := NewGRD[int](2)
			c.Put(1, Meta{Weight: 5})
			c.Put(2, Meta{Weight: 3})
			before := c.Keys()

			// WHEN a key with a weight that does not beat the minimum arrives
			_, ok := c.Put(3, Meta{Weight: tt.weight})

			// THEN nothing is evicted and the store is unchanged
			assert.False(t, ok)
			assert.Equal(t, before, c.Keys())
			assert.False(t, c.Has(3))
		})
	}
}

func TestGRD_GetKeepsWeightAndReinsertUpdatesIt(t *testing.T) {
	c := NewGRD[int](2)
	c.Put(1, Meta{Weight: 2})
	c.Get(1)
	w, ok := c.Weight(1)
	require.True(t, ok)
	assert.Equal(t, 2.0, w)

	c.Put(1, Meta{Weight: 9})
	w, _ = c.Weight(1)
	assert.Equal(t, 9.0, w)
}

func TestGRD_RemoveKeepsHeapConsistent(t *testing.T) {
	c := NewGRD[int](4)
	for k := 1; k <= 4; k++ {
		c.Put(k, Meta{Weight: float64(10 - k)})
	}
	assert.True(t, c.Remove(3))
	assert.Equal(t, []int{4, 2, 1}, c.Keys())
	evicted, ok := c.Put(5, Meta{Weight: 100})
	assert.False(t, ok, "store had room after removal, got eviction of %v", evicted)
}

func ExampleGRD() {
	c := NewGRD[string](1)
	c.Put("near", Meta{Weight: 1})
	c.Put("nearer", Meta{Weight: 0.5})
	evicted, _ := c.Put("far", Meta{Weight: 10})
	fmt.Println(c.Has("nearer"), evicted, c.Keys())
	// Output: false near [far]
}

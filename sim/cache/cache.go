// Package cache implements the capacity-bounded content stores that sit on caching nodes,
// one per replacement policy. Stores know nothing about the topology.
//
// All stores share one contract:
//   - Has is a pure membership query.
//   - Get is a lookup whose hit updates policy state (recency for LRU); a miss changes nothing.
//   - Put inserts, evicting per policy at capacity. Re-inserting a present key refreshes its
//     policy state without changing occupancy.
//
// Stores are not safe for concurrent use; each experiment owns its stores exclusively.
package cache

import (
	"errors"
	"fmt"
)

// Meta is the per-insertion metadata supplied by strategies.
type Meta struct {
	Time   float64 // simulation time of the insertion
	Weight float64 // caller-assigned weight, used by GRD
}

// Store is a bounded key store with a replacement policy.
type Store[K comparable] interface {
	Has(k K) bool
	Get(k K) bool
	// Put inserts k. ok reports whether a stored key was evicted (evicted is then valid
	// and never k). A store may refuse k outright: ok is false and Has(k) stays false.
	Put(k K, meta Meta) (evicted K, ok bool)
	Remove(k K) bool
	Len() int
	Capacity() int
	// Keys lists the stored keys in eviction order: the next victim first.
	Keys() []K
	Clear()
}

// Policy names a replacement policy.
type Policy string

const (
	PolicyLRU        Policy = "LRU"
	PolicyPerfectLFU Policy = "PERFECT_LFU"
	PolicyGRD        Policy = "GRD"
)

// ErrUnknownPolicy reports an unrecognized replacement policy name.
var ErrUnknownPolicy = errors.New("unknown cache policy")

// validPolicies is the set of recognized policy names.
var validPolicies = map[Policy]bool{PolicyLRU: true, PolicyPerfectLFU: true, PolicyGRD: true}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	p := Policy(name)
	if !validPolicies[p] {
		return "", fmt.Errorf("%w %q; valid: LRU, PERFECT_LFU, GRD", ErrUnknownPolicy, name)
	}
	return p, nil
}

// New creates a store for the given policy. Capacities below 1 are clamped to 1.
// popularity is the ground-truth oracle PERFECT_LFU ranks keys by; other policies ignore it.
func New[K comparable](p Policy, capacity int, popularity func(K) float64) (Store[K], error) {
	if capacity < 1 {
		capacity = 1
	}
	switch p {
	case PolicyLRU:
		return NewLRU[K](capacity), nil
	case PolicyPerfectLFU:
		if popularity == nil {
			return nil, fmt.Errorf("%s requires a popularity oracle", PolicyPerfectLFU)
		}
		return NewPerfectLFU[K](capacity, popularity), nil
	case PolicyGRD:
		return NewGRD[K](capacity), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, p)
	}
}

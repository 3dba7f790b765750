// Package testutil provides shared test infrastructure for the cache simulator:
// small reference topologies, testdata lookup and assertion helpers used across
// sim/ and its sub-packages.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/inference-sim/cache-sim/sim/topology"
)

// Size returns a pointer to a cache size, for topology literals.
func Size(n int) *int { return &n }

// SingleCache is receiver r - cache a - source s with unit weights. s holds contents.
func SingleCache(capacity int, contents ...topology.ContentID) *topology.Topology {
	return &topology.Topology{
		Kind: topology.KindUndirected,
		Nodes: []topology.Node{
			{ID: "r", Stack: topology.StackReceiver},
			{ID: "a", Stack: topology.StackRouter, CacheSize: Size(capacity)},
			{ID: "s", Stack: topology.StackSource, Contents: contents},
		},
		Links: []topology.LinkSpec{
			{From: "r", To: "a", Weight: 1},
			{From: "a", To: "s", Weight: 1},
		},
	}
}

// Line is r - a - b - s with unit weights. A capacity of 0 leaves that router uncached.
func Line(capA, capB int, contents ...topology.ContentID) *topology.Topology {
	t := &topology.Topology{
		Kind: topology.KindUndirected,
		Nodes: []topology.Node{
			{ID: "r", Stack: topology.StackReceiver},
			{ID: "a", Stack: topology.StackRouter},
			{ID: "b", Stack: topology.StackRouter},
			{ID: "s", Stack: topology.StackSource, Contents: contents},
		},
		Links: []topology.LinkSpec{
			{From: "r", To: "a", Weight: 1},
			{From: "a", To: "b", Weight: 1},
			{From: "b", To: "s", Weight: 1},
		},
	}
	if capA > 0 {
		t.Nodes[1].CacheSize = Size(capA)
	}
	if capB > 0 {
		t.Nodes[2].CacheSize = Size(capB)
	}
	return t
}

// Star hangs two edge caches (a, b), each serving one receiver (r1, r2), off a core
// cache h next to source s. Edge links weigh 1, core links weigh 2.
func Star(capH, capA, capB int, contents ...topology.ContentID) *topology.Topology {
	t := &topology.Topology{
		Kind: topology.KindUndirected,
		Nodes: []topology.Node{
			{ID: "r1", Stack: topology.StackReceiver},
			{ID: "r2", Stack: topology.StackReceiver},
			{ID: "a", Stack: topology.StackRouter},
			{ID: "b", Stack: topology.StackRouter},
			{ID: "h", Stack: topology.StackRouter},
			{ID: "s", Stack: topology.StackSource, Contents: contents},
		},
		Links: []topology.LinkSpec{
			{From: "r1", To: "a", Weight: 1},
			{From: "r2", To: "b", Weight: 1},
			{From: "a", To: "h", Weight: 2},
			{From: "b", To: "h", Weight: 2},
			{From: "h", To: "s", Weight: 2},
		},
	}
	for i, c := range []int{capA, capB, capH} {
		if c > 0 {
			t.Nodes[2+i].CacheSize = Size(c)
		}
	}
	return t
}

// MustFacts derives the fact set of t, failing the test on error.
func MustFacts(tb testing.TB, t *topology.Topology) *topology.Facts {
	tb.Helper()
	f, err := t.Facts()
	if err != nil {
		tb.Fatalf("topology facts: %v", err)
	}
	return f
}

// TestdataPath resolves a file under the repository's testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func TestdataPath(tb testing.TB, name string) string {
	tb.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		tb.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

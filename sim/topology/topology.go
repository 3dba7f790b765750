// Package topology describes the network a cache experiment runs on: nodes annotated with
// their role (receiver, caching router, content source), weighted links, and the static
// facts derived from them (shortest paths, symmetric link weights, cache capacities,
// content placement).
package topology

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeID identifies a node of the topology.
type NodeID string

// ContentID identifies a content item of the catalogue. Catalogues are numbered from 1.
type ContentID int

// Stack is the role a node plays in the experiment.
type Stack string

const (
	StackReceiver Stack = "receiver"
	StackRouter   Stack = "router"
	StackSource   Stack = "source"
)

// Kind selects how links are interpreted.
type Kind string

const (
	// KindUndirected links are usable in both directions with the same weight.
	KindUndirected Kind = "undirected"
	// KindDirected links are usable only from From to To.
	KindDirected Kind = "directed"
)

var (
	// ErrInvalidTopology reports a malformed topology description.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrUnsupportedTopology reports a topology representation the simulator cannot use.
	ErrUnsupportedTopology = errors.New("unsupported topology type")
	// ErrNoSource reports a requested content that no source node holds.
	ErrNoSource = errors.New("content has no source")
	// ErrNoPath reports a node pair with no route between them.
	ErrNoPath = errors.New("no path between nodes")
)

var validStacks = map[Stack]bool{StackReceiver: true, StackRouter: true, StackSource: true}

// Node is a topology node with its stack annotations.
type Node struct {
	ID        NodeID      `yaml:"id"`
	Stack     Stack       `yaml:"stack"`
	CacheSize *int        `yaml:"cache_size,omitempty"` // routers only; nil = no cache
	Contents  []ContentID `yaml:"contents,omitempty"`   // sources only
}

// LinkSpec is a weighted link as written in a topology file.
type LinkSpec struct {
	From   NodeID  `yaml:"from"`
	To     NodeID  `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// Link is a directed hop between two adjacent nodes.
type Link struct {
	U, V NodeID
}

// Topology is the network an experiment runs on.
// Loaded from YAML via Load(path) or built in code.
type Topology struct {
	Kind  Kind       `yaml:"type"`
	Nodes []Node     `yaml:"nodes"`
	Links []LinkSpec `yaml:"links"`
}

// Load reads and parses a YAML topology file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	var t Topology
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	if t.Kind == "" {
		t.Kind = KindUndirected
	}
	return &t, nil
}

// Validate checks node roles, link endpoints, weights and content placement.
func (t *Topology) Validate() error {
	if t.Kind != KindUndirected && t.Kind != KindDirected {
		return fmt.Errorf("%w: %q; valid: undirected, directed", ErrUnsupportedTopology, t.Kind)
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidTopology)
	}
	seen := make(map[NodeID]bool, len(t.Nodes))
	owner := make(map[ContentID]NodeID)
	for i, n := range t.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node[%d] has empty id", ErrInvalidTopology, i)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidTopology, n.ID)
		}
		seen[n.ID] = true
		if !validStacks[n.Stack] {
			return fmt.Errorf("%w: node %q has unknown stack %q; valid: receiver, router, source", ErrInvalidTopology, n.ID, n.Stack)
		}
		if n.CacheSize != nil && n.Stack != StackRouter {
			return fmt.Errorf("%w: node %q: cache_size is only valid on routers", ErrInvalidTopology, n.ID)
		}
		if len(n.Contents) > 0 && n.Stack != StackSource {
			return fmt.Errorf("%w: node %q: contents are only valid on sources", ErrInvalidTopology, n.ID)
		}
		for _, c := range n.Contents {
			if prev, dup := owner[c]; dup {
				return fmt.Errorf("%w: content %d stored at both %q and %q", ErrInvalidTopology, c, prev, n.ID)
			}
			owner[c] = n.ID
		}
	}
	for i, l := range t.Links {
		if !seen[l.From] || !seen[l.To] {
			return fmt.Errorf("%w: link[%d] %s-%s references an unknown node", ErrInvalidTopology, i, l.From, l.To)
		}
		if l.From == l.To {
			return fmt.Errorf("%w: link[%d] is a self loop on %q", ErrInvalidTopology, i, l.From)
		}
		if l.Weight < 0 || math.IsNaN(l.Weight) || math.IsInf(l.Weight, 0) {
			return fmt.Errorf("%w: link[%d] %s-%s weight must be a finite non-negative number, got %f", ErrInvalidTopology, i, l.From, l.To, l.Weight)
		}
	}
	return nil
}

// Clone returns a deep copy, so placement helpers can annotate it per experiment.
func (t *Topology) Clone() *Topology {
	out := &Topology{Kind: t.Kind, Nodes: make([]Node, len(t.Nodes)), Links: append([]LinkSpec(nil), t.Links...)}
	for i, n := range t.Nodes {
		cp := Node{ID: n.ID, Stack: n.Stack, Contents: append([]ContentID(nil), n.Contents...)}
		if n.CacheSize != nil {
			size := *n.CacheSize
			cp.CacheSize = &size
		}
		out.Nodes[i] = cp
	}
	return out
}

// NodesWithStack returns the IDs of nodes with the given role, in declaration order.
func (t *Topology) NodesWithStack(s Stack) []NodeID {
	var ids []NodeID
	for _, n := range t.Nodes {
		if n.Stack == s {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Receivers returns the receiver nodes in declaration order.
func (t *Topology) Receivers() []NodeID {
	return t.NodesWithStack(StackReceiver)
}

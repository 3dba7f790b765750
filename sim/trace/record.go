// Package trace provides per-session decision recording for cache experiments.
// This package has no dependencies on sim/ or its other sub-packages: it stores pure data types.
package trace

// CacheDecision captures one cache lookup made while forwarding a request.
type CacheDecision struct {
	Node string
	Hit  bool
}

// SessionRecord captures how a single request session was served.
type SessionRecord struct {
	Time        float64
	Receiver    string
	Content     int
	ServingNode string
	CacheHit    bool            // served by a cache rather than the content source
	Lookups     []CacheDecision // in forwarding order
	Inserted    []string        // nodes that stored the content on the way back
	RequestHops int
	ContentHops int
	Weight      float64 // summed link weight of the content path
}

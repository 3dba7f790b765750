// Package sim provides the core of the content caching simulator: the network model a
// strategy acts on, the online strategies, result collectors, and the engine that runs
// experiments.
//
// # Reading Guide
//
// Start with these files to understand one request end to end:
//   - network.go: NetworkModel (per-node stores), NetworkView (read-only queries) and
//     NetworkController (every state change, one session at a time)
//   - strategy.go: the request/response skeleton shared by all strategies
//   - engine.go: event dispatch, offline placement and RunExperiment
//
// # Architecture
//
// The sim package wires together leaf sub-packages:
//   - sim/cache/: bounded stores with LRU, PERFECT_LFU and GRD eviction
//   - sim/topology/: topology files, validation, placement and shortest-path facts
//   - sim/workload/: stationary Zipf generator and CSV trace replay
//   - sim/offline/: greedy static placement optimizer
//   - sim/trace/: per-session decision records and their summary
//
// # Key Interfaces
//
//   - Strategy: process one request (route, choose serving node, store copies)
//   - Collector: observe measured sessions and report Results
//   - workload.Stream: time-ordered request events
//
// Strategies, policies and collectors are closed sets selected by name from an
// ExperimentConfig; unknown names fail validation before any state is built.
package sim

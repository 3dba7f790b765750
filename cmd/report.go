package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	sim "github.com/inference-sim/cache-sim/sim"
	"github.com/inference-sim/cache-sim/sim/topology"
)

// resultsFileEntry is the JSON form of one experiment result.
type resultsFileEntry struct {
	RunID     string                                   `json:"run_id"`
	Seed      int64                                    `json:"seed"`
	Offline   bool                                     `json:"offline"`
	Processed int                                      `json:"processed,omitempty"`
	Measured  int                                      `json:"measured,omitempty"`
	Results   sim.Results                              `json:"results"`
	Placement map[topology.NodeID][]topology.ContentID `json:"placement,omitempty"`
}

type replicationFile struct {
	Runs    []resultsFileEntry  `json:"runs"`
	Summary []sim.MetricSummary `json:"summary"`
}

func newResultsFile(r *sim.ExperimentResult) resultsFileEntry {
	return resultsFileEntry{
		RunID:     r.RunID,
		Seed:      r.Seed,
		Offline:   r.Offline,
		Processed: r.Processed,
		Measured:  r.Measured,
		Results:   r.Results,
		Placement: r.Placement,
	}
}

func writeResultsJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// printResults writes one line per metric statistic, sorted.
func printResults(w io.Writer, r *sim.ExperimentResult) {
	_, _ = fmt.Fprintln(w, "=== Experiment Results ===")
	_, _ = fmt.Fprintf(w, "Run ID   : %s\n", r.RunID)
	_, _ = fmt.Fprintf(w, "Seed     : %d\n", r.Seed)
	if r.Offline {
		_, _ = fmt.Fprintln(w, "Mode     : offline")
	} else {
		_, _ = fmt.Fprintf(w, "Mode     : online (%d events, %d measured)\n", r.Processed, r.Measured)
	}
	metrics := make([]string, 0, len(r.Results))
	for m := range r.Results {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	for _, m := range metrics {
		stats := make([]string, 0, len(r.Results[m]))
		for s := range r.Results[m] {
			stats = append(stats, s)
		}
		sort.Strings(stats)
		for _, s := range stats {
			_, _ = fmt.Fprintf(w, "%-32s: %.6f\n", m+"."+s, r.Results[m][s])
		}
	}
}

// printSummary writes the per-statistic replication summary.
func printSummary(w io.Writer, report *sim.ReplicationReport) {
	_, _ = fmt.Fprintf(w, "=== Replication Summary (%d runs) ===\n", len(report.Runs))
	for _, s := range report.Summary {
		_, _ = fmt.Fprintf(w, "%-32s: %.6f ± %.6f (sd %.6f)\n", s.Metric+"."+s.Stat, s.Mean, s.CI95, s.StdDev)
	}
}

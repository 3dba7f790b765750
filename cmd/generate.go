package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/cache-sim/sim"
	"github.com/inference-sim/cache-sim/sim/topology"
	"github.com/inference-sim/cache-sim/sim/workload"
)

var generateOut string

// generateCmd exports the request stream an experiment would replay, so it can be
// inspected or fed back as a TRACE_DRIVEN workload.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Export the request stream of an experiment as a CSV trace",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg, topo, err := loadExperiment(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		n, err := generateRequests(cfg, topo, generateOut)
		if err != nil {
			logrus.Fatalf("generating requests: %v", err)
		}
		logrus.Infof("wrote %d requests to %s", n, generateOut)
	},
}

func generateRequests(cfg sim.ExperimentConfig, topo *topology.Topology, path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("--out is required")
	}
	if err := cfg.Workload.Validate(); err != nil {
		return 0, err
	}
	wl, err := sim.NewWorkload(cfg, topo.Receivers())
	if err != nil {
		return 0, err
	}
	events := workload.Drain(wl)
	if err := workload.ExportRequests(events, path); err != nil {
		return 0, err
	}
	return len(events), nil
}

func init() {
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Path of the CSV trace to write")
}

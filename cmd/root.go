package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/cache-sim/sim"
	"github.com/inference-sim/cache-sim/sim/topology"
)

var (
	configPath  string // Experiment YAML file
	seed        int64  // Overrides the seed of the experiment file when set
	logLevel    string // Log verbosity level
	metricsFile string // Prometheus text-format export of the PROMETHEUS collector
	resultsFile string // JSON export of the results
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cache-sim",
	Short: "Simulator for in-network content caching and request routing",
}

// runCmd executes one experiment, online or offline
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one caching experiment",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg, topo, err := loadExperiment(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := runOnce(cfg, topo, os.Stdout); err != nil {
			logrus.Fatalf("experiment failed: %v", err)
		}
		logrus.Info("Experiment complete.")
	},
}

// replicateCmd executes independent seeded replications in parallel
var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run seeded replications of an experiment and summarize them",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg, topo, err := loadExperiment(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if cmd.Flags().Changed("replications") {
			cfg.Replications, _ = cmd.Flags().GetInt("replications")
		}
		if cmd.Flags().Changed("parallelism") {
			cfg.Parallelism, _ = cmd.Flags().GetInt("parallelism")
		}
		if err := runReplications(cmd.Context(), cfg, topo, os.Stdout); err != nil {
			logrus.Fatalf("replication failed: %v", err)
		}
		logrus.Info("Replications complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadExperiment reads the experiment and topology files. --seed overrides the file's
// seed only when given explicitly.
func loadExperiment(cmd *cobra.Command) (sim.ExperimentConfig, *topology.Topology, error) {
	if configPath == "" {
		return sim.ExperimentConfig{}, nil, fmt.Errorf("--config is required")
	}
	cfg, err := sim.LoadExperimentConfig(configPath)
	if err != nil {
		return sim.ExperimentConfig{}, nil, err
	}
	if cmd.Flags().Changed("seed") {
		logrus.Infof("--seed %d overrides seed %d from %s", seed, cfg.Seed, configPath)
		cfg.Seed = seed
	}
	if cfg.Topology == "" {
		return sim.ExperimentConfig{}, nil, fmt.Errorf("%s: topology path is required", configPath)
	}
	topo, err := topology.Load(cfg.Topology)
	if err != nil {
		return sim.ExperimentConfig{}, nil, err
	}
	return *cfg, topo, nil
}

func runOnce(cfg sim.ExperimentConfig, topo *topology.Topology, out io.Writer) error {
	res, err := sim.RunExperiment(cfg, topo)
	if err != nil {
		return err
	}
	printResults(out, res)
	if metricsFile != "" {
		if res.Gatherer == nil {
			logrus.Warnf("--metrics-file ignored: the PROMETHEUS collector is not configured")
		} else if err := prometheus.WriteToTextfile(metricsFile, res.Gatherer); err != nil {
			return fmt.Errorf("writing metrics file: %w", err)
		}
	}
	if resultsFile != "" {
		return writeResultsJSON(resultsFile, newResultsFile(res))
	}
	return nil
}

func runReplications(ctx context.Context, cfg sim.ExperimentConfig, topo *topology.Topology, out io.Writer) error {
	var opts []sim.Option
	reg := prometheus.NewRegistry()
	if metricsFile != "" {
		opts = append(opts, sim.WithRegisterer(reg))
	}
	report, err := sim.Replicate(ctx, cfg, topo, opts...)
	if err != nil {
		return err
	}
	printSummary(out, report)
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("writing metrics file: %w", err)
		}
	}
	if resultsFile != "" {
		runs := make([]resultsFileEntry, len(report.Runs))
		for i, r := range report.Runs {
			runs[i] = newResultsFile(r)
		}
		return writeResultsJSON(resultsFile, replicationFile{Runs: runs, Summary: report.Summary})
	}
	return nil
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, replicateCmd, generateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to the experiment YAML file")
		c.Flags().Int64Var(&seed, "seed", 0, "Seed overriding the experiment file")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	}
	for _, c := range []*cobra.Command{runCmd, replicateCmd} {
		c.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
		c.Flags().StringVar(&resultsFile, "results", "", "Write results as JSON to this file")
	}
	replicateCmd.Flags().Int("replications", sim.DefaultReplications, "Number of replications, overriding the experiment file")
	replicateCmd.Flags().Int("parallelism", 0, "Replications run concurrently, overriding the experiment file (0 = all CPUs)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replicateCmd)
	rootCmd.AddCommand(generateCmd)
}

// Command backtester is the CLI entrypoint for the replay engine.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/marketreplay/backtester/internal/config"
	"github.com/marketreplay/backtester/internal/engine"
	"github.com/marketreplay/backtester/internal/engineio"
	"github.com/marketreplay/backtester/internal/examplestrategy"
	"github.com/marketreplay/backtester/internal/loader"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cfg is populated once by rootCmd's PersistentPreRunE before any
// subcommand runs.
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Event-driven historical backtesting engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	for _, c := range []*cobra.Command{runCmd, reportCmd} {
		c.Flags().String("db", "", "sqlite bar database path (required)")
		c.Flags().Int("fast-window", 5, "fast moving-average window")
		c.Flags().Int("slow-window", 20, "slow moving-average window")
		c.Flags().Float64("volume", 1, "order size for the example strategy")
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("backtester %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// runCmd replays the configured window end to end, streaming the log
// lines (lifecycle messages and the statistics report) to stdout as they
// happen — the full engine lifecycle in one shot (spec §4.1 load_data
// through §4.4 calculate_statistics). Load and replay progress lines
// appear only when logging.level is debug.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load data, replay it, and print the full run log plus statistics report",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		return runPipeline(cmd, e, true)
	},
}

// reportCmd runs the identical pipeline but mutes load/replay progress
// logging and only re-enables the sink for calculate_statistics's
// report, splitting a run stage from a report stage over the same
// underlying state.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Load data, replay it, and print only the statistics summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		return runPipeline(cmd, e, false)
	},
}

func runPipeline(cmd *cobra.Command, e *engine.Engine, verbose bool) error {
	if !verbose {
		e.SetLogLevel(zerolog.Disabled)
	}
	if err := e.LoadData(cmd.Context()); err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	e.RunBacktesting()
	daily := e.CalculateResult()

	if !verbose {
		e.SetLogLevel(zerolog.InfoLevel)
	}
	e.CalculateStatistics(daily, true)
	return nil
}

func buildEngine(cmd *cobra.Command) (*engine.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	econf, err := cfg.Run.ToEngineConfig()
	if err != nil {
		return nil, err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	barLoader, err := loader.OpenSQLiteLoader(dbPath)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := engineio.New(os.Stdout)
	log.SetLevel(level)

	e, err := engine.New(econf, barLoader, nil, log)
	if err != nil {
		return nil, err
	}

	fast, _ := cmd.Flags().GetInt("fast-window")
	slow, _ := cmd.Flags().GetInt("slow-window")
	volume, _ := cmd.Flags().GetFloat64("volume")
	e.AddStrategy(examplestrategy.NewDoubleMA(fast, slow, volume))

	return e, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inference-sim/vllm-launcher/launcher"
	"github.com/inference-sim/vllm-launcher/launcher/dryrun"
	_ "github.com/inference-sim/vllm-launcher/launcher/openai"
	"github.com/inference-sim/vllm-launcher/launcher/results"
	"github.com/inference-sim/vllm-launcher/launcher/server"
)

// rootCmd is the base command for the CLI
var rootCmd = newRootCmd()

// modeValue is a pflag.Value that only accepts preset names, so the flag
// parser rejects anything else before the command runs.
type modeValue struct {
	mode launcher.Mode
}

func (m *modeValue) String() string { return string(m.mode) }

func (m *modeValue) Set(s string) error {
	mode, err := launcher.ParseMode(s)
	if err != nil {
		return fmt.Errorf("must be one of %s", modeList())
	}
	m.mode = mode
	return nil
}

func (m *modeValue) Type() string { return "mode" }

func modeList() string {
	names := make([]string, 0, 4)
	for _, m := range launcher.Modes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// launchRequest is everything the launcher needs from the command line.
type launchRequest struct {
	Mode      string
	Overrides launcher.Overrides
	Settings  settings
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vllm-launcher",
		Short: "Launch vLLM with a parallelism preset and measure batch throughput",
		Long: "Resolves one of the fixed parallelism presets (single, tp, dp, pp_tp), builds the inference engine, " +
			"generates a fixed batch of 32 chat prompts in one call and prints tokens, elapsed time and throughput.",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd.Flags())
			if err != nil {
				logrus.Fatalf("Invalid configuration: %v", err)
			}
			level, err := logrus.ParseLevel(s.LogLevel)
			if err != nil {
				logrus.Fatalf("Invalid log level: %s", s.LogLevel)
			}
			logrus.SetLevel(level)

			overrides, err := overridesFromFlags(cmd.Flags())
			if err != nil {
				logrus.Fatalf("Invalid overrides: %v", err)
			}
			req := launchRequest{
				Mode:      cmd.Flags().Lookup("mode").Value.String(),
				Overrides: overrides,
				Settings:  *s,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			_, err = launch(ctx, req, os.Stdout)
			stop()
			if errors.Is(err, launcher.ErrUnknownMode) {
				_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Unknown mode: %s\n", req.Mode)
				os.Exit(1)
			}
			if err != nil {
				logrus.Fatalf("Launch failed: %v", err)
			}
		},
	}
	registerLaunchFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("mode")

	cmd.AddCommand(newHistoryCmd())
	return cmd
}

// registerLaunchFlags defines the launcher flags on fs.
func registerLaunchFlags(fs *pflag.FlagSet) {
	srv := server.DefaultConfig()

	fs.Var(&modeValue{}, "mode", "Run mode: "+modeList()+" (dp is currently not working upstream)")
	fs.String("model", "", "Override the model name or path")
	fs.Int("pipeline-parallel-size", 0, "Override the pipeline parallel size")
	fs.String("config", "", "Path to a YAML config file for the settings below")

	// Settings resolved through viper: flag > VLLM_LAUNCHER_* env > config file > default
	fs.String("engine", server.EngineName, "Engine backend: "+strings.Join(launcher.EngineNames(), ", "))
	fs.String("endpoint", "http://localhost:8000", "Base URL of a running server (openai engine)")
	fs.String("api-key", "", "Bearer token for the inference server")
	fs.String("vllm-binary", srv.Binary, "vllm executable (server engine)")
	fs.String("host", srv.Host, "Bind address for the spawned server (server engine)")
	fs.Int("port", srv.Port, "Port for the spawned server (server engine)")
	fs.Duration("startup-timeout", srv.StartupTimeout, "How long to wait for the spawned server to become healthy")
	fs.Int64("seed", 42, "Seed for synthetic outputs (dryrun engine)")
	fs.String("defaults-filepath", dryrun.DefaultsFilePath, "Path to latency coefficients (dryrun engine)")
	fs.String("metrics-file", "", "Write Prometheus text metrics for the run to this file")
	fs.String("results-db", "", "Append the run to this SQLite database")
	fs.String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// overridesFromFlags returns an override only for flags the user actually set.
func overridesFromFlags(fs *pflag.FlagSet) (launcher.Overrides, error) {
	var o launcher.Overrides
	if fs.Changed("model") {
		model, err := fs.GetString("model")
		if err != nil {
			return o, err
		}
		o.Model = &model
	}
	if fs.Changed("pipeline-parallel-size") {
		pp, err := fs.GetInt("pipeline-parallel-size")
		if err != nil {
			return o, err
		}
		o.PipelineParallelSize = &pp
	}
	return o, nil
}

// launch resolves the mode and runs the launcher, then records the report
// where requested. An unknown mode returns before any engine is constructed.
func launch(ctx context.Context, req launchRequest, out io.Writer) (*launcher.Report, error) {
	mode, err := launcher.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	cfg, err := launcher.Resolve(mode, req.Overrides)
	if err != nil {
		return nil, err
	}
	s := req.Settings
	if !slices.Contains(launcher.EngineNames(), s.Engine) {
		return nil, fmt.Errorf("%w %q (available: %s)", launcher.ErrUnknownEngine, s.Engine, strings.Join(launcher.EngineNames(), ", "))
	}

	opts := s.engineOptions()
	l := &launcher.Launcher{
		NewEngine: func(ctx context.Context, args launcher.EngineArgs) (launcher.Engine, error) {
			return launcher.NewEngine(ctx, s.Engine, args, opts)
		},
		Out: out,
	}
	report, err := l.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if s.MetricsFile != "" {
		if err := launcher.WriteMetricsFile(s.MetricsFile, report); err != nil {
			return report, err
		}
		logrus.Infof("metrics written to %s", s.MetricsFile)
	}
	if s.ResultsDB != "" {
		if err := recordRun(ctx, s.ResultsDB, results.RunFromReport(report, s.Engine)); err != nil {
			return report, err
		}
	}
	return report, nil
}

func recordRun(ctx context.Context, path string, run *results.Run) error {
	store, err := results.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.Create(ctx, run); err != nil {
		return err
	}
	logrus.Infof("run %s recorded in %s", run.ID, path)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gridbot.ai/internal/printer"
	"gridbot.ai/internal/sim/tuning"
)

var (
	configPath string
	debug      bool

	goalFlag     int
	seedFlag     int64
	maxTicksFlag int
	dataDirFlag  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gridbot",
	Short: "gridbot - grid cleanup agent",
	Long: `gridbot runs a cleanup agent on a grid of fire, garbage, bins and
teleports. Each tick the agent senses, queues tasks for what it found, and
issues one move or action toward the highest priority task.

Runs can be local (run), against a remote world (bot), or served to others
(serve). Every tick is logged and indexed under the data directory and can be
inspected or verified later (replay).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if debug {
			config = zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. It only needs to happen once.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "configs/gridbot.yaml", "tuning file (defaults are used when it does not exist)")
	pf.BoolVar(&debug, "debug", false, "debug logging")
	pf.IntVar(&goalFlag, "goal", 0, "override goal")
	pf.Int64Var(&seedFlag, "seed", 0, "override seed")
	pf.IntVar(&maxTicksFlag, "max-ticks", 0, "override max_ticks (0 keeps the tuning value)")
	pf.StringVar(&dataDirFlag, "data-dir", "", "override data_dir")
}

// loadTuning reads the tuning file and applies flags the user set explicitly.
func loadTuning(cmd *cobra.Command) (tuning.Tuning, error) {
	t, err := tuning.LoadOrDefault(configPath)
	if err != nil {
		return t, printer.Error("Invalid tuning file", err.Error(), []string{
			"Fix " + configPath,
			"Point --config at another file",
		})
	}
	flags := cmd.Flags()
	if flags.Changed("goal") {
		t.Goal = goalFlag
	}
	if flags.Changed("seed") {
		t.Seed = seedFlag
	}
	if flags.Changed("max-ticks") {
		t.MaxTicks = maxTicksFlag
	}
	if flags.Changed("data-dir") {
		t.DataDir = dataDirFlag
	}
	if err := t.Validate(); err != nil {
		return t, printer.Error("Invalid settings", err.Error(), nil)
	}
	return t, nil
}

// serveMetrics exposes reg on addr until the process exits. An empty addr
// disables it.
func serveMetrics(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

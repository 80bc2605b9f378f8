package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/metrics"
	"gridbot.ai/internal/persistence/indexdb"
	tlog "gridbot.ai/internal/persistence/log"
	"gridbot.ai/internal/printer"
	"gridbot.ai/internal/runner"
	"gridbot.ai/internal/sim/tuning"
)

var (
	runMetricsAddr string
	runNoIndex     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent against a local generated world",
	Long: `Generates a world from the tuning seed and runs the agent until it reaches
its goal or max_ticks. Every tick is written to the run's tick log and to the
sqlite index under data_dir.`,
	Args: cobra.NoArgs,
	RunE: runLocal,
}

func init() {
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve /metrics on this address while running")
	runCmd.Flags().BoolVar(&runNoIndex, "no-index", false, "skip the sqlite index")
	rootCmd.AddCommand(runCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	tu, err := loadTuning(cmd)
	if err != nil {
		return err
	}
	runID := runner.NewRunID()
	log := logger.With(zap.String("run_id", runID))

	r, w, err := runner.Local(tu, runID, log)
	if err != nil {
		return printer.Error("Cannot build world", err.Error(), nil)
	}
	closeConsumers, err := attachConsumers(r, tu, runner.Manifest{RunID: runID, Mode: runner.ModeLocal}, runMetricsAddr, runNoIndex)
	if err != nil {
		return err
	}
	defer closeConsumers()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer.Step("run %s: %dx%d world, seed %d, goal %d\n", runID, w.Rows(), w.Cols(), tu.Seed, tu.Goal)
	start := time.Now()
	res, err := r.Run(ctx, tu.MaxTicks)
	if err != nil {
		printer.Warning("interrupted: %v\n", err)
	}
	printResult(runID, tu, res, time.Since(start), []printer.Field{
		{Key: "fire left", Value: strconv.Itoa(w.Count(grid.Fire))},
		{Key: "garbage left", Value: strconv.Itoa(w.Count(grid.Garbage))},
	})
	return nil
}

// attachConsumers writes the manifest and wires the tick log, the index and
// metrics into r. The returned func closes them.
func attachConsumers(r *runner.Runner, tu tuning.Tuning, m runner.Manifest, metricsAddr string, noIndex bool) (func(), error) {
	runDir := runner.RunDir(tu.DataDir, m.RunID)
	m.StartedAt = time.Now().UTC()
	m.Tuning = tu
	if err := runner.WriteManifest(runDir, m); err != nil {
		return nil, printer.Error("Cannot create run directory", err.Error(), []string{"Check that --data-dir is writable"})
	}
	r.Ticks = tlog.NewTickLogger(runDir)

	var idx *indexdb.SQLiteIndex
	if !noIndex {
		var err error
		idx, err = indexdb.OpenSQLite(runner.IndexPath(tu.DataDir))
		if err != nil {
			_ = r.Ticks.Close()
			return nil, printer.Error("Cannot open index", err.Error(), []string{"Pass --no-index to run without it"})
		}
		idx.RecordRun(m.RunID, tu.Seed, tu.Goal)
		r.Index = idx
	}

	reg := prometheus.NewRegistry()
	r.Metrics = metrics.MustNewMetrics(reg)
	serveMetrics(metricsAddr, reg)

	return func() {
		if err := r.Ticks.Close(); err != nil {
			logger.Warn("closing tick log", zap.Error(err))
		}
		if idx != nil {
			if err := idx.Close(); err != nil {
				logger.Warn("closing index", zap.Error(err))
			}
			if n := idx.Dropped(); n > 0 {
				printer.Warning("index dropped %d writes\n", n)
			}
		}
	}, nil
}

func printResult(runID string, tu tuning.Tuning, res runner.Result, took time.Duration, extra []printer.Field) {
	s := res.Stats
	fields := []printer.Field{
		{Key: "ticks", Value: strconv.Itoa(res.Ticks)},
		{Key: "completed", Value: fmt.Sprintf("%d/%d", res.Completed, tu.Goal)},
		{Key: "pending", Value: strconv.Itoa(s.Pending)},
		{Key: "targets seen", Value: strconv.Itoa(s.Seen)},
		{Key: "teleports", Value: fmt.Sprintf("%d active, %d inactive", s.ActiveTeleports, s.InactiveTeleports)},
		{Key: "failures", Value: fmt.Sprintf("sensing=%d action=%d dropped=%d", s.SensingFailures, s.ActionFailures, s.Dropped)},
		{Key: "took", Value: took.Round(time.Millisecond).String()},
	}
	fields = append(fields, extra...)
	fields = append(fields, printer.Field{Key: "data", Value: runner.RunDir(tu.DataDir, runID)})
	printer.Summary("run "+runID, fields)
	if res.Terminated {
		printer.Success("goal reached\n")
	} else {
		printer.Warning("goal not reached\n")
	}
}

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/agent/report"
	"gridbot.ai/internal/printer"
	"gridbot.ai/internal/runner"
	"gridbot.ai/internal/transport/ws"
)

var (
	botURL         string
	botName        string
	botStrict      bool
	botMetricsAddr string
	botNoIndex     bool
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the agent against a world served by 'gridbot serve'",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

func init() {
	botCmd.Flags().StringVar(&botURL, "url", "ws://localhost:8080"+ws.Path, "ws url")
	botCmd.Flags().StringVar(&botName, "name", "gridbot", "agent name")
	botCmd.Flags().BoolVar(&botStrict, "strict", false, "validate every message against the protocol schemas")
	botCmd.Flags().StringVar(&botMetricsAddr, "metrics-addr", "", "serve /metrics on this address while running")
	botCmd.Flags().BoolVar(&botNoIndex, "no-index", false, "skip the sqlite index")
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	tu, err := loadTuning(cmd)
	if err != nil {
		return err
	}
	runID := runner.NewRunID()
	log := logger.With(zap.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rw, err := ws.Dial(dialCtx, botURL, ws.DialOptions{Name: botName, Strict: botStrict})
	cancel()
	if err != nil {
		return printer.Error("Cannot connect", err.Error(), []string{"Start a world with 'gridbot serve'", "Check --url"})
	}
	defer rw.Close()

	rep := report.New()
	rw.SetSink(rep)
	r := &runner.Runner{
		RunID:  runID,
		Agent:  agent.New(tu.AgentConfig(), runner.NewSource(tu.Seed), log.Named("agent")),
		World:  rw,
		Report: rep,
		Check:  rw.Err,
		Log:    log,
	}
	closeConsumers, err := attachConsumers(r, tu, runner.Manifest{RunID: runID, Mode: runner.ModeRemote, Remote: botURL}, botMetricsAddr, botNoIndex)
	if err != nil {
		return err
	}
	defer closeConsumers()

	rows, cols := rw.Size()
	printer.Step("run %s: remote %dx%d world as %s, goal %d\n", runID, rows, cols, rw.AgentID(), tu.Goal)
	start := time.Now()
	res, err := r.Run(ctx, tu.MaxTicks)
	if err != nil {
		printer.Warning("interrupted: %v\n", err)
	}
	printResult(runID, tu, res, time.Since(start), []printer.Field{
		{Key: "agent", Value: rw.AgentID()},
	})
	return nil
}

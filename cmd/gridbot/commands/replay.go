package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/persistence/indexdb"
	tlog "gridbot.ai/internal/persistence/log"
	"gridbot.ai/internal/printer"
	"gridbot.ai/internal/runner"
)

var (
	replayVerify bool
	replayTicks  bool
)

var contentOrder = []string{"FIRE", "GARBAGE", "BIN", "TELEPORT", "OTHER", "EMPTY"}

var eventOrder = []string{
	string(grid.EventSensed), string(grid.EventMoved), string(grid.EventBlocked),
	string(grid.EventDestroyed), string(grid.EventDeposited), string(grid.EventTeleported),
}

var replayCmd = &cobra.Command{
	Use:   "replay [run-id]",
	Short: "Summarize a logged run, optionally re-running it to verify determinism",
	Long: `Reads the tick log of a run (the latest indexed run when no id is given)
and prints its totals. With --verify a local run is re-simulated from its
manifest and every tick is compared with the log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayVerify, "verify", false, "re-run the simulation and compare every tick")
	replayCmd.Flags().BoolVar(&replayTicks, "ticks", false, "print one line per tick")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	tu, err := loadTuning(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var runID string
	if len(args) == 1 {
		runID = args[0]
	} else {
		runID, err = latestRun(ctx, tu.DataDir)
		if err != nil {
			return printer.Error("No run to replay", err.Error(), []string{"Pass a run id", "Start one with 'gridbot run'"})
		}
	}
	runDir := runner.RunDir(tu.DataDir, runID)
	if _, err := os.Stat(runDir); err != nil {
		return printer.Error("Unknown run "+runID, err.Error(), nil)
	}

	if replayVerify {
		checked, err := runner.Verify(runDir, printTick)
		if err != nil {
			var mm *runner.Mismatch
			if errors.As(err, &mm) {
				return printer.Error(fmt.Sprintf("Replay diverged at tick %d", mm.Tick), mm.Diff, nil)
			}
			return printer.Error("Replay failed", err.Error(), nil)
		}
		printer.Success("replay ok: %d ticks reproduced\n", checked)
	} else if err := scanLog(runDir); err != nil {
		return printer.Error("Cannot read tick log", err.Error(), nil)
	}

	if s, err := indexSummary(ctx, tu.DataDir, runID); err == nil {
		printer.Summary("index "+runID, []printer.Field{
			{Key: "seed", Value: strconv.FormatInt(s.Seed, 10)},
			{Key: "ticks", Value: strconv.Itoa(s.Ticks)},
			{Key: "completed", Value: fmt.Sprintf("%d/%d", s.Completed, s.Goal)},
			{Key: "terminated", Value: strconv.FormatBool(s.Terminated)},
			{Key: "events", Value: printer.Counts(eventOrder, s.EventsByKind)},
			{Key: "discovered", Value: printer.Counts(contentOrder, s.ByContent)},
		})
	}
	return nil
}

func printTick(e tlog.TickEntry) {
	if !replayTicks {
		return
	}
	cur := "-"
	if e.Stats.Current != nil {
		cur = e.Stats.Current.String()
	}
	printer.Info("tick %5d  completed=%d pending=%d events=%d discoveries=%d current=%s\n",
		e.Tick.Tick, e.Completed, e.Stats.Pending, len(e.Events), len(e.Discoveries), cur)
}

func scanLog(runDir string) error {
	files, err := tlog.ListTickFiles(filepath.Join(runDir, "ticks"))
	if err != nil {
		return err
	}
	var (
		ticks     int
		last      tlog.TickEntry
		events    = map[string]int{}
		discovery = map[string]int{}
	)
	for _, path := range files {
		err := tlog.ReadTicks(path, func(e tlog.TickEntry) error {
			ticks++
			last = e
			for _, ev := range e.Events {
				events[string(ev.Kind)]++
			}
			for _, d := range e.Discoveries {
				discovery[d.Cell.Content.String()]++
			}
			printTick(e)
			return nil
		})
		if err != nil {
			return err
		}
	}
	printer.Summary("log "+last.RunID, []printer.Field{
		{Key: "files", Value: strconv.Itoa(len(files))},
		{Key: "ticks", Value: strconv.Itoa(ticks)},
		{Key: "completed", Value: strconv.Itoa(last.Completed)},
		{Key: "terminated", Value: strconv.FormatBool(last.Terminate)},
		{Key: "events", Value: printer.Counts(eventOrder, events)},
		{Key: "sightings", Value: printer.Counts(contentOrder, discovery)},
	})
	return nil
}

func latestRun(ctx context.Context, dataDir string) (string, error) {
	path := runner.IndexPath(dataDir)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	db, err := indexdb.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return indexdb.LatestRun(ctx, db)
}

func indexSummary(ctx context.Context, dataDir, runID string) (indexdb.RunSummary, error) {
	path := runner.IndexPath(dataDir)
	if _, err := os.Stat(path); err != nil {
		return indexdb.RunSummary{}, err
	}
	db, err := indexdb.Open(path)
	if err != nil {
		return indexdb.RunSummary{}, err
	}
	defer db.Close()
	return indexdb.Summarize(ctx, db, runID)
}

package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/agent/report"
	tlog "gridbot.ai/internal/persistence/log"
	"gridbot.ai/internal/sim/tuning"
	"gridbot.ai/internal/sim/world"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// ErrNotReplayable is returned by Verify for runs against a remote world.
var ErrNotReplayable = errors.New("run is not replayable")

// Local builds a runner over a freshly generated sim world.
func Local(t tuning.Tuning, runID string, logger *zap.Logger) (*Runner, *world.World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := world.New(t.WorldConfig())
	if err != nil {
		return nil, nil, err
	}
	r := report.New()
	body := w.Spawn("gridbot", r)
	a := agent.New(t.AgentConfig(), NewSource(t.Seed), logger.Named("agent"))
	return &Runner{
		RunID:   runID,
		Agent:   a,
		World:   body,
		Report:  r,
		Advance: func() { w.Advance() },
		Log:     logger,
	}, w, nil
}

// Mismatch is a logged tick the re-run did not reproduce.
type Mismatch struct {
	Tick uint64
	Diff string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("tick %d diverged (-logged +replayed):\n%s", m.Tick, m.Diff)
}

var entryOpts = cmp.Options{cmpopts.EquateEmpty()}

// Verify re-runs a local run from its manifest and compares every replayed
// tick with the logged one. It returns the number of ticks checked.
func Verify(runDir string, onTick func(tlog.TickEntry)) (int, error) {
	m, err := ReadManifest(runDir)
	if err != nil {
		return 0, err
	}
	if m.Mode != ModeLocal {
		return 0, fmt.Errorf("%w: mode %q", ErrNotReplayable, m.Mode)
	}
	r, _, err := Local(m.Tuning, m.RunID, nil)
	if err != nil {
		return 0, err
	}
	files, err := tlog.ListTickFiles(filepath.Join(runDir, "ticks"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("no tick log in %s", runDir)
		}
		return 0, err
	}

	checked := 0
	for _, path := range files {
		err := tlog.ReadTicks(path, func(logged tlog.TickEntry) error {
			got, _ := r.Step()
			if diff := cmp.Diff(logged, got, entryOpts); diff != "" {
				return &Mismatch{Tick: logged.Tick.Tick, Diff: diff}
			}
			checked++
			if onTick != nil {
				onTick(got)
			}
			return nil
		})
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}

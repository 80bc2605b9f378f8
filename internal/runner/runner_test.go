package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gridbot.ai/internal/agent"
	tlog "gridbot.ai/internal/persistence/log"
	"gridbot.ai/internal/sim/tuning"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func smallTuning() tuning.Tuning {
	t := tuning.Default()
	t.Goal = 3
	t.ScanMode = string(agent.ScanFull)
	t.Seed = 7
	t.MaxTicks = 3000
	// Content cells block movement, so a target behind another one would
	// otherwise be retried forever.
	t.MaxTaskFailures = 25
	t.World = tuning.WorldTuning{
		Rows:             16,
		Cols:             16,
		FirePerMille:     40,
		GarbagePerMille:  60,
		BinCapacity:      20,
		SpawnClearRadius: 1,
		SenseRadius:      1,
		StartEnergy:      1000,
		EnergyRegen:      2,
	}
	return t
}

func runLocal(t *testing.T, tu tuning.Tuning, runDir string) Result {
	t.Helper()
	runID := NewRunID()
	require.NoError(t, WriteManifest(runDir, Manifest{RunID: runID, Mode: ModeLocal, Tuning: tu}))
	r, _, err := Local(tu, runID, nil)
	require.NoError(t, err)
	r.Ticks = tlog.NewTickLogger(runDir)
	res, err := r.Run(context.Background(), tu.MaxTicks)
	require.NoError(t, err)
	require.NoError(t, r.Ticks.Close())
	return res
}

func TestRun_ReachesGoal(t *testing.T) {
	tu := smallTuning()
	res := runLocal(t, tu, t.TempDir())
	assert.True(t, res.Terminated)
	assert.GreaterOrEqual(t, res.Completed, tu.Goal)
	assert.Equal(t, res.Stats.Tick, uint64(res.Ticks))
}

func TestRun_StopsAtMaxTicks(t *testing.T) {
	tu := smallTuning()
	tu.Goal = 1_000_000
	r, _, err := Local(tu, "capped", nil)
	require.NoError(t, err)
	res, err := r.Run(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Ticks)
	assert.False(t, res.Terminated)
}

func TestRun_HonoursContext(t *testing.T) {
	r, _, err := Local(smallTuning(), "cancelled", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Ticks)
}

func TestVerify_ReplaysLocalRun(t *testing.T) {
	dir := t.TempDir()
	res := runLocal(t, smallTuning(), dir)

	seen := 0
	checked, err := Verify(dir, func(tlog.TickEntry) { seen++ })
	require.NoError(t, err)
	assert.Equal(t, res.Ticks, checked)
	assert.Equal(t, checked, seen)
}

func TestVerify_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	tu := smallTuning()
	runLocal(t, tu, dir)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	m.Tuning.Seed = tu.Seed + 1
	require.NoError(t, WriteManifest(dir, m))

	_, err = Verify(dir, nil)
	var mm *Mismatch
	require.True(t, errors.As(err, &mm), "want Mismatch, got %v", err)
	assert.NotEmpty(t, mm.Diff)
}

func TestVerify_RejectsRemoteRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteManifest(dir, Manifest{RunID: "r", Mode: ModeRemote, Tuning: smallTuning()}))
	_, err := Verify(dir, nil)
	assert.ErrorIs(t, err, ErrNotReplayable)
}

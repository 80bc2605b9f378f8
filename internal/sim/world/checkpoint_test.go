package world

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/persistence/snapshot"
)

func TestCheckpoint_RestoresGridAndClock(t *testing.T) {
	w, err := New(Config{Rows: 20, Cols: 15, Seed: 3, FirePerMille: 40, GarbagePerMille: 60, BinPerMille: 10, TeleportPerMille: 10, WallPerMille: 30, EnergyRegen: 2})
	require.NoError(t, err)
	b := w.Spawn("bot", nil)
	w.Advance()
	w.Advance()

	path := filepath.Join(t.TempDir(), "world.snap.zst")
	require.NoError(t, snapshot.WriteSnapshot(path, w.Checkpoint()))
	snap, err := snapshot.ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, snap.Agents, 1)
	assert.Equal(t, b.ID(), snap.Agents[0].ID)

	got, err := Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Tick())
	assert.Equal(t, w.Rows(), got.Rows())
	assert.Equal(t, w.Cols(), got.Cols())
	for r := 0; r < w.Rows(); r++ {
		for c := 0; c < w.Cols(); c++ {
			want, _ := w.Cell(grid.Coordinate{Row: r, Col: c})
			have, _ := got.Cell(grid.Coordinate{Row: r, Col: c})
			require.Equal(t, want, have, "cell (%d,%d)", r, c)
		}
	}

	_, ok := got.Body(b.ID())
	assert.False(t, ok, "bodies are not restored")
	assert.NotEqual(t, b.ID(), got.Spawn("next", nil).ID())
}

func TestRestore_RejectsBadCheckpoint(t *testing.T) {
	w, err := NewEmpty(2, 2)
	require.NoError(t, err)
	s := w.Checkpoint()

	bad := s
	bad.Header.Rows = 3
	_, err = Restore(bad)
	assert.Error(t, err)

	bad = s
	bad.Cells = []snapshot.CellV1{{Row: 5, Col: 0, Amount: 1}}
	_, err = Restore(bad)
	assert.Error(t, err)
}

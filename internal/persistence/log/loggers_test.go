package log

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/agent/report"
	"gridbot.ai/internal/agent/tasks"
	"gridbot.ai/internal/grid"
)

func TestTickLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	cur := tasks.Task{Action: tasks.ExtinguishFire, Target: grid.Coordinate{Row: 5, Col: 7}}
	want := []TickEntry{
		{
			RunID: "run-1",
			Tick: report.Tick{
				Tick:        1,
				Events:      []grid.Event{{Kind: grid.EventMoved, At: grid.Coordinate{Row: 5, Col: 6}, Dir: grid.Right}},
				Discoveries: []report.Discovery{{Cell: grid.Cell{Content: grid.Fire}, At: grid.Coordinate{Row: 5, Col: 7}}},
			},
			Stats: agent.Stats{Tick: 1, Pending: 0, Seen: 1, Current: &cur},
		},
		{
			RunID: "run-1",
			Tick: report.Tick{
				Tick:        2,
				Terminate:   true,
				Completed:   1,
				Events:      []grid.Event{{Kind: grid.EventDestroyed, At: grid.Coordinate{Row: 5, Col: 7}, Dir: grid.Right, Detail: "FIRE"}},
				Discoveries: []report.Discovery{},
			},
			Stats: agent.Stats{Tick: 2, Completed: 1, Terminated: true},
		},
	}
	for _, e := range want {
		require.NoError(t, l.WriteTick(e))
	}
	require.NoError(t, l.Close())

	files, err := ListTickFiles(dir + "/ticks")
	require.NoError(t, err)
	require.Len(t, files, 1)

	var got []TickEntry
	require.NoError(t, ReadTicks(files[0], func(e TickEntry) error {
		got = append(got, e)
		return nil
	}))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tick log mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	clock := time.Date(2026, 1, 2, 3, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	require.NoError(t, w.Write(map[string]int{"a": 1}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, w.Write(map[string]int{"a": 2}))
	require.NoError(t, w.Close())

	files, err := ListTickFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Contains(t, files[0], "ticks-2026-01-02-03")
	require.Contains(t, files[1], "ticks-2026-01-02-04")
}

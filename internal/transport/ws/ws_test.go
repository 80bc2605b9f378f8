package ws

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/agent/report"
	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/protocol"
	"gridbot.ai/internal/sim/world"
)

func startServer(t *testing.T, w *world.World, strict bool) string {
	t.Helper()
	s := NewServer(w, nil)
	s.Strict = strict
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + Path
}

func dial(t *testing.T, url string, strict bool) *RemoteWorld {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rw, err := Dial(ctx, url, DialOptions{Name: "test", Strict: strict})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rw.Close() })
	return rw
}

type sink struct{ events []grid.Event }

func (s *sink) RecordEvent(e grid.Event) { s.events = append(s.events, e) }

func TestRemoteWorld_RoundTrip(t *testing.T) {
	w, err := world.NewEmpty(5, 5)
	require.NoError(t, err)
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 2, Col: 3}, grid.Cell{Content: grid.Fire}))
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 1, Col: 2}, grid.Cell{Content: grid.Other}))

	rw := dial(t, startServer(t, w, true), true)
	rows, cols := rw.Size()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 5, cols)
	assert.NotEmpty(t, rw.AgentID())
	assert.Equal(t, grid.Coordinate{Row: 2, Col: 2}, rw.Position())

	s := &sink{}
	rw.SetSink(s)

	v, err := rw.Sense()
	require.NoError(t, err)
	assert.Equal(t, grid.Coordinate{Row: 2, Col: 2}, v.Anchor)
	assert.Equal(t, 9, v.Len())
	assert.Equal(t, grid.Fire, v.Cells[grid.Offset{DCol: 1}].Content)

	require.NoError(t, rw.Destroy(grid.Right))
	cell, _ := w.Cell(grid.Coordinate{Row: 2, Col: 3})
	assert.Equal(t, grid.Empty, cell.Content)

	err = rw.Move(grid.Up)
	var re *ResponseError
	require.True(t, errors.As(err, &re), "want ResponseError, got %v", err)
	assert.Equal(t, protocol.ErrBlocked, re.Code)
	assert.Equal(t, grid.Coordinate{Row: 2, Col: 2}, rw.Position())

	require.NoError(t, rw.Move(grid.Down))
	assert.Equal(t, grid.Coordinate{Row: 3, Col: 2}, rw.Position())

	kinds := make([]grid.EventKind, 0, len(s.events))
	for _, e := range s.events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []grid.EventKind{grid.EventSensed, grid.EventDestroyed, grid.EventBlocked, grid.EventMoved}, kinds)
}

func TestRemoteWorld_DepositAndState(t *testing.T) {
	w, err := world.NewEmpty(5, 5)
	require.NoError(t, err)
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 2, Col: 1}, grid.Cell{Content: grid.Garbage, Amount: 3}))
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 3, Col: 2}, grid.Cell{Content: grid.Bin, Capacity: 10}))

	rw := dial(t, startServer(t, w, false), false)
	require.NoError(t, rw.Destroy(grid.Left))
	assert.Equal(t, 3, rw.Carried(grid.Garbage))

	require.NoError(t, rw.Deposit(grid.Down, grid.Garbage, 3))
	assert.Equal(t, 0, rw.Carried(grid.Garbage))
	bin, _ := w.Cell(grid.Coordinate{Row: 3, Col: 2})
	assert.Equal(t, 7, bin.Capacity)

	before := rw.Energy()
	require.NoError(t, rw.Refresh())
	assert.Equal(t, before, rw.Energy())
}

func TestRemoteWorld_Teleport(t *testing.T) {
	w, err := world.NewEmpty(7, 7)
	require.NoError(t, err)
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 3, Col: 3}, grid.Cell{Content: grid.Teleport, Active: true}))
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 0, Col: 6}, grid.Cell{Content: grid.Teleport, Active: true}))
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 6, Col: 0}, grid.Cell{Content: grid.Teleport}))

	rw := dial(t, startServer(t, w, true), true)
	err = rw.Teleport(grid.Coordinate{Row: 6, Col: 0})
	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, protocol.ErrInvalidTarget, re.Code)

	require.NoError(t, rw.Teleport(grid.Coordinate{Row: 0, Col: 6}))
	assert.Equal(t, grid.Coordinate{Row: 0, Col: 6}, rw.Position())
}

func TestServer_RejectsBadVersion(t *testing.T) {
	w, err := world.NewEmpty(3, 3)
	require.NoError(t, err)
	url := startServer(t, w, false)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1", AgentName: "old"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestServer_UnknownOp(t *testing.T) {
	w, err := world.NewEmpty(3, 3)
	require.NoError(t, err)
	rw := dial(t, startServer(t, w, false), false)

	_, err = rw.do(protocol.ReqMsg{Op: "JUMP"})
	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, protocol.ErrBadRequest, re.Code)
}

func TestServer_SenseDirWithoutDirection(t *testing.T) {
	w, err := world.NewEmpty(5, 5)
	require.NoError(t, err)
	rw := dial(t, startServer(t, w, false), false)

	_, err = rw.do(protocol.ReqMsg{Op: protocol.OpSenseDir, Distance: 1 << 40})
	var re *ResponseError
	require.True(t, errors.As(err, &re), "want ResponseError, got %v", err)
	assert.Equal(t, protocol.ErrBadRequest, re.Code)

	// The connection and the world keep working.
	require.NoError(t, rw.Refresh())
	assert.Equal(t, uint64(1), w.Advance())
}

func TestServer_StrictRejectsSenseDirWithoutDirection(t *testing.T) {
	w, err := world.NewEmpty(5, 5)
	require.NoError(t, err)
	rw := dial(t, startServer(t, w, true), false)

	_, err = rw.do(protocol.ReqMsg{Op: protocol.OpSenseDir, Distance: 3})
	var re *ResponseError
	require.True(t, errors.As(err, &re), "want ResponseError, got %v", err)
	assert.Equal(t, protocol.ErrProtoBadRequest, re.Code)
	require.NoError(t, rw.Refresh())
}

func TestRemoteWorld_MismatchedResponseBreaksConnection(t *testing.T) {
	var upgrader websocket.Upgrader
	served := make(chan uint64, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var hello protocol.HelloMsg
		if conn.ReadJSON(&hello) != nil {
			return
		}
		_ = conn.WriteJSON(protocol.WelcomeMsg{Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version, AgentID: "A1", Rows: 3, Cols: 3})
		for {
			var req protocol.ReqMsg
			if conn.ReadJSON(&req) != nil {
				return
			}
			served <- req.ID
			_ = conn.WriteJSON(protocol.ResMsg{Type: protocol.TypeRes, ProtocolVersion: protocol.Version, ID: req.ID + 100, OK: true, Events: []grid.Event{}})
		}
	}))
	t.Cleanup(srv.Close)
	rw := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"), false)

	err := rw.Refresh()
	require.Error(t, err)
	require.Error(t, rw.Err())
	assert.Equal(t, uint64(1), <-served)

	// Later requests fail fast instead of reading stale replies.
	assert.Equal(t, rw.Err(), rw.Move(grid.Up))
	assert.Empty(t, served)
}

func TestRemoteWorld_DrivesAgentToGoal(t *testing.T) {
	w, err := world.NewEmpty(9, 9)
	require.NoError(t, err)
	for _, c := range []grid.Coordinate{{Row: 4, Col: 5}, {Row: 3, Col: 4}, {Row: 5, Col: 3}} {
		require.NoError(t, w.SetCell(c, grid.Cell{Content: grid.Fire}))
	}
	rw := dial(t, startServer(t, w, true), true)

	a := agent.New(agent.Config{Goal: 3, ScanMode: agent.ScanFull}, rand.New(rand.NewPCG(1, 2)), nil)
	r := report.New()
	rw.SetSink(r)
	for i := 0; i < 50 && !a.Terminated(); i++ {
		a.Tick(rw, r)
		r.Drain()
	}
	require.True(t, a.Terminated())
	assert.Equal(t, 3, a.Completed())
	assert.Equal(t, 0, w.Count(grid.Fire))
}

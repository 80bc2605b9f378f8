package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/observerproto"
	"gridbot.ai/internal/sim/world"
)

func newTestServer(t *testing.T) (*world.World, *httptest.Server) {
	t.Helper()
	w, err := world.NewEmpty(4, 6)
	require.NoError(t, err)
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 0, Col: 0}, grid.Cell{Content: grid.Fire}))
	require.NoError(t, w.SetCell(grid.Coordinate{Row: 3, Col: 5}, grid.Cell{Content: grid.Garbage, Amount: 2}))
	w.Spawn("watched", nil)

	s := NewServer(w, nil)
	mux := http.NewServeMux()
	mux.HandleFunc(BootstrapPath, s.BootstrapHandler())
	mux.HandleFunc(WSPath, s.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return w, srv
}

func TestBootstrap(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + BootstrapPath + "?cells=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got observerproto.BootstrapResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, observerproto.Version, got.ProtocolVersion)
	assert.Equal(t, 4, got.Snapshot.Rows)
	assert.Equal(t, 6, got.Snapshot.Cols)
	assert.Equal(t, map[string]int{"FIRE": 1, "GARBAGE": 1}, got.Snapshot.Counts)
	require.Len(t, got.Snapshot.Agents, 1)
	assert.Equal(t, "watched", got.Snapshot.Agents[0].Name)
	assert.Equal(t, grid.Coordinate{Row: 2, Col: 3}, got.Snapshot.Agents[0].Pos)
	require.Len(t, got.Snapshot.Cells, 4)
	assert.Equal(t, grid.Fire, got.Snapshot.Cells[0][0].Content)
}

func TestBootstrap_MethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Post(srv.URL+BootstrapPath, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWS_StreamsSnapshots(t *testing.T) {
	w, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WSPath

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            "SUBSCRIBE",
		ProtocolVersion: observerproto.Version,
		IntervalMS:      50,
	}))

	var first observerproto.SnapshotMsg
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "SNAPSHOT", first.Type)
	assert.Nil(t, first.Cells)

	w.Advance()
	deadline := time.Now().Add(3 * time.Second)
	for {
		var later observerproto.SnapshotMsg
		_ = conn.SetReadDeadline(deadline)
		require.NoError(t, conn.ReadJSON(&later))
		if later.Tick == 1 {
			break
		}
	}
}

func TestWS_RejectsMissingSubscribe(t *testing.T) {
	_, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WSPath

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

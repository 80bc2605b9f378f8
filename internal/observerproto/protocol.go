package observerproto

import "gridbot.ai/internal/grid"

// Version is the observer protocol version (separate from the agent WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	IntervalMS      int    `json:"interval_ms"`
	// IncludeCells adds the full grid to every snapshot.
	IncludeCells bool `json:"include_cells,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	Snapshot        Snapshot `json:"snapshot"`
}

// Server -> Client. Sent once per interval.
type SnapshotMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Snapshot
}

type Snapshot struct {
	Tick   uint64         `json:"tick"`
	Rows   int            `json:"rows"`
	Cols   int            `json:"cols"`
	Counts map[string]int `json:"counts"`
	Agents []AgentState   `json:"agents"`
	Cells  [][]grid.Cell  `json:"cells,omitempty"`
}

type AgentState struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Pos     grid.Coordinate `json:"pos"`
	Carried int             `json:"carried"`
	Energy  int             `json:"energy"`
}

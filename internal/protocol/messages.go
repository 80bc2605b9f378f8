package protocol

import "gridbot.ai/internal/grid"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	AgentID         string    `json:"agent_id"`
	Rows            int       `json:"rows"`
	Cols            int       `json:"cols"`
	Self            SelfState `json:"self"`
}

// SelfState is attached to every response so clients can answer position and
// inventory queries without a round trip.
type SelfState struct {
	Pos     grid.Coordinate `json:"pos"`
	Carried map[string]int  `json:"carried"`
	Energy  int             `json:"energy"`
}

// REQ (client -> server)
type ReqMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	ID              uint64           `json:"id"`
	Op              string           `json:"op"`
	Dir             grid.Direction   `json:"dir,omitempty"`
	Target          *grid.Coordinate `json:"target,omitempty"`
	Content         string           `json:"content,omitempty"`
	Amount          int              `json:"amount,omitempty"`
	Distance        int              `json:"distance,omitempty"`
}

// RES (server -> client)
type ResMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ID              uint64       `json:"id"`
	OK              bool         `json:"ok"`
	Code            string       `json:"code,omitempty"`
	Message         string       `json:"message,omitempty"`
	View            *ViewObs     `json:"view,omitempty"`
	Self            SelfState    `json:"self"`
	Events          []grid.Event `json:"events"`
}

type ViewObs struct {
	Anchor grid.Coordinate `json:"anchor"`
	Cells  []CellObs       `json:"cells"`
}

type CellObs struct {
	DRow int       `json:"drow"`
	DCol int       `json:"dcol"`
	Cell grid.Cell `json:"cell"`
}

// NewViewObs flattens a view into wire form in row-major order.
func NewViewObs(v grid.View) *ViewObs {
	out := &ViewObs{Anchor: v.Anchor, Cells: make([]CellObs, 0, v.Len())}
	for _, off := range v.Offsets() {
		out.Cells = append(out.Cells, CellObs{DRow: off.DRow, DCol: off.DCol, Cell: v.Cells[off]})
	}
	return out
}

func (o *ViewObs) View() grid.View {
	if o == nil {
		return grid.View{Cells: map[grid.Offset]grid.Cell{}}
	}
	v := grid.NewView(o.Anchor)
	for _, c := range o.Cells {
		v.Cells[grid.Offset{DRow: c.DRow, DCol: c.DCol}] = c.Cell
	}
	return v
}

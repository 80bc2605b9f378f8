// Package report holds the per-tick buffer that the agent fills and the host
// drains once the tick has run to completion.
package report

import "gridbot.ai/internal/grid"

type Discovery struct {
	Cell grid.Cell       `json:"cell"`
	At   grid.Coordinate `json:"at"`
}

// Tick is the drained, immutable result of one tick.
type Tick struct {
	Tick        uint64       `json:"tick"`
	Terminate   bool         `json:"terminate"`
	Completed   int          `json:"completed"`
	Events      []grid.Event `json:"events"`
	Discoveries []Discovery  `json:"discoveries"`
}

// Report is owned by the host and written by a single agent during a tick.
// It is not safe for concurrent use; the host must Drain it before the next
// tick starts.
type Report struct {
	tick        uint64
	terminate   bool
	completed   int
	events      []grid.Event
	discoveries []Discovery
}

func New() *Report { return &Report{} }

// RecordEvent implements grid.EventSink.
func (r *Report) RecordEvent(e grid.Event) { r.events = append(r.events, e) }

func (r *Report) Discover(c grid.Cell, at grid.Coordinate) {
	r.discoveries = append(r.discoveries, Discovery{Cell: c, At: at})
}

func (r *Report) SetTick(t uint64) { r.tick = t }

func (r *Report) SetCompleted(n int) { r.completed = n }

func (r *Report) SetTerminate(v bool) { r.terminate = v }

func (r *Report) Terminate() bool { return r.terminate }

func (r *Report) Events() []grid.Event { return r.events }

func (r *Report) Discoveries() []Discovery { return r.discoveries }

// Drain hands the tick's data to the caller and resets the buffer.
func (r *Report) Drain() Tick {
	out := Tick{
		Tick:        r.tick,
		Terminate:   r.terminate,
		Completed:   r.completed,
		Events:      r.events,
		Discoveries: r.discoveries,
	}
	if out.Events == nil {
		out.Events = []grid.Event{}
	}
	if out.Discoveries == nil {
		out.Discoveries = []Discovery{}
	}
	*r = Report{}
	return out
}

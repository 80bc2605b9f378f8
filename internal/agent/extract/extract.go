// Package extract classifies sensed cells into discoveries, teleport sightings
// and task candidates.
package extract

import (
	"gridbot.ai/internal/agent/tasks"
	"gridbot.ai/internal/agent/teleport"
	"gridbot.ai/internal/grid"
)

// DefaultDepositThreshold is the carried garbage count a bin only becomes
// worth visiting above.
const DefaultDepositThreshold = 5

// Discoverer receives every sensed cell.
type Discoverer interface {
	Discover(c grid.Cell, at grid.Coordinate)
}

type Extractor struct {
	Scheduler *tasks.Scheduler
	Teleports *teleport.Registry
	Threshold int
}

func New(s *tasks.Scheduler, r *teleport.Registry, threshold int) *Extractor {
	return &Extractor{Scheduler: s, Teleports: r, Threshold: threshold}
}

// Result summarizes one extraction pass.
type Result struct {
	Sensed    int
	Queued    []tasks.Task
	Teleports int
}

// Extract walks the view, logs each cell to d, registers teleports and offers
// task candidates to the scheduler. A coordinate that was already seen is not
// classified again even if its content changed since.
func (e *Extractor) Extract(v grid.View, carried int, d Discoverer) Result {
	var res Result
	for _, off := range v.Offsets() {
		cell := v.Cells[off]
		at := v.Anchor.Add(off)
		if !at.Valid() {
			continue
		}
		res.Sensed++
		if d != nil {
			d.Discover(cell, at)
		}
		if cell.Content == grid.Teleport && e.Teleports.Add(cell.Active, at) {
			res.Teleports++
		}
		action, ok := Classify(cell, carried, e.Threshold)
		if !ok {
			continue
		}
		t := tasks.Task{Action: action, Target: at}
		if e.Scheduler.Offer(t) {
			res.Queued = append(res.Queued, t)
		}
	}
	return res
}

// Classify maps a cell to the action it calls for, if any.
func Classify(c grid.Cell, carried, threshold int) (tasks.Action, bool) {
	switch c.Content {
	case grid.Garbage:
		return tasks.ClearGarbage, true
	case grid.Fire:
		return tasks.ExtinguishFire, true
	case grid.Bin:
		if carried > threshold {
			return tasks.DepositGarbage, true
		}
	}
	return 0, false
}

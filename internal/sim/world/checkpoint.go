package world

import (
	"fmt"
	"sort"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/persistence/snapshot"
	"gridbot.ai/internal/sim/encoding"
)

// Checkpoint captures the grid, clock and connected bodies.
func (w *World) Checkpoint() snapshot.SnapshotV1 {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			Tick:    w.tick,
			Rows:    w.cfg.Rows,
			Cols:    w.cfg.Cols,
			Seed:    w.cfg.Seed,
		},
		BinCapacity: w.cfg.BinCapacity,
		SenseRadius: w.cfg.SenseRadius,
		StartEnergy: w.cfg.StartEnergy,
		EnergyRegen: w.cfg.EnergyRegen,
		NextAgent:   w.nextID,
	}
	kinds := make([]grid.Content, 0, w.cfg.Rows*w.cfg.Cols)
	for r, row := range w.cells {
		for c, cell := range row {
			kinds = append(kinds, cell.Content)
			if cell.Amount != 0 || cell.Capacity != 0 || cell.Active {
				s.Cells = append(s.Cells, snapshot.CellV1{Row: r, Col: c, Amount: cell.Amount, Capacity: cell.Capacity, Active: cell.Active})
			}
		}
	}
	s.Contents = encoding.EncodeContents(kinds)

	for _, b := range w.bodies {
		s.Agents = append(s.Agents, snapshot.AgentV1{
			ID:      b.id,
			Name:    b.name,
			Pos:     [2]int{b.pos.Row, b.pos.Col},
			Carried: b.carried[grid.Garbage],
			Energy:  b.energy,
		})
	}
	sort.Slice(s.Agents, func(i, j int) bool { return s.Agents[i].ID < s.Agents[j].ID })
	return s
}

// Restore rebuilds a world from a checkpoint. Bodies are not restored since
// they belong to connections that no longer exist; their IDs stay reserved.
func Restore(s snapshot.SnapshotV1) (*World, error) {
	h := s.Header
	if h.Rows <= 0 || h.Cols <= 0 {
		return nil, fmt.Errorf("world: invalid checkpoint size %dx%d", h.Rows, h.Cols)
	}
	kinds, err := encoding.DecodeContents(s.Contents, h.Rows*h.Cols)
	if err != nil {
		return nil, fmt.Errorf("world: checkpoint contents: %w", err)
	}

	cfg := Config{
		Rows:        h.Rows,
		Cols:        h.Cols,
		Seed:        h.Seed,
		BinCapacity: s.BinCapacity,
		SenseRadius: s.SenseRadius,
		StartEnergy: s.StartEnergy,
		EnergyRegen: s.EnergyRegen,
	}.withDefaults()
	w := &World{
		cfg:    cfg,
		cells:  make([][]grid.Cell, cfg.Rows),
		bodies: map[string]*Body{},
		nextID: s.NextAgent,
		tick:   h.Tick,
	}
	for r := range w.cells {
		w.cells[r] = make([]grid.Cell, cfg.Cols)
		for c := range w.cells[r] {
			w.cells[r][c].Content = kinds[r*cfg.Cols+c]
		}
	}
	for _, a := range s.Cells {
		if a.Row < 0 || a.Col < 0 || a.Row >= cfg.Rows || a.Col >= cfg.Cols {
			return nil, fmt.Errorf("world: checkpoint cell (%d,%d) out of bounds", a.Row, a.Col)
		}
		cell := &w.cells[a.Row][a.Col]
		cell.Amount, cell.Capacity, cell.Active = a.Amount, a.Capacity, a.Active
	}
	return w, nil
}

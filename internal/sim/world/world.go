// Package world is a deterministic in-memory grid the agent can be run
// against. It owns energy costs and resource bookkeeping so the agent core
// does not have to.
package world

import (
	"fmt"
	"sort"
	"sync"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/observerproto"
)

type Config struct {
	Rows int
	Cols int
	Seed int64

	FirePerMille     int
	GarbagePerMille  int
	BinPerMille      int
	TeleportPerMille int
	WallPerMille     int

	BinCapacity      int
	SpawnClearRadius int
	SenseRadius      int

	StartEnergy int
	EnergyRegen int
}

func (c Config) withDefaults() Config {
	if c.BinCapacity <= 0 {
		c.BinCapacity = 20
	}
	if c.SenseRadius <= 0 {
		c.SenseRadius = 1
	}
	if c.StartEnergy <= 0 {
		c.StartEnergy = 1000
	}
	return c
}

// Energy costs per request.
const (
	costSense    = 1
	costMove     = 1
	costDestroy  = 2
	costDeposit  = 1
	costTeleport = 5
)

// World is safe for concurrent use by several bodies.
type World struct {
	cfg Config

	mu     sync.Mutex
	cells  [][]grid.Cell
	bodies map[string]*Body
	nextID int
	tick   uint64
}

func New(cfg Config) (*World, error) {
	cfg = cfg.withDefaults()
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("world: invalid size %dx%d", cfg.Rows, cfg.Cols)
	}
	w := &World{
		cfg:    cfg,
		cells:  make([][]grid.Cell, cfg.Rows),
		bodies: map[string]*Body{},
	}
	for i := range w.cells {
		w.cells[i] = make([]grid.Cell, cfg.Cols)
	}
	w.generate()
	return w, nil
}

// NewEmpty builds a world with no generated content; tests place cells with SetCell.
func NewEmpty(rows, cols int) (*World, error) {
	return New(Config{Rows: rows, Cols: cols})
}

func (w *World) Rows() int { return w.cfg.Rows }
func (w *World) Cols() int { return w.cfg.Cols }

func (w *World) center() grid.Coordinate {
	return grid.Coordinate{Row: w.cfg.Rows / 2, Col: w.cfg.Cols / 2}
}

func (w *World) inBounds(c grid.Coordinate) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < w.cfg.Rows && c.Col < w.cfg.Cols
}

func (w *World) Cell(c grid.Coordinate) (grid.Cell, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.inBounds(c) {
		return grid.Cell{}, false
	}
	return w.cells[c.Row][c.Col], true
}

func (w *World) SetCell(c grid.Coordinate, cell grid.Cell) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.inBounds(c) {
		return fmt.Errorf("world: %s out of bounds", c)
	}
	w.cells[c.Row][c.Col] = cell
	return nil
}

// Count returns how many cells hold the given content.
func (w *World) Count(content grid.Content) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, row := range w.cells {
		for _, c := range row {
			if c.Content == content {
				n++
			}
		}
	}
	return n
}

// Advance moves the world clock and regenerates body energy.
func (w *World) Advance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++
	for _, b := range w.bodies {
		if w.cfg.EnergyRegen > 0 && b.energy < w.cfg.StartEnergy {
			b.energy += w.cfg.EnergyRegen
			if b.energy > w.cfg.StartEnergy {
				b.energy = w.cfg.StartEnergy
			}
		}
	}
	return w.tick
}

func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Spawn places a new body at the world center. Events produced by the body's
// requests are sent to sink, which may be nil.
func (w *World) Spawn(name string, sink grid.EventSink) *Body {
	return w.SpawnAt(name, w.center(), sink)
}

func (w *World) SpawnAt(name string, at grid.Coordinate, sink grid.EventSink) *Body {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	b := &Body{
		w:       w,
		id:      fmt.Sprintf("A%d", w.nextID),
		name:    name,
		pos:     at,
		carried: map[grid.Content]int{},
		energy:  w.cfg.StartEnergy,
		sink:    sink,
	}
	w.bodies[b.id] = b
	return b
}

func (w *World) Body(id string) (*Body, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	return b, ok
}

func (w *World) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, id)
}

// Snapshot copies the observable world state. Cells are only copied when
// withCells is set.
func (w *World) Snapshot(withCells bool) observerproto.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := observerproto.Snapshot{
		Tick:   w.tick,
		Rows:   w.cfg.Rows,
		Cols:   w.cfg.Cols,
		Counts: map[string]int{},
		Agents: make([]observerproto.AgentState, 0, len(w.bodies)),
	}
	for _, row := range w.cells {
		for _, c := range row {
			if c.Content != grid.Empty {
				s.Counts[c.Content.String()]++
			}
		}
	}
	if withCells {
		s.Cells = make([][]grid.Cell, len(w.cells))
		for i, row := range w.cells {
			s.Cells[i] = append([]grid.Cell(nil), row...)
		}
	}
	for _, b := range w.bodies {
		s.Agents = append(s.Agents, observerproto.AgentState{
			ID:      b.id,
			Name:    b.name,
			Pos:     b.pos,
			Carried: b.carried[grid.Garbage],
			Energy:  b.energy,
		})
	}
	sort.Slice(s.Agents, func(i, j int) bool { return s.Agents[i].ID < s.Agents[j].ID })
	return s
}

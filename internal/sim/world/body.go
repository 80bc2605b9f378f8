package world

import (
	"gridbot.ai/internal/grid"
)

// Body is one agent's presence in the world. It implements agent.World.
type Body struct {
	w    *World
	id   string
	name string

	// Guarded by w.mu.
	pos     grid.Coordinate
	carried map[grid.Content]int
	energy  int
	sink    grid.EventSink
}

func (b *Body) ID() string   { return b.id }
func (b *Body) Name() string { return b.name }

// SetSink replaces the event sink. Hosts use it to point the body at a fresh
// report buffer.
func (b *Body) SetSink(s grid.EventSink) {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	b.sink = s
}

func (b *Body) Position() grid.Coordinate {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	return b.pos
}

func (b *Body) Carried(content grid.Content) int {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	return b.carried[content]
}

func (b *Body) Energy() int {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	return b.energy
}

// emit sends events after the world lock is released.
func (b *Body) emit(sink grid.EventSink, events []grid.Event) {
	if sink == nil {
		return
	}
	for _, e := range events {
		sink.RecordEvent(e)
	}
}

// spend takes cost energy or reports that the body is exhausted. Caller holds w.mu.
func (b *Body) spend(op string, cost int) *ActionError {
	if b.energy < cost {
		return noResource(op, "energy %d below cost %d", b.energy, cost)
	}
	b.energy -= cost
	return nil
}

func (b *Body) Sense() (grid.View, error) {
	b.w.mu.Lock()
	v := grid.NewView(b.pos)
	if err := b.spend("sense", costSense); err != nil {
		b.w.mu.Unlock()
		return v, err
	}
	r := b.w.cfg.SenseRadius
	for dr := -r; dr <= r; dr++ {
		for dc := -r; dc <= r; dc++ {
			off := grid.Offset{DRow: dr, DCol: dc}
			c := b.pos.Add(off)
			if b.w.inBounds(c) {
				v.Cells[off] = b.w.cells[c.Row][c.Col]
			}
		}
	}
	sink, pos := b.sink, b.pos
	b.w.mu.Unlock()
	b.emit(sink, []grid.Event{{Kind: grid.EventSensed, At: pos, Amount: v.Len()}})
	return v, nil
}

// SenseDirection looks along a straight beam. The beam stops at the first
// cell that cannot be walked through or at the grid edge; both cases return
// the cells seen so far together with an error. distance is capped at the
// larger grid dimension.
func (b *Body) SenseDirection(d grid.Direction, distance int) (grid.View, error) {
	b.w.mu.Lock()
	v := grid.NewView(b.pos)
	if d == grid.None {
		b.w.mu.Unlock()
		return v, badRequest("sense_dir", "no direction")
	}
	if distance < 0 {
		b.w.mu.Unlock()
		return v, badRequest("sense_dir", "distance %d", distance)
	}
	distance = min(distance, max(b.w.cfg.Rows, b.w.cfg.Cols))
	if err := b.spend("sense_dir", costSense); err != nil {
		b.w.mu.Unlock()
		return v, err
	}
	v.Cells[grid.Offset{}] = b.w.cells[b.pos.Row][b.pos.Col]
	var err *ActionError
	cur := b.pos
	for i := 1; i <= distance; i++ {
		cur = cur.Step(d)
		if !b.w.inBounds(cur) {
			err = invalidTarget("sense_dir", "beam %s left the grid after %d cells", d, i-1)
			break
		}
		cell := b.w.cells[cur.Row][cur.Col]
		v.Cells[grid.Offset{DRow: cur.Row - b.pos.Row, DCol: cur.Col - b.pos.Col}] = cell
		if !cell.Walkable() {
			if i < distance {
				err = blocked("sense_dir", "beam %s blocked by %s at %s", d, cell, cur)
			}
			break
		}
	}
	sink, pos := b.sink, b.pos
	b.w.mu.Unlock()
	b.emit(sink, []grid.Event{{Kind: grid.EventSensed, At: pos, Dir: d, Amount: v.Len()}})
	if err != nil {
		return v, err
	}
	return v, nil
}

func (b *Body) Move(d grid.Direction) error {
	b.w.mu.Lock()
	to := b.pos.Step(d)
	var (
		err    *ActionError
		events []grid.Event
	)
	switch {
	case d == grid.None:
		err = badRequest("move", "no direction")
	case !b.w.inBounds(to):
		err = blocked("move", "%s is outside the grid", to)
	case !b.w.cells[to.Row][to.Col].Walkable():
		err = blocked("move", "%s holds %s", to, b.w.cells[to.Row][to.Col])
	default:
		err = b.spend("move", costMove)
	}
	if err != nil {
		events = append(events, grid.Event{Kind: grid.EventBlocked, At: b.pos, Dir: d, Detail: err.Msg})
	} else {
		b.pos = to
		events = append(events, grid.Event{Kind: grid.EventMoved, At: to, Dir: d})
	}
	sink := b.sink
	b.w.mu.Unlock()
	b.emit(sink, events)
	if err != nil {
		return err
	}
	return nil
}

// Destroy clears fire or picks up garbage in the adjacent cell.
func (b *Body) Destroy(d grid.Direction) error {
	b.w.mu.Lock()
	at := b.pos.Step(d)
	var (
		err    *ActionError
		events []grid.Event
	)
	if !b.w.inBounds(at) {
		err = invalidTarget("destroy", "%s is outside the grid", at)
	} else {
		cell := b.w.cells[at.Row][at.Col]
		switch cell.Content {
		case grid.Fire, grid.Garbage:
			if err = b.spend("destroy", costDestroy); err == nil {
				if cell.Content == grid.Garbage {
					b.carried[grid.Garbage] += cell.Amount
				}
				b.w.cells[at.Row][at.Col] = grid.Cell{}
				events = append(events, grid.Event{Kind: grid.EventDestroyed, At: at, Dir: d, Amount: cell.Amount, Detail: cell.Content.String()})
			}
		default:
			err = invalidTarget("destroy", "nothing to destroy at %s (%s)", at, cell)
		}
	}
	sink := b.sink
	b.w.mu.Unlock()
	b.emit(sink, events)
	if err != nil {
		return err
	}
	return nil
}

// Deposit moves up to n units of content into an adjacent bin.
func (b *Body) Deposit(d grid.Direction, content grid.Content, n int) error {
	b.w.mu.Lock()
	at := b.pos.Step(d)
	var (
		err    *ActionError
		events []grid.Event
	)
	switch {
	case content != grid.Garbage:
		err = badRequest("deposit", "bins only take garbage, got %s", content)
	case n <= 0:
		err = badRequest("deposit", "amount %d", n)
	case b.carried[content] < n:
		err = noResource("deposit", "carrying %d, asked for %d", b.carried[content], n)
	case !b.w.inBounds(at):
		err = invalidTarget("deposit", "%s is outside the grid", at)
	case b.w.cells[at.Row][at.Col].Content != grid.Bin:
		err = invalidTarget("deposit", "%s is not a bin", at)
	case b.w.cells[at.Row][at.Col].Capacity <= 0:
		err = invalidTarget("deposit", "bin at %s is full", at)
	default:
		err = b.spend("deposit", costDeposit)
	}
	if err == nil {
		cell := b.w.cells[at.Row][at.Col]
		moved := min(n, cell.Capacity)
		cell.Capacity -= moved
		b.w.cells[at.Row][at.Col] = cell
		b.carried[content] -= moved
		events = append(events, grid.Event{Kind: grid.EventDeposited, At: at, Dir: d, Amount: moved, Detail: content.String()})
	}
	sink := b.sink
	b.w.mu.Unlock()
	b.emit(sink, events)
	if err != nil {
		return err
	}
	return nil
}

// Teleport relocates the body between two active teleports.
func (b *Body) Teleport(to grid.Coordinate) error {
	b.w.mu.Lock()
	var (
		err    *ActionError
		events []grid.Event
	)
	from := b.pos
	here := b.w.cells[from.Row][from.Col]
	switch {
	case here.Content != grid.Teleport || !here.Active:
		err = invalidTarget("teleport", "no active teleport at %s", from)
	case !b.w.inBounds(to):
		err = invalidTarget("teleport", "%s is outside the grid", to)
	case b.w.cells[to.Row][to.Col].Content != grid.Teleport || !b.w.cells[to.Row][to.Col].Active:
		err = invalidTarget("teleport", "no active teleport at %s", to)
	default:
		err = b.spend("teleport", costTeleport)
	}
	if err == nil {
		b.pos = to
		events = append(events, grid.Event{Kind: grid.EventTeleported, At: to, Detail: from.String()})
	}
	sink := b.sink
	b.w.mu.Unlock()
	b.emit(sink, events)
	if err != nil {
		return err
	}
	return nil
}

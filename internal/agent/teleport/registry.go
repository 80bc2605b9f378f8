package teleport

import (
	"github.com/zyedidia/generic/mapset"

	"gridbot.ai/internal/grid"
)

type bucket struct {
	set   mapset.Set[grid.Coordinate]
	order []grid.Coordinate
}

// Registry remembers teleport coordinates by activation state. It only grows.
type Registry struct {
	byState map[bool]*bucket
}

func NewRegistry() *Registry {
	return &Registry{byState: map[bool]*bucket{
		true:  {set: mapset.New[grid.Coordinate]()},
		false: {set: mapset.New[grid.Coordinate]()},
	}}
}

// Add registers c under the given activation state. Repeated adds are no-ops.
func (r *Registry) Add(active bool, c grid.Coordinate) bool {
	b := r.byState[active]
	if b.set.Has(c) {
		return false
	}
	b.set.Put(c)
	b.order = append(b.order, c)
	return true
}

func (r *Registry) Has(active bool, c grid.Coordinate) bool {
	return r.byState[active].set.Has(c)
}

// Known returns the registered coordinates in registration order.
func (r *Registry) Known(active bool) []grid.Coordinate {
	b := r.byState[active]
	out := make([]grid.Coordinate, len(b.order))
	copy(out, b.order)
	return out
}

func (r *Registry) Count(active bool) int { return len(r.byState[active].order) }

// Shortcut returns another active teleport when at is itself a known active
// teleport. With more than two known the first registered one other than at
// wins, so the pick depends on discovery order.
func (r *Registry) Shortcut(at grid.Coordinate) (grid.Coordinate, bool) {
	b := r.byState[true]
	if !b.set.Has(at) {
		return grid.Coordinate{}, false
	}
	for _, c := range b.order {
		if c != at {
			return c, true
		}
	}
	return grid.Coordinate{}, false
}

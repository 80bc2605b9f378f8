package grid

import "sort"

// View is a partial observation anchored at the agent's absolute coordinate.
// A missing offset means the cell is unknown or out of bounds.
type View struct {
	Anchor Coordinate
	Cells  map[Offset]Cell
}

func NewView(anchor Coordinate) View {
	return View{Anchor: anchor, Cells: make(map[Offset]Cell)}
}

func (v View) Len() int { return len(v.Cells) }

// Offsets returns the known offsets in row-major order so callers iterate deterministically.
func (v View) Offsets() []Offset {
	out := make([]Offset, 0, len(v.Cells))
	for o := range v.Cells {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DRow != out[j].DRow {
			return out[i].DRow < out[j].DRow
		}
		return out[i].DCol < out[j].DCol
	})
	return out
}

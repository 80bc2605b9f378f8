package grid

import "fmt"

// Coordinate is an absolute (row, col) position on the grid.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Offset is a position relative to a view anchor.
type Offset struct {
	DRow int `json:"drow"`
	DCol int `json:"dcol"`
}

func (c Coordinate) Add(o Offset) Coordinate {
	return Coordinate{Row: c.Row + o.DRow, Col: c.Col + o.DCol}
}

func (c Coordinate) Step(d Direction) Coordinate { return c.Add(d.Offset()) }

// Valid reports whether c lies in the non-negative quadrant.
func (c Coordinate) Valid() bool { return c.Row >= 0 && c.Col >= 0 }

func (c Coordinate) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Manhattan returns |dr|+|dc| between a and b.
func Manhattan(a, b Coordinate) int {
	return AbsInt(a.Row-b.Row) + AbsInt(a.Col-b.Col)
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

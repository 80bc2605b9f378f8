package grid

import "fmt"

type Direction uint8

// Declaration order after None is the fixed scan order used for tie breaks.
const (
	None Direction = iota
	Left
	Right
	Up
	Down
)

// Cardinal lists the four directions in scan order.
var Cardinal = [4]Direction{Left, Right, Up, Down}

var directionNames = map[Direction]string{
	None:  "NONE",
	Left:  "LEFT",
	Right: "RIGHT",
	Up:    "UP",
	Down:  "DOWN",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	default:
		return None
	}
}

// Offset is the unit step for d. Up decreases the row.
func (d Direction) Offset() Offset {
	switch d {
	case Left:
		return Offset{DCol: -1}
	case Right:
		return Offset{DCol: 1}
	case Up:
		return Offset{DRow: -1}
	case Down:
		return Offset{DRow: 1}
	default:
		return Offset{}
	}
}

func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return None, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

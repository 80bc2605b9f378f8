// Package navigate turns an agent position and a target into a single step.
//
// The heuristic is greedy and keeps no state: rows are closed first while the
// target is more than one row away, then columns. A diagonally adjacent target
// is resolved on the column axis. Once the target is orthogonally adjacent the
// decision becomes an action in that direction. A failed move is not planned
// around; the caller simply asks again on the next tick.
package navigate

import (
	"errors"
	"fmt"

	"gridbot.ai/internal/grid"
)

// ErrUndetermined is returned when no step can be derived, i.e. the agent
// already stands on the target.
var ErrUndetermined = errors.New("navigation undetermined")

type Kind uint8

const (
	Move Kind = iota + 1
	Act
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "MOVE"
	case Act:
		return "ACT"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type Decision struct {
	Kind Kind
	Dir  grid.Direction
}

func (d Decision) String() string { return fmt.Sprintf("%s(%s)", d.Kind, d.Dir) }

// Step decides the next move or action to get from `from` to `to`.
func Step(from, to grid.Coordinate) (Decision, error) {
	rowDelta := from.Row - to.Row
	colDelta := to.Col - from.Col
	absRow := grid.AbsInt(rowDelta)
	absCol := grid.AbsInt(colDelta)

	switch {
	case absRow > 1:
		return Decision{Kind: Move, Dir: vertical(rowDelta)}, nil
	case absCol > 1:
		return Decision{Kind: Move, Dir: horizontal(colDelta)}, nil
	case absRow == 1 && absCol == 1:
		return Decision{Kind: Move, Dir: horizontal(colDelta)}, nil
	case absRow == 1:
		return Decision{Kind: Act, Dir: vertical(rowDelta)}, nil
	case absCol == 1:
		return Decision{Kind: Act, Dir: horizontal(colDelta)}, nil
	default:
		return Decision{}, fmt.Errorf("%w: agent at %s is on target %s", ErrUndetermined, from, to)
	}
}

// rowDelta is agentRow - targetRow, so a positive delta means the target is above.
func vertical(rowDelta int) grid.Direction {
	if rowDelta > 0 {
		return grid.Up
	}
	return grid.Down
}

func horizontal(colDelta int) grid.Direction {
	if colDelta > 0 {
		return grid.Right
	}
	return grid.Left
}

// Path replays Step from `from` assuming every move succeeds and returns the
// visited positions and the final act decision. It is used to inspect routes
// in debug output and tests; it never touches a world.
func Path(from, to grid.Coordinate) ([]grid.Coordinate, Decision, error) {
	var path []grid.Coordinate
	cur := from
	limit := grid.Manhattan(from, to) + 1
	for i := 0; i <= limit; i++ {
		d, err := Step(cur, to)
		if err != nil {
			return path, Decision{}, err
		}
		if d.Kind == Act {
			return path, d, nil
		}
		cur = cur.Step(d.Dir)
		path = append(path, cur)
	}
	return path, Decision{}, fmt.Errorf("%w: no convergence from %s to %s", ErrUndetermined, from, to)
}

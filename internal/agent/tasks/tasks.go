package tasks

import (
	"fmt"

	"gridbot.ai/internal/grid"
)

type Action uint8

const (
	ExtinguishFire Action = iota + 1
	ClearGarbage
	DepositGarbage
)

// Priority is a pure function of the action.
func (a Action) Priority() int {
	switch a {
	case ExtinguishFire:
		return 100
	case ClearGarbage:
		return 50
	case DepositGarbage:
		return 1
	default:
		return 0
	}
}

func (a Action) String() string {
	switch a {
	case ExtinguishFire:
		return "EXTINGUISH_FIRE"
	case ClearGarbage:
		return "CLEAR_GARBAGE"
	case DepositGarbage:
		return "DEPOSIT_GARBAGE"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	for _, v := range []Action{ExtinguishFire, ClearGarbage, DepositGarbage} {
		if v.String() == string(b) {
			*a = v
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", string(b))
}

type Task struct {
	Action Action          `json:"action"`
	Target grid.Coordinate `json:"target"`
}

func (t Task) Priority() int { return t.Action.Priority() }

func (t Task) String() string { return fmt.Sprintf("%s@%s", t.Action, t.Target) }

package grid

import "fmt"

type Content uint8

const (
	Empty Content = iota
	Garbage
	Fire
	Bin
	Teleport
	Other
)

var contentNames = map[Content]string{
	Empty:    "EMPTY",
	Garbage:  "GARBAGE",
	Fire:     "FIRE",
	Bin:      "BIN",
	Teleport: "TELEPORT",
	Other:    "OTHER",
}

func (c Content) String() string {
	if s, ok := contentNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Content(%d)", uint8(c))
}

func ParseContent(s string) (Content, error) {
	for c, name := range contentNames {
		if name == s {
			return c, nil
		}
	}
	return Empty, fmt.Errorf("unknown content %q", s)
}

func (c Content) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Content) UnmarshalText(b []byte) error {
	v, err := ParseContent(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Cell is the content of one grid location as seen by the agent.
//
// Amount is only meaningful for Garbage, Capacity for Bin and Active for Teleport.
type Cell struct {
	Content  Content `json:"content"`
	Amount   int     `json:"amount,omitempty"`
	Capacity int     `json:"capacity,omitempty"`
	Active   bool    `json:"active,omitempty"`
}

// Walkable reports whether an agent may step onto the cell.
func (c Cell) Walkable() bool {
	return c.Content == Empty || c.Content == Teleport
}

func (c Cell) String() string {
	switch c.Content {
	case Garbage:
		return fmt.Sprintf("GARBAGE(%d)", c.Amount)
	case Bin:
		return fmt.Sprintf("BIN(%d)", c.Capacity)
	case Teleport:
		return fmt.Sprintf("TELEPORT(%t)", c.Active)
	default:
		return c.Content.String()
	}
}

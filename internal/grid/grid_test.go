package grid

import (
	"encoding/json"
	"testing"
)

func TestDirectionOffsets(t *testing.T) {
	at := Coordinate{Row: 5, Col: 5}
	cases := map[Direction]Coordinate{
		Up:    {Row: 4, Col: 5},
		Down:  {Row: 6, Col: 5},
		Left:  {Row: 5, Col: 4},
		Right: {Row: 5, Col: 6},
		None:  {Row: 5, Col: 5},
	}
	for d, want := range cases {
		if got := at.Step(d); got != want {
			t.Fatalf("%s: got %s want %s", d, got, want)
		}
	}
	for _, d := range Cardinal {
		if d.Opposite().Opposite() != d {
			t.Fatalf("%s: opposite is not an involution", d)
		}
		if got := at.Step(d).Step(d.Opposite()); got != at {
			t.Fatalf("%s then %s: got %s", d, d.Opposite(), got)
		}
	}
}

func TestCardinalScanOrder(t *testing.T) {
	want := [4]Direction{Left, Right, Up, Down}
	if Cardinal != want {
		t.Fatalf("scan order changed: %v", Cardinal)
	}
}

func TestDirectionText(t *testing.T) {
	for _, d := range Cardinal {
		b, err := d.MarshalText()
		if err != nil {
			t.Fatalf("marshal %s: %v", d, err)
		}
		var got Direction
		if err := got.UnmarshalText(b); err != nil || got != d {
			t.Fatalf("round trip %s: got %s err %v", d, got, err)
		}
	}
	var d Direction
	if err := d.UnmarshalText([]byte("NORTH")); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestCellWalkable(t *testing.T) {
	walkable := map[Content]bool{
		Empty: true, Teleport: true,
		Garbage: false, Fire: false, Bin: false, Other: false,
	}
	for c, want := range walkable {
		if got := (Cell{Content: c}).Walkable(); got != want {
			t.Fatalf("%s walkable=%v want %v", c, got, want)
		}
	}
}

func TestEventJSONOmitsNoDirection(t *testing.T) {
	b, err := json.Marshal(Event{Kind: EventSensed, At: Coordinate{Row: 1, Col: 2}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `{"kind":"SENSED","at":{"row":1,"col":2}}`; got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	var e Event
	if err := json.Unmarshal([]byte(`{"kind":"MOVED","at":{"row":0,"col":1},"dir":"RIGHT"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Dir != Right || e.At != (Coordinate{Row: 0, Col: 1}) {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestViewOffsetsRowMajor(t *testing.T) {
	v := NewView(Coordinate{Row: 3, Col: 3})
	for _, o := range []Offset{{DRow: 1, DCol: -1}, {DRow: -1, DCol: 1}, {DRow: 0, DCol: 0}, {DRow: -1, DCol: -1}} {
		v.Cells[o] = Cell{}
	}
	got := v.Offsets()
	want := []Offset{{DRow: -1, DCol: -1}, {DRow: -1, DCol: 1}, {DRow: 0, DCol: 0}, {DRow: 1, DCol: -1}}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offset %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestManhattan(t *testing.T) {
	if got := Manhattan(Coordinate{Row: 1, Col: 5}, Coordinate{Row: 4, Col: 1}); got != 7 {
		t.Fatalf("got %d want 7", got)
	}
}

package grid

type EventKind string

const (
	EventMoved      EventKind = "MOVED"
	EventBlocked    EventKind = "BLOCKED"
	EventDestroyed  EventKind = "DESTROYED"
	EventDeposited  EventKind = "DEPOSITED"
	EventTeleported EventKind = "TELEPORTED"
	EventSensed     EventKind = "SENSED"
	EventEnergy     EventKind = "ENERGY"
)

// Event is something the world observed while serving an agent request.
type Event struct {
	Kind   EventKind  `json:"kind"`
	At     Coordinate `json:"at"`
	Dir    Direction  `json:"dir,omitempty"`
	Amount int        `json:"amount,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

// EventSink receives world events as they happen.
type EventSink interface {
	RecordEvent(e Event)
}

package agent

import "gridbot.ai/internal/grid"

// World is the simulation collaborator the agent acts through. Every call is
// synchronous; a non-nil error means the world rejected the request.
type World interface {
	// Sense returns the square view around the agent.
	Sense() (grid.View, error)
	// SenseDirection returns a beam of cells in d. A partial view may be
	// returned together with an error when the beam is blocked.
	SenseDirection(d grid.Direction, distance int) (grid.View, error)

	Move(d grid.Direction) error
	Destroy(d grid.Direction) error
	Deposit(d grid.Direction, content grid.Content, n int) error
	Teleport(to grid.Coordinate) error

	Position() grid.Coordinate
	Carried(content grid.Content) int
	Energy() int
}

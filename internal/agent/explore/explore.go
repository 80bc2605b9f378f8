package explore

import "gridbot.ai/internal/grid"

// Source is the random source used for direction scores. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

const (
	fullRange     = 100
	reversedRange = 50
)

// Choose draws a score in [0,100) for every cardinal direction, except the
// reverse of prev which draws from [0,50). The highest score wins; ties go to
// the earlier direction in scan order.
func Choose(prev grid.Direction, rng Source) grid.Direction {
	reversed := prev.Opposite()
	best := grid.None
	bestScore := -1
	for _, d := range grid.Cardinal {
		n := fullRange
		if d == reversed {
			n = reversedRange
		}
		score := rng.IntN(n)
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

// Memory keeps the last movement and the last directional scan. The two are
// independent of each other.
type Memory struct {
	LastMove grid.Direction
	LastScan grid.Direction
}

type Director struct {
	rng Source
	mem Memory
}

func NewDirector(rng Source) *Director {
	return &Director{rng: rng}
}

func (d *Director) NextMove() grid.Direction { return Choose(d.mem.LastMove, d.rng) }

func (d *Director) NextScan() grid.Direction { return Choose(d.mem.LastScan, d.rng) }

func (d *Director) RecordMove(dir grid.Direction) { d.mem.LastMove = dir }

func (d *Director) RecordScan(dir grid.Direction) { d.mem.LastScan = dir }

func (d *Director) Memory() Memory { return d.mem }

// Package astar computes routes across an occupancy grid using A* search on
// an eight-connected lattice. Searches run either to completion (Search) or in
// time-boxed slices that resume across calls (Searcher.Step).
package astar

import (
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
)

const (
	// BaseStepCost is the cost of a cardinal move.
	BaseStepCost = 10
	// DiagonalSurcharge is added to BaseStepCost for diagonal moves.
	DiagonalSurcharge = 5
)

type neighbor struct {
	dx, dy   int
	cost     int
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{dx: 0, dy: -1, cost: BaseStepCost},
	{dx: 1, dy: 0, cost: BaseStepCost},
	{dx: 0, dy: 1, cost: BaseStepCost},
	{dx: -1, dy: 0, cost: BaseStepCost},
	{dx: 1, dy: -1, cost: BaseStepCost + DiagonalSurcharge, diagonal: true},
	{dx: 1, dy: 1, cost: BaseStepCost + DiagonalSurcharge, diagonal: true},
	{dx: -1, dy: 1, cost: BaseStepCost + DiagonalSurcharge, diagonal: true},
	{dx: -1, dy: -1, cost: BaseStepCost + DiagonalSurcharge, diagonal: true},
}

// heuristic is the Chebyshev distance scaled by the cardinal step cost. It
// never exceeds the true remaining cost under the step costs above.
func heuristic(a, b grid.Cell) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx * BaseStepCost
	}
	return dy * BaseStepCost
}

// Clock supplies the time used to enforce slice budgets.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type config struct {
	clock      Clock
	nodeLimit  int
	cornerCuts bool
}

// Option customises a Searcher.
type Option func(*config)

// WithClock replaces the wall clock used for slice budgets.
func WithClock(clock Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithNodeLimit caps the number of nodes a single search may allocate. A
// search that needs more fails with path.ErrMemory. Zero disables the cap.
func WithNodeLimit(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.nodeLimit = n
		}
	}
}

// WithoutCornerCutting only allows a diagonal move when both cardinal cells
// it passes between are free.
func WithoutCornerCutting() Option {
	return func(c *config) {
		c.cornerCuts = false
	}
}

// Search runs a complete search from origin to destination and writes the
// route into p. On failure p is left untouched.
func Search(origin, destination geom.Vec2, g grid.Occupancy, p *path.Path, opts ...Option) error {
	s := NewSearcher(opts...)
	return s.Step(origin, destination, g, p, 0)
}

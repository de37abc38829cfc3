package agent

import (
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
)

// UpdateBody runs the movement half of a tick, moving the agent by at most
// Speed*dt world units.
func (a *Agent) UpdateBody(env Env, dt time.Duration) {
	step := a.Speed * dt.Seconds()
	if step <= 0 {
		return
	}
	switch a.Movement {
	case MovementDeterministic:
		a.follow(a.patrol, step)
	case MovementPattern:
		a.stepPattern(env.Grid, step)
	case MovementRandom, MovementTracking, MovementPathfinding:
		if a.mind == MindFollowing && !a.arrived {
			a.arrived = a.follow(a.route, step)
		}
	}
}

// follow walks p, snapping onto each waypoint it reaches within the step.
// It reports true once p has no further points.
func (a *Agent) follow(p *path.Path, step float64) bool {
	if p == nil || !p.IsReady() {
		return true
	}
	// Bounded so a path of coincident points cannot spin forever.
	for i := 0; i <= p.Len() && step > 0; i++ {
		if !a.hasWaypoint {
			wp, ok := p.NextPoint()
			if !ok {
				return true
			}
			a.waypoint = wp
			a.hasWaypoint = true
		}
		dist := a.Position.Dist(a.waypoint)
		if dist <= step {
			a.Position = a.waypoint
			a.hasWaypoint = false
			step -= dist
			continue
		}
		a.Position = a.Position.Add(a.waypoint.Sub(a.Position).Normalize().Scale(step))
		return false
	}
	return false
}

func (a *Agent) stepPattern(g grid.Occupancy, step float64) {
	if len(a.pattern) == 0 {
		return
	}
	current := a.pattern[a.patternIndex%len(a.pattern)]
	next := a.Position.Add(current.Direction.Normalize().Scale(step))
	if g == nil || !occupiedAt(g, next) {
		a.Position = next
	}
	a.patternTicks++
	if a.patternTicks >= current.Ticks {
		a.patternTicks = 0
		a.patternIndex = (a.patternIndex + 1) % len(a.pattern)
	}
}

func occupiedAt(g grid.Occupancy, world geom.Vec2) bool {
	c := grid.CellOf(g, world)
	return g.IsOccupied(c.X, c.Y)
}

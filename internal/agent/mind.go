package agent

import (
	"context"
	"math"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/coordinator"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	loggingpathfinding "github.com/martinezcajm/ArtificialIntelligenceProject/logging/pathfinding"
)

// MindState is the route negotiation state of a mover.
type MindState uint8

const (
	// MindIdle has no route and will pick a goal.
	MindIdle MindState = iota
	// MindRequesting has a request posted to the coordinator.
	MindRequesting
	// MindFollowing walks an installed route.
	MindFollowing
	// MindWaiting backs off after a failed request.
	MindWaiting
)

func (s MindState) String() string {
	switch s {
	case MindIdle:
		return "idle"
	case MindRequesting:
		return "requesting"
	case MindFollowing:
		return "following"
	case MindWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// UpdateMind runs the decision half of a tick. It must run before the
// coordinator update of the same tick so requests posted here are seen.
func (a *Agent) UpdateMind(ctx context.Context, env Env) {
	if !a.Movement.UsesPlanner() || env.Planner == nil {
		return
	}

	switch a.mind {
	case MindIdle:
		a.chooseGoal(ctx, env)
	case MindRequesting:
		a.awaitResponse(ctx, env)
	case MindFollowing:
		if a.arrived {
			a.finishGoal()
			a.chooseGoal(ctx, env)
			return
		}
		if a.Movement == MovementTracking && !a.hasWaypoint {
			if pos, ok := a.locateTarget(env); ok && a.drifted(env.Grid, pos) {
				a.request(ctx, env, pos)
			}
		}
	case MindWaiting:
		if env.Tick >= a.retryAt {
			a.mind = MindIdle
			a.chooseGoal(ctx, env)
		}
	}
}

func (a *Agent) chooseGoal(ctx context.Context, env Env) {
	var (
		goal geom.Vec2
		ok   bool
	)
	switch a.Movement {
	case MovementPathfinding:
		goal, ok = a.nextGoal()
	case MovementRandom:
		goal, ok = a.randomGoal(env.Grid)
	case MovementTracking:
		goal, ok = a.locateTarget(env)
		if ok && grid.CellOf(env.Grid, goal) == grid.CellOf(env.Grid, a.Position) {
			ok = false
		}
	}
	if !ok {
		return
	}
	a.request(ctx, env, goal)
}

func (a *Agent) request(ctx context.Context, env Env, goal geom.Vec2) {
	requested := path.New()
	err := env.Planner.Send(ctx, env.Tick, coordinator.Request{
		From:        a.ID,
		Origin:      a.Position,
		Destination: goal,
		Path:        requested,
	})
	if err != nil {
		a.lastCode = path.CodeOf(err)
		a.backOff(env.Tick)
		return
	}
	a.goal = goal
	a.hasGoal = true
	a.requested = requested
	a.mind = MindRequesting
}

func (a *Agent) awaitResponse(ctx context.Context, env Env) {
	resp, ok := env.Planner.Poll(a.ID)
	if !ok {
		return
	}
	if resp.Path != a.requested {
		return
	}
	a.requested = nil
	a.lastCode = resp.Code
	if resp.Status != coordinator.StatusReady {
		a.backOff(env.Tick)
		return
	}
	a.route = resp.Path
	a.hasWaypoint = false
	a.arrived = false
	a.mind = MindFollowing
	loggingpathfinding.PathInstalled(ctx, env.Publisher, env.Tick, logging.Agent(a.ID), loggingpathfinding.InstalledPayload{
		Points: resp.Path.Len(),
	})
}

func (a *Agent) backOff(tick uint64) {
	if a.Movement == MovementPathfinding && a.lastCode != path.ErrPathNotFound {
		// Only unreachable goals are retried; invalid ones are skipped.
		a.finishGoal()
	}
	a.hasGoal = false
	a.mind = MindWaiting
	a.retryAt = tick + a.retryCooldown
}

func (a *Agent) finishGoal() {
	a.route = nil
	a.hasWaypoint = false
	a.arrived = false
	a.hasGoal = false
	a.mind = MindIdle
	if a.Movement != MovementPathfinding || len(a.goals) == 0 {
		return
	}
	a.goalIndex++
	if a.goalIndex >= len(a.goals) {
		if a.loopGoals {
			a.goalIndex = 0
		} else {
			a.goals = nil
			a.goalIndex = 0
		}
	}
}

func (a *Agent) nextGoal() (geom.Vec2, bool) {
	if a.goalIndex >= len(a.goals) {
		return geom.Vec2{}, false
	}
	return a.goals[a.goalIndex], true
}

func (a *Agent) randomGoal(g grid.Occupancy) (geom.Vec2, bool) {
	m, ok := g.(interface{ FreeCells() []grid.Cell })
	if !ok {
		return geom.Vec2{}, false
	}
	free := m.FreeCells()
	if len(free) == 0 {
		return geom.Vec2{}, false
	}
	here := grid.CellOf(g, a.Position)
	for attempt := 0; attempt < 4; attempt++ {
		cell := free[a.rng.Intn(len(free))]
		if cell != here {
			return grid.WorldOf(g, cell), true
		}
	}
	return geom.Vec2{}, false
}

func (a *Agent) locateTarget(env Env) (geom.Vec2, bool) {
	if env.Locate == nil || a.target == "" {
		return geom.Vec2{}, false
	}
	return env.Locate(a.target)
}

func (a *Agent) drifted(g grid.Occupancy, target geom.Vec2) bool {
	if !a.hasGoal {
		return true
	}
	from := grid.CellOf(g, a.goal)
	to := grid.CellOf(g, target)
	dx := math.Abs(float64(from.X - to.X))
	dy := math.Abs(float64(from.Y - to.Y))
	return math.Max(dx, dy) >= DefaultReplanCells
}

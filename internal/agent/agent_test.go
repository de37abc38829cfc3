package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/coordinator"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
	loggingpathfinding "github.com/martinezcajm/ArtificialIntelligenceProject/logging/pathfinding"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging/sinks"
)

type harness struct {
	t      *testing.T
	grid   *grid.Map
	coord  *coordinator.Coordinator
	agents []*Agent
	events *sinks.MemorySink
	tick   uint64
}

func newHarness(t *testing.T, rows ...string) *harness {
	t.Helper()
	m, err := grid.FromRows(rows, geom.V(1, 1))
	require.NoError(t, err)
	events := sinks.NewMemorySink()
	return &harness{
		t:      t,
		grid:   m,
		coord:  coordinator.New(m, coordinator.WithPublisher(events)),
		events: events,
	}
}

func (h *harness) add(cfg Config) *Agent {
	h.t.Helper()
	a, err := New(cfg)
	require.NoError(h.t, err)
	require.NoError(h.t, h.coord.Register(a.ID))
	h.agents = append(h.agents, a)
	return a
}

func (h *harness) env() Env {
	return Env{
		Tick:      h.tick,
		Grid:      h.grid,
		Planner:   h.coord,
		Publisher: h.events,
		Locate: func(id string) (geom.Vec2, bool) {
			for _, a := range h.agents {
				if a.ID == id {
					return a.Position, true
				}
			}
			return geom.Vec2{}, false
		},
	}
}

func (h *harness) step() {
	h.tick++
	ctx := context.Background()
	env := h.env()
	for _, a := range h.agents {
		a.UpdateMind(ctx, env)
	}
	h.coord.Update(ctx, h.tick)
	for _, a := range h.agents {
		a.UpdateBody(env, 100*time.Millisecond)
	}
}

func TestParseMovement(t *testing.T) {
	for _, m := range []Movement{MovementStop, MovementDeterministic, MovementRandom, MovementTracking, MovementPattern, MovementPathfinding} {
		parsed, err := ParseMovement(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseMovement("teleport")
	assert.Error(t, err)
}

func TestNewValidatesMovementSettings(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{ID: "p", Movement: MovementDeterministic})
	assert.ErrorIs(t, err, path.ErrIncorrectPointsNumber)
	_, err = New(Config{ID: "t", Movement: MovementTracking})
	assert.Error(t, err)
	_, err = New(Config{ID: "s", Movement: MovementPattern})
	assert.Error(t, err)
}

func TestDeterministicPatrolWalksWaypoints(t *testing.T) {
	a, err := New(Config{
		ID:        "guard",
		Speed:     1,
		Movement:  MovementDeterministic,
		Waypoints: []geom.Vec2{geom.V(0, 0), geom.V(2, 0)},
	})
	require.NoError(t, err)

	env := Env{}
	a.UpdateBody(env, time.Second)
	assert.Equal(t, geom.V(1, 0), a.Position)
	assert.Equal(t, []geom.Vec2{geom.V(2, 0)}, a.Route())

	a.UpdateBody(env, time.Second)
	a.UpdateBody(env, time.Second)
	assert.Equal(t, geom.V(2, 0), a.Position)
}

func TestDeterministicPatrolLoops(t *testing.T) {
	a, err := New(Config{
		ID:        "guard",
		Speed:     1,
		Movement:  MovementDeterministic,
		Waypoints: []geom.Vec2{geom.V(0, 0), geom.V(1, 0)},
		Loops:     path.LoopInfinite,
	})
	require.NoError(t, err)

	var seen []geom.Vec2
	for i := 0; i < 4; i++ {
		a.UpdateBody(Env{}, time.Second)
		seen = append(seen, a.Position)
	}
	assert.Equal(t, []geom.Vec2{geom.V(1, 0), geom.V(0, 0), geom.V(1, 0), geom.V(0, 0)}, seen)
}

func TestPatternRespectsObstacles(t *testing.T) {
	m, err := grid.FromRows([]string{
		"...",
		"..#",
	}, geom.V(1, 1))
	require.NoError(t, err)
	a, err := New(Config{
		ID:       "dancer",
		Position: geom.V(0.5, 1.5),
		Speed:    1,
		Movement: MovementPattern,
		Pattern: []PatternStep{
			{Direction: geom.V(1, 0), Ticks: 2},
			{Direction: geom.V(0, -1), Ticks: 1},
		},
	})
	require.NoError(t, err)

	env := Env{Grid: m}
	a.UpdateBody(env, time.Second)
	assert.Equal(t, geom.V(1.5, 1.5), a.Position)
	a.UpdateBody(env, time.Second)
	assert.Equal(t, geom.V(1.5, 1.5), a.Position, "blocked by the obstacle")
	a.UpdateBody(env, time.Second)
	assert.Equal(t, geom.V(1.5, 0.5), a.Position)
}

func TestPathfindingMoverReachesGoal(t *testing.T) {
	h := newHarness(t,
		"..........",
		"..........",
	)
	a := h.add(Config{ID: "scout", Speed: 10, Movement: MovementPathfinding, Goals: []geom.Vec2{geom.V(3, 0)}})

	h.step()
	assert.Equal(t, MindRequesting, a.Mind())
	assert.Equal(t, geom.V(0, 0), a.Position)

	h.step()
	assert.Equal(t, MindFollowing, a.Mind())
	assert.Equal(t, geom.V(1, 0), a.Position)
	assert.Equal(t, []geom.Vec2{geom.V(2, 0), geom.V(3, 0)}, a.Route())
	require.Len(t, h.events.OfType(loggingpathfinding.EventPathInstalled), 1)

	for i := 0; i < 5; i++ {
		h.step()
	}
	assert.Equal(t, geom.V(3, 0), a.Position)
	assert.Equal(t, MindIdle, a.Mind())
	_, hasGoal := a.Goal()
	assert.False(t, hasGoal)
	assert.Equal(t, path.CodeOK, a.LastCode())
}

func TestPathfindingMoverCyclesLoopingGoals(t *testing.T) {
	h := newHarness(t, "......")
	a := h.add(Config{
		ID:        "ferry",
		Speed:     10,
		Movement:  MovementPathfinding,
		Goals:     []geom.Vec2{geom.V(2, 0), geom.V(0, 0)},
		LoopGoals: true,
	})

	var reachedFar bool
	for i := 0; i < 40; i++ {
		h.step()
		if a.Position == geom.V(2, 0) {
			reachedFar = true
		}
	}
	assert.True(t, reachedFar)
	assert.GreaterOrEqual(t, len(h.events.OfType(loggingpathfinding.EventPathInstalled)), 3)
}

func TestUnreachableGoalIsRetriedAfterCooldown(t *testing.T) {
	h := newHarness(t,
		"..#..",
		"..#..",
	)
	a := h.add(Config{ID: "scout", Movement: MovementPathfinding, Goals: []geom.Vec2{geom.V(4, 0)}, RetryCooldown: 3})

	h.step()
	h.step()
	assert.Equal(t, MindWaiting, a.Mind())
	assert.Equal(t, path.ErrPathNotFound, a.LastCode())

	h.step()
	h.step()
	assert.Equal(t, MindWaiting, a.Mind())
	h.step()
	assert.Equal(t, MindRequesting, a.Mind(), "retries once the cooldown elapsed")
}

func TestInvalidGoalIsSkipped(t *testing.T) {
	h := newHarness(t, "..#..")
	a := h.add(Config{
		ID:            "scout",
		Speed:         10,
		Movement:      MovementPathfinding,
		Goals:         []geom.Vec2{geom.V(2, 0), geom.V(1, 0)},
		RetryCooldown: 1,
	})

	for i := 0; i < 10; i++ {
		h.step()
	}
	assert.Equal(t, geom.V(1, 0), a.Position)
	assert.Equal(t, MindIdle, a.Mind())
}

func TestStaleResponseIsIgnoredAfterNewGoal(t *testing.T) {
	h := newHarness(t, "..........")
	a := h.add(Config{ID: "scout", Speed: 10, Movement: MovementPathfinding, Goals: []geom.Vec2{geom.V(9, 0)}})

	h.step()
	require.Equal(t, MindRequesting, a.Mind())

	a.SetGoal(geom.V(2, 0))
	h.step()
	h.step()
	goal, ok := a.Goal()
	require.True(t, ok)
	assert.Equal(t, geom.V(2, 0), goal)
	assert.Equal(t, MindFollowing, a.Mind())
	assert.Equal(t, geom.V(2, 0), a.Route()[len(a.Route())-1])
}

func TestTrackingRequestsRouteToTarget(t *testing.T) {
	h := newHarness(t,
		"........",
		"........",
	)
	h.add(Config{ID: "prey", Position: geom.V(6, 1), Movement: MovementStop})
	hunter := h.add(Config{ID: "hunter", Speed: 10, Movement: MovementTracking, Target: "prey"})

	h.step()
	goal, ok := hunter.Goal()
	require.True(t, ok)
	assert.Equal(t, geom.V(6, 1), goal)

	for i := 0; i < 12; i++ {
		h.step()
	}
	assert.Equal(t, geom.V(6, 1), hunter.Position)
}

func TestRandomMoverPicksFreeCells(t *testing.T) {
	h := newHarness(t,
		"....#",
		"#....",
	)
	a := h.add(Config{ID: "drifter", Speed: 10, Movement: MovementRandom, Seed: 42})

	for i := 0; i < 30; i++ {
		h.step()
		c := grid.CellOf(h.grid, a.Position)
		require.False(t, h.grid.IsOccupied(c.X, c.Y), "tick %d at %v", i, a.Position)
	}
	assert.NotEmpty(t, h.events.OfType(loggingpathfinding.EventPathInstalled))
}

func TestStopDropsRoute(t *testing.T) {
	h := newHarness(t, "......")
	a := h.add(Config{ID: "scout", Speed: 10, Movement: MovementPathfinding, Goals: []geom.Vec2{geom.V(5, 0)}})
	h.step()
	h.step()
	require.Equal(t, MindFollowing, a.Mind())

	a.Stop()
	before := a.Position
	h.step()
	assert.Equal(t, before, a.Position)
	assert.Equal(t, MovementStop, a.Movement)
	assert.Nil(t, a.Route())
}

// Package agent implements the movers of the simulation: their movement
// behaviours and the mind that negotiates routes with the path coordinator.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/coordinator"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

const (
	// DefaultSpeed is the travel speed in world units per second.
	DefaultSpeed = 5.0
	// DefaultRetryCooldown is the number of ticks a mover waits after a
	// failed request before asking again.
	DefaultRetryCooldown = 8
	// DefaultReplanCells is how far, in cells, a tracked target may drift
	// from the current goal before a new route is requested.
	DefaultReplanCells = 2
)

// Movement selects how a mover chooses where to go.
type Movement uint8

const (
	MovementStop Movement = iota
	MovementDeterministic
	MovementRandom
	MovementTracking
	MovementPattern
	MovementPathfinding
)

var movementNames = [...]string{
	MovementStop:          "stop",
	MovementDeterministic: "deterministic",
	MovementRandom:        "random",
	MovementTracking:      "tracking",
	MovementPattern:       "pattern",
	MovementPathfinding:   "pathfinding",
}

func (m Movement) String() string {
	if int(m) < len(movementNames) {
		return movementNames[m]
	}
	return "unknown"
}

// ParseMovement resolves a movement name as produced by Movement.String.
func ParseMovement(raw string) (Movement, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, candidate := range movementNames {
		if candidate == name {
			return Movement(i), nil
		}
	}
	return MovementStop, fmt.Errorf("unknown movement %q", raw)
}

// UsesPlanner reports whether the movement obtains its routes from the path
// coordinator.
func (m Movement) UsesPlanner() bool {
	return m == MovementRandom || m == MovementTracking || m == MovementPathfinding
}

// PatternStep moves the agent along Direction for Ticks ticks.
type PatternStep struct {
	Direction geom.Vec2
	Ticks     int
}

// Planner is the mailbox side of the path coordinator used by movers.
type Planner interface {
	Send(ctx context.Context, tick uint64, req coordinator.Request) error
	Poll(id string) (coordinator.Response, bool)
}

// Env is what a mover may observe and use during a tick.
type Env struct {
	Tick      uint64
	Grid      grid.Occupancy
	Planner   Planner
	Publisher logging.Publisher
	// Locate reports the position of another agent, used by tracking.
	Locate func(id string) (geom.Vec2, bool)
}

// Config describes a mover at construction time.
type Config struct {
	ID            string
	Position      geom.Vec2
	Speed         float64
	Movement      Movement
	Waypoints     []geom.Vec2
	Loops         int
	Goals         []geom.Vec2
	LoopGoals     bool
	Target        string
	Pattern       []PatternStep
	Seed          int64
	RetryCooldown uint64
}

// Agent is a single mover. It is owned by the simulation goroutine.
type Agent struct {
	ID       string
	Position geom.Vec2
	Speed    float64
	Movement Movement

	patrol *path.Path

	pattern      []PatternStep
	patternIndex int
	patternTicks int

	target string

	goals     []geom.Vec2
	goalIndex int
	loopGoals bool

	mind          MindState
	goal          geom.Vec2
	hasGoal       bool
	requested     *path.Path
	route         *path.Path
	waypoint      geom.Vec2
	hasWaypoint   bool
	arrived       bool
	retryAt       uint64
	retryCooldown uint64
	lastCode      path.Code

	rng *rand.Rand
}

// New constructs an agent. Deterministic movers need at least one waypoint.
func New(cfg Config) (*Agent, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}
	cooldown := cfg.RetryCooldown
	if cooldown == 0 {
		cooldown = DefaultRetryCooldown
	}
	a := &Agent{
		ID:            cfg.ID,
		Position:      cfg.Position,
		Speed:         speed,
		Movement:      cfg.Movement,
		pattern:       append([]PatternStep(nil), cfg.Pattern...),
		target:        cfg.Target,
		goals:         append([]geom.Vec2(nil), cfg.Goals...),
		loopGoals:     cfg.LoopGoals,
		retryCooldown: cooldown,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
	}
	if cfg.Movement == MovementDeterministic {
		patrol, err := buildPatrol(cfg.Waypoints, cfg.Loops)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", cfg.ID, err)
		}
		a.patrol = patrol
	}
	if cfg.Movement == MovementTracking && cfg.Target == "" {
		return nil, fmt.Errorf("agent %s: tracking requires a target", cfg.ID)
	}
	if cfg.Movement == MovementPattern && len(cfg.Pattern) == 0 {
		return nil, fmt.Errorf("agent %s: pattern requires at least one step", cfg.ID)
	}
	return a, nil
}

func buildPatrol(waypoints []geom.Vec2, loops int) (*path.Path, error) {
	p := path.New()
	if err := p.Create(len(waypoints)); err != nil {
		return nil, fmt.Errorf("patrol: %w", err)
	}
	for _, wp := range waypoints {
		if err := p.AddVec(wp); err != nil {
			return nil, fmt.Errorf("patrol: %w", err)
		}
	}
	if err := p.SetDirection(path.DirectionForward); err != nil {
		return nil, fmt.Errorf("patrol: %w", err)
	}
	if err := p.SetLoops(loops); err != nil {
		return nil, fmt.Errorf("patrol: %w", err)
	}
	if err := p.SetToReady(); err != nil {
		return nil, fmt.Errorf("patrol: %w", err)
	}
	return p, nil
}

// Mind reports the state of the route negotiation.
func (a *Agent) Mind() MindState {
	return a.mind
}

// Goal returns the destination of the current route, if any.
func (a *Agent) Goal() (geom.Vec2, bool) {
	return a.goal, a.hasGoal
}

// LastCode reports the result code of the most recent route request.
func (a *Agent) LastCode() path.Code {
	return a.lastCode
}

// Route returns the waypoints not yet reached, including the one being
// walked towards.
func (a *Agent) Route() []geom.Vec2 {
	var p *path.Path
	switch {
	case a.Movement == MovementDeterministic:
		p = a.patrol
	case a.mind == MindFollowing:
		p = a.route
	}
	if p == nil {
		return nil
	}
	remaining := p.Remaining()
	if a.hasWaypoint {
		return append([]geom.Vec2{a.waypoint}, remaining...)
	}
	return remaining
}

// SetGoal replaces the goal list with a single destination and drops the
// current route. The mover switches to pathfinding.
func (a *Agent) SetGoal(goal geom.Vec2) {
	a.Movement = MovementPathfinding
	a.goals = []geom.Vec2{goal}
	a.goalIndex = 0
	a.loopGoals = false
	a.abandonRoute()
}

// ClearGoal drops every goal and the current route.
func (a *Agent) ClearGoal() {
	a.goals = nil
	a.goalIndex = 0
	a.abandonRoute()
}

// Stop halts the mover for good.
func (a *Agent) Stop() {
	a.Movement = MovementStop
	a.ClearGoal()
}

func (a *Agent) abandonRoute() {
	a.mind = MindIdle
	a.hasGoal = false
	a.requested = nil
	a.route = nil
	a.hasWaypoint = false
	a.arrived = false
}

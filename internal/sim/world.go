// Package sim owns the simulation context and the fixed-timestep loop that
// advances it.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/agent"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/coordinator"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	loggingsimulation "github.com/martinezcajm/ArtificialIntelligenceProject/logging/simulation"
)

var (
	ErrUnknownActor   = errors.New("sim: unknown actor")
	ErrDuplicateActor = errors.New("sim: actor already exists")
	ErrInvalidCommand = errors.New("sim: invalid command")
)

// World is the simulation context: the map, the movers in a stable order and
// the path coordinator they share. It is advanced by a single goroutine.
type World struct {
	grid        *grid.Map
	coordinator *coordinator.Coordinator
	publisher   logging.Publisher

	agents []*agent.Agent
	byID   map[string]*agent.Agent
	tick   uint64
}

// NewWorld builds an empty world planning on g.
func NewWorld(g *grid.Map, coord *coordinator.Coordinator, pub logging.Publisher) *World {
	return &World{
		grid:        g,
		coordinator: coord,
		publisher:   logging.OrNop(pub),
		byID:        make(map[string]*agent.Agent),
	}
}

func (w *World) Grid() *grid.Map { return w.grid }

func (w *World) Coordinator() *coordinator.Coordinator { return w.coordinator }

func (w *World) Tick() uint64 { return w.tick }

// Agents returns the movers in update order.
func (w *World) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), w.agents...)
}

func (w *World) Agent(id string) (*agent.Agent, bool) {
	a, ok := w.byID[id]
	return a, ok
}

// AddAgent appends a mover and opens its coordinator mailbox.
func (w *World) AddAgent(a *agent.Agent) error {
	if a == nil {
		return fmt.Errorf("%w: nil agent", ErrInvalidCommand)
	}
	if _, exists := w.byID[a.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateActor, a.ID)
	}
	if err := w.coordinator.Register(a.ID); err != nil {
		return fmt.Errorf("register %s: %w", a.ID, err)
	}
	w.agents = append(w.agents, a)
	w.byID[a.ID] = a
	return nil
}

// RemoveAgent drops a mover and its mailbox.
func (w *World) RemoveAgent(id string) bool {
	if _, ok := w.byID[id]; !ok {
		return false
	}
	delete(w.byID, id)
	for i, a := range w.agents {
		if a.ID == id {
			w.agents = append(w.agents[:i], w.agents[i+1:]...)
			break
		}
	}
	w.coordinator.Unregister(id)
	return true
}

// Apply executes commands in order. Rejected commands are reported through
// the publisher and the first error is returned; later commands still run.
func (w *World) Apply(ctx context.Context, cmds []Command) error {
	var firstErr error
	for _, cmd := range cmds {
		if err := w.apply(cmd); err != nil {
			loggingsimulation.CommandDropped(ctx, w.publisher, w.tick, logging.Agent(cmd.ActorID), loggingsimulation.CommandDroppedPayload{
				Command: string(cmd.Type),
				Reason:  err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *World) apply(cmd Command) error {
	a, ok := w.byID[cmd.ActorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, cmd.ActorID)
	}
	switch cmd.Type {
	case CommandSetGoal:
		if cmd.Goal == nil {
			return fmt.Errorf("%w: goal missing", ErrInvalidCommand)
		}
		a.SetGoal(geom.V(cmd.Goal.X, cmd.Goal.Y))
	case CommandClearGoal:
		a.ClearGoal()
	case CommandStop:
		a.Stop()
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidCommand, cmd.Type)
	}
	return nil
}

// Step advances the world by one tick of length dt. Every mind runs before
// the coordinator and every body runs after it, so requests posted this tick
// are visible to the coordinator and responses are read on the next tick.
func (w *World) Step(ctx context.Context, dt time.Duration) {
	w.tick++
	env := agent.Env{
		Tick:      w.tick,
		Grid:      w.grid,
		Planner:   w.coordinator,
		Publisher: w.publisher,
		Locate:    w.locate,
	}
	for _, a := range w.agents {
		a.UpdateMind(ctx, env)
	}
	w.coordinator.Update(ctx, w.tick)
	for _, a := range w.agents {
		a.UpdateBody(env, dt)
	}
}

func (w *World) locate(id string) (geom.Vec2, bool) {
	a, ok := w.byID[id]
	if !ok {
		return geom.Vec2{}, false
	}
	return a.Position, true
}

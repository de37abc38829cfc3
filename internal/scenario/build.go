package scenario

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/agent"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/astar"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/coordinator"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

// Deps carries the services a built world reports through. Budget, when
// positive, overrides the scenario's search budget.
type Deps struct {
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Clock     astar.Clock
	Budget    time.Duration
}

// BuildMap materialises the occupancy grid.
func (f *File) BuildMap() (*grid.Map, error) {
	ratio := geom.V(1, 1)
	if f.Map.Ratio != nil {
		ratio = *f.Map.Ratio
	}
	switch {
	case len(f.Map.Rows) > 0:
		return grid.FromRows(f.Map.Rows, ratio)
	case f.Map.Image != "":
		imagePath := f.Map.Image
		if !filepath.IsAbs(imagePath) && f.baseDir != "" {
			imagePath = filepath.Join(f.baseDir, imagePath)
		}
		return grid.Load(imagePath, f.Map.WorldWidth, f.Map.WorldHeight)
	case f.Map.Noise != nil:
		n := f.Map.Noise
		return grid.GenerateNoise(n.Width, n.Height, ratio, n.Seed, n.Threshold)
	}
	return nil, fmt.Errorf("map: no source configured")
}

// Build creates the grid, the coordinator and every agent.
func (f *File) Build(deps Deps) (*sim.World, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	m, err := f.BuildMap()
	if err != nil {
		return nil, fmt.Errorf("build map: %w", err)
	}

	budget, _ := f.Simulation.Budget()
	if deps.Budget > 0 {
		budget = deps.Budget
	}
	order, _ := coordinator.ParseScanOrder(f.Simulation.ScanOrder)
	var searchOpts []astar.Option
	if !f.Simulation.CornerCutting {
		searchOpts = append(searchOpts, astar.WithoutCornerCutting())
	}
	opts := []coordinator.Option{
		coordinator.WithBudget(budget),
		coordinator.WithScanOrder(order),
		coordinator.WithPublisher(deps.Publisher),
		coordinator.WithSearcherOptions(searchOpts...),
	}
	if deps.Metrics != nil {
		opts = append(opts, coordinator.WithMetrics(deps.Metrics))
	}
	if deps.Clock != nil {
		opts = append(opts, coordinator.WithClock(deps.Clock))
	}
	world := sim.NewWorld(m, coordinator.New(m, opts...), deps.Publisher)

	for _, spec := range f.Agents {
		cfg, err := spec.config()
		if err != nil {
			return nil, err
		}
		a, err := agent.New(cfg)
		if err != nil {
			return nil, err
		}
		if err := world.AddAgent(a); err != nil {
			return nil, err
		}
	}
	return world, nil
}

// LoopConfig returns the tick loop settings declared by the scenario.
func (f *File) LoopConfig() sim.LoopConfig {
	return sim.LoopConfig{TickRate: f.Simulation.TickRate}
}

func (s AgentSpec) config() (agent.Config, error) {
	movement, err := agent.ParseMovement(s.Movement)
	if err != nil {
		return agent.Config{}, fmt.Errorf("agent %s: %w", s.ID, err)
	}
	pattern := make([]agent.PatternStep, 0, len(s.Pattern))
	for _, step := range s.Pattern {
		pattern = append(pattern, agent.PatternStep{Direction: step.Direction, Ticks: step.Ticks})
	}
	return agent.Config{
		ID:            s.ID,
		Position:      s.Position,
		Speed:         s.Speed,
		Movement:      movement,
		Waypoints:     s.Waypoints,
		Loops:         s.Loops,
		Goals:         s.Goals,
		LoopGoals:     s.LoopGoals,
		Target:        s.Target,
		Pattern:       pattern,
		Seed:          s.Seed,
		RetryCooldown: s.RetryCooldown,
	}, nil
}

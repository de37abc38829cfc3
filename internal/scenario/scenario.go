// Package scenario loads YAML scenario files describing a map, the simulation
// settings and the movers, and builds a ready-to-run World from them.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/agent"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/coordinator"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
)

// File is a scenario document as it appears on disk.
type File struct {
	Name       string         `yaml:"name" json:"name" jsonschema:"title=Scenario Name,description=Human readable label shown by the viewers."`
	Map        MapSpec        `yaml:"map" json:"map" jsonschema:"title=Map,description=Occupancy grid source. Exactly one of rows/image/noise must be set.,required"`
	Simulation SimulationSpec `yaml:"simulation" json:"simulation" jsonschema:"title=Simulation,description=Tick loop and path coordinator settings."`
	Agents     []AgentSpec    `yaml:"agents" json:"agents" jsonschema:"title=Agents,description=Movers in update order."`

	// baseDir resolves relative image paths.
	baseDir string
}

// MapSpec selects and configures the occupancy grid.
type MapSpec struct {
	Rows        []string   `yaml:"rows,omitempty" json:"rows,omitempty" jsonschema:"description=One string per grid row; '#' or 'X' marks an obstacle."`
	Image       string     `yaml:"image,omitempty" json:"image,omitempty" jsonschema:"description=PNG or GIF bitmap where white pixels are free."`
	WorldWidth  float64    `yaml:"worldWidth,omitempty" json:"worldWidth,omitempty" jsonschema:"description=World width covered by the image.,minimum=0"`
	WorldHeight float64    `yaml:"worldHeight,omitempty" json:"worldHeight,omitempty" jsonschema:"description=World height covered by the image.,minimum=0"`
	Noise       *NoiseSpec `yaml:"noise,omitempty" json:"noise,omitempty" jsonschema:"description=Procedural OpenSimplex map."`
	Ratio       *geom.Vec2 `yaml:"ratio,omitempty" json:"ratio,omitempty" jsonschema:"description=World units per grid cell for rows and noise maps. Defaults to 1x1."`
}

// NoiseSpec configures a generated map.
type NoiseSpec struct {
	Width     int     `yaml:"width" json:"width" jsonschema:"minimum=1,required"`
	Height    int     `yaml:"height" json:"height" jsonschema:"minimum=1,required"`
	Seed      int64   `yaml:"seed" json:"seed"`
	Threshold float64 `yaml:"threshold" json:"threshold" jsonschema:"description=Cells whose normalized noise exceeds this value are obstacles.,minimum=0,maximum=1"`
}

// SimulationSpec tunes the loop and the coordinator.
type SimulationSpec struct {
	TickRate      int    `yaml:"tickRate,omitempty" json:"tickRate,omitempty" jsonschema:"description=Ticks per second.,minimum=0"`
	SearchBudget  string `yaml:"searchBudget,omitempty" json:"searchBudget,omitempty" jsonschema:"description=Per-tick search budget as a Go duration. Defaults to 2ms."`
	ScanOrder     string `yaml:"scanOrder,omitempty" json:"scanOrder,omitempty" jsonschema:"enum=fixed,enum=round-robin"`
	CornerCutting bool   `yaml:"cornerCutting,omitempty" json:"cornerCutting,omitempty" jsonschema:"description=Allow diagonal moves that clip an obstacle corner."`
}

// AgentSpec describes one mover.
type AgentSpec struct {
	ID            string        `yaml:"id" json:"id" jsonschema:"minLength=1,required"`
	Movement      string        `yaml:"movement" json:"movement" jsonschema:"enum=stop,enum=deterministic,enum=random,enum=tracking,enum=pattern,enum=pathfinding,required"`
	Position      geom.Vec2     `yaml:"position" json:"position"`
	Speed         float64       `yaml:"speed,omitempty" json:"speed,omitempty" jsonschema:"description=World units per second.,minimum=0"`
	Goals         []geom.Vec2   `yaml:"goals,omitempty" json:"goals,omitempty"`
	LoopGoals     bool          `yaml:"loopGoals,omitempty" json:"loopGoals,omitempty"`
	Waypoints     []geom.Vec2   `yaml:"waypoints,omitempty" json:"waypoints,omitempty"`
	Loops         int           `yaml:"loops,omitempty" json:"loops,omitempty" jsonschema:"description=-1 loops forever; 0 walks once.,minimum=-1"`
	Target        string        `yaml:"target,omitempty" json:"target,omitempty"`
	Pattern       []PatternSpec `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Seed          int64         `yaml:"seed,omitempty" json:"seed,omitempty"`
	RetryCooldown uint64        `yaml:"retryCooldown,omitempty" json:"retryCooldown,omitempty" jsonschema:"description=Ticks to wait after a failed request."`
}

// PatternSpec is one leg of a pattern mover.
type PatternSpec struct {
	Direction geom.Vec2 `yaml:"direction" json:"direction"`
	Ticks     int       `yaml:"ticks" json:"ticks" jsonschema:"minimum=1"`
}

// Load reads and validates a scenario file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	f.baseDir = filepath.Dir(path)
	return f, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Marshal renders the scenario back to YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Validate reports every problem found in the document.
func (f *File) Validate() error {
	var errs []error

	sources := 0
	if len(f.Map.Rows) > 0 {
		sources++
	}
	if f.Map.Image != "" {
		sources++
		if f.Map.WorldWidth <= 0 || f.Map.WorldHeight <= 0 {
			errs = append(errs, errors.New("map: image maps need positive worldWidth and worldHeight"))
		}
	}
	if f.Map.Noise != nil {
		sources++
		if f.Map.Noise.Width <= 0 || f.Map.Noise.Height <= 0 {
			errs = append(errs, errors.New("map: noise width and height must be positive"))
		}
	}
	if sources != 1 {
		errs = append(errs, fmt.Errorf("map: exactly one of rows, image or noise is required, found %d", sources))
	}
	if r := f.Map.Ratio; r != nil && (r.X <= 0 || r.Y <= 0) {
		errs = append(errs, fmt.Errorf("map: ratio must be positive, got %v", *r))
	}

	if f.Simulation.TickRate < 0 {
		errs = append(errs, fmt.Errorf("simulation: tickRate must not be negative"))
	}
	if _, err := f.Simulation.Budget(); err != nil {
		errs = append(errs, err)
	}
	if _, err := coordinator.ParseScanOrder(f.Simulation.ScanOrder); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}

	ids := make(map[string]struct{}, len(f.Agents))
	for i, a := range f.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: id is required", i))
			continue
		}
		if _, dup := ids[a.ID]; dup {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID))
		}
		ids[a.ID] = struct{}{}
		if _, err := agent.ParseMovement(a.Movement); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", a.ID, err))
		}
	}
	for _, a := range f.Agents {
		if a.Target == "" {
			continue
		}
		if _, ok := ids[a.Target]; !ok {
			errs = append(errs, fmt.Errorf("agent %s: unknown target %q", a.ID, a.Target))
		}
	}
	return errors.Join(errs...)
}

// Budget parses SearchBudget; empty means the coordinator default.
func (s SimulationSpec) Budget() (time.Duration, error) {
	if s.SearchBudget == "" {
		return coordinator.DefaultBudget, nil
	}
	d, err := time.ParseDuration(s.SearchBudget)
	if err != nil {
		return 0, fmt.Errorf("simulation: searchBudget: %w", err)
	}
	return d, nil
}

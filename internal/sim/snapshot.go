package sim

import "github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"

// Snapshot is an immutable copy of the world state after a tick.
type Snapshot struct {
	Tick        uint64              `json:"tick"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Ratio       geom.Vec2           `json:"ratio"`
	Agents      []AgentSnapshot     `json:"agents"`
	Coordinator CoordinatorSnapshot `json:"coordinator"`
}

type AgentSnapshot struct {
	ID       string      `json:"id"`
	Position geom.Vec2   `json:"position"`
	Movement string      `json:"movement"`
	Mind     string      `json:"mind"`
	Goal     *geom.Vec2  `json:"goal,omitempty"`
	Route    []geom.Vec2 `json:"route,omitempty"`
	LastCode int16       `json:"lastCode"`
}

type CoordinatorSnapshot struct {
	State   string   `json:"state"`
	Current string   `json:"current,omitempty"`
	Pending []string `json:"pending,omitempty"`
}

// Snapshot captures the current state.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:   w.tick,
		Width:  w.grid.Width(),
		Height: w.grid.Height(),
		Ratio:  w.grid.Ratio(),
		Agents: make([]AgentSnapshot, 0, len(w.agents)),
	}
	for _, a := range w.agents {
		entry := AgentSnapshot{
			ID:       a.ID,
			Position: a.Position,
			Movement: a.Movement.String(),
			Mind:     a.Mind().String(),
			Route:    a.Route(),
			LastCode: int16(a.LastCode()),
		}
		if goal, ok := a.Goal(); ok {
			entry.Goal = &goal
		}
		snap.Agents = append(snap.Agents, entry)
	}
	snap.Coordinator.State = w.coordinator.State().String()
	if req, ok := w.coordinator.Current(); ok {
		snap.Coordinator.Current = req.From
	}
	snap.Coordinator.Pending = w.coordinator.PendingIDs()
	return snap
}

// Agent returns the entry for id.
func (s Snapshot) Agent(id string) (AgentSnapshot, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentSnapshot{}, false
}

package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandSetGoal   CommandType = "SetGoal"
	CommandClearGoal CommandType = "ClearGoal"
	CommandStop      CommandType = "Stop"
)

// GoalCommand carries a destination in world coordinates.
type GoalCommand struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64       `json:"originTick"`
	ActorID    string       `json:"actorId"`
	Type       CommandType  `json:"type"`
	IssuedAt   time.Time    `json:"issuedAt"`
	Goal       *GoalCommand `json:"goal,omitempty"`
}

// Package intake validates client commands and stages them on the loop.
package intake

import (
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/proto"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
)

const (
	// RejectInvalidCommand marks a message that does not describe a command.
	RejectInvalidCommand = "invalid_command"
	// RejectUnknownActor marks a command addressed to a missing agent.
	RejectUnknownActor = "unknown_actor"
)

// Engine is the staging side of the simulation loop.
type Engine interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Engine   Engine
	HasActor func(string) bool
	Tick     func() uint64
	Now      func() time.Time
}

// StageClientCommand validates msg and enqueues the resulting command. On
// rejection it returns the reason string sent back to the client.
func StageClientCommand(ctx CommandContext, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok || command.ActorID == "" {
		return zero, false, RejectInvalidCommand
	}

	if ctx.HasActor != nil && !ctx.HasActor(command.ActorID) {
		return zero, false, RejectUnknownActor
	}

	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}

// Retryable reports whether a rejected command may succeed if resent later.
func Retryable(reason string) bool {
	return reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
}

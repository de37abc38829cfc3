// Package proto defines the JSON frames exchanged with observers over HTTP
// and websocket.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeState         = "state"
)

// Client message type identifiers.
const (
	TypeGoal  = "goal"
	TypeClear = "clear"
	TypeStop  = "stop"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeState         = typeState
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// ClientMessage captures an inbound command from an observer.
type ClientMessage struct {
	Ver  int     `json:"ver,omitempty"`
	Type string  `json:"type"`
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Seq  *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// SeqOf returns the client sequence number, zero when absent.
func (m ClientMessage) SeqOf() uint64 {
	if m.Seq == nil {
		return 0
	}
	return *m.Seq
}

// ClientCommand maps a client message onto a simulation command. Origin
// metadata is filled in when the command is staged.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeGoal:
		return sim.Command{
			ActorID: msg.ID,
			Type:    sim.CommandSetGoal,
			Goal:    &sim.GoalCommand{X: msg.X, Y: msg.Y},
		}, true
	case TypeClear:
		return sim.Command{ActorID: msg.ID, Type: sim.CommandClearGoal}, true
	case TypeStop:
		return sim.Command{ActorID: msg.ID, Type: sim.CommandStop}, true
	default:
		return sim.Command{}, false
	}
}

// StateMessage carries a full snapshot to observers.
type StateMessage struct {
	Ver        int          `json:"ver"`
	Type       string       `json:"type"`
	ServerTime int64        `json:"serverTime"`
	State      sim.Snapshot `json:"state"`
}

// EncodeState renders a state frame.
func EncodeState(snapshot sim.Snapshot, serverTime int64) ([]byte, error) {
	return json.Marshal(StateMessage{
		Ver:        Version,
		Type:       typeState,
		ServerTime: serverTime,
		State:      snapshot,
	})
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
		Tick: msg.Tick,
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Retry:  msg.Retry,
		Tick:   msg.Tick,
	}
	return json.Marshal(frame)
}

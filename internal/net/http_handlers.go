// Package net exposes the running simulation over HTTP.
package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/intake"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/proto"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/ws"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

const maxCommandBody = 64 << 10

// Simulation is the loop surface the handlers read from and stage into.
type Simulation interface {
	Snapshot() sim.Snapshot
	Enqueue(cmd sim.Command) (bool, string)
	TickRate() int
	Pending() int
}

type HTTPHandlerConfig struct {
	Logger    telemetry.Logger
	Clock     logging.Clock
	Router    *logging.Router
	Metrics   *logging.Metrics
	Websocket *ws.Handler
}

func NewHTTPHandler(simulation Simulation, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snapshot := simulation.Snapshot()
		payload := struct {
			Status          string                  `json:"status"`
			ServerTime      int64                   `json:"serverTime"`
			Tick            uint64                  `json:"tick"`
			TickRate        int                     `json:"tickRate"`
			Agents          int                     `json:"agents"`
			PendingCommands int                     `json:"pendingCommands"`
			Coordinator     sim.CoordinatorSnapshot `json:"coordinator"`
			Observers       int                     `json:"observers"`
			Logging         *logging.RouterStats    `json:"logging,omitempty"`
			Telemetry       map[string]uint64       `json:"telemetry,omitempty"`
		}{
			Status:          "ok",
			ServerTime:      clock.Now().UnixMilli(),
			Tick:            snapshot.Tick,
			TickRate:        simulation.TickRate(),
			Agents:          len(snapshot.Agents),
			PendingCommands: simulation.Pending(),
			Coordinator:     snapshot.Coordinator,
		}
		if cfg.Websocket != nil {
			payload.Observers = cfg.Websocket.Subscribers()
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}
		if cfg.Metrics != nil {
			payload.Telemetry = cfg.Metrics.Snapshot()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/state", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		data, err := proto.EncodeState(simulation.Snapshot(), clock.Now().UnixMilli())
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/commands", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody))
		if err != nil {
			httpError(w, "failed to read body", nethttp.StatusBadRequest)
			return
		}
		msg, err := proto.DecodeClientMessage(body)
		if err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}

		snapshot := simulation.Snapshot()
		cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
			Engine: simulation,
			HasActor: func(id string) bool {
				_, found := snapshot.Agent(id)
				return found
			},
			Tick: func() uint64 { return snapshot.Tick },
			Now:  clock.Now,
		}, msg)
		if ok {
			writeFrame(w, nethttp.StatusAccepted, func() ([]byte, error) {
				return proto.EncodeCommandAck(proto.CommandAck{Seq: msg.SeqOf(), Tick: cmd.OriginTick})
			})
			return
		}

		logger.Printf("[commands] rejected %s for %q: %s", msg.Type, msg.ID, reason)
		writeFrame(w, rejectStatus(reason), func() ([]byte, error) {
			return proto.EncodeCommandReject(proto.CommandReject{
				Seq:    msg.SeqOf(),
				Reason: reason,
				Retry:  intake.Retryable(reason),
				Tick:   snapshot.Tick,
			})
		})
	})

	if cfg.Websocket != nil {
		mux.HandleFunc("/ws", cfg.Websocket.Handle)
	}

	return mux
}

func rejectStatus(reason string) int {
	switch reason {
	case intake.RejectUnknownActor:
		return nethttp.StatusNotFound
	case intake.RejectInvalidCommand:
		return nethttp.StatusBadRequest
	default:
		return nethttp.StatusTooManyRequests
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	writeFrame(w, status, func() ([]byte, error) { return json.Marshal(payload) })
}

func writeFrame(w nethttp.ResponseWriter, status int, encode func() ([]byte, error)) {
	data, err := encode()
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}

package net

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/proto"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/ws"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/scenario"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging/sinks"
)

const testScenario = `
map:
  rows: ["......", "......"]
agents:
  - id: scout
    movement: stop
`

func newTestLoop(t *testing.T, cfg sim.LoopConfig, metrics *logging.Metrics) *sim.Loop {
	t.Helper()
	f, err := scenario.Parse([]byte(testScenario))
	require.NoError(t, err)
	world, err := f.Build(scenario.Deps{Metrics: telemetry.WrapMetrics(metrics)})
	require.NoError(t, err)
	return sim.NewLoop(world, cfg, sim.LoopDeps{Metrics: telemetry.WrapMetrics(metrics)}, sim.LoopHooks{})
}

func postCommand(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/commands", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestHTTPHealth(t *testing.T) {
	handler := NewHTTPHandler(newTestLoop(t, sim.LoopConfig{}, nil), HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body.String())
}

func TestHTTPStateReturnsSnapshot(t *testing.T) {
	loop := newTestLoop(t, sim.LoopConfig{}, nil)
	loop.Advance(context.Background())
	handler := NewHTTPHandler(loop, HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/state", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var payload proto.StateMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, proto.TypeState, payload.Type)
	assert.Equal(t, uint64(1), payload.State.Tick)
	assert.Equal(t, 6, payload.State.Width)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestHTTPCommandsAcceptAndReject(t *testing.T) {
	loop := newTestLoop(t, sim.LoopConfig{PerActorLimit: 1}, nil)
	handler := NewHTTPHandler(loop, HTTPHandlerConfig{})

	resp := postCommand(t, handler, `{"type":"goal","id":"scout","x":4,"y":1,"seq":1}`)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.Equal(t, 1, loop.Pending())

	tests := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{name: "throttled", body: `{"type":"clear","id":"scout","seq":2}`, status: http.StatusTooManyRequests, reason: sim.CommandRejectQueueLimit},
		{name: "unknown actor", body: `{"type":"clear","id":"ghost"}`, status: http.StatusNotFound, reason: "unknown_actor"},
		{name: "unknown type", body: `{"type":"dance","id":"scout"}`, status: http.StatusBadRequest, reason: "invalid_command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postCommand(t, handler, tt.body)
			assert.Equal(t, tt.status, resp.Code)
			var reject struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reject))
			assert.Equal(t, proto.TypeCommandReject, reject.Type)
			assert.Equal(t, tt.reason, reject.Reason)
		})
	}

	assert.Equal(t, http.StatusBadRequest, postCommand(t, handler, "{").Code, "malformed body")

	getResp := httptest.NewRecorder()
	handler.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/commands", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.Code)
}

func TestHTTPDiagnostics(t *testing.T) {
	metrics := &logging.Metrics{}
	loop := newTestLoop(t, sim.LoopConfig{TickRate: 25}, metrics)
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: logging.SinkMemory, Sink: sinks.NewMemorySink()}})
	require.NoError(t, err)
	t.Cleanup(func() { router.Close(context.Background()) })
	loop.Advance(context.Background())

	handler := NewHTTPHandler(loop, HTTPHandlerConfig{Router: router, Metrics: metrics, Websocket: ws.NewHandler(loop, ws.HandlerConfig{})})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, float64(25), payload["tickRate"])
	assert.Equal(t, float64(1), payload["tick"])
	assert.IsType(t, map[string]any{}, payload["logging"])

	telemetryValue, ok := payload["telemetry"].(map[string]any)
	require.True(t, ok, "telemetry map: %v", payload["telemetry"])
	assert.Contains(t, telemetryValue, "sim_tick_duration_micros")

	coordinator, ok := payload["coordinator"].(map[string]any)
	require.True(t, ok, "coordinator payload: %v", payload["coordinator"])
	assert.Equal(t, "waiting", coordinator["state"])
}

func TestHTTPRoutesWebsocket(t *testing.T) {
	loop := newTestLoop(t, sim.LoopConfig{}, nil)
	observers := ws.NewHandler(loop, ws.HandlerConfig{})
	srv := httptest.NewServer(NewHTTPHandler(loop, HTTPHandlerConfig{Websocket: observers}))
	t.Cleanup(srv.Close)

	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	parsed.Scheme = "ws"
	parsed.Path = "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(parsed.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var state proto.StateMessage
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, proto.TypeState, state.Type)
	assert.Len(t, state.State.Agents, 1)
}

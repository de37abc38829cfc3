// Package ws streams simulation snapshots to websocket observers and accepts
// commands from them.
package ws

import (
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/intake"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/proto"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

const (
	defaultWriteTimeout = time.Second
	defaultQueueSize    = 32

	metricSubscribers    = "ws_subscribers"
	metricBroadcastBytes = "ws_broadcast_bytes_total"
	metricBroadcasts     = "ws_broadcasts_total"
	metricWriteFailures  = "ws_write_failures_total"
)

// Source is the part of the simulation loop observers talk to.
type Source interface {
	Snapshot() sim.Snapshot
	Enqueue(cmd sim.Command) (bool, string)
}

type HandlerConfig struct {
	Logger       telemetry.Logger
	Metrics      telemetry.Metrics
	Clock        logging.Clock
	WriteTimeout time.Duration
	// QueueSize bounds the frames buffered per observer. An observer whose
	// queue is full when a snapshot is broadcast is disconnected.
	QueueSize int
}

// Handler upgrades observer connections and fans snapshots out to them.
type Handler struct {
	source       Source
	logger       telemetry.Logger
	metrics      telemetry.Metrics
	clock        logging.Clock
	writeTimeout time.Duration
	queueSize    int
	upgrader     websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// subscriber owns one observer connection. Frames are queued and written by a
// dedicated goroutine so a slow observer never stalls the tick loop.
type subscriber struct {
	conn    *websocket.Conn
	timeout time.Duration
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

// enqueue queues data without blocking. It reports false when the queue is
// full or the subscriber has been stopped.
func (s *subscriber) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *subscriber) write(data []byte) error {
	if s.timeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func NewHandler(source Source, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		source:       source,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		clock:        cfg.Clock,
		writeTimeout: cfg.WriteTimeout,
		queueSize:    cfg.QueueSize,
		upgrader:     upgrader,
		subscribers:  make(map[*subscriber]struct{}),
	}
}

// Handle serves one observer: the current snapshot first, then commands read
// from the socket until it closes.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub := h.subscribe(conn)
	defer h.unsubscribe(sub)
	go h.writeLoop(sub)

	data, err := proto.EncodeState(h.source.Snapshot(), h.clock.Now().UnixMilli())
	if err != nil {
		h.logger.Printf("failed to marshal initial state for %s: %v", r.RemoteAddr, err)
		return
	}
	if !sub.enqueue(data) {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", r.RemoteAddr, err)
			continue
		}

		if !h.stage(sub, msg) {
			return
		}
	}
}

func (h *Handler) stage(sub *subscriber, msg proto.ClientMessage) bool {
	snapshot := h.source.Snapshot()
	cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
		Engine: h.source,
		HasActor: func(id string) bool {
			_, found := snapshot.Agent(id)
			return found
		},
		Tick: func() uint64 { return snapshot.Tick },
		Now:  h.clock.Now,
	}, msg)

	var (
		data []byte
		err  error
	)
	if ok {
		data, err = proto.EncodeCommandAck(proto.CommandAck{Seq: msg.SeqOf(), Tick: cmd.OriginTick})
	} else {
		if reason == intake.RejectInvalidCommand {
			h.logger.Printf("unknown message type %q", msg.Type)
		}
		data, err = proto.EncodeCommandReject(proto.CommandReject{
			Seq:    msg.SeqOf(),
			Reason: reason,
			Retry:  intake.Retryable(reason),
			Tick:   snapshot.Tick,
		})
	}
	if err != nil {
		h.logger.Printf("failed to marshal response: %v", err)
		return true
	}
	return sub.enqueue(data)
}

func (h *Handler) writeLoop(sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.send:
			if err := sub.write(data); err != nil {
				h.metrics.Add(metricWriteFailures, 1)
				h.unsubscribe(sub)
				return
			}
		}
	}
}

// Broadcast queues snapshot for every observer without blocking and drops
// observers whose queue is full. It returns the number of observers queued.
func (h *Handler) Broadcast(snapshot sim.Snapshot) int {
	data, err := proto.EncodeState(snapshot, h.clock.Now().UnixMilli())
	if err != nil {
		h.logger.Printf("failed to marshal state: %v", err)
		return 0
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if !sub.enqueue(data) {
			h.metrics.Add(metricWriteFailures, 1)
			h.logger.Printf("dropping observer with %d queued frames", len(sub.send))
			h.unsubscribe(sub)
			continue
		}
		delivered++
	}
	h.metrics.Add(metricBroadcasts, 1)
	h.metrics.Add(metricBroadcastBytes, uint64(len(data)*delivered))
	return delivered
}

// Subscribers reports the number of connected observers.
func (h *Handler) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every observer.
func (h *Handler) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	closing := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	for _, sub := range subs {
		if sub.conn != nil {
			sub.conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(h.writeTimeout))
		}
		h.unsubscribe(sub)
	}
}

func (h *Handler) subscribe(conn *websocket.Conn) *subscriber {
	sub := &subscriber{
		conn:    conn,
		timeout: h.writeTimeout,
		send:    make(chan []byte, h.queueSize),
		done:    make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()
	h.metrics.Store(metricSubscribers, uint64(count))
	return sub
}

func (h *Handler) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.stop()
	if sub.conn != nil {
		sub.conn.Close()
	}
	h.metrics.Store(metricSubscribers, uint64(count))
}

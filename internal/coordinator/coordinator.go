// Package coordinator shares a single time-sliced path search among many
// movers. Movers post requests into per-requester mailboxes; the coordinator
// services one request at a time, spreading long searches across ticks, and
// posts the outcome back into the requester's mailbox.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/astar"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	loggingpathfinding "github.com/martinezcajm/ArtificialIntelligenceProject/logging/pathfinding"
)

// DefaultBudget is the per-tick search budget used when none is configured.
const DefaultBudget = 2 * time.Millisecond

var (
	ErrUnknownRequester   = errors.New("coordinator: unknown requester")
	ErrDuplicateRequester = errors.New("coordinator: requester already registered")
	ErrEmptyRequester     = errors.New("coordinator: requester id is empty")
)

const (
	metricRequests  = "coordinator.requests"
	metricReady     = "coordinator.ready"
	metricNotFound  = "coordinator.not_found"
	metricSlices    = "coordinator.slices"
	metricOverwrite = "coordinator.overwrites"
	metricPending   = "coordinator.pending"
)

// State is the worker state.
type State uint8

const (
	StateWaiting State = iota
	StateCalculating
)

func (s State) String() string {
	if s == StateCalculating {
		return "calculating"
	}
	return "waiting"
}

// ScanOrder selects how waiting mailboxes are scanned.
type ScanOrder uint8

const (
	// ScanFixed always scans in registration order.
	ScanFixed ScanOrder = iota
	// ScanRoundRobin resumes scanning after the last serviced requester.
	ScanRoundRobin
)

func (o ScanOrder) String() string {
	if o == ScanRoundRobin {
		return "round-robin"
	}
	return "fixed"
}

// ParseScanOrder resolves "fixed" (or empty) and "round-robin".
func ParseScanOrder(raw string) (ScanOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fixed":
		return ScanFixed, nil
	case "round-robin", "roundrobin":
		return ScanRoundRobin, nil
	}
	return ScanFixed, fmt.Errorf("unknown scan order %q", raw)
}

// Status is the outcome carried by a Response.
type Status uint8

const (
	StatusNone Status = iota
	StatusReady
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusNotFound:
		return "not-found"
	default:
		return "none"
	}
}

// Request asks for a route to be written into Path.
type Request struct {
	From        string
	Origin      geom.Vec2
	Destination geom.Vec2
	Path        *path.Path
}

// Response reports the outcome of a Request.
type Response struct {
	To       string
	Status   Status
	Code     path.Code
	Path     *path.Path
	Ticks    int
	Expanded int
}

type mailbox struct {
	id       string
	inbox    Request
	hasInbox bool
	outbox   Response
	hasOut   bool
}

type config struct {
	budget    time.Duration
	publisher logging.Publisher
	metrics   telemetry.Metrics
	order     ScanOrder
	search    []astar.Option
}

// Option customises a Coordinator.
type Option func(*config)

// WithBudget sets the search time allowed per Update.
func WithBudget(budget time.Duration) Option {
	return func(c *config) {
		if budget > 0 {
			c.budget = budget
		}
	}
}

func WithPublisher(pub logging.Publisher) Option {
	return func(c *config) {
		if pub != nil {
			c.publisher = pub
		}
	}
}

func WithMetrics(metrics telemetry.Metrics) Option {
	return func(c *config) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithClock sets the clock used to enforce the search budget.
func WithClock(clock astar.Clock) Option {
	return func(c *config) {
		c.search = append(c.search, astar.WithClock(clock))
	}
}

// WithSearcherOptions forwards options to the underlying searcher.
func WithSearcherOptions(opts ...astar.Option) Option {
	return func(c *config) {
		c.search = append(c.search, opts...)
	}
}

func WithScanOrder(order ScanOrder) Option {
	return func(c *config) {
		c.order = order
	}
}

// Coordinator is the shared pathfinding worker. It is driven by Update from
// the simulation goroutine and is not safe for concurrent use.
type Coordinator struct {
	cfg      config
	grid     grid.Occupancy
	searcher *astar.Searcher

	boxes  []*mailbox
	byID   map[string]*mailbox
	cursor int

	state   State
	current Request
	ticks   int
}

// New constructs a coordinator planning on g.
func New(g grid.Occupancy, opts ...Option) *Coordinator {
	cfg := config{
		budget:    DefaultBudget,
		publisher: logging.NopPublisher(),
		metrics:   telemetry.NopMetrics(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Coordinator{
		cfg:      cfg,
		grid:     g,
		searcher: astar.NewSearcher(cfg.search...),
		byID:     make(map[string]*mailbox),
	}
}

// Register creates the mailbox for id.
func (c *Coordinator) Register(id string) error {
	if id == "" {
		return ErrEmptyRequester
	}
	if _, exists := c.byID[id]; exists {
		return ErrDuplicateRequester
	}
	box := &mailbox{id: id}
	c.boxes = append(c.boxes, box)
	c.byID[id] = box
	return nil
}

// Unregister removes the mailbox for id. A search in flight for id is
// abandoned and its result is never delivered.
func (c *Coordinator) Unregister(id string) {
	box, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	for i, b := range c.boxes {
		if b == box {
			c.boxes = append(c.boxes[:i], c.boxes[i+1:]...)
			if c.cursor > i {
				c.cursor--
			}
			break
		}
	}
	if c.state == StateCalculating && c.current.From == id {
		c.searcher.Abort()
		c.reset()
	}
	c.storePending()
}

// Send posts req into the requester's inbound slot. An unconsumed request
// already in the slot is replaced and an overwrite event is published. Any
// unread response from an earlier request is discarded.
func (c *Coordinator) Send(ctx context.Context, tick uint64, req Request) error {
	box, ok := c.byID[req.From]
	if !ok {
		return ErrUnknownRequester
	}
	if req.Path == nil {
		return path.ErrInvalidPointer
	}
	if box.hasInbox {
		c.cfg.metrics.Add(metricOverwrite, 1)
		loggingpathfinding.RequestOverwritten(ctx, c.cfg.publisher, tick, logging.Agent(req.From), loggingpathfinding.OverwritePayload{
			Previous: requestPayload(box.inbox),
			Next:     requestPayload(req),
		})
	}
	box.inbox = req
	box.hasInbox = true
	box.outbox = Response{}
	box.hasOut = false
	c.storePending()
	return nil
}

// Poll takes the response waiting for id, if any.
func (c *Coordinator) Poll(id string) (Response, bool) {
	box, ok := c.byID[id]
	if !ok || !box.hasOut {
		return Response{}, false
	}
	resp := box.outbox
	box.outbox = Response{}
	box.hasOut = false
	return resp, true
}

// Pending reports whether id has a request that has not been picked up yet.
func (c *Coordinator) Pending(id string) bool {
	box, ok := c.byID[id]
	return ok && box.hasInbox
}

// PendingIDs lists requesters with unserviced requests in scan order.
func (c *Coordinator) PendingIDs() []string {
	var ids []string
	for _, box := range c.boxes {
		if box.hasInbox {
			ids = append(ids, box.id)
		}
	}
	return ids
}

// Requesters lists registered ids in registration order.
func (c *Coordinator) Requesters() []string {
	ids := make([]string, 0, len(c.boxes))
	for _, box := range c.boxes {
		ids = append(ids, box.id)
	}
	return ids
}

func (c *Coordinator) State() State {
	return c.state
}

// Current returns the request being calculated.
func (c *Coordinator) Current() (Request, bool) {
	if c.state != StateCalculating {
		return Request{}, false
	}
	return c.current, true
}

// Budget reports the per-tick search budget.
func (c *Coordinator) Budget() time.Duration {
	return c.cfg.budget
}

// Update advances the worker by one tick. A request picked up while Waiting
// receives its first search slice in the same tick.
func (c *Coordinator) Update(ctx context.Context, tick uint64) {
	if c.state == StateWaiting {
		box := c.scan()
		if box == nil {
			return
		}
		c.current = box.inbox
		box.inbox = Request{}
		box.hasInbox = false
		c.ticks = 0
		c.state = StateCalculating
		c.cfg.metrics.Add(metricRequests, 1)
		c.storePending()
		loggingpathfinding.PathRequested(ctx, c.cfg.publisher, tick, logging.Agent(c.current.From), requestPayload(c.current))
	}
	c.calculate(ctx, tick)
}

func (c *Coordinator) scan() *mailbox {
	n := len(c.boxes)
	if n == 0 {
		return nil
	}
	start := 0
	if c.cfg.order == ScanRoundRobin {
		start = c.cursor % n
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if c.boxes[idx].hasInbox {
			if c.cfg.order == ScanRoundRobin {
				c.cursor = idx + 1
			}
			return c.boxes[idx]
		}
	}
	return nil
}

func (c *Coordinator) calculate(ctx context.Context, tick uint64) {
	req := c.current
	c.ticks++
	c.cfg.metrics.Add(metricSlices, 1)

	err := c.searcher.Step(req.Origin, req.Destination, c.grid, req.Path, c.cfg.budget)
	if errors.Is(err, path.ErrTimeout) {
		loggingpathfinding.SearchSliceTimedOut(ctx, c.cfg.publisher, tick, logging.Agent(req.From), loggingpathfinding.SlicePayload{
			Slice:     c.ticks,
			LiveNodes: c.searcher.LiveNodes(),
			BudgetUS:  c.cfg.budget.Microseconds(),
		})
		return
	}

	stats := c.searcher.Stats()
	resp := Response{
		To:       req.From,
		Code:     path.CodeOf(err),
		Path:     req.Path,
		Ticks:    c.ticks,
		Expanded: stats.Expanded,
	}
	result := loggingpathfinding.ResultPayload{
		Ticks:    resp.Ticks,
		Expanded: resp.Expanded,
		Code:     int16(resp.Code),
	}
	if err == nil {
		resp.Status = StatusReady
		result.Points = req.Path.Len()
		c.cfg.metrics.Add(metricReady, 1)
		loggingpathfinding.PathReady(ctx, c.cfg.publisher, tick, logging.Agent(req.From), result)
	} else {
		resp.Status = StatusNotFound
		result.Reason = err.Error()
		c.cfg.metrics.Add(metricNotFound, 1)
		loggingpathfinding.PathNotFound(ctx, c.cfg.publisher, tick, logging.Agent(req.From), result)
	}

	if box, ok := c.byID[req.From]; ok {
		box.outbox = resp
		box.hasOut = true
	}
	c.reset()
}

func (c *Coordinator) reset() {
	c.state = StateWaiting
	c.current = Request{}
	c.ticks = 0
}

func (c *Coordinator) storePending() {
	var pending uint64
	for _, box := range c.boxes {
		if box.hasInbox {
			pending++
		}
	}
	c.cfg.metrics.Store(metricPending, pending)
}

// RequestPath plans a route synchronously, bypassing the mailboxes. It does
// not disturb a search in flight.
func (c *Coordinator) RequestPath(origin, destination geom.Vec2) (*path.Path, error) {
	p := path.New()
	if err := astar.Search(origin, destination, c.grid, p, c.cfg.search...); err != nil {
		return nil, err
	}
	return p, nil
}

func requestPayload(req Request) loggingpathfinding.RequestPayload {
	return loggingpathfinding.RequestPayload{
		Origin:      loggingpathfinding.Point{X: req.Origin.X, Y: req.Origin.Y},
		Destination: loggingpathfinding.Point{X: req.Destination.X, Y: req.Destination.Y},
	}
}

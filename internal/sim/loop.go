package sim

import (
	"context"
	"sync"
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	loggingsimulation "github.com/martinezcajm/ArtificialIntelligenceProject/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"

	// DefaultTickRate matches the 16ms step of the reference simulation.
	DefaultTickRate = 60

	tickDurationMetricKey = "sim_tick_duration_micros"
	tickOverrunMetricKey  = "sim_tick_overrun_total"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CommandCapacity int
	PerActorLimit   int
}

// LoopDeps carries the ambient services used by the loop.
type LoopDeps struct {
	Clock     logging.Clock
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// LoopHooks lets callers observe the loop without owning it.
type LoopHooks struct {
	AfterStep     func(LoopStepResult)
	OnCommandDrop func(reason string, cmd Command)
}

// LoopStepResult describes one executed tick.
type LoopStepResult struct {
	Tick     uint64
	Now      time.Time
	Delta    time.Duration
	Duration time.Duration
	Budget   time.Duration
	Snapshot Snapshot
	Commands []Command
}

// Loop coordinates command ingestion and the fixed-timestep world runner.
// Enqueue and Snapshot may be called from any goroutine; Advance and Run
// must be driven from a single one.
type Loop struct {
	world     *World
	buffer    *CommandBuffer
	hooks     LoopHooks
	config    LoopConfig
	clock     logging.Clock
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	stateMu       sync.RWMutex
	latest        Snapshot
	overrunStreak uint64
}

// NewLoop wraps world with a ring-buffer command queue.
func NewLoop(world *World, cfg LoopConfig, deps LoopDeps, hooks LoopHooks) *Loop {
	if world == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = 256
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.LoggerFunc(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	l := &Loop{
		world:         world,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		clock:         deps.Clock,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		publisher:     logging.OrNop(deps.Publisher),
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
	l.latest = world.Snapshot()
	return l
}

// Interval is the simulated time advanced by each tick.
func (l *Loop) Interval() time.Duration {
	return time.Second / time.Duration(l.config.TickRate)
}

// TickRate reports the configured ticks per second.
func (l *Loop) TickRate() int {
	return l.config.TickRate
}

// Snapshot returns the state published by the most recent tick.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.latest
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = l.clock.Now()
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
		dropCount = l.incrementDropLocked(cmd.ActorID)
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes one tick using the staged commands.
func (l *Loop) Advance(ctx context.Context) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	start := l.clock.Now()
	commands := l.drainCommands()
	// Apply publishes CommandDropped per rejected command itself.
	if err := l.world.Apply(ctx, commands); err != nil {
		l.logger.Printf("[commands] tick %d rejected staged commands: %v", l.world.Tick()+1, err)
	}
	l.world.Step(ctx, l.Interval())
	snapshot := l.world.Snapshot()

	l.stateMu.Lock()
	l.latest = snapshot
	l.stateMu.Unlock()

	result := LoopStepResult{
		Tick:     snapshot.Tick,
		Now:      start,
		Delta:    l.Interval(),
		Duration: l.clock.Now().Sub(start),
		Budget:   l.Interval(),
		Snapshot: snapshot,
		Commands: commands,
	}
	l.recordDuration(ctx, result)
	return result
}

// Run drives the fixed-timestep loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(l.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := l.Advance(ctx)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) recordDuration(ctx context.Context, result LoopStepResult) {
	l.metrics.Store(tickDurationMetricKey, uint64(max(result.Duration.Microseconds(), 0)))
	if result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	l.metrics.Add(tickOverrunMetricKey, 1)
	loggingsimulation.TickBudgetOverrun(ctx, l.publisher, result.Tick, loggingsimulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.overrunStreak,
	})
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		clear(l.perActorCount)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	loggingsimulation.CommandDropped(context.Background(), l.publisher, l.Snapshot().Tick, logging.Agent(cmd.ActorID), loggingsimulation.CommandDroppedPayload{
		Command: string(cmd.Type),
		Reason:  reason,
	})
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
		)
	}
}

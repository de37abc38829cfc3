// Package app wires the logging pipeline, the scenario, the tick loop and the
// HTTP surface into a running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	stdnet "net"
	"net/http"
	"os"
	"time"

	servernet "github.com/martinezcajm/ArtificialIntelligenceProject/internal/net"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/net/ws"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/scenario"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	loggingSinks "github.com/martinezcajm/ArtificialIntelligenceProject/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// App holds the constructed process components.
type App struct {
	cfg       Config
	logger    telemetry.Logger
	router    *logging.Router
	metrics   *logging.Metrics
	scenario  *scenario.File
	loop      *sim.Loop
	observers *ws.Handler
	handler   http.Handler
}

// New builds every component without starting the loop or the listener.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	a := &App{cfg: cfg, logger: logger, metrics: &logging.Metrics{}}

	namedSinks, err := a.buildSinks(cfg.Logging)
	if err != nil {
		return nil, err
	}
	router, err := logging.NewRouter(logging.SystemClock, cfg.Logging, namedSinks)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	a.router = router

	file := scenario.Default()
	if cfg.ScenarioPath != "" {
		file, err = scenario.Load(cfg.ScenarioPath)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
	}
	a.scenario = file

	metrics := telemetry.WrapMetrics(a.metrics)
	world, err := file.Build(scenario.Deps{
		Publisher: router,
		Metrics:   metrics,
		Budget:    cfg.SearchBudget,
	})
	if err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("build scenario %q: %w", file.Name, err)
	}

	loopCfg := file.LoopConfig()
	if cfg.TickRate > 0 {
		loopCfg.TickRate = cfg.TickRate
	}
	loopCfg.CommandCapacity = cfg.CommandCapacity
	loopCfg.PerActorLimit = cfg.PerActorLimit

	a.loop = sim.NewLoop(world, loopCfg, sim.LoopDeps{
		Logger:    logger,
		Metrics:   metrics,
		Publisher: router,
	}, sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) {
			a.observers.Broadcast(result.Snapshot)
		},
	})
	a.observers = ws.NewHandler(a.loop, ws.HandlerConfig{Logger: logger, Metrics: metrics})
	a.handler = servernet.NewHTTPHandler(a.loop, servernet.HTTPHandlerConfig{
		Logger:    logger,
		Router:    router,
		Metrics:   a.metrics,
		Websocket: a.observers,
	})
	return a, nil
}

func (a *App) buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	var named []logging.NamedSink
	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSink(os.Stdout)})
		case logging.SinkJSON:
			// The sink closes files it owns; stdout is hidden behind a plain writer.
			var w io.Writer = struct{ io.Writer }{os.Stdout}
			if cfg.JSON.FilePath != "" {
				f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return nil, fmt.Errorf("open json log %s: %w", cfg.JSON.FilePath, err)
				}
				w = f
			}
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(w, cfg.JSON.FlushInterval)})
		case logging.SinkMemory:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemorySink()})
		default:
			a.logger.Printf("ignoring unknown log sink %q", name)
		}
	}
	return named, nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Loop() *sim.Loop { return a.loop }

func (a *App) Scenario() *scenario.File { return a.scenario }

// Router exposes the logging router, mainly for sink inspection.
func (a *App) Router() *logging.Router { return a.router }

// Serve runs the tick loop and serves HTTP on ln until ctx is cancelled.
func (a *App) Serve(ctx context.Context, ln stdnet.Listener) error {
	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.loop.Run(loopCtx)
	}()

	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	a.logger.Printf("scenario %q running at %d ticks/s, listening on %s", a.scenario.Name, a.loop.TickRate(), ln.Addr())

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("server failed: %w", err)
		}
	}

	stopLoop()
	<-loopDone
	a.observers.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = fmt.Errorf("shutdown: %w", serr)
	}
	return err
}

// Close flushes the logging pipeline and closes its sinks.
func (a *App) Close(ctx context.Context) {
	if a.router == nil {
		return
	}
	if err := a.router.Close(ctx); err != nil {
		a.logger.Printf("failed to close logging router: %v", err)
	}
}

// Run builds the app from cfg, listens on cfg.ListenAddr and blocks until ctx
// is cancelled or the server fails.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	addr := cfg.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	ln, err := stdnet.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

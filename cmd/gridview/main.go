package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/scenario"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/view"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
	loggingSinks "github.com/martinezcajm/ArtificialIntelligenceProject/logging/sinks"
)

func main() {
	var (
		scenarioPath string
		logPath      string
		tickRate     int
	)
	flag.StringVar(&scenarioPath, "scenario", "", "scenario YAML file (built-in demo when empty)")
	flag.StringVar(&logPath, "log", "", "write JSON-lines events to this file")
	flag.IntVar(&tickRate, "tick-rate", 0, "ticks per second (scenario value when 0)")
	flag.Parse()

	if err := run(scenarioPath, logPath, tickRate); err != nil {
		fmt.Fprintf(os.Stderr, "gridview: %v\n", err)
		os.Exit(1)
	}
}

func run(scenarioPath, logPath string, tickRate int) error {
	file := scenario.Default()
	if scenarioPath != "" {
		loaded, err := scenario.Load(scenarioPath)
		if err != nil {
			return err
		}
		file = loaded
	}

	var publisher logging.Publisher
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			return fmt.Errorf("create log: %w", err)
		}
		cfg := logging.DefaultConfig()
		cfg.EnabledSinks = []string{logging.SinkJSON}
		router, err := logging.NewRouter(logging.SystemClock, cfg, []logging.NamedSink{
			{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(f, cfg.JSON.FlushInterval)},
		})
		if err != nil {
			f.Close()
			return err
		}
		defer router.Close(context.Background())
		publisher = router
	}

	world, err := file.Build(scenario.Deps{Publisher: publisher})
	if err != nil {
		return err
	}
	loopCfg := file.LoopConfig()
	if tickRate > 0 {
		loopCfg.TickRate = tickRate
	}
	loop := sim.NewLoop(world, loopCfg, sim.LoopDeps{Publisher: publisher}, sim.LoopHooks{})

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	ticker := time.NewTicker(loop.Interval())
	defer ticker.Stop()

	ctx := context.Background()
	paused := false
	draw := func() {
		view.Render(screen, world.Grid(), loop.Snapshot())
		screen.Show()
	}
	draw()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
					return nil
				case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
					return nil
				case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
					paused = !paused
				case ev.Key() == tcell.KeyRune && ev.Rune() == 'n' && paused:
					loop.Advance(ctx)
					draw()
				}
			case *tcell.EventResize:
				screen.Sync()
				draw()
			}
		case <-ticker.C:
			if paused {
				continue
			}
			loop.Advance(ctx)
			draw()
		}
	}
}

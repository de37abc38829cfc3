package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/app"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
)

func main() {
	logger := telemetry.WrapLogger(log.Default())
	cfg := app.DefaultConfig().ApplyEnv(os.LookupEnv, logger)
	cfg.Logger = logger

	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
	flag.StringVar(&cfg.ScenarioPath, "scenario", cfg.ScenarioPath, "scenario YAML file (built-in demo when empty)")
	flag.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "ticks per second (scenario value when 0)")
	flag.DurationVar(&cfg.SearchBudget, "search-budget", cfg.SearchBudget, "per-tick path search budget (scenario value when 0)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/telemetry"
	"github.com/martinezcajm/ArtificialIntelligenceProject/logging"
)

const (
	defaultListenAddr      = ":8080"
	defaultCommandCapacity = 256
	defaultPerActorLimit   = 8
)

// Config is the process configuration. Zero TickRate and SearchBudget defer
// to the scenario.
type Config struct {
	Logger          telemetry.Logger
	ListenAddr      string
	ScenarioPath    string
	TickRate        int
	SearchBudget    time.Duration
	CommandCapacity int
	PerActorLimit   int
	Logging         logging.Config
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      defaultListenAddr,
		CommandCapacity: defaultCommandCapacity,
		PerActorLimit:   defaultPerActorLimit,
		Logging:         logging.DefaultConfig(),
	}
}

// ApplyEnv overlays environment variables read through lookup. Invalid
// values are reported through logger and ignored.
func (c Config) ApplyEnv(lookup func(string) (string, bool), logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	get := func(key string) (string, bool) {
		raw, ok := lookup(key)
		raw = strings.TrimSpace(raw)
		return raw, ok && raw != ""
	}

	if raw, ok := get("LISTEN_ADDR"); ok {
		c.ListenAddr = raw
	}
	if raw, ok := get("SCENARIO_PATH"); ok {
		c.ScenarioPath = raw
	}
	if raw, ok := get("TICK_RATE"); ok {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			c.TickRate = value
		} else {
			logger.Printf("invalid TICK_RATE=%q", raw)
		}
	}
	if raw, ok := get("SEARCH_BUDGET"); ok {
		if value, err := time.ParseDuration(raw); err == nil && value > 0 {
			c.SearchBudget = value
		} else {
			logger.Printf("invalid SEARCH_BUDGET=%q", raw)
		}
	}
	if raw, ok := get("LOG_SINKS"); ok {
		if sinks := logging.ParseSinks(raw); len(sinks) > 0 {
			c.Logging.EnabledSinks = sinks
		} else {
			logger.Printf("invalid LOG_SINKS=%q", raw)
		}
	}
	if raw, ok := get("LOG_JSON_PATH"); ok {
		c.Logging.JSON.FilePath = raw
	}
	if raw, ok := get("LOG_MIN_SEVERITY"); ok {
		if value, err := logging.ParseSeverity(raw); err == nil {
			c.Logging.MinimumSeverity = value
		} else {
			logger.Printf("invalid LOG_MIN_SEVERITY=%q: %v", raw, err)
		}
	}
	return c
}

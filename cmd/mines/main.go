package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/assets"
	"github.com/lawnchairsociety/minedepths/internal/bestiary"
	"github.com/lawnchairsociety/minedepths/internal/config"
	"github.com/lawnchairsociety/minedepths/internal/database"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/metrics"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/lawnchairsociety/minedepths/internal/netsync"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

// pruneEvery is how many ticks pass between prune sweeps.
const pruneEvery = 20

func main() {
	configFile := flag.String("config", "data/mines.yaml", "Path to host config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	seedFlag := flag.Int64("seed", 0, "Game seed (overrides config; default: random)")
	dayFlag := flag.Int("day", 0, "Starting day (overrides config)")
	join := flag.String("join", "", "Join a host relay as a guest (e.g., ws://host:4700/sync)")
	player := flag.String("player", "guest", "Player name when joining as a guest")
	level := flag.Int("level", 1, "Mine level to enter when joining as a guest")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	logger.Info("Starting mines engine")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load host config, using defaults", "path", *configFile, "error", err)
	}
	if *seedFlag != 0 {
		cfg.Seed = *seedFlag
	}
	if *dayFlag > 0 {
		cfg.Day = *dayFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *join != "" {
		if err := runGuest(ctx, cfg, *join, *player, *level); err != nil {
			log.Fatalf("Guest session failed: %v", err)
		}
		return
	}

	gameSeed := cfg.Seed
	if gameSeed == 0 {
		gameSeed, err = seed.New()
		if err != nil {
			log.Fatalf("Failed to draw game seed: %v", err)
		}
		logger.Info("Game seed selected", "seed", gameSeed, "random", true)
	} else {
		logger.Info("Game seed selected", "seed", gameSeed, "random", false)
	}

	db, err := database.OpenWithConfig(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Info("Mine database initialized", "driver", cfg.Database.Driver)

	calendar := gametime.NewCalendar(cfg.Day)
	session := mine.NewLocalSession(calendar, true)
	queue := events.NewQueue()
	exporter := metrics.NewExporter()

	opts := engineOptions(cfg)
	opts.Seeds = seed.NewProvider(gameSeed)
	opts.Store = db
	opts.Queue = queue
	opts.Session = session
	opts.Observer = exporter
	opts.Participant = "host"

	registry := mine.NewRegistry(opts)
	registry.OnLevelReached(func(level int) {
		logger.Always("New mine level reached", "level", level)
	})
	logger.Info("Mine registry ready", "day", session.Day(), "deepest", registry.DeepestLevelReached())

	if cfg.Metrics.Listen != "" {
		sampler := hostSampler{registry: registry, queue: queue}
		go func() {
			if err := exporter.Run(ctx, cfg.Metrics.Listen, sampler, 5*time.Second); err != nil {
				logger.Error("Metrics endpoint error", "error", err)
			}
		}()
	}

	if cfg.Sync.Listen != "" {
		welcome := func() netsync.Welcome {
			return netsync.Welcome{Seed: gameSeed, Day: session.Day()}
		}
		relay := netsync.NewRelay(queue, cfg.Sync, welcome, netsync.NewHostActions(registry, session))
		go func() {
			if err := relay.Run(ctx, cfg.Sync.Listen); err != nil {
				logger.Error("Sync relay error", "error", err)
			}
		}()
	}

	run(ctx, registry, calendar, cfg.Mines)

	logger.Info("Shutting down mines host", "deepest", registry.DeepestLevelReached())
}

// engineOptions loads the generation inputs a host and its guests must
// share for their levels to match.
func engineOptions(cfg *config.Config) mine.Options {
	rules, err := mine.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load mine rules: %v", err)
	}
	if cfg.Mines.ClusterThreshold > 0 {
		rules.ClusterThreshold = cfg.Mines.ClusterThreshold
	}

	library := assets.NewLibrary(cfg.MapsDir, cfg.ProceduralMaps)
	if names, err := library.Names(); err == nil {
		logger.Info("Map assets found", "dir", cfg.MapsDir, "count", len(names), "procedural", cfg.ProceduralMaps)
	}

	opts := mine.Options{
		Rules:         rules,
		Assets:        library,
		ElevatorDelay: cfg.Mines.ElevatorDelay(),
	}

	// A missing bestiary leaves levels without monsters or loot rather
	// than stopping the engine.
	if beasts, err := bestiary.LoadFromYAML(cfg.BestiaryFile); err != nil {
		logger.Warning("Failed to load bestiary, monsters disabled", "path", cfg.BestiaryFile, "error", err)
	} else {
		opts.Monsters = beasts
		opts.Items = beasts
		opts.Sprites = beasts
		logger.Info("Bestiary loaded", "monsters", len(beasts.Monsters), "items", len(beasts.Items))
	}
	return opts
}

// run drives the registry until ctx is cancelled. Days advance only when a
// calendar is given.
func run(ctx context.Context, registry *mine.Registry, calendar *gametime.Calendar, cfg config.MinesConfig) {
	tick := cfg.Tick()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var dayC <-chan time.Time
	if length := cfg.DayLength(); length > 0 && calendar != nil {
		dayTicker := time.NewTicker(length)
		defer dayTicker.Stop()
		dayC = dayTicker.C
	}

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.Update(tick)
			ticks++
			if ticks%pruneEvery == 0 {
				if pruned := registry.PruneInactive(); len(pruned) > 0 {
					logger.Debug("Pruned mine levels", "levels", pruned)
				}
			}
		case <-dayC:
			newYear := calendar.AdvanceDay()
			registry.DailyReset()
			logger.Info("Day advanced", "date", calendar.Today().String(), "new_year", newYear)
		}
	}
}

// hostSampler feeds polled values to the metrics exporter.
type hostSampler struct {
	registry *mine.Registry
	queue    *events.Queue
}

func (s hostSampler) QueueLen() int     { return s.queue.Len() }
func (s hostSampler) DeepestLevel() int { return s.registry.DeepestLevelReached() }

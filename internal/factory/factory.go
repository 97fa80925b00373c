package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/dicearena/dicearena/internal/cache"
	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/random"
	"github.com/dicearena/dicearena/internal/dependencies/scheduler"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/services/ability"
	"github.com/dicearena/dicearena/internal/services/auth"
	"github.com/dicearena/dicearena/internal/services/bot"
	"github.com/dicearena/dicearena/internal/services/cleanup"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/services/matchmaking"
	"github.com/dicearena/dicearena/internal/services/presence"
	"github.com/dicearena/dicearena/internal/services/readycheck"
	"github.com/dicearena/dicearena/internal/storage"
	"github.com/dicearena/dicearena/internal/storage/memory"
	redisstorage "github.com/dicearena/dicearena/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Scheduler scheduler.Scheduler

	// Infrastructure
	Bus           *events.Bus
	PreMatchCache *cache.PreMatchCache

	// Services
	AuthService        *auth.Service
	MatchService       *match.Service
	ReadyCheckService  *readycheck.Service
	MatchmakingService *matchmaking.Service
	AbilityService     *ability.Service
	PresenceService    *presence.Service
	CleanupService     *cleanup.Service
	BotService         *bot.Service
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), scheduler.New(), authCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	sched scheduler.Scheduler,
	authCfg auth.Config,
	logger *slog.Logger,
) *App {
	bus := events.NewBus(logger)
	preMatch := cache.NewPreMatchCache(clk, cache.DefaultPreMatchTTL)

	matchService := match.NewService(store, bus, clk, rnd, logger)
	readyCheckService := readycheck.NewService(store, matchService, preMatch, sched, bus, clk, logger)
	matchmakingService := matchmaking.NewService(store, readyCheckService, sched, bus, clk, rnd, logger)
	readyCheckService.SetRequeueHook(matchmakingService.ArmRoomTimers)

	abilityService := ability.NewService(store, bus, clk, logger)
	presenceService := presence.NewService(store, sched, bus, clk, logger)
	cleanupService := cleanup.NewService(store, matchService, matchmakingService, sched, clk, logger)
	authService := auth.NewService(store, clk, rnd, authCfg)

	botService := bot.NewService(store, matchService, map[string]bot.Strategy{
		bot.StrategyCautious: bot.NewCautiousStrategy(),
		bot.StrategyGreedy:   bot.NewGreedyStrategy(),
		bot.StrategyWild:     bot.NewWildStrategy(rnd),
	}, logger)

	return &App{
		Storage:            store,
		Clock:              clk,
		Random:             rnd,
		Scheduler:          sched,
		Bus:                bus,
		PreMatchCache:      preMatch,
		AuthService:        authService,
		MatchService:       matchService,
		ReadyCheckService:  readyCheckService,
		MatchmakingService: matchmakingService,
		AbilityService:     abilityService,
		PresenceService:    presenceService,
		CleanupService:     cleanupService,
		BotService:         botService,
	}
}

// StartBackground arms the periodic sweeps. Tests drive sweeps manually
// and skip this.
func (a *App) StartBackground() {
	a.PresenceService.Start()
	a.CleanupService.Start()
}

// Close releases background resources
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Bus.Close()
}

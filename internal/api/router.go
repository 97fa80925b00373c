package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dicearena/dicearena/internal/api/handler"
	"github.com/dicearena/dicearena/internal/api/middleware"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/services/ability"
	"github.com/dicearena/dicearena/internal/services/auth"
	"github.com/dicearena/dicearena/internal/services/bot"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/services/matchmaking"
	"github.com/dicearena/dicearena/internal/services/presence"
	"github.com/dicearena/dicearena/internal/services/readycheck"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	AuthService        *auth.Service
	MatchmakingService matchmaking.ServiceInterface
	ReadyCheckService  readycheck.ServiceInterface
	MatchService       match.ServiceInterface
	AbilityService     ability.ServiceInterface
	PresenceService    presence.ServiceInterface
	BotService         bot.ServiceInterface
	Bus                *events.Bus
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.PresenceService)
	roomHandler := handler.NewRoomHandler(cfg.MatchmakingService, cfg.ReadyCheckService, cfg.BotService)
	matchHandler := handler.NewMatchHandler(cfg.MatchService, cfg.AbilityService, cfg.BotService)
	metaHandler := handler.NewMetaHandler(cfg.AbilityService)
	eventsHandler := handler.NewEventsHandler(cfg.Bus)

	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/heartbeat", playerHandler.Heartbeat).Methods(http.MethodPost)

	// Matchmaking routes (all require auth)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(authMiddleware)
	rooms.HandleFunc("/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/leave", roomHandler.Leave).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}/ready", roomHandler.Ready).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/decline", roomHandler.Decline).Methods(http.MethodPost)

	// Match routes (all require auth)
	matches := api.PathPrefix("/matches").Subrouter()
	matches.Use(authMiddleware)
	matches.HandleFunc("/{id}", matchHandler.Get).Methods(http.MethodGet)
	matches.HandleFunc("/{id}/parity", matchHandler.Parity).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/roll", matchHandler.Roll).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/bank", matchHandler.Bank).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/abilities", matchHandler.UseAbility).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/forfeit", matchHandler.Forfeit).Methods(http.MethodPost)

	// Catalogs (no auth)
	api.HandleFunc("/modes", metaHandler.Modes).Methods(http.MethodGet)
	api.HandleFunc("/abilities", metaHandler.Abilities).Methods(http.MethodGet)

	// Event stream (auth; EventSource clients pass token by query param)
	eventsRoute := api.PathPrefix("/events").Subrouter()
	eventsRoute.Use(authMiddleware)
	eventsRoute.HandleFunc("", eventsHandler.Stream).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

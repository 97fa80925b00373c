package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dicearena/dicearena/internal/api/middleware"
	"github.com/dicearena/dicearena/internal/api/request"
	"github.com/dicearena/dicearena/internal/api/response"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/ability"
	"github.com/dicearena/dicearena/internal/services/bot"
	"github.com/dicearena/dicearena/internal/services/match"
)

// MatchHandler handles match command endpoints
type MatchHandler struct {
	matches   match.ServiceInterface
	abilities ability.ServiceInterface
	bots      bot.ServiceInterface
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(
	matches match.ServiceInterface,
	abilities ability.ServiceInterface,
	bots bot.ServiceInterface,
) *MatchHandler {
	return &MatchHandler{
		matches:   matches,
		abilities: abilities,
		bots:      bots,
	}
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID := model.MatchID(mux.Vars(r)["id"])

	m, err := h.matches.GetMatch(r.Context(), matchID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Parity handles POST /api/v1/matches/{id}/parity
func (h *MatchHandler) Parity(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	var req request.ParityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	err := h.matches.ChooseParity(r.Context(), matchID, player.ID, model.Parity(req.Parity), req.Seq)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.afterCommand(w, r, matchID)
}

// Roll handles POST /api/v1/matches/{id}/roll
func (h *MatchHandler) Roll(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	var req request.RollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.matches.RollDice(r.Context(), matchID, player.ID, req.Seq); err != nil {
		WriteError(w, err)
		return
	}

	h.afterCommand(w, r, matchID)
}

// Bank handles POST /api/v1/matches/{id}/bank
func (h *MatchHandler) Bank(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	var req request.BankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.matches.Bank(r.Context(), matchID, player.ID, req.Seq); err != nil {
		WriteError(w, err)
		return
	}

	h.afterCommand(w, r, matchID)
}

// UseAbility handles POST /api/v1/matches/{id}/abilities
func (h *MatchHandler) UseAbility(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	var req request.UseAbilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.AbilityID == "" {
		WriteError(w, NewInvalidRequestError("ability_id is required"))
		return
	}

	err := h.abilities.Use(r.Context(), matchID, player.ID, model.AbilityID(req.AbilityID), model.PlayerID(req.TargetID), req.Seq)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.afterCommand(w, r, matchID)
}

// Forfeit handles POST /api/v1/matches/{id}/forfeit
func (h *MatchHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	matchID := model.MatchID(mux.Vars(r)["id"])

	if err := h.matches.Forfeit(r.Context(), matchID, player.ID); err != nil {
		WriteError(w, err)
		return
	}

	h.respondWithMatch(w, r, matchID)
}

// afterCommand lets bots respond to the human command, then returns the
// resulting match state
func (h *MatchHandler) afterCommand(w http.ResponseWriter, r *http.Request, matchID model.MatchID) {
	if _, err := h.bots.ProcessBotActions(r.Context(), matchID); err != nil {
		WriteError(w, err)
		return
	}
	h.respondWithMatch(w, r, matchID)
}

func (h *MatchHandler) respondWithMatch(w http.ResponseWriter, r *http.Request, matchID model.MatchID) {
	m, err := h.matches.GetMatch(r.Context(), matchID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

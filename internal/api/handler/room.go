package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dicearena/dicearena/internal/api/middleware"
	"github.com/dicearena/dicearena/internal/api/request"
	"github.com/dicearena/dicearena/internal/api/response"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/bot"
	"github.com/dicearena/dicearena/internal/services/matchmaking"
	"github.com/dicearena/dicearena/internal/services/readycheck"
)

// RoomHandler handles matchmaking and ready check endpoints
type RoomHandler struct {
	matchmaking matchmaking.ServiceInterface
	readychecks readycheck.ServiceInterface
	bots        bot.ServiceInterface
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(
	mm matchmaking.ServiceInterface,
	rc readycheck.ServiceInterface,
	bots bot.ServiceInterface,
) *RoomHandler {
	return &RoomHandler{
		matchmaking: mm,
		readychecks: rc,
		bots:        bots,
	}
}

// Join handles POST /api/v1/rooms/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Mode == "" {
		WriteError(w, NewInvalidRequestError("mode is required"))
		return
	}

	room, err := h.matchmaking.FindOrCreateRoom(r.Context(), player.ID, model.ModeID(req.Mode))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])

	room, err := h.matchmaking.GetRoom(r.Context(), roomID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Leave handles POST /api/v1/rooms/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	if err := h.matchmaking.LeaveRoom(r.Context(), player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Ready handles POST /api/v1/rooms/{id}/ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	roomID := model.RoomID(mux.Vars(r)["id"])

	// Capture the pre-allocated match id before the room is torn down
	room, err := h.matchmaking.GetRoom(r.Context(), roomID)
	if err != nil {
		WriteError(w, err)
		return
	}
	matchID := room.MatchID

	if err := h.readychecks.MarkReady(r.Context(), roomID, player.ID); err != nil {
		WriteError(w, err)
		return
	}

	// If confirmation completed the check, let any bot decider act
	if matchID != "" {
		_, _ = h.bots.ProcessBotActions(r.Context(), matchID)
	}

	response.NoContent(w)
}

// Decline handles POST /api/v1/rooms/{id}/decline
func (h *RoomHandler) Decline(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	roomID := model.RoomID(mux.Vars(r)["id"])

	if err := h.readychecks.Decline(r.Context(), roomID, player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

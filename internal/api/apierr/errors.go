package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeRoomFull            = "ROOM_FULL"
	CodeAlreadyInRoom       = "ALREADY_IN_ROOM"
	CodeAlreadyInMatch      = "ALREADY_IN_MATCH"
	CodeNotInRoom           = "NOT_IN_ROOM"
	CodeNotInMatch          = "NOT_IN_MATCH"
	CodeRoomNotWaiting      = "ROOM_NOT_WAITING"
	CodeUnknownMode         = "UNKNOWN_MODE"
	CodeReadyCheckNotActive = "READY_CHECK_NOT_ACTIVE"
	CodeReadyCheckExpired   = "READY_CHECK_EXPIRED"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeWrongPhase          = "WRONG_PHASE"
	CodeInvalidParity       = "INVALID_PARITY"
	CodeNotDecider          = "NOT_DECIDER"
	CodeBankingNotAllowed   = "BANKING_NOT_ALLOWED"
	CodeMatchOver           = "MATCH_OVER"
	CodeStaleCommand        = "STALE_COMMAND"
	CodeAbilityNotFound     = "ABILITY_NOT_FOUND"
	CodeInsufficientAura    = "INSUFFICIENT_AURA"
	CodeAbilityOnCooldown   = "ABILITY_ON_COOLDOWN"
	CodeInvalidTarget       = "INVALID_TARGET"
	CodeAbilityTiming       = "ABILITY_TIMING"
	CodeConflict            = "CONFLICT"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "Already waiting in a room"}}
	case errors.Is(err, model.ErrAlreadyInMatch):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInMatch, "Already in an active match"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusNotFound, APIError{CodeNotInRoom, "Not in this room"}}
	case errors.Is(err, model.ErrNotInMatch):
		return &httpError{http.StatusForbidden, APIError{CodeNotInMatch, "Not a participant in this match"}}
	case errors.Is(err, model.ErrRoomNotWaiting):
		return &httpError{http.StatusConflict, APIError{CodeRoomNotWaiting, "Room is no longer waiting"}}
	case errors.Is(err, model.ErrUnknownMode):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownMode, "Unknown game mode"}}
	case errors.Is(err, model.ErrReadyCheckNotActive):
		return &httpError{http.StatusConflict, APIError{CodeReadyCheckNotActive, "No ready check in progress"}}
	case errors.Is(err, model.ErrReadyCheckExpired):
		return &httpError{http.StatusConflict, APIError{CodeReadyCheckExpired, "Ready check window has expired"}}
	case errors.Is(err, model.ErrInvalidTurnOwner):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, "Match is not in the right phase"}}
	case errors.Is(err, model.ErrInvalidParity):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidParity, "Parity must be odd or even"}}
	case errors.Is(err, model.ErrNotDecider):
		return &httpError{http.StatusForbidden, APIError{CodeNotDecider, "Only the decider can call parity"}}
	case errors.Is(err, model.ErrBankingNotAllowed):
		return &httpError{http.StatusConflict, APIError{CodeBankingNotAllowed, "This mode does not allow banking"}}
	case errors.Is(err, model.ErrMatchOver):
		return &httpError{http.StatusConflict, APIError{CodeMatchOver, "Match is over"}}
	case errors.Is(err, model.ErrStaleCommand):
		return &httpError{http.StatusConflict, APIError{CodeStaleCommand, "Command sequence is stale"}}
	case errors.Is(err, model.ErrAbilityNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAbilityNotFound, "Unknown ability"}}
	case errors.Is(err, model.ErrInsufficientAura):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientAura, "Not enough aura"}}
	case errors.Is(err, model.ErrAbilityOnCooldown):
		return &httpError{http.StatusConflict, APIError{CodeAbilityOnCooldown, "Ability is on cooldown"}}
	case errors.Is(err, model.ErrInvalidTarget):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTarget, "Invalid ability target"}}
	case errors.Is(err, model.ErrAbilityTiming):
		return &httpError{http.StatusConflict, APIError{CodeAbilityTiming, "Ability cannot be used right now"}}
	case errors.Is(err, model.ErrVersionConflict), errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Concurrent update, retry"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

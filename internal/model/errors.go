package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Room errors
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("player already has an active room")
	ErrAlreadyInMatch = errors.New("player already has an active match")
	ErrNotInRoom     = errors.New("player is not in room")
	ErrRoomNotWaiting = errors.New("room is no longer waiting for players")
	ErrUnknownMode   = errors.New("unknown game mode")

	// Ready-check errors
	ErrReadyCheckNotActive = errors.New("ready check is not active")
	ErrReadyCheckExpired   = errors.New("ready check has expired")

	// Match errors
	ErrMatchNotFound    = errors.New("match not found")
	ErrNotInMatch       = errors.New("player is not in match")
	ErrInvalidTurnOwner = errors.New("player does not hold the turn")
	ErrWrongPhase       = errors.New("command not valid in current match phase")
	ErrInvalidParity    = errors.New("parity must be odd or even")
	ErrNotDecider       = errors.New("player is not the turn decider")
	ErrBankingNotAllowed = errors.New("banking is not allowed in this mode")
	ErrMatchOver        = errors.New("match is already over")
	ErrStaleCommand     = errors.New("command sequence already applied")

	// Ability errors
	ErrAbilityNotFound   = errors.New("ability not found")
	ErrInsufficientAura  = errors.New("insufficient aura for ability")
	ErrAbilityOnCooldown = errors.New("ability is on cooldown")
	ErrInvalidTarget     = errors.New("invalid ability target")
	ErrAbilityTiming     = errors.New("ability cannot be used right now")

	// Storage errors
	ErrVersionConflict = errors.New("version conflict on save")
	// ErrConflict is surfaced when bounded retries on version conflicts
	// are exhausted
	ErrConflict = errors.New("concurrent update conflict")
)

package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Matchmaking events
	EventRoomJoined        EventType = "room_joined"
	EventRoomExpired       EventType = "room_expired"
	EventReadyCheckStarted EventType = "ready_check_started"
	EventReadyCheckResult  EventType = "ready_check_result"

	// Match events
	EventMatchStarted EventType = "match_started"
	EventTurnResolved EventType = "turn_resolved"
	EventMatchEnded   EventType = "match_ended"
	EventAbilityUsed  EventType = "ability_used"

	// Presence events
	EventPlayerStale     EventType = "player_stale"
	EventPlayerAbandoned EventType = "player_abandoned"
)

// Event is the base structure for all events published by the engine
type Event struct {
	Type      EventType
	Timestamp time.Time
	RoomID    RoomID   // empty for match-only events
	MatchID   MatchID  // empty for room-only events
	PlayerID  PlayerID // the player who triggered or is affected
	Payload   any      // type-specific data
}

// RoomJoinedPayload contains data for room joined events
type RoomJoinedPayload struct {
	PlayerID    PlayerID
	DisplayName string
	IsNewRoom   bool
	IsBot       bool
	MemberCount int
	Capacity    int
}

// RoomExpiredPayload contains data for room expired events
type RoomExpiredPayload struct {
	Reason string // "hard_timeout" or "stale"
}

// ReadyCheckStartedPayload contains data for ready check started events
type ReadyCheckStartedPayload struct {
	MatchID   MatchID
	Players   []PlayerID
	ExpiresAt time.Time
}

// ReadyCheckResultPayload contains data for ready check result events
type ReadyCheckResultPayload struct {
	Outcome ReadyCheckOutcome
	MatchID MatchID // set when Outcome is completed
}

// MatchStartedPayload contains data for match started events
type MatchStartedPayload struct {
	MatchID   MatchID
	Mode      ModeID
	Players   []PlayerID
	DeciderID PlayerID
}

// TurnResolvedPayload contains data for turn resolved events
type TurnResolvedPayload struct {
	Dice       [2]int
	Outcome    RollOutcome
	TurnScore  int
	Multiplier int
	Totals     map[PlayerID]int
	SharedPool int
	Banked     bool
	NextTurn   PlayerID // holder of the turn after this resolution
	Round      int
}

// MatchEndedPayload contains data for match ended events
type MatchEndedPayload struct {
	Winner PlayerID
	Reason EndReason
	Totals map[PlayerID]int
}

// AbilityUsedPayload contains data for ability used events
type AbilityUsedPayload struct {
	AbilityID     AbilityID
	SourceID      PlayerID
	TargetID      PlayerID
	Blocked       bool // true when a shield absorbed the effects
	AuraRemaining int
}

// PlayerStalePayload contains data for player stale events
type PlayerStalePayload struct {
	LastHeartbeatAt time.Time
}

// PlayerAbandonedPayload contains data for player abandoned events
type PlayerAbandonedPayload struct {
	MatchID MatchID
	Winner  PlayerID
}

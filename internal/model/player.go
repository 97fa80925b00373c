package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents a game participant
type Player struct {
	ID          PlayerID
	DisplayName string
	IsGuest     bool // true for unregistered players
	IsBot       bool // true for synthesized filler opponents
	CreatedAt   time.Time
}

// RegisteredPlayer extends Player with authentication data
// Stored separately for security (password never in memory with session)
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PresenceStatus is the derived connection state of a player session
type PresenceStatus string

const (
	PresenceOnline PresenceStatus = "online"
	PresenceAway   PresenceStatus = "away"
	PresenceStale  PresenceStatus = "stale"
)

// Heartbeat cadence and staleness windows
const (
	// HeartbeatInterval is the expected client heartbeat cadence
	HeartbeatInterval = 30 * time.Second
	// AwayThreshold is how long without a heartbeat before a player is away
	AwayThreshold = time.Minute
	// StaleThreshold is how long without a heartbeat before a player is stale
	StaleThreshold = 2 * time.Minute
)

// Presence records the last observed heartbeat for a player session
type Presence struct {
	PlayerID        PlayerID
	LastHeartbeatAt time.Time
	// LastStatus is the status derived at the most recent staleness sweep,
	// kept so stale transitions are emitted exactly once
	LastStatus PresenceStatus
	Version    int64
	UpdatedAt  time.Time
}

// StatusAt derives the presence status as of the given time
func (p *Presence) StatusAt(now time.Time) PresenceStatus {
	since := now.Sub(p.LastHeartbeatAt)
	switch {
	case since >= StaleThreshold:
		return PresenceStale
	case since >= AwayThreshold:
		return PresenceAway
	default:
		return PresenceOnline
	}
}

package redis

import "time"

// Config holds Redis storage configuration
type Config struct {
	// URL is the Redis connection URL (redis://...)
	URL string

	PoolSize     int
	MinIdleConns int

	// GuestPlayerTTL expires unregistered players
	GuestPlayerTTL time.Duration
	// RoomTTL is a backstop on room records; the cleanup sweep normally
	// removes them much sooner
	RoomTTL time.Duration
	// MatchTTL bounds how long an archived match is retained
	MatchTTL time.Duration
	// PresenceTTL expires presence records of departed players
	PresenceTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PoolSize:       10,
		MinIdleConns:   2,
		GuestPlayerTTL: 24 * time.Hour,
		RoomTTL:        time.Hour,
		MatchTTL:       24 * time.Hour,
		PresenceTTL:    time.Hour,
	}
}

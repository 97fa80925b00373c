package model

import "time"

// ReadyCheckState is the state of a ready check protocol instance
type ReadyCheckState string

const (
	ReadyCheckActive    ReadyCheckState = "active"
	ReadyCheckCompleted ReadyCheckState = "completed"
	ReadyCheckCancelled ReadyCheckState = "cancelled"
)

// ReadyCheckWindow is the fixed confirmation window
const ReadyCheckWindow = 10 * time.Second

// ReadyCheckOutcome is reported in readyCheckResult events
type ReadyCheckOutcome string

const (
	ReadyCheckOutcomeCompleted ReadyCheckOutcome = "completed"
	ReadyCheckOutcomeDeclined  ReadyCheckOutcome = "declined"
	ReadyCheckOutcomeExpired   ReadyCheckOutcome = "expired"
)

// ReadyCheck is the bounded mutual-confirmation step run once a room
// reaches capacity. Embedded in the WaitingRoom so flag updates share the
// room's versioned save.
type ReadyCheck struct {
	State     ReadyCheckState
	Ready     map[PlayerID]bool
	StartedAt time.Time
	ExpiresAt time.Time
}

// IsActive reports whether the check can still accept ready marks
func (rc *ReadyCheck) IsActive() bool {
	return rc != nil && rc.State == ReadyCheckActive
}

// ExpiredAt reports whether the window has elapsed as of now
func (rc *ReadyCheck) ExpiredAt(now time.Time) bool {
	return !now.Before(rc.ExpiresAt)
}

// AllReady reports whether every given player has confirmed
func (rc *ReadyCheck) AllReady(players []PlayerID) bool {
	for _, id := range players {
		if !rc.Ready[id] {
			return false
		}
	}
	return true
}

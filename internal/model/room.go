package model

import "time"

// RoomID uniquely identifies a waiting room
type RoomID string

// RoomStatus represents the lifecycle state of a waiting room
type RoomStatus string

const (
	// RoomStatusWaiting: room has free capacity and is joinable
	RoomStatusWaiting RoomStatus = "waiting"
	// RoomStatusMatched: room is full and running its ready check
	RoomStatusMatched RoomStatus = "matched"
	// RoomStatusExpired: room timed out before reaching capacity
	RoomStatusExpired RoomStatus = "expired"
)

// Matchmaking timers
const (
	// BotBackfillDelay is how long a room waits before a bot fills the
	// empty seat
	BotBackfillDelay = 30 * time.Second
	// RoomHardTimeout is the ceiling after which an unfilled room is torn
	// down regardless of backfill
	RoomHardTimeout = 45 * time.Second
	// RoomStaleAge is the age at which the cleanup sweep force-deletes a
	// waiting room
	RoomStaleAge = 5 * time.Minute
)

// RoomMember is a player's membership in a waiting room
type RoomMember struct {
	PlayerID    PlayerID
	DisplayName string
	IsBot       bool
	JoinedAt    time.Time
}

// WaitingRoom groups players waiting for an opponent in one game mode.
// The embedded ReadyCheck is non-nil only while Status is matched.
type WaitingRoom struct {
	ID       RoomID
	Mode     ModeID
	Status   RoomStatus
	Capacity int
	Members  []RoomMember

	ReadyCheck *ReadyCheck
	// MatchID is pre-allocated when the ready check starts so clients can
	// subscribe to the would-be match before it is confirmed
	MatchID MatchID

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// GetMember returns the member with the given player ID, or nil if absent
func (r *WaitingRoom) GetMember(playerID PlayerID) *RoomMember {
	for i := range r.Members {
		if r.Members[i].PlayerID == playerID {
			return &r.Members[i]
		}
	}
	return nil
}

// IsFull reports whether the room has reached capacity
func (r *WaitingRoom) IsFull() bool {
	return len(r.Members) >= r.Capacity
}

// Host returns the first-joined member. The host is the turn decider once
// a match starts.
func (r *WaitingRoom) Host() *RoomMember {
	if len(r.Members) == 0 {
		return nil
	}
	return &r.Members[0]
}

// RealMembers returns the non-bot members
func (r *WaitingRoom) RealMembers() []RoomMember {
	var out []RoomMember
	for _, m := range r.Members {
		if !m.IsBot {
			out = append(out, m)
		}
	}
	return out
}

// MemberIDs returns the member player IDs in join order
func (r *WaitingRoom) MemberIDs() []PlayerID {
	ids := make([]PlayerID, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.PlayerID
	}
	return ids
}

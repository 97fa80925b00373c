package storage

import (
	"context"

	"github.com/dicearena/dicearena/internal/model"
)

// PlayerLocation records where a player currently is. At most one of the
// fields is set; both empty means the player is free to join a room.
type PlayerLocation struct {
	RoomID  model.RoomID
	MatchID model.MatchID
}

// Free reports whether the player has no active room or match
func (l PlayerLocation) Free() bool {
	return l.RoomID == "" && l.MatchID == ""
}

// Storage defines the interface for data persistence.
//
// Room and match records carry a Version field. Create* operations require a
// fresh record and store it at version 1; Update* operations are
// compare-and-swap: they succeed only if the caller's Version matches the
// stored one, and bump it by one. A mismatch returns
// model.ErrVersionConflict and leaves the record untouched. Services do
// read-modify-write loops around this with a bounded retry count.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Room operations. Creating or updating a room indexes its non-bot
	// members' locations; deleting it releases them.
	CreateRoom(ctx context.Context, room *model.WaitingRoom) error
	UpdateRoom(ctx context.Context, room *model.WaitingRoom) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.WaitingRoom, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	// FindWaitingRooms returns rooms in the waiting state for the mode,
	// oldest first
	FindWaitingRooms(ctx context.Context, mode model.ModeID) ([]*model.WaitingRoom, error)
	// ListRooms returns every room regardless of state (cleanup sweep)
	ListRooms(ctx context.Context) ([]*model.WaitingRoom, error)

	// Match operations. Matches are archived at game over, never deleted;
	// creating a match indexes its non-bot participants' locations and a
	// terminal update releases them.
	CreateMatch(ctx context.Context, match *model.Match) error
	UpdateMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	// ListActiveMatches returns matches that have not reached game over
	ListActiveMatches(ctx context.Context) ([]*model.Match, error)

	// GetPlayerLocation reports the player's active room or match
	GetPlayerLocation(ctx context.Context, id model.PlayerID) (PlayerLocation, error)

	// Presence operations
	SavePresence(ctx context.Context, p *model.Presence) error
	GetPresence(ctx context.Context, id model.PlayerID) (*model.Presence, error)
	ListPresence(ctx context.Context) ([]*model.Presence, error)
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/dicearena/dicearena/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) makeRoom(id model.RoomID, createdAt time.Time, members ...model.RoomMember) *model.WaitingRoom {
	if members == nil {
		members = []model.RoomMember{{PlayerID: "p1", DisplayName: "Alice"}}
	}
	return &model.WaitingRoom{
		ID:        id,
		Mode:      "classic",
		Status:    model.RoomStatusWaiting,
		Capacity:  2,
		Members:   members,
		CreatedAt: createdAt,
	}
}

func (s *StorageSuite) makeMatch(id model.MatchID) *model.Match {
	return &model.Match{
		ID:   id,
		Mode: "classic",
		Players: []model.PlayerMatchData{
			{PlayerID: "p1", DisplayName: "Alice"},
			{PlayerID: "p2", DisplayName: "Bob"},
		},
		Game:      model.GameData{Phase: model.PhaseGameplay, Multiplier: 1},
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "p1",
		DisplayName: "Alice",
		CreatedAt:   time.Now(),
	}

	err := s.storage.SavePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.DisplayName, retrieved.DisplayName)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestGuestPlayerExpires() {
	player := &model.Player{ID: "p1", DisplayName: "Alice", IsGuest: true}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, player))

	s.mini.FastForward(25 * time.Hour)

	_, err := s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeletePlayer() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", DisplayName: "Alice"})

	err := s.storage.DeletePlayer(s.ctx, "p1")
	s.Require().NoError(err)

	_, err = s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Registered player tests

func (s *StorageSuite) TestSaveAndGetRegisteredPlayer() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "p1",
		Username:     "alice",
		PasswordHash: "hash123",
	}

	err := s.storage.SaveRegisteredPlayer(s.ctx, rp)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetRegisteredPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(rp.Username, retrieved.Username)
}

func (s *StorageSuite) TestGetRegisteredPlayerByUsername() {
	_ = s.storage.SaveRegisteredPlayer(s.ctx, &model.RegisteredPlayer{
		PlayerID: "p1",
		Username: "alice",
	})

	retrieved, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("p1", string(retrieved.PlayerID))
}

func (s *StorageSuite) TestGetRegisteredPlayerByUsernameNotFound() {
	_, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Room tests

func (s *StorageSuite) TestCreateAndGetRoom() {
	room := s.makeRoom("ROOM1", time.Now())

	err := s.storage.CreateRoom(s.ctx, room)
	s.Require().NoError(err)
	s.Equal(int64(1), room.Version)

	retrieved, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)
	s.Equal(room.ID, retrieved.ID)
	s.Len(retrieved.Members, 1)
}

func (s *StorageSuite) TestCreateRoomTwiceFails() {
	_ = s.storage.CreateRoom(s.ctx, s.makeRoom("ROOM1", time.Now()))

	err := s.storage.CreateRoom(s.ctx, s.makeRoom("ROOM1", time.Now()))
	s.ErrorIs(err, model.ErrVersionConflict)
}

func (s *StorageSuite) TestUpdateRoomStaleVersionFails() {
	room := s.makeRoom("ROOM1", time.Now())
	_ = s.storage.CreateRoom(s.ctx, room)

	stale, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)

	room.Status = model.RoomStatusMatched
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, room))
	s.Equal(int64(2), room.Version)

	stale.Status = model.RoomStatusExpired
	err = s.storage.UpdateRoom(s.ctx, stale)
	s.ErrorIs(err, model.ErrVersionConflict)
}

func (s *StorageSuite) TestUpdateMissingRoomFails() {
	err := s.storage.UpdateRoom(s.ctx, s.makeRoom("ROOM1", time.Now()))
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestDeleteRoom() {
	_ = s.storage.CreateRoom(s.ctx, s.makeRoom("ROOM1", time.Now()))

	err := s.storage.DeleteRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)

	_, err = s.storage.GetRoom(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrRoomNotFound)

	loc, err := s.storage.GetPlayerLocation(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(loc.RoomID)
}

func (s *StorageSuite) TestDeleteMissingRoomIsNoop() {
	s.NoError(s.storage.DeleteRoom(s.ctx, "nonexistent"))
}

func (s *StorageSuite) TestFindWaitingRoomsSortsOldestFirst() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := s.makeRoom("NEW1", base.Add(10*time.Minute), model.RoomMember{PlayerID: "p2"})
	older := s.makeRoom("OLD1", base)

	_ = s.storage.CreateRoom(s.ctx, newer)
	_ = s.storage.CreateRoom(s.ctx, older)

	rooms, err := s.storage.FindWaitingRooms(s.ctx, "classic")
	s.Require().NoError(err)
	s.Require().Len(rooms, 2)
	s.Equal(model.RoomID("OLD1"), rooms[0].ID)
	s.Equal(model.RoomID("NEW1"), rooms[1].ID)
}

func (s *StorageSuite) TestMatchedRoomLeavesWaitingIndex() {
	room := s.makeRoom("ROOM1", time.Now())
	_ = s.storage.CreateRoom(s.ctx, room)

	room.Status = model.RoomStatusMatched
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, room))

	rooms, err := s.storage.FindWaitingRooms(s.ctx, "classic")
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *StorageSuite) TestFindWaitingRoomsDoesNotMixModes() {
	_ = s.storage.CreateRoom(s.ctx, s.makeRoom("ROOM1", time.Now()))

	rooms, err := s.storage.FindWaitingRooms(s.ctx, "descent")
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *StorageSuite) TestListRooms() {
	_ = s.storage.CreateRoom(s.ctx, s.makeRoom("ROOM1", time.Now()))
	_ = s.storage.CreateRoom(s.ctx, s.makeRoom("ROOM2", time.Now(), model.RoomMember{PlayerID: "p2"}))

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Len(rooms, 2)
}

// Match tests

func (s *StorageSuite) TestCreateAndGetMatch() {
	match := s.makeMatch("MATCH1")

	err := s.storage.CreateMatch(s.ctx, match)
	s.Require().NoError(err)
	s.Equal(int64(1), match.Version)

	retrieved, err := s.storage.GetMatch(s.ctx, "MATCH1")
	s.Require().NoError(err)
	s.Equal(match.ID, retrieved.ID)
	s.Equal(model.PhaseGameplay, retrieved.Game.Phase)
}

func (s *StorageSuite) TestCreateMatchTwiceFails() {
	_ = s.storage.CreateMatch(s.ctx, s.makeMatch("MATCH1"))

	err := s.storage.CreateMatch(s.ctx, s.makeMatch("MATCH1"))
	s.ErrorIs(err, model.ErrVersionConflict)
}

func (s *StorageSuite) TestGetMatchNotFound() {
	_, err := s.storage.GetMatch(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestUpdateMatchStaleVersionFails() {
	match := s.makeMatch("MATCH1")
	_ = s.storage.CreateMatch(s.ctx, match)

	stale, err := s.storage.GetMatch(s.ctx, "MATCH1")
	s.Require().NoError(err)

	match.Game.CommandSeq = 1
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, match))

	stale.Game.CommandSeq = 1
	err = s.storage.UpdateMatch(s.ctx, stale)
	s.ErrorIs(err, model.ErrVersionConflict)
}

func (s *StorageSuite) TestListActiveMatchesExcludesFinished() {
	active := s.makeMatch("MATCH1")
	finished := s.makeMatch("MATCH2")
	finished.Players[0].PlayerID = "p3"
	finished.Players[1].PlayerID = "p4"
	_ = s.storage.CreateMatch(s.ctx, active)
	_ = s.storage.CreateMatch(s.ctx, finished)

	finished.Game.Phase = model.PhaseGameOver
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, finished))

	matches, err := s.storage.ListActiveMatches(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(model.MatchID("MATCH1"), matches[0].ID)
}

// Location index tests

func (s *StorageSuite) TestRoomMembershipIndexesLocation() {
	room := s.makeRoom("ROOM1", time.Now(),
		model.RoomMember{PlayerID: "p1"},
		model.RoomMember{PlayerID: "bot:B1", IsBot: true},
	)
	_ = s.storage.CreateRoom(s.ctx, room)

	loc, err := s.storage.GetPlayerLocation(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.RoomID("ROOM1"), loc.RoomID)

	loc, err = s.storage.GetPlayerLocation(s.ctx, "bot:B1")
	s.Require().NoError(err)
	s.Empty(loc.RoomID)
}

func (s *StorageSuite) TestRemovedMemberIsUnindexed() {
	room := s.makeRoom("ROOM1", time.Now(),
		model.RoomMember{PlayerID: "p1"},
		model.RoomMember{PlayerID: "p2"},
	)
	_ = s.storage.CreateRoom(s.ctx, room)

	room.Members = room.Members[:1]
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, room))

	loc, err := s.storage.GetPlayerLocation(s.ctx, "p2")
	s.Require().NoError(err)
	s.Empty(loc.RoomID)
}

func (s *StorageSuite) TestFinishedMatchReleasesPlayers() {
	match := s.makeMatch("MATCH1")
	_ = s.storage.CreateMatch(s.ctx, match)

	loc, err := s.storage.GetPlayerLocation(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("MATCH1"), loc.MatchID)

	match.Game.Phase = model.PhaseGameOver
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, match))

	loc, err = s.storage.GetPlayerLocation(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(loc.MatchID)
}

// Presence tests

func (s *StorageSuite) TestSaveAndGetPresence() {
	p := &model.Presence{
		PlayerID:        "p1",
		LastHeartbeatAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		LastStatus:      model.PresenceOnline,
	}

	err := s.storage.SavePresence(s.ctx, p)
	s.Require().NoError(err)
	s.Equal(int64(1), p.Version)

	retrieved, err := s.storage.GetPresence(s.ctx, "p1")
	s.Require().NoError(err)
	s.True(p.LastHeartbeatAt.Equal(retrieved.LastHeartbeatAt))
}

func (s *StorageSuite) TestGetPresenceNotFound() {
	_, err := s.storage.GetPresence(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestListPresenceSkipsExpiredRecords() {
	_ = s.storage.SavePresence(s.ctx, &model.Presence{PlayerID: "p1"})
	_ = s.storage.SavePresence(s.ctx, &model.Presence{PlayerID: "p2"})

	s.mini.FastForward(2 * time.Hour)
	_ = s.storage.SavePresence(s.ctx, &model.Presence{PlayerID: "p3"})

	all, err := s.storage.ListPresence(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(model.PlayerID("p3"), all[0].PlayerID)
}

package matchmaking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dicearena/dicearena/internal/cache"
	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/mocks"
	"github.com/dicearena/dicearena/internal/dependencies/random"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/services/readycheck"
	"github.com/dicearena/dicearena/internal/storage"
	"github.com/dicearena/dicearena/internal/storage/memory"
	"github.com/stretchr/testify/suite"
)

type MatchmakingSuite struct {
	suite.Suite
	storage    *memory.Storage
	matches    *match.Service
	readycheck *readycheck.Service
	scheduler  *mocks.MockScheduler
	bus        *events.Bus
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	service    *Service
	ctx        context.Context
}

func TestMatchmakingSuite(t *testing.T) {
	suite.Run(t, new(MatchmakingSuite))
}

func (s *MatchmakingSuite) SetupTest() {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s.storage = memory.New()
	s.bus = events.NewBus(logger)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.scheduler = mocks.NewMockScheduler()
	s.matches = match.NewService(s.storage, s.bus, s.clock, s.random, logger)
	preMatch := cache.NewPreMatchCache(s.clock, cache.DefaultPreMatchTTL)
	s.readycheck = readycheck.NewService(s.storage, s.matches, preMatch, s.scheduler, s.bus, s.clock, logger)
	s.service = NewService(s.storage, s.readycheck, s.scheduler, s.bus, s.clock, s.random, logger)
	s.readycheck.SetRequeueHook(s.service.ArmRoomTimers)
	s.ctx = context.Background()
}

func (s *MatchmakingSuite) savePlayer(id model.PlayerID, name string) {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{
		ID:          id,
		DisplayName: name,
		IsGuest:     true,
		CreatedAt:   s.clock.Now(),
	}))
}

// FindOrCreateRoom tests

func (s *MatchmakingSuite) TestFirstPlayerCreatesRoom() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1")

	room, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	s.Equal(model.RoomID("ROOM1"), room.ID)
	s.Equal(model.RoomStatusWaiting, room.Status)
	s.Equal(2, room.Capacity)
	s.Len(room.Members, 1)
	s.Equal(model.PlayerID("p1"), room.Host().PlayerID)
	s.True(s.scheduler.Pending("room:ROOM1:backfill"))
	s.True(s.scheduler.Pending("room:ROOM1:timeout"))
}

func (s *MatchmakingSuite) TestSecondPlayerFillsRoomAndStartsReadyCheck() {
	s.savePlayer("p1", "Alice")
	s.savePlayer("p2", "Bob")
	s.random.QueueString("ROOM1", "MATCH1")

	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)
	room, err := s.service.FindOrCreateRoom(s.ctx, "p2", model.ModeClassic)
	s.Require().NoError(err)

	s.Equal(model.RoomID("ROOM1"), room.ID)
	s.Len(room.Members, 2)

	// Filling the room cancels the fill timers and arms the ready check
	s.False(s.scheduler.Pending("room:ROOM1:backfill"))
	s.False(s.scheduler.Pending("room:ROOM1:timeout"))
	s.True(s.scheduler.Pending("room:ROOM1:readycheck"))

	stored, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)
	s.True(stored.ReadyCheck.IsActive())
	s.Equal(model.MatchID("MATCH1"), stored.MatchID)
}

func (s *MatchmakingSuite) TestRejoiningSameModeIsIdempotent() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1")

	first, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)
	again, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	s.Equal(first.ID, again.ID)
	s.Len(again.Members, 1)
}

func (s *MatchmakingSuite) TestJoiningDifferentModeWhileQueuedFails() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1")

	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	_, err = s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeDescent)
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *MatchmakingSuite) TestJoiningWhileInMatchFails() {
	s.savePlayer("p1", "Alice")
	s.Require().NoError(s.storage.CreateMatch(s.ctx, &model.Match{
		ID:   "MATCH9",
		Mode: model.ModeClassic,
		Players: []model.PlayerMatchData{
			{PlayerID: "p1"}, {PlayerID: "p2"},
		},
		Game: model.GameData{Phase: model.PhaseGameplay},
	}))

	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.ErrorIs(err, model.ErrAlreadyInMatch)
}

func (s *MatchmakingSuite) TestUnknownModeRejected() {
	s.savePlayer("p1", "Alice")

	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", "roulette")
	s.ErrorIs(err, model.ErrUnknownMode)
}

func (s *MatchmakingSuite) TestUnknownPlayerRejected() {
	_, err := s.service.FindOrCreateRoom(s.ctx, "ghost", model.ModeClassic)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *MatchmakingSuite) TestJoinsOldestWaitingRoomFirst() {
	s.savePlayer("p3", "Cara")

	older := &model.WaitingRoom{
		ID: "OLD1", Mode: model.ModeClassic, Status: model.RoomStatusWaiting, Capacity: 2,
		Members:   []model.RoomMember{{PlayerID: "x1", DisplayName: "X", JoinedAt: s.clock.Now()}},
		CreatedAt: s.clock.Now().Add(-2 * time.Minute),
		UpdatedAt: s.clock.Now(),
	}
	newer := &model.WaitingRoom{
		ID: "NEW1", Mode: model.ModeClassic, Status: model.RoomStatusWaiting, Capacity: 2,
		Members:   []model.RoomMember{{PlayerID: "x2", DisplayName: "Y", JoinedAt: s.clock.Now()}},
		CreatedAt: s.clock.Now().Add(-time.Minute),
		UpdatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateRoom(s.ctx, older))
	s.Require().NoError(s.storage.CreateRoom(s.ctx, newer))

	s.random.QueueString("MATCH1")
	room, err := s.service.FindOrCreateRoom(s.ctx, "p3", model.ModeClassic)
	s.Require().NoError(err)
	s.Equal(model.RoomID("OLD1"), room.ID)
}

func (s *MatchmakingSuite) TestModesDoNotMix() {
	s.savePlayer("p1", "Alice")
	s.savePlayer("p2", "Bob")
	s.random.QueueString("ROOM1", "ROOM2")

	classic, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)
	descent, err := s.service.FindOrCreateRoom(s.ctx, "p2", model.ModeDescent)
	s.Require().NoError(err)

	s.NotEqual(classic.ID, descent.ID)
	s.Len(descent.Members, 1)
}

// conflictOnceStorage fails the next room update with a version conflict
// and delegates everything after that, simulating a lost join race.
type conflictOnceStorage struct {
	storage.Storage
	conflicts int
}

func (c *conflictOnceStorage) UpdateRoom(ctx context.Context, room *model.WaitingRoom) error {
	if c.conflicts > 0 {
		c.conflicts--
		return model.ErrVersionConflict
	}
	return c.Storage.UpdateRoom(ctx, room)
}

func (s *MatchmakingSuite) TestJoinRaceLoserRetriesSearch() {
	s.savePlayer("p1", "Alice")
	s.savePlayer("p2", "Bob")
	s.random.QueueString("ROOM1", "MATCH1")

	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := &conflictOnceStorage{Storage: s.storage, conflicts: 1}
	racing := NewService(store, s.readycheck, s.scheduler, s.bus, s.clock, s.random, logger)

	room, err := racing.FindOrCreateRoom(s.ctx, "p2", model.ModeClassic)
	s.Require().NoError(err)

	// The loser re-ran the search and joined the existing room instead of
	// creating a second one from the stale candidate list
	s.Equal(model.RoomID("ROOM1"), room.ID)
	s.Len(room.Members, 2)

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Len(rooms, 1)
}

func (s *MatchmakingSuite) TestParallelJoinsNeverOverfillRooms() {
	// Real clock and randomness: the mocks are not safe for concurrent
	// callers
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rnd := random.New()
	clk := clock.New()
	matches := match.NewService(s.storage, s.bus, clk, rnd, logger)
	preMatch := cache.NewPreMatchCache(clk, cache.DefaultPreMatchTTL)
	checks := readycheck.NewService(s.storage, matches, preMatch, s.scheduler, s.bus, clk, logger)
	svc := NewService(s.storage, checks, s.scheduler, s.bus, clk, rnd, logger)

	const players = 8
	ids := make([]model.PlayerID, players)
	for i := 0; i < players; i++ {
		ids[i] = model.PlayerID(fmt.Sprintf("p%d", i))
		s.savePlayer(ids[i], fmt.Sprintf("Player %d", i))
	}

	errs := make([]error, players)
	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.FindOrCreateRoom(s.ctx, ids[i], model.ModeClassic)
		}()
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		// A loser that exhausts its retries surfaces a plain conflict
		s.Require().ErrorIs(err, model.ErrConflict)
	}
	s.Greater(joined, 0)

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)

	seated := 0
	for _, room := range rooms {
		s.LessOrEqual(len(room.Members), room.Capacity)
		seated += len(room.Members)
	}
	s.Equal(joined, seated)
}

// LeaveRoom tests

func (s *MatchmakingSuite) TestLastLeaverDeletesRoomAndCancelsTimers() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1")
	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	s.Require().NoError(s.service.LeaveRoom(s.ctx, "p1"))

	_, err = s.storage.GetRoom(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.False(s.scheduler.Pending("room:ROOM1:backfill"))
	s.False(s.scheduler.Pending("room:ROOM1:timeout"))
}

func (s *MatchmakingSuite) TestLeaveWithoutRoomFails() {
	s.savePlayer("p1", "Alice")

	err := s.service.LeaveRoom(s.ctx, "p1")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *MatchmakingSuite) TestLeaveDuringReadyCheckCountsAsDecline() {
	s.savePlayer("p1", "Alice")
	s.savePlayer("p2", "Bob")
	s.random.QueueString("ROOM1", "MATCH1")
	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)
	_, err = s.service.FindOrCreateRoom(s.ctx, "p2", model.ModeClassic)
	s.Require().NoError(err)

	s.Require().NoError(s.service.LeaveRoom(s.ctx, "p2"))

	room, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusWaiting, room.Status)
	s.Nil(room.ReadyCheck)
	s.Len(room.Members, 1)
	s.Equal(model.PlayerID("p1"), room.Members[0].PlayerID)

	// The requeue hook re-armed the fill timers for the survivor
	s.True(s.scheduler.Pending("room:ROOM1:backfill"))
	s.True(s.scheduler.Pending("room:ROOM1:timeout"))
}

// Timer tests

func (s *MatchmakingSuite) TestBackfillFillsVacanciesWithBots() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1", "BOTAAAAA", "MATCH1")
	s.random.QueueIntn(0) // bot display name pick
	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	s.clock.Advance(model.BotBackfillDelay)
	s.Require().True(s.scheduler.Fire("room:ROOM1:backfill"))

	room, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)
	s.Require().Len(room.Members, 2)
	bot := room.Members[1]
	s.True(bot.IsBot)
	s.Equal(model.PlayerID("bot:BOTAAAAA"), bot.PlayerID)
	s.Equal("Rollo", bot.DisplayName)

	// Bots confirm instantly, so the check waits only on the human
	s.True(room.ReadyCheck.IsActive())
	s.True(room.ReadyCheck.Ready[bot.PlayerID])
	s.False(room.ReadyCheck.Ready["p1"])
	s.False(s.scheduler.Pending("room:ROOM1:timeout"))
}

func (s *MatchmakingSuite) TestBackfilledMatchStartsWhenHumanConfirms() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1", "BOTAAAAA", "MATCH1")
	s.random.QueueIntn(2)
	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)
	s.Require().True(s.scheduler.Fire("room:ROOM1:backfill"))

	s.Require().NoError(s.readycheck.MarkReady(s.ctx, "ROOM1", "p1"))

	m, err := s.storage.GetMatch(s.ctx, "MATCH1")
	s.Require().NoError(err)
	s.Len(m.Players, 2)
	s.True(m.Players[1].IsBot)
	s.Equal(model.PlayerID("p1"), m.Game.DeciderID)
}

func (s *MatchmakingSuite) TestHardTimeoutExpiresRoom() {
	s.savePlayer("p1", "Alice")
	s.random.QueueString("ROOM1")
	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	sub := s.bus.Subscribe(events.ForRoom("ROOM1"))
	defer s.bus.Unsubscribe(sub)

	s.clock.Advance(model.RoomHardTimeout)
	s.Require().True(s.scheduler.Fire("room:ROOM1:timeout"))

	_, err = s.storage.GetRoom(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrRoomNotFound)

	evt := <-sub.Events()
	s.Equal(model.EventRoomExpired, evt.Type)
	s.Equal("hard_timeout", evt.Payload.(model.RoomExpiredPayload).Reason)
}

func (s *MatchmakingSuite) TestExpireRoomSkipsMatchedRooms() {
	room := &model.WaitingRoom{
		ID: "ROOM1", Mode: model.ModeClassic, Status: model.RoomStatusMatched, Capacity: 2,
		Members: []model.RoomMember{
			{PlayerID: "p1"}, {PlayerID: "p2"},
		},
		CreatedAt: s.clock.Now(), UpdatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))

	s.Require().NoError(s.service.ExpireRoom(s.ctx, "ROOM1", "stale"))

	_, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.NoError(err)
}

func (s *MatchmakingSuite) TestExpireMissingRoomIsNoOp() {
	s.NoError(s.service.ExpireRoom(s.ctx, "GONE", "stale"))
}

// Event tests

func (s *MatchmakingSuite) TestJoinPublishesRoomEvents() {
	s.savePlayer("p1", "Alice")
	sub := s.bus.Subscribe(events.ForPlayer("p1"))
	defer s.bus.Unsubscribe(sub)

	s.random.QueueString("ROOM1")
	_, err := s.service.FindOrCreateRoom(s.ctx, "p1", model.ModeClassic)
	s.Require().NoError(err)

	evt := <-sub.Events()
	s.Equal(model.EventRoomJoined, evt.Type)
	payload := evt.Payload.(model.RoomJoinedPayload)
	s.True(payload.IsNewRoom)
	s.Equal(1, payload.MemberCount)
	s.Equal(2, payload.Capacity)
}

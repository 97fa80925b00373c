package readycheck

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dicearena/dicearena/internal/cache"
	"github.com/dicearena/dicearena/internal/dependencies/mocks"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/storage/memory"
	"github.com/stretchr/testify/suite"
)

type ReadyCheckSuite struct {
	suite.Suite
	storage   *memory.Storage
	matches   *match.Service
	cache     *cache.PreMatchCache
	scheduler *mocks.MockScheduler
	bus       *events.Bus
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	service   *Service
	ctx       context.Context

	requeued []model.RoomID
}

func TestReadyCheckSuite(t *testing.T) {
	suite.Run(t, new(ReadyCheckSuite))
}

func (s *ReadyCheckSuite) SetupTest() {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s.storage = memory.New()
	s.bus = events.NewBus(logger)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.scheduler = mocks.NewMockScheduler()
	s.matches = match.NewService(s.storage, s.bus, s.clock, s.random, logger)
	s.cache = cache.NewPreMatchCache(s.clock, cache.DefaultPreMatchTTL)
	s.service = NewService(s.storage, s.matches, s.cache, s.scheduler, s.bus, s.clock, logger)
	s.ctx = context.Background()

	s.requeued = nil
	s.service.SetRequeueHook(func(id model.RoomID) {
		s.requeued = append(s.requeued, id)
	})
}

// fullRoom seeds a full two-player waiting room
func (s *ReadyCheckSuite) fullRoom(members ...model.RoomMember) *model.WaitingRoom {
	if members == nil {
		members = []model.RoomMember{
			{PlayerID: "p1", DisplayName: "Alice", JoinedAt: s.clock.Now()},
			{PlayerID: "p2", DisplayName: "Bob", JoinedAt: s.clock.Now()},
		}
	}
	room := &model.WaitingRoom{
		ID:        "ROOM1",
		Mode:      model.ModeClassic,
		Status:    model.RoomStatusWaiting,
		Capacity:  2,
		Members:   members,
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))
	return room
}

func (s *ReadyCheckSuite) start() {
	s.random.QueueString("MATCH1")
	s.Require().NoError(s.service.Start(s.ctx, "ROOM1"))
}

func (s *ReadyCheckSuite) getRoom() *model.WaitingRoom {
	room, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.Require().NoError(err)
	return room
}

// Start tests

func (s *ReadyCheckSuite) TestStartAllocatesMatchIDAndArmsTimer() {
	s.fullRoom()
	s.start()

	room := s.getRoom()
	s.Equal(model.MatchID("MATCH1"), room.MatchID)
	s.Require().NotNil(room.ReadyCheck)
	s.True(room.ReadyCheck.IsActive())
	s.Equal(s.clock.Now().Add(model.ReadyCheckWindow), room.ReadyCheck.ExpiresAt)
	s.True(s.scheduler.Pending("room:ROOM1:readycheck"))

	pre, ok := s.cache.Get("MATCH1")
	s.Require().True(ok)
	s.Equal(model.RoomID("ROOM1"), pre.RoomID)
	s.Len(pre.Players, 2)
}

func (s *ReadyCheckSuite) TestStartMarksBotsReady() {
	s.fullRoom(
		model.RoomMember{PlayerID: "p1", DisplayName: "Alice", JoinedAt: s.clock.Now()},
		model.RoomMember{PlayerID: "bot:X1", DisplayName: "Rollo", IsBot: true, JoinedAt: s.clock.Now()},
	)
	s.start()

	room := s.getRoom()
	s.True(room.ReadyCheck.Ready["bot:X1"])
	s.False(room.ReadyCheck.Ready["p1"])
}

func (s *ReadyCheckSuite) TestStartOnPartialRoomFails() {
	room := s.fullRoom()
	room.Members = room.Members[:1]
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, room))

	err := s.service.Start(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrReadyCheckNotActive)
}

func (s *ReadyCheckSuite) TestStartPublishesEvent() {
	sub := s.bus.Subscribe(events.ForRoom("ROOM1"))
	defer s.bus.Unsubscribe(sub)

	s.fullRoom()
	s.start()

	evt := <-sub.Events()
	s.Equal(model.EventReadyCheckStarted, evt.Type)
	payload := evt.Payload.(model.ReadyCheckStartedPayload)
	s.Equal(model.MatchID("MATCH1"), payload.MatchID)
	s.Len(payload.Players, 2)
}

// MarkReady tests

func (s *ReadyCheckSuite) TestPartialConfirmationKeepsCheckActive() {
	s.fullRoom()
	s.start()

	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p1"))

	room := s.getRoom()
	s.True(room.ReadyCheck.IsActive())
	s.True(room.ReadyCheck.Ready["p1"])
	s.False(room.ReadyCheck.Ready["p2"])
}

func (s *ReadyCheckSuite) TestAllReadyCreatesMatchAndTearsDownRoom() {
	s.fullRoom()
	s.start()

	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p1"))
	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p2"))

	_, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrRoomNotFound)

	m, err := s.storage.GetMatch(s.ctx, "MATCH1")
	s.Require().NoError(err)
	s.Equal(model.PhaseTurnDecider, m.Game.Phase)
	s.Equal(model.PlayerID("p1"), m.Game.DeciderID)

	s.False(s.scheduler.Pending("room:ROOM1:readycheck"))
	_, ok := s.cache.Get("MATCH1")
	s.False(ok)
}

func (s *ReadyCheckSuite) TestCompletionPublishesResult() {
	s.fullRoom()
	s.start()
	sub := s.bus.Subscribe(events.ForMatch("MATCH1"))
	defer s.bus.Unsubscribe(sub)

	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p1"))
	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p2"))

	evt := <-sub.Events()
	s.Equal(model.EventMatchStarted, evt.Type)

	evt = <-sub.Events()
	s.Equal(model.EventReadyCheckResult, evt.Type)
	payload := evt.Payload.(model.ReadyCheckResultPayload)
	s.Equal(model.ReadyCheckOutcomeCompleted, payload.Outcome)
	s.Equal(model.MatchID("MATCH1"), payload.MatchID)
}

func (s *ReadyCheckSuite) TestMarkReadyRejectsNonMember() {
	s.fullRoom()
	s.start()

	err := s.service.MarkReady(s.ctx, "ROOM1", "stranger")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ReadyCheckSuite) TestMarkReadyWithoutActiveCheckFails() {
	s.fullRoom()

	err := s.service.MarkReady(s.ctx, "ROOM1", "p1")
	s.ErrorIs(err, model.ErrReadyCheckNotActive)
}

func (s *ReadyCheckSuite) TestMarkReadyAfterWindowFails() {
	s.fullRoom()
	s.start()
	s.clock.Advance(model.ReadyCheckWindow)

	err := s.service.MarkReady(s.ctx, "ROOM1", "p1")
	s.ErrorIs(err, model.ErrReadyCheckExpired)
}

// Decline tests

func (s *ReadyCheckSuite) TestDeclineRemovesDeclinerAndRequeuesRest() {
	s.fullRoom()
	s.start()

	s.Require().NoError(s.service.Decline(s.ctx, "ROOM1", "p2"))

	room := s.getRoom()
	s.Equal(model.RoomStatusWaiting, room.Status)
	s.Nil(room.ReadyCheck)
	s.Equal(model.MatchID(""), room.MatchID)
	s.Len(room.Members, 1)
	s.Equal(model.PlayerID("p1"), room.Members[0].PlayerID)

	s.Equal([]model.RoomID{"ROOM1"}, s.requeued)
	_, ok := s.cache.Get("MATCH1")
	s.False(ok)
}

func (s *ReadyCheckSuite) TestDeclineLeavingOnlyBotsDeletesRoom() {
	s.fullRoom(
		model.RoomMember{PlayerID: "p1", DisplayName: "Alice", JoinedAt: s.clock.Now()},
		model.RoomMember{PlayerID: "bot:X1", DisplayName: "Rollo", IsBot: true, JoinedAt: s.clock.Now()},
	)
	s.start()

	s.Require().NoError(s.service.Decline(s.ctx, "ROOM1", "p1"))

	_, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Empty(s.requeued)
}

func (s *ReadyCheckSuite) TestDeclinePublishesResult() {
	s.fullRoom()
	s.start()
	sub := s.bus.Subscribe(events.ForRoom("ROOM1"))
	defer s.bus.Unsubscribe(sub)

	s.Require().NoError(s.service.Decline(s.ctx, "ROOM1", "p2"))

	evt := <-sub.Events()
	payload := evt.Payload.(model.ReadyCheckResultPayload)
	s.Equal(model.ReadyCheckOutcomeDeclined, payload.Outcome)
}

// Expiry tests

func (s *ReadyCheckSuite) TestExpiryDropsNonConfirmers() {
	s.fullRoom()
	s.start()
	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p1"))

	s.clock.Advance(model.ReadyCheckWindow)
	s.Require().True(s.scheduler.Fire("room:ROOM1:readycheck"))

	room := s.getRoom()
	s.Equal(model.RoomStatusWaiting, room.Status)
	s.Len(room.Members, 1)
	s.Equal(model.PlayerID("p1"), room.Members[0].PlayerID)
	s.Equal([]model.RoomID{"ROOM1"}, s.requeued)
}

func (s *ReadyCheckSuite) TestExpiryWithNoConfirmersDeletesRoom() {
	s.fullRoom()
	s.start()

	s.clock.Advance(model.ReadyCheckWindow)
	s.Require().True(s.scheduler.Fire("room:ROOM1:readycheck"))

	_, err := s.storage.GetRoom(s.ctx, "ROOM1")
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Empty(s.requeued)
}

func (s *ReadyCheckSuite) TestExpiryAfterCompletionIsNoOp() {
	s.fullRoom()
	s.start()
	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p1"))
	s.Require().NoError(s.service.MarkReady(s.ctx, "ROOM1", "p2"))

	// The timer was cancelled on completion; firing the expiry directly
	// must not resurrect anything
	s.Require().NoError(s.service.expire(s.ctx, "ROOM1"))

	_, err := s.storage.GetMatch(s.ctx, "MATCH1")
	s.NoError(err)
}

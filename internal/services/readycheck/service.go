package readycheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dicearena/dicearena/internal/cache"
	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/scheduler"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/storage"
)

const maxSaveAttempts = 3

// Service runs the confirmation window between a room filling and its
// match starting. All members must confirm inside the window; a decline
// or an expiry returns the confirmers to the waiting pool.
type Service struct {
	storage   storage.Storage
	matches   match.ServiceInterface
	cache     *cache.PreMatchCache
	scheduler scheduler.Scheduler
	bus       *events.Bus
	clock     clock.Clock
	logger    *slog.Logger

	// requeue is invoked when a cancelled or expired check returns a
	// still-populated room to waiting, so its fill timers can be re-armed
	requeue func(model.RoomID)
}

// NewService creates a new readycheck Service
func NewService(
	store storage.Storage,
	matches match.ServiceInterface,
	preMatch *cache.PreMatchCache,
	sched scheduler.Scheduler,
	bus *events.Bus,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:   store,
		matches:   matches,
		cache:     preMatch,
		scheduler: sched,
		bus:       bus,
		clock:     clk,
		logger:    logger,
	}
}

// SetRequeueHook registers the callback used to re-arm room fill timers
// after a failed check. Wired at startup.
func (s *Service) SetRequeueHook(fn func(model.RoomID)) {
	s.requeue = fn
}

func timerKey(roomID model.RoomID) string {
	return fmt.Sprintf("room:%s:readycheck", roomID)
}

// Start begins a ready check on a full room. The match id is allocated
// up front so clients can subscribe before confirmation completes. Bot
// members are marked ready immediately.
func (s *Service) Start(ctx context.Context, roomID model.RoomID) error {
	var started *model.WaitingRoom
	err := s.mutateRoom(ctx, roomID, func(room *model.WaitingRoom) error {
		if room.Status != model.RoomStatusWaiting {
			return model.ErrRoomNotWaiting
		}
		if !room.IsFull() {
			return model.ErrReadyCheckNotActive
		}
		if room.ReadyCheck != nil && room.ReadyCheck.IsActive() {
			// Already underway, nothing to do
			return nil
		}

		now := s.clock.Now()
		room.MatchID = s.matches.NewMatchID()
		room.ReadyCheck = &model.ReadyCheck{
			State:     model.ReadyCheckActive,
			Ready:     make(map[model.PlayerID]bool, len(room.Members)),
			StartedAt: now,
			ExpiresAt: now.Add(model.ReadyCheckWindow),
		}
		for _, m := range room.Members {
			if m.IsBot {
				room.ReadyCheck.Ready[m.PlayerID] = true
			}
		}

		started = room
		return nil
	})
	if err != nil || started == nil {
		return err
	}

	s.cache.Put(cache.PreMatch{
		MatchID: started.MatchID,
		RoomID:  started.ID,
		Mode:    started.Mode,
		Players: started.Members,
	})

	s.scheduler.After(timerKey(roomID), model.ReadyCheckWindow, func() {
		if err := s.expire(context.Background(), roomID); err != nil {
			s.logger.Error("ready check expiry failed",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
	})

	s.bus.Publish(model.Event{
		Type:      model.EventReadyCheckStarted,
		Timestamp: s.clock.Now(),
		RoomID:    roomID,
		Payload: model.ReadyCheckStartedPayload{
			MatchID:   started.MatchID,
			Players:   started.MemberIDs(),
			ExpiresAt: started.ReadyCheck.ExpiresAt,
		},
	})

	s.logger.Info("ready check started",
		slog.String("room_id", string(roomID)),
		slog.String("match_id", string(started.MatchID)),
	)
	return nil
}

// MarkReady records a member's confirmation. When the last member
// confirms the match is created and the room is torn down.
func (s *Service) MarkReady(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error {
	var completed *model.WaitingRoom
	err := s.mutateRoom(ctx, roomID, func(room *model.WaitingRoom) error {
		if room.GetMember(playerID) == nil {
			return model.ErrNotInRoom
		}
		if room.ReadyCheck == nil || !room.ReadyCheck.IsActive() {
			return model.ErrReadyCheckNotActive
		}
		if room.ReadyCheck.ExpiredAt(s.clock.Now()) {
			return model.ErrReadyCheckExpired
		}

		room.ReadyCheck.Ready[playerID] = true
		if room.ReadyCheck.AllReady(room.MemberIDs()) {
			room.ReadyCheck.State = model.ReadyCheckCompleted
			room.Status = model.RoomStatusMatched
			completed = room
		}
		return nil
	})
	if err != nil || completed == nil {
		return err
	}

	s.scheduler.Cancel(timerKey(roomID))

	if _, err := s.matches.CreateMatch(ctx, completed); err != nil {
		return err
	}
	s.cache.Invalidate(completed.MatchID)

	if err := s.storage.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		s.logger.Warn("failed to delete matched room",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()),
		)
	}

	s.bus.Publish(model.Event{
		Type:      model.EventReadyCheckResult,
		Timestamp: s.clock.Now(),
		RoomID:    roomID,
		MatchID:   completed.MatchID,
		Payload: model.ReadyCheckResultPayload{
			Outcome: model.ReadyCheckOutcomeCompleted,
			MatchID: completed.MatchID,
		},
	})
	return nil
}

// Decline cancels an active check. The decliner is removed from the room
// and everyone else returns to the waiting pool.
func (s *Service) Decline(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error {
	var remaining int
	var matchID model.MatchID
	err := s.mutateRoom(ctx, roomID, func(room *model.WaitingRoom) error {
		if room.GetMember(playerID) == nil {
			return model.ErrNotInRoom
		}
		if room.ReadyCheck == nil || !room.ReadyCheck.IsActive() {
			return model.ErrReadyCheckNotActive
		}

		matchID = room.MatchID
		removeMember(room, playerID)
		resetToWaiting(room)
		remaining = len(room.RealMembers())
		return nil
	})
	if err != nil {
		return err
	}

	s.scheduler.Cancel(timerKey(roomID))
	s.cache.Invalidate(matchID)
	s.finishFailedCheck(ctx, roomID, model.ReadyCheckOutcomeDeclined, remaining)
	return nil
}

// expire fires when the window lapses with confirmations outstanding.
// Members who never confirmed are dropped; confirmers keep their spot.
func (s *Service) expire(ctx context.Context, roomID model.RoomID) error {
	var remaining int
	var matchID model.MatchID
	fired := false
	err := s.mutateRoom(ctx, roomID, func(room *model.WaitingRoom) error {
		if room.ReadyCheck == nil || !room.ReadyCheck.IsActive() {
			return nil
		}

		matchID = room.MatchID
		for _, id := range room.MemberIDs() {
			if !room.ReadyCheck.Ready[id] {
				removeMember(room, id)
			}
		}
		resetToWaiting(room)
		remaining = len(room.RealMembers())
		fired = true
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	if !fired {
		return nil
	}

	s.cache.Invalidate(matchID)
	s.finishFailedCheck(ctx, roomID, model.ReadyCheckOutcomeExpired, remaining)
	return nil
}

// finishFailedCheck tears down an empty room or re-arms a surviving one,
// then reports the result.
func (s *Service) finishFailedCheck(ctx context.Context, roomID model.RoomID, outcome model.ReadyCheckOutcome, remaining int) {
	if remaining == 0 {
		if err := s.storage.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
			s.logger.Warn("failed to delete emptied room",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
	} else if s.requeue != nil {
		s.requeue(roomID)
	}

	s.bus.Publish(model.Event{
		Type:      model.EventReadyCheckResult,
		Timestamp: s.clock.Now(),
		RoomID:    roomID,
		Payload: model.ReadyCheckResultPayload{
			Outcome: outcome,
		},
	})

	s.logger.Info("ready check failed",
		slog.String("room_id", string(roomID)),
		slog.String("outcome", string(outcome)),
		slog.Int("remaining", remaining),
	)
}

func (s *Service) mutateRoom(ctx context.Context, roomID model.RoomID, fn func(*model.WaitingRoom) error) error {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		room, err := s.storage.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		room.UpdatedAt = s.clock.Now()
		if err := s.storage.UpdateRoom(ctx, room); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				continue
			}
			return err
		}
		return nil
	}
	return model.ErrConflict
}

func removeMember(room *model.WaitingRoom, playerID model.PlayerID) {
	for i, m := range room.Members {
		if m.PlayerID == playerID {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			return
		}
	}
}

func resetToWaiting(room *model.WaitingRoom) {
	room.Status = model.RoomStatusWaiting
	room.ReadyCheck = nil
	room.MatchID = ""
}

// Interface for dependency injection
type ServiceInterface interface {
	Start(ctx context.Context, roomID model.RoomID) error
	MarkReady(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error
	Decline(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error
	SetRequeueHook(fn func(model.RoomID))
}

var _ ServiceInterface = (*Service)(nil)

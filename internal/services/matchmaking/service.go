package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/random"
	"github.com/dicearena/dicearena/internal/dependencies/scheduler"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/readycheck"
	"github.com/dicearena/dicearena/internal/storage"
)

const (
	// RoomIDLength is the length of generated room ids
	RoomIDLength = 8
	// RoomIDAlphabet is the character set for room ids
	RoomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	maxJoinAttempts = 3
	maxSaveAttempts = 3
)

var botNames = []string{
	"Rollo", "Pipsy", "Tumbler", "Snake Eyes", "Boxcar",
	"Hazard", "Lady Luck", "Craps", "Yahtzee", "High Roller",
}

// Service places players into waiting rooms by mode, oldest room first,
// and drives the room lifecycle timers (bot backfill, hard timeout).
type Service struct {
	storage    storage.Storage
	readycheck readycheck.ServiceInterface
	scheduler  scheduler.Scheduler
	bus        *events.Bus
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
}

// NewService creates a new matchmaking Service
func NewService(
	store storage.Storage,
	readyChecks readycheck.ServiceInterface,
	sched scheduler.Scheduler,
	bus *events.Bus,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:    store,
		readycheck: readyChecks,
		scheduler:  sched,
		bus:        bus,
		clock:      clk,
		random:     rnd,
		logger:     logger,
	}
}

func backfillKey(roomID model.RoomID) string {
	return fmt.Sprintf("room:%s:backfill", roomID)
}

func timeoutKey(roomID model.RoomID) string {
	return fmt.Sprintf("room:%s:timeout", roomID)
}

// FindOrCreateRoom joins the oldest waiting room for the mode, creating
// a fresh room when none has space. Re-joining while already seated is
// idempotent and returns the current room.
func (s *Service) FindOrCreateRoom(ctx context.Context, playerID model.PlayerID, modeID model.ModeID) (*model.WaitingRoom, error) {
	mode, err := model.ModeByID(modeID)
	if err != nil {
		return nil, err
	}

	player, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	loc, err := s.storage.GetPlayerLocation(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if loc.MatchID != "" {
		return nil, model.ErrAlreadyInMatch
	}
	if loc.RoomID != "" {
		room, err := s.storage.GetRoom(ctx, loc.RoomID)
		if err != nil {
			return nil, err
		}
		if room.Mode != modeID {
			return nil, model.ErrAlreadyInRoom
		}
		return room, nil
	}

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		rooms, err := s.storage.FindWaitingRooms(ctx, modeID)
		if err != nil {
			return nil, err
		}

		raced := false
		for _, room := range rooms {
			if room.Status != model.RoomStatusWaiting || room.IsFull() {
				continue
			}
			joined, err := s.tryJoin(ctx, room, player)
			if errors.Is(err, model.ErrVersionConflict) || errors.Is(err, model.ErrRoomFull) || errors.Is(err, model.ErrRoomNotWaiting) {
				// Raced another join; the candidate list is stale now
				raced = true
				continue
			}
			if err != nil {
				return nil, err
			}
			return joined, nil
		}
		if raced {
			continue
		}

		return s.createRoom(ctx, player, mode)
	}
	return nil, model.ErrConflict
}

// tryJoin appends the player to a room with a single compare-and-swap
// attempt. Conflicts are the caller's problem.
func (s *Service) tryJoin(ctx context.Context, room *model.WaitingRoom, player *model.Player) (*model.WaitingRoom, error) {
	if room.Status != model.RoomStatusWaiting {
		return nil, model.ErrRoomNotWaiting
	}
	if room.IsFull() {
		return nil, model.ErrRoomFull
	}

	now := s.clock.Now()
	room.Members = append(room.Members, model.RoomMember{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		IsBot:       player.IsBot,
		JoinedAt:    now,
	})
	room.UpdatedAt = now

	if err := s.storage.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.publishJoin(room, player, false)
	s.logger.Info("player joined room",
		slog.String("room_id", string(room.ID)),
		slog.String("player_id", string(player.ID)),
		slog.Int("member_count", len(room.Members)),
	)

	if room.IsFull() {
		s.cancelFillTimers(room.ID)
		if err := s.readycheck.Start(ctx, room.ID); err != nil {
			s.logger.Error("failed to start ready check",
				slog.String("room_id", string(room.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return room, nil
}

func (s *Service) createRoom(ctx context.Context, player *model.Player, mode model.ModeConfig) (*model.WaitingRoom, error) {
	now := s.clock.Now()
	room := &model.WaitingRoom{
		ID:       model.RoomID(s.random.String(RoomIDLength, RoomIDAlphabet)),
		Mode:     mode.ID,
		Status:   model.RoomStatusWaiting,
		Capacity: mode.Capacity,
		Members: []model.RoomMember{{
			PlayerID:    player.ID,
			DisplayName: player.DisplayName,
			IsBot:       player.IsBot,
			JoinedAt:    now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.ArmRoomTimers(room.ID)
	s.publishJoin(room, player, true)
	s.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("mode", string(mode.ID)),
		slog.String("player_id", string(player.ID)),
	)
	return room, nil
}

// LeaveRoom removes the player from their current room. During an active
// ready check a leave counts as a decline.
func (s *Service) LeaveRoom(ctx context.Context, playerID model.PlayerID) error {
	loc, err := s.storage.GetPlayerLocation(ctx, playerID)
	if err != nil {
		return err
	}
	if loc.RoomID == "" {
		return model.ErrNotInRoom
	}
	roomID := loc.RoomID

	var empty bool
	err = s.mutateRoom(ctx, roomID, func(room *model.WaitingRoom) error {
		if room.GetMember(playerID) == nil {
			return model.ErrNotInRoom
		}
		if room.ReadyCheck != nil && room.ReadyCheck.IsActive() {
			return errDelegateDecline
		}
		removeMember(room, playerID)
		empty = len(room.RealMembers()) == 0
		return nil
	})
	if errors.Is(err, errDelegateDecline) {
		return s.readycheck.Decline(ctx, roomID, playerID)
	}
	if err != nil {
		return err
	}

	if empty {
		s.cancelFillTimers(roomID)
		if err := s.storage.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
			return err
		}
	}

	s.logger.Info("player left room",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)),
	)
	return nil
}

// GetRoom retrieves a room by id
func (s *Service) GetRoom(ctx context.Context, roomID model.RoomID) (*model.WaitingRoom, error) {
	return s.storage.GetRoom(ctx, roomID)
}

// ExpireRoom tears down a room that aged out. Used by the hard-timeout
// timer and the stale-room sweep.
func (s *Service) ExpireRoom(ctx context.Context, roomID model.RoomID, reason string) error {
	room, err := s.storage.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	if room.Status != model.RoomStatusWaiting {
		return nil
	}

	s.cancelFillTimers(roomID)
	if err := s.storage.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		return err
	}

	s.bus.Publish(model.Event{
		Type:      model.EventRoomExpired,
		Timestamp: s.clock.Now(),
		RoomID:    roomID,
		Payload:   model.RoomExpiredPayload{Reason: reason},
	})

	s.logger.Info("room expired",
		slog.String("room_id", string(roomID)),
		slog.String("reason", reason),
	)
	return nil
}

// ArmRoomTimers schedules the bot backfill and hard timeout for a
// waiting room. Also serves as the requeue hook after a failed ready
// check.
func (s *Service) ArmRoomTimers(roomID model.RoomID) {
	s.scheduler.After(backfillKey(roomID), model.BotBackfillDelay, func() {
		if err := s.backfill(context.Background(), roomID); err != nil {
			s.logger.Error("bot backfill failed",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
	})
	s.scheduler.After(timeoutKey(roomID), model.RoomHardTimeout, func() {
		if err := s.ExpireRoom(context.Background(), roomID, "hard_timeout"); err != nil {
			s.logger.Error("room timeout failed",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
	})
}

// backfill fills a room's vacant seats with bot players and kicks off
// the ready check. Bots confirm instantly.
func (s *Service) backfill(ctx context.Context, roomID model.RoomID) error {
	var filled *model.WaitingRoom
	err := s.mutateRoom(ctx, roomID, func(room *model.WaitingRoom) error {
		if room.Status != model.RoomStatusWaiting {
			return nil
		}
		if room.IsFull() || len(room.RealMembers()) == 0 {
			return nil
		}

		now := s.clock.Now()
		for !room.IsFull() {
			bot := &model.Player{
				ID:          model.PlayerID("bot:" + s.random.String(8, RoomIDAlphabet)),
				DisplayName: botNames[s.random.Intn(len(botNames))],
				IsBot:       true,
				CreatedAt:   now,
			}
			if err := s.storage.SavePlayer(ctx, bot); err != nil {
				return err
			}
			room.Members = append(room.Members, model.RoomMember{
				PlayerID:    bot.ID,
				DisplayName: bot.DisplayName,
				IsBot:       true,
				JoinedAt:    now,
			})
			s.publishJoin(room, bot, false)
		}
		filled = room
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	if filled == nil {
		return nil
	}

	s.cancelFillTimers(roomID)
	s.logger.Info("room backfilled with bots",
		slog.String("room_id", string(roomID)),
		slog.Int("member_count", len(filled.Members)),
	)
	return s.readycheck.Start(ctx, roomID)
}

func (s *Service) cancelFillTimers(roomID model.RoomID) {
	s.scheduler.Cancel(backfillKey(roomID))
	s.scheduler.Cancel(timeoutKey(roomID))
}

func (s *Service) publishJoin(room *model.WaitingRoom, player *model.Player, isNew bool) {
	s.bus.Publish(model.Event{
		Type:      model.EventRoomJoined,
		Timestamp: s.clock.Now(),
		RoomID:    room.ID,
		PlayerID:  player.ID,
		Payload: model.RoomJoinedPayload{
			PlayerID:    player.ID,
			DisplayName: player.DisplayName,
			IsNewRoom:   isNew,
			IsBot:       player.IsBot,
			MemberCount: len(room.Members),
			Capacity:    room.Capacity,
		},
	})
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

var errDelegateDecline = errors.New("leave during active ready check")

func removeMember(room *model.WaitingRoom, playerID model.PlayerID) {
	for i, m := range room.Members {
		if m.PlayerID == playerID {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			return
		}
	}
}

// Interface for dependency injection
type ServiceInterface interface {
	FindOrCreateRoom(ctx context.Context, playerID model.PlayerID, modeID model.ModeID) (*model.WaitingRoom, error)
	LeaveRoom(ctx context.Context, playerID model.PlayerID) error
	GetRoom(ctx context.Context, roomID model.RoomID) (*model.WaitingRoom, error)
	ExpireRoom(ctx context.Context, roomID model.RoomID, reason string) error
	ArmRoomTimers(roomID model.RoomID)
}

var _ ServiceInterface = (*Service)(nil)

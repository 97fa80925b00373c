package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/scheduler"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/services/matchmaking"
	"github.com/dicearena/dicearena/internal/storage"
)

// SweepInterval is how often the periodic sweeps run
const SweepInterval = 30 * time.Second

// Service is the background reaper: it ages out abandoned rooms and
// matches, and forfeits matches whose turn owner has gone stale and not
// come back within the grace period.
type Service struct {
	storage     storage.Storage
	matches     match.ServiceInterface
	matchmaking matchmaking.ServiceInterface
	scheduler   scheduler.Scheduler
	clock       clock.Clock
	logger      *slog.Logger
}

// NewService creates a new cleanup Service
func NewService(
	store storage.Storage,
	matches match.ServiceInterface,
	rooms matchmaking.ServiceInterface,
	sched scheduler.Scheduler,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:     store,
		matches:     matches,
		matchmaking: rooms,
		scheduler:   sched,
		clock:       clk,
		logger:      logger,
	}
}

func abandonKey(matchID model.MatchID) string {
	return fmt.Sprintf("match:%s:abandon", matchID)
}

// Start arms the periodic sweeps
func (s *Service) Start() {
	s.scheduler.Every("cleanup:sweep", SweepInterval, func() {
		ctx := context.Background()
		if err := s.SweepRooms(ctx); err != nil {
			s.logger.Error("room sweep failed", slog.String("error", err.Error()))
		}
		if err := s.SweepMatches(ctx); err != nil {
			s.logger.Error("match sweep failed", slog.String("error", err.Error()))
		}
	})
}

// SweepRooms expires waiting rooms older than the stale age. Rooms that
// filled or completed a ready check are gone already; this catches the
// ones whose timers were lost to a restart.
func (s *Service) SweepRooms(ctx context.Context) error {
	rooms, err := s.storage.ListRooms(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, room := range rooms {
		if room.Status != model.RoomStatusWaiting {
			continue
		}
		if now.Sub(room.UpdatedAt) < model.RoomStaleAge {
			continue
		}
		if err := s.matchmaking.ExpireRoom(ctx, room.ID, "stale"); err != nil {
			s.logger.Warn("failed to expire stale room",
				slog.String("room_id", string(room.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// SweepMatches abandons matches that aged out, and forfeits matches
// whose current turn owner is stale after the grace period.
func (s *Service) SweepMatches(ctx context.Context) error {
	matches, err := s.storage.ListActiveMatches(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, m := range matches {
		if now.Sub(m.CreatedAt) >= model.MatchAge {
			if err := s.matches.Abandon(ctx, m.ID); err != nil && !errors.Is(err, model.ErrMatchOver) {
				s.logger.Warn("failed to abandon aged match",
					slog.String("match_id", string(m.ID)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		s.checkTurnOwner(ctx, m)
	}
	return nil
}

// checkTurnOwner arms the forfeit grace timer when the turn owner has
// gone stale, and disarms it when they are back.
func (s *Service) checkTurnOwner(ctx context.Context, m *model.Match) {
	if m.Game.Phase != model.PhaseGameplay {
		return
	}
	owner := m.CurrentTurn()
	if owner == nil || owner.IsBot {
		return
	}

	status, err := s.ownerStatus(ctx, owner.PlayerID)
	if err != nil {
		s.logger.Warn("failed to read turn owner presence",
			slog.String("match_id", string(m.ID)),
			slog.String("error", err.Error()),
		)
		return
	}

	if status != model.PresenceStale {
		s.scheduler.Cancel(abandonKey(m.ID))
		return
	}

	matchID := m.ID
	staleID := owner.PlayerID
	s.scheduler.After(abandonKey(matchID), model.AbandonGracePeriod, func() {
		s.forfeitIfStillStale(context.Background(), matchID, staleID)
	})
}

// forfeitIfStillStale re-derives the owner's status at grace expiry; a
// heartbeat during the grace period saves the match.
func (s *Service) forfeitIfStillStale(ctx context.Context, matchID model.MatchID, playerID model.PlayerID) {
	status, err := s.ownerStatus(ctx, playerID)
	if err != nil || status != model.PresenceStale {
		return
	}

	m, err := s.storage.GetMatch(ctx, matchID)
	if err != nil || m.IsOver() {
		return
	}
	owner := m.CurrentTurn()
	if owner == nil || owner.PlayerID != playerID {
		// Turn moved on, nothing to forfeit
		return
	}

	if err := s.matches.Forfeit(ctx, matchID, playerID); err != nil && !errors.Is(err, model.ErrMatchOver) {
		s.logger.Warn("failed to forfeit abandoned match",
			slog.String("match_id", string(matchID)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("match forfeited to opponent",
		slog.String("match_id", string(matchID)),
		slog.String("abandoned_by", string(playerID)),
	)
}

func (s *Service) ownerStatus(ctx context.Context, playerID model.PlayerID) (model.PresenceStatus, error) {
	p, err := s.storage.GetPresence(ctx, playerID)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			// Never heartbeated: treat as stale
			return model.PresenceStale, nil
		}
		return "", err
	}
	return p.StatusAt(s.clock.Now()), nil
}

// Interface for dependency injection
type ServiceInterface interface {
	Start()
	SweepRooms(ctx context.Context) error
	SweepMatches(ctx context.Context) error
}

var _ ServiceInterface = (*Service)(nil)

package presence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/scheduler"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/storage"
)

// SweepInterval is how often the staleness sweep derives statuses
const SweepInterval = 15 * time.Second

// Service tracks player heartbeats and derives online/away/stale status.
// Status is computed from the last heartbeat timestamp, never stored as
// truth; the sweep only records the last derived value so the stale
// transition is published exactly once.
type Service struct {
	storage   storage.Storage
	scheduler scheduler.Scheduler
	bus       *events.Bus
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates a new presence Service
func NewService(
	store storage.Storage,
	sched scheduler.Scheduler,
	bus *events.Bus,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:   store,
		scheduler: sched,
		bus:       bus,
		clock:     clk,
		logger:    logger,
	}
}

// Heartbeat records a liveness ping from a player session
func (s *Service) Heartbeat(ctx context.Context, playerID model.PlayerID) error {
	if _, err := s.storage.GetPlayer(ctx, playerID); err != nil {
		return err
	}

	now := s.clock.Now()
	return s.storage.SavePresence(ctx, &model.Presence{
		PlayerID:        playerID,
		LastHeartbeatAt: now,
		LastStatus:      model.PresenceOnline,
		UpdatedAt:       now,
	})
}

// GetStatus derives the player's current presence status. A player with
// no recorded heartbeat is stale.
func (s *Service) GetStatus(ctx context.Context, playerID model.PlayerID) (model.PresenceStatus, error) {
	p, err := s.storage.GetPresence(ctx, playerID)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return model.PresenceStale, nil
		}
		return "", err
	}
	return p.StatusAt(s.clock.Now()), nil
}

// Start arms the periodic staleness sweep
func (s *Service) Start() {
	s.scheduler.Every("presence:sweep", SweepInterval, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("presence sweep failed", slog.String("error", err.Error()))
		}
	})
}

// Sweep derives the status of every tracked session and publishes a
// single stale event per stale transition.
func (s *Service) Sweep(ctx context.Context) error {
	all, err := s.storage.ListPresence(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, p := range all {
		status := p.StatusAt(now)
		if status == p.LastStatus {
			continue
		}

		prev := p.LastStatus
		p.LastStatus = status
		p.UpdatedAt = now
		if err := s.storage.SavePresence(ctx, p); err != nil {
			s.logger.Warn("failed to record presence transition",
				slog.String("player_id", string(p.PlayerID)),
				slog.String("error", err.Error()),
			)
			continue
		}

		if status == model.PresenceStale {
			s.bus.Publish(model.Event{
				Type:      model.EventPlayerStale,
				Timestamp: now,
				PlayerID:  p.PlayerID,
				Payload: model.PlayerStalePayload{
					LastHeartbeatAt: p.LastHeartbeatAt,
				},
			})
			s.logger.Info("player went stale",
				slog.String("player_id", string(p.PlayerID)),
				slog.String("previous", string(prev)),
			)
		}
	}
	return nil
}

// Interface for dependency injection
type ServiceInterface interface {
	Heartbeat(ctx context.Context, playerID model.PlayerID) error
	GetStatus(ctx context.Context, playerID model.PlayerID) (model.PresenceStatus, error)
	Start()
	Sweep(ctx context.Context) error
}

var _ ServiceInterface = (*Service)(nil)

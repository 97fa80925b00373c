package ability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/storage"
)

const maxSaveAttempts = 3

// Service is the ability overlay on top of running matches: the aura
// economy, cooldowns, and the closed set of effect kinds.
type Service struct {
	storage storage.Storage
	bus     *events.Bus
	clock   clock.Clock
	logger  *slog.Logger
}

// NewService creates a new ability Service
func NewService(store storage.Storage, bus *events.Bus, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		bus:     bus,
		clock:   clk,
		logger:  logger,
	}
}

// Catalog returns the built-in ability catalog
func (s *Service) Catalog() []model.Ability {
	return model.Abilities()
}

// CanUse checks whether an ability use would be accepted right now,
// without mutating anything. Skips the idempotency sequence check.
func (s *Service) CanUse(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, abilityID model.AbilityID) error {
	m, err := s.storage.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	m.Abilities.Prune(s.clock.Now())
	_, _, err = s.validateUse(m, playerID, abilityID, "")
	return err
}

// Use spends aura on an ability and applies its effects. The requested
// target is optional; when empty it resolves from the ability's
// targeting rule, and when supplied it must agree with that rule. A
// shield on the target blocks an opponent-targeted ability; cost and
// cooldown are still paid.
func (s *Service) Use(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, abilityID model.AbilityID, requestedTarget model.PlayerID, seq int64) error {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		m, err := s.storage.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		m.Abilities.Prune(now)

		ab, target, err := s.validateUse(m, playerID, abilityID, requestedTarget)
		if err != nil {
			return err
		}
		if seq != m.Game.CommandSeq+1 {
			return model.ErrStaleCommand
		}
		m.Game.CommandSeq = seq

		source := m.Abilities.Player(playerID)
		source.Aura -= ab.Cost
		source.Cooldowns[abilityID] = now.Add(ab.Cooldown)
		source.Uses[abilityID]++
		m.PlayerData(playerID).Stats.AbilitiesUsed++

		blocked := false
		if ab.Targeting == model.TargetOpponent {
			if i := m.Abilities.FindEffect(model.EffectShield, target); i >= 0 {
				m.Abilities.ConsumeEffect(i)
				blocked = true
			}
		}
		if !blocked {
			s.applyEffects(m, ab, playerID, target, now)
		}

		m.UpdatedAt = now
		if err := s.storage.UpdateMatch(ctx, m); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				continue
			}
			return err
		}

		s.bus.Publish(model.Event{
			Type:      model.EventAbilityUsed,
			Timestamp: now,
			MatchID:   matchID,
			PlayerID:  playerID,
			Payload: model.AbilityUsedPayload{
				AbilityID:     abilityID,
				SourceID:      playerID,
				TargetID:      target,
				Blocked:       blocked,
				AuraRemaining: source.Aura,
			},
		})

		s.logger.Info("ability used",
			slog.String("match_id", string(matchID)),
			slog.String("ability", string(abilityID)),
			slog.String("player_id", string(playerID)),
			slog.Bool("blocked", blocked),
		)
		return nil
	}
	return model.ErrConflict
}

// validateUse runs every gate except the idempotency sequence and
// resolves the effect target.
func (s *Service) validateUse(m *model.Match, playerID model.PlayerID, abilityID model.AbilityID, requested model.PlayerID) (model.Ability, model.PlayerID, error) {
	if m.Game.Phase == model.PhaseGameOver {
		return model.Ability{}, "", model.ErrMatchOver
	}
	if m.Game.Phase != model.PhaseGameplay {
		return model.Ability{}, "", model.ErrWrongPhase
	}

	p := m.PlayerData(playerID)
	if p == nil {
		return model.Ability{}, "", model.ErrNotInMatch
	}

	ab, err := model.AbilityByID(abilityID)
	if err != nil {
		return model.Ability{}, "", err
	}

	if ab.Timing == model.TimingOwnTurn && !p.TurnActive {
		return model.Ability{}, "", model.ErrAbilityTiming
	}

	target := playerID
	if ab.Targeting == model.TargetOpponent {
		opp := m.Opponent(playerID)
		if opp == nil {
			return model.Ability{}, "", model.ErrInvalidTarget
		}
		target = opp.PlayerID
	}
	// A caller-supplied target must name the participant the targeting
	// rule allows
	if requested != "" && requested != target {
		return model.Ability{}, "", model.ErrInvalidTarget
	}

	st := m.Abilities.Player(playerID)
	if st == nil {
		return model.Ability{}, "", model.ErrNotInMatch
	}
	if expiry, ok := st.Cooldowns[abilityID]; ok && expiry.After(s.clock.Now()) {
		return model.Ability{}, "", model.ErrAbilityOnCooldown
	}
	if st.Aura < ab.Cost {
		return model.Ability{}, "", model.ErrInsufficientAura
	}
	return ab, target, nil
}

func (s *Service) applyEffects(m *model.Match, ab model.Ability, source, target model.PlayerID, now time.Time) {
	for _, spec := range ab.Effects {
		if spec.Kind.Instant() {
			s.applyInstant(m, spec, source, target)
			continue
		}
		m.Abilities.Active = append(m.Abilities.Active, model.ActiveEffect{
			Kind:      spec.Kind,
			Magnitude: spec.Magnitude,
			SourceID:  source,
			TargetID:  target,
			AppliedAt: now,
			ExpiresAt: now.Add(spec.Duration),
		})
	}
}

func (s *Service) applyInstant(m *model.Match, spec model.EffectSpec, source, target model.PlayerID) {
	switch spec.Kind {
	case model.EffectAuraSteal:
		from := m.Abilities.Player(target)
		to := m.Abilities.Player(source)
		stolen := spec.Magnitude
		if stolen > from.Aura {
			stolen = from.Aura
		}
		from.Aura -= stolen
		to.Aura += stolen
	case model.EffectScoreDrain:
		p := m.PlayerData(target)
		p.TurnScore -= spec.Magnitude
		if p.TurnScore < 0 {
			p.TurnScore = 0
		}
	}
}

// Interface for dependency injection
type ServiceInterface interface {
	Catalog() []model.Ability
	CanUse(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, abilityID model.AbilityID) error
	Use(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, abilityID model.AbilityID, requestedTarget model.PlayerID, seq int64) error
}

var _ ServiceInterface = (*Service)(nil)

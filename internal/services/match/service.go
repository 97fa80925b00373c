package match

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/dependencies/random"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/storage"
)

const (
	// MatchIDLength is the length of generated match ids
	MatchIDLength = 12
	// MatchIDAlphabet is the character set for match ids
	MatchIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxSaveAttempts bounds the retry loop around version conflicts
	// before ErrConflict is surfaced
	maxSaveAttempts = 3
)

// Service owns the authoritative turn-based state for match instances
// across the turn-decider, gameplay, and game-over phases.
type Service struct {
	storage storage.Storage
	bus     *events.Bus
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewService creates a new match Service
func NewService(
	store storage.Storage,
	bus *events.Bus,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage: store,
		bus:     bus,
		clock:   clk,
		random:  rnd,
		logger:  logger,
	}
}

// NewMatchID allocates a match id. The ready-check coordinator calls this
// before confirmation so clients can subscribe to the would-be match.
func (s *Service) NewMatchID() model.MatchID {
	return model.MatchID(s.random.String(MatchIDLength, MatchIDAlphabet))
}

// CreateMatch allocates and initializes a match from a matched room. The
// first room member (host) is the turn decider.
func (s *Service) CreateMatch(ctx context.Context, room *model.WaitingRoom) (*model.Match, error) {
	mode, err := model.ModeByID(room.Mode)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := room.MatchID
	if id == "" {
		id = s.NewMatchID()
	}

	players := make([]model.PlayerMatchData, len(room.Members))
	for i, m := range room.Members {
		players[i] = model.PlayerMatchData{
			PlayerID:    m.PlayerID,
			DisplayName: m.DisplayName,
			IsBot:       m.IsBot,
			Connected:   true,
			LastSeenAt:  now,
		}
		if mode.ScoreDirection == model.ScoreDown {
			players[i].Score = mode.StartScore
		}
	}

	match := &model.Match{
		ID:      id,
		Mode:    room.Mode,
		RoomID:  room.ID,
		Players: players,
		Game: model.GameData{
			Phase:      model.PhaseTurnDecider,
			DeciderID:  room.Host().PlayerID,
			Multiplier: 1,
			Round:      1,
		},
		Abilities: model.NewAbilityState(room.MemberIDs()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.CreateMatch(ctx, match); err != nil {
		s.logger.Error("failed to create match",
			slog.String("match_id", string(id)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("match created",
		slog.String("match_id", string(id)),
		slog.String("mode", string(room.Mode)),
		slog.Int("player_count", len(players)),
	)

	s.bus.Publish(model.Event{
		Type:      model.EventMatchStarted,
		Timestamp: now,
		MatchID:   id,
		RoomID:    room.ID,
		Payload: model.MatchStartedPayload{
			MatchID:   id,
			Mode:      room.Mode,
			Players:   match.PlayerIDs(),
			DeciderID: match.Game.DeciderID,
		},
	})

	return match, nil
}

// GetMatch retrieves a match by id. Expired ability effects are pruned
// from the returned view.
func (s *Service) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	match, err := s.storage.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	match.Abilities.Prune(s.clock.Now())
	return match, nil
}

// ChooseParity handles the turn-decider call. The host predicts the
// parity of a single authoritative die; a correct prediction gives them
// the opening turn.
func (s *Service) ChooseParity(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, parity model.Parity, seq int64) error {
	if parity != model.ParityOdd && parity != model.ParityEven {
		return model.ErrInvalidParity
	}

	return s.mutate(ctx, matchID, func(m *model.Match) (*model.Event, error) {
		if m.Game.Phase == model.PhaseGameOver {
			return nil, model.ErrMatchOver
		}
		if m.Game.Phase != model.PhaseTurnDecider {
			return nil, model.ErrWrongPhase
		}
		if m.Game.DeciderID != playerID {
			return nil, model.ErrNotDecider
		}
		if err := checkSeq(m, seq); err != nil {
			return nil, err
		}

		die := s.random.Die()
		correct := (die%2 == 1) == (parity == model.ParityOdd)

		openerIdx := m.PlayerIndex(playerID)
		if !correct {
			openerIdx = (openerIdx + 1) % len(m.Players)
		}

		m.Game.Phase = model.PhaseGameplay
		m.Game.ChosenParity = parity
		m.Game.DeciderRoll = die
		m.Game.Multiplier = 1
		for i := range m.Players {
			m.Players[i].TurnActive = i == openerIdx
		}

		return &model.Event{
			Type:     model.EventTurnResolved,
			MatchID:  m.ID,
			PlayerID: playerID,
			Payload: model.TurnResolvedPayload{
				Dice:       [2]int{die, 0},
				Outcome:    model.OutcomeDecider,
				Multiplier: 1,
				Totals:     totals(m),
				NextTurn:   m.Players[openerIdx].PlayerID,
				Round:      m.Game.Round,
			},
		}, nil
	})
}

// RollDice rolls two authoritative dice for the current turn owner and
// applies the mode's rules to the outcome.
func (s *Service) RollDice(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, seq int64) error {
	return s.mutate(ctx, matchID, func(m *model.Match) (*model.Event, error) {
		mode, err := s.validateTurnCommand(m, playerID, seq)
		if err != nil {
			return nil, err
		}

		p := m.PlayerData(playerID)
		d1, d2 := s.random.Die(), s.random.Die()
		res := s.applyRoll(mode, m, p, d1, d2, s.clock.Now())

		event := s.turnEvent(m, p, res, false)
		if res.Ended {
			s.publishMatchEnded(m)
		}
		return event, nil
	})
}

// Bank commits the current turn-score into the player's total and hands
// the turn over.
func (s *Service) Bank(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, seq int64) error {
	return s.mutate(ctx, matchID, func(m *model.Match) (*model.Event, error) {
		mode, err := s.validateTurnCommand(m, playerID, seq)
		if err != nil {
			return nil, err
		}
		if !mode.AllowBanking {
			return nil, model.ErrBankingNotAllowed
		}

		p := m.PlayerData(playerID)
		res := s.applyBank(mode, m, p)
		if res.Ended {
			s.endMatch(m, res.Winner, res.Reason, s.clock.Now())
		}

		event := s.turnEvent(m, p, res, true)
		if res.Ended {
			s.publishMatchEnded(m)
		}
		return event, nil
	})
}

// Forfeit ends the match in the opponent's favor, used when a player
// abandons mid-match.
func (s *Service) Forfeit(ctx context.Context, matchID model.MatchID, abandoned model.PlayerID) error {
	return s.mutate(ctx, matchID, func(m *model.Match) (*model.Event, error) {
		if m.IsOver() {
			return nil, model.ErrMatchOver
		}
		opp := m.Opponent(abandoned)
		if opp == nil {
			return nil, model.ErrNotInMatch
		}

		s.endMatch(m, opp.PlayerID, model.EndReasonOpponentAbandoned, s.clock.Now())
		s.publishMatchEnded(m)

		return &model.Event{
			Type:     model.EventPlayerAbandoned,
			MatchID:  m.ID,
			PlayerID: abandoned,
			Payload: model.PlayerAbandonedPayload{
				MatchID: m.ID,
				Winner:  opp.PlayerID,
			},
		}, nil
	})
}

// Abandon ends a match with no winner, used by the cleanup sweep for
// matches that aged out without reaching game over.
func (s *Service) Abandon(ctx context.Context, matchID model.MatchID) error {
	return s.mutate(ctx, matchID, func(m *model.Match) (*model.Event, error) {
		if m.IsOver() {
			return nil, model.ErrMatchOver
		}
		s.endMatch(m, "", model.EndReasonTimedOut, s.clock.Now())
		s.publishMatchEnded(m)
		return nil, nil
	})
}

// mutate runs a read-modify-write cycle against the match with bounded
// retries on version conflicts. The returned event, if any, is published
// only after the save commits.
func (s *Service) mutate(ctx context.Context, matchID model.MatchID, fn func(*model.Match) (*model.Event, error)) error {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		m, err := s.storage.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}

		m.Abilities.Prune(s.clock.Now())

		event, err := fn(m)
		if err != nil {
			return err
		}

		m.UpdatedAt = s.clock.Now()
		if err := s.storage.UpdateMatch(ctx, m); err != nil {
			if errors.Is(err, model.ErrVersionConflict) {
				continue
			}
			return err
		}

		if event != nil {
			event.Timestamp = s.clock.Now()
			s.bus.Publish(*event)
		}
		return nil
	}
	return model.ErrConflict
}

// validateTurnCommand runs the shared checks for gameplay commands:
// phase, participation, turn ownership, and the idempotency sequence.
func (s *Service) validateTurnCommand(m *model.Match, playerID model.PlayerID, seq int64) (model.ModeConfig, error) {
	mode, err := model.ModeByID(m.Mode)
	if err != nil {
		return model.ModeConfig{}, err
	}
	if m.Game.Phase == model.PhaseGameOver {
		return model.ModeConfig{}, model.ErrMatchOver
	}
	if m.Game.Phase != model.PhaseGameplay {
		return model.ModeConfig{}, model.ErrWrongPhase
	}
	p := m.PlayerData(playerID)
	if p == nil {
		return model.ModeConfig{}, model.ErrNotInMatch
	}
	if !p.TurnActive {
		return model.ModeConfig{}, model.ErrInvalidTurnOwner
	}
	if err := checkSeq(m, seq); err != nil {
		return model.ModeConfig{}, err
	}
	return mode, nil
}

// checkSeq enforces the idempotency counter: a replayed or out-of-order
// command is rejected without mutating anything.
func checkSeq(m *model.Match, seq int64) error {
	if seq != m.Game.CommandSeq+1 {
		return model.ErrStaleCommand
	}
	m.Game.CommandSeq = seq
	return nil
}

func (s *Service) turnEvent(m *model.Match, p *model.PlayerMatchData, res rollResult, banked bool) *model.Event {
	next := m.CurrentTurn()
	var nextID model.PlayerID
	if next != nil {
		nextID = next.PlayerID
	}

	return &model.Event{
		Type:     model.EventTurnResolved,
		MatchID:  m.ID,
		PlayerID: p.PlayerID,
		Payload: model.TurnResolvedPayload{
			Dice:       m.Game.Dice,
			Outcome:    res.Outcome,
			TurnScore:  p.TurnScore,
			Multiplier: m.Game.Multiplier,
			Totals:     totals(m),
			SharedPool: m.Game.SharedPool,
			Banked:     banked || res.Banked,
			NextTurn:   nextID,
			Round:      m.Game.Round,
		},
	}
}

func (s *Service) publishMatchEnded(m *model.Match) {
	s.bus.Publish(model.Event{
		Type:      model.EventMatchEnded,
		Timestamp: s.clock.Now(),
		MatchID:   m.ID,
		PlayerID:  m.Game.Winner,
		Payload: model.MatchEndedPayload{
			Winner: m.Game.Winner,
			Reason: m.Game.EndReason,
			Totals: totals(m),
		},
	})

	s.logger.Info("match ended",
		slog.String("match_id", string(m.ID)),
		slog.String("winner", string(m.Game.Winner)),
		slog.String("reason", string(m.Game.EndReason)),
	)
}

func totals(m *model.Match) map[model.PlayerID]int {
	out := make(map[model.PlayerID]int, len(m.Players))
	for _, p := range m.Players {
		out[p.PlayerID] = p.Score
	}
	return out
}

// Interface for dependency injection
type ServiceInterface interface {
	NewMatchID() model.MatchID
	CreateMatch(ctx context.Context, room *model.WaitingRoom) (*model.Match, error)
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	ChooseParity(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, parity model.Parity, seq int64) error
	RollDice(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, seq int64) error
	Bank(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, seq int64) error
	Forfeit(ctx context.Context, matchID model.MatchID, abandoned model.PlayerID) error
	Abandon(ctx context.Context, matchID model.MatchID) error
}

var _ ServiceInterface = (*Service)(nil)

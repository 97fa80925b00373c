package bot

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sort"

	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/storage"
)

// MaxBotIterations is a safety limit for the ProcessBotActions loop
const MaxBotIterations = 1000

// BotActionType represents the type of action a bot took
type BotActionType string

const (
	ActionParityCall    BotActionType = "parity_call"
	ActionRoll          BotActionType = "roll"
	ActionBank          BotActionType = "bank"
	ActionMatchComplete BotActionType = "match_complete"
)

// BotAction represents a single action taken by a bot during ProcessBotActions
type BotAction struct {
	Type     BotActionType
	PlayerID model.PlayerID
	Parity   model.Parity
}

// Service plays the bot side of matches. Handlers call ProcessBotActions
// after every human command so bots respond within the same request.
type Service struct {
	storage    storage.Storage
	matches    match.ServiceInterface
	strategies map[string]Strategy
	logger     *slog.Logger
}

// NewService creates a new bot Service
func NewService(
	store storage.Storage,
	matches match.ServiceInterface,
	strategies map[string]Strategy,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:    store,
		matches:    matches,
		strategies: strategies,
		logger:     logger.With(slog.String("component", "bot-service")),
	}
}

// ProcessBotActions plays every pending bot move in a cascading loop,
// stopping when a human holds the turn or the match ends. It returns the
// actions taken so callers can account for them.
func (s *Service) ProcessBotActions(ctx context.Context, matchID model.MatchID) ([]BotAction, error) {
	var actions []BotAction

	for i := 0; i < MaxBotIterations; i++ {
		m, err := s.matches.GetMatch(ctx, matchID)
		if err != nil {
			return actions, err
		}

		if m.IsOver() {
			if len(actions) > 0 {
				actions = append(actions, BotAction{Type: ActionMatchComplete})
			}
			break
		}

		mode, err := model.ModeByID(m.Mode)
		if err != nil {
			return actions, err
		}
		seq := m.Game.CommandSeq + 1

		if m.Game.Phase == model.PhaseTurnDecider {
			decider := m.PlayerData(m.Game.DeciderID)
			if decider == nil || !decider.IsBot {
				break // Human's parity call
			}

			parity := s.strategyForPlayer(decider.PlayerID).ChooseParity(m)
			if err := s.matches.ChooseParity(ctx, matchID, decider.PlayerID, parity, seq); err != nil {
				return actions, err
			}
			actions = append(actions, BotAction{
				Type:     ActionParityCall,
				PlayerID: decider.PlayerID,
				Parity:   parity,
			})
			continue
		}

		owner := m.CurrentTurn()
		if owner == nil || !owner.IsBot {
			break // Human's turn
		}

		strat := s.strategyForPlayer(owner.PlayerID)
		if mode.AllowBanking && owner.TurnScore > 0 && strat.ShouldBank(mode, m, owner) {
			if err := s.matches.Bank(ctx, matchID, owner.PlayerID, seq); err != nil {
				return actions, err
			}
			actions = append(actions, BotAction{Type: ActionBank, PlayerID: owner.PlayerID})
			continue
		}

		if err := s.matches.RollDice(ctx, matchID, owner.PlayerID, seq); err != nil {
			return actions, err
		}
		actions = append(actions, BotAction{Type: ActionRoll, PlayerID: owner.PlayerID})
	}

	return actions, nil
}

// strategyForPlayer derives a stable strategy for a bot from its player
// id, so a bot plays consistently across a match
func (s *Service) strategyForPlayer(playerID model.PlayerID) Strategy {
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	h := fnv.New32a()
	h.Write([]byte(playerID))
	return s.strategies[names[int(h.Sum32())%len(names)]]
}

// Interface for dependency injection
type ServiceInterface interface {
	ProcessBotActions(ctx context.Context, matchID model.MatchID) ([]BotAction, error)
}

var _ ServiceInterface = (*Service)(nil)

package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dicearena/dicearena/internal/dependencies/mocks"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/match"
	"github.com/dicearena/dicearena/internal/storage/memory"
	"github.com/stretchr/testify/suite"
)

const testMatchID = model.MatchID("MATCH1")

type BotServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	matches *match.Service
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestBotServiceSuite(t *testing.T) {
	suite.Run(t, new(BotServiceSuite))
}

func (s *BotServiceSuite) SetupTest() {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s.storage = memory.New()
	bus := events.NewBus(logger)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.matches = match.NewService(s.storage, bus, s.clock, s.random, logger)

	// A single strategy keeps bot behavior deterministic regardless of
	// which id the hash lands on
	s.service = NewService(s.storage, s.matches, map[string]Strategy{
		StrategyCautious: NewCautiousStrategy(),
	}, logger)
	s.ctx = context.Background()
}

// seedMatch creates a match between a human p1 and bot:X, with the given
// decider, in the turn-decider phase.
func (s *BotServiceSuite) seedMatch(decider model.PlayerID) {
	m := &model.Match{
		ID:   testMatchID,
		Mode: model.ModeClassic,
		Players: []model.PlayerMatchData{
			{PlayerID: "p1", DisplayName: "Alice"},
			{PlayerID: "bot:X", DisplayName: "Rollo", IsBot: true},
		},
		Game: model.GameData{
			Phase:      model.PhaseTurnDecider,
			DeciderID:  decider,
			Multiplier: 1,
			Round:      1,
		},
		Abilities: model.NewAbilityState([]model.PlayerID{"p1", "bot:X"}),
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.storage.CreateMatch(s.ctx, m))
}

func (s *BotServiceSuite) getMatch() *model.Match {
	m, err := s.storage.GetMatch(s.ctx, testMatchID)
	s.Require().NoError(err)
	return m
}

func (s *BotServiceSuite) TestHumanDeciderMeansNoActions() {
	s.seedMatch("p1")

	actions, err := s.service.ProcessBotActions(s.ctx, testMatchID)
	s.Require().NoError(err)
	s.Empty(actions)

	m := s.getMatch()
	s.Equal(model.PhaseTurnDecider, m.Game.Phase)
}

func (s *BotServiceSuite) TestBotDeciderCallsParityAndPlaysTurn() {
	s.seedMatch("bot:X")
	// Decider die 3 = odd, cautious predicts odd, so the bot opens.
	// Then 3+4=7, 2+4=6 brings the turn-score to 13 and the bot banks.
	s.random.QueueDice(3, 3, 4, 2, 4)

	actions, err := s.service.ProcessBotActions(s.ctx, testMatchID)
	s.Require().NoError(err)

	s.Require().Len(actions, 4)
	s.Equal(ActionParityCall, actions[0].Type)
	s.Equal(model.ParityOdd, actions[0].Parity)
	s.Equal(ActionRoll, actions[1].Type)
	s.Equal(ActionRoll, actions[2].Type)
	s.Equal(ActionBank, actions[3].Type)

	m := s.getMatch()
	s.Equal(13, m.PlayerData("bot:X").Score)
	s.Equal(model.PlayerID("p1"), m.CurrentTurn().PlayerID)
}

func (s *BotServiceSuite) TestBotStopsWhenTurnPassesToHuman() {
	s.seedMatch("bot:X")
	// Wrong prediction: die 4 is even, cautious called odd, human opens
	s.random.QueueDice(4)

	actions, err := s.service.ProcessBotActions(s.ctx, testMatchID)
	s.Require().NoError(err)

	s.Require().Len(actions, 1)
	s.Equal(ActionParityCall, actions[0].Type)

	m := s.getMatch()
	s.Equal(model.PlayerID("p1"), m.CurrentTurn().PlayerID)
}

func (s *BotServiceSuite) TestBotBankingWinReportsCompletion() {
	s.seedMatch("bot:X")
	m := s.getMatch()
	m.Players[1].Score = 45
	m.Game.Phase = model.PhaseGameplay
	m.Players[1].TurnActive = true
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, m))

	// 3+4=7 puts 45+7 past the 50 target, so the bot banks the win
	s.random.QueueDice(3, 4)

	actions, err := s.service.ProcessBotActions(s.ctx, testMatchID)
	s.Require().NoError(err)

	s.Require().Len(actions, 3)
	s.Equal(ActionRoll, actions[0].Type)
	s.Equal(ActionBank, actions[1].Type)
	s.Equal(ActionMatchComplete, actions[2].Type)

	m = s.getMatch()
	s.True(m.IsOver())
	s.Equal(model.PlayerID("bot:X"), m.Game.Winner)
}

func (s *BotServiceSuite) TestFinishedMatchWithoutBotMovesYieldsNothing() {
	s.seedMatch("bot:X")
	m := s.getMatch()
	m.Game.Phase = model.PhaseGameOver
	m.Game.Winner = "p1"
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, m))

	actions, err := s.service.ProcessBotActions(s.ctx, testMatchID)
	s.Require().NoError(err)
	s.Empty(actions)
}

func (s *BotServiceSuite) TestMissingMatchSurfacesError() {
	_, err := s.service.ProcessBotActions(s.ctx, "GONE")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *BotServiceSuite) TestStrategyAssignmentIsStable() {
	svc := NewService(s.storage, s.matches, map[string]Strategy{
		StrategyCautious: NewCautiousStrategy(),
		StrategyGreedy:   NewGreedyStrategy(),
		StrategyWild:     NewWildStrategy(s.random),
	}, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	first := svc.strategyForPlayer("bot:ABCD1234")
	second := svc.strategyForPlayer("bot:ABCD1234")
	s.Same(any(first), any(second))
}

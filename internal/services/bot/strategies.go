package bot

import (
	"github.com/dicearena/dicearena/internal/dependencies/random"
	"github.com/dicearena/dicearena/internal/model"
)

// Strategy names
const (
	StrategyCautious = "cautious"
	StrategyGreedy   = "greedy"
	StrategyWild     = "wild"
)

// CautiousStrategy banks early to lock in small gains
type CautiousStrategy struct{}

// NewCautiousStrategy creates a new CautiousStrategy
func NewCautiousStrategy() *CautiousStrategy {
	return &CautiousStrategy{}
}

func (s *CautiousStrategy) ChooseParity(m *model.Match) model.Parity {
	return model.ParityOdd
}

func (s *CautiousStrategy) ShouldBank(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) bool {
	if wouldWin(mode, m, p) {
		return true
	}
	return p.TurnScore >= 12
}

// GreedyStrategy pushes for bigger turns before banking
type GreedyStrategy struct{}

// NewGreedyStrategy creates a new GreedyStrategy
func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{}
}

func (s *GreedyStrategy) ChooseParity(m *model.Match) model.Parity {
	return model.ParityEven
}

func (s *GreedyStrategy) ShouldBank(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) bool {
	if wouldWin(mode, m, p) {
		return true
	}
	return p.TurnScore >= 24
}

// WildStrategy rides an active multiplier and otherwise flips a coin
// once a modest turn-score is on the table
type WildStrategy struct {
	random random.Random
}

// NewWildStrategy creates a new WildStrategy
func NewWildStrategy(rnd random.Random) *WildStrategy {
	return &WildStrategy{random: rnd}
}

func (s *WildStrategy) ChooseParity(m *model.Match) model.Parity {
	if s.random.Intn(2) == 0 {
		return model.ParityOdd
	}
	return model.ParityEven
}

func (s *WildStrategy) ShouldBank(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) bool {
	if wouldWin(mode, m, p) {
		return true
	}
	if m.Game.Multiplier > 1 {
		// A stacked multiplier is worth another roll
		return false
	}
	return p.TurnScore >= 10 && s.random.Intn(2) == 0
}

// wouldWin reports whether banking right now ends the round in the
// player's favor
func wouldWin(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) bool {
	if p.TurnScore == 0 {
		return false
	}
	switch mode.ScoreDirection {
	case model.ScoreDown:
		// Overshooting the remaining total resets it, so only an exact
		// hit wins
		return p.TurnScore == p.Score
	case model.ScoreTugOfWar:
		idx := m.PlayerIndex(p.PlayerID)
		pool := m.Game.SharedPool
		if idx == 0 {
			return pool+p.TurnScore >= mode.TargetScore
		}
		return -(pool - p.TurnScore) >= mode.TargetScore
	default:
		return p.Score+p.TurnScore >= mode.TargetScore
	}
}

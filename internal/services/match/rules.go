package match

import (
	"time"

	"github.com/dicearena/dicearena/internal/model"
)

// rollResult summarizes how one roll changed the match
type rollResult struct {
	Outcome   model.RollOutcome
	TurnEnded bool
	Banked    bool // true when a roll-limit forced an automatic bank
	Ended     bool // match reached game over
	Winner    model.PlayerID
	Reason    model.EndReason
}

// applyRoll mutates the match for one authoritative roll by the current
// turn owner. Base classification with per-mode overrides: single 1 busts
// (or eliminates), double 6 wipes the total, double 1 pays a bonus, other
// doubles stack the multiplier, anything else scores sum times multiplier.
func (s *Service) applyRoll(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData, d1, d2 int, now time.Time) rollResult {
	m.Game.Dice = [2]int{d1, d2}
	p.Stats.Rolls++
	p.TurnRolls++

	var res rollResult

	switch {
	case d1 == d2:
		res = s.applyDouble(mode, m, p, d1, now)
	case d1 == 1 || d2 == 1:
		res = s.applySingleOne(mode, m, p)
	default:
		res = s.applyScoring(mode, m, p, d1+d2)
	}

	// Roll-limit modes force the turn closed once the cap is hit
	if !res.TurnEnded && !res.Ended && mode.RollLimit > 0 && p.TurnRolls >= mode.RollLimit {
		if mode.AllowBanking {
			bankRes := s.applyBank(mode, m, p)
			res.Banked = true
			res.TurnEnded = true
			res.Ended = bankRes.Ended
			res.Winner = bankRes.Winner
			res.Reason = bankRes.Reason
		} else {
			p.TurnScore = 0
			res.TurnEnded = true
		}
	}

	if res.Ended {
		s.endMatch(m, res.Winner, res.Reason, now)
	} else if res.TurnEnded && !res.Banked {
		s.switchTurn(m, p)
	}

	return res
}

func (s *Service) applyDouble(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData, face int, now time.Time) rollResult {
	p.Stats.Doubles++
	override, hasOverride := mode.DoublesEffects[face]

	switch {
	case face == 1:
		// Snake eyes: flat bonus, turn continues
		bonus := model.SnakeEyesBonus
		if hasOverride && override.Bonus > 0 {
			bonus = override.Bonus
		}
		p.TurnScore += bonus
		s.creditAura(m, p.PlayerID, model.AuraOnSnakeEyes)
		if hasOverride && override.Multiplier > 1 {
			m.Game.Multiplier *= override.Multiplier
		}
		if win, won := s.settleNoBanking(mode, p); won {
			win.Outcome = model.OutcomeSnakeEyes
			return win
		}
		return rollResult{Outcome: model.OutcomeSnakeEyes}

	case face == 6 && !hasOverride:
		// Double six wipes the total and ends the turn
		switch mode.ScoreDirection {
		case model.ScoreDown:
			p.Score = mode.StartScore
		case model.ScoreTugOfWar:
			m.Game.SharedPool = 0
		default:
			p.Score = 0
		}
		p.TurnScore = 0
		return rollResult{Outcome: model.OutcomeTotalReset, TurnEnded: true}

	default:
		// Scoring double: sum counts, multiplier stacks for the rest of
		// the turn
		mult := model.DoubleMultiplier
		bonus := 0
		if hasOverride {
			if override.Multiplier > 0 {
				mult = override.Multiplier
			}
			bonus = override.Bonus
		}
		res := s.applyScoring(mode, m, p, face*2)
		if res.Outcome == model.OutcomeScore && !res.Ended {
			res.Outcome = model.OutcomeDoubleMultiplier
			p.TurnScore += bonus
			m.Game.Multiplier *= mult
			s.creditAura(m, p.PlayerID, model.AuraOnDouble)
			if win, won := s.settleNoBanking(mode, p); won {
				win.Outcome = model.OutcomeDoubleMultiplier
				return win
			}
		}
		return res
	}
}

func (s *Service) applySingleOne(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) rollResult {
	// An active lucky charm absorbs the bust and is consumed
	if i := m.Abilities.FindEffect(model.EffectLuckyCharm, p.PlayerID); i >= 0 {
		m.Abilities.ConsumeEffect(i)
		return rollResult{Outcome: model.OutcomeScore}
	}

	p.Stats.Busts++

	if mode.EliminationOnSingleOne {
		opp := m.Opponent(p.PlayerID)
		return rollResult{
			Outcome: model.OutcomeElimination,
			Ended:   true,
			Winner:  opp.PlayerID,
			Reason:  model.EndReasonElimination,
		}
	}

	p.TurnScore = 0
	return rollResult{Outcome: model.OutcomeBust, TurnEnded: true}
}

func (s *Service) applyScoring(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData, sum int) rollResult {
	points := sum * m.Game.Multiplier

	// Exact-target modes reject a roll that would pass the target instead
	// of applying it partially; the overshooting roll forfeits the turn.
	if mode.ExactScoreRequired && mode.ScoreDirection == model.ScoreUp {
		if p.Score+p.TurnScore+points > mode.TargetScore {
			p.TurnScore = 0
			return rollResult{Outcome: model.OutcomeOvershoot, TurnEnded: true}
		}
	}

	p.TurnScore += points

	if win, won := s.settleNoBanking(mode, p); won {
		return win
	}

	return rollResult{Outcome: model.OutcomeScore}
}

// settleNoBanking mirrors the running turn-score into the total for
// modes without banking, where the turn never passes and the target
// check happens after every scoring change. Every path that raises the
// turn-score must settle through here.
func (s *Service) settleNoBanking(mode model.ModeConfig, p *model.PlayerMatchData) (rollResult, bool) {
	if mode.AllowBanking {
		return rollResult{}, false
	}
	p.Score = p.TurnScore
	if mode.ScoreDirection == model.ScoreUp && p.Score >= mode.TargetScore {
		return rollResult{
			Outcome: model.OutcomeScore,
			Ended:   true,
			Winner:  p.PlayerID,
			Reason:  model.EndReasonScoreReached,
		}, true
	}
	return rollResult{}, false
}

// applyBank commits the turn-score and resolves any resulting win or
// round transition
func (s *Service) applyBank(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) rollResult {
	idx := m.PlayerIndex(p.PlayerID)
	p.Stats.Banks++
	s.creditAura(m, p.PlayerID, model.AuraOnBank)

	won := false
	switch mode.ScoreDirection {
	case model.ScoreDown:
		if p.TurnScore > p.Score {
			// Overshooting zero resets the total to the start value
			p.Score = mode.StartScore
		} else {
			p.Score -= p.TurnScore
			won = p.Score == 0
		}
	case model.ScoreTugOfWar:
		if idx == 0 {
			m.Game.SharedPool += p.TurnScore
			won = m.Game.SharedPool >= mode.TargetScore
		} else {
			m.Game.SharedPool -= p.TurnScore
			won = -m.Game.SharedPool >= mode.TargetScore
		}
	default:
		p.Score += p.TurnScore
		won = p.Score >= mode.TargetScore
	}

	p.TurnScore = 0

	if !won {
		s.switchTurn(m, p)
		return rollResult{Outcome: model.OutcomeScore, TurnEnded: true, Banked: true}
	}

	// Round win; in a best-of series this may not end the match
	p.RoundsWon++
	if p.RoundsWon >= mode.RoundsToWin() {
		return rollResult{
			Outcome:   model.OutcomeScore,
			TurnEnded: true,
			Banked:    true,
			Ended:     true,
			Winner:    p.PlayerID,
			Reason:    model.EndReasonScoreReached,
		}
	}

	s.resetRound(mode, m, p)
	return rollResult{Outcome: model.OutcomeScore, TurnEnded: true, Banked: true}
}

// switchTurn hands the turn to the next player in join order and resets
// per-turn state. The multiplier is always exactly 1 at turn start.
func (s *Service) switchTurn(m *model.Match, current *model.PlayerMatchData) {
	idx := m.PlayerIndex(current.PlayerID)
	next := (idx + 1) % len(m.Players)

	for i := range m.Players {
		m.Players[i].TurnActive = i == next
		m.Players[i].TurnRolls = 0
	}
	m.Game.Multiplier = 1
}

// resetRound starts the next sub-round of a best-of series; the round
// loser opens it
func (s *Service) resetRound(mode model.ModeConfig, m *model.Match, roundWinner *model.PlayerMatchData) {
	winnerIdx := m.PlayerIndex(roundWinner.PlayerID)
	opener := (winnerIdx + 1) % len(m.Players)

	for i := range m.Players {
		m.Players[i].TurnScore = 0
		m.Players[i].TurnRolls = 0
		m.Players[i].TurnActive = i == opener
		if mode.ScoreDirection == model.ScoreDown {
			m.Players[i].Score = mode.StartScore
		} else {
			m.Players[i].Score = 0
		}
	}
	m.Game.SharedPool = 0
	m.Game.Multiplier = 1
	m.Game.Round++
}

func (s *Service) endMatch(m *model.Match, winner model.PlayerID, reason model.EndReason, now time.Time) {
	m.Game.Phase = model.PhaseGameOver
	m.Game.Winner = winner
	m.Game.EndReason = reason
	m.EndedAt = now
	for i := range m.Players {
		m.Players[i].TurnActive = false
	}
}

// creditAura is the only source of resource income: fixed per-event
// amounts credited from gameplay
func (s *Service) creditAura(m *model.Match, id model.PlayerID, amount int) {
	if ps := m.Abilities.Player(id); ps != nil {
		ps.Aura += amount
	}
}

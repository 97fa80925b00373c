package bot

import "github.com/dicearena/dicearena/internal/model"

// Strategy defines how a bot plays its turn
type Strategy interface {
	// ChooseParity selects the parity call for the turn-decider roll
	ChooseParity(m *model.Match) model.Parity
	// ShouldBank decides whether to bank the current turn-score or keep
	// rolling. Only consulted in modes where banking is allowed.
	ShouldBank(mode model.ModeConfig, m *model.Match, p *model.PlayerMatchData) bool
}

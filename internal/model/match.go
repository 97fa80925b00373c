package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// MatchPhase represents the current phase of a match
type MatchPhase string

const (
	// PhaseTurnDecider: waiting for the host's parity call
	PhaseTurnDecider MatchPhase = "turn_decider"
	// PhaseGameplay: turn loop in progress
	PhaseGameplay MatchPhase = "gameplay"
	// PhaseGameOver: terminal; the match is archived, not deleted
	PhaseGameOver MatchPhase = "game_over"
)

// EndReason records why a match ended
type EndReason string

const (
	EndReasonScoreReached      EndReason = "score_reached"
	EndReasonElimination       EndReason = "elimination"
	EndReasonOpponentAbandoned EndReason = "opponent_abandoned"
	EndReasonReadyCheckFailed  EndReason = "ready_check_failed"
	// EndReasonTimedOut marks a match the cleanup sweep aged out; it is
	// the only reason recorded without a winner
	EndReasonTimedOut EndReason = "timed_out"
)

// Parity is the turn-decider prediction
type Parity string

const (
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// RollOutcome classifies a resolved dice roll
type RollOutcome string

const (
	// OutcomeScore: dice sum (times multiplier) added to turn-score
	OutcomeScore RollOutcome = "score"
	// OutcomeBust: single 1, turn-score discarded, turn over
	OutcomeBust RollOutcome = "bust"
	// OutcomeElimination: single 1 in an elimination mode, match over
	OutcomeElimination RollOutcome = "elimination"
	// OutcomeSnakeEyes: double 1, bonus added, turn continues
	OutcomeSnakeEyes RollOutcome = "snake_eyes"
	// OutcomeDoubleMultiplier: double 2-5, multiplier stacks, turn continues
	OutcomeDoubleMultiplier RollOutcome = "double_multiplier"
	// OutcomeTotalReset: double 6, total score wiped, turn over
	OutcomeTotalReset RollOutcome = "total_reset"
	// OutcomeOvershoot: roll rejected because it would pass an exact target
	OutcomeOvershoot RollOutcome = "overshoot"
	// OutcomeDecider: the single turn-decider die
	OutcomeDecider RollOutcome = "decider"
)

// MatchAge is the age at which the cleanup sweep abandons a match that
// never reached game over
const MatchAge = 30 * time.Minute

// AbandonGracePeriod is how long a stale turn owner has to resume before
// the match is forfeited to the opponent
const AbandonGracePeriod = 30 * time.Second

// MatchStats are per-player counters accumulated over a match, retained in
// the archive for the statistics collaborators
type MatchStats struct {
	Rolls         int
	Doubles       int
	Busts         int
	Banks         int
	AbilitiesUsed int
}

// PlayerMatchData is one player's side of a match
type PlayerMatchData struct {
	PlayerID    PlayerID
	DisplayName string
	IsBot       bool

	Score      int
	TurnScore  int
	TurnActive bool
	RoundsWon  int
	// TurnRolls counts rolls within the current turn, for roll-limit modes
	TurnRolls int

	Stats MatchStats

	// Connection snapshot, refreshed from presence by the cleanup sweep
	Connected  bool
	LastSeenAt time.Time
}

// GameData is the shared authoritative state of a match
type GameData struct {
	Phase MatchPhase

	// Round is the 1-based sub-round in best-of modes
	Round int

	// Turn-decider state
	DeciderID    PlayerID
	ChosenParity Parity
	DeciderRoll  int

	// Last resolved dice
	Dice [2]int
	// Multiplier applies to subsequent scoring for the rest of the turn;
	// always 1 at turn start
	Multiplier int

	// SharedPool is the tug-of-war pool; positive pulls toward the first
	// player, negative toward the second
	SharedPool int

	Winner    PlayerID
	EndReason EndReason

	// CommandSeq is the idempotency counter; every mutating command must
	// carry CommandSeq+1 or it is rejected as stale
	CommandSeq int64
}

// Match owns the authoritative state for one match instance
type Match struct {
	ID     MatchID
	Mode   ModeID
	RoomID RoomID

	Players   []PlayerMatchData
	Game      GameData
	Abilities AbilityState

	CreatedAt time.Time
	EndedAt   time.Time
	UpdatedAt time.Time
	Version   int64
}

// PlayerData returns the match data for the given player, or nil
func (m *Match) PlayerData(id PlayerID) *PlayerMatchData {
	for i := range m.Players {
		if m.Players[i].PlayerID == id {
			return &m.Players[i]
		}
	}
	return nil
}

// Opponent returns the other side in a two-player match, or nil
func (m *Match) Opponent(id PlayerID) *PlayerMatchData {
	for i := range m.Players {
		if m.Players[i].PlayerID != id {
			return &m.Players[i]
		}
	}
	return nil
}

// CurrentTurn returns the player whose TurnActive flag is set, or nil
// outside the gameplay phase
func (m *Match) CurrentTurn() *PlayerMatchData {
	for i := range m.Players {
		if m.Players[i].TurnActive {
			return &m.Players[i]
		}
	}
	return nil
}

// PlayerIndex returns the position of the player in join order, or -1
func (m *Match) PlayerIndex(id PlayerID) int {
	for i := range m.Players {
		if m.Players[i].PlayerID == id {
			return i
		}
	}
	return -1
}

// PlayerIDs returns the participant IDs in join order
func (m *Match) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, len(m.Players))
	for i, p := range m.Players {
		ids[i] = p.PlayerID
	}
	return ids
}

// IsOver reports whether the match has reached its terminal phase
func (m *Match) IsOver() bool {
	return m.Game.Phase == PhaseGameOver
}

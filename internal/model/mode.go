package model

// ModeID identifies a game mode
type ModeID string

// Built-in game modes
const (
	ModeClassic   ModeID = "classic"
	ModeDescent   ModeID = "descent"
	ModeTugOfWar  ModeID = "tug-of-war"
	ModeTrueGrit  ModeID = "true-grit"
	ModeLightning ModeID = "lightning"
	ModeBestOf3   ModeID = "best-of-3"
)

// ScoreDirection controls how banked points move a player toward victory
type ScoreDirection string

const (
	// ScoreUp: first player to reach the target total wins
	ScoreUp ScoreDirection = "up"
	// ScoreDown: totals start at StartScore and bank subtracts; reaching
	// exactly zero wins, overshooting resets the total to StartScore
	ScoreDown ScoreDirection = "down"
	// ScoreTugOfWar: both players push a shared pool in opposite
	// directions; the first to drag it past the cap wins
	ScoreTugOfWar ScoreDirection = "tug-of-war"
)

// DoubleEffect overrides the base behavior of rolling a particular double.
// Multiplier stacks multiplicatively with any multiplier already active this
// turn; Bonus is added to turn-score immediately.
type DoubleEffect struct {
	Multiplier int
	Bonus      int
}

// Base doubles behavior, applied where a mode has no override
const (
	// SnakeEyesBonus is the turn-score bonus for rolling double ones
	SnakeEyesBonus = 25
	// DoubleMultiplier is the stacking multiplier for doubles 2-2 through 5-5
	DoubleMultiplier = 2
)

// ModeConfig holds the rule parameters for one game mode
type ModeConfig struct {
	ID   ModeID
	Name string

	// Capacity is the number of players per room/match
	Capacity int

	TargetScore    int
	StartScore     int // starting total for descending modes
	ScoreDirection ScoreDirection
	AllowBanking   bool
	RollLimit      int // max rolls per turn, 0 for unlimited
	BestOf         int // rounds in a best-of series, 0 or 1 for a single round

	// DoublesEffects overrides base doubles handling per face value (1-6).
	// An entry for 6 replaces the total-score reset with normal scoring
	// plus the given multiplier/bonus.
	DoublesEffects map[int]DoubleEffect

	// EliminationOnSingleOne ends the match (not just the turn) for the
	// roller when a single 1 comes up
	EliminationOnSingleOne bool

	// ExactScoreRequired rejects rolls that would overshoot the target
	// instead of applying them
	ExactScoreRequired bool
}

// RoundsToWin returns how many round wins take the series
func (m ModeConfig) RoundsToWin() int {
	if m.BestOf <= 1 {
		return 1
	}
	return m.BestOf/2 + 1
}

var builtinModes = []ModeConfig{
	{
		ID:             ModeClassic,
		Name:           "Classic",
		Capacity:       2,
		TargetScore:    50,
		ScoreDirection: ScoreUp,
		AllowBanking:   true,
	},
	{
		ID:             ModeDescent,
		Name:           "Descent",
		Capacity:       2,
		StartScore:     100,
		ScoreDirection: ScoreDown,
		AllowBanking:   true,
		ExactScoreRequired: true,
	},
	{
		ID:             ModeTugOfWar,
		Name:           "Tug of War",
		Capacity:       2,
		TargetScore:    30,
		ScoreDirection: ScoreTugOfWar,
		AllowBanking:   true,
	},
	{
		ID:                     ModeTrueGrit,
		Name:                   "True Grit",
		Capacity:               2,
		TargetScore:            100,
		ScoreDirection:         ScoreUp,
		AllowBanking:           false,
		EliminationOnSingleOne: true,
		// Double six scores like any other double here; busting on a
		// lucky streak would make the mode unplayable
		DoublesEffects: map[int]DoubleEffect{
			6: {Multiplier: DoubleMultiplier},
		},
	},
	{
		ID:             ModeLightning,
		Name:           "Lightning",
		Capacity:       2,
		TargetScore:    30,
		ScoreDirection: ScoreUp,
		AllowBanking:   true,
		RollLimit:      3,
		DoublesEffects: map[int]DoubleEffect{
			6: {Multiplier: 3},
		},
	},
	{
		ID:             ModeBestOf3,
		Name:           "Best of Three",
		Capacity:       2,
		TargetScore:    50,
		ScoreDirection: ScoreUp,
		AllowBanking:   true,
		BestOf:         3,
	},
}

// Modes returns all built-in mode configurations
func Modes() []ModeConfig {
	out := make([]ModeConfig, len(builtinModes))
	copy(out, builtinModes)
	return out
}

// ModeByID looks up a built-in mode configuration
func ModeByID(id ModeID) (ModeConfig, error) {
	for _, m := range builtinModes {
		if m.ID == id {
			return m, nil
		}
	}
	return ModeConfig{}, ErrUnknownMode
}

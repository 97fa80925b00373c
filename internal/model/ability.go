package model

import "time"

// AbilityID identifies an ability in the catalog
type AbilityID string

// Built-in abilities
const (
	AbilityShield     AbilityID = "shield"
	AbilitySiphon     AbilityID = "siphon"
	AbilitySabotage   AbilityID = "sabotage"
	AbilityLuckyCharm AbilityID = "lucky-charm"
)

// EffectKind is the closed set of effect variants. The match state machine
// handles every kind exhaustively; there is no open payload map.
type EffectKind string

const (
	// EffectShield blocks the next incoming ability, consuming itself
	EffectShield EffectKind = "shield"
	// EffectAuraSteal transfers aura from the target to the source
	EffectAuraSteal EffectKind = "aura_steal"
	// EffectScoreDrain reduces the target's current turn-score
	EffectScoreDrain EffectKind = "score_drain"
	// EffectLuckyCharm ignores the next single-1 bust, consuming itself
	EffectLuckyCharm EffectKind = "lucky_charm"
)

// Instant reports whether the kind applies immediately on use rather than
// persisting as an active effect
func (k EffectKind) Instant() bool {
	return k == EffectAuraSteal || k == EffectScoreDrain
}

// Targeting constrains who an ability may be aimed at
type Targeting string

const (
	TargetSelf     Targeting = "self"
	TargetOpponent Targeting = "opponent"
)

// AbilityTiming constrains when an ability may be used
type AbilityTiming string

const (
	// TimingOwnTurn: only while the user holds the turn in gameplay
	TimingOwnTurn AbilityTiming = "own_turn"
	// TimingAnytime: any point during gameplay
	TimingAnytime AbilityTiming = "anytime"
)

// EffectSpec is one effect an ability produces when used
type EffectSpec struct {
	Kind      EffectKind
	Magnitude int
	Duration  time.Duration // ignored for instant kinds
}

// Ability is a catalog entry
type Ability struct {
	ID        AbilityID
	Name      string
	Cost      int
	Cooldown  time.Duration
	Targeting Targeting
	Timing    AbilityTiming
	Effects   []EffectSpec
}

// Aura income per gameplay event; the only source of resource income
const (
	AuraOnBank      = 15
	AuraOnSnakeEyes = 20
	AuraOnDouble    = 10
)

var builtinAbilities = []Ability{
	{
		ID:        AbilityShield,
		Name:      "Shield",
		Cost:      30,
		Cooldown:  45 * time.Second,
		Targeting: TargetSelf,
		Timing:    TimingAnytime,
		Effects:   []EffectSpec{{Kind: EffectShield, Duration: time.Minute}},
	},
	{
		ID:        AbilitySiphon,
		Name:      "Siphon",
		Cost:      40,
		Cooldown:  30 * time.Second,
		Targeting: TargetOpponent,
		Timing:    TimingOwnTurn,
		Effects:   []EffectSpec{{Kind: EffectAuraSteal, Magnitude: 20}},
	},
	{
		ID:        AbilitySabotage,
		Name:      "Sabotage",
		Cost:      50,
		Cooldown:  60 * time.Second,
		Targeting: TargetOpponent,
		Timing:    TimingAnytime,
		Effects:   []EffectSpec{{Kind: EffectScoreDrain, Magnitude: 10}},
	},
	{
		ID:        AbilityLuckyCharm,
		Name:      "Lucky Charm",
		Cost:      35,
		Cooldown:  45 * time.Second,
		Targeting: TargetSelf,
		Timing:    TimingOwnTurn,
		Effects:   []EffectSpec{{Kind: EffectLuckyCharm, Duration: 30 * time.Second}},
	},
}

// Abilities returns the built-in ability catalog
func Abilities() []Ability {
	out := make([]Ability, len(builtinAbilities))
	copy(out, builtinAbilities)
	return out
}

// AbilityByID looks up a catalog entry
func AbilityByID(id AbilityID) (Ability, error) {
	for _, a := range builtinAbilities {
		if a.ID == id {
			return a, nil
		}
	}
	return Ability{}, ErrAbilityNotFound
}

// ActiveEffect is a timed effect attached to a match
type ActiveEffect struct {
	Kind      EffectKind
	Magnitude int
	SourceID  PlayerID
	TargetID  PlayerID
	AppliedAt time.Time
	ExpiresAt time.Time
}

// PlayerAbilityState is one player's resource economy within a match
type PlayerAbilityState struct {
	Aura      int
	Cooldowns map[AbilityID]time.Time // ability -> cooldown expiry
	Uses      map[AbilityID]int
}

// AbilityState is the ability overlay attached to a match
type AbilityState struct {
	Players map[PlayerID]*PlayerAbilityState
	Active  []ActiveEffect
}

// NewAbilityState creates zeroed ability state for the given players
func NewAbilityState(players []PlayerID) AbilityState {
	st := AbilityState{
		Players: make(map[PlayerID]*PlayerAbilityState, len(players)),
	}
	for _, id := range players {
		st.Players[id] = &PlayerAbilityState{
			Cooldowns: make(map[AbilityID]time.Time),
			Uses:      make(map[AbilityID]int),
		}
	}
	return st
}

// Player returns the ability state for a player, or nil
func (s *AbilityState) Player(id PlayerID) *PlayerAbilityState {
	return s.Players[id]
}

// Prune drops effects whose expiry has passed. Called lazily whenever
// match state is read or mutated; there is no background sweep per match.
func (s *AbilityState) Prune(now time.Time) {
	kept := s.Active[:0]
	for _, e := range s.Active {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
		}
	}
	s.Active = kept
}

// FindEffect returns the index of the first active effect of the given
// kind targeting the player, or -1
func (s *AbilityState) FindEffect(kind EffectKind, target PlayerID) int {
	for i, e := range s.Active {
		if e.Kind == kind && e.TargetID == target {
			return i
		}
	}
	return -1
}

// ConsumeEffect removes the effect at the given index
func (s *AbilityState) ConsumeEffect(i int) {
	s.Active = append(s.Active[:i], s.Active[i+1:]...)
}

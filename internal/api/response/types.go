package response

import (
	"time"

	"github.com/dicearena/dicearena/internal/model"
	"github.com/dicearena/dicearena/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
		IsBot:       p.IsBot,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
	}
}

// RoomMember represents a room member
type RoomMember struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsBot       bool   `json:"is_bot,omitempty"`
	IsHost      bool   `json:"is_host"`
}

// ReadyCheck represents an active ready check
type ReadyCheck struct {
	State     string          `json:"state"`
	Ready     map[string]bool `json:"ready"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Room represents a waiting room
type Room struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	Status     string       `json:"status"`
	Capacity   int          `json:"capacity"`
	Members    []RoomMember `json:"members"`
	ReadyCheck *ReadyCheck  `json:"ready_check,omitempty"`
	MatchID    string       `json:"match_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// RoomFromModel converts a model.WaitingRoom
func RoomFromModel(r *model.WaitingRoom) Room {
	room := Room{
		ID:        string(r.ID),
		Mode:      string(r.Mode),
		Status:    string(r.Status),
		Capacity:  r.Capacity,
		Members:   make([]RoomMember, len(r.Members)),
		MatchID:   string(r.MatchID),
		CreatedAt: r.CreatedAt,
	}
	for i, m := range r.Members {
		room.Members[i] = RoomMember{
			PlayerID:    string(m.PlayerID),
			DisplayName: m.DisplayName,
			IsBot:       m.IsBot,
			IsHost:      i == 0,
		}
	}
	if r.ReadyCheck != nil {
		ready := make(map[string]bool, len(r.ReadyCheck.Ready))
		for id, ok := range r.ReadyCheck.Ready {
			ready[string(id)] = ok
		}
		room.ReadyCheck = &ReadyCheck{
			State:     string(r.ReadyCheck.State),
			Ready:     ready,
			ExpiresAt: r.ReadyCheck.ExpiresAt,
		}
	}
	return room
}

// MatchPlayer is one player's side of a match
type MatchPlayer struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsBot       bool   `json:"is_bot,omitempty"`
	Score       int    `json:"score"`
	TurnScore   int    `json:"turn_score"`
	TurnActive  bool   `json:"turn_active"`
	RoundsWon   int    `json:"rounds_won"`
	Aura        int    `json:"aura"`
}

// ActiveEffect is a timed ability effect on a match
type ActiveEffect struct {
	Kind      string    `json:"kind"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Match represents a match
type Match struct {
	ID         string         `json:"id"`
	Mode       string         `json:"mode"`
	Phase      string         `json:"phase"`
	Round      int            `json:"round"`
	DeciderID  string         `json:"decider_id,omitempty"`
	Dice       [2]int         `json:"dice"`
	Multiplier int            `json:"multiplier"`
	SharedPool int            `json:"shared_pool,omitempty"`
	Players    []MatchPlayer  `json:"players"`
	Effects    []ActiveEffect `json:"effects,omitempty"`
	Winner     string         `json:"winner,omitempty"`
	EndReason  string         `json:"end_reason,omitempty"`
	Seq        int64          `json:"seq"`
	CreatedAt  time.Time      `json:"created_at"`
}

// MatchFromModel converts a model.Match
func MatchFromModel(m *model.Match) Match {
	out := Match{
		ID:         string(m.ID),
		Mode:       string(m.Mode),
		Phase:      string(m.Game.Phase),
		Round:      m.Game.Round,
		DeciderID:  string(m.Game.DeciderID),
		Dice:       m.Game.Dice,
		Multiplier: m.Game.Multiplier,
		SharedPool: m.Game.SharedPool,
		Players:    make([]MatchPlayer, len(m.Players)),
		Winner:     string(m.Game.Winner),
		EndReason:  string(m.Game.EndReason),
		Seq:        m.Game.CommandSeq,
		CreatedAt:  m.CreatedAt,
	}
	for i, p := range m.Players {
		mp := MatchPlayer{
			PlayerID:    string(p.PlayerID),
			DisplayName: p.DisplayName,
			IsBot:       p.IsBot,
			Score:       p.Score,
			TurnScore:   p.TurnScore,
			TurnActive:  p.TurnActive,
			RoundsWon:   p.RoundsWon,
		}
		if st := m.Abilities.Player(p.PlayerID); st != nil {
			mp.Aura = st.Aura
		}
		out.Players[i] = mp
	}
	for _, e := range m.Abilities.Active {
		out.Effects = append(out.Effects, ActiveEffect{
			Kind:      string(e.Kind),
			SourceID:  string(e.SourceID),
			TargetID:  string(e.TargetID),
			ExpiresAt: e.ExpiresAt,
		})
	}
	return out
}

// Mode represents a game mode in API responses
type Mode struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Capacity       int    `json:"capacity"`
	TargetScore    int    `json:"target_score"`
	StartScore     int    `json:"start_score,omitempty"`
	ScoreDirection string `json:"score_direction"`
	AllowBanking   bool   `json:"allow_banking"`
	RollLimit      int    `json:"roll_limit,omitempty"`
	BestOf         int    `json:"best_of,omitempty"`
}

// ModeFromModel converts a model.ModeConfig
func ModeFromModel(m model.ModeConfig) Mode {
	return Mode{
		ID:             string(m.ID),
		Name:           m.Name,
		Capacity:       m.Capacity,
		TargetScore:    m.TargetScore,
		StartScore:     m.StartScore,
		ScoreDirection: string(m.ScoreDirection),
		AllowBanking:   m.AllowBanking,
		RollLimit:      m.RollLimit,
		BestOf:         m.BestOf,
	}
}

// Ability represents a catalog ability
type Ability struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	Cooldown string `json:"cooldown"`
	Target   string `json:"target"`
	Timing   string `json:"timing"`
}

// AbilityFromModel converts a model.Ability
func AbilityFromModel(a model.Ability) Ability {
	return Ability{
		ID:       string(a.ID),
		Name:     a.Name,
		Cost:     a.Cost,
		Cooldown: a.Cooldown.String(),
		Target:   string(a.Targeting),
		Timing:   string(a.Timing),
	}
}

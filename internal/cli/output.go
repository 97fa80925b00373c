package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Room:
		o.printRoom(v)
	case Match:
		o.printMatch(v)
	case []Mode:
		o.printModes(v)
	case []Ability:
		o.printAbilities(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// RoomMember response type
type RoomMember struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsBot       bool   `json:"is_bot,omitempty"`
	IsHost      bool   `json:"is_host"`
}

// ReadyCheck response type
type ReadyCheck struct {
	State     string          `json:"state"`
	Ready     map[string]bool `json:"ready"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Room response type
type Room struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	Status     string       `json:"status"`
	Capacity   int          `json:"capacity"`
	Members    []RoomMember `json:"members"`
	ReadyCheck *ReadyCheck  `json:"ready_check,omitempty"`
	MatchID    string       `json:"match_id,omitempty"`
}

// MatchPlayer response type
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

// Match response type
type Match struct {
	ID         string        `json:"id"`
	Mode       string        `json:"mode"`
	Phase      string        `json:"phase"`
	Round      int           `json:"round"`
	DeciderID  string        `json:"decider_id,omitempty"`
	Dice       [2]int        `json:"dice"`
	Multiplier int           `json:"multiplier"`
	SharedPool int           `json:"shared_pool,omitempty"`
	Players    []MatchPlayer `json:"players"`
	Winner     string        `json:"winner,omitempty"`
	EndReason  string        `json:"end_reason,omitempty"`
	Seq        int64         `json:"seq"`
}

// Mode response type
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

// Ability response type
type Ability struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	Cooldown string `json:"cooldown"`
	Target   string `json:"target"`
	Timing   string `json:"timing"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	if p.IsGuest {
		fmt.Println("Guest: yes")
	}
	if p.IsBot {
		fmt.Println("Bot: yes")
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.ID)
	fmt.Printf("Mode: %s\n", r.Mode)
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Members (%d/%d):\n", len(r.Members), r.Capacity)
	for _, m := range r.Members {
		tags := ""
		if m.IsHost {
			tags += " [host]"
		}
		if m.IsBot {
			tags += " [bot]"
		}
		fmt.Printf("  - %s (%s)%s\n", m.DisplayName, m.PlayerID, tags)
	}
	if r.ReadyCheck != nil {
		fmt.Printf("Ready check: %s (expires %s)\n",
			r.ReadyCheck.State, r.ReadyCheck.ExpiresAt.Format(time.RFC3339))
		for pid, ready := range r.ReadyCheck.Ready {
			if ready {
				fmt.Printf("  %s: ready\n", pid)
			}
		}
	}
	if r.MatchID != "" {
		fmt.Printf("Match: %s\n", r.MatchID)
	}
}

func (o *Output) printMatch(m Match) {
	fmt.Printf("Match: %s\n", m.ID)
	fmt.Printf("Mode: %s\n", m.Mode)
	fmt.Printf("Phase: %s\n", m.Phase)
	fmt.Printf("Round: %d  Seq: %d\n", m.Round, m.Seq)
	if m.Phase == "turn_decider" && m.DeciderID != "" {
		fmt.Printf("Decider: %s\n", m.DeciderID)
	}
	if m.Dice[0] != 0 {
		fmt.Printf("Last roll: %d + %d\n", m.Dice[0], m.Dice[1])
	}
	if m.Multiplier > 1 {
		fmt.Printf("Multiplier: x%d\n", m.Multiplier)
	}
	if m.SharedPool != 0 {
		fmt.Printf("Pool: %+d\n", m.SharedPool)
	}
	fmt.Println("Players:")
	for _, p := range m.Players {
		turn := ""
		if p.TurnActive {
			turn = " <- turn"
		}
		bot := ""
		if p.IsBot {
			bot = " [bot]"
		}
		fmt.Printf("  %s%s: %d (turn %d, aura %d, rounds %d)%s\n",
			p.DisplayName, bot, p.Score, p.TurnScore, p.Aura, p.RoundsWon, turn)
	}
	if m.Winner != "" {
		fmt.Printf("Winner: %s (%s)\n", m.Winner, m.EndReason)
	}
}

func (o *Output) printModes(modes []Mode) {
	for _, m := range modes {
		fmt.Printf("%s - %s\n", m.ID, m.Name)
		fmt.Printf("  target: %d, direction: %s, banking: %v\n",
			m.TargetScore, m.ScoreDirection, m.AllowBanking)
		if m.RollLimit > 0 {
			fmt.Printf("  roll limit: %d\n", m.RollLimit)
		}
		if m.BestOf > 0 {
			fmt.Printf("  best of: %d\n", m.BestOf)
		}
	}
}

func (o *Output) printAbilities(abilities []Ability) {
	for _, a := range abilities {
		fmt.Printf("%s - %s\n", a.ID, a.Name)
		fmt.Printf("  cost: %d aura, cooldown: %s, target: %s, timing: %s\n",
			a.Cost, a.Cooldown, a.Target, a.Timing)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}

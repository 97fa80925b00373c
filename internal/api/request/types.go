package request

// CreateGuestRequest is the request to create a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request to register a player account
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request to log in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinRequest is the request to enter the matchmaking queue
type JoinRequest struct {
	Mode string `json:"mode"`
}

// ParityRequest is the turn-decider parity call
type ParityRequest struct {
	Parity string `json:"parity"`
	Seq    int64  `json:"seq"`
}

// RollRequest is a dice roll command
type RollRequest struct {
	Seq int64 `json:"seq"`
}

// BankRequest is a bank command
type BankRequest struct {
	Seq int64 `json:"seq"`
}

// UseAbilityRequest is an ability use command. TargetID is optional and
// defaults to whatever the ability's targeting rule resolves.
type UseAbilityRequest struct {
	AbilityID string `json:"ability_id"`
	TargetID  string `json:"target_id,omitempty"`
	Seq       int64  `json:"seq"`
}

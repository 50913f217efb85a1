// internal/models/action.go
package models

// ActionType is a betting decision submitted by a player or bot.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all-in"

	// blinds are recorded as the last action of the posting players
	ActionSmallBlind ActionType = "small-blind"
	ActionBigBlind   ActionType = "big-blind"
)

// PlayerAction captures a betting move. Amount is the total bet the player raises to.
type PlayerAction struct {
	Type   ActionType `json:"action"`
	Amount float64    `json:"amount,omitempty"`
}

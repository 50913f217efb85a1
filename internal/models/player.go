package models

import (
	"github.com/google/uuid"
)

// PlayerStatus is a seated player's participation state for the current hand.
type PlayerStatus string

const (
	StatusActive     PlayerStatus = "active"
	StatusFolded     PlayerStatus = "folded"
	StatusAllIn      PlayerStatus = "all-in"
	StatusSittingOut PlayerStatus = "sitting-out"
	StatusEliminated PlayerStatus = "eliminated"
)

// Player is a seat occupant. Seat, balance and lifetime counters survive between hands;
// everything else is reset by the deal.
type Player struct {
	ID               uuid.UUID    `json:"id"`
	DisplayName      string       `json:"displayName"`
	IsBot            bool         `json:"isBot"`
	ChipBalance      float64      `json:"chipBalance"`
	CurrentBet       float64      `json:"currentBet"`
	TotalBetThisHand float64      `json:"totalBetThisHand"`
	Hand             []Card       `json:"hand"`
	Status           PlayerStatus `json:"status"`
	SeatIndex        int          `json:"seatIndex"`
	IsDealer         bool         `json:"isDealer"`
	IsTurn           bool         `json:"isTurn"`
	LastAction       ActionType   `json:"lastAction,omitempty"`

	// ActedThisRound is cleared when a street starts and for every other player on a full raise.
	ActedThisRound bool `json:"-"`
	// SitOutNextHand defers a sit-out request made while all-in.
	SitOutNextHand bool `json:"sitOutNextHand,omitempty"`

	// HandsPlayed is the lifetime hand count used for the VIP rake tier.
	HandsPlayed int `json:"handsPlayed"`
	// BestHand is filled at showdown for contenders.
	BestHand *HandSummary `json:"bestHand,omitempty"`
}

// HandSummary describes an evaluated showdown hand.
type HandSummary struct {
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
	Score int64  `json:"score"`
}

// InHand reports whether the player still contends for the pot.
func (p *Player) InHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}

// CanBeDealt reports whether the player is eligible for the next deal.
func (p *Player) CanBeDealt() bool {
	return p.Status != StatusSittingOut && p.Status != StatusEliminated && p.ChipBalance > 0
}

// Clone returns a deep copy.
func (p *Player) Clone() *Player {
	cp := *p
	if p.Hand != nil {
		cp.Hand = append([]Card(nil), p.Hand...)
	}
	if p.BestHand != nil {
		bh := *p.BestHand
		bh.Cards = append([]Card(nil), p.BestHand.Cards...)
		cp.BestHand = &bh
	}
	return &cp
}

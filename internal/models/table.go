// internal/models/table.go
package models

import (
	"github.com/google/uuid"
)

// Phase is the street of the hand in progress.
type Phase string

const (
	PhasePreFlop  Phase = "pre-flop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
)

// GameMode selects real-money (raked) or practice play.
type GameMode string

const (
	ModeCash     GameMode = "cash"
	ModePractice GameMode = "practice"
)

// FairnessRecord is the provably-fair input of one hand. The secret stays server side until the
// hand resolves.
type FairnessRecord struct {
	ServerSecret   string `json:"-"`
	CommitmentHash string `json:"commitmentHash"`
	ClientValue    string `json:"clientValue"`
	Nonce          uint64 `json:"nonce"`
}

// Reveal discloses the record together with the full shuffled deck.
func (f FairnessRecord) Reveal(deck []Card) *FairnessReveal {
	return &FairnessReveal{
		ServerSecret:   f.ServerSecret,
		CommitmentHash: f.CommitmentHash,
		ClientValue:    f.ClientValue,
		Nonce:          f.Nonce,
		Deck:           append([]Card(nil), deck...),
	}
}

// FairnessReveal is published after settlement so the shuffle can be replayed.
type FairnessReveal struct {
	ServerSecret   string `json:"serverSecret"`
	CommitmentHash string `json:"commitmentHash"`
	ClientValue    string `json:"clientValue"`
	Nonce          uint64 `json:"nonce"`
	Deck           []Card `json:"deck,omitempty"`
}

// SidePot is derived at showdown from the players' contributions.
type SidePot struct {
	Amount            float64     `json:"amount"`
	EligiblePlayerIDs []uuid.UUID `json:"eligiblePlayerIds"`
}

// Contribution is chips put into the pot by a player who has since left the table.
type Contribution struct {
	PlayerID uuid.UUID `json:"playerId"`
	Amount   float64   `json:"amount"`
}

// Winner is one payout line of a settled hand.
type Winner struct {
	PlayerID    uuid.UUID `json:"playerId"`
	DisplayName string    `json:"displayName"`
	Amount      float64   `json:"amount"`
	HandName    string    `json:"handName,omitempty"`
	Cards       []Card    `json:"cards,omitempty"`
}

// HandArchive summarizes the previous hand for clients joining between hands.
type HandArchive struct {
	HandNumber     int      `json:"handNumber"`
	CommunityCards []Card   `json:"communityCards"`
	Winners        []Winner `json:"winners"`
}

// TableState is the complete state of one table. The engine never mutates a TableState in place;
// every transition works on a Clone.
type TableState struct {
	TableID  string    `json:"tableId"`
	MaxSeats int       `json:"maxSeats"`
	Mode     GameMode  `json:"mode"`
	Players  []*Player `json:"players"`

	Pot            float64   `json:"pot"`
	CommunityCards []Card    `json:"communityCards"`
	Phase          Phase     `json:"phase"`
	HandActive     bool      `json:"handActive"`
	HandNumber     int       `json:"handNumber"`
	HandID         uuid.UUID `json:"handId"`

	CurrentTurnPlayerID uuid.UUID `json:"currentTurnPlayerId"`
	DealerSeatIndex     int       `json:"dealerSeatIndex"`
	SmallBlind          float64   `json:"smallBlind"`
	BigBlind            float64   `json:"bigBlind"`
	MinBetToCall        float64   `json:"minBetToCall"`
	LastRaiseDelta      float64   `json:"lastRaiseDelta"`
	LastAggressorID     uuid.UUID `json:"lastAggressorId"`

	Deck             []Card          `json:"-"`
	Fairness         FairnessRecord  `json:"fairness"`
	PreviousFairness *FairnessReveal `json:"previousFairness,omitempty"`

	// DeadMoney holds contributions of players who left mid-hand.
	DeadMoney []Contribution `json:"deadMoney,omitempty"`

	Winners  []Winner     `json:"winners,omitempty"`
	SidePots []SidePot    `json:"sidePots,omitempty"`
	Rake     float64      `json:"rake"`
	LastHand *HandArchive `json:"lastHand,omitempty"`
	LastLog  string       `json:"lastLog,omitempty"`
}

// Player returns the seated player with the given id.
func (s *TableState) Player(id uuid.UUID) (*Player, int) {
	for i, p := range s.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// PlayerAtSeat returns the player occupying a seat index.
func (s *TableState) PlayerAtSeat(seat int) *Player {
	for _, p := range s.Players {
		if p.SeatIndex == seat {
			return p
		}
	}
	return nil
}

// RoundClosed reports whether nobody is due to act.
func (s *TableState) RoundClosed() bool {
	return s.CurrentTurnPlayerID == uuid.Nil
}

// Contenders returns the players still eligible to win the pot, in seat order.
func (s *TableState) Contenders() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.InHand() {
			out = append(out, p)
		}
	}
	return out
}

// CountStatus counts players with the given status.
func (s *TableState) CountStatus(st PlayerStatus) int {
	n := 0
	for _, p := range s.Players {
		if p.Status == st {
			n++
		}
	}
	return n
}

// ChipsInPlay is the sum of every stack plus the pot.
func (s *TableState) ChipsInPlay() float64 {
	total := s.Pot
	for _, p := range s.Players {
		total += p.ChipBalance
	}
	return total
}

// Clone returns a deep copy of the state.
func (s *TableState) Clone() *TableState {
	cp := *s
	cp.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	cp.CommunityCards = append([]Card(nil), s.CommunityCards...)
	cp.Deck = append([]Card(nil), s.Deck...)
	cp.DeadMoney = append([]Contribution(nil), s.DeadMoney...)
	cp.Winners = append([]Winner(nil), s.Winners...)
	cp.SidePots = append([]SidePot(nil), s.SidePots...)
	return &cp
}

// ViewFor returns a copy safe to send to viewer: other players' face-down cards are masked and the
// remaining deck is dropped. uuid.Nil yields the spectator view.
func (s *TableState) ViewFor(viewer uuid.UUID) *TableState {
	v := s.Clone()
	v.Deck = nil
	for _, p := range v.Players {
		if p.ID == viewer {
			continue
		}
		for i, c := range p.Hand {
			if c.Hidden {
				p.Hand[i] = Card{Hidden: true}
			}
		}
	}
	return v
}

// internal/models/card.go
package models

import (
	"fmt"
	"strings"
)

// Suit is one of the four French suits.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Suits lists suits in canonical deck order.
var Suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// Letter returns the single-letter suit code used in short card notation.
func (s Suit) Letter() byte {
	switch s {
	case Spades:
		return 's'
	case Hearts:
		return 'h'
	case Diamonds:
		return 'd'
	case Clubs:
		return 'c'
	}
	return '?'
}

// Rank is the card rank, deuce=2 through ace=14.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankLetters = "23456789TJQKA"

// Letter returns the single-character rank code ('T' for ten).
func (r Rank) Letter() byte {
	if r < Two || r > Ace {
		return '?'
	}
	return rankLetters[r-Two]
}

// Name returns a human readable rank name used in hand descriptions.
func (r Rank) Name() string {
	switch r {
	case Ace:
		return "Ace"
	case King:
		return "King"
	case Queen:
		return "Queen"
	case Jack:
		return "Jack"
	case Ten:
		return "Ten"
	case Nine:
		return "Nine"
	case Eight:
		return "Eight"
	case Seven:
		return "Seven"
	case Six:
		return "Six"
	case Five:
		return "Five"
	case Four:
		return "Four"
	case Three:
		return "Three"
	case Two:
		return "Deuce"
	}
	return "Unknown"
}

// Card is an immutable playing card. Hidden marks a face-down card.
type Card struct {
	Suit   Suit `json:"suit,omitempty"`
	Rank   Rank `json:"rank,omitempty"`
	Hidden bool `json:"hidden"`
}

// String renders a card in short notation, e.g. "As" or "Td".
func (c Card) String() string {
	return string([]byte{c.Rank.Letter(), c.Suit.Letter()})
}

// Face returns the card with Hidden cleared.
func (c Card) Face() Card {
	c.Hidden = false
	return c
}

// SameFace reports whether two cards have the same suit and rank, ignoring visibility.
func (c Card) SameFace(o Card) bool {
	return c.Suit == o.Suit && c.Rank == o.Rank
}

// ParseCard parses short notation ("As", "Th", "2c"). "10" is accepted for ten.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "10") {
		s = "T" + s[2:]
	}
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	idx := strings.IndexByte(rankLetters, strings.ToUpper(s[:1])[0])
	if idx < 0 {
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}
	var suit Suit
	switch s[1] {
	case 's', 'S':
		suit = Spades
	case 'h', 'H':
		suit = Hearts
	case 'd', 'D':
		suit = Diamonds
	case 'c', 'C':
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	return Card{Suit: suit, Rank: Two + Rank(idx)}, nil
}

// MustParseCards parses a space separated card list and panics on error. Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

package poker

import "github.com/jason-s-yu/holdem/internal/models"

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// NewDeck returns the unshuffled base deck: spades, hearts, diamonds, clubs, each deuce to ace.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, s := range models.Suits {
		for r := models.Two; r <= models.Ace; r++ {
			deck = append(deck, models.Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// validDeck checks that deck is a full permutation of the base deck.
func validDeck(deck []models.Card) bool {
	if len(deck) != DeckSize {
		return false
	}
	seen := make(map[string]bool, DeckSize)
	for _, c := range deck {
		if c.Rank < models.Two || c.Rank > models.Ace || c.Suit.Letter() == '?' {
			return false
		}
		k := c.Face().String()
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

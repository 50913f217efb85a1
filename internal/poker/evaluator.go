package poker

import (
	"fmt"
	"sort"

	"github.com/jason-s-yu/holdem/internal/models"
)

// Category is the class of a five-card poker hand, weakest first.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"High Card",
	"One Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// CategoryWeight separates categories in a score. Tiebreaks pack at most five ranks in base 15,
// which stays below this bound.
const CategoryWeight int64 = 1_000_000

// HandResult is the evaluation of the best five cards out of five to seven.
type HandResult struct {
	Category Category      `json:"category"`
	Score    int64         `json:"score"`
	BestFive []models.Card `json:"bestFive"`
	Name     string        `json:"name"`
}

// Summary converts the result into the form stored on a player.
func (r HandResult) Summary() *models.HandSummary {
	return &models.HandSummary{Name: r.Name, Cards: r.BestFive, Score: r.Score}
}

// Evaluate ranks 5 to 7 cards. A higher Score is a stronger hand and equal scores tie.
func Evaluate(cards []models.Card) (HandResult, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandResult{}, fmt.Errorf("%w: got %d", ErrCardCount, len(cards))
	}

	byRank := make(map[models.Rank][]models.Card, 7)
	bySuit := make(map[models.Suit][]models.Card, 4)
	var rankMask uint16
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		c = c.Face()
		if seen[c.String()] {
			return HandResult{}, fmt.Errorf("duplicate card %s", c)
		}
		seen[c.String()] = true
		byRank[c.Rank] = append(byRank[c.Rank], c)
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
		rankMask |= 1 << uint(c.Rank)
	}

	var flushCards []models.Card
	for _, s := range models.Suits {
		if len(bySuit[s]) >= 5 {
			flushCards = sortDesc(bySuit[s])
		}
	}

	if flushCards != nil {
		var mask uint16
		for _, c := range flushCards {
			mask |= 1 << uint(c.Rank)
		}
		if high := straightHigh(mask); high > 0 {
			five := straightCards(high, groupByRank(flushCards))
			if high == models.Ace {
				return result(RoyalFlush, five, "Royal Flush", int(high)), nil
			}
			return result(StraightFlush, five, fmt.Sprintf("Straight Flush, %s high", high.Name()), int(high)), nil
		}
	}

	// Ranks ordered by multiplicity then rank, highest first.
	groups := make([]models.Rank, 0, len(byRank))
	for r := range byRank {
		groups = append(groups, r)
	}
	sort.Slice(groups, func(i, j int) bool {
		ni, nj := len(byRank[groups[i]]), len(byRank[groups[j]])
		if ni != nj {
			return ni > nj
		}
		return groups[i] > groups[j]
	})
	top := groups[0]
	topCount := len(byRank[top])

	if topCount == 4 {
		kicker := highestExcept(byRank, top)
		five := append(append([]models.Card{}, byRank[top]...), byRank[kicker][0])
		return result(FourOfAKind, five, fmt.Sprintf("Four of a Kind, %ss", plural(top)), int(top), int(kicker)), nil
	}

	if topCount == 3 {
		pairRank := models.Rank(0)
		for _, r := range groups[1:] {
			if len(byRank[r]) >= 2 && r > pairRank {
				pairRank = r
			}
		}
		if pairRank > 0 {
			five := append(append([]models.Card{}, byRank[top]...), byRank[pairRank][:2]...)
			name := fmt.Sprintf("Full House, %ss full of %ss", plural(top), plural(pairRank))
			return result(FullHouse, five, name, int(top), int(pairRank)), nil
		}
	}

	if flushCards != nil {
		five := flushCards[:5]
		return result(Flush, five, fmt.Sprintf("Flush, %s high", five[0].Rank.Name()), ranksOf(five)...), nil
	}

	if high := straightHigh(rankMask); high > 0 {
		five := straightCards(high, byRank)
		return result(Straight, five, fmt.Sprintf("Straight, %s high", high.Name()), int(high)), nil
	}

	if topCount == 3 {
		kickers := kickersExcept(byRank, 2, top)
		five := append([]models.Card{}, byRank[top]...)
		for _, k := range kickers {
			five = append(five, byRank[k][0])
		}
		return result(ThreeOfAKind, five, fmt.Sprintf("Three of a Kind, %ss", plural(top)), int(top), int(kickers[0]), int(kickers[1])), nil
	}

	if topCount == 2 && len(byRank[groups[1]]) == 2 {
		hi, lo := groups[0], groups[1]
		kicker := kickersExcept(byRank, 1, hi, lo)[0]
		five := append(append(append([]models.Card{}, byRank[hi]...), byRank[lo]...), byRank[kicker][0])
		name := fmt.Sprintf("Two Pair, %ss and %ss", plural(hi), plural(lo))
		return result(TwoPair, five, name, int(hi), int(lo), int(kicker)), nil
	}

	if topCount == 2 {
		kickers := kickersExcept(byRank, 3, top)
		five := append([]models.Card{}, byRank[top]...)
		for _, k := range kickers {
			five = append(five, byRank[k][0])
		}
		return result(OnePair, five, fmt.Sprintf("Pair of %ss", plural(top)), int(top), int(kickers[0]), int(kickers[1]), int(kickers[2])), nil
	}

	five := sortDesc(cards)[:5]
	return result(HighCard, five, fmt.Sprintf("High Card, %s", five[0].Rank.Name()), ranksOf(five)...), nil
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 on a tie.
func Compare(a, b HandResult) int {
	switch {
	case a.Score > b.Score:
		return 1
	case a.Score < b.Score:
		return -1
	}
	return 0
}

func result(cat Category, five []models.Card, name string, tiebreak ...int) HandResult {
	var tb int64
	for i := 0; i < 5; i++ {
		tb *= 15
		if i < len(tiebreak) {
			tb += int64(tiebreak[i])
		}
	}
	return HandResult{
		Category: cat,
		Score:    int64(cat)*CategoryWeight + tb,
		BestFive: five,
		Name:     name,
	}
}

// straightHigh returns the top rank of the best straight in mask, or 0. The ace also plays low.
func straightHigh(mask uint16) models.Rank {
	if mask&(1<<uint(models.Ace)) != 0 {
		mask |= 1 << 1
	}
	for high := models.Ace; high >= models.Five; high-- {
		want := uint16(0x1f) << uint(high-4)
		if mask&want == want {
			return high
		}
	}
	return 0
}

func straightCards(high models.Rank, byRank map[models.Rank][]models.Card) []models.Card {
	five := make([]models.Card, 0, 5)
	for r := high; r > high-5; r-- {
		rr := r
		if rr == 1 {
			rr = models.Ace
		}
		five = append(five, byRank[rr][0])
	}
	return five
}

func groupByRank(cards []models.Card) map[models.Rank][]models.Card {
	out := make(map[models.Rank][]models.Card, len(cards))
	for _, c := range cards {
		out[c.Rank] = append(out[c.Rank], c)
	}
	return out
}

func highestExcept(byRank map[models.Rank][]models.Card, skip ...models.Rank) models.Rank {
	k := kickersExcept(byRank, 1, skip...)
	return k[0]
}

// kickersExcept returns the n highest distinct ranks not in skip.
func kickersExcept(byRank map[models.Rank][]models.Card, n int, skip ...models.Rank) []models.Rank {
	out := make([]models.Rank, 0, n)
outer:
	for r := models.Ace; r >= models.Two && len(out) < n; r-- {
		if len(byRank[r]) == 0 {
			continue
		}
		for _, s := range skip {
			if r == s {
				continue outer
			}
		}
		out = append(out, r)
	}
	return out
}

func sortDesc(cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	for i, c := range cards {
		out[i] = c.Face()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank > out[j].Rank })
	return out
}

func ranksOf(cards []models.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c.Rank)
	}
	return out
}

func plural(r models.Rank) string {
	if r == models.Six {
		return "Sixe"
	}
	return r.Name()
}

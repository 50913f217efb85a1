package poker

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/models"
)

// BotNames are the display names handed out to house bots.
var BotNames = []string{
	"Durrrr", "Isildur1", "Phil_Ivey", "KidPoker", "ActionJackson",
	"LooseCannon", "NitBox", "CheckRaise", "RiverRat", "AllInAnyTwo",
	"SolDegen", "WhaleHunter", "GTO_Wizard", "PokerFace", "TiltMaster",
	"CoinFlip", "DeepStack", "SlowPlay", "BluffCatcher", "VegasPro",
}

// Decision is a bot's chosen move.
type Decision struct {
	Action models.ActionType
	Amount float64
}

// PreFlopStrength scores two hole cards on a 5..100 scale.
func PreFlopStrength(a, b models.Card) float64 {
	hi, lo := a.Rank, b.Rank
	if lo > hi {
		hi, lo = lo, hi
	}
	score := highCardPoints(hi)
	if hi == lo {
		score *= 2
	}
	if a.Suit == b.Suit {
		score += 2
	}
	switch gap := hi - lo; {
	case gap == 1:
		score++
	case gap == 2:
		score--
	case gap > 2:
		score -= 2
	}
	return math.Min(100, math.Max(5, score*5))
}

func highCardPoints(r models.Rank) float64 {
	switch r {
	case models.Ace:
		return 10
	case models.King:
		return 8
	case models.Queen:
		return 7
	case models.Jack:
		return 6
	}
	return float64(r) / 2
}

// PostFlopStrength scores a made hand by its category.
func PostFlopStrength(hole, board []models.Card) float64 {
	res, err := Evaluate(append(append([]models.Card{}, hole...), board...))
	if err != nil {
		return 0
	}
	switch {
	case res.Category == RoyalFlush:
		return 100
	case res.Category >= Flush:
		return 95
	case res.Category == Straight:
		return 85
	case res.Category == ThreeOfAKind:
		return 75
	case res.Category == TwoPair:
		return 65
	case res.Category == OnePair:
		return 50
	}
	return math.Min(40, highCardPoints(res.BestFive[0].Rank)*4)
}

// BotDecision picks a legal move for the bot on turn. Stronger hands and later position make it more
// aggressive; rng adds noise and the occasional bluff.
func BotDecision(s *models.TableState, botID uuid.UUID, rng *rand.Rand) Decision {
	p, _ := s.Player(botID)
	if p == nil || len(p.Hand) < 2 {
		return Decision{Action: models.ActionFold}
	}

	var strength float64
	if len(s.CommunityCards) == 0 {
		strength = PreFlopStrength(p.Hand[0], p.Hand[1])
	} else {
		strength = PostFlopStrength(p.Hand, s.CommunityCards)
	}
	strength += rng.Float64()*10 - 5

	relPos := 0.0
	live := s.Contenders()
	for i, o := range live {
		if o.ID == botID {
			relPos = float64(i) / float64(len(live))
		}
	}
	foldBelow := 40 - relPos*5
	raiseAbove := 70 - relPos*10

	toCall := Money(s.MinBetToCall - p.CurrentBet)
	stackTotal := Money(p.CurrentBet + p.ChipBalance)
	minRaise := Money(s.MinBetToCall + s.LastRaiseDelta)
	raise := func(target float64) Decision {
		target = Money(math.Max(target, minRaise))
		if target >= stackTotal {
			return Decision{Action: models.ActionAllIn}
		}
		return Decision{Action: models.ActionRaise, Amount: target}
	}
	canRaise := stackTotal > s.MinBetToCall

	roll := rng.Float64()
	if toCall <= 0 {
		if strength > 90 && roll < 0.5 {
			return Decision{Action: models.ActionCheck}
		}
		if canRaise && (strength > raiseAbove || roll > 0.9) {
			return raise(s.BigBlind * 3)
		}
		return Decision{Action: models.ActionCheck}
	}

	switch {
	case strength < foldBelow:
		if canRaise && len(s.CommunityCards) == 0 && roll > 0.95 {
			return raise(s.MinBetToCall * 2.5)
		}
		return Decision{Action: models.ActionFold}
	case strength > raiseAbove && canRaise:
		return raise(s.MinBetToCall * 2.5)
	}
	return Decision{Action: models.ActionCall}
}

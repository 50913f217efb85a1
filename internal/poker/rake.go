package poker

import (
	"math"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/models"
)

// VIPTier is a rake schedule unlocked by lifetime hands played.
type VIPTier struct {
	Name     string  `json:"name"`
	MinHands int     `json:"minHands"`
	Rate     float64 `json:"rate"`
	Cap      float64 `json:"cap"`
}

// VIPTiers is ordered by MinHands ascending.
var VIPTiers = []VIPTier{
	{Name: "Fish", MinHands: 0, Rate: 0.05, Cap: 5.00},
	{Name: "Grinder", MinHands: 1000, Rate: 0.045, Cap: 4.50},
	{Name: "Shark", MinHands: 5000, Rate: 0.04, Cap: 4.00},
	{Name: "High Roller", MinHands: 20000, Rate: 0.035, Cap: 3.50},
	{Name: "Legend", MinHands: 100000, Rate: 0.03, Cap: 3.00},
}

// VIPTierFor returns the highest tier whose threshold hands has reached.
func VIPTierFor(hands int) VIPTier {
	tier := VIPTiers[0]
	for _, t := range VIPTiers {
		if hands >= t.MinHands {
			tier = t
		}
	}
	return tier
}

// CalculateRake returns min(pot*rate, cap) in cash mode and zero otherwise.
func CalculateRake(pot float64, tier VIPTier, mode models.GameMode) float64 {
	if mode != models.ModeCash || pot <= 0 {
		return 0
	}
	return Money(math.Min(pot*tier.Rate, tier.Cap))
}

const (
	JackpotShare    = 0.05
	GlobalPoolShare = 0.05
)

// RakeSplit is where one hand's rake goes. The four parts sum to the rake exactly.
type RakeSplit struct {
	Jackpot    float64 `json:"jackpot"`
	GlobalPool float64 `json:"globalPool"`
	Referral   float64 `json:"referral"`
	Operator   float64 `json:"operator"`
}

// DistributeRake carves the pool shares and the referral total out of rake. The operator keeps the
// remainder. referralTotal is clamped to what is left after the pools.
func DistributeRake(rake, referralTotal float64) RakeSplit {
	total := toCents(rake)
	if total <= 0 {
		return RakeSplit{}
	}
	jackpot := toCents(Money(rake * JackpotShare))
	global := toCents(Money(rake * GlobalPoolShare))
	left := total - jackpot - global
	ref := toCents(referralTotal)
	if ref < 0 {
		ref = 0
	}
	if ref > left {
		ref = left
	}
	return RakeSplit{
		Jackpot:    fromCents(jackpot),
		GlobalPool: fromCents(global),
		Referral:   fromCents(ref),
		Operator:   fromCents(left - ref),
	}
}

// ReferralPercent is the override share of rake a referrer of this rank is entitled to.
func ReferralPercent(rank models.ReferralRank) float64 {
	switch rank {
	case models.RankAgent:
		return 20
	case models.RankBroker:
		return 35
	case models.RankPartner:
		return 50
	case models.RankMaster:
		return 60
	}
	return 0
}

// MaxReferralDepth bounds how far up a referral chain overrides are paid.
const MaxReferralDepth = 20

// Override is one referral payout.
type Override struct {
	UserID  uuid.UUID `json:"userId"`
	Percent float64   `json:"percent"`
	Amount  float64   `json:"amount"`
}

// ReferralOverrides walks chain from the direct referrer upward. The direct referrer earns its full
// percent; each ancestor earns only the part of its percent above the highest already paid.
// Repeated ids end the walk.
func ReferralOverrides(rake float64, chain []models.Referrer) []Override {
	if rake <= 0 {
		return nil
	}
	var out []Override
	seen := make(map[uuid.UUID]bool, len(chain))
	highest := 0.0
	for depth, ref := range chain {
		if depth >= MaxReferralDepth || seen[ref.UserID] {
			break
		}
		seen[ref.UserID] = true
		pct := ReferralPercent(ref.Rank)
		diff := pct - highest
		if diff <= 0 {
			continue
		}
		highest = pct
		amount := Money(rake * diff / 100)
		if amount <= 0 {
			continue
		}
		out = append(out, Override{UserID: ref.UserID, Percent: diff, Amount: amount})
	}
	return out
}

// OverrideTotal sums the override amounts.
func OverrideTotal(overrides []Override) float64 {
	var c int64
	for _, o := range overrides {
		c += toCents(o.Amount)
	}
	return fromCents(c)
}

package models

import "github.com/google/uuid"

// ReferralRank is a user's rank in the referral program.
type ReferralRank string

const (
	RankFree    ReferralRank = "FREE"
	RankAgent   ReferralRank = "AGENT"
	RankBroker  ReferralRank = "BROKER"
	RankPartner ReferralRank = "PARTNER"
	RankMaster  ReferralRank = "MASTER"
)

// User is a ledger account.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Balance  float64   `json:"balance"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	TotalHands    int     `json:"total_hands"`
	TotalWinnings float64 `json:"total_winnings"`

	ReferralRank ReferralRank `json:"referral_rank"`
	ReferredBy   uuid.UUID    `json:"referred_by"`
	// ReferralEarnings is the lifetime override income, used as partner activity.
	ReferralEarnings float64 `json:"referral_earnings"`
}

// Referrer is one ancestor in a referral chain, nearest first.
type Referrer struct {
	UserID uuid.UUID    `json:"user_id"`
	Rank   ReferralRank `json:"rank"`
}

// PartnerActivity feeds the global partner pool split.
type PartnerActivity struct {
	UserID   uuid.UUID `json:"user_id"`
	Activity float64   `json:"activity"`
}

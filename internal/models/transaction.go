package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType labels a ledger movement.
type TransactionType string

const (
	TxWelcomeBonus     TransactionType = "WELCOME_BONUS"
	TxGameBuyIn        TransactionType = "GAME_BUYIN"
	TxGameRebuy        TransactionType = "GAME_REBUY"
	TxGameCashout      TransactionType = "GAME_CASHOUT"
	TxGameWin          TransactionType = "GAME_WIN"
	TxRakeOperator     TransactionType = "RAKE_OPERATOR"
	TxReferralOverride TransactionType = "REFERRAL_OVERRIDE"
	TxGlobalPoolShare  TransactionType = "GLOBAL_POOL_SHARE"
	TxJackpotTopPlayer TransactionType = "JACKPOT_TOP_PLAYER"
	TxJackpotTopEarner TransactionType = "JACKPOT_TOP_EARNER"
	TxJackpotLucky     TransactionType = "JACKPOT_LUCKY_DRAW"
)

// Transaction is an append-only ledger record. HandID is uuid.Nil when the movement is not tied to a hand.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      TransactionType `json:"type"`
	Amount    float64         `json:"amount"`
	HandID    uuid.UUID       `json:"hand_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// PoolBalances are the two communal rake pools.
type PoolBalances struct {
	GlobalPartnerPool  float64 `json:"globalPartnerPool"`
	MonthlyJackpotPool float64 `json:"monthlyJackpotPool"`
}

// HandRecord is the hand-history entry queued for the historian.
type HandRecord struct {
	HandID         uuid.UUID       `json:"hand_id"`
	TableID        string          `json:"table_id"`
	HandNumber     int             `json:"hand_number"`
	Mode           GameMode        `json:"mode"`
	CommunityCards []Card          `json:"community_cards"`
	Winners        []Winner        `json:"winners"`
	SidePots       []SidePot       `json:"side_pots"`
	Rake           float64         `json:"rake"`
	Fairness       *FairnessReveal `json:"fairness"`
	Timestamp      int64           `json:"timestamp"`
}

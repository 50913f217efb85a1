// Package ledger holds the account errors shared by every ledger backend and an in-memory backend
// used for local runs and tests.
package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUserNotFound is returned for operations on an unknown account.
	ErrUserNotFound = errors.New("user not found")
)

// DefaultWelcomeBalance is credited to every new account.
const DefaultWelcomeBalance = 10000.0

// MaxReferralDepth bounds referral chain walks.
const MaxReferralDepth = 20

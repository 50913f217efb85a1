package poker

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is the root of every rejected betting move. Callers match it with errors.Is.
var ErrInvalidAction = errors.New("invalid action")

var (
	ErrNotYourTurn      = fmt.Errorf("%w: not your turn", ErrInvalidAction)
	ErrCannotCheck      = fmt.Errorf("%w: cannot check facing a bet", ErrInvalidAction)
	ErrNothingToCall    = fmt.Errorf("%w: nothing to call", ErrInvalidAction)
	ErrRaiseTooSmall    = fmt.Errorf("%w: raise below minimum", ErrInvalidAction)
	ErrUnknownAction    = fmt.Errorf("%w: unknown action", ErrInvalidAction)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrInvalidAction)
	ErrHandInProgress   = fmt.Errorf("%w: hand in progress", ErrInvalidAction)
	ErrNoHandInProgress = fmt.Errorf("%w: no hand in progress", ErrInvalidAction)
	ErrRoundOpen        = fmt.Errorf("%w: betting round still open", ErrInvalidAction)
)

var (
	ErrTableFull        = errors.New("table is full")
	ErrSeatTaken        = errors.New("seat is taken")
	ErrAlreadySeated    = errors.New("player already seated")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNonceReused      = errors.New("fairness nonce must increase")
	ErrInvalidDeck      = errors.New("deck must hold 52 unique cards")
	ErrDeckExhausted    = errors.New("deck exhausted")
	ErrCorruptState     = errors.New("corrupt table state")
	ErrCardCount        = errors.New("hand evaluation needs 5 to 7 cards")
)

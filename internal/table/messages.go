package table

import (
	"context"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/models"
)

type messageKind int

const (
	msgJoin messageKind = iota
	msgSit
	msgAction
	msgLeave
	msgDisconnect
	msgSitOut
	msgRebuy
	msgClientSeed
	msgAddBots
	msgRemoveBot
	msgSnapshot
	msgClose

	// deferred, enqueued by timers
	msgDeal
	msgBotTurn
)

func (k messageKind) String() string {
	switch k {
	case msgJoin:
		return "join"
	case msgSit:
		return "sit"
	case msgAction:
		return "action"
	case msgLeave:
		return "leave"
	case msgDisconnect:
		return "disconnect"
	case msgSitOut:
		return "sit_out"
	case msgRebuy:
		return "rebuy"
	case msgClientSeed:
		return "client_seed"
	case msgAddBots:
		return "add_bots"
	case msgRemoveBot:
		return "remove_bot"
	case msgSnapshot:
		return "snapshot"
	case msgClose:
		return "close"
	case msgDeal:
		return "deal"
	case msgBotTurn:
		return "bot_turn"
	}
	return "unknown"
}

// message is the single input type of a host loop. Only the fields relevant to kind are set.
type message struct {
	kind    messageKind
	ctx     context.Context
	session uuid.UUID
	user    uuid.UUID
	name    string
	seat    int
	amount  float64
	action  models.ActionType
	text    string
	count   int

	seq  uint64
	turn turnKey

	reply chan reply
}

type reply struct {
	state *models.TableState
	err   error
}

// turnKey identifies one turn instance. A player can only be asked twice in the same street after
// the pot has grown, so the key never repeats within a hand.
type turnKey struct {
	hand   int
	phase  models.Phase
	player uuid.UUID
	pot    float64
}

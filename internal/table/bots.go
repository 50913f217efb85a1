package table

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

func (h *Host) botBuyIn() float64 {
	return poker.Money(botBuyInBigBlinds * h.state.BigBlind)
}

// botName picks an unused name from the roster, starting at a random offset.
func (h *Host) botName(s *models.TableState) string {
	used := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		used[p.DisplayName] = true
	}
	start := h.rng.Intn(len(poker.BotNames))
	for i := range poker.BotNames {
		name := poker.BotNames[(start+i)%len(poker.BotNames)]
		if !used[name] {
			return name
		}
	}
	return fmt.Sprintf("%s %d", poker.BotNames[start], len(s.Players)+1)
}

func (h *Host) handleAddBots(ctx context.Context, m message) reply {
	next := h.state
	added := 0
	for i := 0; i < m.count && len(next.Players) < next.MaxSeats; i++ {
		id := uuid.New()
		seated, err := poker.SeatPlayer(next, poker.PlayerSpec{
			ID:          id,
			DisplayName: h.botName(next),
			BuyIn:       h.botBuyIn(),
			Seat:        poker.AnySeat,
			IsBot:       true,
		})
		if err != nil {
			break
		}
		h.bots[id] = true
		next = seated
		added++
	}
	if added == 0 {
		return reply{err: poker.ErrTableFull}
	}
	h.log.WithField("count", added).Info("added bots")
	h.apply(ctx, next)
	return reply{}
}

// handleRemoveBot removes a bot, preferring one that is not contending the current hand.
func (h *Host) handleRemoveBot(ctx context.Context) reply {
	var pick *models.Player
	for i := len(h.state.Players) - 1; i >= 0; i-- {
		p := h.state.Players[i]
		if !p.IsBot {
			continue
		}
		if pick == nil || (pick.InHand() && !p.InHand()) {
			pick = p
		}
	}
	if pick == nil {
		return reply{err: ErrNoBots}
	}
	next, _, err := poker.RemovePlayer(h.state, pick.ID)
	if err != nil {
		return reply{err: err}
	}
	delete(h.bots, pick.ID)
	h.log.WithField("bot", pick.DisplayName).Info("removed bot")
	h.apply(ctx, next)
	return reply{}
}

// topUpBots rebuys short bots back to the standard buy-in before a deal. Bots play house chips and
// have no wallet.
func (h *Host) topUpBots(s *models.TableState) *models.TableState {
	next := s
	floor := poker.Money(botTopUpBigBlinds * s.BigBlind)
	for _, p := range s.Players {
		if !p.IsBot || p.Status == models.StatusSittingOut || p.SitOutNextHand || p.ChipBalance >= floor {
			continue
		}
		topped, err := poker.Rebuy(next, p.ID, h.botBuyIn()-p.ChipBalance)
		if err != nil {
			h.log.WithError(err).WithField("bot", p.DisplayName).Warn("failed to top up bot")
			continue
		}
		next = topped
	}
	return next
}

func (h *Host) currentTurn() turnKey {
	s := h.state
	return turnKey{hand: s.HandNumber, phase: s.Phase, player: s.CurrentTurnPlayerID, pot: s.Pot}
}

// scheduleBot arms a think timer when a bot holds the turn. Each turn instance is armed once.
func (h *Host) scheduleBot() {
	s := h.state
	if !s.HandActive || s.CurrentTurnPlayerID == uuid.Nil {
		return
	}
	p, _ := s.Player(s.CurrentTurnPlayerID)
	if p == nil || !p.IsBot || !p.IsTurn {
		return
	}
	key := h.currentTurn()
	if key == h.botTurn {
		return
	}
	h.botTurn = key
	h.after(h.deps.Speed.Scale(h.deps.Delays.botThink(h.rng)), message{kind: msgBotTurn, turn: key})
}

func (h *Host) handleBotTurn(ctx context.Context, m message) {
	if m.turn != h.botTurn || m.turn != h.currentTurn() {
		return
	}
	d := poker.BotDecision(h.state, m.turn.player, h.rng)
	next, err := poker.HandleAction(h.state, m.turn.player, d.Action, d.Amount)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"bot":    m.turn.player,
			"action": d.Action,
			"amount": d.Amount,
		}).Warn("bot decision rejected, folding")
		next, err = poker.HandleAction(h.state, m.turn.player, models.ActionFold, 0)
		if err != nil {
			h.log.WithError(err).Error("bot fold rejected")
			return
		}
	}
	h.apply(ctx, next)
}

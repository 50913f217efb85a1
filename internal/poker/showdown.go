package poker

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/models"
)

// DetermineWinner settles the hand: contenders' cards are revealed, side pots are built and each
// is paid to its best eligible hands. Rake comes out of the main pot in cash mode only.
func DetermineWinner(s *models.TableState) (*models.TableState, error) {
	if !s.HandActive {
		return s, ErrNoHandInProgress
	}
	next, err := settle(s.Clone())
	if err != nil {
		return s, err
	}
	return next, nil
}

func settle(next *models.TableState) (*models.TableState, error) {
	contenders := next.Contenders()
	switch len(contenders) {
	case 0:
		return nil, fmt.Errorf("%w: no contenders at showdown", ErrCorruptState)
	case 1:
		awardUncontested(next, contenders[0])
		return next, nil
	}

	results := make(map[uuid.UUID]HandResult, len(contenders))
	for _, p := range contenders {
		for i := range p.Hand {
			p.Hand[i].Hidden = false
		}
		cards := append(append([]models.Card{}, p.Hand...), next.CommunityCards...)
		res, err := Evaluate(cards)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", p.DisplayName, err)
		}
		results[p.ID] = res
		p.BestHand = res.Summary()
	}

	pots := BuildSidePots(next)
	inOrder := seatOrderFrom(next.Players, next.DealerSeatIndex, func(p *models.Player) bool { return p.InHand() })
	payouts := make(map[uuid.UUID]int64, len(contenders))
	var rakeCents int64

	for i, pot := range pots {
		eligible := make(map[uuid.UUID]bool, len(pot.EligiblePlayerIDs))
		for _, id := range pot.EligiblePlayerIDs {
			eligible[id] = true
		}
		var best int64 = -1
		var winners []*models.Player
		for _, p := range inOrder {
			if !eligible[p.ID] {
				continue
			}
			switch sc := results[p.ID].Score; {
			case sc > best:
				best = sc
				winners = []*models.Player{p}
			case sc == best:
				winners = append(winners, p)
			}
		}
		if len(winners) == 0 {
			continue
		}

		cents := toCents(pot.Amount)
		if i == 0 && next.Mode == models.ModeCash {
			tier := VIPTierFor(winners[0].HandsPlayed)
			rakeCents = toCents(CalculateRake(pot.Amount, tier, next.Mode))
			cents -= rakeCents
		}
		share := cents / int64(len(winners))
		odd := cents % int64(len(winners))
		for j, w := range winners {
			amt := share
			if int64(j) < odd {
				amt++
			}
			payouts[w.ID] += amt
		}
	}

	var winners []models.Winner
	for _, p := range inOrder {
		c, ok := payouts[p.ID]
		if !ok {
			continue
		}
		p.ChipBalance = Money(p.ChipBalance + fromCents(c))
		res := results[p.ID]
		winners = append(winners, models.Winner{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Amount:      fromCents(c),
			HandName:    res.Name,
			Cards:       res.BestFive,
		})
	}
	sort.SliceStable(winners, func(i, j int) bool { return winners[i].Amount > winners[j].Amount })

	next.Winners = winners
	next.SidePots = pots
	next.Rake = fromCents(rakeCents)
	if len(winners) > 0 {
		next.LastLog = fmt.Sprintf("%s wins %.2f with %s", winners[0].DisplayName, winners[0].Amount, winners[0].HandName)
	}
	finishHand(next)
	return next, nil
}

// awardUncontested pays the whole pot, unraked, to the last player standing.
func awardUncontested(s *models.TableState, w *models.Player) {
	amount := s.Pot
	w.ChipBalance = Money(w.ChipBalance + amount)
	s.Winners = []models.Winner{{PlayerID: w.ID, DisplayName: w.DisplayName, Amount: amount}}
	s.SidePots = []models.SidePot{{Amount: amount, EligiblePlayerIDs: []uuid.UUID{w.ID}}}
	s.Rake = 0
	s.LastLog = fmt.Sprintf("%s wins %.2f uncontested", w.DisplayName, amount)
	finishHand(s)
}

func finishHand(s *models.TableState) {
	s.Pot = 0
	s.Phase = models.PhaseShowdown
	s.HandActive = false
	s.CurrentTurnPlayerID = uuid.Nil
	s.MinBetToCall = 0
	s.LastAggressorID = uuid.Nil
	s.DeadMoney = nil
	for _, p := range s.Players {
		p.IsTurn = false
		p.CurrentBet = 0
		p.TotalBetThisHand = 0
		p.ActedThisRound = false
		switch {
		case p.ChipBalance <= 0 && p.InHand():
			p.ChipBalance = 0
			p.Status = models.StatusEliminated
		case p.Status == models.StatusAllIn:
			p.Status = models.StatusActive
		}
	}
}

// BuildSidePots splits the pot by the contenders' total contributions. Chips from folded or departed
// players count toward every level they reached, and anything above the largest contender level
// joins the top pot.
func BuildSidePots(s *models.TableState) []models.SidePot {
	type contrib struct {
		id        uuid.UUID
		cents     int64
		contender bool
	}
	var all []contrib
	levelSet := map[int64]bool{}
	for _, p := range s.Players {
		c := toCents(p.TotalBetThisHand)
		if c <= 0 {
			continue
		}
		all = append(all, contrib{id: p.ID, cents: c, contender: p.InHand()})
		if p.InHand() {
			levelSet[c] = true
		}
	}
	for _, d := range s.DeadMoney {
		if c := toCents(d.Amount); c > 0 {
			all = append(all, contrib{id: d.PlayerID, cents: c})
		}
	}
	if len(levelSet) == 0 {
		return nil
	}
	levels := make([]int64, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []models.SidePot
	var prev int64
	for _, level := range levels {
		var amount int64
		var eligible []uuid.UUID
		for _, c := range all {
			if c.cents > prev {
				amount += min(c.cents, level) - prev
			}
			if c.contender && c.cents >= level {
				eligible = append(eligible, c.id)
			}
		}
		if amount > 0 {
			pots = append(pots, models.SidePot{Amount: fromCents(amount), EligiblePlayerIDs: eligible})
		}
		prev = level
	}
	var leftover int64
	for _, c := range all {
		if c.cents > prev {
			leftover += c.cents - prev
		}
	}
	if leftover > 0 && len(pots) > 0 {
		top := &pots[len(pots)-1]
		top.Amount = fromCents(toCents(top.Amount) + leftover)
	}
	return pots
}

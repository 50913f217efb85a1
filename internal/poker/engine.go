package poker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/models"
)

// AnySeat asks SeatPlayer for the lowest free seat.
const AnySeat = -1

// PlayerSpec describes a player joining a table.
type PlayerSpec struct {
	ID          uuid.UUID
	DisplayName string
	BuyIn       float64
	Seat        int
	IsBot       bool
	HandsPlayed int
}

// Initialize returns an empty table. Tables have 6 seats unless 9 are requested.
func Initialize(tableID string, maxSeats int, smallBlind, bigBlind float64, mode models.GameMode) *models.TableState {
	if maxSeats != 9 {
		maxSeats = 6
	}
	if mode != models.ModePractice {
		mode = models.ModeCash
	}
	bb := Money(bigBlind)
	return &models.TableState{
		TableID:         tableID,
		MaxSeats:        maxSeats,
		Mode:            mode,
		Players:         []*models.Player{},
		CommunityCards:  []models.Card{},
		Phase:           models.PhasePreFlop,
		DealerSeatIndex: -1,
		SmallBlind:      Money(smallBlind),
		BigBlind:        bb,
		MinBetToCall:    bb,
		LastRaiseDelta:  bb,
	}
}

// SeatPlayer places a new player at the requested seat or, if that is unavailable, the lowest free
// seat. A player joining during a hand sits folded until the next deal.
func SeatPlayer(s *models.TableState, spec PlayerSpec) (*models.TableState, error) {
	if p, _ := s.Player(spec.ID); p != nil {
		return s, ErrAlreadySeated
	}
	if len(s.Players) >= s.MaxSeats {
		return s, ErrTableFull
	}
	if !finite(spec.BuyIn) || spec.BuyIn <= 0 {
		return s, ErrInvalidAmount
	}

	seat := -1
	if spec.Seat >= 0 && spec.Seat < s.MaxSeats && s.PlayerAtSeat(spec.Seat) == nil {
		seat = spec.Seat
	}
	for i := 0; seat < 0 && i < s.MaxSeats; i++ {
		if s.PlayerAtSeat(i) == nil {
			seat = i
		}
	}
	if seat < 0 {
		return s, ErrTableFull
	}

	status := models.StatusActive
	if s.HandActive {
		status = models.StatusFolded
	}
	next := s.Clone()
	next.Players = append(next.Players, &models.Player{
		ID:          spec.ID,
		DisplayName: spec.DisplayName,
		IsBot:       spec.IsBot,
		ChipBalance: Money(spec.BuyIn),
		Hand:        []models.Card{},
		Status:      status,
		SeatIndex:   seat,
		HandsPlayed: spec.HandsPlayed,
	})
	sortBySeat(next.Players)
	next.LastLog = fmt.Sprintf("%s sat down in seat %d", spec.DisplayName, seat+1)
	return next, nil
}

// DealHand starts a hand from a shuffled deck. It rotates the button, posts blinds, deals two hole
// cards per eligible player and opens pre-flop betting.
func DealHand(s *models.TableState, deck []models.Card, fairness models.FairnessRecord) (*models.TableState, error) {
	if s.HandActive {
		return s, ErrHandInProgress
	}
	if s.HandNumber > 0 && fairness.Nonce <= s.Fairness.Nonce {
		return s, ErrNonceReused
	}
	if !validDeck(deck) {
		return s, ErrInvalidDeck
	}

	next := s.Clone()
	if len(next.Winners) > 0 {
		next.LastHand = &models.HandArchive{
			HandNumber:     next.HandNumber,
			CommunityCards: append([]models.Card(nil), next.CommunityCards...),
			Winners:        append([]models.Winner(nil), next.Winners...),
		}
	}

	dealt := 0
	for _, p := range next.Players {
		resetForHand(p)
		if p.SitOutNextHand {
			p.Status = models.StatusSittingOut
			p.SitOutNextHand = false
		}
		switch {
		case p.Status == models.StatusSittingOut || p.Status == models.StatusEliminated:
		case p.ChipBalance > 0:
			p.Status = models.StatusActive
			dealt++
		default:
			p.Status = models.StatusSittingOut
		}
	}
	if dealt < 2 {
		return s, ErrNotEnoughPlayers
	}

	isActive := func(p *models.Player) bool { return p.Status == models.StatusActive }
	dealer := nextAfter(next.Players, next.DealerSeatIndex, isActive)
	dealer.IsDealer = true
	next.DealerSeatIndex = dealer.SeatIndex

	var sb, bb, first *models.Player
	if dealt == 2 {
		sb = dealer
		bb = nextAfter(next.Players, sb.SeatIndex, isActive)
		first = sb
	} else {
		sb = nextAfter(next.Players, dealer.SeatIndex, isActive)
		bb = nextAfter(next.Players, sb.SeatIndex, isActive)
		first = nextAfter(next.Players, bb.SeatIndex, isActive)
	}

	next.Deck = append([]models.Card(nil), deck...)
	next.CommunityCards = []models.Card{}
	next.Pot = 0
	next.DeadMoney = nil
	next.Winners = nil
	next.SidePots = nil
	next.Rake = 0
	next.Phase = models.PhasePreFlop
	next.HandActive = true
	next.HandNumber++
	next.Fairness = fairness
	if s.HandNumber > 0 && s.Fairness.ServerSecret != "" &&
		(s.PreviousFairness == nil || s.PreviousFairness.Nonce != s.Fairness.Nonce) {
		next.PreviousFairness = s.Fairness.Reveal(nil)
	}

	// Hole cards go round the table twice starting left of the button.
	order := seatOrderFrom(next.Players, dealer.SeatIndex, isActive)
	for round := 0; round < 2; round++ {
		for _, p := range order {
			c := next.Deck[0]
			next.Deck = next.Deck[1:]
			c.Hidden = true
			p.Hand = append(p.Hand, c)
		}
	}
	for _, p := range order {
		p.HandsPlayed++
	}

	postBlind(next, sb, next.SmallBlind, models.ActionSmallBlind)
	postBlind(next, bb, next.BigBlind, models.ActionBigBlind)
	next.MinBetToCall = next.BigBlind
	next.LastRaiseDelta = next.BigBlind
	next.LastAggressorID = bb.ID
	next.CurrentTurnPlayerID = uuid.Nil
	next.LastLog = fmt.Sprintf("Hand #%d dealt, %s has the button", next.HandNumber, dealer.DisplayName)

	openAction(next, first.SeatIndex, true)
	return next, nil
}

// HandleAction applies a betting move by the player whose turn it is. For a raise, amount is the
// total the player's street bet is raised to.
func HandleAction(s *models.TableState, playerID uuid.UUID, action models.ActionType, amount float64) (*models.TableState, error) {
	p, _ := s.Player(playerID)
	if p == nil {
		return s, ErrPlayerNotFound
	}
	if !s.HandActive || s.CurrentTurnPlayerID != playerID || !p.IsTurn {
		return s, ErrNotYourTurn
	}

	next := s.Clone()
	p, _ = next.Player(playerID)
	toCall := Money(next.MinBetToCall - p.CurrentBet)
	stackTotal := Money(p.CurrentBet + p.ChipBalance)

	switch action {
	case models.ActionFold:
		p.Status = models.StatusFolded
		next.LastLog = fmt.Sprintf("%s folds", p.DisplayName)

	case models.ActionCheck:
		if toCall > 0 {
			return s, ErrCannotCheck
		}
		next.LastLog = fmt.Sprintf("%s checks", p.DisplayName)

	case models.ActionCall:
		if toCall <= 0 {
			return s, ErrNothingToCall
		}
		commit(next, p, toCall)
		next.LastLog = fmt.Sprintf("%s calls %.2f", p.DisplayName, p.CurrentBet)

	case models.ActionAllIn:
		if p.ChipBalance <= 0 {
			return s, ErrInvalidAmount
		}
		if stackTotal <= next.MinBetToCall {
			commit(next, p, p.ChipBalance)
			next.LastLog = fmt.Sprintf("%s calls all-in for %.2f", p.DisplayName, p.CurrentBet)
		} else {
			raiseTo(next, p, stackTotal)
			next.LastLog = fmt.Sprintf("%s goes all-in to %.2f", p.DisplayName, p.CurrentBet)
		}

	case models.ActionRaise:
		target := Money(amount)
		if !finite(amount) || target <= 0 {
			return s, ErrInvalidAmount
		}
		if target > stackTotal {
			target = stackTotal
		}
		if target <= next.MinBetToCall {
			return s, ErrRaiseTooSmall
		}
		if target < Money(next.MinBetToCall+next.LastRaiseDelta) && target < stackTotal {
			return s, ErrRaiseTooSmall
		}
		raiseTo(next, p, target)
		next.LastLog = fmt.Sprintf("%s raises to %.2f", p.DisplayName, p.CurrentBet)

	default:
		return s, ErrUnknownAction
	}

	p.IsTurn = false
	p.ActedThisRound = true
	p.LastAction = action
	if p.Status == models.StatusAllIn && action != models.ActionFold {
		p.LastAction = models.ActionAllIn
	}

	if contenders := next.Contenders(); len(contenders) == 1 {
		awardUncontested(next, contenders[0])
		return next, nil
	}
	openAction(next, p.SeatIndex, false)
	return next, nil
}

// AdvancePhase moves a hand whose betting round has closed to the next street. When fewer than two
// players can still bet, it keeps dealing through to showdown.
func AdvancePhase(s *models.TableState) (*models.TableState, error) {
	if !s.HandActive {
		return s, ErrNoHandInProgress
	}
	if !s.RoundClosed() {
		return s, ErrRoundOpen
	}
	next, err := advance(s.Clone())
	if err != nil {
		return s, err
	}
	return next, nil
}

func advance(next *models.TableState) (*models.TableState, error) {
	var deal int
	var phase models.Phase
	switch next.Phase {
	case models.PhasePreFlop:
		deal, phase = 3, models.PhaseFlop
	case models.PhaseFlop:
		deal, phase = 1, models.PhaseTurn
	case models.PhaseTurn:
		deal, phase = 1, models.PhaseRiver
	case models.PhaseRiver:
		return settle(next)
	default:
		return nil, fmt.Errorf("%w: advance from %s", ErrCorruptState, next.Phase)
	}

	if len(next.Deck) < deal+1 {
		return nil, ErrDeckExhausted
	}
	next.Deck = next.Deck[1:]
	for i := 0; i < deal; i++ {
		next.CommunityCards = append(next.CommunityCards, next.Deck[0].Face())
		next.Deck = next.Deck[1:]
	}
	next.Phase = phase

	for _, p := range next.Players {
		p.CurrentBet = 0
		p.ActedThisRound = false
		p.IsTurn = false
		if p.Status == models.StatusActive {
			p.LastAction = ""
		}
	}
	next.MinBetToCall = 0
	next.LastRaiseDelta = next.BigBlind
	next.LastAggressorID = uuid.Nil
	next.CurrentTurnPlayerID = uuid.Nil
	next.LastLog = fmt.Sprintf("Dealing the %s", phase)

	if next.CountStatus(models.StatusActive) < 2 {
		return advance(next)
	}
	openAction(next, next.DealerSeatIndex, false)
	return next, nil
}

// ToggleSitOut flips a player's sit-out flag with the in-hand rules applied.
func ToggleSitOut(s *models.TableState, playerID uuid.UUID) (*models.TableState, error) {
	p, _ := s.Player(playerID)
	if p == nil {
		return s, ErrPlayerNotFound
	}

	if s.HandActive && p.Status == models.StatusActive && p.IsTurn {
		next, err := HandleAction(s, playerID, models.ActionFold, 0)
		if err != nil {
			return s, err
		}
		np, _ := next.Player(playerID)
		np.Status = models.StatusSittingOut
		next.LastLog = fmt.Sprintf("%s sits out", np.DisplayName)
		return next, nil
	}

	next := s.Clone()
	np, _ := next.Player(playerID)
	switch {
	case np.Status == models.StatusSittingOut:
		np.SitOutNextHand = false
		np.Status = models.StatusFolded
		if !next.HandActive {
			np.Status = models.StatusActive
		}
		next.LastLog = fmt.Sprintf("%s is back", np.DisplayName)
	case np.Status == models.StatusAllIn:
		np.SitOutNextHand = !np.SitOutNextHand
		next.LastLog = fmt.Sprintf("%s will sit out after this hand", np.DisplayName)
	case np.Status == models.StatusActive && next.HandActive:
		np.Status = models.StatusSittingOut
		np.Hand = []models.Card{}
		next.LastLog = fmt.Sprintf("%s sits out", np.DisplayName)
		if contenders := next.Contenders(); len(contenders) == 1 {
			awardUncontested(next, contenders[0])
		}
		recheckRound(next)
	default:
		np.Status = models.StatusSittingOut
		next.LastLog = fmt.Sprintf("%s sits out", np.DisplayName)
	}
	return next, nil
}

// RemovePlayer takes a player off the table, folding any live hand first, and returns the stack to
// be credited back. Chips already in the pot stay there.
func RemovePlayer(s *models.TableState, playerID uuid.UUID) (*models.TableState, float64, error) {
	p, _ := s.Player(playerID)
	if p == nil {
		return s, 0, ErrPlayerNotFound
	}

	var next *models.TableState
	if s.HandActive && p.Status == models.StatusActive && p.IsTurn {
		folded, err := HandleAction(s, playerID, models.ActionFold, 0)
		if err != nil {
			return s, 0, err
		}
		next = folded
	} else {
		next = s.Clone()
		if np, _ := next.Player(playerID); next.HandActive && np.InHand() {
			np.Status = models.StatusFolded
			if contenders := next.Contenders(); len(contenders) == 1 {
				awardUncontested(next, contenders[0])
			}
		}
	}

	np, idx := next.Player(playerID)
	if next.HandActive && np.TotalBetThisHand > 0 {
		next.DeadMoney = append(next.DeadMoney, models.Contribution{PlayerID: np.ID, Amount: np.TotalBetThisHand})
	}
	stack := np.ChipBalance
	next.Players = append(next.Players[:idx], next.Players[idx+1:]...)
	next.LastLog = fmt.Sprintf("%s left the table", np.DisplayName)

	recheckRound(next)
	return next, stack, nil
}

// Rebuy adds chips to a player who is not contending a hand. A busted player is dealt in again.
func Rebuy(s *models.TableState, playerID uuid.UUID, amount float64) (*models.TableState, error) {
	p, _ := s.Player(playerID)
	if p == nil {
		return s, ErrPlayerNotFound
	}
	if !finite(amount) || Money(amount) <= 0 {
		return s, ErrInvalidAmount
	}
	if s.HandActive && p.InHand() {
		return s, ErrHandInProgress
	}
	next := s.Clone()
	np, _ := next.Player(playerID)
	np.ChipBalance = Money(np.ChipBalance + amount)
	if np.Status == models.StatusEliminated {
		np.Status = models.StatusActive
		if next.HandActive {
			np.Status = models.StatusFolded
		}
	}
	next.LastLog = fmt.Sprintf("%s added %.2f", np.DisplayName, Money(amount))
	return next, nil
}

func resetForHand(p *models.Player) {
	p.CurrentBet = 0
	p.TotalBetThisHand = 0
	p.Hand = []models.Card{}
	p.IsDealer = false
	p.IsTurn = false
	p.LastAction = ""
	p.ActedThisRound = false
	p.BestHand = nil
}

func postBlind(s *models.TableState, p *models.Player, amount float64, kind models.ActionType) {
	commit(s, p, amount)
	p.LastAction = kind
}

// commit moves up to amount from the player's stack into the pot.
func commit(s *models.TableState, p *models.Player, amount float64) {
	amount = Money(amount)
	if amount > p.ChipBalance {
		amount = p.ChipBalance
	}
	p.ChipBalance = Money(p.ChipBalance - amount)
	p.CurrentBet = Money(p.CurrentBet + amount)
	p.TotalBetThisHand = Money(p.TotalBetThisHand + amount)
	s.Pot = Money(s.Pot + amount)
	if p.ChipBalance <= 0 {
		p.ChipBalance = 0
		p.Status = models.StatusAllIn
	}
}

// raiseTo brings the player's street bet to target. Only a full raise reopens the action.
func raiseTo(s *models.TableState, p *models.Player, target float64) {
	delta := Money(target - s.MinBetToCall)
	commit(s, p, target-p.CurrentBet)
	if delta >= s.LastRaiseDelta {
		s.LastRaiseDelta = delta
		s.LastAggressorID = p.ID
		for _, o := range s.Players {
			if o.ID != p.ID {
				o.ActedThisRound = false
			}
		}
	}
	if p.CurrentBet > s.MinBetToCall {
		s.MinBetToCall = p.CurrentBet
	}
}

// recheckRound closes the round when the player on turn is gone or nobody is left to bet against.
func recheckRound(s *models.TableState) {
	if !s.HandActive || s.RoundClosed() {
		return
	}
	if cur, _ := s.Player(s.CurrentTurnPlayerID); cur != nil && !roundComplete(s) {
		return
	}
	for _, p := range s.Players {
		p.IsTurn = false
	}
	s.CurrentTurnPlayerID = uuid.Nil
}

func needsAction(s *models.TableState, p *models.Player) bool {
	return p.Status == models.StatusActive && (!p.ActedThisRound || p.CurrentBet < s.MinBetToCall)
}

// roundComplete reports whether the betting round is over. A lone active player who has matched
// the bet has nobody to bet against.
func roundComplete(s *models.TableState) bool {
	active := 0
	pending := false
	var last *models.Player
	for _, p := range s.Players {
		if p.Status != models.StatusActive {
			continue
		}
		active++
		last = p
		if needsAction(s, p) {
			pending = true
		}
	}
	if !pending {
		return true
	}
	return active == 1 && last.CurrentBet >= s.MinBetToCall
}

// openAction hands the turn to the next player needing action, searching from seat (inclusive when
// inclusive is set) or closes the round.
func openAction(s *models.TableState, seat int, inclusive bool) {
	for _, p := range s.Players {
		p.IsTurn = false
	}
	s.CurrentTurnPlayerID = uuid.Nil
	if roundComplete(s) {
		return
	}
	from := seat
	if inclusive {
		from = seat - 1
	}
	if p := nextAfter(s.Players, from, func(p *models.Player) bool { return needsAction(s, p) }); p != nil {
		p.IsTurn = true
		s.CurrentTurnPlayerID = p.ID
	}
}

// nextAfter returns the first player clockwise from seat (exclusive) matching ok.
func nextAfter(players []*models.Player, seat int, ok func(*models.Player) bool) *models.Player {
	var wrap *models.Player
	for _, p := range players {
		if !ok(p) {
			continue
		}
		if p.SeatIndex > seat {
			return p
		}
		if wrap == nil {
			wrap = p
		}
	}
	return wrap
}

// seatOrderFrom lists matching players clockwise starting left of seat.
func seatOrderFrom(players []*models.Player, seat int, ok func(*models.Player) bool) []*models.Player {
	var after, before []*models.Player
	for _, p := range players {
		if !ok(p) {
			continue
		}
		if p.SeatIndex > seat {
			after = append(after, p)
		} else {
			before = append(before, p)
		}
	}
	return append(after, before...)
}

func sortBySeat(players []*models.Player) {
	for i := 1; i < len(players); i++ {
		for j := i; j > 0 && players[j].SeatIndex < players[j-1].SeatIndex; j-- {
			players[j], players[j-1] = players[j-1], players[j]
		}
	}
}

// internal/table/host.go
package table

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

const (
	inboxSize     = 64
	ledgerTimeout = 5 * time.Second

	// MaxClientSeedLength bounds the player-supplied shuffle entropy.
	MaxClientSeedLength = 64

	botBuyInBigBlinds  = 100
	botTopUpBigBlinds  = 10
	defaultNamePrefix  = "Player-"
	defaultClientValue = "table:"
)

// Config describes a single table.
type Config struct {
	TableID    string
	MaxSeats   int
	SmallBlind float64
	BigBlind   float64
	Mode       models.GameMode
	// Persistent tables are never reaped for idleness.
	Persistent bool
}

// Deps are the collaborators a host talks to. Ledger and Accounts are only used in cash mode.
type Deps struct {
	Ledger    Ledger
	Accounts  Accounts
	Rake      RakeSink
	History   HistorySink
	Transport Transport
	Logger    *logrus.Logger
	Delays    Delays
	Speed     *Speed
	// OperatorID receives the operator share of rake. uuid.Nil leaves the share in the house.
	OperatorID uuid.UUID
}

// TableInfo is the lobby view of a table, readable without going through the loop.
type TableInfo struct {
	ID          string          `json:"id"`
	MaxSeats    int             `json:"maxSeats"`
	Occupied    int             `json:"occupied"`
	HumanSeated int             `json:"humanSeated"`
	Sessions    int             `json:"sessions"`
	SmallBlind  float64         `json:"smallBlind"`
	BigBlind    float64         `json:"bigBlind"`
	Mode        models.GameMode `json:"mode"`
	HandActive  bool            `json:"handActive"`
	HandNumber  int             `json:"handNumber"`
	Persistent  bool            `json:"persistent"`
}

type session struct {
	userID uuid.UUID
	name   string
	hands  int
}

// Host owns one table. Every mutation is a message processed in arrival order by a single
// goroutine, so the state needs no locking. Timers never touch the state directly; they enqueue
// messages that are validated against the state current at delivery.
type Host struct {
	id   string
	cfg  Config
	deps Deps
	log  *logrus.Entry

	inbox     chan message
	done      chan struct{}
	closeOnce sync.Once

	// loop-owned
	state       *models.TableState
	sessions    map[uuid.UUID]*session
	bots        map[uuid.UUID]bool
	clientValue string
	handDeck    []models.Card
	handStart   map[uuid.UUID]float64
	// leftStacks holds what players who left mid-hand took with them
	leftStacks  map[uuid.UUID]float64
	dealSeq     uint64
	dealPending bool
	botTurn     turnKey
	closing     bool
	rng         *rand.Rand

	info         atomic.Value
	lastActivity atomic.Int64
}

// NewHost builds a table and starts its loop.
func NewHost(cfg Config, deps Deps) *Host {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Speed == nil {
		deps.Speed = NewSpeed(1)
	}
	if deps.Delays == (Delays{}) {
		deps.Delays = DefaultDelays()
	}
	if cfg.Mode == "" {
		cfg.Mode = models.ModeCash
	}

	state := poker.Initialize(cfg.TableID, cfg.MaxSeats, cfg.SmallBlind, cfg.BigBlind, cfg.Mode)
	cfg.MaxSeats = state.MaxSeats

	h := &Host{
		id:          cfg.TableID,
		cfg:         cfg,
		deps:        deps,
		log:         deps.Logger.WithField("table", cfg.TableID),
		inbox:       make(chan message, inboxSize),
		done:        make(chan struct{}),
		state:       state,
		sessions:    make(map[uuid.UUID]*session),
		bots:        make(map[uuid.UUID]bool),
		leftStacks:  make(map[uuid.UUID]float64),
		clientValue: defaultClientValue + cfg.TableID,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	h.touch()
	h.refreshInfo()

	go h.run()
	return h
}

func (h *Host) ID() string { return h.id }

func (h *Host) Config() Config { return h.cfg }

// Done is closed once the table has shut down.
func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) Info() TableInfo { return h.info.Load().(TableInfo) }

// LastActivity is the time the loop last processed a message.
func (h *Host) LastActivity() time.Time { return time.Unix(0, h.lastActivity.Load()) }

// Join binds a connection to the table and returns the state as that user sees it. In cash mode the
// account is created on first sight with the welcome balance.
func (h *Host) Join(ctx context.Context, sessionID, userID uuid.UUID, name string) (*models.TableState, error) {
	r, err := h.request(ctx, message{kind: msgJoin, session: sessionID, user: userID, name: name})
	return r.state, err
}

// Sit takes a seat with buyIn chips. seat may be poker.AnySeat.
func (h *Host) Sit(ctx context.Context, sessionID uuid.UUID, seat int, buyIn float64) error {
	_, err := h.request(ctx, message{kind: msgSit, session: sessionID, seat: seat, amount: buyIn})
	return err
}

// Act submits a betting action for the user bound to sessionID.
func (h *Host) Act(ctx context.Context, sessionID uuid.UUID, action models.ActionType, amount float64) error {
	_, err := h.request(ctx, message{kind: msgAction, session: sessionID, action: action, amount: amount})
	return err
}

// Leave stands the user up and cashes out the stack. The session stays bound as a spectator.
func (h *Host) Leave(ctx context.Context, sessionID uuid.UUID) error {
	_, err := h.request(ctx, message{kind: msgLeave, session: sessionID})
	return err
}

// Disconnect unbinds a session. When it was the user's last session the user is stood up and the
// stack credited back exactly once.
func (h *Host) Disconnect(ctx context.Context, sessionID uuid.UUID) error {
	_, err := h.request(ctx, message{kind: msgDisconnect, session: sessionID})
	return err
}

func (h *Host) ToggleSitOut(ctx context.Context, sessionID uuid.UUID) error {
	_, err := h.request(ctx, message{kind: msgSitOut, session: sessionID})
	return err
}

func (h *Host) Rebuy(ctx context.Context, sessionID uuid.UUID, amount float64) error {
	_, err := h.request(ctx, message{kind: msgRebuy, session: sessionID, amount: amount})
	return err
}

// SetClientSeed replaces the client value mixed into the next shuffles.
func (h *Host) SetClientSeed(ctx context.Context, sessionID uuid.UUID, value string) error {
	_, err := h.request(ctx, message{kind: msgClientSeed, session: sessionID, text: value})
	return err
}

// AddBots seats up to n bots, limited by free seats.
func (h *Host) AddBots(ctx context.Context, n int) error {
	_, err := h.request(ctx, message{kind: msgAddBots, count: n})
	return err
}

func (h *Host) RemoveBot(ctx context.Context) error {
	_, err := h.request(ctx, message{kind: msgRemoveBot})
	return err
}

// Snapshot returns the state as seen by viewer. uuid.Nil gets the spectator view.
func (h *Host) Snapshot(ctx context.Context, viewer uuid.UUID) (*models.TableState, error) {
	r, err := h.request(ctx, message{kind: msgSnapshot, user: viewer})
	return r.state, err
}

// Close refunds every seated stack and stops the loop. Closing twice is harmless.
func (h *Host) Close(ctx context.Context) error {
	_, err := h.request(ctx, message{kind: msgClose})
	if errors.Is(err, ErrTableClosed) {
		return nil
	}
	return err
}

func (h *Host) request(ctx context.Context, m message) (reply, error) {
	m.ctx = ctx
	m.reply = make(chan reply, 1)
	select {
	case h.inbox <- m:
	case <-h.done:
		return reply{}, ErrTableClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-m.reply:
		return r, r.err
	case <-h.done:
		select {
		case r := <-m.reply:
			return r, r.err
		default:
			return reply{}, ErrTableClosed
		}
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// after enqueues m once d has elapsed, unless the table closes first.
func (h *Host) after(d time.Duration, m message) {
	time.AfterFunc(d, func() {
		select {
		case h.inbox <- m:
		case <-h.done:
		}
	})
}

func (h *Host) run() {
	h.log.Info("table loop started")
	for m := range h.inbox {
		h.dispatch(m)
		if h.closing {
			h.closeOnce.Do(func() { close(h.done) })
			h.log.Info("table loop stopped")
			return
		}
	}
}

// dispatch processes one message. A panic drops the message and keeps the last committed state.
func (h *Host) dispatch(m message) {
	var r reply
	defer func() {
		if p := recover(); p != nil {
			Metrics.RecoveredPanic()
			h.log.WithFields(logrus.Fields{
				"message": m.kind.String(),
				"panic":   p,
				"stack":   string(debug.Stack()),
			}).Error("recovered panic in table loop")
			r = reply{err: fmt.Errorf("%w: %v", poker.ErrCorruptState, p)}
		}
		if m.reply != nil {
			m.reply <- r
		}
	}()

	if m.kind != msgDeal && m.kind != msgBotTurn {
		h.touch()
	}
	ctx, cancel := opContext(m.ctx)
	defer cancel()
	r = h.handle(ctx, m)
}

// opContext detaches ledger work from the caller so a dropped connection cannot abandon a
// half-applied money movement.
func opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), ledgerTimeout)
}

func (h *Host) handle(ctx context.Context, m message) reply {
	switch m.kind {
	case msgJoin:
		return h.handleJoin(ctx, m)
	case msgSit:
		return h.handleSit(ctx, m)
	case msgAction:
		return h.handleAction(ctx, m)
	case msgLeave:
		return h.handleLeave(ctx, m, false)
	case msgDisconnect:
		return h.handleLeave(ctx, m, true)
	case msgSitOut:
		return h.handleSitOut(ctx, m)
	case msgRebuy:
		return h.handleRebuy(ctx, m)
	case msgClientSeed:
		return h.handleClientSeed(m)
	case msgAddBots:
		return h.handleAddBots(ctx, m)
	case msgRemoveBot:
		return h.handleRemoveBot(ctx)
	case msgSnapshot:
		return reply{state: h.state.ViewFor(m.user)}
	case msgClose:
		return h.handleClose(ctx)
	case msgDeal:
		h.handleDeal(ctx, m)
	case msgBotTurn:
		h.handleBotTurn(ctx, m)
	default:
		h.log.WithField("kind", int(m.kind)).Warn("unknown message kind")
	}
	return reply{}
}

func (h *Host) real() bool {
	return h.state.Mode == models.ModeCash && h.deps.Ledger != nil
}

func (h *Host) handleJoin(ctx context.Context, m message) reply {
	name := strings.TrimSpace(m.name)
	if name == "" {
		name = defaultNamePrefix + m.user.String()[:4]
	}
	sess := &session{userID: m.user, name: name}

	if h.real() && h.deps.Accounts != nil {
		u, created, err := h.deps.Accounts.EnsureUser(ctx, m.user, name)
		if err != nil {
			h.log.WithError(err).WithField("user", m.user).Error("failed to load account")
			return reply{err: ledgerErr(err)}
		}
		if created {
			h.log.WithField("user", m.user).Info("created account with welcome balance")
		}
		sess.hands = u.TotalHands
		bal := u.Balance
		h.deps.Transport.SendTo(m.session, Event{Type: EventBalanceUpdate, TableID: h.id, Balance: &bal})
	}

	h.sessions[m.session] = sess
	view := h.state.ViewFor(m.user)
	h.deps.Transport.SendTo(m.session, Event{Type: EventTableState, TableID: h.id, State: view})
	h.refreshInfo()
	h.log.WithFields(logrus.Fields{"user": m.user, "session": m.session}).Debug("session joined")
	return reply{state: view}
}

func (h *Host) handleSit(ctx context.Context, m message) reply {
	sess, ok := h.sessions[m.session]
	if !ok {
		return reply{err: ErrNotJoined}
	}
	if p, _ := h.state.Player(sess.userID); p != nil {
		return reply{err: poker.ErrAlreadySeated}
	}
	if m.seat != poker.AnySeat && h.state.PlayerAtSeat(m.seat) != nil {
		return reply{err: poker.ErrSeatTaken}
	}

	buyIn := poker.Money(m.amount)
	next, err := poker.SeatPlayer(h.state, poker.PlayerSpec{
		ID:          sess.userID,
		DisplayName: sess.name,
		BuyIn:       buyIn,
		Seat:        m.seat,
		HandsPlayed: sess.hands,
	})
	if err != nil {
		return reply{err: err}
	}

	if h.real() {
		if err := h.moveFunds(ctx, sess.userID, -buyIn, models.TxGameBuyIn); err != nil {
			return reply{err: err}
		}
	}
	h.apply(ctx, next)
	return reply{}
}

func (h *Host) handleAction(ctx context.Context, m message) reply {
	sess, ok := h.sessions[m.session]
	if !ok {
		return reply{err: ErrNotJoined}
	}
	next, err := poker.HandleAction(h.state, sess.userID, m.action, m.amount)
	if err != nil {
		Metrics.InvalidAction()
		h.log.WithError(err).WithFields(logrus.Fields{
			"user":   sess.userID,
			"action": m.action,
			"amount": m.amount,
		}).Debug("rejected action")
		return reply{err: err}
	}
	h.apply(ctx, next)
	return reply{}
}

// handleLeave stands a user up. With unbind the session is also dropped, and the user is only
// stood up once no other session of theirs remains. The session survives a failed credit so the
// call can be retried.
func (h *Host) handleLeave(ctx context.Context, m message, unbind bool) reply {
	sess, ok := h.sessions[m.session]
	if !ok {
		if unbind {
			return reply{}
		}
		return reply{err: ErrNotJoined}
	}

	p, _ := h.state.Player(sess.userID)
	if p == nil || (unbind && h.otherSession(sess.userID, m.session)) {
		if !unbind {
			return reply{err: ErrNotSeated}
		}
		delete(h.sessions, m.session)
		h.refreshInfo()
		return reply{}
	}

	next, stack, err := poker.RemovePlayer(h.state, sess.userID)
	if err != nil {
		return reply{err: err}
	}
	if h.real() && stack > 0 {
		if err := h.moveFunds(ctx, sess.userID, stack, models.TxGameCashout); err != nil {
			h.log.WithError(err).WithField("user", sess.userID).Error("cash-out failed, player stays seated")
			return reply{err: err}
		}
	}
	if _, dealtIn := h.handStart[sess.userID]; dealtIn && h.state.HandActive {
		h.leftStacks[sess.userID] = stack
	}
	if unbind {
		delete(h.sessions, m.session)
	}
	h.log.WithFields(logrus.Fields{"user": sess.userID, "stack": stack}).Info("player left the table")
	h.apply(ctx, next)
	return reply{}
}

func (h *Host) otherSession(userID, except uuid.UUID) bool {
	for id, s := range h.sessions {
		if id != except && s.userID == userID {
			return true
		}
	}
	return false
}

func (h *Host) handleSitOut(ctx context.Context, m message) reply {
	sess, ok := h.sessions[m.session]
	if !ok {
		return reply{err: ErrNotJoined}
	}
	next, err := poker.ToggleSitOut(h.state, sess.userID)
	if err != nil {
		return reply{err: err}
	}
	h.apply(ctx, next)
	return reply{}
}

func (h *Host) handleRebuy(ctx context.Context, m message) reply {
	sess, ok := h.sessions[m.session]
	if !ok {
		return reply{err: ErrNotJoined}
	}
	amount := poker.Money(m.amount)
	next, err := poker.Rebuy(h.state, sess.userID, amount)
	if err != nil {
		return reply{err: err}
	}
	if h.real() {
		if err := h.moveFunds(ctx, sess.userID, -amount, models.TxGameRebuy); err != nil {
			return reply{err: err}
		}
	}
	h.apply(ctx, next)
	return reply{}
}

func (h *Host) handleClientSeed(m message) reply {
	if _, ok := h.sessions[m.session]; !ok {
		return reply{err: ErrNotJoined}
	}
	v := strings.TrimSpace(m.text)
	if v == "" {
		return reply{err: fmt.Errorf("%w: empty client seed", poker.ErrInvalidAmount)}
	}
	if !utf8.ValidString(v) {
		return reply{err: fmt.Errorf("%w: client seed must be valid UTF-8", poker.ErrInvalidAmount)}
	}
	if len(v) > MaxClientSeedLength {
		cut := MaxClientSeedLength
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	h.clientValue = v
	return reply{}
}

func (h *Host) handleClose(ctx context.Context) reply {
	s := h.state
	if h.real() {
		for _, p := range s.Players {
			if p.IsBot {
				continue
			}
			refund := p.ChipBalance
			if s.HandActive {
				refund += p.TotalBetThisHand
			}
			h.refund(ctx, p.ID, poker.Money(refund))
		}
		if s.HandActive {
			for _, c := range s.DeadMoney {
				if !h.bots[c.PlayerID] {
					h.refund(ctx, c.PlayerID, c.Amount)
				}
			}
		}
	}

	h.deps.Transport.Broadcast(h.id, Event{Type: EventTableClosed, TableID: h.id, Message: "table closed"})
	h.closing = true
	h.dealSeq++
	h.dealPending = false
	h.log.WithField("hands", s.HandNumber).Info("table closed")
	return reply{}
}

func (h *Host) refund(ctx context.Context, userID uuid.UUID, amount float64) {
	if amount <= 0 {
		return
	}
	if err := h.moveFunds(ctx, userID, amount, models.TxGameCashout); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"user": userID, "amount": amount}).Error("failed to refund on close")
	}
}

// moveFunds adjusts a wallet, logs the transaction and pushes the new balance to the user's sessions.
func (h *Host) moveFunds(ctx context.Context, userID uuid.UUID, amount float64, kind models.TransactionType) error {
	bal, err := h.deps.Ledger.AdjustBalance(ctx, userID, amount)
	if err != nil {
		return ledgerErr(err)
	}
	h.appendTx(ctx, userID, amount, kind)
	h.notifyBalance(userID, bal)
	return nil
}

func (h *Host) appendTx(ctx context.Context, userID uuid.UUID, amount float64, kind models.TransactionType) {
	tx := models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Amount:    amount,
		HandID:    h.state.HandID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.deps.Ledger.AppendTransaction(ctx, tx); err != nil {
		Metrics.LedgerFailure()
		h.log.WithError(err).WithFields(logrus.Fields{"user": userID, "type": kind}).Error("failed to append transaction")
	}
}

func (h *Host) notifyBalance(userID uuid.UUID, balance float64) {
	for id, s := range h.sessions {
		if s.userID == userID {
			b := balance
			h.deps.Transport.SendTo(id, Event{Type: EventBalanceUpdate, TableID: h.id, Balance: &b})
		}
	}
}

// apply commits a new state. Streets with no one left to act are run out, a finished hand is
// settled, every session gets its own view, and the next timer is armed.
func (h *Host) apply(ctx context.Context, next *models.TableState) {
	prev := h.state
	if next.HandActive && next.RoundClosed() {
		advanced, err := runOut(next)
		if err != nil {
			h.log.WithError(err).Error("failed to advance hand, keeping last consistent state")
		}
		next = advanced
	}

	ended := !next.HandActive && next.Phase == models.PhaseShowdown &&
		(prev.HandActive || prev.HandNumber != next.HandNumber)
	if ended {
		next.PreviousFairness = next.Fairness.Reveal(h.handDeck)
	}
	h.state = next
	if ended {
		h.settle(ctx, next)
	}
	h.publish()
	h.schedule(ended)
}

func runOut(s *models.TableState) (*models.TableState, error) {
	for s.HandActive && s.RoundClosed() {
		next, err := poker.AdvancePhase(s)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

func (h *Host) publish() {
	for id, sess := range h.sessions {
		h.deps.Transport.SendTo(id, Event{Type: EventTableState, TableID: h.id, State: h.state.ViewFor(sess.userID)})
	}
	h.refreshInfo()
}

// schedule arms the next deal or bot turn. A deal is armed at most once; it is invalidated when the
// table drops below two eligible players.
func (h *Host) schedule(handEnded bool) {
	if h.closing {
		return
	}
	if h.state.HandActive {
		h.scheduleBot()
		return
	}
	if h.eligible() < 2 {
		if h.dealPending {
			h.dealPending = false
			h.dealSeq++
			h.log.Debug("not enough players, waiting")
		}
		return
	}
	if h.dealPending {
		return
	}

	delay := h.deps.Delays.AutoStart
	if handEnded {
		delay = h.deps.Delays.NextHand
	}
	h.dealPending = true
	h.dealSeq++
	h.after(h.deps.Speed.Scale(ms(delay)), message{kind: msgDeal, seq: h.dealSeq})
}

// eligible counts players that the next deal would include. Bots are topped up before dealing.
func (h *Host) eligible() int {
	n := 0
	for _, p := range h.state.Players {
		if p.CanBeDealt() || (p.IsBot && p.Status != models.StatusSittingOut && !p.SitOutNextHand) {
			n++
		}
	}
	return n
}

func (h *Host) handleDeal(ctx context.Context, m message) {
	if !h.dealPending || m.seq != h.dealSeq {
		return
	}
	h.dealPending = false
	h.deal(ctx)
}

func (h *Host) deal(ctx context.Context) {
	s := h.state
	if s.HandActive {
		return
	}

	next := h.topUpBots(s)
	rec, err := poker.NewRecord(h.clientValue, uint64(next.HandNumber+1))
	if err != nil {
		h.log.WithError(err).Error("failed to create fairness record")
		return
	}
	deck, err := poker.ShuffledDeck(rec.ServerSecret, rec.ClientValue, rec.Nonce)
	if err != nil {
		h.log.WithError(err).Error("failed to shuffle")
		return
	}

	dealt, err := poker.DealHand(next, deck, rec)
	if err != nil {
		if errors.Is(err, poker.ErrNotEnoughPlayers) {
			h.log.Debug("deal skipped, not enough players")
		} else {
			h.log.WithError(err).Error("failed to deal")
		}
		if next != s {
			h.state = next
			h.publish()
		}
		return
	}

	dealt.HandID = uuid.New()
	h.handDeck = deck
	h.handStart = make(map[uuid.UUID]float64, len(dealt.Players))
	h.leftStacks = make(map[uuid.UUID]float64)
	for _, p := range dealt.Players {
		if len(p.Hand) > 0 {
			h.handStart[p.ID] = p.ChipBalance + p.TotalBetThisHand
		}
	}
	h.botTurn = turnKey{}

	Metrics.HandDealt()
	h.log.WithFields(logrus.Fields{
		"hand":       dealt.HandNumber,
		"hand_id":    dealt.HandID,
		"commitment": rec.CommitmentHash,
	}).Info("dealt hand")
	h.apply(ctx, dealt)
}

// settle runs the side effects of a finished hand. Failures are logged and counted; the hand
// result itself is final.
func (h *Host) settle(ctx context.Context, s *models.TableState) {
	Metrics.HandSettled(s.Rake)
	h.deps.Transport.Broadcast(h.id, Event{Type: EventFairnessReveal, TableID: h.id, Reveal: s.PreviousFairness})

	if h.real() {
		h.recordResults(ctx, s)
		if s.Rake > 0 && len(s.Winners) > 0 {
			h.distributeRake(ctx, s)
		}
	}

	if h.deps.History != nil {
		rec := models.HandRecord{
			HandID:         s.HandID,
			TableID:        h.id,
			HandNumber:     s.HandNumber,
			Mode:           s.Mode,
			CommunityCards: append([]models.Card(nil), s.CommunityCards...),
			Winners:        append([]models.Winner(nil), s.Winners...),
			SidePots:       append([]models.SidePot(nil), s.SidePots...),
			Rake:           s.Rake,
			Fairness:       s.PreviousFairness,
			Timestamp:      time.Now().UnixMilli(),
		}
		if err := h.deps.History.PublishHand(ctx, rec); err != nil {
			h.log.WithError(err).Warn("failed to publish hand history")
		}
	}

	h.log.WithFields(logrus.Fields{
		"hand":    s.HandNumber,
		"rake":    s.Rake,
		"winners": len(s.Winners),
	}).Info("hand settled")
}

func (h *Host) recordResults(ctx context.Context, s *models.TableState) {
	for _, w := range s.Winners {
		if h.bots[w.PlayerID] {
			continue
		}
		h.appendTx(ctx, w.PlayerID, w.Amount, models.TxGameWin)
	}
	if h.deps.Accounts == nil {
		return
	}
	for id, start := range h.handStart {
		if h.bots[id] {
			continue
		}
		end, left := h.leftStacks[id]
		if !left {
			if p, _ := s.Player(id); p != nil {
				end = p.ChipBalance
			}
		}
		if err := h.deps.Accounts.RecordHand(ctx, id, poker.Money(end-start)); err != nil {
			Metrics.LedgerFailure()
			h.log.WithError(err).WithField("user", id).Error("failed to record hand stats")
		}
		for _, sess := range h.sessions {
			if sess.userID == id {
				sess.hands++
			}
		}
	}
}

// distributeRake pays referral overrides up the biggest winner's chain, credits the operator and
// hands the pool shares to the rake sink.
func (h *Host) distributeRake(ctx context.Context, s *models.TableState) {
	payer := s.Winners[0].PlayerID
	var overrides []poker.Override
	if !h.bots[payer] && h.deps.Accounts != nil {
		chain, err := h.deps.Accounts.ReferralChain(ctx, payer)
		if err != nil {
			Metrics.LedgerFailure()
			h.log.WithError(err).WithField("user", payer).Error("failed to load referral chain")
		} else {
			overrides = poker.ReferralOverrides(s.Rake, chain)
		}
	}

	split := poker.DistributeRake(s.Rake, poker.OverrideTotal(overrides))
	for _, o := range overrides {
		if err := h.moveFunds(ctx, o.UserID, o.Amount, models.TxReferralOverride); err != nil {
			h.log.WithError(err).WithField("user", o.UserID).Error("failed to pay referral override")
			continue
		}
		if err := h.deps.Accounts.AddReferralEarnings(ctx, o.UserID, o.Amount); err != nil {
			Metrics.LedgerFailure()
			h.log.WithError(err).WithField("user", o.UserID).Error("failed to record referral earnings")
		}
	}

	if h.deps.OperatorID != uuid.Nil && split.Operator > 0 {
		if err := h.moveFunds(ctx, h.deps.OperatorID, split.Operator, models.TxRakeOperator); err != nil {
			h.log.WithError(err).Error("failed to credit operator rake")
		}
	}
	if h.deps.Rake != nil {
		if err := h.deps.Rake.AddRake(ctx, split.Jackpot, split.GlobalPool); err != nil {
			Metrics.LedgerFailure()
			h.log.WithError(err).Error("failed to add rake to pools")
		}
	}
}

func (h *Host) touch() {
	h.lastActivity.Store(time.Now().UnixNano())
}

func (h *Host) refreshInfo() {
	s := h.state
	humans := 0
	for _, p := range s.Players {
		if !p.IsBot {
			humans++
		}
	}
	h.info.Store(TableInfo{
		ID:          h.id,
		MaxSeats:    s.MaxSeats,
		Occupied:    len(s.Players),
		HumanSeated: humans,
		Sessions:    len(h.sessions),
		SmallBlind:  s.SmallBlind,
		BigBlind:    s.BigBlind,
		Mode:        s.Mode,
		HandActive:  s.HandActive,
		HandNumber:  s.HandNumber,
		Persistent:  h.cfg.Persistent,
	})
}

package table

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

// recordingTransport collects events instead of writing them to sockets.
type recordingTransport struct {
	mu         sync.Mutex
	broadcasts []Event
	direct     map[uuid.UUID][]Event
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{direct: make(map[uuid.UUID][]Event)}
}

func (rt *recordingTransport) Broadcast(_ string, ev Event) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.broadcasts = append(rt.broadcasts, ev)
}

func (rt *recordingTransport) SendTo(sessionID uuid.UUID, ev Event) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.direct[sessionID] = append(rt.direct[sessionID], ev)
}

func (rt *recordingTransport) broadcastsOf(t EventType) []Event {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var out []Event
	for _, ev := range rt.broadcasts {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (rt *recordingTransport) lastTo(sessionID uuid.UUID, t EventType) *Event {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	evs := rt.direct[sessionID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == t {
			ev := evs[i]
			return &ev
		}
	}
	return nil
}

type rakeRecorder struct {
	mu                  sync.Mutex
	jackpot, globalPool float64
}

func (r *rakeRecorder) AddRake(_ context.Context, jackpot, globalPool float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jackpot = poker.Money(r.jackpot + jackpot)
	r.globalPool = poker.Money(r.globalPool + globalPool)
	return nil
}

type historyRecorder struct {
	mu      sync.Mutex
	records []models.HandRecord
}

func (r *historyRecorder) PublishHand(_ context.Context, rec models.HandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *historyRecorder) all() []models.HandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.HandRecord(nil), r.records...)
}

type fixture struct {
	host      *Host
	ledger    *ledger.Memory
	transport *recordingTransport
	rake      *rakeRecorder
	history   *historyRecorder
	operator  uuid.UUID
}

// fastDelays deals immediately but never starts a second hand on its own.
func fastDelays() Delays {
	return Delays{AutoStart: 1, NextHand: 3_600_000, BotThinkMin: 1, BotThinkMax: 2, IdleTimeout: 1000}
}

// flakyLedger fails balance moves while down is set.
type flakyLedger struct {
	*ledger.Memory
	down atomic.Bool
}

var errLedgerDown = errors.New("connection refused")

func (l *flakyLedger) AdjustBalance(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	if l.down.Load() {
		return 0, errLedgerDown
	}
	return l.Memory.AdjustBalance(ctx, id, delta)
}

func newFixture(t *testing.T, mode models.GameMode, delays Delays) *fixture {
	t.Helper()
	return newFixtureWithLedger(t, mode, delays, nil)
}

// newFixtureWithLedger routes balance moves through wrap(memory) when wrap is set.
func newFixtureWithLedger(t *testing.T, mode models.GameMode, delays Delays, wrap func(*ledger.Memory) Ledger) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	f := &fixture{
		ledger:    ledger.NewMemory(ledger.DefaultWelcomeBalance),
		transport: newRecordingTransport(),
		rake:      &rakeRecorder{},
		history:   &historyRecorder{},
		operator:  uuid.New(),
	}
	f.ledger.PutUser(models.User{ID: f.operator, Username: "operator", IsAdmin: true})
	var l Ledger = f.ledger
	if wrap != nil {
		l = wrap(f.ledger)
	}
	f.host = NewHost(Config{TableID: "t-test", MaxSeats: 6, SmallBlind: 0.5, BigBlind: 1, Mode: mode}, Deps{
		Ledger:     l,
		Accounts:   f.ledger,
		Rake:       f.rake,
		History:    f.history,
		Transport:  f.transport,
		Logger:     logger,
		Delays:     delays,
		Speed:      NewSpeed(1),
		OperatorID: f.operator,
	})
	t.Cleanup(func() { _ = f.host.Close(context.Background()) })
	return f
}

type seatedUser struct {
	session uuid.UUID
	user    uuid.UUID
}

func (f *fixture) join(t *testing.T, name string) seatedUser {
	t.Helper()
	u := seatedUser{session: uuid.New(), user: uuid.New()}
	_, err := f.host.Join(context.Background(), u.session, u.user, name)
	require.NoError(t, err)
	return u
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) float64 {
	t.Helper()
	b, err := f.ledger.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) snapshot(t *testing.T) *models.TableState {
	t.Helper()
	s, err := f.host.Snapshot(context.Background(), uuid.Nil)
	require.NoError(t, err)
	return s
}

func (f *fixture) waitForHand(t *testing.T, number int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := f.snapshot(t)
		return s.HandActive && s.HandNumber == number
	}, 2*time.Second, 5*time.Millisecond)
}

// checkDown plays the current hand to showdown with calls and checks.
func (f *fixture) checkDown(t *testing.T, users ...seatedUser) {
	t.Helper()
	sessionOf := make(map[uuid.UUID]uuid.UUID, len(users))
	for _, u := range users {
		sessionOf[u.user] = u.session
	}
	for i := 0; i < 20; i++ {
		s := f.snapshot(t)
		if !s.HandActive {
			return
		}
		p, _ := s.Player(s.CurrentTurnPlayerID)
		require.NotNil(t, p)
		action := models.ActionCheck
		if p.CurrentBet < s.MinBetToCall {
			action = models.ActionCall
		}
		require.NoError(t, f.host.Act(context.Background(), sessionOf[p.ID], action, 0))
	}
	t.Fatal("hand did not finish")
}

func TestJoinCreatesAccountWithWelcomeBalance(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")

	assert.Equal(t, ledger.DefaultWelcomeBalance, f.balance(t, u.user))
	ev := f.transport.lastTo(u.session, EventBalanceUpdate)
	require.NotNil(t, ev)
	assert.Equal(t, ledger.DefaultWelcomeBalance, *ev.Balance)

	// second join of the same user keeps the balance
	_, err := f.host.Join(context.Background(), uuid.New(), u.user, "alice")
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultWelcomeBalance, f.balance(t, u.user))
	assert.Equal(t, 2, f.host.Info().Sessions)
}

func TestSitDebitsBuyIn(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")

	require.NoError(t, f.host.Sit(context.Background(), u.session, 2, 250))
	assert.Equal(t, 9750.0, f.balance(t, u.user))

	s := f.snapshot(t)
	p, _ := s.Player(u.user)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.SeatIndex)
	assert.Equal(t, 250.0, p.ChipBalance)

	txs := f.ledger.Transactions(u.user)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxGameBuyIn, txs[1].Type)
	assert.Equal(t, -250.0, txs[1].Amount)

	err := f.host.Sit(context.Background(), u.session, 3, 10)
	assert.ErrorIs(t, err, poker.ErrAlreadySeated)
}

func TestSitRejectsInsufficientFunds(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	id := uuid.New()
	f.ledger.PutUser(models.User{ID: id, Username: "broke", Balance: 50})
	sess := uuid.New()
	_, err := f.host.Join(context.Background(), sess, id, "broke")
	require.NoError(t, err)

	err = f.host.Sit(context.Background(), sess, poker.AnySeat, 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, f.snapshot(t).Players)
	assert.Equal(t, 50.0, f.balance(t, id))
}

func TestSitRequiresJoin(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	err := f.host.Sit(context.Background(), uuid.New(), poker.AnySeat, 100)
	assert.ErrorIs(t, err, ErrNotJoined)
	err = f.host.Act(context.Background(), uuid.New(), models.ActionFold, 0)
	assert.ErrorIs(t, err, ErrNotJoined)
}

func TestSitTakenSeat(t *testing.T) {
	f := newFixture(t, models.ModeCash, Delays{AutoStart: 3_600_000, NextHand: 3_600_000, BotThinkMin: 1, BotThinkMax: 1, IdleTimeout: 1})
	a := f.join(t, "alice")
	b := f.join(t, "bob")
	require.NoError(t, f.host.Sit(context.Background(), a.session, 1, 100))
	err := f.host.Sit(context.Background(), b.session, 1, 100)
	assert.ErrorIs(t, err, poker.ErrSeatTaken)
	assert.Equal(t, ledger.DefaultWelcomeBalance, f.balance(t, b.user))
}

func TestDisconnectCreditsStackOnce(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")
	require.NoError(t, f.host.Sit(context.Background(), u.session, poker.AnySeat, 750))
	require.Equal(t, 9250.0, f.balance(t, u.user))

	require.NoError(t, f.host.Disconnect(context.Background(), u.session))
	assert.Equal(t, 10000.0, f.balance(t, u.user))
	assert.Empty(t, f.snapshot(t).Players)

	require.NoError(t, f.host.Disconnect(context.Background(), u.session))
	assert.Equal(t, 10000.0, f.balance(t, u.user))

	cashouts := 0
	for _, tx := range f.ledger.Transactions(u.user) {
		if tx.Type == models.TxGameCashout {
			cashouts++
			assert.Equal(t, 750.0, tx.Amount)
		}
	}
	assert.Equal(t, 1, cashouts)
}

func TestDisconnectKeepsSeatWhileAnotherSessionIsOpen(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")
	second := uuid.New()
	_, err := f.host.Join(context.Background(), second, u.user, "alice")
	require.NoError(t, err)
	require.NoError(t, f.host.Sit(context.Background(), u.session, poker.AnySeat, 100))

	require.NoError(t, f.host.Disconnect(context.Background(), u.session))
	p, _ := f.snapshot(t).Player(u.user)
	assert.NotNil(t, p)
	assert.Equal(t, 9900.0, f.balance(t, u.user))

	require.NoError(t, f.host.Disconnect(context.Background(), second))
	p, _ = f.snapshot(t).Player(u.user)
	assert.Nil(t, p)
	assert.Equal(t, 10000.0, f.balance(t, u.user))
}

func TestLeaveKeepsSpectatorSession(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")
	require.NoError(t, f.host.Sit(context.Background(), u.session, poker.AnySeat, 100))
	require.NoError(t, f.host.Leave(context.Background(), u.session))
	assert.Equal(t, 10000.0, f.balance(t, u.user))
	assert.Equal(t, 1, f.host.Info().Sessions)

	assert.ErrorIs(t, f.host.Leave(context.Background(), u.session), ErrNotSeated)
}

func TestDisconnectMidHandForfeitsCommittedChips(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	a := f.join(t, "alice")
	b := f.join(t, "bob")
	require.NoError(t, f.host.Sit(context.Background(), a.session, 0, 100))
	require.NoError(t, f.host.Sit(context.Background(), b.session, 1, 100))
	f.waitForHand(t, 1)

	// heads-up: seat 0 holds the button and posts the small blind
	require.NoError(t, f.host.Disconnect(context.Background(), a.session))
	assert.Equal(t, 9999.5, f.balance(t, a.user))

	s := f.snapshot(t)
	assert.False(t, s.HandActive)
	p, _ := s.Player(b.user)
	require.NotNil(t, p)
	assert.Equal(t, 100.5, p.ChipBalance)

	// only the posted blind counts against the leaver's lifetime result
	ua, _ := f.ledger.User(a.user)
	ub, _ := f.ledger.User(b.user)
	assert.Equal(t, 1, ua.TotalHands)
	assert.Equal(t, -0.5, ua.TotalWinnings)
	assert.Equal(t, 0.5, ub.TotalWinnings)

	require.NoError(t, f.host.Close(context.Background()))
	assert.Equal(t, 10000.5, f.balance(t, b.user))
}

func TestLeaverResultIgnoresRejoin(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	a := f.join(t, "alice")
	b := f.join(t, "bob")
	c := f.join(t, "carol")
	require.NoError(t, f.host.Sit(context.Background(), a.session, 0, 100))
	require.NoError(t, f.host.Sit(context.Background(), b.session, 1, 100))
	require.NoError(t, f.host.Sit(context.Background(), c.session, 2, 100))
	f.waitForHand(t, 1)

	// three-handed the hand plays on after one player stands up
	var leaver, rest []seatedUser
	s := f.snapshot(t)
	for _, u := range []seatedUser{a, b, c} {
		if p, _ := s.Player(u.user); p.CurrentBet == 0 && len(leaver) == 0 {
			leaver = append(leaver, u)
		} else {
			rest = append(rest, u)
		}
	}
	require.Len(t, leaver, 1)
	require.NoError(t, f.host.Leave(context.Background(), leaver[0].session))
	require.NoError(t, f.host.Sit(context.Background(), leaver[0].session, poker.AnySeat, 50))
	require.True(t, f.snapshot(t).HandActive)
	f.checkDown(t, rest...)

	u, _ := f.ledger.User(leaver[0].user)
	assert.Equal(t, 1, u.TotalHands)
	assert.Equal(t, 0.0, u.TotalWinnings)
}

func TestRebuyDebitsLedger(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")
	require.NoError(t, f.host.Sit(context.Background(), u.session, poker.AnySeat, 100))
	require.NoError(t, f.host.Rebuy(context.Background(), u.session, 40))
	assert.Equal(t, 9860.0, f.balance(t, u.user))

	p, _ := f.snapshot(t).Player(u.user)
	assert.Equal(t, 140.0, p.ChipBalance)

	assert.ErrorIs(t, f.host.Rebuy(context.Background(), u.session, 20000), ErrInsufficientFunds)
	p, _ = f.snapshot(t).Player(u.user)
	assert.Equal(t, 140.0, p.ChipBalance)
}

func TestShowdownSettlesRakeAndStats(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	referrer := uuid.New()
	f.ledger.PutUser(models.User{ID: referrer, Username: "partner", ReferralRank: models.RankPartner})

	a := f.join(t, "alice")
	b := f.join(t, "bob")
	for _, id := range []uuid.UUID{a.user, b.user} {
		u, _ := f.ledger.User(id)
		u.ReferredBy = referrer
		f.ledger.PutUser(u)
	}
	require.NoError(t, f.host.Sit(context.Background(), a.session, 0, 200))
	require.NoError(t, f.host.Sit(context.Background(), b.session, 1, 200))
	f.waitForHand(t, 1)

	// the button opens to 20 and is called, then both check down
	opener := a
	if f.snapshot(t).CurrentTurnPlayerID == b.user {
		opener = b
	}
	require.NoError(t, f.host.Act(context.Background(), opener.session, models.ActionRaise, 20))
	f.checkDown(t, a, b)

	s := f.snapshot(t)
	require.Equal(t, models.PhaseShowdown, s.Phase)
	// pot of 40 at the 5% tier
	assert.Equal(t, 2.0, s.Rake)

	f.rake.mu.Lock()
	assert.Equal(t, 0.1, f.rake.jackpot)
	assert.Equal(t, 0.1, f.rake.globalPool)
	f.rake.mu.Unlock()

	// partner override is half the rake, operator keeps the rest
	assert.Equal(t, 1.0, f.balance(t, referrer))
	assert.Equal(t, 0.8, f.balance(t, f.operator))
	ref, _ := f.ledger.User(referrer)
	assert.Equal(t, 1.0, ref.ReferralEarnings)

	ua, _ := f.ledger.User(a.user)
	ub, _ := f.ledger.User(b.user)
	assert.Equal(t, 1, ua.TotalHands)
	assert.Equal(t, 1, ub.TotalHands)
	assert.InDelta(t, -2.0, ua.TotalWinnings+ub.TotalWinnings, 1e-9)

	records := f.history.all()
	require.Len(t, records, 1)
	assert.Equal(t, s.HandID, records[0].HandID)
	require.NotNil(t, records[0].Fairness)
	assert.Len(t, records[0].Fairness.Deck, poker.DeckSize)
	assert.NoError(t, poker.Verify(*records[0].Fairness))

	reveals := f.transport.broadcastsOf(EventFairnessReveal)
	require.Len(t, reveals, 1)
	assert.Equal(t, s.Fairness.CommitmentHash, reveals[0].Reveal.CommitmentHash)

	require.NoError(t, f.host.Close(context.Background()))
	total := f.balance(t, a.user) + f.balance(t, b.user)
	assert.InDelta(t, 19998.0, total, 1e-9)
}

func TestPlayersOnlySeeOwnCards(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	a := f.join(t, "alice")
	b := f.join(t, "bob")
	require.NoError(t, f.host.Sit(context.Background(), a.session, 0, 100))
	require.NoError(t, f.host.Sit(context.Background(), b.session, 1, 100))
	f.waitForHand(t, 1)

	require.Eventually(t, func() bool {
		ev := f.transport.lastTo(a.session, EventTableState)
		return ev != nil && ev.State.HandActive
	}, time.Second, 5*time.Millisecond)
	ev := f.transport.lastTo(a.session, EventTableState)
	own, _ := ev.State.Player(a.user)
	other, _ := ev.State.Player(b.user)
	require.Len(t, own.Hand, 2)
	require.Len(t, other.Hand, 2)
	assert.NotZero(t, own.Hand[0].Rank)
	assert.Zero(t, other.Hand[0].Rank)
	assert.True(t, other.Hand[0].Hidden)
	assert.Empty(t, ev.State.Fairness.ServerSecret)
}

func TestBotsPlayHandsOnTheirOwn(t *testing.T) {
	d := Delays{AutoStart: 1, NextHand: 1, BotThinkMin: 1, BotThinkMax: 2, IdleTimeout: 1000}
	f := newFixture(t, models.ModePractice, d)
	spectator := f.join(t, "watcher")

	require.NoError(t, f.host.AddBots(context.Background(), 3))
	info := f.host.Info()
	assert.Equal(t, 3, info.Occupied)
	assert.Equal(t, 0, info.HumanSeated)

	require.Eventually(t, func() bool {
		return f.snapshot(t).HandNumber >= 5
	}, 5*time.Second, 10*time.Millisecond)

	for _, ev := range f.transport.broadcastsOf(EventFairnessReveal) {
		assert.NoError(t, poker.Verify(*ev.Reveal))
	}
	assert.NotNil(t, f.transport.lastTo(spectator.session, EventTableState))

	// practice tables never touch the ledger
	assert.Empty(t, f.ledger.Transactions(spectator.user))

	require.NoError(t, f.host.RemoveBot(context.Background()))
	assert.Equal(t, 2, f.host.Info().Occupied)
}

func TestAddBotsStopsAtFullTable(t *testing.T) {
	f := newFixture(t, models.ModePractice, Delays{AutoStart: 3_600_000, NextHand: 3_600_000, BotThinkMin: 1, BotThinkMax: 1, IdleTimeout: 1})
	require.NoError(t, f.host.AddBots(context.Background(), 10))
	s := f.snapshot(t)
	assert.Len(t, s.Players, 6)
	names := map[string]bool{}
	for _, p := range s.Players {
		assert.True(t, p.IsBot)
		assert.Equal(t, 100.0, p.ChipBalance)
		names[p.DisplayName] = true
	}
	assert.Len(t, names, 6)
	assert.ErrorIs(t, f.host.AddBots(context.Background(), 1), poker.ErrTableFull)
	assert.ErrorIs(t, newFixture(t, models.ModePractice, fastDelays()).host.RemoveBot(context.Background()), ErrNoBots)
}

func TestClientSeedFeedsNextShuffle(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	a := f.join(t, "alice")
	b := f.join(t, "bob")
	require.NoError(t, f.host.SetClientSeed(context.Background(), a.session, "  lucky-seed  "))
	require.NoError(t, f.host.Sit(context.Background(), a.session, 0, 100))
	require.NoError(t, f.host.Sit(context.Background(), b.session, 1, 100))
	f.waitForHand(t, 1)

	s := f.snapshot(t)
	assert.Equal(t, "lucky-seed", s.Fairness.ClientValue)
	assert.Equal(t, uint64(1), s.Fairness.Nonce)
	assert.Error(t, f.host.SetClientSeed(context.Background(), a.session, "   "))
}

func TestClientSeedTruncatesOnRuneBoundary(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	a := f.join(t, "alice")
	b := f.join(t, "bob")
	assert.ErrorIs(t, f.host.SetClientSeed(context.Background(), a.session, "seed\xff"), poker.ErrInvalidAmount)

	require.NoError(t, f.host.SetClientSeed(context.Background(), a.session, strings.Repeat("a", MaxClientSeedLength-1)+"é"))
	require.NoError(t, f.host.Sit(context.Background(), a.session, 0, 100))
	require.NoError(t, f.host.Sit(context.Background(), b.session, 1, 100))
	f.waitForHand(t, 1)
	f.checkDown(t, a, b)

	reveals := f.transport.broadcastsOf(EventFairnessReveal)
	require.Len(t, reveals, 1)
	raw, err := json.Marshal(reveals[0].Reveal)
	require.NoError(t, err)
	var got models.FairnessReveal
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.True(t, utf8.ValidString(got.ClientValue))
	assert.Equal(t, strings.Repeat("a", MaxClientSeedLength-1), got.ClientValue)
	assert.NoError(t, poker.Verify(got))
}

func TestLedgerOutageLeavesSeatsUntouched(t *testing.T) {
	var flaky *flakyLedger
	f := newFixtureWithLedger(t, models.ModeCash, fastDelays(), func(m *ledger.Memory) Ledger {
		flaky = &flakyLedger{Memory: m}
		return flaky
	})
	u := f.join(t, "alice")
	ctx := context.Background()

	flaky.down.Store(true)
	err := f.host.Sit(ctx, u.session, poker.AnySeat, 100)
	assert.ErrorIs(t, err, ErrLedgerFailure)
	assert.ErrorIs(t, err, errLedgerDown)
	assert.Empty(t, f.snapshot(t).Players)
	assert.Equal(t, ledger.DefaultWelcomeBalance, f.balance(t, u.user))

	flaky.down.Store(false)
	require.NoError(t, f.host.Sit(ctx, u.session, poker.AnySeat, 100))

	flaky.down.Store(true)
	assert.ErrorIs(t, f.host.Rebuy(ctx, u.session, 50), ErrLedgerFailure)
	p, _ := f.snapshot(t).Player(u.user)
	require.NotNil(t, p)
	assert.Equal(t, 100.0, p.ChipBalance)
	assert.Equal(t, 9900.0, f.balance(t, u.user))

	// a failed cash-out keeps the player seated and the session bound so it can be retried
	assert.ErrorIs(t, f.host.Disconnect(ctx, u.session), ErrLedgerFailure)
	p, _ = f.snapshot(t).Player(u.user)
	require.NotNil(t, p)
	assert.Equal(t, 100.0, p.ChipBalance)
	assert.Equal(t, 1, f.host.Info().Sessions)
	assert.Equal(t, 9900.0, f.balance(t, u.user))

	flaky.down.Store(false)
	require.NoError(t, f.host.Disconnect(ctx, u.session))
	assert.Empty(t, f.snapshot(t).Players)
	assert.Equal(t, 0, f.host.Info().Sessions)
	assert.Equal(t, ledger.DefaultWelcomeBalance, f.balance(t, u.user))

	cashouts := 0
	for _, tx := range f.ledger.Transactions(u.user) {
		switch tx.Type {
		case models.TxGameCashout:
			cashouts++
			assert.Equal(t, 100.0, tx.Amount)
		case models.TxGameRebuy:
			t.Errorf("failed rebuy was recorded: %+v", tx)
		}
	}
	assert.Equal(t, 1, cashouts)
}

func TestCloseRefundsAndRejectsFurtherCalls(t *testing.T) {
	f := newFixture(t, models.ModeCash, fastDelays())
	u := f.join(t, "alice")
	require.NoError(t, f.host.Sit(context.Background(), u.session, poker.AnySeat, 300))

	require.NoError(t, f.host.Close(context.Background()))
	<-f.host.Done()
	assert.Equal(t, 10000.0, f.balance(t, u.user))
	assert.Len(t, f.transport.broadcastsOf(EventTableClosed), 1)

	_, err := f.host.Snapshot(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrTableClosed)
	assert.NoError(t, f.host.Close(context.Background()))
}

func TestSpeedScalesDelays(t *testing.T) {
	s := NewSpeed(2)
	assert.Equal(t, 500*time.Millisecond, s.Scale(time.Second))
	assert.Error(t, s.Set(0.1))
	assert.Error(t, s.Set(11))
	assert.Equal(t, 2.0, s.Get())
	require.NoError(t, s.Set(0.5))
	assert.Equal(t, 2*time.Second, s.Scale(time.Second))

	var nilSpeed *Speed
	assert.Equal(t, time.Second, nilSpeed.Scale(time.Second))
}

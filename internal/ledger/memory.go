package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

// Memory is a goroutine-safe in-process ledger. Every balance change is applied under one mutex, so
// adjustments are atomic per account.
type Memory struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	txs     []models.Transaction
	pools   models.PoolBalances
	welcome float64
}

// NewMemory returns an empty ledger that grants welcome to each new account.
func NewMemory(welcome float64) *Memory {
	return &Memory{
		users:   make(map[uuid.UUID]*models.User),
		welcome: welcome,
	}
}

// PutUser inserts or replaces an account.
func (m *Memory) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := u
	m.users[u.ID] = &cp
}

// User returns a copy of an account.
func (m *Memory) User(id uuid.UUID) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// EnsureUser returns the account for id, creating it with the welcome balance when unseen.
func (m *Memory) EnsureUser(_ context.Context, id uuid.UUID, username string) (models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return *u, false, nil
	}
	u := &models.User{ID: id, Username: username, Balance: m.welcome, ReferralRank: models.RankFree}
	m.users[id] = u
	if m.welcome > 0 {
		m.appendLocked(models.Transaction{UserID: id, Type: models.TxWelcomeBonus, Amount: m.welcome})
	}
	return *u, true, nil
}

func (m *Memory) GetBalance(_ context.Context, id uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.Balance, nil
}

// AdjustBalance adds delta to the balance and returns the new amount. A debit that would overdraw
// the account fails without changing it.
func (m *Memory) AdjustBalance(_ context.Context, id uuid.UUID, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	next := poker.Money(u.Balance + delta)
	if next < 0 {
		return u.Balance, ErrInsufficientFunds
	}
	u.Balance = next
	return next, nil
}

func (m *Memory) AppendTransaction(_ context.Context, tx models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(tx)
	return nil
}

func (m *Memory) appendLocked(tx models.Transaction) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	m.txs = append(m.txs, tx)
}

// Transactions lists the records of one account, oldest first.
func (m *Memory) Transactions(id uuid.UUID) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == id {
			out = append(out, tx)
		}
	}
	return out
}

// RecordHand bumps the lifetime hand count and adds the net result to total winnings.
func (m *Memory) RecordHand(_ context.Context, id uuid.UUID, net float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.TotalHands++
	u.TotalWinnings = poker.Money(u.TotalWinnings + net)
	return nil
}

// ReferralChain walks referrers upward from id, nearest first, stopping on cycles.
func (m *Memory) ReferralChain(_ context.Context, id uuid.UUID) ([]models.Referrer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var chain []models.Referrer
	seen := map[uuid.UUID]bool{id: true}
	cur, ok := m.users[id]
	for ok && cur.ReferredBy != uuid.Nil && len(chain) < MaxReferralDepth {
		if seen[cur.ReferredBy] {
			break
		}
		seen[cur.ReferredBy] = true
		ref, found := m.users[cur.ReferredBy]
		if !found {
			break
		}
		chain = append(chain, models.Referrer{UserID: ref.ID, Rank: ref.ReferralRank})
		cur, ok = ref, true
	}
	return chain, nil
}

// AddReferralEarnings tracks lifetime override income.
func (m *Memory) AddReferralEarnings(_ context.Context, id uuid.UUID, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.ReferralEarnings = poker.Money(u.ReferralEarnings + amount)
	return nil
}

// Partners returns partner- and master-rank users with their override earnings.
func (m *Memory) Partners(_ context.Context) ([]models.PartnerActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PartnerActivity
	for _, u := range m.users {
		if u.ReferralRank == models.RankPartner || u.ReferralRank == models.RankMaster {
			out = append(out, models.PartnerActivity{UserID: u.ID, Activity: u.ReferralEarnings})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}

func (m *Memory) TopPlayersByHands(_ context.Context, n int) ([]uuid.UUID, error) {
	return m.top(n, func(a, b *models.User) bool { return a.TotalHands > b.TotalHands }, func(u *models.User) bool { return u.TotalHands > 0 }), nil
}

func (m *Memory) TopPlayersByWinnings(_ context.Context, n int) ([]uuid.UUID, error) {
	return m.top(n, func(a, b *models.User) bool { return a.TotalWinnings > b.TotalWinnings }, func(u *models.User) bool { return u.TotalWinnings > 0 }), nil
}

// LuckyDrawCandidates lists players with at least minHands hands.
func (m *Memory) LuckyDrawCandidates(_ context.Context, minHands int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, u := range m.sortedLocked(func(a, b *models.User) bool { return a.ID.String() < b.ID.String() }) {
		if !u.IsAdmin && u.TotalHands >= minHands {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

func (m *Memory) LoadPools(_ context.Context) (models.PoolBalances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pools, nil
}

func (m *Memory) SavePools(_ context.Context, p models.PoolBalances) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = p
	return nil
}

func (m *Memory) top(n int, less func(a, b *models.User) bool, keep func(*models.User) bool) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, u := range m.sortedLocked(less) {
		if len(out) == n {
			break
		}
		if !u.IsAdmin && keep(u) {
			out = append(out, u.ID)
		}
	}
	return out
}

func (m *Memory) sortedLocked(less func(a, b *models.User) bool) []*models.User {
	all := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if less(all[i], all[j]) {
			return true
		}
		if less(all[j], all[i]) {
			return false
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return all
}

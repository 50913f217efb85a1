// internal/distribution/scheduler.go
package distribution

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

const (
	// GlobalPoolThreshold triggers a partner pool payout once reached.
	GlobalPoolThreshold = 100.0
	// JackpotSchedule fires at midnight UTC on the first of every month.
	JackpotSchedule = "0 0 1 * *"

	TopPlayersPercent = 30
	TopEarnersPercent = 30

	LuckyWinners  = 10
	LuckyMinHands = 10

	PoolGlobal  = "global_partner_pool"
	PoolJackpot = "monthly_jackpot"
)

// TierPercents splits a leaderboard share among first, second and third place.
var TierPercents = []int64{50, 30, 20}

// Store is the persistence the scheduler pays out through.
type Store interface {
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta float64) (float64, error)
	AppendTransaction(ctx context.Context, tx models.Transaction) error
	Partners(ctx context.Context) ([]models.PartnerActivity, error)
	TopPlayersByHands(ctx context.Context, n int) ([]uuid.UUID, error)
	TopPlayersByWinnings(ctx context.Context, n int) ([]uuid.UUID, error)
	LuckyDrawCandidates(ctx context.Context, minHands int) ([]uuid.UUID, error)
	LoadPools(ctx context.Context) (models.PoolBalances, error)
	SavePools(ctx context.Context, p models.PoolBalances) error
}

// Mirror publishes pool balances to a read-side cache.
type Mirror interface {
	MirrorPools(ctx context.Context, p models.PoolBalances) error
}

// Payout is one credit made by a distribution.
type Payout struct {
	UserID uuid.UUID              `json:"userId"`
	Type   models.TransactionType `json:"type"`
	Amount float64                `json:"amount"`
}

// Report describes a finished distribution. Carried is what stayed in the pool.
type Report struct {
	Pool        string    `json:"pool"`
	Distributed float64   `json:"distributed"`
	Carried     float64   `json:"carried"`
	Payouts     []Payout  `json:"payouts"`
	At          time.Time `json:"at"`
}

// Scheduler owns the two rake pools. It is constructed once per process and shared by every table.
type Scheduler struct {
	mu     sync.Mutex
	store  Store
	mirror Mirror
	log    *logrus.Entry
	pools  models.PoolBalances
	random io.Reader
	cron   *cron.Cron
}

// New loads the persisted pool balances. mirror may be nil.
func New(ctx context.Context, store Store, mirror Mirror, logger *logrus.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	pools, err := store.LoadPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool balances: %w", err)
	}
	s := &Scheduler{
		store:  store,
		mirror: mirror,
		log:    logger.WithField("component", "distribution"),
		pools:  pools,
		random: rand.Reader,
	}
	s.log.WithFields(logrus.Fields{
		"global_pool": pools.GlobalPartnerPool,
		"jackpot":     pools.MonthlyJackpotPool,
	}).Info("pool balances loaded")
	return s, nil
}

// Start schedules the monthly jackpot.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(JackpotSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.DistributeJackpot(ctx); err != nil {
			s.log.WithError(err).Error("scheduled jackpot distribution failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule jackpot: %w", err)
	}
	c.Start()
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	s.log.WithField("schedule", JackpotSchedule).Info("jackpot schedule started")
	return nil
}

// Stop halts the schedule and waits for a running distribution to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Balances returns the current pool balances.
func (s *Scheduler) Balances() models.PoolBalances {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pools
}

// AddRake adds one hand's pool shares. Reaching the threshold pays out the global pool.
func (s *Scheduler) AddRake(ctx context.Context, jackpot, globalPool float64) error {
	if jackpot <= 0 && globalPool <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools.MonthlyJackpotPool = poker.Money(s.pools.MonthlyJackpotPool + math.Max(jackpot, 0))
	s.pools.GlobalPartnerPool = poker.Money(s.pools.GlobalPartnerPool + math.Max(globalPool, 0))
	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	if s.pools.GlobalPartnerPool >= GlobalPoolThreshold {
		if _, err := s.distributeGlobalLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DistributeGlobalPool pays the global pool to partners now, regardless of the threshold.
func (s *Scheduler) DistributeGlobalPool(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distributeGlobalLocked(ctx)
}

// distributeGlobalLocked splits the pool by partner activity, or equally when no partner has any.
// With no partners the pool is kept.
func (s *Scheduler) distributeGlobalLocked(ctx context.Context) (Report, error) {
	rep := Report{Pool: PoolGlobal, At: time.Now().UTC()}
	total := cents(s.pools.GlobalPartnerPool)
	if total <= 0 {
		return rep, nil
	}
	partners, err := s.store.Partners(ctx)
	if err != nil {
		return rep, fmt.Errorf("failed to load partners: %w", err)
	}
	if len(partners) == 0 {
		s.log.Info("no partners, global pool kept")
		rep.Carried = fromCents(total)
		return rep, nil
	}

	weights := make([]float64, len(partners))
	sum := 0.0
	for i, p := range partners {
		weights[i] = math.Max(p.Activity, 0)
		sum += weights[i]
	}
	if sum == 0 {
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}
	shares := splitByWeight(total, weights, sum)

	paid := int64(0)
	for i, p := range partners {
		if shares[i] <= 0 {
			continue
		}
		if s.creditLocked(ctx, &rep, p.UserID, shares[i], models.TxGlobalPoolShare) {
			paid += shares[i]
		}
	}

	s.pools.GlobalPartnerPool = fromCents(total - paid)
	rep.Distributed = fromCents(paid)
	rep.Carried = s.pools.GlobalPartnerPool
	s.log.WithFields(logrus.Fields{"paid": rep.Distributed, "partners": len(rep.Payouts)}).Info("global pool distributed")
	return rep, s.persistLocked(ctx)
}

// DistributeJackpot pays the monthly jackpot: 30% to the top three by hands, 30% to the top three
// by winnings and 40% equally to up to ten lucky players drawn with a crypto shuffle. Unpaid
// remainders stay in the jackpot.
func (s *Scheduler) DistributeJackpot(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := Report{Pool: PoolJackpot, At: time.Now().UTC()}
	total := cents(s.pools.MonthlyJackpotPool)
	if total <= 0 {
		s.log.Info("jackpot empty, nothing to distribute")
		return rep, nil
	}
	topShare := total * TopPlayersPercent / 100
	earnerShare := total * TopEarnersPercent / 100
	luckyShare := total - topShare - earnerShare

	byHands, err := s.store.TopPlayersByHands(ctx, len(TierPercents))
	if err != nil {
		return rep, fmt.Errorf("failed to rank players by hands: %w", err)
	}
	byWinnings, err := s.store.TopPlayersByWinnings(ctx, len(TierPercents))
	if err != nil {
		return rep, fmt.Errorf("failed to rank players by winnings: %w", err)
	}
	candidates, err := s.store.LuckyDrawCandidates(ctx, LuckyMinHands)
	if err != nil {
		return rep, fmt.Errorf("failed to load lucky draw candidates: %w", err)
	}

	paid := int64(0)
	for i, id := range byHands {
		if i < len(TierPercents) && s.creditLocked(ctx, &rep, id, topShare*TierPercents[i]/100, models.TxJackpotTopPlayer) {
			paid += topShare * TierPercents[i] / 100
		}
	}
	for i, id := range byWinnings {
		if i < len(TierPercents) && s.creditLocked(ctx, &rep, id, earnerShare*TierPercents[i]/100, models.TxJackpotTopEarner) {
			paid += earnerShare * TierPercents[i] / 100
		}
	}

	if len(candidates) > 0 {
		if err := cryptoShuffle(s.random, candidates); err != nil {
			return rep, fmt.Errorf("failed to draw lucky winners: %w", err)
		}
		winners := candidates[:min(LuckyWinners, len(candidates))]
		each := luckyShare / int64(len(winners))
		for _, id := range winners {
			if s.creditLocked(ctx, &rep, id, each, models.TxJackpotLucky) {
				paid += each
			}
		}
	}

	s.pools.MonthlyJackpotPool = fromCents(total - paid)
	rep.Distributed = fromCents(paid)
	rep.Carried = s.pools.MonthlyJackpotPool
	s.log.WithFields(logrus.Fields{
		"paid":    rep.Distributed,
		"carried": rep.Carried,
		"payouts": len(rep.Payouts),
	}).Info("jackpot distributed")
	return rep, s.persistLocked(ctx)
}

// creditLocked pays one user. A failed credit is logged and the amount stays in the pool.
func (s *Scheduler) creditLocked(ctx context.Context, rep *Report, userID uuid.UUID, amount int64, kind models.TransactionType) bool {
	if amount <= 0 {
		return false
	}
	v := fromCents(amount)
	if _, err := s.store.AdjustBalance(ctx, userID, v); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user": userID, "type": kind}).Error("failed to credit distribution")
		return false
	}
	tx := models.Transaction{ID: uuid.New(), UserID: userID, Type: kind, Amount: v, CreatedAt: time.Now().UTC()}
	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		s.log.WithError(err).WithField("user", userID).Error("failed to log distribution transaction")
	}
	rep.Payouts = append(rep.Payouts, Payout{UserID: userID, Type: kind, Amount: v})
	return true
}

func (s *Scheduler) persistLocked(ctx context.Context) error {
	if err := s.store.SavePools(ctx, s.pools); err != nil {
		return fmt.Errorf("failed to save pool balances: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.MirrorPools(ctx, s.pools); err != nil {
			s.log.WithError(err).Warn("failed to mirror pool balances")
		}
	}
	return nil
}

// splitByWeight divides total cents proportionally. Rounding leftovers go one cent each from the
// front, so the parts always sum to total.
func splitByWeight(total int64, weights []float64, sum float64) []int64 {
	out := make([]int64, len(weights))
	given := int64(0)
	for i, w := range weights {
		out[i] = int64(math.Floor(float64(total) * w / sum))
		given += out[i]
	}
	for i := 0; given < total; i = (i + 1) % len(out) {
		if weights[i] > 0 {
			out[i]++
			given++
		}
	}
	return out
}

// cryptoShuffle is a Fisher-Yates shuffle drawing unbiased indices from r.
func cryptoShuffle(r io.Reader, ids []uuid.UUID) error {
	for i := len(ids) - 1; i > 0; i-- {
		n, err := rand.Int(r, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		ids[i], ids[j] = ids[j], ids[i]
	}
	return nil
}

func cents(v float64) int64 {
	return int64(math.Round(poker.Money(v) * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

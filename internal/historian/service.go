// internal/historian/service.go drains settled hands from a Redis queue and persists them to
// PostgreSQL in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/database"
	"github.com/jason-s-yu/holdem/internal/models"
)

const popTimeout = 3 * time.Second

// Source yields raw queued payloads. Pop returns "" when nothing arrived before the timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

// Store persists hand batches and table inactivity.
type Store interface {
	InsertHands(ctx context.Context, recs []models.HandRecord) error
	MarkTableIdle(ctx context.Context, tableID string) error
}

// Config tunes batching and the inactivity sweep.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
	SweepEvery time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		Inactivity: 10 * time.Minute,
		SweepEvery: time.Minute,
	}
}

// Service batches hand records from the queue into the store, and marks tables idle once no hand
// has arrived for them within the inactivity window.
type Service struct {
	src   Source
	store Store
	cfg   Config
	log   *logrus.Entry

	lastActivity sync.Map // table id -> time.Time

	batchMu sync.Mutex
	batch   []models.HandRecord
	flushed int
}

func New(src Source, store Store, cfg Config, logger *logrus.Logger) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = def.Inactivity
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = def.SweepEvery
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		src:   src,
		store: store,
		cfg:   cfg,
		log:   logger.WithField("component", "historian"),
		batch: make([]models.HandRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.flushLoop(ctx) }()
	go func() { defer wg.Done(); s.inactivityLoop(ctx) }()

	s.log.Info("historian started")
	<-ctx.Done()
	wg.Wait()
	s.Flush(context.Background())
	s.log.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		payload, err := s.src.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("pop failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if payload == "" {
			continue
		}
		s.Ingest(ctx, payload)
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(ctx, now)
		}
	}
}

// Ingest decodes one payload and buffers it, flushing when the batch is full.
func (s *Service) Ingest(ctx context.Context, payload string) {
	var rec models.HandRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.log.WithError(err).Warn("invalid hand record")
		return
	}
	if rec.TableID == "" {
		s.log.WithField("hand", rec.HandID).Warn("hand record without table")
		return
	}
	s.lastActivity.Store(rec.TableID, time.Now())

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

// Flush writes the buffered batch in one transaction. A failed batch is put back at the front of
// the buffer and retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}
	pending := make([]models.HandRecord, len(s.batch))
	copy(pending, s.batch)

	if err := s.store.InsertHands(ctx, pending); err != nil {
		s.log.WithError(err).WithField("count", len(pending)).Error("failed to flush hands")
		return
	}
	s.batch = s.batch[:0]
	s.flushed += len(pending)
	s.log.WithField("count", len(pending)).Debug("flushed hands")
}

// Sweep marks tables idle when their last hand is older than the inactivity window.
func (s *Service) Sweep(ctx context.Context, now time.Time) []string {
	var idle []string
	s.lastActivity.Range(func(key, val any) bool {
		tableID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > s.cfg.Inactivity {
			if err := s.store.MarkTableIdle(ctx, tableID); err != nil {
				s.log.WithError(err).WithField("table", tableID).Warn("failed to mark table idle")
				return true
			}
			s.lastActivity.Delete(tableID)
			idle = append(idle, tableID)
		}
		return true
	})
	return idle
}

// Pending is the number of buffered records.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Flushed is the number of records written so far.
func (s *Service) Flushed() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return s.flushed
}

// RedisSource pops from a Redis list with BLPOP.
type RedisSource struct {
	rdb   *redis.Client
	queue string
}

func NewRedisSource(rdb *redis.Client, queue string) *RedisSource {
	return &RedisSource{rdb: rdb, queue: queue}
}

func (r *RedisSource) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := r.rdb.BLPop(ctx, timeout, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("BLPop %s: %w", r.queue, err)
	}
	// res[0] is the queue name and res[1] the payload
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// PostgresStore writes through the database package.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func (p PostgresStore) InsertHands(ctx context.Context, recs []models.HandRecord) error {
	return database.InsertHandRecords(ctx, p.Pool, recs)
}

func (p PostgresStore) MarkTableIdle(ctx context.Context, tableID string) error {
	return database.MarkTableIdle(ctx, p.Pool, tableID)
}

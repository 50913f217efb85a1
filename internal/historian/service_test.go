package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/holdem/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]models.HandRecord
	idle    []string
	failing bool
}

func (f *fakeStore) InsertHands(_ context.Context, recs []models.HandRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("db down")
	}
	f.batches = append(f.batches, append([]models.HandRecord(nil), recs...))
	return nil
}

func (f *fakeStore) MarkTableIdle(_ context.Context, tableID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle = append(f.idle, tableID)
	return nil
}

func (f *fakeStore) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

// chanSource feeds payloads from a channel.
type chanSource chan string

func (c chanSource) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case p := <-c:
		return p, nil
	case <-time.After(10 * time.Millisecond):
		return "", nil
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func payload(t *testing.T, table string, n int) string {
	t.Helper()
	b, err := json.Marshal(models.HandRecord{HandID: uuid.New(), TableID: table, HandNumber: n, Mode: models.ModeCash})
	require.NoError(t, err)
	return string(b)
}

func TestIngestFlushesFullBatch(t *testing.T) {
	store := &fakeStore{}
	s := New(nil, store, Config{BatchSize: 3, FlushDelay: time.Hour}, quietLogger())
	ctx := context.Background()

	s.Ingest(ctx, payload(t, "t1", 1))
	s.Ingest(ctx, payload(t, "t1", 2))
	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 0, store.total())

	s.Ingest(ctx, payload(t, "t1", 3))
	assert.Equal(t, 0, s.Pending())
	require.Len(t, store.batches, 1)
	assert.Equal(t, 3, store.batches[0][2].HandNumber)
	assert.Equal(t, 3, s.Flushed())
}

func TestIngestDropsInvalidPayloads(t *testing.T) {
	s := New(nil, &fakeStore{}, Config{}, quietLogger())
	s.Ingest(context.Background(), "{not json")
	s.Ingest(context.Background(), `{"hand_number":4}`)
	assert.Equal(t, 0, s.Pending())
}

func TestFailedFlushIsRetried(t *testing.T) {
	store := &fakeStore{failing: true}
	s := New(nil, store, Config{BatchSize: 10}, quietLogger())
	ctx := context.Background()

	s.Ingest(ctx, payload(t, "t1", 1))
	s.Flush(ctx)
	assert.Equal(t, 1, s.Pending())

	store.failing = false
	s.Flush(ctx)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1, store.total())
}

func TestSweepMarksInactiveTables(t *testing.T) {
	store := &fakeStore{}
	s := New(nil, store, Config{Inactivity: time.Minute}, quietLogger())
	ctx := context.Background()

	s.Ingest(ctx, payload(t, "quiet", 1))
	s.Ingest(ctx, payload(t, "busy", 1))
	s.lastActivity.Store("quiet", time.Now().Add(-2*time.Minute))

	idle := s.Sweep(ctx, time.Now())
	assert.Equal(t, []string{"quiet"}, idle)
	assert.Empty(t, s.Sweep(ctx, time.Now()))
	assert.Equal(t, []string{"quiet"}, store.idle)
}

func TestRunDrainsSourceAndFlushesOnStop(t *testing.T) {
	store := &fakeStore{}
	src := make(chanSource, 8)
	s := New(src, store, Config{BatchSize: 100, FlushDelay: time.Hour}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 1; i <= 5; i++ {
		src <- payload(t, "t1", i)
	}
	require.Eventually(t, func() bool { return s.Pending() == 5 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Equal(t, 5, store.total())
}

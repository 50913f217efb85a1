package table

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const reapInterval = time.Minute

// Registry maps table ids to live hosts.
type Registry struct {
	mu     sync.Mutex
	tables map[string]*Host
	deps   Deps
	log    *logrus.Entry
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Delays == (Delays{}) {
		deps.Delays = DefaultDelays()
	}
	return &Registry{
		tables: make(map[string]*Host),
		deps:   deps,
		log:    deps.Logger.WithField("component", "registry"),
	}
}

// Create starts a new table. It fails with ErrTableExists when the id is taken.
func (r *Registry) Create(cfg Config) (*Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[cfg.TableID]; ok {
		return nil, ErrTableExists
	}
	return r.startLocked(cfg), nil
}

// GetOrCreate returns the table with cfg.TableID, starting it from cfg if needed.
func (r *Registry) GetOrCreate(cfg Config) *Host {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.tables[cfg.TableID]; ok {
		return h
	}
	return r.startLocked(cfg)
}

func (r *Registry) startLocked(cfg Config) *Host {
	h := NewHost(cfg, r.deps)
	r.tables[cfg.TableID] = h
	Metrics.SetLiveTables(len(r.tables))
	r.log.WithFields(logrus.Fields{"table": cfg.TableID, "mode": h.cfg.Mode}).Info("table created")

	go func() {
		<-h.Done()
		r.mu.Lock()
		if r.tables[cfg.TableID] == h {
			delete(r.tables, cfg.TableID)
		}
		Metrics.SetLiveTables(len(r.tables))
		r.mu.Unlock()
	}()
	return h
}

func (r *Registry) Get(id string) (*Host, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tables[id]
	return h, ok
}

// List returns the lobby info of every table, ordered by id.
func (r *Registry) List() []TableInfo {
	r.mu.Lock()
	out := make([]TableInfo, 0, len(r.tables))
	for _, h := range r.tables {
		out = append(out, h.Info())
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CloseTable closes and forgets a table.
func (r *Registry) CloseTable(ctx context.Context, id string) error {
	r.mu.Lock()
	h, ok := r.tables[id]
	delete(r.tables, id)
	Metrics.SetLiveTables(len(r.tables))
	r.mu.Unlock()
	if !ok {
		return ErrTableClosed
	}
	return h.Close(ctx)
}

// ReapIdle closes non-persistent tables with no seated humans and no activity for the idle
// timeout. It returns the ids it closed.
func (r *Registry) ReapIdle(ctx context.Context, now time.Time) []string {
	idle := ms(r.deps.Delays.IdleTimeout)
	var victims []string
	r.mu.Lock()
	for id, h := range r.tables {
		info := h.Info()
		if info.Persistent || info.HumanSeated > 0 || info.Sessions > 0 {
			continue
		}
		if now.Sub(h.LastActivity()) >= idle {
			victims = append(victims, id)
		}
	}
	r.mu.Unlock()

	sort.Strings(victims)
	for _, id := range victims {
		if err := r.CloseTable(ctx, id); err != nil {
			r.log.WithError(err).WithField("table", id).Warn("failed to reap table")
			continue
		}
		r.log.WithField("table", id).Info("reaped idle table")
	}
	return victims
}

// Run reaps idle tables until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.ReapIdle(ctx, now)
		}
	}
}

// Shutdown closes every table, refunding seated players.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	hosts := make([]*Host, 0, len(r.tables))
	for id, h := range r.tables {
		hosts = append(hosts, h)
		delete(r.tables, id)
	}
	Metrics.SetLiveTables(0)
	r.mu.Unlock()

	for _, h := range hosts {
		if err := h.Close(ctx); err != nil {
			r.log.WithError(err).WithField("table", h.ID()).Error("failed to close table")
		}
	}
}

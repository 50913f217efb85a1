// internal/handlers/table_server.go
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/table"
)

// HandHistoryFunc loads the most recent settled hands of a table.
type HandHistoryFunc func(ctx context.Context, tableID string, limit int) ([]models.HandRecord, error)

// TableServer bundles what the table endpoints need.
type TableServer struct {
	Registry *table.Registry
	Hub      *Hub
	Logger   *logrus.Logger

	// Defaults configure tables created on first join. A zero TableID in Defaults is replaced by
	// the requested id. AutoCreate false makes unknown ids a 404.
	Defaults   table.Config
	AutoCreate bool

	// History is optional; without it the hands endpoint answers 501.
	History HandHistoryFunc
}

func NewTableServer(reg *table.Registry, hub *Hub, logger *logrus.Logger) *TableServer {
	return &TableServer{
		Registry:   reg,
		Hub:        hub,
		Logger:     logger,
		Defaults:   table.Config{MaxSeats: 6, SmallBlind: 1, BigBlind: 2, Mode: models.ModeCash},
		AutoCreate: true,
	}
}

// lookup returns the live table, creating it from Defaults when allowed.
func (ts *TableServer) lookup(id string) (*table.Host, bool) {
	if h, ok := ts.Registry.Get(id); ok {
		return h, true
	}
	if !ts.AutoCreate || id == "" {
		return nil, false
	}
	cfg := ts.Defaults
	cfg.TableID = id
	return ts.Registry.GetOrCreate(cfg), true
}

// ListTablesHandler serves GET /tables.
func (ts *TableServer) ListTablesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ts.Logger, http.StatusOK, ts.Registry.List())
}

// RecentHandsHandler serves GET /tables/{tableID}/hands?limit=n.
func (ts *TableServer) RecentHandsHandler(w http.ResponseWriter, r *http.Request) {
	if ts.History == nil {
		http.Error(w, "hand history is not enabled", http.StatusNotImplemented)
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}
	hands, err := ts.History(r.Context(), r.PathValue("tableID"), limit)
	if err != nil {
		ts.Logger.WithError(err).Error("failed to load hand history")
		http.Error(w, "failed to load hands", http.StatusInternalServerError)
		return
	}
	writeJSON(w, ts.Logger, http.StatusOK, hands)
}

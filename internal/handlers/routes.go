package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jason-s-yu/holdem/internal/middleware"
)

// Routes mounts the public table endpoints, the admin endpoints and /metrics.
func Routes(ts *TableServer, as *AdminServer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tables", ts.ListTablesHandler)
	mux.HandleFunc("GET /tables/{tableID}/hands", ts.RecentHandsHandler)
	mux.HandleFunc("GET /table/ws/{tableID}", ts.TableWSHandler)
	mux.HandleFunc("POST /user/guest", ts.GuestHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	if as != nil {
		mux.HandleFunc("POST /admin/login", as.LoginHandler)
		mux.Handle("POST /admin/command", middleware.RequireAdmin(ts.Logger)(http.HandlerFunc(as.CommandHandler)))
	}
	return middleware.LogMiddleware(ts.Logger)(mux)
}

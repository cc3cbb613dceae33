package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bdobrica/Hisho/common/version"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stats is the runtime snapshot reported by GET /status.
type Stats struct {
	PendingReminders int
	ActiveSessions   int
	ActiveUsers      int
	NotesBackend     string
}

// HealthServer exposes /health and /status.
// It is optional; Hisho runs without it when the HTTP address is empty.
type HealthServer struct {
	addr      string
	db        Pinger
	stats     func() Stats
	startedAt time.Time
	server    *http.Server
	router    chi.Router
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status           string    `json:"status"`
	Version          string    `json:"version"`
	Commit           string    `json:"commit"`
	BuildTime        string    `json:"build_time"`
	StartedAt        time.Time `json:"started_at"`
	UptimeSecs       float64   `json:"uptime_seconds"`
	PendingReminders int       `json:"pending_reminders"`
	ActiveSessions   int       `json:"active_sessions"`
	ActiveUsers      int       `json:"active_users"`
	NotesBackend     string    `json:"notes_backend"`
}

// NewHealthServer creates and configures the HTTP server (does not start it).
// db and stats may be nil.
func NewHealthServer(addr string, db Pinger, stats func() Stats) *HealthServer {
	hs := &HealthServer{
		addr:      addr,
		db:        db,
		stats:     stats,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Get("/health", hs.handleHealth)
	r.Get("/status", hs.handleStatus)
	hs.router = r
	return hs
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener.
func (h *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Start begins listening in the background. It returns once the listener is
// bound so the caller knows the port is open.
func (h *HealthServer) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("health server: listen %s: %w", h.addr, err)
	}

	h.server = &http.Server{
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("health server listening", "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("health server stopped", "err", err)
		}
	}()
	return nil
}

// Stop shuts down the HTTP server.
func (h *HealthServer) Stop() {
	if h.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		slog.Warn("health server shutdown error", "err", err)
	}
}

// handleHealth answers 200 while the database responds and 503 otherwise.
func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Error = "database unreachable"
			slog.Warn("health: database ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st Stats
	if h.stats != nil {
		st = h.stats()
	}
	resp := statusResponse{
		Status:           "ok",
		Version:          version.Version,
		Commit:           version.GitCommit,
		BuildTime:        version.BuildTime,
		StartedAt:        h.startedAt,
		UptimeSecs:       time.Since(h.startedAt).Seconds(),
		PendingReminders: st.PendingReminders,
		ActiveSessions:   st.ActiveSessions,
		ActiveUsers:      st.ActiveUsers,
		NotesBackend:     st.NotesBackend,
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("health: failed to encode JSON response", "err", err)
	}
}

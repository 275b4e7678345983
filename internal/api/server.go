package api

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/schaermu/autosyncd/internal/config"
	autosync "github.com/schaermu/autosyncd/internal/sync"
	"github.com/schaermu/autosyncd/internal/watch"
)

// StatusSource exposes the engine state the status endpoint reports
type StatusSource interface {
	LastResult() *autosync.Result
	LastSync() time.Time
}

// Server implements the HTTP trigger/status server. It only ever marks a
// pending change; cycles stay owned by the sync loop, which keeps the
// single-clearer invariant on the pending flag intact.
type Server struct {
	cfg    *config.Config
	agg    *watch.Aggregator
	status StatusSource
	logger *slog.Logger
	token  []byte
}

// NewServer creates the trigger/status server
func NewServer(cfg *config.Config, agg *watch.Aggregator, status StatusSource, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		agg:    agg,
		status: status,
		logger: logger,
	}

	if cfg.Serve.AuthTokenFile != "" {
		token, err := os.ReadFile(cfg.Serve.AuthTokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read auth token file: %w", err)
		}
		s.token = []byte(strings.TrimSpace(string(token)))
	}

	return s, nil
}

// Start runs the HTTP server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Serve.ListenAddr,
		Handler:           s.handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", "addr", s.cfg.Serve.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handler builds the route table. Exposed to tests.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// handleSync marks a pending change, as if a filesystem event had arrived
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		s.logger.Warn("rejected sync trigger: invalid token", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.agg.Trigger("api request from " + r.RemoteAddr)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

// handleStatus reports the pending flag and the last cycle outcome
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type statusResponse struct {
		Pending    bool             `json:"pending"`
		LastEvent  watch.Event      `json:"last_event"`
		LastSync   time.Time        `json:"last_sync"`
		LastResult *autosync.Result `json:"last_result,omitempty"`
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		Pending:    s.agg.HasPending(),
		LastEvent:  s.agg.Last(),
		LastSync:   s.status.LastSync(),
		LastResult: s.status.LastResult(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorized validates the bearer token when one is configured
func (s *Server) authorized(r *http.Request) bool {
	if len(s.token) == 0 {
		return true
	}
	auth := r.Header.Get("Authorization")
	got, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		return false
	}
	return hmac.Equal([]byte(got), s.token)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

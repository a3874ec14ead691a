package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"contract-compliance-monitor/internal/version"
)

// QueueInfo is the dispatch queue section of the status payload.
type QueueInfo struct {
	Depth    int   `json:"depth"`
	Capacity int   `json:"capacity"`
	Dropped  int64 `json:"dropped"`
}

// Server serves /healthz and /status on a dedicated listener.
type Server struct {
	addr   string
	stats  *Stats
	queue  func() QueueInfo
	logger zerolog.Logger
}

// NewServer constructs the ops server. queue may be nil when no dispatcher
// is running.
func NewServer(addr string, stats *Stats, queue func() QueueInfo, logger zerolog.Logger) *Server {
	return &Server{
		addr:   addr,
		stats:  stats,
		queue:  queue,
		logger: logger.With().Str("component", "ops_server").Logger(),
	}
}

// Run blocks serving HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("ops server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]string{
		"status":  "ok",
		"version": version.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode healthz response")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"version": version.Version,
		"stats":   s.stats.Snapshot(),
	}
	if s.queue != nil {
		payload["queue"] = s.queue()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode status response")
	}
}

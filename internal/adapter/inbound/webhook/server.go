package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonny/insight-bot/internal/adapter/inbound/webhook/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	RateLimitEnabled  bool
	RequestsPerMinute int
	Burst             int

	// SigningSecret verifies requests under /slack/.
	SigningSecret string
}

// RouteRegistrar mounts a set of routes on a mux.
type RouteRegistrar interface {
	Register(mux *http.ServeMux)
}

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	cfg    ServerConfig
	slack  RouteRegistrar
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates a new Server. slack may be nil, in which case only the
// health endpoint is served.
func NewServer(cfg ServerConfig, slack RouteRegistrar, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg:    cfg,
		slack:  slack,
		logger: logger,
	}
}

// SetupRoutes builds and returns an http.Handler with all middleware applied.
// Route layout:
//
//	GET  /health              - Health check
//	POST /slack/events        - Slack Events API (signed)
//	POST /slack/interactions  - Slack interactivity (signed)
//	POST /slack/commands      - Slack slash commands (signed)
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", HealthHandler())

	if s.slack != nil {
		slackMux := http.NewServeMux()
		s.slack.Register(slackMux)
		mux.Handle("/slack/", middleware.SlackSignature(s.cfg.SigningSecret)(slackMux))
	}

	// Apply middleware stack (outermost = first to execute):
	//   SecurityHeaders -> BodyReader -> Logging -> RateLimit
	var h http.Handler = mux
	if s.cfg.RateLimitEnabled {
		h = middleware.NewRateLimiter(s.cfg.RequestsPerMinute, s.cfg.Burst).Middleware(h)
	}
	h = middleware.NewLoggingMiddleware(s.logger)(h)
	h = middleware.BodyReader(h)
	h = middleware.SecurityHeaders(h)

	return h
}

// Start starts the HTTP server and blocks until ctx is cancelled, then performs
// a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.SetupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "port", s.cfg.Port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// HealthHandler returns an http.HandlerFunc for the /health endpoint.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

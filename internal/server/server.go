package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vctools/vctools/internal/bootiso"
)

const name = "vctools-api"

type contextKey string

const contextKeyRequestID contextKey = "requestID"

// BuildFunc builds a boot ISO, returning the image path and size.
type BuildFunc func(ctx context.Context, r *bootiso.Request) (string, int64, error)

// Server serves the boot ISO build API.
type Server struct {
	cfg     *Config
	build   BuildFunc
	version string
}

// Option adjusts a Server at construction time.
type Option func(*Server)

// WithBuilder replaces the ISO builder, mainly for tests.
func WithBuilder(build BuildFunc) Option {
	return func(s *Server) { s.build = build }
}

// WithVersion sets the version reported by the default route.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// New returns a Server ready to Run.
func New(cfg *Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		build:   bootiso.Build,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves until ctx is canceled, then drains connections within the
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "name", name, "addr", addr, "version", s.version)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// withMiddleware tags every request with an ID and logs its outcome.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r.WithContext(ctx))

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", requestID,
		)
	}
}

// statusRecorder captures the status code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

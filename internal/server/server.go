// Package server exposes the mirrored ZenHub resources over HTTP. Every
// route except /health requires the pre-shared key in the Authorization
// header.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wesm/zenhub-mirror/internal/store"
)

const (
	// DefaultAuthFailureDelay is how long a request with a bad key waits before the 401.
	DefaultAuthFailureDelay = time.Second

	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server serves stored resources read through a store.Database.
type Server struct {
	addr             string
	db               store.Database
	presharedKey     string
	authFailureDelay time.Duration
	httpServer       *http.Server
	logger           *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, db store.Database, presharedKey string) *Server {
	s := &Server{
		addr:             addr,
		db:               db,
		presharedKey:     presharedKey,
		authFailureDelay: DefaultAuthFailureDelay,
		logger:           slog.Default(),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// SetAuthFailureDelay overrides DefaultAuthFailureDelay.
func (s *Server) SetAuthFailureDelay(d time.Duration) {
	s.authFailureDelay = d
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Repository resources.
	mux.Handle("GET /board/{repoId}", s.withAuth(http.HandlerFunc(s.handleBoard)))
	mux.Handle("GET /dependencies/{repoId}", s.withAuth(http.HandlerFunc(s.handleDependencies)))
	mux.Handle("GET /epics/{repoId}", s.withAuth(http.HandlerFunc(s.handleEpics)))

	// Issue resources.
	mux.Handle("GET /epic/{repoId}/{issueId}", s.withAuth(http.HandlerFunc(s.handleEpic)))
	mux.Handle("GET /issueData/{repoId}/{issueId}", s.withAuth(http.HandlerFunc(s.handleIssueData)))
	mux.Handle("GET /issueEvents/{repoId}/{issueId}", s.withAuth(http.HandlerFunc(s.handleIssueEvents)))

	mux.Handle("GET /repositoryChangeEvent", s.withAuth(http.HandlerFunc(s.handleChangeEvents)))

	return mux
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path,
			"status", rw.Status(), "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

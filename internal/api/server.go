package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/orchestrator"
	"github.com/larsvik/berth/internal/release"
)

const (
	// a deploy builds, ships and health-checks; give it room
	defaultReleaseTimeout = 20 * time.Minute
	shutdownGracePeriod   = 10 * time.Second
)

// Orchestrator is the part of the release coordinator the API needs.
type Orchestrator interface {
	Deploy(ctx context.Context, req orchestrator.Request) (release.Release, error)
	Rollback(ctx context.Context, req orchestrator.RollbackRequest) (release.Release, error)
	RollbackTargets(appName, targetName string, limit int) ([]release.Release, error)
}

// APIServer exposes the daemon's HTTP API. All routes except GET /health
// require the bearer token.
type APIServer struct {
	router       *http.ServeMux
	orchestrator Orchestrator
	store        *db.DB
	logsDir      string
	apiToken     string
	logger       *slog.Logger
}

func NewServer(orch Orchestrator, store *db.DB, logsDir, apiToken string, logger *slog.Logger) *APIServer {
	s := &APIServer{
		router:       http.NewServeMux(),
		orchestrator: orch,
		store:        store,
		logsDir:      logsDir,
		apiToken:     apiToken,
		logger:       logger,
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context, listenAddr string) error {
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

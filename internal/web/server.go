// Package web serves the friction store over a JSON HTTP API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/friction/internal/logging"
	"github.com/mesh-intelligence/friction/internal/sqlite"
)

// ProjectScanner discovers owner/repo names under a directory.
type ProjectScanner interface {
	Scan(ctx context.Context, root string) ([]string, error)
}

// Server is the friction HTTP API.
type Server struct {
	observations *sqlite.Observations
	actions      *sqlite.Actions
	projects     *sqlite.Projects
	scanner      ProjectScanner
	logger       *slog.Logger
	router       *gin.Engine
}

// NewServer creates the API server over an attached backend.
func NewServer(b *sqlite.Backend, scanner ProjectScanner, logger *slog.Logger) *Server {
	logger = logging.OrDiscard(logger)

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger))

	s := &Server{
		observations: sqlite.NewObservations(b),
		actions:      sqlite.NewActions(b),
		projects:     sqlite.NewProjects(b),
		scanner:      scanner,
		logger:       logger,
		router:       router,
	}

	api := router.Group("/api")
	{
		api.GET("/dispositions", s.handleDispositions)

		api.GET("/observations", s.handleListObservations)
		api.POST("/observations", s.handleCreateObservation)
		api.GET("/observations/:id", s.handleGetObservation)
		api.PATCH("/observations/:id", s.handleUpdateObservation)
		api.DELETE("/observations/:id", s.handleDeleteObservation)
		api.GET("/observations/:id/actions", s.handleObservationActions)

		api.GET("/actions", s.handleListActions)
		api.POST("/actions", s.handleCreateAction)

		api.GET("/projects", s.handleListProjects)
		api.POST("/projects", s.handleCreateProject)
		api.POST("/projects/bulk", s.handleBulkProjects)
		api.POST("/projects/scan", s.handleScanProjects)
		api.DELETE("/projects/:id", s.handleDeleteProject)

		api.GET("/export.md", s.handleExportMarkdown)
	}

	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Package ui serves stored analysis runs over HTTP: a JSON API, HTML run
// pages and the figure and report files the CLI wrote.
package ui

import (
	"context"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"bayesreg/internal/errors"
	"bayesreg/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	shutdownTimeout  = 10 * time.Second
)

// Config holds report server settings
type Config struct {
	Port         string
	GinMode      string
	ArtifactsDir string // report.dir; served under /artifacts when set
}

// Server is the read-only report server
type Server struct {
	router       *gin.Engine
	reader       ports.ReaderPort
	templates    *template.Template
	artifactsDir string
	config       Config
	logger       *zap.Logger
}

// NewServer creates the router and registers every route
func NewServer(reader ports.ReaderPort, config Config, logger *zap.Logger) (*Server, error) {
	if reader == nil {
		return nil, errors.ConfigInvalid("report server needs a run store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}

	s := &Server{
		router:    gin.New(),
		reader:    reader,
		templates: templates,
		config:    config,
		logger:    logger,
	}
	if config.ArtifactsDir != "" {
		if s.artifactsDir, err = filepath.Abs(config.ArtifactsDir); err != nil {
			return nil, errors.Wrap(err, "resolve artifacts directory")
		}
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	s.router.GET("/runs/:id", s.handleRunPage)

	if s.artifactsDir != "" {
		s.router.Static("/artifacts", s.artifactsDir)
	}
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("report server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "report server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("report server shutting down")
	return srv.Shutdown(shutdownCtx)
}

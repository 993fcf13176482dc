package ui

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// setupMiddleware installs panic recovery and request logging
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

// DebugHandler serves net/http/pprof and expvar under /debug
func DebugHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/debug", middleware.Profiler())
	return r
}

// RunDebug serves DebugHandler on port until the server is closed. It is
// meant to run in its own goroutine.
func RunDebug(port string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           DebugHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("profiling server listening", zap.String("addr", srv.Addr),
		zap.String("profile", "go tool pprof -http=:8081 http://localhost:"+port+"/debug/pprof/profile?seconds=30"))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("profiling server failed", zap.Error(err))
	}
}

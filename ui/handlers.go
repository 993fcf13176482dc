package ui

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bayesreg/domain/core"
	"bayesreg/domain/run"
	"bayesreg/internal/diagnostics"
	"bayesreg/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": errors.Code(err)})
}

func listLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.InvalidInput("limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, err := listLimit(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	runs, err := s.reader.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if runs == nil {
		runs = []*run.RunManifest{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) loadRun(c *gin.Context) (*run.RunManifest, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return nil, false
	}
	m, err := s.reader.GetRun(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return m, true
}

func (s *Server) handleGetRun(c *gin.Context) {
	m, ok := s.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m)
}

// handleRunPage redirects to the written HTML report when it is served under
// /artifacts, so its relative figure links resolve; otherwise it renders the
// stored summary.
func (s *Server) handleRunPage(c *gin.Context) {
	m, ok := s.loadRun(c)
	if !ok {
		return
	}
	if rel, ok := s.artifactPath(m.ReportPath); ok {
		c.Redirect(http.StatusFound, "/artifacts/"+rel)
		return
	}
	lo, hi := diagnostics.HDILabels(m.HDIProb)
	s.renderTemplate(c, "run.html", gin.H{
		"Run":     m,
		"HDILow":  lo,
		"HDIHigh": hi,
	})
}

func (s *Server) handleIndex(c *gin.Context) {
	runs, err := s.reader.ListRuns(c.Request.Context(), defaultListLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.renderTemplate(c, "runs.html", gin.H{"Runs": runs})
}

// artifactPath returns the slash path of a file below the artifacts
// directory, if it is there and exists.
func (s *Server) artifactPath(path string) (string, bool) {
	if s.artifactsDir == "" || path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(s.artifactsDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if _, err := os.Stat(abs); err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

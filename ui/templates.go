package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"bayesreg/domain/core"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"num": func(v float64, prec int) string { return fmt.Sprintf("%.*f", prec, v) },
		"ts":  func(t core.Timestamp) string { return t.Time().Format("2006-01-02 15:04:05") },
	}
	return template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.html")
}

// renderTemplate executes into a buffer first so a failed template never
// leaves a half-written page.
func (s *Server) renderTemplate(c *gin.Context, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template error", zap.String("template", name), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "template rendering failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

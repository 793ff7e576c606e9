package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/couchcryptid/hazard-map-service/internal/controller"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
)

//go:embed templates/index.html
var templates embed.FS

type pageData struct {
	Fields     controller.Form
	Notices    []string
	Categories []domain.CategoryGlyph
	Fallback   string
}

func parsePage() (*template.Template, error) {
	t, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return t, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Fields:     s.controller.Fields(),
		Notices:    s.popFlashes(w, r),
		Categories: domain.Categories(),
		Fallback:   domain.FallbackGlyph,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

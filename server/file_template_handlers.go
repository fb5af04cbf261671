package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/Masterminds/sprig/v3"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

// ParseTemplates parses every page together with the shared layout.
func ParseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(sprig.FuncMap()).ParseFS(templateFiles, "templates/*.html")
}

// render executes the named page into a buffer so a failing template never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

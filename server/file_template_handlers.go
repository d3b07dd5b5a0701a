package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

// ParseTemplate parses one page from the embedded templates directory.
func ParseTemplate(name string) (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// renderPage writes an uncached HTML page. The status line is already sent when
// execution fails, so the error is only logged.
func renderPage(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Warn().Err(err).Str("template", tmpl.Name()).Msg("failed to render page")
	}
}

package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists the page templates; each is parsed together with the
// shared layout.
var pageNames = []string{"landing", "login", "signup", "dashboard", "chat"}

// parseTemplates builds one template set per page so pages can define
// blocks with the same name without clashing.
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes a page template. Output is buffered by html/template
// execution order, so a late failure can still surface as a 500.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		s.logger.Error("unknown template", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("rendering page", "page", page, "error", err)
	}
}

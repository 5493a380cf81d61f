package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

// Templates renders page templates against the shared base layout.
type Templates struct {
	pages map[string]*template.Template
}

// NewTemplates parses every page under pages/ together with the layouts.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template)}

	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding layouts: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding pages: %w", err)
	}

	for _, page := range pages {
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		files := append([]string{page}, layouts...)

		tmpl, err := template.New(name).Funcs(templateFuncs()).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}

	return t, nil
}

// Render executes the named page inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// add is for 1-based rank numbering in loops.
		"add": func(a, b int) int { return a + b },
	}
}

// PageData is the common payload for every page template.
type PageData struct {
	Title       string
	CurrentPath string
	HasData     bool
}

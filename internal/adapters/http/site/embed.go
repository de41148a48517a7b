package site

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/okian/drcal/internal/domain/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Page names.
const (
	pageIndex    = "index.html"
	pageSchedule = "schedule_event.html"
	pageEdit     = "edit_event.html"
)

var funcs = template.FuncMap{
	"stamp": func(ts model.Timestamp) string { return ts.String() },
	"human": func(ts model.Timestamp) string {
		if ts.IsZero() {
			return ""
		}
		return ts.Format("Mon 02 Jan 2006 15:04")
	},
}

// parsePages builds one template set per page, each sharing layout.html.
func parsePages() (map[string]*template.Template, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{pageIndex, pageSchedule, pageEdit} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// StaticFS returns the embedded stylesheet directory.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

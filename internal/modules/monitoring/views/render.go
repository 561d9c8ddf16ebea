package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"
)

//go:embed templates
var viewsFS embed.FS

// Renderer executes the dashboard templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewRenderer parses the embedded templates. Call during startup; if it
// returns an error, do not start the server.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	return loadTemplatesFromFS(viewsFS, "templates", loc)
}

// loadTemplatesFromFS is used by NewRenderer and by tests to simulate
// failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"severityClass": severityClass,
	}).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, loc: loc}, nil
}

func (r *Renderer) Location() *time.Location { return r.loc }

func (r *Renderer) RenderDashboard(w io.Writer, data DashboardData) error {
	return r.execute(w, "dashboard.html", data)
}

// RenderStatus executes only the status partial. Use for HTMX fragment refresh.
func (r *Renderer) RenderStatus(w io.Writer, data StatusView) error {
	return r.execute(w, "status.html", data)
}

func (r *Renderer) RenderTable(w io.Writer, data TableView) error {
	return r.execute(w, "table.html", data)
}

func (r *Renderer) RenderForm(w io.Writer, data FormView) error {
	return r.execute(w, "form.html", data)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if r == nil || r.tmpl == nil {
		return errors.New("templates not loaded: construct the renderer with views.NewRenderer")
	}
	return r.tmpl.ExecuteTemplate(w, name, data)
}

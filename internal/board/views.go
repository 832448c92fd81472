// ABOUTME: Gemtext view templates embedded in the binary
// ABOUTME: Exposes catalog lookups to templates as t, count and date

package board

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/kevachat/geminiboard/internal/locale"
)

//go:embed views/*.gmi
var viewFS embed.FS

// Views renders the board's gemtext pages.
type Views struct {
	tmpl *template.Template
}

// NewViews parses the embedded views against catalog.
func NewViews(catalog *locale.Catalog) *Views {
	funcs := template.FuncMap{
		"t": catalog.T,
		"count": func(n int, key string) string {
			return catalog.Count(int64(n), key)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.DateOnly)
		},
	}
	tmpl := template.Must(template.New("board").Funcs(funcs).ParseFS(viewFS, "views/*.gmi"))
	return &Views{tmpl: tmpl}
}

// Render executes the named view.
func (v *Views) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// View data types
type postView struct {
	Author  string
	Ago     string
	Pending bool
	Quote   string
	Body    string
	Links   []string
	Reply   string
}

type roomItem struct {
	Link    string
	Updated time.Time
	Total   int
}

type roomsView struct {
	About []string
	Rooms []roomItem
}

type postsView struct {
	Home    string
	Subject string
	Post    string
	Posts   []string
}

type sentView struct {
	TxID string
	Room string
}

type pendingView struct {
	Address  string
	Amount   string
	Deadline time.Time
	Receipt  string
	Room     string
}

type oopsView struct {
	Home string
}

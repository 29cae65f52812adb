// Package views holds the server-rendered HTML templates, embedded into the binary.
package views

import (
	"embed"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var content embed.FS

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"bytes": func(n int64) string {
		if n < 0 {
			n = 0
		}
		return humanize.Bytes(uint64(n))
	},
	"ago": humanize.Time,
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
	"plural": func(n int64, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

// Templates parses the embedded templates. Pages are addressed by file name, e.g. "files.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(content, "templates/*.html")
}

// MustTemplates is Templates for process start-up.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}

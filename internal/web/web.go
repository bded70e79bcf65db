package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/mixbah/pdfi/internal/session"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	AlertInfo  = "info"
	AlertError = "error"
)

type Alert struct {
	Kind    string
	Message string
}

type Page struct {
	Snapshot    session.Snapshot
	Alerts      []Alert
	MaxUploadMB int
	Accept      string
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"badge":       session.Badge,
		"typeLabel":   session.TypeLabel,
		"size":        session.FormatSize,
		"summaryName": session.SummaryFileName,
		"ago":         humanize.Time,
		"iso":         func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}).ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, page Page) error {
	if r == nil || r.tmpl == nil {
		return errors.New("renderer is nil")
	}
	if page.Accept == "" {
		page.Accept = session.AcceptAttribute
	}
	if page.MaxUploadMB == 0 {
		page.MaxUploadMB = session.MaxFileSize >> 20
	}

	return r.tmpl.ExecuteTemplate(w, "index.html", page)
}

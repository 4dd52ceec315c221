// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package widget renders the embeddable testimonial wall. The /embed page
// is served frameable so third-party sites can drop it into an iframe, or
// load the companion widget.js snippet instead.
package widget

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"attesta/internal/markdown"
	"attesta/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds everything the embed template needs.
type PageData struct {
	Testimonials []*models.Testimonial
	EmbedURL     string
}

// Renderer executes the embed page template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates. Testimonial content is Markdown and
// is converted at render time; raw HTML in it stays escaped.
func New() (*Renderer, error) {
	funcMap := template.FuncMap{
		"renderContent": func(source string) template.HTML {
			out, err := markdown.ToHTML(source)
			if err != nil {
				return template.HTML(template.HTMLEscapeString(source))
			}
			return template.HTML(out)
		},
	}

	tmpl, err := template.New("embed.html").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse widget templates: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the embed page for the given approved testimonials.
func (r *Renderer) Render(w http.ResponseWriter, data PageData) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.tmpl.ExecuteTemplate(w, "embed.html", data); err != nil {
		return fmt.Errorf("render embed page: %w", err)
	}
	return nil
}

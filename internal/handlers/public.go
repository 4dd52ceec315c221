// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"attesta/internal/cache"
	"attesta/internal/models"
	"attesta/internal/store"
	"attesta/internal/widget"
)

// Public groups the unauthenticated read surface: the approved list,
// search, the embed page and health.
type Public struct {
	testimonials *store.TestimonialStore
	publicCache  *cache.PublicCache
	widget       *widget.Renderer
	embedURL     string
}

// NewPublic creates the public handler group. publicCache may be nil,
// in which case every request hits the database.
func NewPublic(testimonials *store.TestimonialStore, publicCache *cache.PublicCache, widgetRenderer *widget.Renderer, embedURL string) *Public {
	return &Public{
		testimonials: testimonials,
		publicCache:  publicCache,
		widget:       widgetRenderer,
		embedURL:     embedURL,
	}
}

// Approved serves the approved testimonial list. Only approved rows are
// ever served here, whatever the status parameter claims. Responses are
// cached in Valkey until the next moderation decision.
func (h *Public) Approved(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}

	key := cache.ApprovedKey(limit)
	if h.publicCache != nil {
		if payload, ok := h.publicCache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}
	}

	items, err := h.testimonials.ListApproved(limit)
	if err != nil {
		respondInternal(w, "approved list failed", err)
		return
	}
	scrubModerationFields(items)

	payload, err := json.Marshal(items)
	if err != nil {
		respondInternal(w, "approved list encode failed", err)
		return
	}

	if h.publicCache != nil {
		h.publicCache.Set(r.Context(), key, payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// Search looks up approved testimonials by free-text query. A blank
// query falls back to the full approved list rather than an empty
// result, matching how the console drives it from a URL parameter.
func (h *Public) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if q == "" {
		h.Approved(w, r)
		return
	}

	items, err := h.testimonials.SearchApproved(q)
	if err != nil {
		respondInternal(w, "search failed", err)
		return
	}
	scrubModerationFields(items)
	respondJSON(w, http.StatusOK, items)
}

// Embed renders the iframe-friendly HTML wall of approved testimonials.
func (h *Public) Embed(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}

	items, err := h.testimonials.ListApproved(limit)
	if err != nil {
		respondInternal(w, "embed list failed", err)
		return
	}

	ptrs := make([]*models.Testimonial, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}

	if err := h.widget.Render(w, widget.PageData{Testimonials: ptrs, EmbedURL: h.embedURL}); err != nil {
		respondInternal(w, "embed render failed", err)
	}
}

// EmbedInfo returns the widget script URL and a copy-paste snippet for
// the console's embed panel.
func (h *Public) EmbedInfo(w http.ResponseWriter, r *http.Request) {
	snippet := fmt.Sprintf(
		`<div id="testimonial-widget" data-limit="6"></div>`+"\n"+
			`<script src=%q async></script>`, h.embedURL)
	respondJSON(w, http.StatusOK, map[string]string{
		"embedUrl": h.embedURL,
		"snippet":  snippet,
	})
}

// Health is the liveness probe.
func (h *Public) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scrubModerationFields strips queue-internal annotations before rows
// leave the moderation surface.
func scrubModerationFields(items []models.Testimonial) {
	for i := range items {
		items[i].ScreeningFlags = ""
	}
}

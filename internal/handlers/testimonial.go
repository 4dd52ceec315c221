// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"attesta/internal/cache"
	"attesta/internal/middleware"
	"attesta/internal/models"
	"attesta/internal/screening"
	"attesta/internal/storage"
	"attesta/internal/store"
)

// Testimonials groups the testimonial lifecycle handlers: submission,
// moderation queue, moderation decisions and stats.
type Testimonials struct {
	testimonials *store.TestimonialStore
	categories   *store.CategoryStore
	tags         *store.TagStore
	media        *store.MediaStore
	storage      *storage.Client
	screener     screening.Screener
	publicCache  *cache.PublicCache
}

// NewTestimonials creates the testimonial handler group. storage,
// screener and publicCache may each be nil when the corresponding
// backing service is not configured.
func NewTestimonials(testimonials *store.TestimonialStore, categories *store.CategoryStore, tags *store.TagStore, media *store.MediaStore, storageClient *storage.Client, screener screening.Screener, publicCache *cache.PublicCache) *Testimonials {
	return &Testimonials{
		testimonials: testimonials,
		categories:   categories,
		tags:         tags,
		media:        media,
		storage:      storageClient,
		screener:     screener,
		publicCache:  publicCache,
	}
}

type submissionRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	ImageURLs  []string `json:"imageUrls"`
	VideoURLs  []string `json:"videoUrls"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// Create handles a new testimonial submission. Media must have been
// uploaded beforehand; the payload carries the returned URLs.
func (h *Testimonials) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var body submissionRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mediaCount := len(body.ImageURLs) + len(body.VideoURLs)
	if msg := validateSubmission(body.Title, body.Content, mediaCount, len(body.Categories), len(body.Tags)); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	categoryIDs, msg := h.resolveCategories(body.Categories)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	tagIDs, msg := h.resolveTags(body.Tags)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	// Uploaded media must live in our object storage; foreign URLs are
	// rejected before anything is persisted.
	if h.storage != nil {
		for _, u := range append(append([]string{}, body.ImageURLs...), body.VideoURLs...) {
			if _, ok := h.storage.ExtractS3Key(u); !ok {
				respondError(w, http.StatusBadRequest, "media URL does not belong to this service")
				return
			}
		}
	}

	tm, err := h.testimonials.Create(sess.UserID, strings.TrimSpace(body.Title), body.Content, categoryIDs, tagIDs, body.ImageURLs, body.VideoURLs)
	if err != nil {
		respondInternal(w, "testimonial create failed", err)
		return
	}

	// Claim the uploaded media so the orphan sweep skips it.
	for _, u := range append(append([]string{}, body.ImageURLs...), body.VideoURLs...) {
		if err := h.media.LinkToTestimonial(u, tm.ID); err != nil {
			slog.Warn("media claim failed", "error", err, "url", u)
		}
	}

	h.screen(r, tm)

	respondJSON(w, http.StatusCreated, tm)
}

// screen runs best-effort content screening and annotates the row for
// the moderation queue. Never blocks or fails the submission.
func (h *Testimonials) screen(r *http.Request, tm *models.Testimonial) {
	if h.screener == nil {
		return
	}
	result, err := h.screener.Check(r.Context(), tm.Title+"\n\n"+tm.Content)
	if err != nil {
		slog.Warn("content screening failed", "error", err, "testimonial", tm.ID)
		return
	}
	if result.Safe {
		return
	}
	flags := strings.Join(result.Categories, ", ")
	if err := h.testimonials.SetScreeningFlags(tm.ID, flags); err != nil {
		slog.Warn("screening annotation failed", "error", err, "testimonial", tm.ID)
		return
	}
	tm.ScreeningFlags = flags
}

func (h *Testimonials) resolveCategories(ids []string) ([]uuid.UUID, string) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, "Invalid category id."
		}
		c, err := h.categories.FindByID(id)
		if err != nil {
			slog.Error("category lookup failed", "error", err)
			return nil, "Invalid category id."
		}
		if c == nil {
			return nil, "Unknown category."
		}
		out = append(out, id)
	}
	return out, ""
}

func (h *Testimonials) resolveTags(ids []string) ([]uuid.UUID, string) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, "Invalid tag id."
		}
		t, err := h.tags.FindByID(id)
		if err != nil {
			slog.Error("tag lookup failed", "error", err)
			return nil, "Invalid tag id."
		}
		if t == nil {
			return nil, "Unknown tag."
		}
		out = append(out, id)
	}
	return out, ""
}

// List returns the moderation queue, filtered by status and an optional
// search term.
func (h *Testimonials) List(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		respondError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	items, err := h.testimonials.ListByStatus(status, strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		respondInternal(w, "testimonial list failed", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Mine returns the caller's own submissions in every moderation state.
func (h *Testimonials) Mine(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	items, err := h.testimonials.ListByAuthor(sess.UserID)
	if err != nil {
		respondInternal(w, "own testimonial list failed", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Detail returns a single testimonial by id.
func (h *Testimonials) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid testimonial id")
		return
	}

	tm, err := h.testimonials.FindByID(id)
	if err != nil {
		respondInternal(w, "testimonial lookup failed", err)
		return
	}
	if tm == nil {
		respondError(w, http.StatusNotFound, "testimonial not found")
		return
	}
	respondJSON(w, http.StatusOK, tm)
}

// Moderate applies an approve/reject decision. Transition violations
// come back 409 so the console can surface them.
func (h *Testimonials) Moderate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid testimonial id")
		return
	}

	var body struct {
		Status models.Status `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Status != models.StatusApproved && body.Status != models.StatusRejected {
		respondError(w, http.StatusBadRequest, "status must be APPROVED or REJECTED")
		return
	}

	tm, err := h.testimonials.Moderate(id, body.Status)
	if errors.Is(err, store.ErrInvalidTransition) {
		h.respondTransitionConflict(w, id)
		return
	}
	if err != nil {
		respondInternal(w, "moderation failed", err)
		return
	}
	if tm == nil {
		respondError(w, http.StatusNotFound, "testimonial not found")
		return
	}

	// Approved content just changed; drop the cached public responses.
	if h.publicCache != nil {
		h.publicCache.InvalidateAll(r.Context())
	}

	sess := middleware.SessionFromCtx(r.Context())
	slog.Info("testimonial moderated", "id", tm.ID, "status", tm.Status, "moderator", sess.Email)

	respondJSON(w, http.StatusOK, tm)
}

// respondTransitionConflict writes the 409 message for a disallowed
// status change, naming the terminal-approved case explicitly.
func (h *Testimonials) respondTransitionConflict(w http.ResponseWriter, id uuid.UUID) {
	existing, err := h.testimonials.FindByID(id)
	if err == nil && existing != nil && existing.Status == models.StatusApproved {
		respondError(w, http.StatusConflict, "cannot change an already-approved testimonial")
		return
	}
	respondError(w, http.StatusConflict, "testimonial is already in the requested status")
}

// Stats returns the per-status counts for the dashboard. The counts are
// cached in Valkey alongside the public lists; every moderation decision
// invalidates both.
func (h *Testimonials) Stats(w http.ResponseWriter, r *http.Request) {
	key := cache.StatsKey()
	if h.publicCache != nil {
		if payload, ok := h.publicCache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}
	}

	stats, err := h.testimonials.Stats()
	if err != nil {
		respondInternal(w, "stats query failed", err)
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		respondInternal(w, "stats encode failed", err)
		return
	}
	if h.publicCache != nil {
		h.publicCache.Set(r.Context(), key, payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

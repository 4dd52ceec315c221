// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"attesta/internal/store"
)

// Tags groups the tag CRUD handlers.
type Tags struct {
	store *store.TagStore
}

// NewTags creates the tag handler group.
func NewTags(s *store.TagStore) *Tags {
	return &Tags{store: s}
}

type tagRequest struct {
	Name string `json:"name"`
}

// List returns all tags ordered by name.
func (h *Tags) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		respondInternal(w, "tag list failed", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Create adds a tag.
func (h *Tags) Create(w http.ResponseWriter, r *http.Request) {
	var body tagRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if msg := validateName(body.Name); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if existing, err := h.store.FindByName(body.Name); err != nil {
		respondInternal(w, "tag lookup failed", err)
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, "a tag with this name already exists")
		return
	}

	tag, err := h.store.Create(body.Name)
	if err != nil {
		respondInternal(w, "tag create failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// Update renames a tag.
func (h *Tags) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tag id")
		return
	}

	var body tagRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if msg := validateName(body.Name); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	tag, err := h.store.Update(id, body.Name)
	if err != nil {
		respondInternal(w, "tag update failed", err)
		return
	}
	if tag == nil {
		respondError(w, http.StatusNotFound, "tag not found")
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// Delete removes a tag. Testimonial links cascade away.
func (h *Tags) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tag id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		respondInternal(w, "tag delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

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

// Categories groups the category CRUD handlers.
type Categories struct {
	store *store.CategoryStore
}

// NewCategories creates the category handler group.
func NewCategories(s *store.CategoryStore) *Categories {
	return &Categories{store: s}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns all categories ordered by name.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List()
	if err != nil {
		respondInternal(w, "category list failed", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Create adds a category.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var body categoryRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if msg := validateName(body.Name); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateDescription(body.Description); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if existing, err := h.store.FindByName(body.Name); err != nil {
		respondInternal(w, "category lookup failed", err)
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, "a category with this name already exists")
		return
	}

	c, err := h.store.Create(body.Name, body.Description)
	if err != nil {
		respondInternal(w, "category create failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// Update renames a category or changes its description.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var body categoryRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if msg := validateName(body.Name); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateDescription(body.Description); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.store.Update(id, body.Name, body.Description)
	if err != nil {
		respondInternal(w, "category update failed", err)
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Delete removes a category. Links from testimonials cascade away; the
// testimonials themselves survive.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		respondInternal(w, "category delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

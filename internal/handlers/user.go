// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"attesta/internal/middleware"
	"attesta/internal/models"
	"attesta/internal/store"
)

// defaultPageSize matches the console's fixed user-manager page size.
const defaultPageSize = 5

// Users groups the user and role management handlers.
type Users struct {
	store *store.UserStore
}

// NewUsers creates the user handler group.
func NewUsers(s *store.UserStore) *Users {
	return &Users{store: s}
}

// pageEnvelope is the offset-pagination response shape the console
// consumes.
type pageEnvelope struct {
	Content       []models.User `json:"content"`
	Number        int           `json:"number"`
	Size          int           `json:"size"`
	TotalElements int           `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	First         bool          `json:"first"`
	Last          bool          `json:"last"`
}

// List returns a page of users. Defaults: page 0, size 5, newest first.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 0 {
		page = 0
	}
	size, _ := strconv.Atoi(q.Get("limit"))
	if size <= 0 {
		size = defaultPageSize
	}
	sortBy := q.Get("sortBy")
	ascending := q.Get("ascending") == "true"

	users, total, err := h.store.ListPage(page, size, sortBy, ascending)
	if err != nil {
		respondInternal(w, "user list failed", err)
		return
	}

	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, pageEnvelope{
		Content:       users,
		Number:        page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	})
}

// Me returns the caller's own account.
func (h *Users) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := h.store.FindByID(sess.UserID)
	if err != nil {
		respondInternal(w, "user lookup failed", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Fullname string `json:"fullname"`
	// Email is accepted in bodies for contract compatibility but never
	// applied: addresses are fixed at account creation.
	Email string `json:"email"`
}

// Update applies profile fields to a user. Email changes are silently
// ignored.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var body profileRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body.Fullname = strings.TrimSpace(body.Fullname)
	if body.Fullname == "" {
		respondError(w, http.StatusBadRequest, "Full name is required.")
		return
	}

	user, err := h.store.UpdateProfile(id, body.Fullname)
	if err != nil {
		respondInternal(w, "profile update failed", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateMe applies profile fields to the caller's own account.
func (h *Users) UpdateMe(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var body profileRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body.Fullname = strings.TrimSpace(body.Fullname)
	if body.Fullname == "" {
		respondError(w, http.StatusBadRequest, "Full name is required.")
		return
	}

	user, err := h.store.UpdateProfile(sess.UserID, body.Fullname)
	if err != nil {
		respondInternal(w, "profile update failed", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type rolesRequest struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

// Roles replaces a user's role set in full.
func (h *Users) Roles(w http.ResponseWriter, r *http.Request) {
	var body rolesRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := uuid.Parse(body.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if len(body.Roles) == 0 {
		respondError(w, http.StatusBadRequest, "At least one role is required.")
		return
	}

	roles := make([]models.Role, 0, len(body.Roles))
	for _, raw := range body.Roles {
		role := models.Role(raw)
		if !role.IsValid() {
			respondError(w, http.StatusBadRequest, "unknown role: "+raw)
			return
		}
		roles = append(roles, role)
	}

	user, err := h.store.FindByID(id)
	if err != nil {
		respondInternal(w, "user lookup failed", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	grants, err := h.store.ReplaceRoles(id, roles)
	if err != nil {
		respondInternal(w, "role update failed", err)
		return
	}

	user.Roles = grants
	respondJSON(w, http.StatusOK, user)
}

// Delete removes a user account. Self-deletion is rejected so an admin
// cannot lock themselves out mid-session.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	if sess.UserID == id {
		respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := h.store.Delete(id); err != nil {
		respondInternal(w, "user delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"attesta/internal/models"
)

// submit posts a testimonial as the given user and returns the recorder.
func submit(t *testing.T, env *testEnv, user *models.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/testimonials", strings.NewReader(body))
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(user, "google", true)))
	rec := httptest.NewRecorder()
	env.Testimonials.Create(rec, req)
	return rec
}

func submissionBody(title, content string, categoryID, tagIDs string) string {
	return fmt.Sprintf(`{
		"title": %q, "content": %q,
		"imageUrls": ["https://media.example.com/a.jpg"],
		"videoUrls": [],
		"categories": [%s],
		"tags": [%s]
	}`, title, content, categoryID, tagIDs)
}

func TestSubmissionCreate(t *testing.T) {
	env := newTestEnv(t)
	user := testUser(t, env, models.RoleUser)
	cat, tag := testTaxonomy(t, env)

	rec := submit(t, env, user, submissionBody("Fantastic onboarding", "They answered within the hour.",
		fmt.Sprintf("%q", cat.ID), fmt.Sprintf("%q", tag.ID)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var tm models.Testimonial
	if err := json.Unmarshal(rec.Body.Bytes(), &tm); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	t.Cleanup(func() { env.TestimonialStore.Delete(tm.ID) })

	if tm.Status != models.StatusPending {
		t.Errorf("expected PENDING, got %s", tm.Status)
	}
	if len(tm.Categories) != 1 || tm.Categories[0].ID != cat.ID {
		t.Errorf("expected category linked, got %+v", tm.Categories)
	}
	if len(tm.Images) != 1 {
		t.Errorf("expected one image, got %+v", tm.Images)
	}
	if tm.CreatedByName != user.Fullname {
		t.Errorf("expected author name %q, got %q", user.Fullname, tm.CreatedByName)
	}
}

func TestSubmissionValidationShortCircuits(t *testing.T) {
	env := newTestEnv(t)
	user := testUser(t, env, models.RoleUser)
	cat, tag := testTaxonomy(t, env)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"missing title",
			submissionBody("", "Content here", fmt.Sprintf("%q", cat.ID), fmt.Sprintf("%q", tag.ID)),
			"Title is required.",
		},
		{
			"no media",
			fmt.Sprintf(`{"title":"T","content":"C","imageUrls":[],"videoUrls":[],"categories":[%q],"tags":[%q]}`, cat.ID, tag.ID),
			"At least one image or video is required.",
		},
		{
			"four tags",
			submissionBody("T", "C", fmt.Sprintf("%q", cat.ID),
				fmt.Sprintf("%q,%q,%q,%q", tag.ID, tag.ID, tag.ID, tag.ID)),
			"A maximum of 3 tags is allowed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submit(t, env, user, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var resp map[string]string
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp["error"] != tt.want {
				t.Errorf("got error %q, want %q", resp["error"], tt.want)
			}
		})
	}

	// Failed submissions persist nothing.
	mine, err := env.TestimonialStore.ListByAuthor(user.ID)
	if err != nil {
		t.Fatalf("ListByAuthor: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("expected no persisted testimonials, got %d", len(mine))
	}
}

func TestSubmissionUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	user := testUser(t, env, models.RoleUser)
	_, tag := testTaxonomy(t, env)

	rec := submit(t, env, user, submissionBody("T", "C",
		`"11111111-2222-3333-4444-555555555555"`, fmt.Sprintf("%q", tag.ID)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unknown category") {
		t.Errorf("expected unknown-category error, got %s", rec.Body.String())
	}
}

// seedTestimonial creates a pending submission directly through the store.
func seedTestimonial(t *testing.T, env *testEnv, author *models.User, title string) *models.Testimonial {
	t.Helper()
	cat, tag := testTaxonomy(t, env)
	tm, err := env.TestimonialStore.Create(author.ID, title, "Store-seeded content.",
		[]uuid.UUID{cat.ID}, []uuid.UUID{tag.ID},
		[]string{"https://media.example.com/seed.jpg"}, nil)
	if err != nil {
		t.Fatalf("seed testimonial: %v", err)
	}
	t.Cleanup(func() { env.TestimonialStore.Delete(tm.ID) })
	return tm
}

// moderate issues a moderation PATCH as the given admin.
func moderate(t *testing.T, env *testEnv, admin *models.User, id uuid.UUID, status models.Status) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"status":%q}`, status)
	req := httptest.NewRequest(http.MethodPatch, "/api/testimonials/"+id.String()+"/moderate", strings.NewReader(body))
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(admin, "google", true)))
	req = withChiURLParam(req, "id", id.String())
	rec := httptest.NewRecorder()
	env.Testimonials.Moderate(rec, req)
	return rec
}

func TestModerateApprove(t *testing.T) {
	env := newTestEnv(t)
	author := testUser(t, env, models.RoleUser)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)
	tm := seedTestimonial(t, env, author, "Needs review")

	rec := moderate(t, env, admin, tm.ID, models.StatusApproved)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated models.Testimonial
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Status != models.StatusApproved {
		t.Errorf("expected APPROVED, got %s", updated.Status)
	}

	// The row left the pending queue.
	pending, err := env.TestimonialStore.ListByStatus(models.StatusPending, "")
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	for _, p := range pending {
		if p.ID == tm.ID {
			t.Error("approved testimonial still listed as pending")
		}
	}
}

func TestModerateApprovedIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	author := testUser(t, env, models.RoleUser)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)
	tm := seedTestimonial(t, env, author, "Approve once")

	if rec := moderate(t, env, admin, tm.ID, models.StatusApproved); rec.Code != http.StatusOK {
		t.Fatalf("first approve: expected 200, got %d", rec.Code)
	}

	rec := moderate(t, env, admin, tm.ID, models.StatusRejected)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "cannot change an already-approved testimonial" {
		t.Errorf("got error %q", resp["error"])
	}
}

func TestModerateRejectedCanBeApproved(t *testing.T) {
	env := newTestEnv(t)
	author := testUser(t, env, models.RoleUser)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)
	tm := seedTestimonial(t, env, author, "Second chance")

	if rec := moderate(t, env, admin, tm.ID, models.StatusRejected); rec.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", rec.Code)
	}
	if rec := moderate(t, env, admin, tm.ID, models.StatusApproved); rec.Code != http.StatusOK {
		t.Fatalf("approve after reject: expected 200, got %d", rec.Code)
	}
}

func TestModerateUnknownID(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)

	rec := moderate(t, env, admin, uuid.New(), models.StatusApproved)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestModerateRejectsPendingTarget(t *testing.T) {
	env := newTestEnv(t)
	author := testUser(t, env, models.RoleUser)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)
	tm := seedTestimonial(t, env, author, "Cannot re-pend")

	rec := moderate(t, env, admin, tm.ID, models.StatusPending)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMine(t *testing.T) {
	env := newTestEnv(t)
	author := testUser(t, env, models.RoleUser)
	other := testUser(t, env, models.RoleUser)
	tm := seedTestimonial(t, env, author, "Mine only")
	seedTestimonial(t, env, other, "Someone else's")

	req := httptest.NewRequest(http.MethodGet, "/api/testimonials/mine", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(author, "google", true)))
	rec := httptest.NewRecorder()
	env.Testimonials.Mine(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []models.Testimonial
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 || items[0].ID != tm.ID {
		t.Errorf("expected exactly the author's submission, got %d items", len(items))
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/testimonials?status=BOGUS", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(admin, "google", true)))
	rec := httptest.NewRecorder()
	env.Testimonials.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/testimonials/stats", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sessionFor(admin, "google", true)))
	rec := httptest.NewRecorder()
	env.Testimonials.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats models.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Total != stats.Approved+stats.Pending+stats.Rejected {
		t.Errorf("inconsistent stats: %+v", stats)
	}
}

func TestStatsCached(t *testing.T) {
	env := newTestEnv(t)
	author := testUser(t, env, models.RoleUser)
	admin := testUser(t, env, models.RoleUser, models.RoleAdmin)
	tm := seedTestimonial(t, env, author, "Counted once")

	fetchStats := func() (*httptest.ResponseRecorder, models.Stats) {
		req := httptest.NewRequest(http.MethodGet, "/api/testimonials/stats", nil)
		req = req.WithContext(ctxWithSession(req.Context(), sessionFor(admin, "google", true)))
		rec := httptest.NewRecorder()
		env.Testimonials.Stats(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var stats models.Stats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return rec, stats
	}

	first, before := fetchStats()

	// A new submission without invalidation is not counted yet; the
	// cached body comes back byte for byte.
	seedTestimonial(t, env, author, "Added after cache fill")
	cached, _ := fetchStats()
	if cached.Body.String() != first.Body.String() {
		t.Error("expected cached stats before invalidation")
	}

	// A moderation decision invalidates the cache; the fresh counts see
	// both the new submission and the approval.
	if rec := moderate(t, env, admin, tm.ID, models.StatusApproved); rec.Code != http.StatusOK {
		t.Fatalf("moderate: expected 200, got %d", rec.Code)
	}
	_, after := fetchStats()
	if after.Total != before.Total+1 {
		t.Errorf("total: got %d, want %d", after.Total, before.Total+1)
	}
	if after.Approved != before.Approved+1 {
		t.Errorf("approved: got %d, want %d", after.Approved, before.Approved+1)
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"attesta/internal/models"
)

// ErrInvalidTransition is returned by Moderate when the requested status
// change is not allowed by the moderation state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// TestimonialStore handles all testimonial-related database operations,
// including the category, tag and media link tables.
type TestimonialStore struct {
	db *sql.DB
}

// NewTestimonialStore returns a new TestimonialStore.
func NewTestimonialStore(db *sql.DB) *TestimonialStore {
	return &TestimonialStore{db: db}
}

const testimonialColumns = `t.id, t.title, t.content, t.status, t.screening_flags, t.created_by, u.fullname, t.created_at, t.updated_at`

const testimonialSelect = `
	SELECT ` + testimonialColumns + `
	FROM testimonials t
	JOIN users u ON u.id = t.created_by`

func scanTestimonial(scanner interface{ Scan(...any) error }) (*models.Testimonial, error) {
	var tm models.Testimonial
	err := scanner.Scan(
		&tm.ID, &tm.Title, &tm.Content, &tm.Status, &tm.ScreeningFlags,
		&tm.CreatedByID, &tm.CreatedByName, &tm.CreatedAt, &tm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

// Create inserts a testimonial with its category, tag and media links in
// one transaction. New testimonials always start PENDING.
func (s *TestimonialStore) Create(authorID uuid.UUID, title, content string, categoryIDs, tagIDs []uuid.UUID, imageURLs, videoURLs []string) (*models.Testimonial, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRow(`
		INSERT INTO testimonials (title, content, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, title, content, models.StatusPending, authorID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create testimonial: %w", err)
	}

	for _, cid := range categoryIDs {
		if _, err := tx.Exec(`
			INSERT INTO testimonial_categories (testimonial_id, category_id) VALUES ($1, $2)
		`, id, cid); err != nil {
			return nil, fmt.Errorf("link category: %w", err)
		}
	}
	for _, tid := range tagIDs {
		if _, err := tx.Exec(`
			INSERT INTO testimonial_tags (testimonial_id, tag_id) VALUES ($1, $2)
		`, id, tid); err != nil {
			return nil, fmt.Errorf("link tag: %w", err)
		}
	}
	for i, url := range imageURLs {
		if _, err := tx.Exec(`
			INSERT INTO testimonial_media (testimonial_id, url, kind, position) VALUES ($1, $2, 'image', $3)
		`, id, url, i); err != nil {
			return nil, fmt.Errorf("link image: %w", err)
		}
	}
	for i, url := range videoURLs {
		if _, err := tx.Exec(`
			INSERT INTO testimonial_media (testimonial_id, url, kind, position) VALUES ($1, $2, 'video', $3)
		`, id, url, i); err != nil {
			return nil, fmt.Errorf("link video: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.FindByID(id)
}

// FindByID retrieves a testimonial with its categories, tags and media.
// Returns nil if not found.
func (s *TestimonialStore) FindByID(id uuid.UUID) (*models.Testimonial, error) {
	row := s.db.QueryRow(testimonialSelect+` WHERE t.id = $1`, id)
	tm, err := scanTestimonial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find testimonial by id: %w", err)
	}
	if err := s.hydrate([]*models.Testimonial{tm}); err != nil {
		return nil, err
	}
	return tm, nil
}

// ListByStatus returns testimonials in a moderation state, newest first.
// An empty status lists everything. A non-empty search narrows the result
// to rows whose title, content, author name or category names contain the
// term, case-insensitively.
func (s *TestimonialStore) ListByStatus(status models.Status, search string) ([]models.Testimonial, error) {
	query := testimonialSelect
	var conditions []string
	var args []any

	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(t.title ILIKE $%d OR t.content ILIKE $%d OR u.fullname ILIKE $%d
			OR EXISTS (
				SELECT 1 FROM testimonial_categories tc
				JOIN categories c ON c.id = tc.category_id
				WHERE tc.testimonial_id = t.id AND c.name ILIKE $%d
			))`, n, n, n, n))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at DESC"

	return s.list(query, args...)
}

// ListApproved returns approved testimonials, newest first, capped at
// limit when limit is positive.
func (s *TestimonialStore) ListApproved(limit int) ([]models.Testimonial, error) {
	query := testimonialSelect + ` WHERE t.status = $1 ORDER BY t.created_at DESC`
	args := []any{models.StatusApproved}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.list(query, args...)
}

// SearchApproved returns approved testimonials matching the term across
// title, content, author name and category names.
func (s *TestimonialStore) SearchApproved(q string) ([]models.Testimonial, error) {
	pattern := "%" + q + "%"
	query := testimonialSelect + `
		WHERE t.status = $1
		  AND (t.title ILIKE $2 OR t.content ILIKE $2 OR u.fullname ILIKE $2
			OR EXISTS (
				SELECT 1 FROM testimonial_categories tc
				JOIN categories c ON c.id = tc.category_id
				WHERE tc.testimonial_id = t.id AND c.name ILIKE $2
			))
		ORDER BY t.created_at DESC`
	return s.list(query, models.StatusApproved, pattern)
}

// ListByAuthor returns a user's own testimonials, newest first, in every
// moderation state.
func (s *TestimonialStore) ListByAuthor(userID uuid.UUID) ([]models.Testimonial, error) {
	return s.list(testimonialSelect+` WHERE t.created_by = $1 ORDER BY t.created_at DESC`, userID)
}

// Moderate applies a status change, enforcing the transition rules in the
// UPDATE itself so concurrent moderators cannot race past them. Returns
// ErrInvalidTransition when the row exists but the move is not allowed,
// and nil, nil when the id does not exist.
func (s *TestimonialStore) Moderate(id uuid.UUID, target models.Status) (*models.Testimonial, error) {
	// PENDING may move anywhere, REJECTED only to APPROVED. APPROVED
	// never matches, making it terminal. Same-status updates never match
	// either, so repeating a decision conflicts rather than silently
	// succeeding.
	res, err := s.db.Exec(`
		UPDATE testimonials SET status = $1, updated_at = NOW()
		WHERE id = $2
		  AND status <> $1
		  AND (status = 'PENDING' OR (status = 'REJECTED' AND $1 = 'APPROVED'))
	`, target, id)
	if err != nil {
		return nil, fmt.Errorf("moderate testimonial: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("moderate rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := s.FindByID(id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrInvalidTransition
	}

	return s.FindByID(id)
}

// SetScreeningFlags records the category names automatic screening
// flagged on a testimonial. Called after creation, best effort.
func (s *TestimonialStore) SetScreeningFlags(id uuid.UUID, flags string) error {
	_, err := s.db.Exec(`UPDATE testimonials SET screening_flags = $1 WHERE id = $2`, flags, id)
	if err != nil {
		return fmt.Errorf("set screening flags: %w", err)
	}
	return nil
}

// Stats returns the per-status testimonial counts in one query.
func (s *TestimonialStore) Stats() (*models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'APPROVED'),
		       COUNT(*) FILTER (WHERE status = 'PENDING'),
		       COUNT(*) FILTER (WHERE status = 'REJECTED')
		FROM testimonials
	`).Scan(&st.Total, &st.Approved, &st.Pending, &st.Rejected)
	if err != nil {
		return nil, fmt.Errorf("testimonial stats: %w", err)
	}
	return &st, nil
}

// Delete removes a testimonial and its link rows via the cascade.
func (s *TestimonialStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM testimonials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete testimonial: %w", err)
	}
	return nil
}

// list runs a testimonial select, scans the rows and hydrates their
// category, tag and media refs with batch queries.
func (s *TestimonialStore) list(query string, args ...any) ([]models.Testimonial, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Testimonial
	for rows.Next() {
		tm, err := scanTestimonial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan testimonial: %w", err)
		}
		ptrs = append(ptrs, tm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.hydrate(ptrs); err != nil {
		return nil, err
	}

	items := make([]models.Testimonial, len(ptrs))
	for i, tm := range ptrs {
		items[i] = *tm
	}
	return items, nil
}

// hydrate fills Categories, Tags, Images and Videos for a batch of
// testimonials. Empty collections stay as empty slices so JSON emits []
// rather than null.
func (s *TestimonialStore) hydrate(items []*models.Testimonial) error {
	byID := make(map[uuid.UUID]*models.Testimonial, len(items))
	for _, tm := range items {
		tm.Categories = []models.CategoryRef{}
		tm.Tags = []models.TagRef{}
		tm.Images = []models.MediaRef{}
		tm.Videos = []models.MediaRef{}
		byID[tm.ID] = tm
	}
	if len(items) == 0 {
		return nil
	}

	rows, err := s.db.Query(`
		SELECT tc.testimonial_id, c.id, c.name
		FROM testimonial_categories tc
		JOIN categories c ON c.id = tc.category_id
		WHERE tc.testimonial_id = ANY($1)
		ORDER BY c.name
	`, idList(items))
	if err != nil {
		return fmt.Errorf("hydrate categories: %w", err)
	}
	for rows.Next() {
		var tid uuid.UUID
		var ref models.CategoryRef
		if err := rows.Scan(&tid, &ref.ID, &ref.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scan category ref: %w", err)
		}
		byID[tid].Categories = append(byID[tid].Categories, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.Query(`
		SELECT tt.testimonial_id, tg.id, tg.name
		FROM testimonial_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.testimonial_id = ANY($1)
		ORDER BY tg.name
	`, idList(items))
	if err != nil {
		return fmt.Errorf("hydrate tags: %w", err)
	}
	for rows.Next() {
		var tid uuid.UUID
		var ref models.TagRef
		if err := rows.Scan(&tid, &ref.ID, &ref.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scan tag ref: %w", err)
		}
		byID[tid].Tags = append(byID[tid].Tags, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.Query(`
		SELECT testimonial_id, url, kind
		FROM testimonial_media
		WHERE testimonial_id = ANY($1)
		ORDER BY position
	`, idList(items))
	if err != nil {
		return fmt.Errorf("hydrate media: %w", err)
	}
	for rows.Next() {
		var tid uuid.UUID
		var url, kind string
		if err := rows.Scan(&tid, &url, &kind); err != nil {
			rows.Close()
			return fmt.Errorf("scan media ref: %w", err)
		}
		if kind == "video" {
			byID[tid].Videos = append(byID[tid].Videos, models.MediaRef{URL: url})
		} else {
			byID[tid].Images = append(byID[tid].Images, models.MediaRef{URL: url})
		}
	}
	rows.Close()
	return rows.Err()
}

// idList collects testimonial ids for use with = ANY($1).
func idList(items []*models.Testimonial) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, tm := range items {
		ids[i] = tm.ID
	}
	return ids
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attesta/internal/models"
)

// MediaStore manages the upload ledger. Every accepted upload gets a row
// here; rows are linked to a testimonial when a submission claims them.
type MediaStore struct {
	db *sql.DB
}

// NewMediaStore returns a new MediaStore.
func NewMediaStore(db *sql.DB) *MediaStore {
	return &MediaStore{db: db}
}

const mediaColumns = `id, s3_key, url, kind, content_type, size_bytes, uploaded_by, testimonial_id, created_at`

func scanMedia(scanner interface{ Scan(...any) error }) (*models.Media, error) {
	var m models.Media
	err := scanner.Scan(
		&m.ID, &m.S3Key, &m.URL, &m.Kind, &m.ContentType,
		&m.SizeBytes, &m.UploadedBy, &m.TestimonialID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create records an accepted upload in the ledger.
func (s *MediaStore) Create(s3Key, url string, kind models.MediaKind, contentType string, sizeBytes int64, uploadedBy uuid.UUID) (*models.Media, error) {
	row := s.db.QueryRow(`
		INSERT INTO media (s3_key, url, kind, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+mediaColumns,
		s3Key, url, kind, contentType, sizeBytes, uploadedBy,
	)
	m, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}
	return m, nil
}

// FindByURL retrieves a ledger entry by its public URL. Returns nil if
// not found.
func (s *MediaStore) FindByURL(url string) (*models.Media, error) {
	row := s.db.QueryRow(`SELECT `+mediaColumns+` FROM media WHERE url = $1`, url)
	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find media by url: %w", err)
	}
	return m, nil
}

// LinkToTestimonial claims an upload for a testimonial by URL. Uploads
// that were never in the ledger are ignored.
func (s *MediaStore) LinkToTestimonial(url string, testimonialID uuid.UUID) error {
	_, err := s.db.Exec(`
		UPDATE media SET testimonial_id = $1 WHERE url = $2
	`, testimonialID, url)
	if err != nil {
		return fmt.Errorf("link media: %w", err)
	}
	return nil
}

// ListOrphans returns ledger entries older than the cutoff that no
// testimonial ever claimed.
func (s *MediaStore) ListOrphans(olderThan time.Time) ([]models.Media, error) {
	rows, err := s.db.Query(`
		SELECT `+mediaColumns+` FROM media
		WHERE testimonial_id IS NULL AND created_at < $1
		ORDER BY created_at
	`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list orphan media: %w", err)
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// Delete removes a ledger entry.
func (s *MediaStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

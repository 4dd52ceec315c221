// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"attesta/internal/models"
)

// TagStore manages tags in the database.
type TagStore struct {
	db *sql.DB
}

// NewTagStore returns a new TagStore.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `id, name, created_at, updated_at`

func scanTag(scanner interface{ Scan(...any) error }) (*models.Tag, error) {
	var tg models.Tag
	err := scanner.Scan(&tg.ID, &tg.Name, &tg.CreatedAt, &tg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tg, nil
}

// List returns all tags ordered by name.
func (s *TagStore) List() ([]models.Tag, error) {
	rows, err := s.db.Query(`SELECT ` + tagColumns + ` FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var items []models.Tag
	for rows.Next() {
		tg, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, *tg)
	}
	return items, rows.Err()
}

// FindByID retrieves a tag by ID. Returns nil if not found.
func (s *TagStore) FindByID(id uuid.UUID) (*models.Tag, error) {
	row := s.db.QueryRow(`SELECT `+tagColumns+` FROM tags WHERE id = $1`, id)
	tg, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by id: %w", err)
	}
	return tg, nil
}

// FindByName retrieves a tag by exact name. Returns nil if not found.
func (s *TagStore) FindByName(name string) (*models.Tag, error) {
	row := s.db.QueryRow(`SELECT `+tagColumns+` FROM tags WHERE name = $1`, name)
	tg, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by name: %w", err)
	}
	return tg, nil
}

// Create inserts a new tag and returns it.
func (s *TagStore) Create(name string) (*models.Tag, error) {
	row := s.db.QueryRow(`
		INSERT INTO tags (name) VALUES ($1)
		RETURNING `+tagColumns,
		name,
	)
	tg, err := scanTag(row)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tg, nil
}

// Update renames an existing tag. Returns nil, nil if the id does not exist.
func (s *TagStore) Update(id uuid.UUID, name string) (*models.Tag, error) {
	row := s.db.QueryRow(`
		UPDATE tags SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+tagColumns,
		name, id,
	)
	tg, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}
	return tg, nil
}

// Delete removes a tag by ID.
func (s *TagStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

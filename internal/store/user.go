// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all Attesta
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"attesta/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, username, fullname, picture, google_sub, password_hash, totp_secret, totp_enabled, created_at, updated_at`

// userSortColumns maps API sort keys to table columns. Anything not
// listed here falls back to created_at.
var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
	"username":  "username",
	"fullname":  "fullname",
}

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := scanner.Scan(
		&u.ID, &u.Email, &u.Username, &u.Fullname, &u.Picture, &u.GoogleSub,
		&u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// usernameFromEmail derives the display handle shown as @username in the
// console: the lowercased local part of the address.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}

// loadRoles populates u.Roles from the user_roles table.
func (s *UserStore) loadRoles(u *models.User) error {
	rows, err := s.db.Query(`SELECT id, role FROM user_roles WHERE user_id = $1 ORDER BY role`, u.ID)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.UserRole
		if err := rows.Scan(&r.ID, &r.Role); err != nil {
			return fmt.Errorf("scan role: %w", err)
		}
		u.Roles = append(u.Roles, r)
	}
	return rows.Err()
}

func (s *UserStore) findOne(query string, arg any) (*models.User, error) {
	row := s.db.QueryRow(query, arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRoles(u); err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(email string) (*models.User, error) {
	u, err := s.findOne(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(id uuid.UUID) (*models.User, error) {
	u, err := s.findOne(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByGoogleSub retrieves a user by their Google subject identifier.
// Returns nil if not found.
func (s *UserStore) FindByGoogleSub(sub string) (*models.User, error) {
	u, err := s.findOne(`SELECT `+userColumns+` FROM users WHERE google_sub = $1`, sub)
	if err != nil {
		return nil, fmt.Errorf("find user by google sub: %w", err)
	}
	return u, nil
}

// CreateFromGoogle inserts a new account from a verified Google identity.
// New accounts start with only the USER role.
func (s *UserStore) CreateFromGoogle(sub, email, fullname, picture string) (*models.User, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		INSERT INTO users (email, username, fullname, picture, google_sub)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		email, usernameFromEmail(email), fullname, picture, sub,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}

	var grant models.UserRole
	grant.Role = models.RoleUser
	if err := tx.QueryRow(`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) RETURNING id`, u.ID, grant.Role).Scan(&grant.ID); err != nil {
		return nil, fmt.Errorf("create google user role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	u.Roles = []models.UserRole{grant}
	return u, nil
}

// CreateWithPassword inserts an operator account with a bcrypt-hashed
// password and the given roles. Used for seeding and operator management.
func (s *UserStore) CreateWithPassword(email, password, fullname string, roles []models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		INSERT INTO users (email, username, fullname, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		email, usernameFromEmail(email), fullname, string(hash),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	for _, r := range roles {
		grant := models.UserRole{Role: r}
		if err := tx.QueryRow(`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) RETURNING id`, u.ID, r).Scan(&grant.ID); err != nil {
			return nil, fmt.Errorf("create user role: %w", err)
		}
		u.Roles = append(u.Roles, grant)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return u, nil
}

// UpdateProfile changes a user's display name. Email is immutable once
// the account exists. Returns nil, nil if the id does not exist.
func (s *UserStore) UpdateProfile(id uuid.UUID, fullname string) (*models.User, error) {
	row := s.db.QueryRow(`
		UPDATE users SET fullname = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns,
		fullname, id,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.loadRoles(u); err != nil {
		return nil, err
	}
	return u, nil
}

// ReplaceRoles swaps a user's full role set in one transaction and
// returns the new grants with their generated ids.
func (s *UserStore) ReplaceRoles(id uuid.UUID, roles []models.Role) ([]models.UserRole, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
		return nil, fmt.Errorf("clear roles: %w", err)
	}

	grants := make([]models.UserRole, 0, len(roles))
	for _, r := range roles {
		grant := models.UserRole{Role: r}
		if err := tx.QueryRow(`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) RETURNING id`, id, r).Scan(&grant.ID); err != nil {
			return nil, fmt.Errorf("insert role %s: %w", r, err)
		}
		grants = append(grants, grant)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return grants, nil
}

// ListPage returns one page of users plus the total user count. sortBy
// is matched against a whitelist; unknown keys sort by creation date.
// Page numbers start at zero.
func (s *UserStore) ListPage(page, size int, sortBy string, ascending bool) ([]models.User, int, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 5
	}

	column, ok := userSortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users ORDER BY `+column+` `+direction+` LIMIT $1 OFFSET $2`,
		size, page*size,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range users {
		if err := s.loadRoles(&users[i]); err != nil {
			return nil, 0, err
		}
	}
	return users, total, nil
}

// Delete removes a user. Their testimonials go with them via the cascade.
func (s *UserStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// CheckPassword verifies a password against the stored bcrypt hash.
func (s *UserStore) CheckPassword(u *models.User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(userID uuid.UUID, secret string) error {
	_, err := s.db.Exec(`
		UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2
	`, secret, userID)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA enrollment complete after the first valid code.
func (s *UserStore) EnableTOTP(userID uuid.UUID) error {
	_, err := s.db.Exec(`
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// ResetTOTP clears a user's 2FA secret so they must re-enroll.
func (s *UserStore) ResetTOTP(userID uuid.UUID) error {
	_, err := s.db.Exec(`
		UPDATE users SET totp_secret = '', totp_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("reset totp: %w", err)
	}
	return nil
}

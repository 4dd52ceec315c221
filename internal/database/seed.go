package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a default
// operator account with the ADMIN and USER roles plus a starter category
// and tag so the submission form works out of the box. The operator will
// be prompted to set up 2FA on first password login (totp_enabled = false).
func Seed(db *sql.DB) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var adminID string
	err = db.QueryRow(`
		INSERT INTO users (email, username, fullname, password_hash, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, "admin@attesta.local", "admin", "Admin", string(hash), false).Scan(&adminID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO user_roles (user_id, role) VALUES ($1, 'ADMIN'), ($1, 'USER')
	`, adminID)
	if err != nil {
		return fmt.Errorf("seed admin roles: %w", err)
	}

	if _, err := db.Exec(`
		INSERT INTO categories (name, description)
		VALUES ('General', 'Testimonials without a more specific topic')
	`); err != nil {
		return fmt.Errorf("seed category: %w", err)
	}

	if _, err := db.Exec(`INSERT INTO tags (name) VALUES ('feedback')`); err != nil {
		return fmt.Errorf("seed tag: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", "admin@attesta.local",
		"password", "admin",
	)

	return nil
}

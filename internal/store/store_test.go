// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"attesta/internal/database"
	"attesta/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "attesta")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "attesta")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email. Testimonials, roles and links
// follow via cascades. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// cleanCategories removes test categories by name. Call in t.Cleanup().
func cleanCategories(t *testing.T, db *sql.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		db.Exec("DELETE FROM categories WHERE name = $1", name)
	}
}

// cleanTags removes test tags by name. Call in t.Cleanup().
func cleanTags(t *testing.T, db *sql.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		db.Exec("DELETE FROM tags WHERE name = $1", name)
	}
}

// cleanMedia removes test media ledger rows by S3 key. Call in t.Cleanup().
func cleanMedia(t *testing.T, db *sql.DB, keys ...string) {
	t.Helper()
	for _, key := range keys {
		db.Exec("DELETE FROM media WHERE s3_key = $1", key)
	}
}

// testAuthor creates a user to own test testimonials and registers its
// cleanup, which cascades to everything the user submitted.
func testAuthor(t *testing.T, db *sql.DB, email, fullname string) *models.User {
	t.Helper()
	t.Cleanup(func() { cleanUsers(t, db, email) })

	u, err := NewUserStore(db).CreateWithPassword(email, "testpass123", fullname, []models.Role{models.RoleUser})
	if err != nil {
		t.Fatalf("create test author: %v", err)
	}
	return u
}

// testSubmission creates a pending testimonial with one category, one tag
// and one image, returning it fully hydrated.
func testSubmission(t *testing.T, db *sql.DB, author *models.User, title string) *models.Testimonial {
	t.Helper()

	catName := "cat-" + uuid.NewString()[:8]
	tagName := "tag-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		cleanCategories(t, db, catName)
		cleanTags(t, db, tagName)
	})

	cat, err := NewCategoryStore(db).Create(catName, "test category")
	if err != nil {
		t.Fatalf("create test category: %v", err)
	}
	tag, err := NewTagStore(db).Create(tagName)
	if err != nil {
		t.Fatalf("create test tag: %v", err)
	}

	tm, err := NewTestimonialStore(db).Create(
		author.ID, title, "The service exceeded every expectation we had.",
		[]uuid.UUID{cat.ID}, []uuid.UUID{tag.ID},
		[]string{"https://media.test/img-" + uuid.NewString()[:8] + ".jpg"},
		nil,
	)
	if err != nil {
		t.Fatalf("create test testimonial: %v", err)
	}
	return tm
}

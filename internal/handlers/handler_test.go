// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL or Valkey are
// unavailable.
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"attesta/internal/cache"
	"attesta/internal/database"
	"attesta/internal/middleware"
	"attesta/internal/models"
	"attesta/internal/screening"
	"attesta/internal/session"
	"attesta/internal/store"
	"attesta/internal/widget"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "attesta")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "attesta")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session, state and cache keys.
		for _, pattern := range []string{"session:*", "public:*", "oauthstate:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB               *sql.DB
	Valkey           *redis.Client
	Sessions         *session.Store
	UserStore        *store.UserStore
	TestimonialStore *store.TestimonialStore
	CategoryStore    *store.CategoryStore
	TagStore         *store.TagStore
	MediaStore       *store.MediaStore
	PublicCache      *cache.PublicCache
	Auth             *Auth
	Testimonials     *Testimonials
	Categories       *Categories
	Tags             *Tags
	Users            *Users
	Uploads          *Uploads
	Public           *Public
}

// newTestEnv creates a complete test environment with all handler
// dependencies. Object storage, screening and Google OAuth stay nil so
// the nil-service paths get exercised.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, false)
	userStore := store.NewUserStore(db)
	testimonialStore := store.NewTestimonialStore(db)
	categoryStore := store.NewCategoryStore(db)
	tagStore := store.NewTagStore(db)
	mediaStore := store.NewMediaStore(db)
	publicCache := cache.NewPublicCache(vk, 1*time.Minute)

	widgetRenderer, err := widget.New()
	if err != nil {
		t.Fatalf("widget.New: %v", err)
	}

	var screener screening.Screener // nil: screening disabled in tests

	return &testEnv{
		DB:               db,
		Valkey:           vk,
		Sessions:         sessions,
		UserStore:        userStore,
		TestimonialStore: testimonialStore,
		CategoryStore:    categoryStore,
		TagStore:         tagStore,
		MediaStore:       mediaStore,
		PublicCache:      publicCache,
		Auth:             NewAuth(sessions, userStore, nil, vk, "http://localhost:5173"),
		Testimonials:     NewTestimonials(testimonialStore, categoryStore, tagStore, mediaStore, nil, screener, publicCache),
		Categories:       NewCategories(categoryStore),
		Tags:             NewTags(tagStore),
		Users:            NewUsers(userStore),
		Uploads:          NewUploads(mediaStore, nil),
		Public:           NewPublic(testimonialStore, publicCache, widgetRenderer, "http://localhost:8080/widget.js"),
	}
}

// testUser creates a user with the given roles and a unique email.
func testUser(t *testing.T, env *testEnv, roles ...models.Role) *models.User {
	t.Helper()
	email := fmt.Sprintf("test-%s@handlers-test.local", uuid.New().String()[:8])
	u, err := env.UserStore.CreateWithPassword(email, "correct horse", "Handler Test User", roles)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() { env.UserStore.Delete(u.ID) })
	return u
}

// testTaxonomy creates one category and one tag for submissions.
func testTaxonomy(t *testing.T, env *testEnv) (*models.Category, *models.Tag) {
	t.Helper()
	suffix := uuid.New().String()[:8]
	c, err := env.CategoryStore.Create("Cat "+suffix, "")
	if err != nil {
		t.Fatalf("create test category: %v", err)
	}
	t.Cleanup(func() { env.CategoryStore.Delete(c.ID) })

	tag, err := env.TagStore.Create("tag-" + suffix)
	if err != nil {
		t.Fatalf("create test tag: %v", err)
	}
	t.Cleanup(func() { env.TagStore.Delete(tag.ID) })
	return c, tag
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// sessionFor builds session data for an existing user.
func sessionFor(u *models.User, provider string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:    u.ID,
		Email:     u.Email,
		Fullname:  u.Fullname,
		Roles:     u.RoleNames(),
		Provider:  provider,
		TwoFADone: twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

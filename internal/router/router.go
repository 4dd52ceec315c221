// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains: the
// public read surface, the authenticated submission API and the admin
// moderation API, each with its own middleware stack.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attesta/internal/handlers"
	"attesta/internal/middleware"
	"attesta/internal/session"
	"attesta/web"
)

// Config carries the cross-cutting settings the router needs.
type Config struct {
	// Secure toggles Secure cookies on the CSRF token.
	Secure bool
	// FrontendURL is the console origin allowed for CORS.
	FrontendURL string
}

// Handlers bundles every handler group the router mounts.
type Handlers struct {
	Auth         *handlers.Auth
	Testimonials *handlers.Testimonials
	Categories   *handlers.Categories
	Tags         *handlers.Tags
	Users        *handlers.Users
	Uploads      *handlers.Uploads
	Public       *handlers.Public
}

// New creates the configured chi router. The returned rate limiters
// must be stopped on shutdown.
func New(cfg Config, sessionStore *session.Store, h Handlers) (chi.Router, []*middleware.RateLimiter) {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.LoadSession(sessionStore))
	r.Use(middleware.Logger)

	csrf := middleware.NewCSRF(cfg.Secure)
	publicLimiter := middleware.NewRateLimiter(120, time.Minute)
	submitLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Public surface — no session, no CSRF.
	r.Group(func(r chi.Router) {
		r.Use(publicLimiter.Middleware)
		r.Get("/health", h.Public.Health)
		r.Get("/api/testimonials/public", h.Public.Approved)
		r.Get("/api/embed", h.Public.EmbedInfo)
		r.Get("/embed", h.Public.Embed)
		r.Get("/widget.js", serveWidgetJS)
	})

	// Session lifecycle. No CSRF: login has no session to protect yet,
	// and the OAuth redirects carry the single-use state nonce instead.
	r.Get("/oauth2/authorize/google", h.Auth.GoogleAuthorize)
	r.Post("/oauth2/authorize/google", h.Auth.GoogleAuthorize)
	r.Get("/oauth2/callback/google", h.Auth.GoogleCallback)
	r.Post("/auth/login", h.Auth.Login)

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(csrf)

		r.Get("/auth/csrf", h.Auth.CSRFToken)
		r.Post("/auth/logout", h.Auth.Logout)
		r.Post("/auth/2fa/setup", h.Auth.TwoFASetup)
		r.Post("/auth/2fa/verify", h.Auth.TwoFAVerify)

		// Everything past the second factor.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require2FA)

			r.Get("/auth/me", h.Auth.Me)
			r.Get("/users/me", h.Users.Me)
			r.Patch("/users/update/me", h.Users.UpdateMe)

			r.Get("/api/categories", h.Categories.List)
			r.Get("/api/tags", h.Tags.List)

			r.Get("/api/testimonials/mine", h.Testimonials.Mine)
			r.Get("/api/testimonials/search", h.Public.Search)
			r.With(submitLimiter.Middleware).Post("/api/testimonials", h.Testimonials.Create)

			r.Post("/upload", h.Uploads.Image)
			r.Post("/video/upload", h.Uploads.Video)

			// Admin-only moderation and management.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/test/admin", h.Auth.AdminProbe)

				r.Get("/api/testimonials", h.Testimonials.List)
				r.Get("/api/testimonials/stats", h.Testimonials.Stats)
				r.Get("/api/testimonials/{id}", h.Testimonials.Detail)
				r.Patch("/api/testimonials/{id}/moderate", h.Testimonials.Moderate)

				r.Post("/api/categories", h.Categories.Create)
				r.Put("/api/categories/{id}", h.Categories.Update)
				r.Delete("/api/categories/{id}", h.Categories.Delete)

				r.Post("/api/tags", h.Tags.Create)
				r.Put("/api/tags/{id}", h.Tags.Update)
				r.Delete("/api/tags/{id}", h.Tags.Delete)

				r.Get("/users", h.Users.List)
				r.Put("/users/{id}", h.Users.Update)
				r.Delete("/users/{id}", h.Users.Delete)
				r.Patch("/roles", h.Users.Roles)

				r.Delete("/api/media/orphans", h.Uploads.DeleteOrphans)
			})
		})
	})

	return r, []*middleware.RateLimiter{publicLimiter, submitLimiter}
}

// serveWidgetJS serves the embedded widget script; external sites
// hot-link it, so it carries a short cache window.
func serveWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(web.WidgetJS)
}

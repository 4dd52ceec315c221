// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the Attesta testimonial server.
// It loads configuration, connects to services, sets up routing, and
// starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attesta/internal/cache"
	"attesta/internal/config"
	"attesta/internal/database"
	"attesta/internal/handlers"
	"attesta/internal/oauth"
	"attesta/internal/router"
	"attesta/internal/screening"
	"attesta/internal/session"
	"attesta/internal/storage"
	"attesta/internal/store"
	"attesta/internal/widget"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL and run pending migrations.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, public cache, OAuth state nonces).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	publicCache := cache.NewPublicCache(valkeyClient, cache.DefaultPublicTTL)

	// Data stores.
	userStore := store.NewUserStore(db)
	testimonialStore := store.NewTestimonialStore(db)
	categoryStore := store.NewCategoryStore(db)
	tagStore := store.NewTagStore(db)
	mediaStore := store.NewMediaStore(db)

	// S3-compatible object storage (optional — uploads disabled without it).
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		slog.Info("object storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("object storage not configured, media uploads disabled")
	}

	// Google sign-in (optional — password login still works without it).
	var googleClient *oauth.Client
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleClient, err = oauth.New(oauth.Config{
			ClientID:        cfg.GoogleClientID,
			ClientSecret:    cfg.GoogleClientSecret,
			RedirectURL:     cfg.GoogleRedirectURL,
			VerifySignature: true,
		})
		if err != nil {
			slog.Error("failed to initialize google sign-in", "error", err)
			os.Exit(1)
		}
		slog.Info("google sign-in configured")
	} else {
		slog.Warn("google sign-in not configured")
	}

	// Content screening (optional, best effort).
	var screener screening.Screener
	if c := screening.New(cfg.ScreeningAPIKey, cfg.ScreeningBaseURL); c != nil {
		screener = c
		slog.Info("content screening enabled")
	}

	widgetRenderer, err := widget.New()
	if err != nil {
		slog.Error("failed to initialize widget renderer", "error", err)
		os.Exit(1)
	}

	// Handler groups.
	h := router.Handlers{
		Auth:         handlers.NewAuth(sessionStore, userStore, googleClient, valkeyClient, cfg.FrontendURL),
		Testimonials: handlers.NewTestimonials(testimonialStore, categoryStore, tagStore, mediaStore, storageClient, screener, publicCache),
		Categories:   handlers.NewCategories(categoryStore),
		Tags:         handlers.NewTags(tagStore),
		Users:        handlers.NewUsers(userStore),
		Uploads:      handlers.NewUploads(mediaStore, storageClient),
		Public:       handlers.NewPublic(testimonialStore, publicCache, widgetRenderer, cfg.EmbedURL),
	}

	r, limiters := router.New(router.Config{
		Secure:      secureCookies,
		FrontendURL: cfg.FrontendURL,
	}, sessionStore, h)
	defer func() {
		for _, l := range limiters {
			l.Stop()
		}
	}()

	// WriteTimeout must accommodate large media uploads to S3.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

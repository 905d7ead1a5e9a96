// Package main is the entry point for the AppStoreBank Insights API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/cache"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/category"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/config"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/database"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/handlers"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/listing"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/middleware"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/router"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/scheduler"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/session"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/storage"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

func main() {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(context.Background(), cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if _, err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed default categories and a bootstrap admin (no-op if data exists).
	if cfg.Seed {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (Redis-compatible cache + session store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessionStore := session.NewStore(valkeyClient, cfg.SecureCookies())

	// Initialize data stores.
	articleStore := store.NewArticleStore(db)
	categoryStore := store.NewCategoryStore(db)
	profileStore := store.NewProfileStore(db)
	trendingStore := store.NewTrendingStore(db)
	appStoreStore := store.NewAppStoreStore(db)

	// Category registry and listing service, shared by every request.
	registry := category.NewRegistry(categoryStore)
	listingCache := cache.NewListingCache(valkeyClient, cfg.CountsCacheTTL)
	listingService := listing.NewService(articleStore, registry, listingCache)

	// Connect to S3-compatible object storage (optional; covers can still
	// be set by URL without it).
	var covers handlers.CoverStorage
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3BucketPublic, cfg.S3PublicURL,
	)
	switch {
	case err != nil:
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	case storageClient != nil:
		covers = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketPublic)
	default:
		slog.Warn("s3 storage not configured, cover uploads disabled")
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Periodic ranking recompute.
	sched := scheduler.New(appStoreStore, logger)
	if err := sched.Start(cfg.RankingSchedule); err != nil {
		slog.Error("failed to start scheduler", "error", err, "schedule", cfg.RankingSchedule)
		os.Exit(1)
	}

	// Create handler groups with their dependencies.
	r := router.New(router.Deps{
		Sessions:      sessionStore,
		RateLimiter:   rateLimiter,
		SecureCookies: cfg.SecureCookies(),
		DB:            db,
		Public:        handlers.NewPublic(listingService, registry, trendingStore, appStoreStore),
		Auth:          handlers.NewAuth(sessionStore, profileStore),
		Admin: handlers.NewAdmin(handlers.AdminDeps{
			Articles:     articleStore,
			Categories:   categoryStore,
			Trending:     trendingStore,
			AppStores:    appStoreStore,
			Covers:       covers,
			Listing:      listingService,
			Registry:     registry,
			AllowedHosts: cfg.AllowedImageHosts,
		}),
	})

	// WriteTimeout leaves room for cover uploads to S3.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	sched.Stop()
	listingService.Wait()

	slog.Info("server stopped gracefully")
}

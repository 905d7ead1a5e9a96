// Package router sets up all HTTP routes and middleware chains for the
// Insights API. It organizes routes into public, auth and admin groups
// with appropriate middleware stacks.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/handlers"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/metrics"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/middleware"
)

// healthTimeout bounds the database ping behind /health.
const healthTimeout = 2 * time.Second

// Pinger reports whether a backend is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds everything the router wires together.
type Deps struct {
	Sessions      middleware.SessionGetter
	RateLimiter   *middleware.RateLimiter
	SecureCookies bool
	DB            Pinger
	Public        *handlers.Public
	Auth          *handlers.Auth
	Admin         *handlers.Admin
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))

	// Ops endpoints: no auth, no CSRF.
	r.Get("/health", healthHandler(d.DB))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", d.Public.ListArticles)
			r.Get("/{slug}", d.Public.GetArticle)
			r.Post("/{id}/view", d.Public.RecordView)
		})
		r.With(d.RateLimiter.Middleware).Get("/search/articles", d.Public.SearchArticles)

		r.Get("/categories", d.Public.Categories)
		r.Get("/categories/counts", d.Public.CategoryCounts)
		r.Get("/trending", d.Public.Trending)
		r.Get("/app-stores", d.Public.AppStores)

		r.Route("/auth", func(r chi.Router) {
			r.With(d.RateLimiter.Middleware).Post("/register", d.Auth.Register)
			r.With(d.RateLimiter.Middleware).Post("/login", d.Auth.Login)
			r.Post("/logout", d.Auth.Logout)
			r.Get("/me", d.Auth.Me)

			// 2FA: requires a session but NOT completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.RequireStaff)
				r.Get("/2fa/setup", d.Auth.TwoFASetup)
				r.With(d.RateLimiter.Middleware).Post("/2fa/verify", d.Auth.TwoFAVerify)
			})
		})
	})

	// Admin API: authenticated, 2FA-verified staff with CSRF protection.
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.Require2FA)
		r.Use(middleware.RequireStaff)
		r.Use(middleware.CSRF(d.SecureCookies))

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", d.Admin.ListArticles)
			r.Post("/", d.Admin.CreateArticle)
			r.Get("/{id}", d.Admin.GetArticle)
			r.Put("/{id}", d.Admin.UpdateArticle)
			r.Delete("/{id}", d.Admin.DeleteArticle)
			r.Post("/{id}/status", d.Admin.TransitionArticle)
			r.Post("/{id}/cover", d.Admin.UploadCover)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Admin.ListCategories)
			r.Post("/", d.Admin.CreateCategory)
			r.Put("/{id}", d.Admin.UpdateCategory)
			r.Delete("/{id}", d.Admin.DeleteCategory)
		})

		r.Route("/trending", func(r chi.Router) {
			r.Get("/", d.Admin.ListTrending)
			r.Post("/", d.Admin.CreateTrending)
			r.Put("/{id}", d.Admin.UpdateTrending)
			r.Delete("/{id}", d.Admin.DeleteTrending)
		})

		r.Route("/app-stores", func(r chi.Router) {
			r.Get("/", d.Admin.ListAppStores)
			r.Post("/", d.Admin.CreateAppStore)
			r.Post("/recompute", d.Admin.RecomputeRankings)
			r.Put("/{id}", d.Admin.UpdateAppStore)
			r.Delete("/{id}", d.Admin.DeleteAppStore)
		})
	})

	return r
}

// healthHandler reports {"status":"ok"}, or 503 when the database does
// not answer a ping.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				slog.Warn("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

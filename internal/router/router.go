package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/one23four56/backup-google-chat-sub001/internal/middleware"
	"github.com/one23four56/backup-google-chat-sub001/internal/middleware/metrics"
	rl "github.com/one23four56/backup-google-chat-sub001/internal/middleware/ratelimiter"
	"github.com/one23four56/backup-google-chat-sub001/internal/setup"
)

// New builds the chi router with all routes wired.
// Rate limiters set with .Use limit all endpoints in that group combined.
func New(deps *setup.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeaders(deps.Config.Public.SecureCookies))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/health", h.Health)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Email sending is the most expensive path: tight limits
			// per email, per IP, and globally.
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.New(1.0/60, 1, time.Hour), mw.GetEmailFromBody))
				r.Use(mw.RateLimit(rl.New(1.0/10, 2, time.Hour), mw.GetIP))
				r.Use(mw.GlobalRateLimit(rl.New(10, 10, time.Hour)))
				r.Post("/request_code", h.RequestCode)
			})

			// Code confirmation: strict per-IP limits against brute force.
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.New(5.0/600, 5, time.Hour), mw.GetEmailFromBody))
				r.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetIP))
				r.Post("/confirm", h.Confirm)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetIP))
				r.Post("/login", h.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMw.NeedAuth())
				r.Post("/logout", h.Logout)
				r.Post("/logout_all", h.LogoutAll)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw.NeedAuth())
			r.Use(mw.RateLimit(rl.Rps10(), mw.GetUserIdFromContext))

			r.Get("/messages", h.GetMessages)
			r.With(mw.RateLimit(rl.New(1, 3, time.Hour), mw.GetUserIdFromContext)).
				Post("/messages", h.CreateMessage)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMw.AdminOnly())
			r.Post("/mute", h.MuteUser)
			r.Post("/unmute", h.UnmuteUser)
		})
	})

	// Preflight requests should not 404.
	r.MethodFunc("OPTIONS", "/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

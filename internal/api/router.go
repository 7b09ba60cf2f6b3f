package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// The dev utility routes are mounted only when the dev_endpoints flag is
// enabled; with the flag off they fall through to the router's 404.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth flows (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)

			// Protected account operations
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Get("/me", s.handleMe)
				r.Post("/change-password", s.handleChangePassword)
			})
		})

		// Audit trail (admin only)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requireAdmin)

			r.Get("/audit", s.handleListAudit)
		})

		// Dev utilities
		if s.authCfg.DevEndpoints {
			r.Route("/dev", func(r chi.Router) {
				r.Post("/hash", s.handleDevHash)
				r.Post("/verify", s.handleDevVerify)
				r.Post("/reset-password", s.handleDevResetPassword)
			})
		}
	})

	return r
}

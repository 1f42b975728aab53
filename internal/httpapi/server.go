package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/miorah/storefront/internal/service"
	"github.com/miorah/storefront/internal/token"
)

// NewRouter assembles the storefront API surface.
func NewRouter(auth *service.AuthService, carts *service.CartService, tokens *token.Manager, logger zerolog.Logger, requestTimeout time.Duration) http.Handler {
	authHandler := NewAuthHandler(auth)
	cartHandler := NewCartHandler(carts)
	requireAuth := AuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/users", authHandler.Register)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/", authHandler.Login)
		// Refresh accepts recently expired tokens, so it cannot sit
		// behind the strict auth middleware.
		r.Post("/refresh", authHandler.Refresh)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", authHandler.Profile)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", cartHandler.Create)
		r.Get("/{userID}", cartHandler.Get)
		r.Put("/{userID}", cartHandler.Replace)
		r.Delete("/{userID}", cartHandler.Delete)
	})

	return r
}

// Package cortex собирает HTTP API сервиса генерации изображений.
package cortex

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/cortex/internal/http/handlers/auth"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/gallery"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/generation"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/health"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/stats"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/tokens"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/user"
	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
)

// Handlers обработчики всех групп маршрутов.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Subscription *subscription.Handler
	Tokens       *tokens.Handler
	Generation   *generation.Handler
	Gallery      *gallery.Handler
	Stats        *stats.Handler
	Health       *health.Handler
}

// Guards middleware доступа и ограничения частоты.
type Guards struct {
	Parser   middlewarectx.TokenParser
	Accounts middlewarectx.AccountGetter
	Limiter  *middlewarectx.RateLimiter
	CORS     *cors.Cors
}

// NewCORS разрешает фронтенду с перечисленных origin обращаться к API с токеном.
func NewCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	})
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, h Handlers, g Guards) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.MetricsMiddleware,
	)
	if g.CORS != nil {
		r.Use(g.CORS.Handler)
	}

	limited := middlewarectx.RateLimitMiddleware(g.Limiter, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", h.Auth.Register)
			r.With(limited).Post("/login", h.Auth.Login)
			r.Post("/verify-email", h.Auth.VerifyEmail)
			r.With(limited).Post("/forgot-password", h.Auth.ForgotPassword)
			r.Post("/reset-password", h.Auth.ResetPassword)
			r.Post("/refresh-token", h.Auth.Refresh)
			r.Post("/logout", h.Auth.Logout)
		})
		r.Get("/subscriptions/plans", h.Subscription.Plans)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(g.Parser, logger))
			r.Use(middlewarectx.ActiveAccountMiddleware(logger, g.Accounts))

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", h.User.Profile)
				r.Patch("/profile", h.User.UpdateProfile)
				r.Post("/avatar", h.User.UploadAvatar)
				r.Patch("/password", h.User.ChangePassword)
				r.Delete("/account", h.User.Delete)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/current", h.Subscription.Current)
				r.Post("/subscribe", h.Subscription.Subscribe)
				r.Post("/cancel", h.Subscription.Cancel)
				r.Get("/payments", h.Subscription.Payments)
			})

			r.Route("/tokens", func(r chi.Router) {
				r.Get("/balance", h.Tokens.Balance)
				r.Get("/history", h.Tokens.History)
			})

			r.Route("/generate", func(r chi.Router) {
				r.With(limited).Post("/image", h.Generation.Create)
				r.Get("/status/{id}", h.Generation.Status)
				r.Get("/history", h.Generation.History)
				r.Delete("/{id}", h.Generation.Delete)
			})

			r.Route("/gallery", func(r chi.Router) {
				r.Get("/", h.Gallery.List)
				r.Get("/favorites", h.Gallery.Favorites)
				r.Get("/search", h.Gallery.Search)
				r.Post("/{id}/favorite", h.Gallery.AddFavorite)
				r.Delete("/{id}/favorite", h.Gallery.RemoveFavorite)
				r.Delete("/{id}", h.Gallery.DeleteImage)
			})

			r.Get("/stats/user", h.Stats.ServeHTTP)
		})
	})

	r.Get("/health", h.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

// Package gymaccessbroker предоставляет маршруты для основного приложения.
package gymaccessbroker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/santiagoe16/gym-access-broker/internal/broker"
	"github.com/santiagoe16/gym-access-broker/internal/http/handlers/auth/login"
	"github.com/santiagoe16/gym-access-broker/internal/http/handlers/member/read"
	wsgym "github.com/santiagoe16/gym-access-broker/internal/http/handlers/ws/gym"
	wshealth "github.com/santiagoe16/gym-access-broker/internal/http/handlers/ws/health"
	wsuser "github.com/santiagoe16/gym-access-broker/internal/http/handlers/ws/user"
	"github.com/santiagoe16/gym-access-broker/internal/http/middlewarectx"
	"github.com/santiagoe16/gym-access-broker/internal/lib/jwt"
	authservice "github.com/santiagoe16/gym-access-broker/internal/services/auth"
	directoryservice "github.com/santiagoe16/gym-access-broker/internal/services/directory"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, dispatcher *broker.Dispatcher, authService *authservice.Service, directoryService *directoryservice.Service, jwtMaker jwt.Maker) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// REST-поверхность персонала
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/login", login.New(logger, authService).ServeHTTP)

			// Группа с JWT аутентификацией
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
				r.Get("/members/{id}", read.New(logger, directoryService).ServeHTTP)
			})
		})

		// Дуплексные соединения протокола регистрации отпечатков
		r.Get("/ws/gym/{gym_id}", wsgym.New(logger, dispatcher).ServeHTTP)
		r.Get("/ws/user/{user_id}", wsuser.New(logger, dispatcher).ServeHTTP)
		r.Get("/fingerprint/health", wshealth.New(logger, dispatcher.Registry()).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

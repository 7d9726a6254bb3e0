package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/attendance-management/api"
	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	"github.com/frahmantamala/attendance-management/internal/auth"
	"github.com/frahmantamala/attendance-management/internal/notification"
	"github.com/frahmantamala/attendance-management/internal/observability"
	"github.com/frahmantamala/attendance-management/internal/officelocation"
	"github.com/frahmantamala/attendance-management/internal/report"
	"github.com/frahmantamala/attendance-management/internal/transport/middleware"
	"github.com/frahmantamala/attendance-management/internal/transport/swagger"
	"github.com/frahmantamala/attendance-management/internal/user"
)

// Handlers groups the HTTP surface. A nil handler leaves its routes unmounted.
type Handlers struct {
	Auth           *auth.Handler
	RBAC           *auth.RBACAuthorization
	Attendance     *attendance.Handler
	OfficeLocation *officelocation.Handler
	Notification   *notification.Handler
	User           *user.Handler
	Report         *report.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	RateLimit      internal.RateLimitConfig
	Metrics        internal.MetricsConfig
}

func RegisterAllRoutes(router *chi.Mux, db Pinger, h Handlers, opts RouterOptions, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.TraceID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if opts.Metrics.Enabled {
		router.Use(observability.Instrument)
		path := opts.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, observability.Handler())
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler())

	limiter := func(next http.Handler) http.Handler { return next }
	if opts.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(opts.RateLimit.PerSecond, opts.RateLimit.Burst).Middleware
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Group(func(cr chi.Router) {
				cr.Use(limiter)
				cr.Post("/register", h.Auth.Register)
				cr.Post("/login", h.Auth.Login)
				cr.Post("/refresh", h.Auth.Refresh)
				cr.Post("/forgot-password", h.Auth.ForgotPassword)
				cr.Post("/reset-password", h.Auth.ResetPassword)
			})
			ar.Post("/logout", h.Auth.Logout)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Post("/logout-all", h.Auth.LogoutAll)
				pr.Get("/me", h.Auth.Me)
				pr.Post("/change-password", h.Auth.ChangePassword)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Attendance != nil {
				pr.Route("/presence", func(sr chi.Router) {
					sr.Post("/clock-in", h.Attendance.ClockIn)
					sr.Post("/clock-out", h.Attendance.ClockOut)
					sr.Get("/today", h.Attendance.Today)
					sr.Get("/history", h.Attendance.History)
					sr.Get("/summary", h.Attendance.Summary)
				})
			}

			if h.OfficeLocation != nil {
				pr.Route("/office-locations", func(sr chi.Router) {
					sr.Get("/", h.OfficeLocation.List)
					sr.Get("/{id}", h.OfficeLocation.Get)
					sr.Post("/validate", h.OfficeLocation.Validate)

					sr.Group(func(ar chi.Router) {
						ar.Use(h.RBAC.RequireAdmin())
						ar.Post("/", h.OfficeLocation.Create)
						ar.Put("/{id}", h.OfficeLocation.Update)
						ar.Delete("/{id}", h.OfficeLocation.Delete)
					})
				})
			}

			if h.Notification != nil {
				pr.Route("/notifications", func(sr chi.Router) {
					sr.Get("/", h.Notification.List)
					sr.Get("/stats", h.Notification.Stats)
					sr.Patch("/read-all", h.Notification.MarkAllAsRead)
					sr.Delete("/clear-read", h.Notification.ClearRead)
					sr.Patch("/{id}/read", h.Notification.MarkAsRead)
					sr.Delete("/{id}", h.Notification.Delete)

					sr.With(h.RBAC.RequireAdmin()).Post("/broadcast", h.Notification.Broadcast)
				})
			}

			pr.Route("/admin", func(sr chi.Router) {
				sr.Use(h.RBAC.RequireAdmin())

				if h.User != nil {
					sr.Get("/users", h.User.List)
					sr.Get("/users/{id}", h.User.Get)
					sr.Put("/users/{id}", h.User.Update)
					sr.Delete("/users/{id}", h.User.Delete)
				}
				if h.Report != nil {
					sr.Get("/stats", h.Report.Stats)
					sr.Get("/presences", h.Report.Presences)
					sr.Get("/reports/monthly", h.Report.Monthly)
					sr.Get("/reports/monthly.pdf", h.Report.MonthlyPDF)
				}
			})
		})
	})
}

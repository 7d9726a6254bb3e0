package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/attendance-management/api"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	"github.com/frahmantamala/attendance-management/internal/auth"
	"github.com/frahmantamala/attendance-management/internal/notification"
	"github.com/frahmantamala/attendance-management/internal/observability"
	"github.com/frahmantamala/attendance-management/internal/officelocation"
	"github.com/frahmantamala/attendance-management/internal/report"
	"github.com/frahmantamala/attendance-management/internal/transport"
	"github.com/frahmantamala/attendance-management/internal/transport/rest"
	"github.com/frahmantamala/attendance-management/internal/user"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests. Runs the job scheduler too when scheduler.enabled is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	App    *application
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.App.close()

	setupRoutes(deps)

	cfg := deps.App.config
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		s, err := deps.App.newScheduler()
		if err != nil {
			deps.Logger.Error("failed to build scheduler", "error", err)
			os.Exit(1)
		}
		go s.Start(ctx)
	}

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("received signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.App.bus.Wait(shutdownCtx); err != nil {
			deps.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	app := deps.App
	cfg := app.config
	baseHandler := transport.NewBaseHandler(deps.Logger)

	handlers := rest.Handlers{
		Auth: auth.NewHandler(baseHandler, app.auth, auth.CookieOptions{
			Secure:     cfg.Security.SecureCookies,
			AccessTTL:  cfg.Security.AccessTokenDuration,
			RefreshTTL: cfg.Security.RefreshTokenDuration,
		}),
		RBAC:           auth.NewRBACAuthorization(baseHandler, deps.Logger),
		Attendance:     attendance.NewHandler(baseHandler, app.attendance),
		OfficeLocation: officelocation.NewHandler(baseHandler, app.offices),
		Notification:   notification.NewHandler(baseHandler, app.notifications),
		User:           user.NewHandler(baseHandler, app.users),
		Report:         report.NewHandler(baseHandler, app.reports),
	}

	rest.RegisterAllRoutes(deps.Router, app.db, handlers, rest.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		Metrics:        cfg.Observability.Metrics,
	}, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app, err := newApplication(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.db.PingContext(ctx); err != nil {
		app.close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := api.Load(ctx); err != nil {
		app.logger.Warn("openapi document is invalid", "error", err)
	}

	if config.Observability.Metrics.Enabled {
		observability.Init()
	}

	return &Dependencies{
		App:    app,
		Router: chi.NewRouter(),
		Logger: app.logger,
	}, nil
}

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/attendance"
	attendancePostgres "github.com/frahmantamala/attendance-management/internal/attendance/postgres"
	"github.com/frahmantamala/attendance-management/internal/auth"
	authPostgres "github.com/frahmantamala/attendance-management/internal/auth/postgres"
	"github.com/frahmantamala/attendance-management/internal/core/events"
	"github.com/frahmantamala/attendance-management/internal/email"
	"github.com/frahmantamala/attendance-management/internal/notification"
	notificationPostgres "github.com/frahmantamala/attendance-management/internal/notification/postgres"
	"github.com/frahmantamala/attendance-management/internal/officelocation"
	officelocationPostgres "github.com/frahmantamala/attendance-management/internal/officelocation/postgres"
	"github.com/frahmantamala/attendance-management/internal/report"
	reportPostgres "github.com/frahmantamala/attendance-management/internal/report/postgres"
	"github.com/frahmantamala/attendance-management/internal/scheduler"
	"github.com/frahmantamala/attendance-management/internal/user"
	userPostgres "github.com/frahmantamala/attendance-management/internal/user/postgres"
	"github.com/frahmantamala/attendance-management/pkg/logger"
)

// application holds the services shared by the server, scheduler and job commands.
type application struct {
	config *internal.Config
	logger *slog.Logger
	db     *sqlx.DB
	gormDB *gorm.DB
	bus    *events.EventBus
	loc    *time.Location

	presences     *attendancePostgres.PresenceRepository
	users         *user.Service
	auth          *auth.Service
	attendance    *attendance.Service
	offices       *officelocation.Service
	notifications *notification.Service
	reports       *report.Service
}

func newApplication(cfg *internal.Config) (*application, error) {
	logger.InitWithOptions(appEnv(), cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, err
	}
	cutoff, err := cfg.Attendance.Cutoff()
	if err != nil {
		return nil, err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	app := &application{
		config:    cfg,
		logger:    lg,
		db:        db,
		gormDB:    gormDB,
		bus:       events.NewEventBus(lg),
		loc:       loc,
		presences: attendancePostgres.NewPresenceRepository(gormDB),
	}

	app.users = user.NewService(userPostgres.NewUserRepository(gormDB), lg)

	app.notifications = notification.NewService(
		notificationPostgres.NewNotificationRepository(gormDB),
		app.users,
		lg,
		notification.WithLocation(loc),
	)
	notification.NewSubscriber(app.notifications).Register(app.bus)

	app.offices = officelocation.NewService(officelocationPostgres.NewOfficeLocationRepository(gormDB), lg)

	app.attendance = attendance.NewService(app.presences, app.offices, app.bus, lg,
		attendance.WithLocation(loc),
		attendance.WithLateCutoff(cutoff),
	)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authOpts := []auth.Option{auth.WithWorkStart("08:00")}
	if cfg.Security.BCryptCost > 0 {
		authOpts = append(authOpts, auth.WithBcryptCost(cfg.Security.BCryptCost))
	}
	app.auth = auth.NewService(
		authPostgres.NewUserRepository(gormDB),
		authPostgres.NewTokenRepository(gormDB),
		authPostgres.NewResetRepository(gormDB),
		tokenGen,
		app.notifications,
		email.New(cfg.Email, lg),
		lg,
		authOpts...,
	)

	app.reports = report.NewService(reportPostgres.NewReportRepository(db), lg, report.WithLocation(loc))

	return app, nil
}

// newScheduler registers every attendance job on a scheduler running in the configured zone.
func (a *application) newScheduler() (*scheduler.Scheduler, error) {
	loc, err := a.config.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	s := scheduler.New(a.logger, scheduler.WithLocation(loc))
	tasks := scheduler.NewTasks(a.users, a.presences, a.notifications, a.auth, a.logger)
	if err := s.Register(tasks.Jobs()...); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *application) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}
}

// initDB opens the shared pgx pool through sqlx.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// initGorm layers gorm over the same connection pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

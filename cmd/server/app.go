package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasknest/tasknest-api/internal/config"
	"github.com/tasknest/tasknest-api/internal/platform/mail"
	"github.com/tasknest/tasknest-api/internal/platform/postgres"
	"github.com/tasknest/tasknest-api/internal/scheduler"
	"github.com/tasknest/tasknest-api/internal/service"
	"github.com/tasknest/tasknest-api/internal/service/auth"
	"github.com/tasknest/tasknest-api/internal/store"
)

// application holds the shared application dependencies so wiring and
// shutdown happen in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore  store.UserStore
	tokenStore store.TokenStore
	taskStore  store.TaskStore

	// Services
	sessions       *auth.SessionService
	accountService *service.AccountService
	taskService    *service.TaskService
	userService    *service.UserService
	mailer         mail.Mailer

	// Background jobs
	dailyJob *scheduler.Daily
}

// newApplication creates an application instance with all dependencies
// initialized. Configuration, logging and the database connection must be
// established before calling it.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	codec, err := auth.NewTokenCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	logger.Info("token codec initialized",
		"access_token_lifetime_minutes", cfg.Auth.AccessTokenLifetimeMinutes,
		"refresh_token_lifetime_minutes", cfg.Auth.RefreshTokenLifetimeMinutes)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.tokenStore = postgres.NewPostgresTokenStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	accessValidity := time.Duration(cfg.Auth.AccessTokenLifetimeMinutes) * time.Minute
	app.sessions = auth.NewSessionService(codec, app.tokenStore, app.userStore, accessValidity)

	app.mailer = mail.NewSMTPMailer(cfg.Mail)

	passwords := auth.NewBcryptVerifier()
	app.accountService = service.NewAccountService(
		db, app.userStore, app.tokenStore, app.sessions, passwords, app.mailer, cfg.Auth, cfg.Mail)
	app.taskService = service.NewTaskService(db, app.taskStore)
	app.userService = service.NewUserService(app.userStore)

	if err := app.setupDailyJob(); err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// setupDailyJob wires the due-task notifier into the daily scheduler.
func (app *application) setupDailyJob() error {
	if !app.config.Notifier.Enabled {
		app.logger.Info("due-task notifier disabled")
		return nil
	}

	loc, err := time.LoadLocation(app.config.Notifier.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load notifier timezone %q: %w", app.config.Notifier.Timezone, err)
	}

	notifier := scheduler.NewDueTaskNotifier(
		app.taskStore, app.userStore, app.mailer, loc, app.logger)
	app.dailyJob = scheduler.NewDaily(app.config.Notifier.Hour, loc, notifier.Run, app.logger)

	return nil
}

// Run starts the background jobs and the HTTP server, then blocks until
// shutdown.
func (app *application) Run(ctx context.Context) error {
	if app.dailyJob != nil {
		app.dailyJob.Start()
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.dailyJob != nil {
		app.dailyJob.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}

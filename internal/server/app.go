// Package server wires the blog together: storage, services, the HTTP
// surface and the session cleanup job, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/logging"
	"github.com/inkwell-blog/inkwell/internal/server/avatar"
	"github.com/inkwell-blog/inkwell/internal/server/config"
	"github.com/inkwell-blog/inkwell/internal/server/mail"
	"github.com/inkwell-blog/inkwell/internal/server/metrics"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/repomanager"
	"github.com/inkwell-blog/inkwell/internal/server/services"
	"github.com/inkwell-blog/inkwell/internal/server/web"
)

// rate limiter buckets kept before the table is reset
const maxLimiterEntries = 10000

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	identity *services.IdentityService
	metrics  *metrics.Metrics
	web      *web.Server
	handler  http.Handler
}

// NewApp opens the store, applies migrations and builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, dialect, err := dbx.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	secret := c.SecretKey
	if secret == "" {
		secret, err = common.MakeRandHexString(32)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Warn(ctx, "no secret key configured, sessions will not survive a restart")
	}

	p := policy.New(c.AdminUserID)
	m := metrics.New()

	identity := services.NewIdentityService(db, rm, []byte(secret), c.SessionDuration)
	content := services.NewContentService(db, rm, p, avatar.NewGravatar())
	contact := services.NewContactService(mail.NewSMTPRelay(c.SMTPAddr, c.SMTPUser, c.SMTPPassword), c.SMTPUser)
	media := services.NewMediaService(p, c)

	ws := web.NewServer(web.Deps{
		Identity:  identity,
		Content:   content,
		Contact:   contact,
		Media:     media,
		Policy:    p,
		Logger:    logger.With("module", "web"),
		Metrics:   m,
		Health:    db.PingContext,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
	})

	logger.Info(ctx, "store ready", "driver", dialect.Name)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		identity: identity,
		metrics:  m,
		web:      ws,
		handler:  ws.Routes(),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// purgeSessions removes expired sessions and trims the rate limiter table.
func (app *App) purgeSessions(ctx context.Context) {
	n, err := app.identity.CleanupExpiredSessions(ctx)
	if err != nil {
		app.logger.Error(ctx, "session cleanup failed", "error", err)
		return
	}
	app.metrics.RecordSessionsPurged(n)
	app.web.Limiter().Cleanup(maxLimiterEntries)
	if n > 0 {
		app.logger.Info(ctx, "expired sessions purged", "count", n)
	}
}

func (app *App) startScheduler(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(app.config.SessionCleanupSchedule, func() { app.purgeSessions(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", app.config.SessionCleanupSchedule, err)
	}
	c.Start()
	return c, nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := web.NewHTTPServer(app.config.ListenAddr, app.handler)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", app.config.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
		}
		cancelFunc()
	case <-ctx.Done():
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}
}

// Run serves until the process is signalled or the server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	app.purgeSessions(ctx)
	sched, err := app.startScheduler(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	<-sched.Stop().Done()

	return app.Close()
}

func (app *App) Close() error {
	return app.db.Close()
}

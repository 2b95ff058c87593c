// Package server assembles the dealflow application: it opens the database,
// builds the repositories, services and HTTP API, and runs them until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/dmitrijs2005/dealflow/internal/server/config"
	"github.com/dmitrijs2005/dealflow/internal/server/httpapi"
	"github.com/dmitrijs2005/dealflow/internal/server/mail"
	"github.com/dmitrijs2005/dealflow/internal/server/metrics"
	"github.com/dmitrijs2005/dealflow/internal/server/replay"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dealflow/internal/server/services"
	"github.com/dmitrijs2005/dealflow/internal/server/signtoken"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var openDB = sql.Open

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	repomanager repomanager.RepositoryManager
	handler     *httpapi.Handler
	mailer      mail.Mailer
	guard       replay.Guard
}

func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, "dealflow")
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, repomanager: repomanager.NewPostgresRepositoryManager()}

	if c.MailAPIBaseURL == "" {
		app.mailer = mail.NewLogMailer(logger)
	} else {
		app.mailer = mail.NewAPIMailer(c.MailAPIBaseURL, c.MailAPIKey, c.MailFrom)
	}

	if c.RedisAddr == "" {
		app.guard = replay.NewMemoryGuard()
	} else {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.guard = replay.NewRedisGuard(app.redis, "dealflow:sign:")
	}

	collector := metrics.New()
	m := app.repomanager

	app.handler = httpapi.NewHandler(httpapi.Deps{
		Users:      services.NewUserService(db, m, c),
		Deals:      services.NewDealService(db, m, logger),
		TermSheets: services.NewTermSheetService(db, m, app.mailer, collector, logger),
		Ledger:     services.NewLedgerService(db, m, collector, logger),
		Consents: services.NewConsentService(db, m, signtoken.NewIssuer([]byte(c.SecretKey)), app.guard,
			app.mailer, collector, logger, c),
		Storage:   services.NewStorageService(c),
		Metrics:   collector.Handler(),
		Logger:    logger,
		JWTSecret: []byte(c.SecretKey),
	})

	return app, nil
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	app.logger.Info(ctx, "Running migrations...")
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.handler.Router(app.config.CORSOrigins()), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or a shutdown signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	if app.config.RunMigrations {
		if err := app.Migrate(ctx); err != nil {
			return err
		}
	}

	app.initSignalHandler(cancelFunc)

	var (
		wg      sync.WaitGroup
		httpErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		httpErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	return httpErr
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close failed", "error", err)
	}
}

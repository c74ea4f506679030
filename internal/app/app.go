package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/complaintdesk/internal/auth"
	"github.com/complaintdesk/internal/config"
	"github.com/complaintdesk/internal/mailer"
	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/service"
	"github.com/complaintdesk/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	mailQueueRate   = 500 * time.Millisecond
	mailQueueBuffer = 256
)

type App struct {
	config     *config.Config
	logger     *slog.Logger
	store      store.Store
	queue      *mailer.Queue
	accounts   *service.Accounts
	complaints *service.Complaints
}

func (app *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.store.Close(ctx); err != nil {
		app.logger.Error("closing store", "err", err)
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return newApp(ctx, cfg, logger, s), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, s store.Store) *App {
	hasher := auth.NewHasher(cfg.BcryptCost)
	if cfg.Seed.Email != "" {
		auth.SeedFirstAdmin(ctx, s, hasher, auth.SeedAdmin{
			Workflow: model.Workflow(cfg.Seed.Workflow),
			Email:    cfg.Seed.Email,
			Password: cfg.Seed.Password,
			Name:     cfg.Seed.Name,
		})
	}

	tokens := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)
	guard := auth.NewGuard(tokens, s)

	m := mailer.New(&mailer.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPass,
		FromAddress: cfg.SMTPFromEmail,
		FromName:    cfg.SMTPFromName,
	})
	queue := mailer.NewQueue(m, mailQueueRate, mailQueueBuffer)

	return &App{
		config:     cfg,
		logger:     logger,
		store:      s,
		queue:      queue,
		accounts:   service.NewAccounts(s, hasher, tokens, logger),
		complaints: service.NewComplaints(s, guard, queue, logger, cfg.MaxPhotoBytes()),
	}
}

// Start serves HTTP and runs the mail queue until ctx is cancelled, then
// shuts both down.
func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "store", app.config.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		app.queue.Start(gctx)
		app.logger.Info("mail queue stopped")
		return nil
	})

	// Start shutdown listener
	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or a failed sibling

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)

		// In-flight status updates may have queued mail after the worker stopped.
		app.logger.Info("draining mail queue", "pending", app.queue.Len())
		app.queue.Drain()

		if err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.DriverMongo:
		return store.OpenMongo(ctx, cfg.MongoURL, cfg.DBName)
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}

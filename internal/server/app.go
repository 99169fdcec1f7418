// Package server wires the storefront components together and runs the
// HTTP server until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/catalog"
	"github.com/MrEthical07/storefront/httpapi"
	"github.com/MrEthical07/storefront/internal/logging"
	"github.com/MrEthical07/storefront/internal/server/config"
	"github.com/MrEthical07/storefront/metrics/export/prometheus"
	"github.com/MrEthical07/storefront/notify"
	"github.com/MrEthical07/storefront/store/memory"
	"github.com/MrEthical07/storefront/store/postgres"
	"github.com/MrEthical07/storefront/store/redisotp"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived resource of the server.
type App struct {
	config  *config.Config
	logger  logging.Logger
	engine  *storefront.Engine
	handler http.Handler
	closers []func() error
}

type stores struct {
	users      storefront.UserStore
	otps       storefront.OtpStore
	categories catalog.CategoryRepository
	products   catalog.ProductRepository
}

// NewApp opens the configured backends and builds the HTTP handler. The
// admin account is seeded when ADMIN_EMAIL is set.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, cfg.Environment, cfg.LogLevel)
	return newApp(ctx, cfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	st, err := app.openStores(ctx)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		app.closers = append(app.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		st.otps = redisotp.New(rdb, cfg.RedisPrefix)
		logger.Info(ctx, "redis enabled", "addr", cfg.RedisAddr)
	}

	gateway, err := newNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	b := storefront.New().
		WithConfig(engineCfg).
		WithUserStore(st.users).
		WithOtpStore(st.otps).
		WithNotifier(gateway).
		WithLogger(logger).
		WithAuditSink(storefront.NewSlogSink(logger.With("component", "audit")))
	if rdb != nil {
		b.WithRedis(rdb)
	}
	engine, err := b.Build()
	if err != nil {
		return nil, err
	}
	app.engine = engine
	app.closers = append(app.closers, func() error {
		engine.Close()
		return nil
	})

	if cfg.AdminEmail != "" {
		admin, created, err := engine.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		logger.Info(ctx, "admin account ready", "user_id", admin.ID, "created", created)
	}

	var metrics http.Handler
	if cfg.MetricsEnabled {
		metrics = prometheus.NewPrometheusExporter(engine).Handler()
		if cfg.MetricsOTel {
			h, shutdown, err := newOTelHandler(engine)
			if err != nil {
				return nil, err
			}
			app.closers = append(app.closers, shutdown)
			metrics = withOTel(metrics, h)
		}
	}

	app.handler = httpapi.NewRouter(httpapi.Config{
		Prefix:             cfg.APIPrefix,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CORSAllowedMethods: cfg.CORSAllowedMethods,
		CORSAllowedHeaders: cfg.CORSAllowedHeaders,
	}, httpapi.Deps{
		Engine:  engine,
		Catalog: catalog.NewService(st.categories, st.products, logger.With("component", "catalog")),
		Logger:  logger.With("component", "http"),
		Metrics: metrics,
	})
	return app, nil
}

func (app *App) openStores(ctx context.Context) (*stores, error) {
	if app.config.DatabaseDSN == "" {
		users := memory.NewUserStore()
		otps := memory.NewOtpStore()
		users.Cascade(otps)
		shop := memory.NewCatalog()
		app.logger.Warn(ctx, "DATABASE_DSN not set, using in-memory storage")
		return &stores{users: users, otps: otps, categories: shop.Categories(), products: shop.Products()}, nil
	}

	db, err := postgres.Open(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db.Close)
	return postgresStores(db), nil
}

func postgresStores(db *sql.DB) *stores {
	return &stores{
		users:      postgres.NewUserStore(db),
		otps:       postgres.NewOtpStore(db),
		categories: postgres.NewCategoryRepository(db),
		products:   postgres.NewProductRepository(db),
	}
}

func newNotifier(cfg *config.Config, logger logging.Logger) (*notify.Gateway, error) {
	renderer, err := notify.NewRenderer(cfg.SupportEmail, cfg.Brand)
	if err != nil {
		return nil, err
	}

	var sender notify.EmailSender
	switch cfg.MailDriver {
	case config.MailDriverSMTP:
		sender, err = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	case config.MailDriverSendGrid:
		sender, err = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		})
	default:
		sender = notify.NewLogSender(logger.With("component", "mail"))
	}
	if err != nil {
		return nil, fmt.Errorf("mail init error: %w", err)
	}
	return notify.NewGateway(renderer, sender, logger.With("component", "notify")), nil
}

// Handler returns the root HTTP handler.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests and releases every backend.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer app.close()

	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "http server listening", "addr", srv.Addr, "env", app.config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// close releases resources in reverse order of acquisition.
func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

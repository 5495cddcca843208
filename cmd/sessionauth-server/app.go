package main

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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/httpapi"
	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/internal/housekeeping"
	"github.com/MrEthical07/sessionauth/internal/slogx"
	"github.com/MrEthical07/sessionauth/metrics/export/prometheus"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/refresh"
	"github.com/MrEthical07/sessionauth/refresh/sqlite"
)

// BuildVersion is overridden with -ldflags at release time.
var BuildVersion = "dev"

type Application struct {
	cfg    Config
	logger *slog.Logger

	engine    *sessionauth.Engine
	pinger    func(context.Context) error
	closers   []func() error
	sweeper   *housekeeping.Worker
	server    *http.Server
	directory *identity.Directory
}

func NewApplication(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sessionauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	store, err := app.initStore()
	if err != nil {
		app.closeAll()
		return nil, err
	}

	hasher, err := password.New(password.DefaultConfig())
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	app.directory = identity.NewDirectory(hasher)

	builder := sessionauth.New().
		WithConfig(app.engineConfig()).
		WithRefreshStore(store).
		WithIdentityProvider(app.directory).
		WithLogger(app.logger)
	if cfg.AuditLog {
		builder = builder.WithAuditSink(sessionauth.NewSlogSink(app.logger.With("stream", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	app.engine = engine

	if engine.SweepEnabled() && cfg.SweepInterval > 0 {
		app.sweeper = housekeeping.New(engine, app.logger, cfg.SweepInterval)
	}

	app.initHTTP()
	return app, nil
}

func (app *Application) engineConfig() sessionauth.Config {
	cfg := sessionauth.DefaultConfig()
	cfg.JWT.AccessTTL = app.cfg.AccessTTL
	cfg.JWT.RefreshTTL = app.cfg.RefreshTTL
	cfg.JWT.AccessPrivateKey = []byte(app.cfg.AccessSecret)
	cfg.JWT.RefreshPrivateKey = []byte(app.cfg.RefreshSecret)
	cfg.JWT.Issuer = app.cfg.Issuer
	cfg.JWT.Audience = app.cfg.Audience

	cfg.Store.RedisPrefix = app.cfg.RedisPrefix
	cfg.Store.Retention = app.cfg.Retention
	cfg.Store.SweepInterval = app.cfg.SweepInterval

	cfg.Cookie.Domain = app.cfg.CookieDomain
	cfg.Cookie.Secure = app.cfg.CookieSecure
	if !cfg.Cookie.Secure {
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}

	cfg.Audit.Enabled = app.cfg.AuditLog
	cfg.Metrics.EnableLatencyHistograms = true

	cfg.Security.ProductionMode = app.cfg.Production()
	cfg.Security.EnableAuthThrottle = app.cfg.AuthThrottle
	cfg.Security.AuthRequestsPerSecond = app.cfg.AuthRPS
	cfg.Security.AuthBurst = app.cfg.AuthBurst
	cfg.Security.TrustedProxies = app.cfg.TrustedProxies
	return cfg
}

func (app *Application) initStore() (refresh.Store, error) {
	switch app.cfg.StoreDriver {
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		store, err := sqlite.NewStore(dsn, sqlite.WithRetention(app.cfg.Retention))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		if err := store.ApplyMigrations(); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		app.pinger = store.Ping
		app.logger.Info("refresh store ready", "driver", DriverSQLite, "file", app.cfg.DatabaseFile)
		return store, nil

	case DriverMemory:
		app.logger.Warn("refresh store is in-process; records are lost on restart", "driver", DriverMemory)
		return refresh.NewMemoryStore(app.cfg.Retention, time.Now), nil

	case DriverMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		app.closers = append(app.closers, func() error { mr.Close(); return nil })
		app.logger.Warn("using embedded miniredis; not for production", "addr", mr.Addr())
		return app.redisStore(mr.Addr()), nil

	default:
		app.logger.Info("refresh store ready", "driver", DriverRedis, "addr", app.cfg.RedisAddr)
		return app.redisStore(app.cfg.RedisAddr), nil
	}
}

func (app *Application) redisStore(addr string) refresh.Store {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	app.closers = append(app.closers, client.Close)
	app.pinger = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return refresh.NewRedisStore(client, app.cfg.RedisPrefix, app.cfg.Retention)
}

func (app *Application) initHTTP() {
	api := httpapi.New(app.engine, app.directory)
	exporter := prometheus.NewPrometheusExporter(app.engine)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", api.Routes())
	mux.Handle("GET /metrics", exporter.Handler())
	mux.HandleFunc("GET /healthz", app.health)

	var handler http.Handler = mux
	if app.cfg.FrontendURL != "" {
		handler = cors.New(cors.Options{
			AllowedOrigins:   []string{app.cfg.FrontendURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", slogx.RequestIDHeader},
			AllowCredentials: true,
		}).Handler(handler)
	}
	handler = slogx.HTTPMiddleware(app.logger)(handler)

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) health(w http.ResponseWriter, r *http.Request) {
	if app.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.pinger(ctx); err != nil {
			slogx.FromContext(r.Context()).Warn("health check failed", "error", err)
			http.Error(w, "refresh store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Run blocks until SIGINT/SIGTERM or a server failure.
func (app *Application) Run() error {
	if app.sweeper != nil {
		app.sweeper.Start()
	}

	app.logger.Info("sessionauth starting", "port", app.cfg.Port, "store", app.cfg.StoreDriver)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			if shutdownErr := app.Shutdown(); shutdownErr != nil {
				app.logger.Error("cleanup after server failure", "error", shutdownErr)
			}
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Shutdown)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		_ = app.server.Close()
	}
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if err := app.engine.Shutdown(ctx); err != nil {
		app.logger.Warn("audit flush incomplete", "error", err)
	}

	err := app.closeAll()
	app.logger.Info("sessionauth stopped")
	return err
}

func (app *Application) closeAll() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

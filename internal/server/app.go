// Package server wires the GophGuard components together and runs them:
// the gRPC endpoint, the Prometheus metrics endpoint, tracing and storage.
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

	"github.com/cenkalti/backoff/v5"
	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/cryptox"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"github.com/dmitrijs2005/gophguard/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophguard/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	serviceName     = "gophguard"
	userAgent       = "gophguard-breach-oracle"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	redis          *redis.Client
	registry       *prometheus.Registry
	grpcServer     *gs.GRPCServer
	shutdownTracer func(context.Context) error
}

// NewApp validates c, opens storage, applies migrations and builds every
// service. Resources acquired before a failure are released.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {

	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	logger.Info(ctx, "Loaded configuration", "config", fmt.Sprintf("%+v", c.Redacted()))

	app := &App{config: c, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	app.shutdownTracer, err = telemetry.Setup(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	mt, err := metrics.New(app.registry)
	if err != nil {
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	if app.db, err = openDB(ctx, c.DatabaseDSN); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	tokens, err := auth.NewTokenService(auth.Config{
		SecretKey:  []byte(c.SecretKey),
		Issuer:     c.TokenIssuer,
		Audience:   c.TokenAudience,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := cryptox.NewPasswordHasher(cryptox.DefaultHashParams)
	if err != nil {
		return nil, err
	}

	key, err := c.EncryptionKeyBytes()
	if err != nil {
		return nil, err
	}
	cipher, err := cryptox.NewEnvelopeCipher(key)
	if err != nil {
		return nil, err
	}

	us, err := services.NewUserService(app.db, rm, tokens, hasher, c, logger, mt)
	if err != nil {
		return nil, err
	}
	vs := services.NewVaultService(app.db, rm, cipher, c, logger, mt)
	ss := services.NewSecurityService(app.newOracle(mt))

	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, vs, ss)

	return app, nil
}

// openDB opens the pgx pool and waits for the database to answer.
func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newOracle builds the breach oracle with the configured providers and,
// when RedisAddr is set, the shared range cache.
func (app *App) newOracle(mt *metrics.Metrics) *breach.Oracle {
	c := app.config
	client := &http.Client{Timeout: c.BreachTimeout}

	opts := []breach.Option{
		breach.WithMetrics(mt),
		breach.WithLogger(app.logger),
		breach.WithEmailProviders(
			breach.NewHIBPProvider(c.HIBPEmailURL, c.HIBPAPIKey, userAgent, client),
			breach.NewXposedOrNotProvider(c.FallbackEmailURL, userAgent, client),
		),
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		opts = append(opts, breach.WithRangeCache(breach.NewRedisRangeCache(app.redis, c.RangeCacheTTL)))
	}

	return breach.New(breach.Config{
		RangeURL:   c.HIBPRangeURL,
		UserAgent:  userAgent,
		Timeout:    c.BreachTimeout,
		MaxRetries: c.BreachMaxRetries,
		HTTPClient: client,
	}, opts...)
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(app.registry))
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a server fails, then
// releases every resource.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
	if app.shutdownTracer != nil {
		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := app.shutdownTracer(sctx); err != nil {
			app.logger.Warn(ctx, "tracer shutdown failed", "error", err)
		}
	}
}

// Package app builds the dependency graph shared by the server and the
// operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"domainpark/internal/domains/handler"
	domainmetrics "domainpark/internal/domains/metrics"
	"domainpark/internal/domains/service"
	"domainpark/internal/domains/store"
	gatewaymetrics "domainpark/internal/gateway/metrics"
	"domainpark/internal/gateway/marketplace"
	"domainpark/internal/gateway/registrar"
	jwttoken "domainpark/internal/jwt_token"
	"domainpark/internal/listingcache"
	"domainpark/internal/platform/config"
	"domainpark/internal/platform/database"
	"domainpark/internal/platform/metrics"
	redisclient "domainpark/internal/platform/redis"
	ratelimitmetrics "domainpark/internal/ratelimit/metrics"
	ratelimitmw "domainpark/internal/ratelimit/middleware"
	ratelimit "domainpark/internal/ratelimit/models"
	ratelimitsvc "domainpark/internal/ratelimit/service"
	"domainpark/internal/ratelimit/store/bucket"
	httptransport "domainpark/internal/transport/http"
	"domainpark/pkg/platform/audit/publisher"
	auditsql "domainpark/pkg/platform/audit/store/sqlstore"
	"domainpark/pkg/platform/circuit"
	authmw "domainpark/pkg/platform/middleware/auth"
)

// metricSet is registered once per process; promauto panics on duplicate
// registration.
type metricSet struct {
	http    *metrics.Metrics
	gateway *gatewaymetrics.Metrics
	domains *domainmetrics.Metrics
	limits  *ratelimitmetrics.Metrics
}

var processMetrics = sync.OnceValue(func() metricSet {
	return metricSet{
		http:    metrics.New(),
		gateway: gatewaymetrics.New(),
		domains: domainmetrics.New(),
		limits:  ratelimitmetrics.New(),
	}
})

// App holds the wired components. Close releases the database and Redis.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *sqlx.DB
	Redis       *redisclient.Client
	Cache       listingcache.Cache
	Registrar   *registrar.Client
	Marketplace *marketplace.Client
	Service     *service.Service
	JWT         *jwttoken.JWTService
	RateLimit   *ratelimitmw.Middleware

	metrics metricSet
}

// Option adjusts construction; tests use it to swap the gateway transport.
type Option func(*options)

type options struct {
	registrarOpts   []registrar.Option
	marketplaceOpts []marketplace.Option
	skipMigrate     bool
}

func WithRegistrarOptions(opts ...registrar.Option) Option {
	return func(o *options) { o.registrarOpts = append(o.registrarOpts, opts...) }
}

func WithMarketplaceOptions(opts ...marketplace.Option) Option {
	return func(o *options) { o.marketplaceOpts = append(o.marketplaceOpts, opts...) }
}

// WithoutMigrations skips applying migrations on startup.
func WithoutMigrations() Option {
	return func(o *options) { o.skipMigrate = true }
}

// New opens the database (migrating it), connects Redis when configured and
// builds the gateways and lifecycle service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger, metrics: processMetrics()}
	a.metrics.http.SetBuildInfo(cfg.Server.Version)

	db, err := database.Open(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	a.DB = db
	if !o.skipMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	if err := a.buildCache(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.buildGateways(o)

	svc, err := service.New(store.NewSQL(db), a.Registrar, a.Marketplace,
		service.WithLogger(logger),
		service.WithMetrics(a.metrics.domains),
		service.WithListingCache(a.Cache),
		service.WithPriceCeiling(cfg.Lifecycle.PriceCeiling),
		service.WithPendingTimeout(cfg.Lifecycle.PendingTimeout),
		service.WithAllowedTLDs(cfg.Lifecycle.AllowedTLDs...),
		service.WithAuditor(publisher.NewPublisher(auditsql.New(db), publisher.WithLogger(logger))),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build lifecycle service: %w", err)
	}
	a.Service = svc

	if err := a.buildRateLimit(); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Server.JWTSigningKey != "" {
		jwt, err := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.JWT = jwt
	}

	logger.InfoContext(ctx, "application wired",
		"database_driver", cfg.Database.Driver,
		"listing_cache", cacheKind(a.Redis),
		"registrar_configured", cfg.Registrar.APIKey != "",
		"marketplace_configured", a.Marketplace.Configured(),
		"price_ceiling", cfg.Lifecycle.PriceCeiling,
	)
	return a, nil
}

func (a *App) buildCache(ctx context.Context) error {
	client, err := redisclient.New(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		a.Cache = listingcache.NewMemory()
		return nil
	}
	a.Redis = client
	a.Cache = listingcache.NewRedis(client.Client,
		listingcache.WithKey(a.Config.Redis.ListingKey),
		listingcache.WithLogger(a.Logger),
	)
	return nil
}

// buildRateLimit shares buckets through Redis when it is connected so every
// server instance draws from one window.
func (a *App) buildRateLimit() error {
	rl := a.Config.RateLimit
	var buckets ratelimitsvc.BucketStore = bucket.NewInMemoryBucketStore()
	if a.Redis != nil {
		buckets = bucket.NewRedisBucketStore(a.Redis.Client)
	}
	limiter, err := ratelimitsvc.New(buckets,
		ratelimitsvc.WithLogger(a.Logger),
		ratelimitsvc.WithMetrics(a.metrics.limits),
		ratelimitsvc.WithUserLimit(ratelimit.ClassRegistrar, ratelimit.Limit{Requests: rl.RegistrarPerWindow, Window: rl.Window}),
		ratelimitsvc.WithUserLimit(ratelimit.ClassMarketplace, ratelimit.Limit{Requests: rl.MarketplacePerWindow, Window: rl.Window}),
		ratelimitsvc.WithUserLimit(ratelimit.ClassRead, ratelimit.Limit{Requests: rl.ReadPerWindow, Window: rl.Window}),
		ratelimitsvc.WithIPLimit(ratelimit.Limit{Requests: rl.IPPerWindow, Window: rl.Window}),
	)
	if err != nil {
		return fmt.Errorf("build rate limiter: %w", err)
	}
	a.RateLimit = ratelimitmw.New(limiter, a.Logger, ratelimitmw.WithDisabled(!rl.Enabled))
	return nil
}

func (a *App) buildGateways(o options) {
	cfg := a.Config
	rc := cfg.Registrar
	regOpts := append([]registrar.Option{
		registrar.WithLogger(a.Logger),
		registrar.WithMetrics(a.metrics.gateway),
		registrar.WithQuotePolicy(cfg.Retry.Policy(rc.QuoteTimeout)),
		registrar.WithRegisterPolicy(cfg.Retry.Policy(rc.RegisterTimeout)),
		registrar.WithVerifyPolicy(cfg.Retry.Policy(rc.VerifyTimeout).Once()),
	}, o.registrarOpts...)
	a.Registrar = registrar.New(registrar.Config{
		BaseURL:     rc.BaseURL,
		APIUser:     rc.APIUser,
		APIKey:      rc.APIKey,
		Username:    rc.Username,
		ClientIP:    rc.ClientIP,
		Nameservers: cfg.Lifecycle.Nameservers,
		Contact:     registrar.Contact(rc.Contact),
	}, regOpts...)

	mc := cfg.Marketplace
	mpOpts := append([]marketplace.Option{
		marketplace.WithLogger(a.Logger),
		marketplace.WithMetrics(a.metrics.gateway),
		marketplace.WithListPolicy(cfg.Retry.Policy(mc.ListTimeout)),
		marketplace.WithSearchPolicy(cfg.Retry.Policy(mc.SearchTimeout)),
		marketplace.WithCache(a.Cache),
		marketplace.WithBreaker(circuit.New("marketplace_owned",
			circuit.WithFailureThreshold(mc.BreakerFailures),
			circuit.WithSuccessThreshold(mc.BreakerSuccesses),
		)),
	}, o.marketplaceOpts...)
	a.Marketplace = marketplace.New(marketplace.Config{
		BaseURL:              mc.BaseURL,
		PartnerID:            mc.PartnerID,
		SignKey:              mc.SignKey,
		Username:             mc.Username,
		Password:             mc.Password,
		Language:             mc.Language,
		Currency:             mc.Currency,
		Categories:           mc.Categories,
		Nameservers:          cfg.Lifecycle.Nameservers,
		SimulateUnconfigured: mc.SimulateUnconfigured,
	}, mpOpts...)
}

// Router builds the HTTP surface. Bearer routes reject every request when no
// JWT signing key is configured.
func (a *App) Router() http.Handler {
	var validator authmw.JWTValidator = rejectAll{}
	if a.JWT != nil {
		validator = jwttoken.NewJWTServiceAdapter(a.JWT)
	} else {
		a.Logger.Warn("no JWT signing key configured; authenticated routes will reject all requests")
	}

	return httptransport.NewRouter(httptransport.Deps{
		Routes:         handler.New(a.Service, a.Logger, handler.WithRateLimiter(a.RateLimit)),
		JWTValidator:   validator,
		AdminToken:     a.Config.Server.AdminToken,
		Logger:         a.Logger,
		Metrics:        a.metrics.http,
		MetricsHandler: promhttp.Handler(),
		Health:         a.Health,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Version:        a.Config.Server.Version,
	})
}

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*authmw.JWTClaims, error) {
	return nil, errors.New("bearer authentication is not configured")
}

// Health pings the database and, when configured, Redis.
func (a *App) Health(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// RunSweeper reconciles on the configured interval until ctx is done.
func (a *App) RunSweeper(ctx context.Context) {
	a.Service.RunSweeper(ctx, a.Config.Lifecycle.SweepInterval)
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func cacheKind(client *redisclient.Client) string {
	if client == nil {
		return "memory"
	}
	return "redis"
}

// ShutdownContext bounds graceful shutdown by the configured timeout.
func (a *App) ShutdownContext() (context.Context, context.CancelFunc) {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

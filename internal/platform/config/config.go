// Package config loads process configuration from DOMAINPARK_* environment
// variables. Defaults live in the struct tags.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"domainpark/pkg/platform/retry"
	strutil "domainpark/pkg/platform/strings"
)

// Prefix is prepended to every variable name.
const Prefix = "DOMAINPARK"

type Config struct {
	Server      Server
	Database    Database
	Redis       RedisConfig
	Registrar   Registrar
	Marketplace Marketplace
	Lifecycle   Lifecycle
	Retry       Retry
	RateLimit   RateLimit
	Log         Log
	Tracing     Tracing
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `default:":8080"`
	AdminToken      string        `envconfig:"ADMIN_TOKEN"`
	JWTSigningKey   string        `envconfig:"JWT_SIGNING_KEY"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER" default:"domainpark"`
	JWTAudience     string        `envconfig:"JWT_AUDIENCE" default:"domainpark-api"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"3m"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	Version         string        `default:"dev"`
}

type Database struct {
	Driver          string        `default:"sqlite"`
	DSN             string        `envconfig:"DSN"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
}

// RedisConfig is optional; an empty URL keeps the listing cache in memory.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	ListingKey   string        `envconfig:"LISTING_KEY" default:"listed_domains"`
}

type Registrar struct {
	BaseURL  string `envconfig:"BASE_URL" default:"https://api.namecheap.com/xml.response"`
	APIUser  string `envconfig:"API_USER"`
	APIKey   string `envconfig:"API_KEY"`
	Username string `envconfig:"USERNAME"`
	ClientIP string `envconfig:"CLIENT_IP"`

	QuoteTimeout    time.Duration `envconfig:"QUOTE_TIMEOUT" default:"30s"`
	RegisterTimeout time.Duration `envconfig:"REGISTER_TIMEOUT" default:"45s"`
	VerifyTimeout   time.Duration `envconfig:"VERIFY_TIMEOUT" default:"15s"`

	Contact Contact
}

// Contact is the WHOIS profile submitted with registrations.
type Contact struct {
	FirstName     string `envconfig:"FIRST_NAME"`
	LastName      string `envconfig:"LAST_NAME"`
	Address1      string `envconfig:"ADDRESS1"`
	City          string `envconfig:"CITY"`
	StateProvince string `envconfig:"STATE_PROVINCE"`
	PostalCode    string `envconfig:"POSTAL_CODE"`
	Country       string `envconfig:"COUNTRY"`
	Phone         string `envconfig:"PHONE"`
	Email         string `envconfig:"EMAIL"`
}

type Marketplace struct {
	BaseURL              string `envconfig:"BASE_URL" default:"https://api.sedo.com/api/v1/"`
	PartnerID            string `envconfig:"PARTNER_ID" default:"332452"`
	SignKey              string `envconfig:"SIGN_KEY"`
	Username             string `envconfig:"USERNAME"`
	Password             string `envconfig:"PASSWORD"`
	Language             string `default:"en"`
	Currency             int    `default:"1"`
	Categories           []int  `default:"1008"`
	SimulateUnconfigured bool   `envconfig:"SIMULATE_UNCONFIGURED" default:"true"`

	ListTimeout   time.Duration `envconfig:"LIST_TIMEOUT" default:"30s"`
	SearchTimeout time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`

	BreakerFailures  int `envconfig:"BREAKER_FAILURES" default:"3"`
	BreakerSuccesses int `envconfig:"BREAKER_SUCCESSES" default:"2"`
}

type Lifecycle struct {
	PriceCeiling   float64       `envconfig:"PRICE_CEILING" default:"2.00"`
	AllowedTLDs    []string      `envconfig:"ALLOWED_TLDS" default:".shop,.click"`
	Nameservers    []string      `default:"ns1.sedoparking.com,ns2.sedoparking.com"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	PendingTimeout time.Duration `envconfig:"PENDING_TIMEOUT" default:"30m"`
}

// RateLimit bounds how fast one caller can spend registrar and marketplace
// quota. Buckets live in Redis when it is configured.
type RateLimit struct {
	Enabled              bool          `default:"true"`
	Window               time.Duration `default:"1m"`
	RegistrarPerWindow   int           `envconfig:"REGISTRAR_PER_WINDOW" default:"20"`
	MarketplacePerWindow int           `envconfig:"MARKETPLACE_PER_WINDOW" default:"30"`
	ReadPerWindow        int           `envconfig:"READ_PER_WINDOW" default:"120"`
	IPPerWindow          int           `envconfig:"IP_PER_WINDOW" default:"300"`
}

// Retry is the policy shared by both gateways. Per-operation attempt
// timeouts live with each gateway.
type Retry struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"BASE_DELAY" default:"1s"`
	MaxDelay    time.Duration `envconfig:"MAX_DELAY" default:"8s"`
	Jitter      float64       `default:"0.5"`
}

// Policy builds a retry policy with the given per-attempt timeout.
func (r Retry) Policy(attemptTimeout time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts:    r.MaxAttempts,
		BaseDelay:      r.BaseDelay,
		MaxDelay:       r.MaxDelay,
		Jitter:         r.Jitter,
		AttemptTimeout: attemptTimeout,
	}
}

type Log struct {
	Level  string `default:"info"`
	Format string `default:"json"`
}

// Tracing exports spans over OTLP/gRPC when Endpoint is set.
type Tracing struct {
	Endpoint    string  `envconfig:"OTLP_ENDPOINT"`
	Insecure    bool    `default:"true"`
	ServiceName string  `envconfig:"SERVICE_NAME" default:"domainpark"`
	SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1"`
}

// FromEnv loads the configuration and checks cross-field rules.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Lifecycle.AllowedTLDs = strutil.SuffixList(cfg.Lifecycle.AllowedTLDs)
	cfg.Lifecycle.Nameservers = strutil.HostList(cfg.Lifecycle.Nameservers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Lifecycle.PriceCeiling <= 0 {
		return fmt.Errorf("lifecycle price ceiling must be positive, got %v", c.Lifecycle.PriceCeiling)
	}
	if c.Lifecycle.PendingTimeout != 0 && c.Lifecycle.PendingTimeout < c.Server.RequestTimeout {
		return fmt.Errorf("lifecycle pending timeout %v must be zero or at least the request timeout %v",
			c.Lifecycle.PendingTimeout, c.Server.RequestTimeout)
	}
	if len(c.Lifecycle.AllowedTLDs) == 0 {
		return fmt.Errorf("lifecycle allowed TLDs must not be empty")
	}
	if len(c.Lifecycle.Nameservers) == 0 {
		return fmt.Errorf("lifecycle nameservers must not be empty")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry jitter must be within [0,1], got %v", c.Retry.Jitter)
	}
	if c.RateLimit.Enabled && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %v", c.RateLimit.Window)
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "pgx" && c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for the pgx driver")
	}
	return nil
}

// Package registrar talks to the Namecheap XML API: availability checks,
// registration pricing and domain creation.
//
// Namecheap answers with loosely shaped XML whose error and success markers
// vary between commands, so responses are read through ordered signal and
// extractor lists rather than a single schema.
package registrar

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"domainpark/internal/gateway"
	"domainpark/internal/gateway/metrics"
	"domainpark/pkg/platform/retry"
	"domainpark/pkg/requestcontext"
)

const (
	gatewayName = "registrar"

	DefaultBaseURL = "https://api.namecheap.com/xml.response"

	// FallbackPrice is quoted when a domain is available but no extractor finds a price.
	FallbackPrice        = 12.99
	FallbackPriceMessage = "Using approximate price - actual price may vary"

	defaultClientIP = "127.0.0.1"
)

// DefaultNameservers are the parking nameservers set on every registration.
var DefaultNameservers = []string{"ns1.sedoparking.com", "ns2.sedoparking.com"}

// Config identifies the API account. Username defaults to APIUser and
// ClientIP to the caller's IP from the request context.
type Config struct {
	BaseURL     string
	APIUser     string
	APIKey      string
	Username    string
	ClientIP    string
	Nameservers []string
	Contact     Contact
}

type Client struct {
	cfg            Config
	http           gateway.Doer
	quotePolicy    retry.Policy
	registerPolicy retry.Policy
	verifyPolicy   retry.Policy
	extractors     []PriceExtractor
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(doer gateway.Doer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithQuotePolicy sets the retry policy for check and pricing calls.
func WithQuotePolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.quotePolicy = p
	}
}

// WithRegisterPolicy sets the retry policy for the create call.
func WithRegisterPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.registerPolicy = p
	}
}

// WithVerifyPolicy sets the policy for the defensive re-check and the
// dual verification calls.
func WithVerifyPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.verifyPolicy = p
	}
}

func WithPriceExtractors(extractors ...PriceExtractor) Option {
	return func(c *Client) {
		c.extractors = extractors
	}
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Username == "" {
		cfg.Username = cfg.APIUser
	}
	if len(cfg.Nameservers) == 0 {
		cfg.Nameservers = DefaultNameservers
	}

	c := &Client{
		cfg:            cfg,
		http:           &http.Client{},
		quotePolicy:    retry.Default(30 * time.Second),
		registerPolicy: retry.Default(45 * time.Second),
		verifyPolicy:   retry.Default(15 * time.Second).Once(),
		extractors:     DefaultPriceExtractors,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.APIUser != "" && c.cfg.APIKey != ""
}

// Nameservers returns the parking nameservers as stored on records.
func (c *Client) Nameservers() string {
	return strings.Join(c.cfg.Nameservers, ", ")
}

func (c *Client) clientIP(ctx context.Context) string {
	if c.cfg.ClientIP != "" {
		return c.cfg.ClientIP
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return ip
	}
	return defaultClientIP
}

func (c *Client) params(ctx context.Context, command string) url.Values {
	v := url.Values{}
	v.Set("ApiUser", c.cfg.APIUser)
	v.Set("ApiKey", c.cfg.APIKey)
	v.Set("UserName", c.cfg.Username)
	v.Set("ClientIp", c.clientIP(ctx))
	v.Set("Command", command)
	return v
}

func (c *Client) checkParams(ctx context.Context, domain string) url.Values {
	v := c.params(ctx, "namecheap.domains.check")
	v.Set("DomainList", domain)
	return v
}

func (c *Client) pricingParams(ctx context.Context, tld string) url.Values {
	v := c.params(ctx, "namecheap.users.getPricing")
	v.Set("ProductType", "DOMAIN")
	v.Set("ProductCategory", "DOMAINS")
	v.Set("ProductName", tld)
	v.Set("ActionName", "REGISTER")
	return v
}

// fetch issues one logical GET under policy. Only network failures are retried.
func (c *Client) fetch(ctx context.Context, policy retry.Policy, op string, params url.Values) (*gateway.Response, error) {
	endpoint := c.cfg.BaseURL + "?" + params.Encode()

	return retry.Value(ctx, policy, func(ctx context.Context) (*gateway.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, gateway.NewError(gateway.CategoryAmbiguous, gatewayName, op, "building request failed", err)
		}
		req.Header.Set("Accept", "text/xml")
		return gateway.Send(ctx, c.http, gatewayName, op, req)
	},
		retry.WithRetryable(gateway.IsRetryable),
		retry.WithNotify(func(attempt int, err error, wait time.Duration) {
			c.metrics.IncRetry(gatewayName, op)
			c.logger.WarnContext(ctx, "registrar call failed, retrying",
				"operation", op,
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"wait_ms", wait.Milliseconds(),
				"error", err,
			)
		}),
	)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if cat := gateway.CategoryOf(err); cat != "" {
		return string(cat)
	}
	return "error"
}

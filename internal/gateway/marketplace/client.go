// Package marketplace talks to the Sedo API: parking entries for registered
// domains, the account's own listing and the public inventory search.
package marketplace

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"domainpark/internal/gateway"
	"domainpark/internal/gateway/metrics"
	"domainpark/internal/listingcache"
	"domainpark/pkg/platform/circuit"
	"domainpark/pkg/platform/retry"
)

const (
	gatewayName = "marketplace"

	DefaultBaseURL   = "https://api.sedo.com/api/v1/"
	DefaultPartnerID = "332452"
	DefaultLanguage  = "en"

	// FaultAuthentication is the Sedo fault code for rejected account credentials.
	FaultAuthentication = "E1201"
)

// DefaultCategories is the Miscellaneous category.
var DefaultCategories = []int{1008}

// DefaultNameservers are the parking nameservers reported for a listed domain.
var DefaultNameservers = []string{"ns1.sedoparking.com", "ns2.sedoparking.com"}

// Config holds the partner identity and account credentials. PartnerID,
// SignKey, Language, Currency and Categories fall back to defaults; Username
// and Password are optional.
type Config struct {
	BaseURL     string
	PartnerID   string
	SignKey     string
	Username    string
	Password    string
	Language    string
	Currency    int
	Categories  []int
	Nameservers []string

	// SimulateUnconfigured makes List report a simulated success when the
	// account credentials are absent.
	SimulateUnconfigured bool
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.PartnerID == "" {
		c.PartnerID = DefaultPartnerID
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Currency == 0 {
		c.Currency = listingcache.CurrencyUSD
	}
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories
	}
	if len(c.Nameservers) == 0 {
		c.Nameservers = DefaultNameservers
	}
	return c
}

type Client struct {
	cfg          Config
	http         gateway.Doer
	listPolicy   retry.Policy
	searchPolicy retry.Policy
	cache        listingcache.Cache
	seed         []listingcache.Listing
	breaker      *circuit.Breaker
	logger       *slog.Logger
	metrics      *metrics.Metrics
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

// WithListPolicy sets the retry policy for DomainInsert.
func WithListPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.listPolicy = p
	}
}

// WithSearchPolicy sets the retry policy for DomainList and DomainSearch.
func WithSearchPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.searchPolicy = p
	}
}

// WithCache sets the listing cache merged into the fallback tier.
func WithCache(cache listingcache.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithSeed replaces the static fallback listings.
func WithSeed(seed ...listingcache.Listing) Option {
	return func(c *Client) {
		c.seed = seed
	}
}

// WithBreaker replaces the breaker guarding the live owned-listing source.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:          cfg.withDefaults(),
		http:         &http.Client{},
		listPolicy:   retry.Default(30 * time.Second),
		searchPolicy: retry.Default(15 * time.Second),
		seed:         SeedListings,
		breaker:      circuit.New("marketplace_owned"),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether account credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.Username != "" && c.cfg.Password != ""
}

// Nameservers returns the parking nameservers as stored on records.
func (c *Client) Nameservers() string {
	return strings.Join(c.cfg.Nameservers, ", ")
}

func (c *Client) partnerParams() url.Values {
	v := url.Values{}
	v.Set("partnerid", c.cfg.PartnerID)
	v.Set("signkey", c.cfg.SignKey)
	v.Set("output_method", "xml")
	return v
}

func (c *Client) accountParams() url.Values {
	v := c.partnerParams()
	v.Set("username", c.cfg.Username)
	v.Set("password", c.cfg.Password)
	return v
}

func (c *Client) insertParams(domain string) url.Values {
	v := c.accountParams()
	v.Set("domainentry[0][domain]", domain)
	for i, category := range c.cfg.Categories {
		v.Set("domainentry[0][category]["+strconv.Itoa(i)+"]", strconv.Itoa(category))
	}
	v.Set("domainentry[0][forsale]", "0")
	v.Set("domainentry[0][price]", "0")
	v.Set("domainentry[0][minprice]", "0")
	v.Set("domainentry[0][fixedprice]", "0")
	v.Set("domainentry[0][currency]", strconv.Itoa(c.cfg.Currency))
	v.Set("domainentry[0][domainlanguage]", c.cfg.Language)
	return v
}

// post sends one form-encoded call under policy. Only network failures are retried.
func (c *Client) post(ctx context.Context, policy retry.Policy, op, endpoint string, form url.Values) (*gateway.Response, error) {
	target := c.cfg.BaseURL + endpoint
	body := form.Encode()

	return retry.Value(ctx, policy, func(ctx context.Context) (*gateway.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
		if err != nil {
			return nil, gateway.NewError(gateway.CategoryAmbiguous, gatewayName, op, "building request failed", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return gateway.Send(ctx, c.http, gatewayName, op, req)
	},
		retry.WithRetryable(gateway.IsRetryable),
		retry.WithNotify(func(attempt int, err error, wait time.Duration) {
			c.metrics.IncRetry(gatewayName, op)
			c.logger.WarnContext(ctx, "marketplace call failed, retrying",
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

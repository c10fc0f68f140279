package marketplace

import (
	"context"
	"log/slog"

	"domainpark/internal/gateway"
	"domainpark/internal/gateway/metrics"
	"domainpark/internal/listingcache"
	"domainpark/pkg/platform/circuit"
)

// Tier identifies which owned-listing source answered.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Selection reasons recorded for every owned-listing read.
const (
	ReasonLive               = "live"
	ReasonCircuitOpen        = "circuit_open"
	ReasonAuthFault          = "auth_fault"
	ReasonTransport          = "transport_error"
	ReasonUnexpectedResponse = "unexpected_response"
	ReasonCredentialsMissing = "credentials_missing"
)

// SeedListings is the static fallback dataset: the account's long-standing
// parked domains.
var SeedListings = []listingcache.Listing{
	{Domain: "male-fertility-clinic-poland.click", Price: 2000, Currency: listingcache.CurrencyUSD, ForSale: 1, FixedPrice: 1, SedoListed: true},
	{Domain: "flexible-child-care-shifts.click", Price: 1800, Currency: listingcache.CurrencyUSD, ForSale: 1, FixedPrice: 1, SedoListed: true},
}

// Selection is the result of one owned-listing read.
type Selection struct {
	Listings []Listing
	Tier     Tier
	Reason   string
}

type ownedFetcher func(ctx context.Context) ([]Listing, error)

// tieredSource reads the account listing from the live API, topped up from
// the listing cache, and degrades to the static seed merged with the cache. While the breaker is open
// the live source is still probed but the secondary tier answers until
// enough consecutive probes succeed.
type tieredSource struct {
	primary    ownedFetcher
	configured bool
	seed       []listingcache.Listing
	cache      listingcache.Cache
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func (s *tieredSource) read(ctx context.Context) (*Selection, error) {
	if !s.configured {
		return s.secondary(ctx, ReasonCredentialsMissing), nil
	}

	listings, err := s.primary(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reason, degradable := fallbackReason(err)
		if !degradable {
			return nil, err
		}
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "marketplace owned-listing circuit opened", "breaker", s.breaker.Name())
		}
		s.logger.WarnContext(ctx, "live owned-listing source failed, using fallback",
			"reason", reason,
			"error", err,
		)
		return s.secondary(ctx, reason), nil
	}

	usePrimary, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.logger.InfoContext(ctx, "marketplace owned-listing circuit closed", "breaker", s.breaker.Name())
	}
	if !usePrimary {
		return s.secondary(ctx, ReasonCircuitOpen), nil
	}

	s.metrics.IncSourceSelection(string(TierPrimary), ReasonLive)
	return &Selection{Listings: withCached(listings, s.cached(ctx)), Tier: TierPrimary, Reason: ReasonLive}, nil
}

func (s *tieredSource) secondary(ctx context.Context, reason string) *Selection {
	merged := listingcache.Merge(s.seed, s.cached(ctx)...)
	out := make([]Listing, 0, len(merged))
	for _, l := range merged {
		out = append(out, Listing{Listing: l, Source: SourceSimulated})
	}

	s.metrics.IncSourceSelection(string(TierSecondary), reason)
	return &Selection{Listings: out, Tier: TierSecondary, Reason: reason}
}

func (s *tieredSource) cached(ctx context.Context) []listingcache.Listing {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.All(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "listing cache unreadable", "error", err)
		return nil
	}
	return cached
}

// withCached appends cache entries the live listing does not carry yet. The
// marketplace index lags behind new parking entries; live entries win.
func withCached(live []Listing, cached []listingcache.Listing) []Listing {
	base := make([]listingcache.Listing, 0, len(live))
	for _, l := range live {
		base = append(base, l.Listing)
	}
	merged := listingcache.Merge(base, cached...)

	seen := make(map[string]struct{}, len(live))
	out := make([]Listing, 0, len(live)+len(cached))
	for _, l := range live {
		seen[l.Key()] = struct{}{}
		out = append(out, l)
	}
	for _, l := range merged {
		if _, ok := seen[l.Key()]; ok {
			continue
		}
		seen[l.Key()] = struct{}{}
		out = append(out, Listing{Listing: l, Source: SourceSimulated})
	}
	return out
}

// fallbackReason maps a live-source failure to a selection reason. Explicit
// non-authentication faults are not degradable.
func fallbackReason(err error) (string, bool) {
	switch gateway.CategoryOf(err) {
	case gateway.CategoryAuthentication:
		return ReasonAuthFault, true
	case gateway.CategoryNetwork:
		return ReasonTransport, true
	case gateway.CategoryAmbiguous:
		return ReasonUnexpectedResponse, true
	case gateway.CategoryRejected:
		return "", false
	default:
		return ReasonTransport, true
	}
}

package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"domainpark/internal/gateway"
	"domainpark/internal/listingcache"
)

// Source says where a search result came from.
type Source string

const (
	SourceOwned       Source = "owned"
	SourceSimulated   Source = "simulated"
	SourceMarketplace Source = "marketplace"
)

// Listing is a search result: the cached listing shape plus the public
// inventory fields.
type Listing struct {
	listingcache.Listing
	Type   string `json:"type,omitempty"`
	Rank   string `json:"rank,omitempty"`
	URL    string `json:"url,omitempty"`
	Source Source `json:"source"`
}

// SearchResult carries matches and, for owned reads, the tier that answered.
type SearchResult struct {
	Keyword  string    `json:"keyword"`
	Listings []Listing `json:"listings"`
	Tier     Tier      `json:"tier,omitempty"`
	Reason   string    `json:"tier_reason,omitempty"`
	Message  string    `json:"message"`
}

// MatchesKeyword is the owned-listing filter: exact domain, substring, or
// equality with the label before the first dot. Case-insensitive.
func MatchesKeyword(domain, keyword string) bool {
	d := strings.ToLower(strings.TrimSpace(domain))
	k := strings.ToLower(strings.TrimSpace(keyword))
	if d == k || strings.Contains(d, k) {
		return true
	}
	base, _, _ := strings.Cut(d, ".")
	return base == k
}

func filter(listings []Listing, keyword string) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if MatchesKeyword(l.Domain, keyword) {
			out = append(out, l)
		}
	}
	return out
}

// SearchOwned returns the account's listings matching keyword. Only explicit
// non-authentication faults are errors; every other failure degrades to the
// secondary tier.
func (c *Client) SearchOwned(ctx context.Context, keyword string) (result *SearchResult, err error) {
	const op = "search_owned"
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	start := time.Now()
	ctx, span := gateway.StartSpan(ctx, gatewayName, op, attribute.String("keyword", keyword))
	defer func() {
		c.metrics.ObserveCall(gatewayName, op, outcomeLabel(err), start)
		gateway.EndSpan(span, err)
	}()

	src := &tieredSource{
		primary:    c.fetchOwned,
		configured: c.Configured(),
		seed:       c.seed,
		cache:      c.cache,
		breaker:    c.breaker,
		logger:     c.logger,
		metrics:    c.metrics,
	}
	sel, err := src.read(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("marketplace.tier", string(sel.Tier)),
		attribute.String("marketplace.tier_reason", sel.Reason),
	)

	matches := filter(sel.Listings, keyword)
	msg := fmt.Sprintf("Found %d of your domains matching %q", len(matches), keyword)
	if sel.Tier == TierSecondary {
		msg = fmt.Sprintf("Found %d of your listed domains matching %q (simulated)", len(matches), keyword)
	}
	c.logger.InfoContext(ctx, "owned listings searched",
		"keyword", keyword,
		"tier", sel.Tier,
		"reason", sel.Reason,
		"matches", len(matches),
	)
	return &SearchResult{
		Keyword:  keyword,
		Listings: matches,
		Tier:     sel.Tier,
		Reason:   sel.Reason,
		Message:  msg,
	}, nil
}

// fetchOwned reads the full account listing, first 100 entries by name.
func (c *Client) fetchOwned(ctx context.Context) ([]Listing, error) {
	const op = "domain_list"
	form := c.accountParams()
	form.Set("startfrom", "0")
	form.Set("results", "100")
	form.Set("orderby", "0")

	resp, err := c.post(ctx, c.searchPolicy, op, "DomainList", form)
	if err != nil {
		return nil, err
	}

	root, fault, err := parseRoot(resp.Body)
	if err != nil {
		return nil, gateway.NewError(gateway.CategoryAmbiguous, gatewayName, op, msgUnexpectedFormat, err)
	}
	if fault != nil {
		return nil, fault.asError(op)
	}
	if !isRoot(root, rootDomainList) {
		return nil, gateway.NewError(gateway.CategoryAmbiguous, gatewayName, op, msgUnexpectedFormat, nil)
	}

	var out []Listing
	for _, item := range items(root) {
		if l := ownedListing(item); l.Domain != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// SearchMarketplace queries the public inventory for domains containing keyword.
func (c *Client) SearchMarketplace(ctx context.Context, keyword string) (result *SearchResult, err error) {
	const op = "search_marketplace"
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	start := time.Now()
	ctx, span := gateway.StartSpan(ctx, gatewayName, op, attribute.String("keyword", keyword))
	defer func() {
		c.metrics.ObserveCall(gatewayName, op, outcomeLabel(err), start)
		gateway.EndSpan(span, err)
	}()

	form := c.partnerParams()
	form.Set("keyword", keyword)
	form.Set("tld", "%")
	form.Set("kwtype", "C")
	form.Set("resultsize", "100")
	form.Set("language", c.cfg.Language)

	resp, err := c.post(ctx, c.searchPolicy, op, "DomainSearch", form)
	if err != nil {
		return nil, err
	}

	root, fault, err := parseRoot(resp.Body)
	if err != nil {
		return nil, gateway.NewError(gateway.CategoryAmbiguous, gatewayName, op, msgUnexpectedFormat, err)
	}
	if fault != nil {
		return nil, fault.asError(op)
	}

	out := []Listing{}
	if isRoot(root, rootSearch) {
		for _, item := range items(root) {
			if l := marketListing(item); l.Domain != "" {
				out = append(out, l)
			}
		}
	}

	msg := fmt.Sprintf("No domains matching %q found on Sedo marketplace", keyword)
	if len(out) > 0 {
		msg = fmt.Sprintf("Found %d domains matching %q on Sedo marketplace", len(out), keyword)
	}
	return &SearchResult{Keyword: keyword, Listings: out, Message: msg}, nil
}

// Search runs the owned and marketplace searches concurrently and merges
// them: owned entries first, duplicates dropped by lowercased domain. Either
// side failing degrades to the other; only a double failure is an error.
func (c *Client) Search(ctx context.Context, keyword string) (*SearchResult, error) {
	var (
		owned, market       *SearchResult
		ownedErr, marketErr error
		g                   errgroup.Group
	)
	g.Go(func() error {
		owned, ownedErr = c.SearchOwned(ctx, keyword)
		return nil
	})
	g.Go(func() error {
		market, marketErr = c.SearchMarketplace(ctx, keyword)
		return nil
	})
	_ = g.Wait()

	if ownedErr != nil && marketErr != nil {
		return nil, ownedErr
	}
	if ownedErr != nil {
		c.logger.WarnContext(ctx, "owned search failed, returning marketplace results only", "error", ownedErr)
	}
	if marketErr != nil {
		c.logger.WarnContext(ctx, "marketplace search failed, returning owned results only", "error", marketErr)
	}

	merged := &SearchResult{Keyword: strings.ToLower(strings.TrimSpace(keyword)), Listings: []Listing{}}
	seen := map[string]struct{}{}
	add := func(r *SearchResult) {
		if r == nil {
			return
		}
		for _, l := range r.Listings {
			key := l.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged.Listings = append(merged.Listings, l)
		}
	}
	add(owned)
	add(market)
	if owned != nil {
		merged.Tier = owned.Tier
		merged.Reason = owned.Reason
	}
	merged.Message = fmt.Sprintf("Found %d domains matching %q", len(merged.Listings), merged.Keyword)
	return merged, nil
}

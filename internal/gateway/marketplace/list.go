package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"domainpark/internal/gateway"
)

const msgUnexpectedFormat = "Unexpected response format from Sedo API"

// ListingOutcome is the marketplace verdict on a parking entry. A failed
// outcome carries the provider's message verbatim in Error.
type ListingOutcome struct {
	Domain      string `json:"domain"`
	Success     bool   `json:"success"`
	Simulated   bool   `json:"simulated,omitempty"`
	Nameservers string `json:"nameservers,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

// List creates a parking entry: not for sale, no price, default category,
// currency and language.
//
// Without account credentials the call is simulated when configured to, and
// fails with CategoryCredentialsMissing otherwise. Network failures are
// returned as errors after retries; anything the provider answered is an
// outcome.
func (c *Client) List(ctx context.Context, domain string) (outcome *ListingOutcome, err error) {
	const op = "list"
	domain = strings.ToLower(strings.TrimSpace(domain))

	if !c.Configured() {
		if !c.cfg.SimulateUnconfigured {
			return nil, gateway.CredentialsMissing(gatewayName, op)
		}
		c.logger.InfoContext(ctx, "marketplace credentials not set, simulating listing", "domain", domain)
		return &ListingOutcome{
			Domain:      domain,
			Success:     true,
			Simulated:   true,
			Nameservers: c.Nameservers(),
			Message:     fmt.Sprintf("Domain %q successfully listed on Sedo! (simulated)", domain),
		}, nil
	}

	start := time.Now()
	ctx, span := gateway.StartSpan(ctx, gatewayName, op, attribute.String("domain", domain))
	defer func() {
		label := outcomeLabel(err)
		if err == nil && outcome != nil && !outcome.Success {
			label = "refused"
		}
		c.metrics.ObserveCall(gatewayName, op, label, start)
		gateway.EndSpan(span, err)
	}()

	resp, err := c.post(ctx, c.listPolicy, op, "DomainInsert", c.insertParams(domain))
	if err != nil {
		return nil, err
	}

	outcome = interpretInsert(resp.Body, domain)
	if outcome.Success {
		outcome.Nameservers = c.Nameservers()
	}
	c.logger.InfoContext(ctx, "marketplace listing interpreted",
		"domain", domain,
		"success", outcome.Success,
		"error", outcome.Error,
	)
	return outcome, nil
}

func interpretInsert(body, domain string) *ListingOutcome {
	failed := func(msg string) *ListingOutcome {
		return &ListingOutcome{Domain: domain, Success: false, Error: msg}
	}

	root, fault, err := parseRoot(body)
	if err != nil {
		return failed(msgUnexpectedFormat)
	}
	if fault != nil {
		return failed(fault.String())
	}
	if !isRoot(root, rootList) {
		return failed(msgUnexpectedFormat)
	}

	entries := items(root)
	if len(entries) == 0 {
		return failed(msgUnexpectedFormat)
	}
	item := entries[0]
	if !strings.EqualFold(text(item, "status"), "ok") {
		if msg := text(item, "message"); msg != "" {
			return failed(msg)
		}
		return failed("Unknown error from Sedo API")
	}

	return &ListingOutcome{
		Domain:  domain,
		Success: true,
		Message: fmt.Sprintf("Domain %s successfully submitted to Sedo", domain),
	}
}

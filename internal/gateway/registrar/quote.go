package registrar

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"domainpark/internal/gateway"
	"domainpark/pkg/platform/retry"
)

// Quote is an availability answer with a registration price. Available is
// never true without a positive Price.
type Quote struct {
	Domain      string   `json:"domain"`
	Available   bool     `json:"available"`
	Price       *float64 `json:"price"`
	PriceSource string   `json:"price_source,omitempty"`
	Message     string   `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// MsgAlreadyRegistered is the quote error for an explicit Available="false".
const MsgAlreadyRegistered = "Domain is already registered"

func unavailable(domain, reason string) *Quote {
	return &Quote{Domain: domain, Available: false, Error: reason}
}

func available(domain string, price float64, source, message string) *Quote {
	return &Quote{Domain: domain, Available: true, Price: &price, PriceSource: source, Message: message}
}

// CheckAvailabilityAndPrice checks availability and, when available, prices a
// one-year registration.
//
// Errors: CategoryCredentialsMissing when unconfigured, CategoryNetwork after
// retries are exhausted, CategoryRejected (ReasonIPWhitelist or ReasonGeneric)
// when the check itself is refused.
func (c *Client) CheckAvailabilityAndPrice(ctx context.Context, domain string) (quote *Quote, err error) {
	const op = "quote"
	if !c.Configured() {
		return nil, gateway.CredentialsMissing(gatewayName, op)
	}

	start := time.Now()
	ctx, span := gateway.StartSpan(ctx, gatewayName, op, attribute.String("domain", domain))
	defer func() {
		c.metrics.ObserveCall(gatewayName, op, outcomeLabel(err), start)
		gateway.EndSpan(span, err)
	}()

	return c.quote(ctx, domain, c.quotePolicy)
}

func (c *Client) quote(ctx context.Context, domain string, policy retry.Policy) (*Quote, error) {
	avail, body, err := c.checkAvailability(ctx, domain, policy, "check", checkErrorSignals)
	if err != nil {
		return nil, err
	}

	switch avail {
	case availabilityFalse:
		return unavailable(domain, MsgAlreadyRegistered), nil
	case availabilityUnknown:
		return unavailable(domain, errorMessage(body, "Domain not available for registration", descriptionTextRe, messageTextRe)), nil
	}

	tld := tldOf(domain)
	resp, err := c.fetch(ctx, policy, "pricing", c.pricingParams(ctx, tld))
	if err != nil {
		return nil, err
	}

	if name, found := detect(resp.Body, commonErrorSignals); found {
		c.logger.WarnContext(ctx, "registrar pricing returned an error, using fallback price",
			"domain", domain,
			"tld", tld,
			"signal", name,
			"error", errorMessage(resp.Body, "unknown pricing error"),
		)
		c.metrics.IncPriceStrategy("fallback")
		return available(domain, FallbackPrice, "fallback", FallbackPriceMessage), nil
	}

	match, ok := ExtractPrice(resp.Body, c.extractors)
	if !ok {
		c.logger.WarnContext(ctx, "no price found in registrar pricing response, using fallback price",
			"domain", domain,
			"tld", tld,
		)
		c.metrics.IncPriceStrategy("fallback")
		return available(domain, FallbackPrice, "fallback", FallbackPriceMessage), nil
	}

	c.metrics.IncPriceStrategy(match.Strategy)
	return available(domain, match.Price, match.Strategy, ""), nil
}

// checkAvailability runs the check command and converts error markers into a
// CategoryRejected error.
func (c *Client) checkAvailability(ctx context.Context, domain string, policy retry.Policy, op string, signals []signal) (availability, string, error) {
	resp, err := c.fetch(ctx, policy, op, c.checkParams(ctx, domain))
	if err != nil {
		return availabilityUnknown, "", err
	}

	if name, found := detect(resp.Body, signals); found {
		msg := errorMessage(resp.Body, "Unknown error from registrar")
		reason := classify(msg)
		if reason == gateway.ReasonIPWhitelist {
			msg = "IP Address error: " + msg
		} else {
			reason = gateway.ReasonGeneric
		}
		c.logger.WarnContext(ctx, "registrar check returned an error",
			"domain", domain,
			"signal", name,
			"reason", reason,
			"error", msg,
		)
		return availabilityUnknown, resp.Body, gateway.Rejected(gatewayName, op, reason, msg)
	}

	return availabilityOf(resp.Body, domain), resp.Body, nil
}

func tldOf(domain string) string {
	for i := len(domain) - 1; i >= 0; i-- {
		if domain[i] == '.' {
			return domain[i+1:]
		}
	}
	return domain
}

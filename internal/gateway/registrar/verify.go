package registrar

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"domainpark/internal/gateway"
)

// Verification is the combined verdict of two independent availability checks.
type Verification struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
	Direct    string `json:"direct"`
	PriceBase string `json:"price_based"`
}

const (
	msgVerifiedAvailable = "Domain is available"
	msgUnconfirmed       = "Domain availability could not be confirmed - assuming unavailable for safety"
)

// VerifyAvailability runs a direct check and a price-based check in parallel.
// Any definite "unavailable" wins; otherwise any definite "available" wins;
// otherwise the domain is treated as unavailable.
func (c *Client) VerifyAvailability(ctx context.Context, domain string) (v *Verification, err error) {
	const op = "verify"
	if !c.Configured() {
		return nil, gateway.CredentialsMissing(gatewayName, op)
	}

	start := time.Now()
	ctx, span := gateway.StartSpan(ctx, gatewayName, op, attribute.String("domain", domain))
	defer func() {
		c.metrics.ObserveCall(gatewayName, op, outcomeLabel(err), start)
		gateway.EndSpan(span, err)
	}()

	var direct, priced availability
	var g errgroup.Group
	g.Go(func() error {
		direct = c.directVerdict(ctx, domain)
		return nil
	})
	g.Go(func() error {
		priced = c.priceVerdict(ctx, domain)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v = &Verification{Domain: domain, Direct: direct.String(), PriceBase: priced.String()}
	switch {
	case direct == availabilityFalse || priced == availabilityFalse:
		v.Message = MsgAlreadyRegistered
	case direct == availabilityTrue || priced == availabilityTrue:
		v.Available = true
		v.Message = msgVerifiedAvailable
	default:
		v.Message = msgUnconfirmed
	}
	return v, nil
}

func (c *Client) directVerdict(ctx context.Context, domain string) availability {
	avail, _, err := c.checkAvailability(ctx, domain, c.verifyPolicy, "verify_direct", commonErrorSignals)
	if err != nil {
		c.logger.WarnContext(ctx, "direct availability check inconclusive", "domain", domain, "error", err)
		return availabilityUnknown
	}
	return avail
}

// priceVerdict goes through the full quote path; only a priced quote or an
// explicit Available="false" counts as definite.
func (c *Client) priceVerdict(ctx context.Context, domain string) availability {
	q, err := c.quote(ctx, domain, c.verifyPolicy)
	if err != nil {
		c.logger.WarnContext(ctx, "price-based availability check inconclusive", "domain", domain, "error", err)
		return availabilityUnknown
	}
	if q.Available {
		return availabilityTrue
	}
	if q.Error == MsgAlreadyRegistered {
		return availabilityFalse
	}
	return availabilityUnknown
}

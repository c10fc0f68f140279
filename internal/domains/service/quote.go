package service

import (
	"context"

	"domainpark/internal/domains/models"
	"domainpark/internal/gateway/registrar"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
)

const (
	MsgOwnedByCaller = "You have already registered this domain"
	MsgOwnedByOther  = "This domain is already registered in our system"
)

// QuoteResult is a registrar quote plus where the domain sits in the lifecycle.
type QuoteResult struct {
	*registrar.Quote
	State       models.State `json:"state"`
	Owned       bool         `json:"owned,omitempty"`
	Registrable bool         `json:"registrable"`
}

// Quote checks availability and price. A domain already recorded in the store
// is reported unavailable without calling the registrar.
func (s *Service) Quote(ctx context.Context, userID id.UserID, raw string) (*QuoteResult, error) {
	domain, err := s.normalize(raw)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListByDomain(ctx, domain)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up domain")
	}
	if claim := claimOf(existing, userID); claim.blocking() {
		s.metrics.IncQuote("owned")
		return &QuoteResult{
			Quote: &registrar.Quote{Domain: domain, Available: false, Message: claim.message()},
			State: models.StateQuotedUnavailable,
			Owned: claim.owned(),
		}, nil
	}

	quote, err := s.registrar.CheckAvailabilityAndPrice(ctx, domain)
	if err != nil {
		s.logger.WarnContext(ctx, "registrar quote failed",
			"domain", domain,
			"error", err,
		)
		return nil, translateGatewayError(err, "check availability")
	}

	result := &QuoteResult{Quote: quote, State: models.StateQuotedUnavailable}
	if quote.Available {
		result.State = models.StateQuotedAvailable
		result.Registrable = quote.Price != nil && *quote.Price < s.priceCeiling
		s.metrics.IncQuote("available")
	} else {
		s.metrics.IncQuote("unavailable")
	}
	return result, nil
}

// claim summarizes existing records for a domain from one user's view.
// Failed records never persist, so they are not considered.
type claim struct {
	mine  *models.DomainRecord
	other *models.DomainRecord
}

func claimOf(records []*models.DomainRecord, userID id.UserID) claim {
	var c claim
	for _, r := range records {
		if r.Status == models.StatusFailed {
			continue
		}
		if r.UserID == userID {
			if c.mine == nil {
				c.mine = r
			}
			continue
		}
		if c.other == nil {
			c.other = r
		}
	}
	return c
}

// retryable is the caller's own record left in error by a lost create call.
func (c claim) retryable() *models.DomainRecord {
	if c.other == nil && c.mine != nil && c.mine.Status == models.StatusError {
		return c.mine
	}
	return nil
}

func (c claim) blocking() bool {
	return c.other != nil || c.owned()
}

func (c claim) owned() bool {
	return c.mine != nil && c.mine.Status != models.StatusError
}

func (c claim) message() string {
	if c.owned() {
		return MsgOwnedByCaller
	}
	return MsgOwnedByOther
}

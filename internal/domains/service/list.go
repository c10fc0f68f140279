package service

import (
	"context"
	"errors"

	"domainpark/internal/domains/models"
	"domainpark/internal/gateway/marketplace"
	"domainpark/internal/listingcache"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
	"domainpark/pkg/platform/sentinel"
)

const msgAlreadyListed = "Domain is already listed on the marketplace"

// ListingResult reports a marketplace listing attempt. A refusal from the
// marketplace is a result with Success false, not an error.
type ListingResult struct {
	Domain    string                      `json:"domain"`
	Success   bool                        `json:"success"`
	State     models.State                `json:"state"`
	Record    *models.RecordView          `json:"record,omitempty"`
	Outcome   *marketplace.ListingOutcome `json:"outcome,omitempty"`
	Notice    *Notice                     `json:"notice,omitempty"`
	Unchanged bool                        `json:"unchanged,omitempty"`
}

// List parks one of the caller's registered domains on the marketplace.
// Listing an already listed domain is a no-op.
func (s *Service) List(ctx context.Context, userID id.UserID, domainID id.DomainID) (*ListingResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user_id is required")
	}
	record, err := s.ownedRecord(ctx, userID, domainID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(record.Domain)
	defer unlock()

	// Re-read under the lock; a concurrent List may have finished first.
	if record, err = s.ownedRecord(ctx, userID, domainID); err != nil {
		return nil, err
	}
	if record.Status != models.StatusRegistered {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only registered domains can be listed")
	}
	if record.SedoListed {
		view := record.View()
		return &ListingResult{
			Domain:    record.Domain,
			Success:   true,
			State:     record.State(),
			Record:    &view,
			Notice:    newNotice(msgAlreadyListed, noticeDwell),
			Unchanged: true,
		}, nil
	}

	outcome, err := s.marketplace.List(ctx, record.Domain)
	if err != nil {
		s.metrics.IncListing("error")
		s.logger.WarnContext(ctx, "marketplace listing failed",
			"domain", record.Domain,
			"error", err,
		)
		return nil, translateGatewayError(err, "list domain")
	}

	result := &ListingResult{Domain: record.Domain, Outcome: outcome}
	if !outcome.Success {
		s.metrics.IncListing("refused")
		s.logger.WarnContext(ctx, "marketplace refused listing",
			"domain", record.Domain,
			"error", outcome.Error,
		)
		event := lifecycleEvent(audit.EventListingRefused, record)
		event.Reason = outcome.Error
		s.emit(ctx, event)
		view := record.View()
		result.State = record.State()
		result.Record = &view
		result.Notice = newNotice(outcome.Error, failureDwell)
		return result, nil
	}

	record.MarkListed(outcome.Nameservers)
	if err := s.store.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save listing")
	}
	s.recordListing(ctx, record.Domain)
	s.emit(ctx, lifecycleEvent(audit.EventDomainListed, record))
	s.metrics.IncListing("listed")
	s.metrics.IncTransition(string(models.StateListed))
	s.logger.InfoContext(ctx, "domain listed",
		"domain", record.Domain,
		"user_id", userID,
		"simulated", outcome.Simulated,
	)

	view := record.View()
	result.Success = true
	result.State = record.State()
	result.Record = &view
	result.Notice = newNotice(outcome.Message, noticeDwell)
	return result, nil
}

// recordListing adds the domain to the listing cache so owned-listing search
// finds it before the marketplace reports it. Failures are logged only.
func (s *Service) recordListing(ctx context.Context, domain string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Add(ctx, listingcache.Parked(domain)); err != nil {
		s.logger.WarnContext(ctx, "failed to add listing to cache",
			"domain", domain,
			"error", err,
		)
	}
}

// ownedRecord loads a record and hides records of other users behind not found.
func (s *Service) ownedRecord(ctx context.Context, userID id.UserID, domainID id.DomainID) (*models.DomainRecord, error) {
	record, err := s.store.FindByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain record")
	}
	if record.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "domain record not found")
	}
	return record, nil
}

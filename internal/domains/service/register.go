package service

import (
	"context"
	"fmt"

	"domainpark/internal/domains/models"
	"domainpark/internal/gateway"
	"domainpark/internal/gateway/registrar"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
)

const (
	MsgPendingInProgress = "Registration for this domain is already in progress"
	msgOutcomeUnknown    = "The registrar did not answer. The domain is marked as error; retry to confirm the registration."
)

// RegistrationResult reports where a registration attempt left the domain.
// Record is nil when the attempt failed and its pending record was removed.
type RegistrationResult struct {
	Domain  string                         `json:"domain"`
	State   models.State                   `json:"state"`
	Price   *float64                       `json:"price,omitempty"`
	Record  *models.RecordView             `json:"record,omitempty"`
	Outcome *registrar.RegistrationOutcome `json:"outcome,omitempty"`
	Notice  *Notice                        `json:"notice,omitempty"`
}

// Register quotes the domain, writes a pending record, then submits the
// registration. Nothing is written when the domain is unavailable, already
// claimed or priced at or above the ceiling.
//
// A refusal from the registrar deletes the pending record and is returned as
// a failed result. A lost create call keeps the record in error so a later
// Register retries on it instead of creating a second one.
func (s *Service) Register(ctx context.Context, userID id.UserID, raw string) (*RegistrationResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user_id is required")
	}
	domain, err := s.normalize(raw)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(domain)
	defer unlock()

	existing, err := s.store.ListByDomain(ctx, domain)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up domain")
	}
	claim := claimOf(existing, userID)
	if err := s.checkClaim(ctx, domain, claim); err != nil {
		return nil, err
	}

	quote, err := s.registrar.CheckAvailabilityAndPrice(ctx, domain)
	if err != nil {
		s.metrics.IncRejection("quote_failed")
		return nil, translateGatewayError(err, "check availability")
	}
	if !quote.Available {
		s.metrics.IncRejection("unavailable")
		msg := quote.Message
		if msg == "" {
			msg = quote.Error
		}
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("Domain %s is not available for registration: %s", domain, msg))
	}
	if quote.Price == nil || *quote.Price >= s.priceCeiling {
		s.metrics.IncRejection("price_ceiling")
		return nil, dErrors.New(dErrors.CodePriceCeiling, ceilingMessage(quote.Price, s.priceCeiling))
	}

	if ready, ok := s.registrar.(RegistrationReadiness); ok {
		if err := ready.ReadyToRegister(); err != nil {
			s.metrics.IncRejection("not_ready")
			return nil, translateGatewayError(err, "register domain")
		}
	}

	record, err := s.writePending(ctx, userID, domain, claim.retryable())
	if err != nil {
		return nil, err
	}
	result := &RegistrationResult{Domain: domain, Price: quote.Price}

	outcome, err := s.registrar.Register(ctx, domain)
	if err != nil {
		return s.registrationError(ctx, record, result, err)
	}
	result.Outcome = outcome

	switch outcome.Status {
	case registrar.StatusRegistered:
		record.MarkRegistered(outcome.Nameservers, s.timeNow(ctx).UTC())
		if err := s.store.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
		}
		s.logger.InfoContext(ctx, "domain registered",
			"domain", domain,
			"user_id", userID,
			"price", *quote.Price,
		)
		s.emit(ctx, lifecycleEvent(audit.EventDomainRegistered, record))
		result.Notice = newNotice(outcome.Message, noticeDwell)
	case registrar.StatusPending:
		s.logger.InfoContext(ctx, "registration submitted without confirmation",
			"domain", domain,
			"user_id", userID,
		)
		result.Notice = newNotice(outcome.Message, noticeDwell)
	default:
		if err := s.store.Delete(ctx, record.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to discard pending registration")
		}
		s.logger.WarnContext(ctx, "registrar refused registration",
			"domain", domain,
			"user_id", userID,
			"reason", outcome.Reason,
			"error", outcome.Error,
		)
		event := lifecycleEvent(audit.EventRegistrationRefused, record)
		event.Decision = string(models.StateFailed)
		event.Reason = outcome.Error
		s.emit(ctx, event)
		s.metrics.IncTransition(string(models.StateFailed))
		result.State = models.StateFailed
		result.Notice = newNotice(outcome.Error, failureDwell)
		return result, nil
	}

	s.metrics.IncTransition(string(record.State()))
	result.State = record.State()
	view := record.View()
	result.Record = &view
	return result, nil
}

func (s *Service) checkClaim(ctx context.Context, domain string, c claim) error {
	switch {
	case c.owned() && c.mine.Status == models.StatusPending:
		s.metrics.IncRejection("in_progress")
		return dErrors.New(dErrors.CodeConflict, MsgPendingInProgress)
	case c.blocking():
		s.metrics.IncRejection("duplicate")
		s.logger.InfoContext(ctx, "registration refused for recorded domain",
			"domain", domain,
			"owned_by_caller", c.owned(),
		)
		return dErrors.New(dErrors.CodeConflict, c.message())
	}
	return nil
}

// writePending records the attempt before the create call. An error record
// from a previous attempt is reused.
func (s *Service) writePending(ctx context.Context, userID id.UserID, domain string, retry *models.DomainRecord) (*models.DomainRecord, error) {
	if retry != nil {
		retry.Status = models.StatusPending
		retry.Nameservers = ""
		retry.SubmittedAt = s.timeNow(ctx).UTC()
		if err := s.store.Update(ctx, retry); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record registration retry")
		}
		s.logger.InfoContext(ctx, "retrying registration on error record",
			"domain", domain,
			"domain_id", retry.ID,
		)
		s.metrics.IncTransition(string(models.StatePending))
		s.emit(ctx, lifecycleEvent(audit.EventRegistrationSubmitted, retry))
		return retry, nil
	}

	record := models.NewPending(userID, domain, s.timeNow(ctx).UTC())
	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record registration")
	}
	s.metrics.IncTransition(string(models.StatePending))
	s.emit(ctx, lifecycleEvent(audit.EventRegistrationSubmitted, record))
	return record, nil
}

// registrationError settles the pending record after Register returned an
// error. Only a network failure leaves it behind, because only then may the
// registrar have acted on the call.
func (s *Service) registrationError(ctx context.Context, record *models.DomainRecord, result *RegistrationResult, callErr error) (*RegistrationResult, error) {
	// The caller may have gone away; the record still has to be settled.
	writeCtx := context.WithoutCancel(ctx)

	if !gateway.Is(callErr, gateway.CategoryNetwork) {
		if err := s.store.Delete(writeCtx, record.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to discard pending registration",
				"domain", record.Domain,
				"error", err,
			)
		}
		event := lifecycleEvent(audit.EventRegistrationRefused, record)
		event.Decision = string(models.StateFailed)
		event.Reason = callErr.Error()
		s.emit(writeCtx, event)
		return nil, translateGatewayError(callErr, "register domain")
	}

	record.MarkError()
	if err := s.store.Update(writeCtx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record registration error")
	}
	s.logger.ErrorContext(ctx, "registrar create call failed, outcome unknown",
		"domain", record.Domain,
		"domain_id", record.ID,
		"error", callErr,
	)
	s.metrics.IncTransition(string(models.StateError))
	event := lifecycleEvent(audit.EventRegistrationErrored, record)
	event.Reason = callErr.Error()
	s.emit(writeCtx, event)

	view := record.View()
	result.State = models.StateError
	result.Record = &view
	result.Notice = newNotice(msgOutcomeUnknown, failureDwell)
	return result, nil
}

func ceilingMessage(price *float64, ceiling float64) string {
	if price == nil {
		return fmt.Sprintf("No price was quoted; registrations must cost less than $%.2f", ceiling)
	}
	return fmt.Sprintf("Price $%.2f is not below the $%.2f registration ceiling", *price, ceiling)
}

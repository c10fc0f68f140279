package service

import (
	"context"

	"domainpark/internal/domains/models"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
)

func lifecycleEvent(action audit.AuditEvent, record *models.DomainRecord) audit.Event {
	return audit.Event{
		UserID:   record.UserID,
		DomainID: record.ID,
		Domain:   record.Domain,
		Action:   string(action),
		Decision: string(record.State()),
	}
}

// emit records a lifecycle event. Failures are logged; the record change it
// describes has already been made.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to record audit event",
			"action", event.Action,
			"domain", event.Domain,
			"error", err,
		)
	}
}

// Activity returns the caller's lifecycle history, oldest first.
func (s *Service) Activity(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user_id is required")
	}
	if s.auditor == nil {
		return []audit.Event{}, nil
	}
	events, err := s.auditor.List(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity")
	}
	if events == nil {
		events = []audit.Event{}
	}
	return events, nil
}

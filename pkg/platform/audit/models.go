package audit

import (
	"context"
	"time"

	id "domainpark/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events that change who holds a domain.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine lifecycle progress.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from lifecycle logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    id.UserID     `json:"user_id"`
	DomainID  id.DomainID   `json:"domain_id"`
	Domain    string        `json:"domain"`
	Action    string        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// ActorID is set when an operator or the sweeper acts on a user's record.
	ActorID string `json:"actor_id,omitempty"`
}

type AuditEvent string

const (
	EventRegistrationSubmitted AuditEvent = "registration_submitted"
	EventDomainRegistered      AuditEvent = "domain_registered"
	EventRegistrationRefused   AuditEvent = "registration_refused"
	EventRegistrationErrored   AuditEvent = "registration_errored"
	EventDomainListed          AuditEvent = "domain_listed"
	EventListingRefused        AuditEvent = "listing_refused"
	EventDomainReconciled      AuditEvent = "domain_reconciled"
	EventPendingExpired        AuditEvent = "pending_expired"
	EventRecordDeleted         AuditEvent = "record_deleted"
)

// Actors recorded for actions not taken by the record's owner.
const (
	ActorSweeper  = "sweeper"
	ActorOperator = "operator"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDomainRegistered: CategoryCompliance,
	EventRecordDeleted:    CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. ListByUser returns events oldest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

package models

import (
	"strings"
	"time"

	id "domainpark/pkg/domain"
)

// Status is the persisted registration status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRegistered Status = "registered"
	StatusFailed     Status = "failed"
	StatusError      Status = "error"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRegistered, StatusFailed, StatusError:
		return true
	}
	return false
}

// State is the lifecycle position of a domain as seen by the controller.
// Quoted states are never persisted.
type State string

const (
	StateUnchecked         State = "unchecked"
	StateQuotedAvailable   State = "quoted_available"
	StateQuotedUnavailable State = "quoted_unavailable"
	StatePending           State = "pending"
	StateRegistered        State = "registered"
	StateListed            State = "listed"
	StateFailed            State = "failed"
	StateError             State = "error"
)

const (
	// ErrorNameservers marks a record whose create call never got an answer.
	ErrorNameservers = "Registration error: connection failed"

	// ParkingMarker identifies marketplace parking nameservers.
	ParkingMarker = "sedo"

	registrationTerm = 1
)

// DomainRecord is one user's claim on one domain.
type DomainRecord struct {
	ID           id.DomainID `json:"id"`
	UserID       id.UserID   `json:"user_id"`
	Domain       string      `json:"domain"`
	Status       Status      `json:"status"`
	SedoListed   bool        `json:"sedo_listed"`
	Nameservers  string      `json:"nameservers"`
	CreatedAt    time.Time   `json:"created_at"`
	SubmittedAt  time.Time   `json:"submitted_at"`
	RegisteredAt *time.Time  `json:"registered_at,omitempty"`
}

// NewPending builds the record written just before the registrar is called.
func NewPending(userID id.UserID, domain string, now time.Time) *DomainRecord {
	return &DomainRecord{
		ID:          id.NewDomainID(),
		UserID:      userID,
		Domain:      domain,
		Status:      StatusPending,
		CreatedAt:   now,
		SubmittedAt: now,
	}
}

// ExpiresAt is one registration term after RegisteredAt.
func (r *DomainRecord) ExpiresAt() *time.Time {
	if r.RegisteredAt == nil {
		return nil
	}
	t := r.RegisteredAt.AddDate(registrationTerm, 0, 0)
	return &t
}

// HasParkingNameservers reports whether DNS already points at marketplace parking.
func (r *DomainRecord) HasParkingNameservers() bool {
	return strings.Contains(strings.ToLower(r.Nameservers), ParkingMarker)
}

// NeedsAction is true for registered domains that are neither flagged as
// listed nor delegated to parking.
func (r *DomainRecord) NeedsAction() bool {
	return r.Status == StatusRegistered && !r.SedoListed && !r.HasParkingNameservers()
}

// NeedsReconcile is true for registered domains delegated to parking but not
// flagged as listed.
func (r *DomainRecord) NeedsReconcile() bool {
	return r.Status == StatusRegistered && !r.SedoListed && r.HasParkingNameservers()
}

func (r *DomainRecord) State() State {
	switch r.Status {
	case StatusPending:
		return StatePending
	case StatusFailed:
		return StateFailed
	case StatusError:
		return StateError
	case StatusRegistered:
		if r.SedoListed {
			return StateListed
		}
		return StateRegistered
	default:
		return StateUnchecked
	}
}

// StalePending is true for a pending record last submitted at least after
// ago. No request can still be waiting on its create call.
func (r *DomainRecord) StalePending(now time.Time, after time.Duration) bool {
	if r.Status != StatusPending || after <= 0 {
		return false
	}
	submitted := r.SubmittedAt
	if submitted.IsZero() {
		submitted = r.CreatedAt
	}
	return now.Sub(submitted) >= after
}

// MarkRegistered records a successful registration.
func (r *DomainRecord) MarkRegistered(nameservers string, at time.Time) {
	r.Status = StatusRegistered
	r.Nameservers = nameservers
	r.RegisteredAt = &at
}

// MarkError records a registration whose outcome is unknown.
func (r *DomainRecord) MarkError() {
	r.Status = StatusError
	r.Nameservers = ErrorNameservers
}

// MarkListed records a successful marketplace listing.
func (r *DomainRecord) MarkListed(nameservers string) {
	r.SedoListed = true
	if nameservers != "" {
		r.Nameservers = nameservers
	}
}

// RecordView is the API shape of a record with derived fields.
type RecordView struct {
	*DomainRecord
	State     State      `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *DomainRecord) View() RecordView {
	return RecordView{DomainRecord: r, State: r.State(), ExpiresAt: r.ExpiresAt()}
}

// Package sqlstore persists audit events in the audit_events table. Appends
// join the caller's transaction when one is carried on the context, so an
// event commits or rolls back with the record change it describes.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	id "domainpark/pkg/domain"
	audit "domainpark/pkg/platform/audit"
	txcontext "domainpark/pkg/platform/tx"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

type eventRow struct {
	ID         string    `db:"id"`
	Category   string    `db:"category"`
	Action     string    `db:"action"`
	UserID     string    `db:"user_id"`
	DomainID   string    `db:"domain_id"`
	Domain     string    `db:"domain"`
	Decision   string    `db:"decision"`
	Reason     string    `db:"reason"`
	RequestID  string    `db:"request_id"`
	ActorID    string    `db:"actor_id"`
	OccurredAt time.Time `db:"occurred_at"`
}

// Append inserts one event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	row := eventRow{
		ID:         uuid.NewString(),
		Category:   string(audit.AuditEvent(event.Action).Category()),
		Action:     event.Action,
		UserID:     event.UserID.String(),
		DomainID:   event.DomainID.String(),
		Domain:     event.Domain,
		Decision:   event.Decision,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		ActorID:    event.ActorID,
		OccurredAt: event.Timestamp.UTC(),
	}
	query := s.db.Rebind(`INSERT INTO audit_events
		(id, category, action, user_id, domain_id, domain, decision, reason, request_id, actor_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.execer(ctx).ExecContext(ctx, query,
		row.ID, row.Category, row.Action, row.UserID, row.DomainID, row.Domain,
		row.Decision, row.Reason, row.RequestID, row.ActorID, row.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns the user's events, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := s.db.Rebind(`SELECT id, category, action, user_id, domain_id, domain, decision, reason, request_id, actor_id, occurred_at
		FROM audit_events WHERE user_id = ? ORDER BY occurred_at ASC, id ASC`)
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, query, userID.String()); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	events := make([]audit.Event, 0, len(rows))
	for _, row := range rows {
		uid, err := uuid.Parse(row.UserID)
		if err != nil {
			return nil, fmt.Errorf("decode audit user id %q: %w", row.UserID, err)
		}
		did, err := uuid.Parse(row.DomainID)
		if err != nil {
			return nil, fmt.Errorf("decode audit domain id %q: %w", row.DomainID, err)
		}
		events = append(events, audit.Event{
			Category:  audit.EventCategory(row.Category),
			Timestamp: row.OccurredAt,
			UserID:    id.UserID(uid),
			DomainID:  id.DomainID(did),
			Domain:    row.Domain,
			Action:    row.Action,
			Decision:  row.Decision,
			Reason:    row.Reason,
			RequestID: row.RequestID,
			ActorID:   row.ActorID,
		})
	}
	return events, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"domainpark/internal/domains/models"
	id "domainpark/pkg/domain"
	"domainpark/pkg/platform/sentinel"
	"domainpark/pkg/platform/tx"
)

// SQLStore persists records through sqlx. Placeholders are written as '?'
// and rebound for the connected driver.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQL(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

type domainRow struct {
	ID           string       `db:"id"`
	UserID       string       `db:"user_id"`
	Domain       string       `db:"domain"`
	Status       string       `db:"status"`
	SedoListed   bool         `db:"sedo_listed"`
	Nameservers  string       `db:"nameservers"`
	CreatedAt    time.Time    `db:"created_at"`
	SubmittedAt  sql.NullTime `db:"submitted_at"`
	RegisteredAt sql.NullTime `db:"registered_at"`
}

const selectColumns = `SELECT id, user_id, domain, status, sedo_listed, nameservers, created_at, submitted_at, registered_at FROM domains`

func toRow(r *models.DomainRecord) domainRow {
	row := domainRow{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		Domain:      r.Domain,
		Status:      string(r.Status),
		SedoListed:  r.SedoListed,
		Nameservers: r.Nameservers,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if !r.SubmittedAt.IsZero() {
		row.SubmittedAt = sql.NullTime{Time: r.SubmittedAt.UTC(), Valid: true}
	}
	if r.RegisteredAt != nil {
		row.RegisteredAt = sql.NullTime{Time: r.RegisteredAt.UTC(), Valid: true}
	}
	return row
}

func (row domainRow) toModel() (*models.DomainRecord, error) {
	domainID, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("decode domain id %q: %w", row.ID, err)
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return nil, fmt.Errorf("decode user id %q: %w", row.UserID, err)
	}
	r := &models.DomainRecord{
		ID:          id.DomainID(domainID),
		UserID:      id.UserID(userID),
		Domain:      row.Domain,
		Status:      models.Status(row.Status),
		SedoListed:  row.SedoListed,
		Nameservers: row.Nameservers,
		CreatedAt:   row.CreatedAt,
		SubmittedAt: row.CreatedAt,
	}
	if row.SubmittedAt.Valid {
		r.SubmittedAt = row.SubmittedAt.Time
	}
	if row.RegisteredAt.Valid {
		t := row.RegisteredAt.Time
		r.RegisteredAt = &t
	}
	return r, nil
}

// execer returns the transaction from ctx when one is present.
func (s *SQLStore) execer(ctx context.Context) sqlx.ExtContext {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// RunInTx runs fn with every store call on its ctx sharing one transaction.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, fn)
}

func (s *SQLStore) Create(ctx context.Context, record *models.DomainRecord) error {
	if record == nil {
		return fmt.Errorf("domain record is required")
	}
	q := s.db.Rebind(`INSERT INTO domains (id, user_id, domain, status, sedo_listed, nameservers, created_at, submitted_at, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	row := toRow(record)
	if _, err := s.execer(ctx).ExecContext(ctx, q,
		row.ID, row.UserID, row.Domain, row.Status, row.SedoListed, row.Nameservers, row.CreatedAt, row.SubmittedAt, row.RegisteredAt,
	); err != nil {
		return fmt.Errorf("insert domain %s: %w", row.ID, err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, record *models.DomainRecord) error {
	if record == nil {
		return fmt.Errorf("domain record is required")
	}
	q := s.db.Rebind(`UPDATE domains SET status = ?, sedo_listed = ?, nameservers = ?, submitted_at = ?, registered_at = ? WHERE id = ?`)
	row := toRow(record)
	res, err := s.execer(ctx).ExecContext(ctx, q, row.Status, row.SedoListed, row.Nameservers, row.SubmittedAt, row.RegisteredAt, row.ID)
	if err != nil {
		return fmt.Errorf("update domain %s: %w", row.ID, err)
	}
	return expectRow(res, row.ID)
}

func (s *SQLStore) FindByID(ctx context.Context, domainID id.DomainID) (*models.DomainRecord, error) {
	var row domainRow
	q := s.db.Rebind(selectColumns + ` WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.execer(ctx), &row, q, domainID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find domain %s: %w", domainID, err)
	}
	return row.toModel()
}

func (s *SQLStore) ListByDomain(ctx context.Context, domain string) ([]*models.DomainRecord, error) {
	return s.list(ctx, `WHERE domain = ?`, domain)
}

func (s *SQLStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error) {
	return s.list(ctx, `WHERE user_id = ?`, userID.String())
}

func (s *SQLStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.DomainRecord, error) {
	return s.list(ctx, `WHERE status = ?`, string(status))
}

func (s *SQLStore) Delete(ctx context.Context, domainID id.DomainID) error {
	q := s.db.Rebind(`DELETE FROM domains WHERE id = ?`)
	res, err := s.execer(ctx).ExecContext(ctx, q, domainID.String())
	if err != nil {
		return fmt.Errorf("delete domain %s: %w", domainID, err)
	}
	return expectRow(res, domainID.String())
}

func (s *SQLStore) list(ctx context.Context, where string, arg any) ([]*models.DomainRecord, error) {
	var rows []domainRow
	q := s.db.Rebind(selectColumns + " " + where + ` ORDER BY created_at DESC`)
	if err := sqlx.SelectContext(ctx, s.execer(ctx), &rows, q, arg); err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	out := make([]*models.DomainRecord, 0, len(rows))
	for _, row := range rows {
		r, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func expectRow(res sql.Result, domainID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", domainID, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

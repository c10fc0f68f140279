package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainpark/internal/platform/database"
	id "domainpark/pkg/domain"
	audit "domainpark/pkg/platform/audit"
	"domainpark/pkg/platform/sentinel"
	txcontext "domainpark/pkg/platform/tx"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))
	return New(db)
}

func TestAppendAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	user := id.NewUserID()
	domainID := id.NewDomainID()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Minute),
		UserID:    user,
		DomainID:  domainID,
		Domain:    "test.shop",
		Action:    string(audit.EventDomainRegistered),
		Decision:  "registered",
		RequestID: "req-1",
	}))
	require.NoError(t, store.Append(ctx, audit.Event{
		Timestamp: base,
		UserID:    user,
		DomainID:  domainID,
		Domain:    "test.shop",
		Action:    string(audit.EventRegistrationSubmitted),
	}))
	require.NoError(t, store.Append(ctx, audit.Event{
		Timestamp: base,
		UserID:    id.NewUserID(),
		DomainID:  id.NewDomainID(),
		Action:    string(audit.EventRegistrationSubmitted),
	}))

	events, err := store.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventRegistrationSubmitted), events[0].Action)
	assert.Equal(t, string(audit.EventDomainRegistered), events[1].Action)
	assert.Equal(t, audit.CategoryCompliance, events[1].Category)
	assert.Equal(t, domainID, events[1].DomainID)
	assert.Equal(t, "req-1", events[1].RequestID)
	assert.True(t, events[1].Timestamp.Equal(base.Add(time.Minute)))
}

func TestAppendJoinsTransaction(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	user := id.NewUserID()

	err := txcontext.Run(ctx, store.db, func(ctx context.Context) error {
		if err := store.Append(ctx, audit.Event{
			Timestamp: time.Now(),
			UserID:    user,
			DomainID:  id.NewDomainID(),
			Action:    string(audit.EventDomainReconciled),
		}); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	})
	require.ErrorIs(t, err, sentinel.ErrInvalidState)

	events, err := store.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, events)
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"domainpark/internal/domains/models"
	"domainpark/internal/platform/database"
	id "domainpark/pkg/domain"
	"domainpark/pkg/platform/sentinel"
)

// recordStore is the surface shared by both implementations.
type recordStore interface {
	Create(ctx context.Context, record *models.DomainRecord) error
	Update(ctx context.Context, record *models.DomainRecord) error
	FindByID(ctx context.Context, domainID id.DomainID) (*models.DomainRecord, error)
	ListByDomain(ctx context.Context, domain string) ([]*models.DomainRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.DomainRecord, error)
	Delete(ctx context.Context, domainID id.DomainID) error
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StoreSuite runs the same contract against every backend.
//
// Justification for unit tests: the lifecycle controller relies on
// newest-first ordering, not-found sentinels and copy semantics; the
// sqlite run also proves the migrations and column mapping agree.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) recordStore
	store    recordStore
	ctx      context.Context
	base     time.Time
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) recordStore { return NewInMemory() }})
}

func TestSQLStoreSQLite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) recordStore {
		ctx := context.Background()
		db, err := database.Open(ctx, database.Config{
			Driver: database.DriverSQLite,
			DSN:    "file:" + filepath.Join(t.TempDir(), "domains.db"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, database.Migrate(ctx, db))
		return NewSQL(db)
	}})
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
	s.base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) pending(user id.UserID, domain string, offset time.Duration) *models.DomainRecord {
	r := models.NewPending(user, domain, s.base.Add(offset))
	s.Require().NoError(s.store.Create(s.ctx, r))
	return r
}

// =============================================================================
// Create / FindByID
// =============================================================================

func (s *StoreSuite) TestCreateAndFind() {
	user := id.NewUserID()
	created := s.pending(user, "test.shop", 0)

	got, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(user, got.UserID)
	s.Equal("test.shop", got.Domain)
	s.Equal(models.StatusPending, got.Status)
	s.False(got.SedoListed)
	s.Nil(got.RegisteredAt)
	s.True(created.CreatedAt.Equal(got.CreatedAt))
	s.True(created.SubmittedAt.Equal(got.SubmittedAt))
}

func (s *StoreSuite) TestUpdatePersistsResubmission() {
	r := s.pending(id.NewUserID(), "test.shop", 0)
	r.SubmittedAt = s.base.Add(time.Hour)
	s.Require().NoError(s.store.Update(s.ctx, r))

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(r.SubmittedAt.Equal(got.SubmittedAt))
	s.True(r.CreatedAt.Equal(got.CreatedAt), "created_at is immutable")
}

func (s *StoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewDomainID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// =============================================================================
// Update / Delete
// =============================================================================

func (s *StoreSuite) TestUpdatePersistsLifecycleFields() {
	r := s.pending(id.NewUserID(), "test.shop", 0)
	at := s.base.Add(time.Minute)
	r.MarkRegistered("ns1.sedoparking.com, ns2.sedoparking.com", at)
	s.Require().NoError(s.store.Update(s.ctx, r))

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRegistered, got.Status)
	s.Equal("ns1.sedoparking.com, ns2.sedoparking.com", got.Nameservers)
	s.Require().NotNil(got.RegisteredAt)
	s.True(at.Equal(*got.RegisteredAt))
}

func (s *StoreSuite) TestUpdateMissing() {
	r := models.NewPending(id.NewUserID(), "ghost.shop", s.base)
	s.ErrorIs(s.store.Update(s.ctx, r), sentinel.ErrNotFound)
}

func (s *StoreSuite) TestDelete() {
	r := s.pending(id.NewUserID(), "test.shop", 0)
	s.Require().NoError(s.store.Delete(s.ctx, r.ID))

	_, err := s.store.FindByID(s.ctx, r.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, r.ID), sentinel.ErrNotFound)
}

// =============================================================================
// Listing
// =============================================================================

func (s *StoreSuite) TestListByUserNewestFirst() {
	user := id.NewUserID()
	other := id.NewUserID()
	older := s.pending(user, "a.shop", 0)
	newer := s.pending(user, "b.shop", time.Hour)
	s.pending(other, "c.shop", 2*time.Hour)

	got, err := s.store.ListByUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)
}

func (s *StoreSuite) TestListByDomainAndStatus() {
	a := s.pending(id.NewUserID(), "test.shop", 0)
	s.pending(id.NewUserID(), "other.shop", time.Minute)
	a.MarkRegistered("dns1.registrar-servers.com", s.base)
	s.Require().NoError(s.store.Update(s.ctx, a))

	byDomain, err := s.store.ListByDomain(s.ctx, "test.shop")
	s.Require().NoError(err)
	s.Len(byDomain, 1)

	registered, err := s.store.ListByStatus(s.ctx, models.StatusRegistered)
	s.Require().NoError(err)
	s.Require().Len(registered, 1)
	s.Equal(a.ID, registered[0].ID)

	none, err := s.store.ListByDomain(s.ctx, "missing.shop")
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *StoreSuite) TestRunInTxSharesWrites() {
	user := id.NewUserID()
	err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		r := models.NewPending(user, "tx.shop", s.base)
		if err := s.store.Create(ctx, r); err != nil {
			return err
		}
		r.MarkRegistered("ns1.sedoparking.com", s.base)
		return s.store.Update(ctx, r)
	})
	s.Require().NoError(err)

	got, err := s.store.ListByUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.StatusRegistered, got[0].Status)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	r := models.NewPending(id.NewUserID(), "test.shop", time.Now())
	require.NoError(t, s.Create(ctx, r))

	r.Status = models.StatusRegistered
	got, err := s.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	got.Domain = "mutated.shop"
	again, err := s.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "test.shop", again.Domain)

	assert.ErrorIs(t, s.Create(ctx, r), sentinel.ErrConflict)
}

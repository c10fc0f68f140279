package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"domainpark/internal/ratelimit/models"
	"domainpark/internal/ratelimit/store/bucket"
	dErrors "domainpark/pkg/domain-errors"
	"domainpark/pkg/requestcontext"
)

// =============================================================================
// Request Limit Service Test Suite
// =============================================================================
// Justification for unit tests: the service decides which bucket is charged
// first and which result the caller sees. A real in-memory bucket store keeps
// the counting honest.

type RequestLimitSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func TestRequestLimitSuite(t *testing.T) {
	suite.Run(t, new(RequestLimitSuite))
}

func (s *RequestLimitSuite) SetupTest() {
	var err error
	s.service, err = New(bucket.NewInMemoryBucketStore(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithUserLimit(models.ClassRegistrar, models.Limit{Requests: 2, Window: time.Minute}),
		WithUserLimit(models.ClassRead, models.Limit{Requests: 10, Window: time.Minute}),
		WithIPLimit(models.Limit{Requests: 3, Window: time.Minute}),
	)
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
}

func (s *RequestLimitSuite) TestUserLimit() {
	for range 2 {
		res, err := s.service.CheckBoth(s.ctx, "10.0.0.1", "user-1", models.ClassRegistrar)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}
	res, err := s.service.CheckBoth(s.ctx, "10.0.0.1", "user-1", models.ClassRegistrar)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(2, res.Limit)

	res, err = s.service.CheckBoth(s.ctx, "10.0.0.2", "user-2", models.ClassRegistrar)
	s.Require().NoError(err)
	s.True(res.Allowed, "other users keep their own window")
}

func (s *RequestLimitSuite) TestAddressLimitSpansUsers() {
	for _, user := range []string{"a", "b", "c"} {
		res, err := s.service.CheckBoth(s.ctx, "10.0.0.9", user, models.ClassRead)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}
	res, err := s.service.CheckBoth(s.ctx, "10.0.0.9", "d", models.ClassRead)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(3, res.Limit)
}

func (s *RequestLimitSuite) TestReturnsMoreRestrictiveResult() {
	res, err := s.service.CheckBoth(s.ctx, "10.0.0.1", "user-1", models.ClassRegistrar)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(2, res.Limit)
	s.Equal(1, res.Remaining)
}

func (s *RequestLimitSuite) TestUnconfiguredClassIsDenied() {
	res, err := s.service.CheckBoth(s.ctx, "10.0.0.1", "user-1", models.ClassMarketplace)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(60, res.RetryAfter)
}

func (s *RequestLimitSuite) TestResetUser() {
	for range 2 {
		_, err := s.service.CheckBoth(s.ctx, "", "user-1", models.ClassRegistrar)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.service.ResetUser(s.ctx, "user-1", models.ClassRegistrar))

	res, err := s.service.CheckBoth(s.ctx, "", "user-1", models.ClassRegistrar)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Reset(context.Context, string) error { return errors.New("connection refused") }

func TestStoreFailureIsInternal(t *testing.T) {
	svc, err := New(failingStore{}, WithUserLimit(models.ClassRead, models.Limit{Requests: 1, Window: time.Minute}))
	require.NoError(t, err)

	_, err = svc.CheckBoth(context.Background(), "", "user-1", models.ClassRead)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestRateLimitKeySanitizesIdentifier(t *testing.T) {
	key := models.NewRateLimitKey(models.KeyPrefixUser, "user:admin", models.ClassRead)
	assert.Equal(t, "ratelimit:user:user_admin:read", key.String())
}

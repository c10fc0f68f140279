// Package service decides whether a request fits inside its caller's and its
// client address's sliding windows.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"domainpark/internal/ratelimit/metrics"
	"domainpark/internal/ratelimit/models"
	dErrors "domainpark/pkg/domain-errors"
)

// BucketStore manages sliding window counters.
type BucketStore interface {
	// Allow checks if a single request is allowed and records it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}

type Service struct {
	buckets    BucketStore
	userLimits map[models.EndpointClass]models.Limit
	ipLimit    models.Limit
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithUserLimit sets the per-user limit for one endpoint class.
func WithUserLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(s *Service) {
		s.userLimits[class] = limit
	}
}

// WithIPLimit sets the per-address limit applied to every class.
func WithIPLimit(limit models.Limit) Option {
	return func(s *Service) {
		s.ipLimit = limit
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	svc := &Service{
		buckets:    buckets,
		userLimits: make(map[models.EndpointClass]models.Limit),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckBoth consumes one request from the address bucket and then from the
// user bucket. A class with no configured user limit is denied.
func (s *Service) CheckBoth(ctx context.Context, ip, userID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	userLimit, ok := s.userLimits[class]
	if !ok || userLimit.Requests <= 0 {
		s.logger.WarnContext(ctx, "rate limit not configured for endpoint class",
			"endpoint_class", class,
		)
		return &models.RateLimitResult{Allowed: false, RetryAfter: 60}, nil
	}

	var ipRes *models.RateLimitResult
	if s.ipLimit.Requests > 0 && ip != "" {
		key := models.NewRateLimitKey(models.KeyPrefixIP, ip, class)
		res, err := s.buckets.Allow(ctx, key.String(), s.ipLimit.Requests, s.ipLimit.Window)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check address rate limit")
		}
		if !res.Allowed {
			s.exceeded(ctx, models.KeyPrefixIP, class, "user_id", userID)
			return res, nil
		}
		ipRes = res
	}

	key := models.NewRateLimitKey(models.KeyPrefixUser, userID, class)
	userRes, err := s.buckets.Allow(ctx, key.String(), userLimit.Requests, userLimit.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check user rate limit")
	}
	if !userRes.Allowed {
		s.exceeded(ctx, models.KeyPrefixUser, class, "user_id", userID)
		return userRes, nil
	}

	if ipRes == nil {
		return userRes, nil
	}
	return moreRestrictiveResult(ipRes, userRes), nil
}

// ResetUser clears the caller's bucket for a class.
func (s *Service) ResetUser(ctx context.Context, userID string, class models.EndpointClass) error {
	key := models.NewRateLimitKey(models.KeyPrefixUser, userID, class)
	if err := s.buckets.Reset(ctx, key.String()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
	}
	return nil
}

func (s *Service) exceeded(ctx context.Context, scope models.KeyPrefix, class models.EndpointClass, attrs ...any) {
	s.metrics.IncrementExceeded(string(class), string(scope))
	s.logger.InfoContext(ctx, "rate limit exceeded",
		append([]any{"scope", scope, "endpoint_class", class}, attrs...)...,
	)
}

// moreRestrictiveResult returns the result with fewer remaining requests,
// or the earlier reset time if remaining counts are equal.
func moreRestrictiveResult(a, b *models.RateLimitResult) *models.RateLimitResult {
	if a.Remaining < b.Remaining {
		return a
	}
	if b.Remaining < a.Remaining {
		return b
	}
	if a.ResetAt.Before(b.ResetAt) {
		return a
	}
	return b
}

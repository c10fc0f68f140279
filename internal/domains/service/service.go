// Package service is the lifecycle controller: it takes a domain from quote
// through registration to a marketplace listing, and keeps stored records
// consistent with what the registrar and marketplace reported.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"domainpark/internal/domains/metrics"
	"domainpark/internal/domains/models"
	"domainpark/internal/domains/ports"
	"domainpark/internal/gateway"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
	"domainpark/pkg/platform/sentinel"
	"domainpark/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	Store                 = ports.Store
	Registrar             = ports.Registrar
	RegistrationReadiness = ports.RegistrationReadiness
	Marketplace           = ports.Marketplace
	ListingCache          = ports.ListingCache
	Auditor               = ports.Auditor
)

const (
	// DefaultPriceCeiling is exclusive: a quote must be strictly below it.
	DefaultPriceCeiling = 2.00

	// DefaultPendingTimeout is how long a pending record may wait for its
	// create call before the sweep moves it to error.
	DefaultPendingTimeout = 30 * time.Minute

	failureDwell = 8 * time.Second
	noticeDwell  = 5 * time.Second
)

// DefaultAllowedTLDs are the TLDs accepted when none are configured.
var DefaultAllowedTLDs = []string{".shop", ".click"}

// Notice is the user-facing summary of an outcome with how long a client
// should keep it on screen.
type Notice struct {
	Message      string `json:"message"`
	DwellSeconds int    `json:"dwell_seconds"`
}

func newNotice(msg string, dwell time.Duration) *Notice {
	return &Notice{Message: msg, DwellSeconds: int(dwell / time.Second)}
}

type Service struct {
	store          Store
	registrar      Registrar
	marketplace    Marketplace
	cache          ListingCache
	auditor        Auditor
	logger         *slog.Logger
	metrics        *metrics.Metrics
	priceCeiling   float64
	pendingTimeout time.Duration
	allowedTLDs    []string
	now            func() time.Time
	locks          *domainLocks
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

// WithListingCache sets where successful listings are recorded for search.
func WithListingCache(cache ListingCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithPriceCeiling(ceiling float64) Option {
	return func(s *Service) {
		if ceiling > 0 {
			s.priceCeiling = ceiling
		}
	}
}

// WithPendingTimeout sets the age at which the sweep gives up on a pending
// record. Zero disables expiry.
func WithPendingTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.pendingTimeout = d
		}
	}
}

func WithAllowedTLDs(tlds ...string) Option {
	return func(s *Service) {
		if len(tlds) > 0 {
			s.allowedTLDs = tlds
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, registrar Registrar, marketplace Marketplace, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("domain store is required")
	}
	if registrar == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if marketplace == nil {
		return nil, fmt.Errorf("marketplace is required")
	}

	svc := &Service{
		store:          store,
		registrar:      registrar,
		marketplace:    marketplace,
		logger:         slog.Default(),
		priceCeiling:   DefaultPriceCeiling,
		pendingTimeout: DefaultPendingTimeout,
		allowedTLDs:    DefaultAllowedTLDs,
		locks:          &domainLocks{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// timeNow prefers an injected clock, then the request-scoped time.
func (s *Service) timeNow(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

// PriceCeiling is the exclusive upper bound for registrations.
func (s *Service) PriceCeiling() float64 {
	return s.priceCeiling
}

func (s *Service) normalize(raw string) (string, error) {
	name, err := id.ParseDomainName(raw, s.allowedTLDs)
	if err != nil {
		return "", err
	}
	return name.String(), nil
}

// ListDomains returns the caller's records, newest first.
func (s *Service) ListDomains(ctx context.Context, userID id.UserID) ([]models.RecordView, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user_id is required")
	}
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return views(records), nil
}

// NeedsAction returns the caller's registered domains that are neither listed
// nor delegated to parking. Duplicate domains collapse to the newest record.
func (s *Service) NeedsAction(ctx context.Context, userID id.UserID) ([]models.RecordView, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user_id is required")
	}
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]*models.DomainRecord, 0)
	for _, r := range records {
		if !r.NeedsAction() {
			continue
		}
		if _, dup := seen[r.Domain]; dup {
			continue
		}
		seen[r.Domain] = struct{}{}
		out = append(out, r)
	}
	return views(out), nil
}

// Delete removes a record by id. Used by operators.
func (s *Service) Delete(ctx context.Context, domainID id.DomainID) error {
	record, err := s.store.FindByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "domain record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain record")
	}

	unlock := s.locks.lock(record.Domain)
	defer unlock()

	if err := s.store.Delete(ctx, domainID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "domain record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete domain record")
	}
	if s.cache != nil && record.SedoListed {
		if err := s.cache.Remove(ctx, record.Domain); err != nil {
			s.logger.WarnContext(ctx, "failed to remove deleted domain from listing cache",
				"domain", record.Domain,
				"error", err,
			)
		}
	}
	event := lifecycleEvent(audit.EventRecordDeleted, record)
	event.ActorID = audit.ActorOperator
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "domain record deleted",
		"domain_id", domainID,
		"domain", record.Domain,
	)
	return nil
}

func views(records []*models.DomainRecord) []models.RecordView {
	out := make([]models.RecordView, 0, len(records))
	for _, r := range records {
		out = append(out, r.View())
	}
	return out
}

// translateGatewayError maps a gateway failure onto a coded error. Rejections
// keep the remote message since users act on it.
func translateGatewayError(err error, action string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if !gateway.Is(err, gateway.CategoryNetwork) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, action+" aborted: context cancelled")
		}
	}

	ge, ok := gateway.As(err)
	if !ok {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
	switch ge.Category {
	case gateway.CategoryCredentialsMissing:
		return dErrors.Wrap(err, dErrors.CodeCredentialsMissing, ge.Message)
	case gateway.CategoryNetwork:
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, ge.Gateway+" did not respond in time, please try again")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, ge.Gateway+" is unreachable, please try again")
	case gateway.CategoryRejected:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, ge.Message)
	case gateway.CategoryAuthentication, gateway.CategoryAmbiguous:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, ge.Gateway+" could not process the request")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}

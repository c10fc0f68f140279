package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainpark/internal/domains/models"
	"domainpark/internal/domains/service"
	"domainpark/internal/gateway/marketplace"
	"domainpark/internal/gateway/registrar"
	ratelimit "domainpark/internal/ratelimit/models"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
	"domainpark/pkg/platform/httputil"
	"domainpark/pkg/requestcontext"
)

// Service defines the lifecycle operations exposed over HTTP.
type Service interface {
	Quote(ctx context.Context, userID id.UserID, domain string) (*service.QuoteResult, error)
	Register(ctx context.Context, userID id.UserID, domain string) (*service.RegistrationResult, error)
	List(ctx context.Context, userID id.UserID, domainID id.DomainID) (*service.ListingResult, error)
	ListDomains(ctx context.Context, userID id.UserID) ([]models.RecordView, error)
	NeedsAction(ctx context.Context, userID id.UserID) ([]models.RecordView, error)
	Verify(ctx context.Context, domain string) (*registrar.Verification, error)
	Search(ctx context.Context, keyword string) (*marketplace.SearchResult, error)
	Reconcile(ctx context.Context) (*service.ReconcileReport, error)
	Delete(ctx context.Context, domainID id.DomainID) error
	Activity(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

// RouteLimiter limits an authenticated route by endpoint class.
type RouteLimiter interface {
	RateLimitAuthenticated(class ratelimit.EndpointClass) func(http.Handler) http.Handler
}

// Handler wires domain endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
	limiter RouteLimiter
}

type Option func(*Handler)

func WithRateLimiter(limiter RouteLimiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated domain endpoints. The caller applies
// bearer authentication to r.
func (h *Handler) Register(r chi.Router) {
	registrarRoutes := r.With(h.limit(ratelimit.ClassRegistrar))
	registrarRoutes.Post("/domains/quote", h.HandleQuote)
	registrarRoutes.Post("/domains/register", h.HandleRegister)
	registrarRoutes.Post("/domains/verify", h.HandleVerify)

	marketplaceRoutes := r.With(h.limit(ratelimit.ClassMarketplace))
	marketplaceRoutes.Get("/domains/search", h.HandleSearch)
	marketplaceRoutes.Post("/domains/{id}/list", h.HandleList)

	readRoutes := r.With(h.limit(ratelimit.ClassRead))
	readRoutes.Get("/domains/needs-action", h.HandleNeedsAction)
	readRoutes.Get("/domains/activity", h.HandleActivity)
	readRoutes.Get("/domains", h.HandleListDomains)
}

func (h *Handler) limit(class ratelimit.EndpointClass) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.RateLimitAuthenticated(class)
}

// RegisterAdmin mounts operator endpoints. The caller applies the admin
// token check to r.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/domains/reconcile", h.HandleReconcile)
	r.Delete("/admin/domains/{id}", h.HandleDelete)
}

// HandleQuote handles POST /domains/quote.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DomainRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Quote(ctx, userID, req.Domain)
	if err != nil {
		h.logFailure(ctx, "quote failed", err, "user_id", userID, "domain", req.Domain)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain quoted",
		"request_id", requestID,
		"user_id", userID,
		"domain", result.Domain,
		"available", result.Available,
		"registrable", result.Registrable,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRegister handles POST /domains/register. A stored record answers 201;
// outcomes that leave nothing stored answer 200 with a notice.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DomainRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Register(ctx, userID, req.Domain)
	if err != nil {
		h.logFailure(ctx, "registration failed", err, "user_id", userID, "domain", req.Domain)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration handled",
		"request_id", requestID,
		"user_id", userID,
		"domain", result.Domain,
		"state", result.State,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	status := http.StatusOK
	if result.Record != nil {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, result)
}

// HandleList handles POST /domains/{id}/list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	domainID, ok := h.domainID(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(ctx, userID, domainID)
	if err != nil {
		h.logFailure(ctx, "listing failed", err, "user_id", userID, "domain_id", domainID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "listing handled",
		"request_id", requestID,
		"user_id", userID,
		"domain", result.Domain,
		"success", result.Success,
		"unchanged", result.Unchanged,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleListDomains handles GET /domains.
func (h *Handler) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	records, err := h.service.ListDomains(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "list domains failed", err, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DomainsResponse{Domains: records})
}

// HandleNeedsAction handles GET /domains/needs-action.
func (h *Handler) HandleNeedsAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	records, err := h.service.NeedsAction(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "needs-action lookup failed", err, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DomainsResponse{Domains: records})
}

// HandleActivity handles GET /domains/activity.
func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	events, err := h.service.Activity(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "activity lookup failed", err, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ActivityResponse{Events: events})
}

// HandleVerify handles POST /domains/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.requireUser(w, ctx); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DomainRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.Domain)
	if err != nil {
		h.logFailure(ctx, "verification failed", err, "domain", req.Domain)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSearch handles GET /domains/search?q=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, ctx); !ok {
		return
	}

	keyword := r.URL.Query().Get("q")
	result, err := h.service.Search(ctx, keyword)
	if err != nil {
		h.logFailure(ctx, "search failed", err, "keyword", keyword)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleReconcile handles POST /admin/domains/reconcile.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.Reconcile(ctx)
	if err != nil {
		h.logFailure(ctx, "reconcile failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reconcile triggered by operator",
		"request_id", requestcontext.RequestID(ctx),
		"scanned", report.Scanned,
		"updated", report.Updated,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleDelete handles DELETE /admin/domains/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domainID, ok := h.domainID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, domainID); err != nil {
		h.logFailure(ctx, "delete failed", err, "domain_id", domainID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain record deleted by operator",
		"request_id", requestcontext.RequestID(ctx),
		"domain_id", domainID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) domainID(w http.ResponseWriter, r *http.Request) (id.DomainID, bool) {
	domainID, err := id.ParseDomainID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DomainID{}, false
	}
	return domainID, true
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout, dErrors.CodeCredentialsMissing:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}

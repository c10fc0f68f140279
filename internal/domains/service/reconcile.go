package service

import (
	"context"
	"time"

	"domainpark/internal/domains/models"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
)

// ReconcileReport summarizes one sweep.
type ReconcileReport struct {
	Scanned int      `json:"scanned"`
	Updated int      `json:"updated"`
	Domains []string `json:"domains"`
	Expired []string `json:"expired"`
}

// Reconcile flags registered, unlisted records whose nameservers already
// point at parking as listed, and moves pending records older than the
// pending timeout to error so their owner can retry. Running it again changes
// nothing. Audit events are written in the same transaction as the record
// updates.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Domains: []string{}, Expired: []string{}}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.expirePending(ctx, report); err != nil {
			return err
		}

		registered, err := s.store.ListByStatus(ctx, models.StatusRegistered)
		if err != nil {
			return err
		}
		report.Scanned = len(registered)
		for _, r := range registered {
			if !r.NeedsReconcile() {
				continue
			}
			r.MarkListed("")
			if err := s.store.Update(ctx, r); err != nil {
				return err
			}
			if err := s.sweeperEvent(ctx, audit.EventDomainReconciled, r); err != nil {
				return err
			}
			report.Updated++
			report.Domains = append(report.Domains, r.Domain)
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reconcile listings")
	}

	for _, domain := range report.Domains {
		s.recordListing(ctx, domain)
	}
	s.metrics.ObserveSweep(report.Updated)
	for range report.Expired {
		s.metrics.IncTransition(string(models.StateError))
	}
	if len(report.Expired) > 0 {
		s.logger.WarnContext(ctx, "reconciliation sweep expired stale pending registrations",
			"domains", report.Expired,
			"pending_timeout", s.pendingTimeout,
		)
	}
	if report.Updated > 0 {
		s.logger.InfoContext(ctx, "reconciliation sweep marked domains listed",
			"scanned", report.Scanned,
			"updated", report.Updated,
			"domains", report.Domains,
		)
	}
	return report, nil
}

// expirePending marks pending records whose create call can no longer be in
// flight as error. The registrar may still have registered the domain, so the
// record is kept for the owner to retry.
func (s *Service) expirePending(ctx context.Context, report *ReconcileReport) error {
	if s.pendingTimeout <= 0 {
		return nil
	}
	pending, err := s.store.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return err
	}
	now := s.timeNow(ctx)
	for _, r := range pending {
		if !r.StalePending(now, s.pendingTimeout) {
			continue
		}
		r.MarkError()
		if err := s.store.Update(ctx, r); err != nil {
			return err
		}
		if err := s.sweeperEvent(ctx, audit.EventPendingExpired, r); err != nil {
			return err
		}
		report.Expired = append(report.Expired, r.Domain)
	}
	return nil
}

func (s *Service) sweeperEvent(ctx context.Context, action audit.AuditEvent, r *models.DomainRecord) error {
	if s.auditor == nil {
		return nil
	}
	event := lifecycleEvent(action, r)
	event.ActorID = audit.ActorSweeper
	return s.auditor.Emit(ctx, event)
}

// RunSweeper reconciles once immediately and then every interval until ctx
// is done. Sweep failures are logged and the loop continues.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reconciliation sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	if _, err := s.Reconcile(ctx); err != nil {
		s.logger.ErrorContext(ctx, "reconciliation sweep failed", "error", err)
	}
}

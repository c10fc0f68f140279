package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.uber.org/mock/gomock"

	"domainpark/internal/domains/models"
	"domainpark/internal/domains/service/mocks"
	"domainpark/internal/gateway/marketplace"
	"domainpark/internal/listingcache"
	id "domainpark/pkg/domain"
	dErrors "domainpark/pkg/domain-errors"
	audit "domainpark/pkg/platform/audit"
	"domainpark/pkg/platform/audit/publisher"
	auditmemory "domainpark/pkg/platform/audit/store/memory"
)

// =============================================================================
// Activity trail
// =============================================================================

func (s *LifecycleSuite) withAuditor(auditor Auditor) {
	var err error
	s.service, err = New(s.store, s.registrar, s.marketplace,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithListingCache(s.cache),
		WithClock(func() time.Time { return s.now }),
		WithAuditor(auditor),
	)
	s.Require().NoError(err)
}

func actions(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *LifecycleSuite) TestActivityRecordsRegisterAndList() {
	s.withAuditor(publisher.NewPublisher(auditmemory.NewInMemoryStore()))

	s.registrar.EXPECT().CheckAvailabilityAndPrice(gomock.Any(), "test.shop").Return(availableQuote("test.shop", 1.50), nil)
	s.registrar.EXPECT().Register(gomock.Any(), "test.shop").Return(registeredOutcome("test.shop"), nil)
	s.marketplace.EXPECT().List(gomock.Any(), "test.shop").Return(&marketplace.ListingOutcome{
		Domain:      "test.shop",
		Success:     true,
		Nameservers: parkingNS,
	}, nil)
	s.cache.EXPECT().Add(gomock.Any(), listingcache.Parked("test.shop")).Return(nil)

	reg, err := s.service.Register(s.ctx, s.user, "test.shop")
	s.Require().NoError(err)
	s.Require().NotNil(reg.Record)
	_, err = s.service.List(s.ctx, s.user, reg.Record.ID)
	s.Require().NoError(err)

	events, err := s.service.Activity(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal([]string{
		string(audit.EventRegistrationSubmitted),
		string(audit.EventDomainRegistered),
		string(audit.EventDomainListed),
	}, actions(events))
	s.Equal(audit.CategoryCompliance, events[1].Category)
	s.Equal(string(models.StateListed), events[2].Decision)
	for _, e := range events {
		s.Equal(reg.Record.ID, e.DomainID)
		s.Equal("test.shop", e.Domain)
	}

	other, err := s.service.Activity(s.ctx, id.NewUserID())
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *LifecycleSuite) TestActivityWithoutAuditorIsEmpty() {
	events, err := s.service.Activity(s.ctx, s.user)
	s.Require().NoError(err)
	s.NotNil(events)
	s.Empty(events)

	_, err = s.service.Activity(s.ctx, id.UserID{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *LifecycleSuite) TestAuditFailureDoesNotFailRegistration() {
	auditor := mocks.NewMockAuditor(s.ctrl)
	s.withAuditor(auditor)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(2)

	s.registrar.EXPECT().CheckAvailabilityAndPrice(gomock.Any(), "test.shop").Return(availableQuote("test.shop", 1.50), nil)
	s.registrar.EXPECT().Register(gomock.Any(), "test.shop").Return(registeredOutcome("test.shop"), nil)

	got, err := s.service.Register(s.ctx, s.user, "test.shop")
	s.Require().NoError(err)
	s.Equal(models.StateRegistered, got.State)
}

func (s *LifecycleSuite) TestReconcileAuditFailureIsInternal() {
	auditor := mocks.NewMockAuditor(s.ctrl)
	s.withAuditor(auditor)
	s.seed(s.user, "parked.shop", models.StatusRegistered, parkingNS)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := s.service.Reconcile(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *LifecycleSuite) TestReconcileAuditsSweeperActor() {
	auditor := mocks.NewMockAuditor(s.ctrl)
	s.withAuditor(auditor)
	s.seed(s.user, "parked.shop", models.StatusRegistered, parkingNS)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Equal(string(audit.EventDomainReconciled), event.Action)
			s.Equal(audit.ActorSweeper, event.ActorID)
			return nil
		})
	s.cache.EXPECT().Add(gomock.Any(), listingcache.Parked("parked.shop")).Return(nil)

	report, err := s.service.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Updated)
}

// Package ports defines the interfaces the lifecycle controller consumes.
// Gateways and stores satisfy them; tests replace them with mocks.
package ports

import (
	"context"

	"domainpark/internal/domains/models"
	"domainpark/internal/gateway/marketplace"
	"domainpark/internal/gateway/registrar"
	"domainpark/internal/listingcache"
	id "domainpark/pkg/domain"
	audit "domainpark/pkg/platform/audit"
)

// Store persists domain records.
type Store interface {
	Create(ctx context.Context, record *models.DomainRecord) error
	Update(ctx context.Context, record *models.DomainRecord) error
	FindByID(ctx context.Context, domainID id.DomainID) (*models.DomainRecord, error)

	// ListByDomain returns every record for a normalized domain, newest first.
	ListByDomain(ctx context.Context, domain string) ([]*models.DomainRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.DomainRecord, error)
	Delete(ctx context.Context, domainID id.DomainID) error

	// RunInTx runs fn so that store calls made with its ctx commit together.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Registrar checks, prices and registers domains.
type Registrar interface {
	CheckAvailabilityAndPrice(ctx context.Context, domain string) (*registrar.Quote, error)
	Register(ctx context.Context, domain string) (*registrar.RegistrationOutcome, error)
	VerifyAvailability(ctx context.Context, domain string) (*registrar.Verification, error)
}

// RegistrationReadiness is optionally implemented by a Registrar that can
// tell before any write whether a create call could be sent.
type RegistrationReadiness interface {
	ReadyToRegister() error
}

// Marketplace parks domains and searches listings.
type Marketplace interface {
	List(ctx context.Context, domain string) (*marketplace.ListingOutcome, error)
	Search(ctx context.Context, keyword string) (*marketplace.SearchResult, error)
}

// ListingCache holds simulated listings added after a successful List.
type ListingCache interface {
	All(ctx context.Context) ([]listingcache.Listing, error)
	Add(ctx context.Context, listing listingcache.Listing) error
	Remove(ctx context.Context, domain string) error
}

// Auditor records lifecycle events. Emit joins a transaction carried on ctx
// when the backing store supports it.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

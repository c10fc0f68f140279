// Package domain holds validated primitives shared across modules.
//
// Typed IDs keep a user ID from being passed where a record ID is expected;
// parsing happens once at the trust boundary.
package domain

import (
	"github.com/google/uuid"

	dErrors "domainpark/pkg/domain-errors"
)

type (
	UserID   uuid.UUID
	DomainID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user_id", s)
	return UserID(u), err
}

func ParseDomainID(s string) (DomainID, error) {
	u, err := parseUUID("domain_id", s)
	return DomainID(u), err
}

// NewUserID returns a fresh random user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// NewDomainID returns a fresh random record ID.
func NewDomainID() DomainID {
	return DomainID(uuid.New())
}

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DomainID) String() string { return uuid.UUID(id).String() }
func (id DomainID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id DomainID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// Package gateway holds what the registrar and marketplace clients share: the
// typed failure taxonomy and the HTTP send path.
package gateway

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy the lifecycle controller branches on.
type Category string

const (
	// CategoryCredentialsMissing means the gateway was never configured.
	CategoryCredentialsMissing Category = "credentials_missing"

	// CategoryNetwork covers timeouts, resets, refused connections and 5xx/429
	// answers. The only retryable category.
	CategoryNetwork Category = "network"

	// CategoryRejected is a definite refusal reported by the remote API.
	CategoryRejected Category = "rejected"

	// CategoryAuthentication is an explicit auth fault from the remote API.
	CategoryAuthentication Category = "authentication"

	// CategoryAmbiguous is a response that could not be read either way.
	CategoryAmbiguous Category = "ambiguous_response"
)

// Reason refines CategoryRejected for user messaging.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonIPWhitelist Reason = "ip_whitelist"
	ReasonBalance     Reason = "balance"
	ReasonDomain      Reason = "domain"
	ReasonGeneric     Reason = "generic"
)

// Error is a classified gateway failure.
type Error struct {
	Category   Category
	Reason     Reason
	Gateway    string
	Op         string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	kind := string(e.Category)
	if e.Reason != ReasonNone {
		kind += "/" + string(e.Reason)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s %s [%s]: %s: %v", e.Gateway, e.Op, kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s %s [%s]: %s", e.Gateway, e.Op, kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds a classified error. Only network failures are retryable.
func NewError(category Category, gateway, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Gateway:    gateway,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryNetwork,
	}
}

// Rejected builds a definite remote refusal with a messaging bucket.
func Rejected(gateway, op string, reason Reason, message string) *Error {
	e := NewError(CategoryRejected, gateway, op, message, nil)
	e.Reason = reason
	return e
}

// CredentialsMissing builds the unconfigured-gateway error.
func CredentialsMissing(gateway, op string) *Error {
	return NewError(CategoryCredentialsMissing, gateway, op, gateway+" API credentials missing", nil)
}

func IsRetryable(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// CategoryOf returns the category of a gateway error, or "" for anything else.
func CategoryOf(err error) Category {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

func ReasonOf(err error) Reason {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return ReasonNone
}

// Is reports whether err is a gateway error of the given category.
func Is(err error, category Category) bool {
	return CategoryOf(err) == category
}

// As unwraps err into a gateway error.
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

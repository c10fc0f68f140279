package models

import (
	"fmt"
	"strings"
	"time"
)

// EndpointClass groups endpoints that share a limit. Classes follow the
// upstream API each endpoint spends quota on.
type EndpointClass string

const (
	// ClassRegistrar covers quote, register and verify, which call the registrar.
	ClassRegistrar EndpointClass = "registrar"
	// ClassMarketplace covers listing and search, which call the marketplace.
	ClassMarketplace EndpointClass = "marketplace"
	// ClassRead covers local reads of the caller's records.
	ClassRead EndpointClass = "read"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassRegistrar, ClassMarketplace, ClassRead:
		return true
	}
	return false
}

// KeyPrefix scopes a bucket to the kind of identifier it counts.
type KeyPrefix string

const (
	KeyPrefixIP   KeyPrefix = "ip"
	KeyPrefixUser KeyPrefix = "user"
)

// RateLimitKey identifies one sliding window bucket.
type RateLimitKey struct {
	prefix     KeyPrefix
	identifier string
	class      EndpointClass
}

func NewRateLimitKey(prefix KeyPrefix, identifier string, class EndpointClass) RateLimitKey {
	return RateLimitKey{prefix: prefix, identifier: identifier, class: class}
}

func (k RateLimitKey) String() string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", k.prefix, SanitizeKeySegment(k.identifier), k.class)
}

// SanitizeKeySegment escapes the key delimiter so an identifier containing
// ':' cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Limit is the number of requests allowed per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the API response when a limit is exceeded.
type RateLimitExceededResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Limit      int       `json:"limit"`
	RetryAfter int       `json:"retry_after"`
	ResetAt    time.Time `json:"reset_at"`
}

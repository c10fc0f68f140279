package domain

import (
	"regexp"
	"strings"

	dErrors "domainpark/pkg/domain-errors"
)

// DomainName is a lowercase, syntactically valid domain that ends in an
// allowed top-level label.
type DomainName string

const maxDomainLength = 253

var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z]{2,})+$`)

// ParseDomainName normalizes user input (scheme, www., path, case, whitespace)
// and validates it. An empty allowedTLDs accepts any TLD.
func ParseDomainName(raw string, allowedTLDs []string) (DomainName, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	for strings.HasPrefix(s, "www.") {
		s = strings.TrimPrefix(s, "www.")
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".")

	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if len(s) > maxDomainLength || !domainPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "please enter a valid domain name (e.g., example.shop)")
	}

	name := DomainName(s)
	if len(allowedTLDs) == 0 {
		return name, nil
	}
	for _, tld := range allowedTLDs {
		if name.HasTLD(tld) {
			return name, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "only "+strings.Join(allowedTLDs, " and ")+" domains are supported")
}

func (d DomainName) String() string { return string(d) }

// TLD returns the last label without the dot.
func (d DomainName) TLD() string {
	s := string(d)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Base returns the first label ("test" for "test.shop").
func (d DomainName) Base() string {
	s := string(d)
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}

// HasTLD accepts "shop" or ".shop".
func (d DomainName) HasTLD(tld string) bool {
	tld = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
	return tld != "" && strings.HasSuffix(string(d), "."+tld)
}

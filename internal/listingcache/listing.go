// Package listingcache keeps the marketplace listings this service created
// itself. The marketplace does not show new parking entries in the owned
// list right away, so owned reads merge the cache in behind the live entries
// and the static seed. It is never authoritative.
package listingcache

import (
	"context"
	"strings"
)

// DefaultKey is the storage key shared by every cache backend.
const DefaultKey = "listed_domains"

// CurrencyUSD is the marketplace currency code for US dollars.
const CurrencyUSD = 1

// Listing mirrors the marketplace's listing shape.
type Listing struct {
	Domain     string  `json:"domain"`
	Price      float64 `json:"price"`
	Currency   int     `json:"currency"`
	ForSale    int     `json:"forsale"`
	FixedPrice int     `json:"fixedprice"`
	SedoListed bool    `json:"sedo_listed"`
}

// Key is the de-duplication key: the lowercased domain.
func (l Listing) Key() string {
	return strings.ToLower(strings.TrimSpace(l.Domain))
}

// Parked is the entry recorded after a parking-only listing: not for sale,
// no price.
func Parked(domain string) Listing {
	return Listing{
		Domain:     strings.ToLower(strings.TrimSpace(domain)),
		Currency:   CurrencyUSD,
		SedoListed: true,
	}
}

// Cache is the read/merge/write contract. Add and Remove are idempotent.
type Cache interface {
	All(ctx context.Context) ([]Listing, error)
	Add(ctx context.Context, listing Listing) error
	Remove(ctx context.Context, domain string) error
}

// Merge appends extra to base, skipping entries whose lowercased domain is
// already present. Entries from base win; appended domains are lowercased.
func Merge(base []Listing, extra ...Listing) []Listing {
	out := make([]Listing, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, l := range base {
		if _, ok := seen[l.Key()]; ok {
			continue
		}
		seen[l.Key()] = struct{}{}
		out = append(out, l)
	}
	for _, l := range extra {
		key := l.Key()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		l.Domain = key
		out = append(out, l)
	}
	return out
}

func without(listings []Listing, domain string) ([]Listing, bool) {
	key := strings.ToLower(strings.TrimSpace(domain))
	out := listings[:0:0]
	removed := false
	for _, l := range listings {
		if l.Key() == key {
			removed = true
			continue
		}
		out = append(out, l)
	}
	return out, removed
}

// Package store persists domain records. Lookups that find nothing return
// sentinel.ErrNotFound; list queries return an empty slice.
package store

import (
	"sort"

	"domainpark/internal/domains/models"
)

func newestFirst(records []*models.DomainRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func clone(r *models.DomainRecord) *models.DomainRecord {
	c := *r
	if r.RegisteredAt != nil {
		t := *r.RegisteredAt
		c.RegisteredAt = &t
	}
	return &c
}

// Package sentinel holds the storage facts that stores return, optionally
// wrapped, and services translate into domain errors.
//
//   - ErrNotFound: no record with that id
//   - ErrConflict: a record with that id already exists
//   - ErrInvalidState: the record cannot take the requested write
//
// Input validation failures use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)

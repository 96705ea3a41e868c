package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the queue and the
// ledger client return these (optionally wrapped) so services can
// translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique constraint hit (duplicate identity or duplicate row)
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: broker, store or ledger temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

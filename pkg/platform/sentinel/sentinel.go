package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: unique constraint or concurrent update collision
//   - ErrAlreadyUsed: identifier (tenant slug, certificate number) taken
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrTenantMismatch: row exists but belongs to a different tenant than
//     the requesting scope; services must surface this as unauthorized,
//     never as not-found, so audit logs stay distinguishable
//   - ErrUnavailable: backing store temporarily unreachable (retryable)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyUsed    = errors.New("already used")
	ErrInvalidState   = errors.New("invalid state")
	ErrTenantMismatch = errors.New("tenant mismatch")
	ErrUnavailable    = errors.New("unavailable")
)

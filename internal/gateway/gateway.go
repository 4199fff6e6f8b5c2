// Package gateway defines the tenant-isolation contract every store and
// service in this codebase follows.
//
// A Scope is an explicit (tenant, role) pair built from the authenticated
// request context. It is passed as a value into every data-access call, so
// the isolation property is checkable in unit tests without a web framework
// and no layer ever reads ambient session globals.
//
// # Isolation contract
//
// Invariants:
//   - Every read issued with a Scope returns only rows whose tenant matches
//     Scope.TenantID. Entities without their own tenant column (certificate
//     surrenders, adjustments) are scoped via their parent declaration.
//   - Every write targeting a row of a different tenant is rejected with
//     sentinel.ErrTenantMismatch, never silently re-scoped and never
//     reported as not-found. Services translate the sentinel into an
//     unauthorized domain error and emit a security audit event, keeping
//     audit logs distinguishable while the HTTP response stays generic.
//   - A nil tenant is fatal for the request. There is no default tenant.
//
// Scopes are plain values with no shared mutable state, so concurrent
// sessions cannot interfere with each other's scoping.
package gateway

import (
	"context"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/requestcontext"
)

// Scope carries the tenant boundary and role of one authenticated session.
type Scope struct {
	TenantID id.TenantID
	Role     id.Role
}

// FromContext builds a Scope from values the auth middleware injected.
// Returns an unauthorized error when the context carries no tenant — a
// request without a tenant has no data scope at all.
func FromContext(ctx context.Context) (Scope, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return Scope{}, dErrors.New(dErrors.CodeUnauthorized, "no tenant scope on request")
	}
	role := requestcontext.Role(ctx)
	if !role.IsValid() {
		return Scope{}, dErrors.New(dErrors.CodeUnauthorized, "no role on request")
	}
	return Scope{TenantID: tenantID, Role: role}, nil
}

// Validate rejects zero-valued scopes constructed outside FromContext.
func (s Scope) Validate() error {
	if s.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "scope has no tenant")
	}
	if !s.Role.IsValid() {
		return dErrors.New(dErrors.CodeUnauthorized, "scope has no role")
	}
	return nil
}

// RequireRole evaluates the scope's role against the hierarchy. The denial
// is computed from the scope alone — never from the targeted resource — so
// a caller below the minimum is blocked identically whether or not the
// resource exists.
func RequireRole(scope Scope, minimum id.Role) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.Role.AtLeast(minimum) {
		return dErrors.New(dErrors.CodeForbidden, "insufficient role")
	}
	return nil
}

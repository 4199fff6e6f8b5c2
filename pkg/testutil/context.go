package testutil

import (
	"net/http"

	id "skdm/pkg/domain"
	"skdm/pkg/requestcontext"
)

// WithScope adds a tenant ID and role to the request context, simulating
// what the auth middleware does for authenticated requests.
func WithScope(req *http.Request, tenantID id.TenantID, role id.Role) *http.Request {
	ctx := req.Context()
	ctx = requestcontext.WithTenantID(ctx, tenantID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// WithUser adds a user ID to the request context on top of WithScope.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "skdm/pkg/domain"
	"skdm/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the session claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims is the authenticated principal extracted from a token.
// TenantID is mandatory: a session without a tenant has no data scope and
// is rejected outright (no default-tenant fallback).
type SessionClaims struct {
	UserID   id.UserID
	TenantID id.TenantID
	Role     id.Role
}

// RequireAuth validates the bearer token and injects (user, tenant, role)
// into the request context. All tenant-scoped routes sit behind this.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if claims.TenantID.IsNil() || !claims.Role.IsValid() {
				logger.WarnContext(ctx, "unauthorized access - incomplete session scope",
					"request_id", requestID,
					"user_id", claims.UserID,
				)
				writeUnauthorized(w, "Session has no tenant scope")
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithTenantID(ctx, claims.TenantID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

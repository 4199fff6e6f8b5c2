// Package auth issues and validates session tokens. A token carries the
// full session scope (user, tenant, role) so every downstream layer can
// build its gateway.Scope without another store round trip.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"skdm/internal/platform/middleware"
	"skdm/internal/tenant/store"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/requestcontext"
)

// Service performs credential checks and token lifecycle.
type Service struct {
	users      store.UserStore
	tenants    store.TenantStore
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
	auditor    audit.Publisher
}

func New(users store.UserStore, tenants store.TenantStore, signingKey string, tokenTTL time.Duration, logger *slog.Logger, auditor audit.Publisher) *Service {
	return &Service{
		users:      users,
		tenants:    tenants,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		logger:     logger,
		auditor:    auditor,
	}
}

type sessionClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Login checks the password and returns a signed session token. Failures
// are uniform: a wrong password and an unknown e-mail produce the same
// error, and both emit a security audit event.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	fail := func(reason string) (string, error) {
		if s.auditor != nil {
			_ = s.auditor.Emit(ctx, audit.Event{
				Category:  audit.CategorySecurity,
				Action:    audit.ActionLoginFailed,
				Reason:    reason,
				RequestID: requestcontext.RequestID(ctx),
				ClientIP:  requestcontext.ClientIP(ctx),
			})
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn a comparison so unknown e-mails cost the same as wrong
			// passwords.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZwCb7rXqCFNuPzWJLPgiOW9yUGKW6"), []byte(password))
			return fail("unknown email")
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return fail("wrong password")
	}

	tenant, err := s.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fail("tenant missing")
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant lookup failed")
	}
	if !tenant.IsActive() {
		return fail("tenant inactive")
	}

	return s.issueToken(ctx, user.ID, user.TenantID, user.Role)
}

func (s *Service) issueToken(ctx context.Context, userID id.UserID, tenantID id.TenantID, role id.Role) (string, error) {
	now := requestcontext.Now(ctx)
	claims := sessionClaims{
		TenantID: tenantID.String(),
		Role:     role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "skdm",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "token signing failed")
	}
	return signed, nil
}

// ValidateToken implements middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.SessionClaims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no tenant")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no valid role")
	}

	return &middleware.SessionClaims{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
	}, nil
}

// HashPassword produces a bcrypt hash for user registration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "password hashing failed")
	}
	return string(hash), nil
}

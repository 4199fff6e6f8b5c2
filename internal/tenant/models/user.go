package models

import (
	"strings"
	"time"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
)

// User belongs to exactly one tenant and carries a role from the fixed
// hierarchy. The role gates routes and operations; it never widens the
// tenant boundary.
type User struct {
	ID           id.UserID   `json:"id"`
	TenantID     id.TenantID `json:"tenant_id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         id.Role     `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
}

func NewUser(userID id.UserID, tenantID id.TenantID, email, passwordHash string, role id.Role, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email is invalid")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user must belong to a tenant")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user role is invalid")
	}
	return &User{
		ID:           userID,
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
	}, nil
}

// EmailDomain returns the part after '@', lowercased.
func (u *User) EmailDomain() string {
	at := strings.LastIndex(u.Email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(u.Email[at+1:])
}

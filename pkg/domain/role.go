package domain

import (
	dErrors "skdm/pkg/domain-errors"
)

// Role is a user's position in the fixed access hierarchy. Roles gate which
// routes and operations are visible, never which tenant's data is visible —
// tenant scoping is a separate, orthogonal concern.
type Role string

const (
	RoleSupplier      Role = "SUPPLIER"
	RoleVerifier      Role = "VERIFIER"
	RoleCBAMDeclarant Role = "CBAM_DECLARANT"
	RoleOperator      Role = "OPERATOR"
	RoleCompanyAdmin  Role = "COMPANY_ADMIN"
	RoleSuperAdmin    Role = "SUPER_ADMIN"
)

// roleOrder defines the hierarchy. Higher values include the capabilities of
// lower ones: SUPPLIER < VERIFIER < CBAM_DECLARANT < OPERATOR < COMPANY_ADMIN < SUPER_ADMIN.
var roleOrder = map[Role]int{
	RoleSupplier:      1,
	RoleVerifier:      2,
	RoleCBAMDeclarant: 3,
	RoleOperator:      4,
	RoleCompanyAdmin:  5,
	RoleSuperAdmin:    6,
}

// ParseRole validates and returns a Role. Unknown values are rejected so a
// typo in a token claim can never grant an undefined privilege level.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleOrder[r]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// IsValid reports whether the role is one of the defined hierarchy members.
func (r Role) IsValid() bool {
	_, ok := roleOrder[r]
	return ok
}

// AtLeast reports whether r carries at least the privileges of minimum.
// An undefined role never satisfies any minimum.
func (r Role) AtLeast(minimum Role) bool {
	mine, ok := roleOrder[r]
	if !ok {
		return false
	}
	min, ok := roleOrder[minimum]
	if !ok {
		return false
	}
	return mine >= min
}

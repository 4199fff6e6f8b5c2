package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "skdm/pkg/domain"
)

func TestRoleHierarchy(t *testing.T) {
	ordered := []id.Role{
		id.RoleSupplier,
		id.RoleVerifier,
		id.RoleCBAMDeclarant,
		id.RoleOperator,
		id.RoleCompanyAdmin,
		id.RoleSuperAdmin,
	}

	for i, lower := range ordered {
		for j, higher := range ordered {
			if j >= i {
				assert.True(t, higher.AtLeast(lower), "%s should satisfy %s", higher, lower)
			} else {
				assert.False(t, higher.AtLeast(lower), "%s should not satisfy %s", higher, lower)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	role, err := id.ParseRole("CBAM_DECLARANT")
	require.NoError(t, err)
	assert.Equal(t, id.RoleCBAMDeclarant, role)

	// Case matters: token claims carry the canonical upper-case form only.
	_, err = id.ParseRole("cbam_declarant")
	assert.Error(t, err)

	_, err = id.ParseRole("GOD_MODE")
	assert.Error(t, err)
}

func TestUndefinedRoleNeverSatisfiesAnyMinimum(t *testing.T) {
	assert.False(t, id.Role("").AtLeast(id.RoleSupplier))
	assert.False(t, id.RoleSupplier.AtLeast(id.Role("")))
	assert.False(t, id.Role("").IsValid())
}

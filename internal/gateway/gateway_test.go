package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/requestcontext"
)

func TestFromContext(t *testing.T) {
	t.Run("builds scope from authenticated context", func(t *testing.T) {
		tenantID := id.NewTenantID()
		ctx := requestcontext.WithTenantID(context.Background(), tenantID)
		ctx = requestcontext.WithRole(ctx, id.RoleOperator)

		scope, err := FromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, tenantID, scope.TenantID)
		assert.Equal(t, id.RoleOperator, scope.Role)
	})

	t.Run("rejects context without tenant", func(t *testing.T) {
		ctx := requestcontext.WithRole(context.Background(), id.RoleOperator)
		_, err := FromContext(ctx)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects context without role", func(t *testing.T) {
		ctx := requestcontext.WithTenantID(context.Background(), id.NewTenantID())
		_, err := FromContext(ctx)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestRequireRole(t *testing.T) {
	scopeWith := func(role id.Role) Scope {
		return Scope{TenantID: id.NewTenantID(), Role: role}
	}

	t.Run("allows equal role", func(t *testing.T) {
		require.NoError(t, RequireRole(scopeWith(id.RoleOperator), id.RoleOperator))
	})

	t.Run("allows higher role", func(t *testing.T) {
		require.NoError(t, RequireRole(scopeWith(id.RoleSuperAdmin), id.RoleSupplier))
	})

	t.Run("denies lower role", func(t *testing.T) {
		err := RequireRole(scopeWith(id.RoleSupplier), id.RoleCompanyAdmin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("denial does not depend on any resource", func(t *testing.T) {
		// RequireRole takes only the scope and the minimum, so there is no
		// way for the denial to leak resource existence. Both calls produce
		// identical errors.
		err1 := RequireRole(scopeWith(id.RoleVerifier), id.RoleOperator)
		err2 := RequireRole(scopeWith(id.RoleVerifier), id.RoleOperator)
		require.Error(t, err1)
		assert.Equal(t, err1.Error(), err2.Error())
	})

	t.Run("rejects zero scope", func(t *testing.T) {
		err := RequireRole(Scope{}, id.RoleSupplier)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

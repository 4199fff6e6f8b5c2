package store

import (
	"context"

	"skdm/internal/tenant/models"
	id "skdm/pkg/domain"
)

// TenantStore persists tenants. Tenants are the one entity type that is not
// tenant-scoped — they ARE the scope.
type TenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	// FindByDomain matches tenants whose domain equals one of the candidates.
	// More than one match is an ambiguity the caller must reject.
	FindByDomain(ctx context.Context, candidates []string) ([]*models.Tenant, error)
	ListActive(ctx context.Context) ([]*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
}

// UserStore persists users. Lookup by e-mail is unscoped because it runs
// before a session exists; everything downstream is tenant-scoped.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

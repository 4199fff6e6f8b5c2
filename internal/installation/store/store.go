// Package store persists the company/installation/period chain. Every
// method takes the caller's scope and never returns or touches rows outside
// the scope's tenant.
package store

import (
	"context"

	"skdm/internal/gateway"
	"skdm/internal/installation/models"
	id "skdm/pkg/domain"
)

type Store interface {
	CreateCompany(ctx context.Context, scope gateway.Scope, company *models.Company) error
	ListCompanies(ctx context.Context, scope gateway.Scope) ([]*models.Company, error)
	// FirstCompany returns the tenant's declarant profile, or
	// sentinel.ErrNotFound when the tenant has no company yet.
	FirstCompany(ctx context.Context, scope gateway.Scope) (*models.Company, error)

	CreateInstallation(ctx context.Context, scope gateway.Scope, installation *models.Installation) error
	ListInstallations(ctx context.Context, scope gateway.Scope) ([]*models.Installation, error)
	GetInstallation(ctx context.Context, scope gateway.Scope, installationID id.InstallationID) (*models.Installation, error)

	CreateInstallationData(ctx context.Context, scope gateway.Scope, data *models.InstallationData) error
	// GetInstallationData loads the period with its goods and process
	// children attached.
	GetInstallationData(ctx context.Context, scope gateway.Scope, dataID id.InstallationDataID) (*models.InstallationData, error)
	ListInstallationData(ctx context.Context, scope gateway.Scope) ([]*models.InstallationData, error)

	AddGoods(ctx context.Context, scope gateway.Scope, goods *models.GoodsCategoryAndRoute) error
	AddProcess(ctx context.Context, scope gateway.Scope, process *models.ProductionProcess) error
}

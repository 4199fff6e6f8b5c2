// Package store persists declarations, certificates, surrenders,
// adjustments, and verifications. All methods are tenant-scoped; lookups
// that hit another tenant's row return sentinel.ErrTenantMismatch, never
// the row.
package store

import (
	"context"

	"skdm/internal/declaration/models"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
)

type Store interface {
	CreateDeclaration(ctx context.Context, scope gateway.Scope, declaration *models.Declaration) error
	GetDeclaration(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Declaration, error)
	ListDeclarations(ctx context.Context, scope gateway.Scope) ([]*models.Declaration, error)
	// UpdateDeclaration writes with `WHERE id AND tenant_id`; zero affected
	// rows triggers the tenant probe.
	UpdateDeclaration(ctx context.Context, scope gateway.Scope, declaration *models.Declaration) error

	CreateCertificate(ctx context.Context, scope gateway.Scope, certificate *models.Certificate) error
	GetCertificate(ctx context.Context, scope gateway.Scope, certificateID id.CertificateID) (*models.Certificate, error)
	ListCertificates(ctx context.Context, scope gateway.Scope) ([]*models.Certificate, error)
	UpdateCertificateStatus(ctx context.Context, scope gateway.Scope, certificateID id.CertificateID, status models.CertificateStatus) error
	// SurrenderedQuantity sums surrenders recorded against the certificate.
	SurrenderedQuantity(ctx context.Context, scope gateway.Scope, certificateID id.CertificateID) (int, error)

	AddSurrender(ctx context.Context, scope gateway.Scope, surrender *models.CertificateSurrender) error
	ListSurrenders(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]*models.CertificateSurrender, error)

	AddAdjustment(ctx context.Context, scope gateway.Scope, adjustment *models.FreeAllocationAdjustment) error
	ListAdjustments(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]*models.FreeAllocationAdjustment, error)

	UpsertVerification(ctx context.Context, scope gateway.Scope, verification *models.Verification) error
	// GetVerification returns sentinel.ErrNotFound when the declaration has
	// no verification statement yet.
	GetVerification(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Verification, error)
}

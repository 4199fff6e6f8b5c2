// Package service orchestrates the declaration lifecycle: creation,
// explicit status transitions, certificate surrenders, free-allocation
// adjustments, and verification statements.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	declmetrics "skdm/internal/declaration/metrics"
	"skdm/internal/declaration/models"
	"skdm/internal/declaration/store"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/requestcontext"
)

// ArtifactInvalidator drops a cached compiled artifact for a declaration.
// Mutations that change what the compiler would render go through it so a
// stale artifact is never served after the declaration moves on.
type ArtifactInvalidator interface {
	Invalidate(ctx context.Context, tenantID id.TenantID, declarationID id.DeclarationID) error
}

type Service struct {
	store     store.Store
	logger    *slog.Logger
	metrics   *declmetrics.Metrics
	auditor   audit.Publisher
	artifacts ArtifactInvalidator
}

type Option func(*Service)

func WithMetrics(m *declmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithArtifactCache(inv ArtifactInvalidator) Option {
	return func(s *Service) { s.artifacts = inv }
}

func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateDeclarationInput struct {
	Year  int    `json:"year"`
	Notes string `json:"notes"`
}

func (s *Service) CreateDeclaration(ctx context.Context, scope gateway.Scope, in CreateDeclarationInput) (*models.Declaration, error) {
	if err := gateway.RequireRole(scope, id.RoleCBAMDeclarant); err != nil {
		return nil, err
	}
	declaration, err := models.NewDeclaration(id.NewDeclarationID(), scope.TenantID, in.Year, in.Notes, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateDeclaration(ctx, scope, declaration); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a declaration already exists for this year")
		}
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declaration.ID.String())
	}
	if s.metrics != nil {
		s.metrics.DeclarationsCreated.Inc()
	}
	s.emitCompliance(ctx, scope, audit.ActionDeclarationCreated, "declaration:"+declaration.ID.String(), "")
	return declaration, nil
}

func (s *Service) GetDeclaration(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Declaration, error) {
	declaration, err := s.store.GetDeclaration(ctx, scope, declarationID)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	return declaration, nil
}

// Detail is a declaration with its children attached, as served by the
// detail endpoint.
type Detail struct {
	Declaration  *models.Declaration                `json:"declaration"`
	Surrenders   []*models.CertificateSurrender     `json:"surrenders"`
	Adjustments  []*models.FreeAllocationAdjustment `json:"adjustments"`
	Verification *models.Verification               `json:"verification,omitempty"`
}

func (s *Service) GetDetail(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*Detail, error) {
	declaration, err := s.GetDeclaration(ctx, scope, declarationID)
	if err != nil {
		return nil, err
	}
	surrenders, err := s.store.ListSurrenders(ctx, scope, declarationID)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	adjustments, err := s.store.ListAdjustments(ctx, scope, declarationID)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	detail := &Detail{Declaration: declaration, Surrenders: surrenders, Adjustments: adjustments}
	verification, err := s.store.GetVerification(ctx, scope, declarationID)
	switch {
	case err == nil:
		detail.Verification = verification
	case errors.Is(err, sentinel.ErrNotFound):
		// no statement yet
	default:
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	return detail, nil
}

func (s *Service) ListDeclarations(ctx context.Context, scope gateway.Scope) ([]*models.Declaration, error) {
	declarations, err := s.store.ListDeclarations(ctx, scope)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declarations")
	}
	return declarations, nil
}

// Transition moves a declaration through its status FSM. Undefined
// transitions fail with an invariant violation and nothing is written.
func (s *Service) Transition(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID, target models.Status) (*models.Declaration, error) {
	if err := gateway.RequireRole(scope, id.RoleCBAMDeclarant); err != nil {
		return nil, err
	}
	declaration, err := s.GetDeclaration(ctx, scope, declarationID)
	if err != nil {
		return nil, err
	}
	if err := declaration.CanTransition(target); err != nil {
		return nil, err
	}
	previous := declaration.Status
	declaration.ApplyTransition(target, requestcontext.Now(ctx))
	if err := s.store.UpdateDeclaration(ctx, scope, declaration); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	s.invalidateArtifact(ctx, scope, declarationID)
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(target.String()).Inc()
	}
	s.emitCompliance(ctx, scope, audit.ActionDeclarationStatusChanged,
		"declaration:"+declarationID.String(), previous.String()+"->"+target.String())
	s.logger.InfoContext(ctx, "declaration status changed",
		slog.String("declaration_id", declarationID.String()),
		slog.String("from", previous.String()),
		slog.String("to", target.String()),
		slog.String("request_id", requestcontext.RequestID(ctx)),
	)
	return declaration, nil
}

type CreateCertificateInput struct {
	CertificateNo string          `json:"certificate_no"`
	Quantity      int             `json:"quantity"`
	PricePerTonne decimal.Decimal `json:"price_per_tonne"`
	IssueDate     time.Time       `json:"issue_date"`
	ExpiryDate    time.Time       `json:"expiry_date"`
}

func (s *Service) CreateCertificate(ctx context.Context, scope gateway.Scope, in CreateCertificateInput) (*models.Certificate, error) {
	if err := gateway.RequireRole(scope, id.RoleCBAMDeclarant); err != nil {
		return nil, err
	}
	certificate, err := models.NewCertificate(id.NewCertificateID(), scope.TenantID,
		in.CertificateNo, in.Quantity, in.PricePerTonne, in.IssueDate, in.ExpiryDate, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCertificate(ctx, scope, certificate); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "certificate number already exists")
		}
		return nil, s.wrapStoreErr(ctx, scope, err, "certificate:"+certificate.ID.String())
	}
	return certificate, nil
}

// CertificateView is a certificate together with its remaining quantity.
type CertificateView struct {
	*models.Certificate
	Remaining int `json:"remaining"`
}

func (s *Service) ListCertificates(ctx context.Context, scope gateway.Scope) ([]*CertificateView, error) {
	certificates, err := s.store.ListCertificates(ctx, scope)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "certificates")
	}
	out := make([]*CertificateView, 0, len(certificates))
	for _, certificate := range certificates {
		surrendered, err := s.store.SurrenderedQuantity(ctx, scope, certificate.ID)
		if err != nil {
			return nil, s.wrapStoreErr(ctx, scope, err, "certificate:"+certificate.ID.String())
		}
		out = append(out, &CertificateView{
			Certificate: certificate,
			Remaining:   certificate.Remaining(surrendered),
		})
	}
	return out, nil
}

type SurrenderInput struct {
	CertificateID id.CertificateID `json:"certificate_id"`
	Quantity      int              `json:"quantity"`
}

// Surrender records surrendering certificates against a declaration. The
// quantity may never exceed the certificate's remaining quantity; fully
// surrendered certificates flip to SURRENDERED.
func (s *Service) Surrender(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID, in SurrenderInput) (*models.CertificateSurrender, error) {
	if err := gateway.RequireRole(scope, id.RoleCBAMDeclarant); err != nil {
		return nil, err
	}
	if _, err := s.GetDeclaration(ctx, scope, declarationID); err != nil {
		return nil, err
	}
	certificate, err := s.store.GetCertificate(ctx, scope, in.CertificateID)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "certificate:"+in.CertificateID.String())
	}
	surrendered, err := s.store.SurrenderedQuantity(ctx, scope, in.CertificateID)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "certificate:"+in.CertificateID.String())
	}
	if err := certificate.CanSurrender(in.Quantity, surrendered); err != nil {
		if s.metrics != nil {
			s.metrics.SurrendersRejected.Inc()
		}
		return nil, err
	}

	surrender := &models.CertificateSurrender{
		ID:            id.NewSurrenderID(),
		DeclarationID: declarationID,
		CertificateID: in.CertificateID,
		Quantity:      in.Quantity,
		SurrenderDate: requestcontext.Now(ctx),
	}
	if err := s.store.AddSurrender(ctx, scope, surrender); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	if certificate.Remaining(surrendered+in.Quantity) == 0 {
		if err := s.store.UpdateCertificateStatus(ctx, scope, in.CertificateID, models.CertificateSurrendered); err != nil {
			return nil, s.wrapStoreErr(ctx, scope, err, "certificate:"+in.CertificateID.String())
		}
	}
	s.invalidateArtifact(ctx, scope, declarationID)
	if s.metrics != nil {
		s.metrics.SurrendersRecorded.Inc()
	}
	s.emitCompliance(ctx, scope, audit.ActionCertificateSurrendered,
		"declaration:"+declarationID.String(), certificate.CertificateNo)
	return surrender, nil
}

type AdjustmentInput struct {
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	EffectiveDate time.Time       `json:"effective_date"`
}

func (s *Service) AddAdjustment(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID, in AdjustmentInput) (*models.FreeAllocationAdjustment, error) {
	if err := gateway.RequireRole(scope, id.RoleCBAMDeclarant); err != nil {
		return nil, err
	}
	adjustmentType, err := models.ParseAdjustmentType(in.Type)
	if err != nil {
		return nil, err
	}
	adjustment, err := models.NewFreeAllocationAdjustment(id.NewAdjustmentID(), declarationID,
		adjustmentType, in.Amount, in.Description, in.EffectiveDate)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddAdjustment(ctx, scope, adjustment); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	s.invalidateArtifact(ctx, scope, declarationID)
	return adjustment, nil
}

type VerificationInput struct {
	VerifierName    string    `json:"verifier_name"`
	AccreditationNo string    `json:"accreditation_no"`
	Opinion         string    `json:"opinion"`
	Period          string    `json:"period"`
	IssueDate       time.Time `json:"issue_date"`
	Notes           string    `json:"notes"`
}

// UpsertVerification writes the declaration's verification statement.
// Verifiers and above may write it.
func (s *Service) UpsertVerification(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID, in VerificationInput) (*models.Verification, error) {
	if err := gateway.RequireRole(scope, id.RoleVerifier); err != nil {
		return nil, err
	}
	opinion, err := models.ParseVerificationOpinion(in.Opinion)
	if err != nil {
		return nil, err
	}
	verification, err := models.NewVerification(declarationID, in.VerifierName,
		in.AccreditationNo, opinion, in.Period, in.IssueDate, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertVerification(ctx, scope, verification); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "declaration:"+declarationID.String())
	}
	s.invalidateArtifact(ctx, scope, declarationID)
	return verification, nil
}

// invalidateArtifact is fail-open: a cache eviction error must not fail the
// mutation that already committed.
func (s *Service) invalidateArtifact(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) {
	if s.artifacts == nil {
		return
	}
	if err := s.artifacts.Invalidate(ctx, scope.TenantID, declarationID); err != nil {
		s.logger.WarnContext(ctx, "artifact cache invalidation failed",
			slog.String("declaration_id", declarationID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *Service) emitCompliance(ctx context.Context, scope gateway.Scope, action, subject, reason string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Action:    action,
		TenantID:  scope.TenantID,
		UserID:    requestcontext.UserID(ctx),
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.ErrorContext(ctx, "compliance audit emit failed",
			slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) wrapStoreErr(ctx context.Context, scope gateway.Scope, err error, subject string) error {
	switch {
	case errors.Is(err, sentinel.ErrTenantMismatch):
		s.logger.WarnContext(ctx, "cross-tenant access rejected",
			slog.String("tenant_id", scope.TenantID.String()),
			slog.String("subject", subject),
			slog.String("request_id", requestcontext.RequestID(ctx)),
		)
		if s.auditor != nil {
			_ = s.auditor.Emit(ctx, audit.Event{
				Category:  audit.CategorySecurity,
				Action:    audit.ActionTenantIsolationViolation,
				TenantID:  scope.TenantID,
				UserID:    requestcontext.UserID(ctx),
				Subject:   subject,
				RequestID: requestcontext.RequestID(ctx),
				ClientIP:  requestcontext.ClientIP(ctx),
			})
		}
		return dErrors.New(dErrors.CodeUnauthorized, "access denied")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "resource not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "resource already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage operation failed")
	}
}

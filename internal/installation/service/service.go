// Package service orchestrates the company/installation/period chain.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"skdm/internal/gateway"
	"skdm/internal/installation/models"
	"skdm/internal/installation/store"
	"skdm/internal/refdata"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/requestcontext"
)

type Service struct {
	store   store.Store
	logger  *slog.Logger
	auditor audit.Publisher
}

type Option func(*Service)

func WithAuditor(a audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateCompanyInput struct {
	Name      string `json:"name"`
	TaxNumber string `json:"tax_number"`
	Address   string `json:"address"`
	Country   string `json:"country"`
}

func (s *Service) CreateCompany(ctx context.Context, scope gateway.Scope, in CreateCompanyInput) (*models.Company, error) {
	if err := gateway.RequireRole(scope, id.RoleOperator); err != nil {
		return nil, err
	}
	company, err := models.NewCompany(id.NewCompanyID(), scope.TenantID, in.Name, in.TaxNumber, in.Address, in.Country, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCompany(ctx, scope, company); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "company:"+company.ID.String())
	}
	return company, nil
}

func (s *Service) ListCompanies(ctx context.Context, scope gateway.Scope) ([]*models.Company, error) {
	companies, err := s.store.ListCompanies(ctx, scope)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "companies")
	}
	return companies, nil
}

type CreateInstallationInput struct {
	CompanyID id.CompanyID `json:"company_id"`
	Name      string       `json:"name"`
	Country   string       `json:"country"`
}

func (s *Service) CreateInstallation(ctx context.Context, scope gateway.Scope, in CreateInstallationInput) (*models.Installation, error) {
	if err := gateway.RequireRole(scope, id.RoleOperator); err != nil {
		return nil, err
	}
	installation, err := models.NewInstallation(id.NewInstallationID(), scope.TenantID, in.CompanyID, in.Name, in.Country, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateInstallation(ctx, scope, installation); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installation:"+installation.ID.String())
	}
	return installation, nil
}

func (s *Service) ListInstallations(ctx context.Context, scope gateway.Scope) ([]*models.Installation, error) {
	installations, err := s.store.ListInstallations(ctx, scope)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installations")
	}
	return installations, nil
}

type CreatePeriodInput struct {
	InstallationID id.InstallationID `json:"installation_id"`
	Period         string            `json:"period"`
}

func (s *Service) CreatePeriod(ctx context.Context, scope gateway.Scope, in CreatePeriodInput) (*models.InstallationData, error) {
	if err := gateway.RequireRole(scope, id.RoleOperator); err != nil {
		return nil, err
	}
	data, err := models.NewInstallationData(id.NewInstallationDataID(), scope.TenantID, in.InstallationID, in.Period, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateInstallationData(ctx, scope, data); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installation_data:"+data.ID.String())
	}
	return data, nil
}

func (s *Service) GetPeriod(ctx context.Context, scope gateway.Scope, dataID id.InstallationDataID) (*models.InstallationData, error) {
	data, err := s.store.GetInstallationData(ctx, scope, dataID)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installation_data:"+dataID.String())
	}
	return data, nil
}

func (s *Service) ListPeriods(ctx context.Context, scope gateway.Scope) ([]*models.InstallationData, error) {
	periods, err := s.store.ListInstallationData(ctx, scope)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installation_data")
	}
	return periods, nil
}

type AddGoodsInput struct {
	InstallationDataID id.InstallationDataID `json:"installation_data_id"`
	Category           string                `json:"category"`
	CNCode             string                `json:"cn_code"`
	ProductionRoute    string                `json:"production_route"`
}

func (s *Service) AddGoods(ctx context.Context, scope gateway.Scope, in AddGoodsInput) (*models.GoodsCategoryAndRoute, error) {
	if err := gateway.RequireRole(scope, id.RoleOperator); err != nil {
		return nil, err
	}
	category, err := refdata.ParseGoodsCategory(in.Category)
	if err != nil {
		return nil, err
	}
	goods := &models.GoodsCategoryAndRoute{
		ID:                 uuid.NewString(),
		InstallationDataID: in.InstallationDataID,
		Category:           category,
		CNCode:             in.CNCode,
		ProductionRoute:    in.ProductionRoute,
	}
	if err := goods.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.AddGoods(ctx, scope, goods); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installation_data:"+in.InstallationDataID.String())
	}
	return goods, nil
}

type AddProcessInput struct {
	InstallationDataID id.InstallationDataID `json:"installation_data_id"`
	Category           string                `json:"category"`
	ProductionLevel    decimal.Decimal       `json:"production_level"`
	DirectEmissions    decimal.Decimal       `json:"direct_emissions"`
	HeatEmissions      decimal.Decimal       `json:"heat_emissions"`
	WasteGasEmissions  decimal.Decimal       `json:"waste_gas_emissions"`
}

func (s *Service) AddProcess(ctx context.Context, scope gateway.Scope, in AddProcessInput) (*models.ProductionProcess, error) {
	if err := gateway.RequireRole(scope, id.RoleOperator); err != nil {
		return nil, err
	}
	category, err := refdata.ParseGoodsCategory(in.Category)
	if err != nil {
		return nil, err
	}
	process := &models.ProductionProcess{
		ID:                 uuid.NewString(),
		InstallationDataID: in.InstallationDataID,
		Category:           category,
		ProductionLevel:    in.ProductionLevel,
		DirectEmissions:    in.DirectEmissions,
		HeatEmissions:      in.HeatEmissions,
		WasteGasEmissions:  in.WasteGasEmissions,
	}
	if err := process.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.AddProcess(ctx, scope, process); err != nil {
		return nil, s.wrapStoreErr(ctx, scope, err, "installation_data:"+in.InstallationDataID.String())
	}
	return process, nil
}

// wrapStoreErr translates store sentinels into coded errors. A tenant
// mismatch surfaces as Unauthorized and raises a security audit event, so
// cross-tenant probing is both uninformative and visible.
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

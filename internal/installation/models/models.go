// Package models holds the company, installation, and reporting-period data
// chain that feeds the declaration compiler's goods section.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"skdm/internal/refdata"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
)

// Company is the declarant legal entity. One tenant can hold several
// companies; the compiler uses the first as the declarant profile.
type Company struct {
	ID        id.CompanyID `json:"id"`
	TenantID  id.TenantID  `json:"tenant_id"`
	Name      string       `json:"name"`
	TaxNumber string       `json:"tax_number"`
	Address   string       `json:"address"`
	Country   string       `json:"country"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewCompany(companyID id.CompanyID, tenantID id.TenantID, name, taxNumber, address, country string, now time.Time) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company name is required")
	}
	if country != "" && !refdata.IsValidCountry(country) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown country code: "+country)
	}
	return &Company{
		ID:        companyID,
		TenantID:  tenantID,
		Name:      name,
		TaxNumber: strings.TrimSpace(taxNumber),
		Address:   strings.TrimSpace(address),
		Country:   country,
		CreatedAt: now,
	}, nil
}

// Installation is a production site of a company.
type Installation struct {
	ID        id.InstallationID `json:"id"`
	TenantID  id.TenantID       `json:"tenant_id"`
	CompanyID id.CompanyID      `json:"company_id"`
	Name      string            `json:"name"`
	Country   string            `json:"country"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewInstallation(installationID id.InstallationID, tenantID id.TenantID, companyID id.CompanyID, name, country string, now time.Time) (*Installation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "installation name is required")
	}
	if country != "" && !refdata.IsValidCountry(country) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown country code: "+country)
	}
	return &Installation{
		ID:        installationID,
		TenantID:  tenantID,
		CompanyID: companyID,
		Name:      name,
		Country:   country,
		CreatedAt: now,
	}, nil
}

// InstallationData is one reporting period of one installation. Its goods
// and process children describe what was produced and with what emissions.
type InstallationData struct {
	ID             id.InstallationDataID `json:"id"`
	TenantID       id.TenantID           `json:"tenant_id"`
	InstallationID id.InstallationID     `json:"installation_id"`
	Period         string                `json:"period"`
	CreatedAt      time.Time             `json:"created_at"`

	Goods     []GoodsCategoryAndRoute `json:"goods,omitempty"`
	Processes []ProductionProcess     `json:"processes,omitempty"`
}

func NewInstallationData(dataID id.InstallationDataID, tenantID id.TenantID, installationID id.InstallationID, period string, now time.Time) (*InstallationData, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reporting period is required")
	}
	return &InstallationData{
		ID:             dataID,
		TenantID:       tenantID,
		InstallationID: installationID,
		Period:         period,
		CreatedAt:      now,
	}, nil
}

// GoodsCategoryAndRoute maps a reporting period to one CBAM goods category
// with a CN code and production route from the category's closed sets.
type GoodsCategoryAndRoute struct {
	ID                 string                `json:"id"`
	InstallationDataID id.InstallationDataID `json:"installation_data_id"`
	Category           refdata.GoodsCategory `json:"category"`
	CNCode             string                `json:"cn_code"`
	ProductionRoute    string                `json:"production_route"`
}

// Validate checks the category is known and the CN code, when present,
// belongs to it. A missing CN code is allowed here; the compiler reports it
// as a warning.
func (g *GoodsCategoryAndRoute) Validate() error {
	if !g.Category.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown goods category: "+g.Category.String())
	}
	if g.CNCode != "" && !g.Category.HasCNCode(g.CNCode) {
		return dErrors.New(dErrors.CodeInvalidInput, "CN code "+g.CNCode+" does not belong to category "+g.Category.String())
	}
	return nil
}

// ProductionProcess carries the measured quantities for one goods category
// of one reporting period. Emission values are decimals, never floats.
type ProductionProcess struct {
	ID                 string                `json:"id"`
	InstallationDataID id.InstallationDataID `json:"installation_data_id"`
	Category           refdata.GoodsCategory `json:"category"`
	ProductionLevel    decimal.Decimal       `json:"production_level"`
	DirectEmissions    decimal.Decimal       `json:"direct_emissions"`
	HeatEmissions      decimal.Decimal       `json:"heat_emissions"`
	WasteGasEmissions  decimal.Decimal       `json:"waste_gas_emissions"`
}

// IndirectEmissions is the heat plus waste-gas balance.
func (p *ProductionProcess) IndirectEmissions() decimal.Decimal {
	return p.HeatEmissions.Add(p.WasteGasEmissions)
}

// TotalEmbeddedEmissions is direct plus indirect.
func (p *ProductionProcess) TotalEmbeddedEmissions() decimal.Decimal {
	return p.DirectEmissions.Add(p.IndirectEmissions())
}

func (p *ProductionProcess) Validate() error {
	if !p.Category.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown goods category: "+p.Category.String())
	}
	if p.ProductionLevel.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "production level cannot be negative")
	}
	return nil
}

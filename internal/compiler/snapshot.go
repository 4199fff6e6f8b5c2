package compiler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	declmodels "skdm/internal/declaration/models"
	declstore "skdm/internal/declaration/store"
	"skdm/internal/gateway"
	inststore "skdm/internal/installation/store"
	"skdm/internal/refdata"
	tenantstore "skdm/internal/tenant/store"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/platform/tx"
)

// Snapshot is everything the compiler reads, assembled once per run. All
// fields come from the same point in time; validation and rendering never
// reach back into storage.
type Snapshot struct {
	Declaration  declmodels.Declaration
	TenantName   string
	Company      *CompanyProfile
	Goods        []Good
	Surrenders   []SurrenderLine
	Adjustments  []AdjustmentLine
	Verification *VerificationLine
}

type CompanyProfile struct {
	Name      string
	TaxNumber string
	Address   string
	Country   string
}

// Good is one goods category aggregated across the tenant's reporting
// periods, with its emission balance.
type Good struct {
	Category        refdata.GoodsCategory
	CNCode          string
	CountryOfOrigin string
	Installation    string
	ProductionRoute string
	Quantity        decimal.Decimal
	Direct          decimal.Decimal
	Indirect        decimal.Decimal
	Total           decimal.Decimal
}

type SurrenderLine struct {
	CertificateNo       string
	CertificateQuantity int
	Quantity            int
	SurrenderDate       time.Time
	PricePerTonne       decimal.Decimal
}

type AdjustmentLine struct {
	Type          declmodels.AdjustmentType
	Amount        decimal.Decimal
	Description   string
	EffectiveDate time.Time
}

type VerificationLine struct {
	VerifierName    string
	AccreditationNo string
	Opinion         declmodels.VerificationOpinion
	Period          string
	IssueDate       time.Time
	Notes           string
}

// SnapshotLoader assembles a snapshot for one declaration within one scope.
type SnapshotLoader interface {
	Load(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*Snapshot, error)
}

// StoreLoader builds snapshots from the module stores. With memory stores
// it backs unit tests; wrapped in TxLoader it is the production path.
type StoreLoader struct {
	declarations  declstore.Store
	installations inststore.Store
	tenants       tenantstore.TenantStore
}

func NewStoreLoader(declarations declstore.Store, installations inststore.Store, tenants tenantstore.TenantStore) *StoreLoader {
	return &StoreLoader{declarations: declarations, installations: installations, tenants: tenants}
}

func (l *StoreLoader) Load(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*Snapshot, error) {
	declaration, err := l.declarations.GetDeclaration(ctx, scope, declarationID)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{Declaration: *declaration}

	tenant, err := l.tenants.FindByID(ctx, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	snapshot.TenantName = tenant.Name

	company, err := l.installations.FirstCompany(ctx, scope)
	switch {
	case err == nil:
		snapshot.Company = &CompanyProfile{
			Name:      company.Name,
			TaxNumber: company.TaxNumber,
			Address:   company.Address,
			Country:   countryName(company.Country),
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// missing profile becomes a warning during validation
	default:
		return nil, err
	}

	if snapshot.Goods, err = l.loadGoods(ctx, scope); err != nil {
		return nil, err
	}
	if snapshot.Surrenders, err = l.loadSurrenders(ctx, scope, declarationID); err != nil {
		return nil, err
	}
	if snapshot.Adjustments, err = l.loadAdjustments(ctx, scope, declarationID); err != nil {
		return nil, err
	}

	verification, err := l.declarations.GetVerification(ctx, scope, declarationID)
	switch {
	case err == nil:
		snapshot.Verification = &VerificationLine{
			VerifierName:    verification.VerifierName,
			AccreditationNo: verification.AccreditationNo,
			Opinion:         verification.Opinion,
			Period:          verification.Period,
			IssueDate:       verification.IssueDate,
			Notes:           verification.Notes,
		}
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, err
	}

	return snapshot, nil
}

// loadGoods aggregates the tenant's reporting periods into one line per
// goods category: the first goods mapping of a category wins, its process
// supplies the quantities.
func (l *StoreLoader) loadGoods(ctx context.Context, scope gateway.Scope) ([]Good, error) {
	periods, err := l.installations.ListInstallationData(ctx, scope)
	if err != nil {
		return nil, err
	}
	seen := make(map[refdata.GoodsCategory]bool)
	var out []Good
	for _, period := range periods {
		installation, err := l.installations.GetInstallation(ctx, scope, period.InstallationID)
		if err != nil {
			return nil, err
		}
		for _, goods := range period.Goods {
			if seen[goods.Category] {
				continue
			}
			seen[goods.Category] = true
			good := Good{
				Category:        goods.Category,
				CNCode:          goods.CNCode,
				CountryOfOrigin: countryName(installation.Country),
				Installation:    installation.Name,
				ProductionRoute: goods.ProductionRoute,
			}
			for _, process := range period.Processes {
				if process.Category != goods.Category {
					continue
				}
				good.Quantity = process.ProductionLevel
				good.Direct = process.DirectEmissions
				good.Indirect = process.IndirectEmissions()
				good.Total = process.TotalEmbeddedEmissions()
				break
			}
			out = append(out, good)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].CNCode < out[j].CNCode
	})
	return out, nil
}

func (l *StoreLoader) loadSurrenders(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]SurrenderLine, error) {
	surrenders, err := l.declarations.ListSurrenders(ctx, scope, declarationID)
	if err != nil {
		return nil, err
	}
	out := make([]SurrenderLine, 0, len(surrenders))
	for _, surrender := range surrenders {
		certificate, err := l.declarations.GetCertificate(ctx, scope, surrender.CertificateID)
		if err != nil {
			return nil, err
		}
		out = append(out, SurrenderLine{
			CertificateNo:       certificate.CertificateNo,
			CertificateQuantity: certificate.Quantity,
			Quantity:            surrender.Quantity,
			SurrenderDate:       surrender.SurrenderDate,
			PricePerTonne:       certificate.PricePerTonne,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CertificateNo != out[j].CertificateNo {
			return out[i].CertificateNo < out[j].CertificateNo
		}
		return out[i].SurrenderDate.Before(out[j].SurrenderDate)
	})
	return out, nil
}

func (l *StoreLoader) loadAdjustments(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]AdjustmentLine, error) {
	adjustments, err := l.declarations.ListAdjustments(ctx, scope, declarationID)
	if err != nil {
		return nil, err
	}
	out := make([]AdjustmentLine, 0, len(adjustments))
	for _, adjustment := range adjustments {
		out = append(out, AdjustmentLine{
			Type:          adjustment.Type,
			Amount:        adjustment.Amount,
			Description:   adjustment.Description,
			EffectiveDate: adjustment.EffectiveDate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func countryName(code string) string {
	if code == "" {
		return ""
	}
	name, err := refdata.CountryName(code)
	if err != nil {
		return code
	}
	return name
}

// TxLoader wraps a StoreLoader in a single repeatable-read, read-only
// transaction so the snapshot is consistent even while writes land.
type TxLoader struct {
	db    *sql.DB
	inner SnapshotLoader
}

func NewTxLoader(db *sql.DB, inner SnapshotLoader) *TxLoader {
	return &TxLoader{db: db, inner: inner}
}

func (l *TxLoader) Load(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*Snapshot, error) {
	txn, err := l.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer txn.Rollback()

	snapshot, err := l.inner.Load(tx.WithTx(ctx, txn), scope, declarationID)
	if err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot tx: %w", err)
	}
	return snapshot, nil
}

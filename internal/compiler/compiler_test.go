package compiler

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	declmodels "skdm/internal/declaration/models"
	declstore "skdm/internal/declaration/store"
	"skdm/internal/gateway"
	instmodels "skdm/internal/installation/models"
	inststore "skdm/internal/installation/store"
	"skdm/internal/refdata"
	tenantmodels "skdm/internal/tenant/models"
	tenantstore "skdm/internal/tenant/store"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/requestcontext"
)

// fixture carries one tenant's fully populated declaration world backed by
// memory stores.
type fixture struct {
	scope        gateway.Scope
	compiler     *Compiler
	declarations *declstore.MemoryStore
	declaration  *declmodels.Declaration
	certificate  *declmodels.Certificate
	auditSink    *audit.MemoryStore
}

var fixedNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tenants := tenantstore.NewMemoryTenantStore()
	installations := inststore.NewMemoryStore()
	declarations := declstore.NewMemoryStore()

	tenantID := id.NewTenantID()
	tenant, err := tenantmodels.NewTenant(tenantID, "Ecosfer Steel", "ecosfer", "ecosfer.com", fixedNow)
	require.NoError(t, err)
	require.NoError(t, tenants.Create(ctx, tenant))

	scope := gateway.Scope{TenantID: tenantID, Role: id.RoleCBAMDeclarant}

	company, err := instmodels.NewCompany(id.NewCompanyID(), tenantID, "Ecosfer Steel A.S.", "1234567890", "Izmir OSB", "TR", fixedNow)
	require.NoError(t, err)
	require.NoError(t, installations.CreateCompany(ctx, scope, company))

	installation, err := instmodels.NewInstallation(id.NewInstallationID(), tenantID, company.ID, "Izmir Plant", "TR", fixedNow)
	require.NoError(t, err)
	require.NoError(t, installations.CreateInstallation(ctx, scope, installation))

	period, err := instmodels.NewInstallationData(id.NewInstallationDataID(), tenantID, installation.ID, "2025", fixedNow)
	require.NoError(t, err)
	require.NoError(t, installations.CreateInstallationData(ctx, scope, period))

	require.NoError(t, installations.AddGoods(ctx, scope, &instmodels.GoodsCategoryAndRoute{
		ID:                 "goods-1",
		InstallationDataID: period.ID,
		Category:           refdata.GoodsIronSteel,
		CNCode:             "7206 10 00",
		ProductionRoute:    "Electric arc furnace route",
	}))
	require.NoError(t, installations.AddProcess(ctx, scope, &instmodels.ProductionProcess{
		ID:                 "process-1",
		InstallationDataID: period.ID,
		Category:           refdata.GoodsIronSteel,
		ProductionLevel:    decimal.RequireFromString("1200.5"),
		DirectEmissions:    decimal.RequireFromString("850.25"),
		HeatEmissions:      decimal.RequireFromString("40.1"),
		WasteGasEmissions:  decimal.RequireFromString("9.9"),
	}))

	declaration, err := declmodels.NewDeclaration(id.NewDeclarationID(), tenantID, 2025, "", fixedNow)
	require.NoError(t, err)
	require.NoError(t, declarations.CreateDeclaration(ctx, scope, declaration))

	certificate, err := declmodels.NewCertificate(id.NewCertificateID(), tenantID, "CERT-001", 5,
		decimal.RequireFromString("85.50"),
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Time{}, fixedNow)
	require.NoError(t, err)
	require.NoError(t, declarations.CreateCertificate(ctx, scope, certificate))

	sink := audit.NewMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	c := New(NewStoreLoader(declarations, installations, tenants), logger,
		WithAuditor(audit.NewStoreEmitter(sink, logger)))

	return &fixture{
		scope:        scope,
		compiler:     c,
		declarations: declarations,
		declaration:  declaration,
		certificate:  certificate,
		auditSink:    sink,
	}
}

func (f *fixture) surrender(t *testing.T, quantity int) {
	t.Helper()
	require.NoError(t, f.declarations.AddSurrender(context.Background(), f.scope, &declmodels.CertificateSurrender{
		ID:            id.NewSurrenderID(),
		DeclarationID: f.declaration.ID,
		CertificateID: f.certificate.ID,
		Quantity:      quantity,
		SurrenderDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}))
}

var hexHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestCompileProducesHashedArtifact(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 3)

	result, err := f.compiler.Compile(context.Background(), f.scope, f.declaration.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, PhaseDone, result.Phase)
	assert.Regexp(t, hexHash, result.SHA256Hash)
	assert.Empty(t, result.ValidationErrors)

	body := string(result.Artifact)
	assert.Contains(t, body, `<CBAMDeclaration xmlns="urn:eu:ec:cbam:declaration:v1" version="1.0">`)
	assert.Contains(t, body, "<ReportingYear>2025</ReportingYear>")
	assert.Contains(t, body, "<CertificateNumber>CERT-001</CertificateNumber>")
	// Quantity 5 minus surrendered 3 leaves capacity 2.
	assert.Contains(t, body, "<RemainingQuantity>2</RemainingQuantity>")
	assert.Contains(t, body, "<TotalDirectEmissions unit=\"tCO2e\">850.2500</TotalDirectEmissions>")
	assert.Contains(t, body, "<TotalIndirectEmissions unit=\"tCO2e\">50.0000</TotalIndirectEmissions>")
	assert.Contains(t, body, "<CompanyName>Ecosfer Steel A.S.</CompanyName>")

	assert.Len(t, f.auditSink.ByAction(audit.ActionArtifactGenerated), 1)
}

func TestCompileIsDeterministic(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 3)

	// Different wall clocks must not leak into the artifact.
	ctx1 := requestcontext.WithTime(context.Background(), fixedNow)
	ctx2 := requestcontext.WithTime(context.Background(), fixedNow.Add(48*time.Hour))

	first, err := f.compiler.Compile(ctx1, f.scope, f.declaration.ID)
	require.NoError(t, err)
	second, err := f.compiler.Compile(ctx2, f.scope, f.declaration.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Artifact, second.Artifact)
	assert.Equal(t, first.SHA256Hash, second.SHA256Hash)
	assert.NotEqual(t, first.GeneratedAt, second.GeneratedAt)
}

func TestCompileFailsWithoutGoods(t *testing.T) {
	f := newFixture(t)

	// Same declaration, but seen through a store with no goods mappings.
	tenants := tenantstore.NewMemoryTenantStore()
	tenant, err := tenantmodels.NewTenant(f.scope.TenantID, "Ecosfer Steel", "ecosfer", "ecosfer.com", fixedNow)
	require.NoError(t, err)
	require.NoError(t, tenants.Create(context.Background(), tenant))
	c := New(NewStoreLoader(f.declarations, inststore.NewMemoryStore(), tenants), slog.New(slog.DiscardHandler))

	result, err := c.Compile(context.Background(), f.scope, f.declaration.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.ValidationErrors, "no goods mapping present")
	assert.Empty(t, result.Artifact)
}

func TestCompileFailsWhenSurrenderExceedsCertificate(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 4)
	f.surrender(t, 3) // 7 surrendered against a quantity of 5

	result, err := f.compiler.Compile(context.Background(), f.scope, f.declaration.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Contains(t, result.ValidationErrors[0], "exceeds certificate CERT-001")
	assert.Empty(t, result.Artifact)
}

func TestCompileRequiresVerificationBeyondDraft(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 3)

	ctx := context.Background()
	f.declaration.ApplyTransition(declmodels.StatusSubmitted, fixedNow)
	require.NoError(t, f.declarations.UpdateDeclaration(ctx, f.scope, f.declaration))

	result, err := f.compiler.Compile(ctx, f.scope, f.declaration.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ValidationErrors,
		"verification opinion is required once the declaration is submitted")

	// With a statement in place the submitted declaration compiles.
	verification, err := declmodels.NewVerification(f.declaration.ID, "TUV Rheinland", "DE-V-0051",
		declmodels.OpinionSatisfactory, "2025", time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	require.NoError(t, f.declarations.UpsertVerification(ctx, f.scope, verification))

	result, err = f.compiler.Compile(ctx, f.scope, f.declaration.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, string(result.Artifact), "<Status>PROVIDED</Status>")
}

func TestCompileWarnsOnDraftGaps(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 3)

	result, err := f.compiler.Compile(context.Background(), f.scope, f.declaration.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Contains(t, result.Warnings, "verification statement is missing")
}

func TestCompileFailsOnNegativeDeclaredTotal(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 3)

	total := decimal.RequireFromString("-1.5")
	f.declaration.TotalEmissions = &total
	require.NoError(t, f.declarations.UpdateDeclaration(context.Background(), f.scope, f.declaration))

	result, err := f.compiler.Compile(context.Background(), f.scope, f.declaration.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Contains(t, result.ValidationErrors, "negative total emissions -1.5 on declaration")
	assert.Empty(t, result.Artifact)
}

func TestCrossTenantCompileIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.surrender(t, 3)

	intruder := gateway.Scope{TenantID: id.NewTenantID(), Role: id.RoleCBAMDeclarant}
	result, err := f.compiler.Compile(context.Background(), intruder, f.declaration.ID)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.False(t, strings.Contains(err.Error(), "CERT-001"), "error must not leak data")
	assert.Len(t, f.auditSink.ByAction(audit.ActionTenantIsolationViolation), 1)
}

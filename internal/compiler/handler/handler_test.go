package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skdm/internal/compiler"
	"skdm/internal/compiler/artifact"
	declmodels "skdm/internal/declaration/models"
	declstore "skdm/internal/declaration/store"
	"skdm/internal/gateway"
	instmodels "skdm/internal/installation/models"
	inststore "skdm/internal/installation/store"
	"skdm/internal/refdata"
	tenantmodels "skdm/internal/tenant/models"
	tenantstore "skdm/internal/tenant/store"
	id "skdm/pkg/domain"
	"skdm/pkg/testutil"
)

type fixture struct {
	router      chi.Router
	artifacts   artifact.Store
	tenantID    id.TenantID
	declaration *declmodels.Declaration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tenants := tenantstore.NewMemoryTenantStore()
	installations := inststore.NewMemoryStore()
	declarations := declstore.NewMemoryStore()

	tenantID := id.NewTenantID()
	tenant, err := tenantmodels.NewTenant(tenantID, "Ecosfer Steel", "ecosfer", "ecosfer.com", now)
	require.NoError(t, err)
	require.NoError(t, tenants.Create(ctx, tenant))

	scope := declarantScope(tenantID)
	company, err := instmodels.NewCompany(id.NewCompanyID(), tenantID, "Ecosfer Steel A.S.", "1234567890", "Izmir OSB", "TR", now)
	require.NoError(t, err)
	require.NoError(t, installations.CreateCompany(ctx, scope, company))

	installation, err := instmodels.NewInstallation(id.NewInstallationID(), tenantID, company.ID, "Izmir Plant", "TR", now)
	require.NoError(t, err)
	require.NoError(t, installations.CreateInstallation(ctx, scope, installation))

	period, err := instmodels.NewInstallationData(id.NewInstallationDataID(), tenantID, installation.ID, "2025", now)
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

	declaration, err := declmodels.NewDeclaration(id.NewDeclarationID(), tenantID, 2025, "", now)
	require.NoError(t, err)
	require.NoError(t, declarations.CreateDeclaration(ctx, scope, declaration))

	logger := slog.New(slog.DiscardHandler)
	artifacts := artifact.NewMemoryStore()
	c := compiler.New(compiler.NewStoreLoader(declarations, installations, tenants), logger)

	r := chi.NewRouter()
	NewHandler(c, artifacts, logger).Register(r)

	return &fixture{router: r, artifacts: artifacts, tenantID: tenantID, declaration: declaration}
}

func declarantScope(tenantID id.TenantID) gateway.Scope {
	return gateway.Scope{TenantID: tenantID, Role: id.RoleCBAMDeclarant}
}

func (f *fixture) compileRequest(tenantID id.TenantID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/declarations/"+f.declaration.ID.String()+"/compile", nil)
	return testutil.WithScope(req, tenantID, id.RoleCBAMDeclarant)
}

func TestCompileEndpointReturnsResultAndCachesArtifact(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, f.compileRequest(f.tenantID))
	require.Equal(t, http.StatusOK, rec.Code)

	var result compiler.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Len(t, result.SHA256Hash, 64)

	stored, err := f.artifacts.Get(context.Background(), f.tenantID, f.declaration.ID)
	require.NoError(t, err)
	assert.Equal(t, result.SHA256Hash, stored.SHA256Hash)
}

func TestArtifactDownloadCarriesHashAndXML(t *testing.T) {
	f := newFixture(t)

	req := testutil.WithScope(
		httptest.NewRequest(http.MethodGet, "/declarations/"+f.declaration.ID.String()+"/artifact", nil),
		f.tenantID, id.RoleCBAMDeclarant)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Len(t, rec.Header().Get("X-Artifact-SHA256"), 64)
	assert.Contains(t, rec.Body.String(), "<CBAMDeclaration")
}

func TestCrossTenantCompileIsUnauthorizedAndBodyCarriesNoData(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, f.compileRequest(id.NewTenantID()))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "Ecosfer")
}

func TestCompileEndpointWithoutScopeIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/declarations/"+f.declaration.ID.String()+"/compile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

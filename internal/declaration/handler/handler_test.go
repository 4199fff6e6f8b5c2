package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skdm/internal/declaration/models"
	"skdm/internal/declaration/service"
	"skdm/internal/declaration/store"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	"skdm/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	svc := service.New(store.NewMemoryStore(), logger)
	r := chi.NewRouter()
	NewHandler(svc, logger).Register(r)
	return r, svc
}

func TestCreateAndFetchDeclaration(t *testing.T) {
	router, _ := newRouter(t)
	tenantID := id.NewTenantID()

	req := httptest.NewRequest(http.MethodPost, "/declarations",
		strings.NewReader(`{"year":2025,"notes":"Q1 shipment data"}`))
	req = testutil.WithScope(req, tenantID, id.RoleCBAMDeclarant)
	req = testutil.WithRequestID(req, "req-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Declaration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 2025, created.Year)
	assert.Equal(t, models.StatusDraft, created.Status)

	req = testutil.WithScope(
		httptest.NewRequest(http.MethodGet, "/declarations/"+created.ID.String(), nil),
		tenantID, id.RoleCBAMDeclarant)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Q1 shipment data")
}

func TestCrossTenantFetchIsUnauthorizedAndBodyCarriesNoData(t *testing.T) {
	router, svc := newRouter(t)
	owner := gateway.Scope{TenantID: id.NewTenantID(), Role: id.RoleCBAMDeclarant}
	declaration, err := svc.CreateDeclaration(context.Background(), owner,
		service.CreateDeclarationInput{Year: 2025, Notes: "confidential supplier list"})
	require.NoError(t, err)

	req := testutil.WithScope(
		httptest.NewRequest(http.MethodGet, "/declarations/"+declaration.ID.String(), nil),
		id.NewTenantID(), id.RoleCBAMDeclarant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// Cross-tenant must be indistinguishable from unauthorized and the
	// body must not carry the other tenant's data or even a description.
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "confidential")
	assert.NotContains(t, rec.Body.String(), "2025")
}

func TestUnknownDeclarationInOwnTenantIsNotFound(t *testing.T) {
	router, _ := newRouter(t)

	req := testutil.WithScope(
		httptest.NewRequest(http.MethodGet, "/declarations/"+id.NewDeclarationID().String(), nil),
		id.NewTenantID(), id.RoleCBAMDeclarant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	router, _ := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/declarations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	router, _ := newRouter(t)

	req := testutil.WithScope(
		httptest.NewRequest(http.MethodPost, "/declarations", strings.NewReader(`{"year":`)),
		id.NewTenantID(), id.RoleCBAMDeclarant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

func TestTransitionEndpoint(t *testing.T) {
	router, svc := newRouter(t)
	tenantID := id.NewTenantID()
	scope := gateway.Scope{TenantID: tenantID, Role: id.RoleCBAMDeclarant}
	declaration, err := svc.CreateDeclaration(context.Background(), scope,
		service.CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)

	// DRAFT -> APPROVED is not a defined transition.
	req := testutil.WithScope(
		httptest.NewRequest(http.MethodPost, "/declarations/"+declaration.ID.String()+"/status",
			strings.NewReader(`{"status":"APPROVED"}`)),
		tenantID, id.RoleCBAMDeclarant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req = testutil.WithScope(
		httptest.NewRequest(http.MethodPost, "/declarations/"+declaration.ID.String()+"/status",
			strings.NewReader(`{"status":"SUBMITTED"}`)),
		tenantID, id.RoleCBAMDeclarant)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Declaration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusSubmitted, updated.Status)
}

func TestSupplierCannotCreateDeclaration(t *testing.T) {
	router, _ := newRouter(t)

	req := testutil.WithScope(
		httptest.NewRequest(http.MethodPost, "/declarations", strings.NewReader(`{"year":2025}`)),
		id.NewTenantID(), id.RoleSupplier)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

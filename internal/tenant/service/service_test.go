package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenantmetrics "skdm/internal/tenant/metrics"
	"skdm/internal/tenant/models"
	"skdm/internal/tenant/store"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, *store.MemoryTenantStore, *store.MemoryUserStore) {
	t.Helper()
	tenants := store.NewMemoryTenantStore()
	users := store.NewMemoryUserStore()
	logger := slog.New(slog.DiscardHandler)
	return New(tenants, users, logger), tenants, users
}

func seedTenant(t *testing.T, tenants *store.MemoryTenantStore, name, slug, domain string) *models.Tenant {
	t.Helper()
	tenant, err := models.NewTenant(id.NewTenantID(), name, slug, domain, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, tenants.Create(context.Background(), tenant))
	return tenant
}

func TestResolveTenant_ByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("matches e-mail domain", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		tenant := seedTenant(t, tenants, "Ecosfer", "ecosfer", "ecosfer.com")

		got, err := svc.ResolveTenant(ctx, Credential{Email: "user@ecosfer.com"})
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got)
	})

	t.Run("matches dot-stripped legacy domain", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		tenant := seedTenant(t, tenants, "Roder", "roder", "rodercomtr")

		got, err := svc.ResolveTenant(ctx, Credential{Email: "user@roder.com.tr"})
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got)
	})

	t.Run("falls back to existing user assignment", func(t *testing.T) {
		svc, tenants, users := newTestService(t)
		tenant := seedTenant(t, tenants, "Borubar", "borubar", "")
		user, err := models.NewUser(id.NewUserID(), tenant.ID, "ops@gmail.com", "x", id.RoleOperator, time.Now())
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, user))

		got, err := svc.ResolveTenant(ctx, Credential{Email: "ops@gmail.com"})
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got)
	})

	t.Run("rejects ambiguous domain mapping", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		seedTenant(t, tenants, "A", "a-corp", "shared.example")
		seedTenant(t, tenants, "B", "b-corp", "shared.example")

		_, err := svc.ResolveTenant(ctx, Credential{Email: "user@shared.example"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("refuses inactive tenant", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		tenant := seedTenant(t, tenants, "Gone", "gone", "gone.example")
		tenant.ApplyDeactivation(time.Now())
		require.NoError(t, tenants.Update(ctx, tenant))

		_, err := svc.ResolveTenant(ctx, Credential{Email: "user@gone.example"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("no default tenant fallback", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		seedTenant(t, tenants, "Only", "only", "only.example")

		_, err := svc.ResolveTenant(ctx, Credential{Email: "stranger@elsewhere.example"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestResolveTenant_BySlugAndID(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves by slug case-insensitively", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		tenant := seedTenant(t, tenants, "Ecosfer", "ecosfer", "")

		got, err := svc.ResolveTenant(ctx, Credential{Slug: "ECOSFER"})
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got)
	})

	t.Run("resolves by explicit id", func(t *testing.T) {
		svc, tenants, _ := newTestService(t)
		tenant := seedTenant(t, tenants, "Ecosfer", "ecosfer", "")

		got, err := svc.ResolveTenant(ctx, Credential{TenantID: tenant.ID})
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got)
	})

	t.Run("empty credential is a bad request", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.ResolveTenant(ctx, Credential{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestTenantLifecycle(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))

	t.Run("creates tenant with unique slug", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tenant, err := svc.CreateTenant(ctx, "Ecosfer", "ecosfer", "ecosfer.com")
		require.NoError(t, err)
		assert.Equal(t, models.TenantStatusActive, tenant.Status)

		_, err = svc.CreateTenant(ctx, "Other", "ecosfer", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("deactivation is idempotence-guarded", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tenant, err := svc.CreateTenant(ctx, "Roder", "roder", "")
		require.NoError(t, err)

		_, err = svc.DeactivateTenant(ctx, tenant.ID)
		require.NoError(t, err)

		_, err = svc.DeactivateTenant(ctx, tenant.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("registering a user on an inactive tenant fails", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tenant, err := svc.CreateTenant(ctx, "Roder", "roder", "")
		require.NoError(t, err)
		_, err = svc.DeactivateTenant(ctx, tenant.ID)
		require.NoError(t, err)

		_, err = svc.RegisterUser(ctx, tenant.ID, "user@roder.com", "hash", id.RoleOperator)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestResolveTenant_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	tenants := store.NewMemoryTenantStore()
	users := store.NewMemoryUserStore()
	m := tenantmetrics.New(prometheus.NewRegistry())
	svc := New(tenants, users, slog.New(slog.DiscardHandler), WithMetrics(m))
	tenant := seedTenant(t, tenants, "Ecosfer", "ecosfer", "ecosfer.com")

	got, err := svc.ResolveTenant(ctx, Credential{Slug: "ecosfer"})
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got)
	assert.Equal(t, 1, promtestutil.CollectAndCount(m.ResolveTenantDuration))

	_, err = svc.ResolveTenant(ctx, Credential{Slug: "nobody"})
	require.Error(t, err)
	assert.Equal(t, 2, promtestutil.CollectAndCount(m.ResolveTenantDuration))
	assert.Equal(t, float64(1),
		promtestutil.ToFloat64(m.ResolutionFailures.WithLabelValues(string(dErrors.CodeNotFound))))
}

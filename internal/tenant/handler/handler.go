package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skdm/internal/gateway"
	"skdm/internal/tenant/models"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/httputil"
	"skdm/pkg/requestcontext"
)

// Service defines the tenant operations the handler needs.
type Service interface {
	CreateTenant(ctx context.Context, name, slug, domain string) (*models.Tenant, error)
	ListActiveTenants(ctx context.Context) ([]*models.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

// Handler wires admin-facing tenant routes to the tenant service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts tenant endpoints on the router. All routes require
// SUPER_ADMIN: tenant administration is a platform concern, not a tenant
// concern.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants", h.HandleList)
	r.Post("/tenants", h.HandleCreate)
	r.Post("/tenants/{tenantID}/deactivate", h.HandleDeactivate)
}

type createTenantRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := gateway.FromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := gateway.RequireRole(scope, id.RoleSuperAdmin); err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenants, err := h.service.ListActiveTenants(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	scope, err := gateway.FromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := gateway.RequireRole(scope, id.RoleSuperAdmin); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := httputil.Decode[createTenantRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenant, err := h.service.CreateTenant(ctx, req.Name, req.Slug, req.Domain)
	if err != nil {
		h.logger.ErrorContext(ctx, "tenant creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tenant created",
		"request_id", requestID,
		"tenant_id", tenant.ID,
		"slug", tenant.Slug,
	)
	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, err := gateway.FromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := gateway.RequireRole(scope, id.RoleSuperAdmin); err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenant, err := h.service.DeactivateTenant(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// Package handler exposes the installation chain over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skdm/internal/gateway"
	"skdm/internal/installation/service"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/httputil"
	"skdm/pkg/requestcontext"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Post("/", h.createCompany)
		r.Get("/", h.listCompanies)
	})
	r.Route("/installations", func(r chi.Router) {
		r.Post("/", h.createInstallation)
		r.Get("/", h.listInstallations)
	})
	r.Route("/installation-data", func(r chi.Router) {
		r.Post("/", h.createPeriod)
		r.Get("/", h.listPeriods)
		r.Get("/{dataID}", h.getPeriod)
		r.Post("/{dataID}/goods", h.addGoods)
		r.Post("/{dataID}/processes", h.addProcess)
	})
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.CreateCompanyInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	company, err := h.service.CreateCompany(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "company created",
		slog.String("company_id", company.ID.String()),
		slog.String("tenant_id", scope.TenantID.String()),
		slog.String("request_id", requestcontext.RequestID(r.Context())),
	)
	httputil.WriteJSON(w, http.StatusCreated, company)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	companies, err := h.service.ListCompanies(r.Context(), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, companies)
}

func (h *Handler) createInstallation(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.CreateInstallationInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	installation, err := h.service.CreateInstallation(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, installation)
}

func (h *Handler) listInstallations(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	installations, err := h.service.ListInstallations(r.Context(), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, installations)
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.CreatePeriodInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, period)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	periods, err := h.service.ListPeriods(r.Context(), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, periods)
}

func (h *Handler) getPeriod(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dataID, err := id.ParseInstallationDataID(chi.URLParam(r, "dataID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	period, err := h.service.GetPeriod(r.Context(), scope, dataID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, period)
}

func (h *Handler) addGoods(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dataID, err := id.ParseInstallationDataID(chi.URLParam(r, "dataID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.AddGoodsInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.InstallationDataID = dataID
	goods, err := h.service.AddGoods(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, goods)
}

func (h *Handler) addProcess(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dataID, err := id.ParseInstallationDataID(chi.URLParam(r, "dataID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.AddProcessInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.InstallationDataID = dataID
	process, err := h.service.AddProcess(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, process)
}

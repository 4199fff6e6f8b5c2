// Package handler exposes declarations, certificates, surrenders,
// adjustments, and verification statements over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skdm/internal/declaration/models"
	"skdm/internal/declaration/service"
	"skdm/internal/gateway"
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
	// Flat registration: the compile and artifact routes live in the
	// compiler handler and share the /declarations prefix.
	r.Post("/declarations", h.create)
	r.Get("/declarations", h.list)
	r.Get("/declarations/{declarationID}", h.detail)
	r.Post("/declarations/{declarationID}/status", h.transition)
	r.Post("/declarations/{declarationID}/surrenders", h.surrender)
	r.Post("/declarations/{declarationID}/adjustments", h.addAdjustment)
	r.Put("/declarations/{declarationID}/verification", h.upsertVerification)

	r.Post("/certificates", h.createCertificate)
	r.Get("/certificates", h.listCertificates)
}

func (h *Handler) scopeAndID(r *http.Request) (gateway.Scope, id.DeclarationID, error) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		return gateway.Scope{}, id.DeclarationID{}, err
	}
	declarationID, err := id.ParseDeclarationID(chi.URLParam(r, "declarationID"))
	if err != nil {
		return gateway.Scope{}, id.DeclarationID{}, err
	}
	return scope, declarationID, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.CreateDeclarationInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	declaration, err := h.service.CreateDeclaration(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "declaration created",
		slog.String("declaration_id", declaration.ID.String()),
		slog.Int("year", declaration.Year),
		slog.String("request_id", requestcontext.RequestID(r.Context())),
	)
	httputil.WriteJSON(w, http.StatusCreated, declaration)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	declarations, err := h.service.ListDeclarations(r.Context(), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, declarations)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.GetDetail(r.Context(), scope, declarationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[transitionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	declaration, err := h.service.Transition(r.Context(), scope, declarationID, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, declaration)
}

func (h *Handler) surrender(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.SurrenderInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	surrender, err := h.service.Surrender(r.Context(), scope, declarationID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, surrender)
}

func (h *Handler) addAdjustment(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.AdjustmentInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	adjustment, err := h.service.AddAdjustment(r.Context(), scope, declarationID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, adjustment)
}

func (h *Handler) upsertVerification(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.VerificationInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verification, err := h.service.UpsertVerification(r.Context(), scope, declarationID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verification)
}

func (h *Handler) createCertificate(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := httputil.Decode[service.CreateCertificateInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	certificate, err := h.service.CreateCertificate(r.Context(), scope, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, certificate)
}

func (h *Handler) listCertificates(w http.ResponseWriter, r *http.Request) {
	scope, err := gateway.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	certificates, err := h.service.ListCertificates(r.Context(), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, certificates)
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/httputil"
	"skdm/pkg/requestcontext"
)

var errMissingCredentials = dErrors.New(dErrors.CodeInvalidInput, "email and password are required")

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[loginRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, errMissingCredentials)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login rejected",
			slog.String("request_id", requestcontext.RequestID(r.Context())),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}

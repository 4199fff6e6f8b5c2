// Package handler exposes compilation and artifact download over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skdm/internal/compiler"
	"skdm/internal/compiler/artifact"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/httputil"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/requestcontext"
)

type Handler struct {
	compiler  *compiler.Compiler
	artifacts artifact.Store
	logger    *slog.Logger
}

func NewHandler(c *compiler.Compiler, artifacts artifact.Store, logger *slog.Logger) *Handler {
	return &Handler{compiler: c, artifacts: artifacts, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/declarations/{declarationID}/compile", h.compile)
	r.Get("/declarations/{declarationID}/artifact", h.downloadArtifact)
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

func (h *Handler) compile(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.compiler.Compile(r.Context(), scope, declarationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if result.Success {
		h.cache(r.Context(), scope, declarationID, result)
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, result)
}

func (h *Handler) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	scope, declarationID, err := h.scopeAndID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stored, err := h.artifacts.Get(r.Context(), scope.TenantID, declarationID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "artifact cache read failed",
				slog.Any("error", err),
				slog.String("request_id", requestcontext.RequestID(r.Context())),
			)
		}
		// Determinism makes recompiling equivalent to a cache hit.
		result, err := h.compiler.Compile(r.Context(), scope, declarationID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if !result.Success {
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		stored = &artifact.Stored{
			Artifact:    result.Artifact,
			SHA256Hash:  result.SHA256Hash,
			GeneratedAt: result.GeneratedAt,
		}
		h.cache(r.Context(), scope, declarationID, result)
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="CBAM_Declaration_%s.xml"`, declarationID))
	w.Header().Set("X-Artifact-SHA256", stored.SHA256Hash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(stored.Artifact)
}

func (h *Handler) cache(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID, result *compiler.Result) {
	if h.artifacts == nil {
		return
	}
	err := h.artifacts.Put(ctx, scope.TenantID, declarationID, artifact.Stored{
		Artifact:    result.Artifact,
		SHA256Hash:  result.SHA256Hash,
		GeneratedAt: result.GeneratedAt,
	})
	if err != nil {
		// Cache failures are not user-facing; the artifact is already built.
		h.logger.WarnContext(ctx, "artifact cache write failed",
			slog.Any("error", err),
			slog.String("declaration_id", declarationID.String()),
		)
	}
}

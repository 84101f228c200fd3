package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reports/internal/domain"
)

// Approvals is the queue destructive MCP tool calls wait on.
type Approvals interface {
	Pending(ctx context.Context) ([]domain.PendingAction, error)
	Resolve(ctx context.Context, id string, approved bool) error
}

type approvalHandler struct {
	approvals Approvals
}

func (h *approvalHandler) list(w http.ResponseWriter, r *http.Request) {
	pending, err := h.approvals.Pending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *approvalHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

func (h *approvalHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *approvalHandler) resolve(w http.ResponseWriter, r *http.Request, approved bool) {
	if err := h.approvals.Resolve(r.Context(), chi.URLParam(r, "id"), approved); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

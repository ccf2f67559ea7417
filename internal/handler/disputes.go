package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/service"
	"github.com/mmeshcher/marketplace-admin/internal/validation"
)

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ListDisputes возвращает страницу споров.
func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		h.badRequest(w, err, nil)
		return
	}

	var status model.DisputeStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = model.ParseDisputeStatus(raw)
	}

	token, _ := credentials(r)
	disputes, err := h.service.ListDisputes(r.Context(), token, page, limit, status)
	if err != nil {
		h.writeError(w, "list disputes", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, disputes)
}

// ResolutionOptions возвращает варианты решения спора в фиксированном порядке.
func (h *Handler) ResolutionOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, validation.ResolutionOptions())
}

// GetDispute возвращает карточку спора.
func (h *Handler) GetDispute(w http.ResponseWriter, r *http.Request) {
	token, _ := credentials(r)

	detail, err := h.service.DisputeDetail(r.Context(), token, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, "get dispute", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

type resolutionResponse struct {
	*service.ResolutionResult
	DismissAfterMs int64 `json:"dismissAfterMs"`
}

// ResolveDispute применяет решение администратора к спору.
func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req service.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, err, nil)
		return
	}
	req.DisputeID = urlParam(r, "id")

	token, actor := credentials(r)
	res, err := h.service.ResolveDispute(r.Context(), token, actor, req)
	if err != nil {
		h.writeError(w, "resolve dispute", err, req)
		return
	}

	writeJSON(w, http.StatusOK, resolutionResponse{
		ResolutionResult: res,
		DismissAfterMs:   res.DismissAfter.Milliseconds(),
	})
}

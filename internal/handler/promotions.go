package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

// ListPromotions возвращает страницу промо-предложений.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, _ := credentials(r)
	promotions, err := h.service.ListPromotions(r.Context(), token, page, limit)
	if err != nil {
		h.writeError(w, "list promotions", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, promotions)
}

// CreatePromotion создаёт промо-предложение.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var in model.PromotionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, actor := credentials(r)
	res, err := h.service.CreatePromotion(r.Context(), token, actor, in)
	if err != nil {
		h.writeError(w, "create promotion", err, in)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// UpdatePromotion изменяет промо-предложение.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var in model.PromotionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, actor := credentials(r)
	res, err := h.service.UpdatePromotion(r.Context(), token, actor, urlParam(r, "id"), in)
	if err != nil {
		h.writeError(w, "update promotion", err, in)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// DeletePromotion удаляет промо-предложение.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	token, actor := credentials(r)

	res, err := h.service.DeletePromotion(r.Context(), token, actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, "delete promotion", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

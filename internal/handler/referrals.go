package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/service"
)

// ListReferrals возвращает страницу рефералов.
func (h *Handler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, _ := credentials(r)
	referrals, err := h.service.ListReferrals(r.Context(), token, page, limit)
	if err != nil {
		h.writeError(w, "list referrals", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, referrals)
}

// ReferralStats возвращает статистику реферальной программы.
func (h *Handler) ReferralStats(w http.ResponseWriter, r *http.Request) {
	token, _ := credentials(r)

	stats, err := h.service.ReferralStats(r.Context(), token)
	if err != nil {
		h.writeError(w, "referral stats", err, nil)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type referralResponse struct {
	*service.ReferralResult
	BannerForMs int64 `json:"bannerForMs,omitempty"`
}

func (h *Handler) writeReferralResult(w http.ResponseWriter, res *service.ReferralResult) {
	writeJSON(w, http.StatusOK, referralResponse{
		ReferralResult: res,
		BannerForMs:    res.BannerFor.Milliseconds(),
	})
}

// amountInput принимает сумму как числом, так и строкой из поля формы.
type amountInput string

func (a *amountInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = amountInput(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountInput(n)
	return nil
}

type markPaidRequest struct {
	OverrideAmount amountInput `json:"overrideAmount"`
	Note           string      `json:"note,omitempty"`
}

// MarkReferralPaid отмечает вознаграждение выплаченным.
func (h *Handler) MarkReferralPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if err := decodeOptional(r, &req); err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, actor := credentials(r)
	res, err := h.service.MarkReferralPaid(r.Context(), token, actor, urlParam(r, "id"), string(req.OverrideAmount), req.Note)
	if err != nil {
		h.writeError(w, "mark referral paid", err, req)
		return
	}

	h.writeReferralResult(w, res)
}

type markIneligibleRequest struct {
	Reason string `json:"reason"`
}

// MarkReferralIneligible отклоняет вознаграждение с указанной причиной.
func (h *Handler) MarkReferralIneligible(w http.ResponseWriter, r *http.Request) {
	var req markIneligibleRequest
	if err := decodeOptional(r, &req); err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, actor := credentials(r)
	res, err := h.service.MarkReferralIneligible(r.Context(), token, actor, urlParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, "mark referral ineligible", err, req)
		return
	}

	h.writeReferralResult(w, res)
}

// RecalculateAndRetry пересчитывает вознаграждение и повторяет выплату.
func (h *Handler) RecalculateAndRetry(w http.ResponseWriter, r *http.Request) {
	token, actor := credentials(r)

	res, err := h.service.RecalculateAndRetry(r.Context(), token, actor, urlParam(r, "id"))
	if err != nil {
		h.writeError(w, "recalculate referral", err, nil)
		return
	}

	h.writeReferralResult(w, res)
}

// UpsertReferralSettings сохраняет настройки реферальной программы.
func (h *Handler) UpsertReferralSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.ReferralSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.badRequest(w, err, nil)
		return
	}

	token, actor := credentials(r)
	if err := h.service.UpsertReferralSettings(r.Context(), token, actor, settings); err != nil {
		h.writeError(w, "upsert referral settings", err, settings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeOptional декодирует JSON-тело, допуская его отсутствие.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

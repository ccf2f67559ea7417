// Package handler содержит HTTP-обработчики API административной панели маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-admin/internal/marketplace"
	"github.com/mmeshcher/marketplace-admin/internal/middleware"
	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/operation"
	"github.com/mmeshcher/marketplace-admin/internal/service"
	"github.com/mmeshcher/marketplace-admin/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ListDisputes(ctx context.Context, token string, page, limit int, status model.DisputeStatus) (*model.Page[model.Dispute], error)
	DisputeDetail(ctx context.Context, token, id string) (*service.DisputeDetail, error)
	ResolveDispute(ctx context.Context, token, actor string, req service.ResolveRequest) (*service.ResolutionResult, error)

	ListReferrals(ctx context.Context, token string, page, limit int) (*model.Page[model.Referral], error)
	ReferralStats(ctx context.Context, token string) (*model.ReferralStats, error)
	MarkReferralPaid(ctx context.Context, token, actor, referralID, overrideAmount, note string) (*service.ReferralResult, error)
	MarkReferralIneligible(ctx context.Context, token, actor, referralID, reason string) (*service.ReferralResult, error)
	RecalculateAndRetry(ctx context.Context, token, actor, referralID string) (*service.ReferralResult, error)
	UpsertReferralSettings(ctx context.Context, token, actor string, settings model.ReferralSettings) error

	ListPromotions(ctx context.Context, token string, page, limit int) (*model.Page[model.Promotion], error)
	CreatePromotion(ctx context.Context, token, actor string, in model.PromotionInput) (*service.PromotionResult, error)
	UpdatePromotion(ctx context.Context, token, actor, id string, in model.PromotionInput) (*service.PromotionResult, error)
	DeletePromotion(ctx context.Context, token, actor, id string) (*service.PromotionResult, error)

	DownloadDocument(ctx context.Context, token, rawURL string) (*marketplace.Document, error)
	OperationState(kind, id string) (operation.State, error)
	AuditTrail(ctx context.Context, entityType, entityID string, limit int) ([]model.AuditEntry, error)
}

// Handler реализует HTTP-обработчики административного API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.BearerAuth
	rateLimit      func(http.Handler) http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// rateLimit может быть nil, тогда частота изменяющих запросов не ограничивается.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.BearerAuth, rateLimit func(http.Handler) http.Handler) *Handler {
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}

	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		rateLimit:      rateLimit,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Form  any    `json:"form,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку в HTTP-статус и одно сообщение для пользователя.
// form возвращается клиенту, чтобы введённые значения не потерялись.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error, form any) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" error", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg, Form: form})
}

func errorStatus(err error) (int, string) {
	var remote *marketplace.RemoteError

	switch {
	case validation.IsValidationError(err):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, marketplace.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, operation.ErrBusy):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrDocumentURL):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrDocumentHost):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrUnknownKind):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, marketplace.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &remote):
		if remote.StatusCode >= 400 && remote.StatusCode < 500 {
			return remote.StatusCode, remote.Message
		}
		return http.StatusBadGateway, remote.Message
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func credentials(r *http.Request) (token, actor string) {
	token, _ = middleware.TokenFromContext(r.Context())
	return token, middleware.ActorFromContext(r.Context())
}

func pageParams(r *http.Request) (int, int, error) {
	page, err := intParam(r, "page")
	if err != nil {
		return 0, 0, err
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errBadParam(name)
	}
	return v, nil
}

type errBadParam string

func (e errBadParam) Error() string {
	return "invalid query parameter " + strconv.Quote(string(e))
}

func (h *Handler) badRequest(w http.ResponseWriter, err error, form any) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Form: form})
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetOperation возвращает состояние последнего действия над сущностью.
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.OperationState(urlParam(r, "kind"), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, "get operation", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetAudit возвращает журнал действий администраторов.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.badRequest(w, err, nil)
		return
	}

	q := r.URL.Query()
	entries, err := h.service.AuditTrail(r.Context(), q.Get("entity_type"), q.Get("entity_id"), limit)
	if err != nil {
		h.writeError(w, "get audit", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

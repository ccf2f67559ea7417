package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-admin/internal/marketplace"
	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/operation"
	"github.com/mmeshcher/marketplace-admin/internal/validation"
)

// DefaultDisputePageSize используется для обновления списка споров, если размер страницы не передан.
const DefaultDisputePageSize = 50

// ErrInvalidState возвращается при попытке принять решение по уже закрытому спору.
var ErrInvalidState = errors.New("dispute is already resolved")

// ResolveRequest описывает форму решения по спору.
type ResolveRequest struct {
	DisputeID       string                 `json:"-"`
	Action          model.ResolutionAction `json:"action,omitempty"`
	Label           string                 `json:"label,omitempty"`
	BuyerPercentage float64                `json:"buyerPercentage"`
	Comment         string                 `json:"comment"`
	PageSize        int                    `json:"pageSize,omitempty"`
}

// ResolutionResult содержит результат решения и обновлённый список споров.
type ResolutionResult struct {
	DisputeID        string                     `json:"disputeId"`
	Action           model.ResolutionAction     `json:"action"`
	BuyerPercentage  *float64                   `json:"buyerPercentage,omitempty"`
	SellerPercentage *float64                   `json:"sellerPercentage,omitempty"`
	Disputes         *model.Page[model.Dispute] `json:"disputes,omitempty"`
	RefreshError     string                     `json:"refreshError,omitempty"`
	DismissAfter     time.Duration              `json:"-"`
}

// DisputeDetail описывает карточку спора. Варианты решения присутствуют только для незакрытых споров.
type DisputeDetail struct {
	Dispute           *model.Dispute                `json:"dispute"`
	Resolvable        bool                          `json:"resolvable"`
	ResolutionOptions []validation.ResolutionOption `json:"resolutionOptions,omitempty"`
	Operation         operation.State               `json:"operation"`
}

// ListDisputes возвращает страницу споров.
func (s *Service) ListDisputes(ctx context.Context, token string, page, limit int, status model.DisputeStatus) (*model.Page[model.Dispute], error) {
	page, limit = normalizePage(page, limit, DefaultDisputePageSize)
	return s.market.ListDisputes(ctx, token, page, limit, status)
}

// DisputeDetail возвращает спор вместе с доступными вариантами решения.
func (s *Service) DisputeDetail(ctx context.Context, token, id string) (*DisputeDetail, error) {
	d, err := s.market.GetDispute(ctx, token, id)
	if err != nil {
		return nil, err
	}

	detail := &DisputeDetail{
		Dispute:    d,
		Resolvable: !d.Status.IsTerminal(),
		Operation:  s.tracker.Get(operation.Key(KindDispute, id)),
	}
	if detail.Resolvable {
		detail.ResolutionOptions = validation.ResolutionOptions()
	}

	return detail, nil
}

// ResolveDispute проверяет форму решения, выполняет ровно одну операцию бэкенда
// и обновляет первую страницу списка споров.
func (s *Service) ResolveDispute(ctx context.Context, token, actor string, req ResolveRequest) (*ResolutionResult, error) {
	action := req.Action
	if action == "" && req.Label != "" {
		action, _ = validation.ActionByLabel(req.Label)
	}

	if err := validation.ValidateResolution(action, req.BuyerPercentage, req.Comment); err != nil {
		return nil, err
	}

	key := operation.Key(KindDispute, req.DisputeID)
	if err := s.tracker.Begin(key); err != nil {
		return nil, err
	}

	err := s.dispatchResolution(ctx, token, action, req)
	s.tracker.Finish(key, err)
	s.record(actor, KindDispute, req.DisputeID, string(action), resolutionPayload(action, req), err)

	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			s.logger.Warn("resolve dispute error", zap.Error(err),
				zap.String("dispute", req.DisputeID), zap.String("action", string(action)))
		}
		return nil, err
	}

	res := &ResolutionResult{
		DisputeID:    req.DisputeID,
		Action:       action,
		DismissAfter: s.timings.DisputeDismissDelay,
	}
	if action == model.ActionSplitPayment {
		buyer := req.BuyerPercentage
		seller := validation.SellerPercentage(buyer)
		res.BuyerPercentage = &buyer
		res.SellerPercentage = &seller
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultDisputePageSize
	}
	disputes, err := s.market.ListDisputes(ctx, token, 1, pageSize, "")
	if err != nil {
		s.logger.Warn("refresh disputes after resolution error", zap.Error(err))
		res.RefreshError = err.Error()
	} else {
		res.Disputes = disputes
	}

	return res, nil
}

func (s *Service) dispatchResolution(ctx context.Context, token string, action model.ResolutionAction, req ResolveRequest) error {
	d, err := s.market.GetDispute(ctx, token, req.DisputeID)
	if err != nil {
		return marketplace.ResolveFailure(err)
	}
	if d.Status.IsTerminal() {
		return ErrInvalidState
	}

	switch action {
	case model.ActionRefundBuyer:
		return s.market.RefundBuyer(ctx, token, req.DisputeID, req.Comment)
	case model.ActionPaySeller:
		return s.market.PaySeller(ctx, token, req.DisputeID, req.Comment)
	case model.ActionSplitPayment:
		return s.market.SplitPayment(ctx, token, req.DisputeID, req.BuyerPercentage, req.Comment)
	case model.ActionRequestRework:
		return s.market.RequestRework(ctx, token, req.DisputeID, req.Comment)
	}

	return fmt.Errorf("unsupported resolution action %q", action)
}

func resolutionPayload(action model.ResolutionAction, req ResolveRequest) map[string]any {
	p := map[string]any{"comment": req.Comment}
	if action == model.ActionSplitPayment {
		p["buyerPercentage"] = req.BuyerPercentage
		p["sellerPercentage"] = validation.SellerPercentage(req.BuyerPercentage)
	}
	return p
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/operation"
	"github.com/mmeshcher/marketplace-admin/internal/validation"
)

// PromotionPageSize используется для обновления списка промо-предложений после изменений.
const PromotionPageSize = 100

// PromotionResult содержит обновлённый список промо-предложений после изменения.
type PromotionResult struct {
	PromotionID  string                       `json:"promotionId,omitempty"`
	Promotions   *model.Page[model.Promotion] `json:"promotions,omitempty"`
	RefreshError string                       `json:"refreshError,omitempty"`
}

// ListPromotions возвращает страницу промо-предложений с вычисленным статусом.
func (s *Service) ListPromotions(ctx context.Context, token string, page, limit int) (*model.Page[model.Promotion], error) {
	page, limit = normalizePage(page, limit, PromotionPageSize)

	res, err := s.market.ListPromotions(ctx, token, page, limit)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	for i := range res.Items {
		res.Items[i].Status = res.Items[i].EffectiveStatus(now)
	}
	return res, nil
}

// CreatePromotion проверяет и создаёт промо-предложение.
func (s *Service) CreatePromotion(ctx context.Context, token, actor string, in model.PromotionInput) (*PromotionResult, error) {
	in = trimPromotion(in)
	if err := validation.ValidatePromotion(in); err != nil {
		return nil, err
	}

	err := s.market.CreatePromotion(ctx, token, in)
	s.record(actor, KindPromotion, "", "create", in, err)
	if err != nil {
		return nil, err
	}

	return s.refreshPromotions(ctx, token, ""), nil
}

// UpdatePromotion проверяет и изменяет промо-предложение.
func (s *Service) UpdatePromotion(ctx context.Context, token, actor, id string, in model.PromotionInput) (*PromotionResult, error) {
	in = trimPromotion(in)
	if err := validation.ValidatePromotion(in); err != nil {
		return nil, err
	}

	key := operation.Key(KindPromotion, id)
	if err := s.tracker.Begin(key); err != nil {
		return nil, err
	}
	err := s.market.UpdatePromotion(ctx, token, id, in)
	s.tracker.Finish(key, err)
	s.record(actor, KindPromotion, id, "update", in, err)
	if err != nil {
		return nil, err
	}

	return s.refreshPromotions(ctx, token, id), nil
}

// DeletePromotion удаляет промо-предложение.
func (s *Service) DeletePromotion(ctx context.Context, token, actor, id string) (*PromotionResult, error) {
	key := operation.Key(KindPromotion, id)
	if err := s.tracker.Begin(key); err != nil {
		return nil, err
	}
	err := s.market.DeletePromotion(ctx, token, id)
	s.tracker.Finish(key, err)
	s.record(actor, KindPromotion, id, "delete", nil, err)
	if err != nil {
		return nil, err
	}

	return s.refreshPromotions(ctx, token, id), nil
}

func (s *Service) refreshPromotions(ctx context.Context, token, id string) *PromotionResult {
	res := &PromotionResult{PromotionID: id}

	page, err := s.ListPromotions(ctx, token, 1, PromotionPageSize)
	if err != nil {
		s.logger.Warn("refresh promotions after change error", zap.Error(err))
		res.RefreshError = err.Error()
		return res
	}

	res.Promotions = page
	return res
}

func trimPromotion(in model.PromotionInput) model.PromotionInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	return in
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/operation"
	"github.com/mmeshcher/marketplace-admin/internal/validation"
)

// ReferralPageSize используется для обновления списка рефералов после изменений.
const ReferralPageSize = 100

// ErrIllegalTransition возвращается, если действие недопустимо для текущего статуса реферала.
var ErrIllegalTransition = errors.New("action is not allowed for the current referral status")

// ReferralOp описывает действие администратора над реферальным вознаграждением.
type ReferralOp string

const (
	OpMarkPaid       ReferralOp = "mark-paid"
	OpMarkIneligible ReferralOp = "mark-ineligible"
	OpRecalculate    ReferralOp = "recalculate-and-retry"
)

var referralTransitions = map[model.ReferralStatus]map[ReferralOp]bool{
	model.ReferralStatusPending:    {OpMarkPaid: true, OpMarkIneligible: true, OpRecalculate: true},
	model.ReferralStatusProcessing: {OpRecalculate: true},
	model.ReferralStatusIneligible: {OpRecalculate: true},
	model.ReferralStatusPaid:       {},
}

// CanTransition сообщает, допустимо ли действие для реферала в статусе from.
// Неизвестные статусы оставляются на усмотрение бэкенда.
func CanTransition(from model.ReferralStatus, op ReferralOp) bool {
	allowed, ok := referralTransitions[from]
	if !ok {
		return true
	}
	return allowed[op]
}

// TargetStatus возвращает статус, в который действие переводит реферала.
func TargetStatus(op ReferralOp) model.ReferralStatus {
	switch op {
	case OpMarkPaid:
		return model.ReferralStatusPaid
	case OpMarkIneligible:
		return model.ReferralStatusIneligible
	default:
		return model.ReferralStatusProcessing
	}
}

// ReferralResult содержит результат действия и обновлённые список и статистику.
type ReferralResult struct {
	ReferralID   string                      `json:"referralId"`
	Operation    ReferralOp                  `json:"operation"`
	Status       model.ReferralStatus        `json:"status"`
	Message      string                      `json:"message"`
	Referrals    *model.Page[model.Referral] `json:"referrals,omitempty"`
	Stats        *model.ReferralStats        `json:"stats,omitempty"`
	RefreshError string                      `json:"refreshError,omitempty"`
	BannerFor    time.Duration               `json:"-"`
}

// ReferralOverview содержит страницу рефералов и статистику программы.
type ReferralOverview struct {
	Referrals *model.Page[model.Referral] `json:"referrals"`
	Stats     *model.ReferralStats        `json:"stats"`
}

// ListReferrals возвращает страницу рефералов.
func (s *Service) ListReferrals(ctx context.Context, token string, page, limit int) (*model.Page[model.Referral], error) {
	page, limit = normalizePage(page, limit, ReferralPageSize)
	return s.market.ListReferrals(ctx, token, page, limit)
}

// ReferralStats возвращает статистику реферальной программы.
func (s *Service) ReferralStats(ctx context.Context, token string) (*model.ReferralStats, error) {
	return s.market.ReferralStats(ctx, token)
}

// UpsertReferralSettings проверяет и сохраняет частичные настройки реферальной программы.
func (s *Service) UpsertReferralSettings(ctx context.Context, token, actor string, settings model.ReferralSettings) error {
	if err := validation.ValidateReferralSettings(settings); err != nil {
		return err
	}

	err := s.market.UpsertReferralSettings(ctx, token, settings)
	s.record(actor, KindReferral, "settings", "upsert-settings", settings, err)
	return err
}

// MarkReferralPaid отмечает вознаграждение выплаченным с суммой, указанной администратором.
func (s *Service) MarkReferralPaid(ctx context.Context, token, actor, referralID, overrideAmount, note string) (*ReferralResult, error) {
	amount, err := validation.ParseOverrideAmount(overrideAmount)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"overrideAmount": amount.String()}
	if note != "" {
		payload["note"] = note
	}

	return s.runReferralOp(ctx, token, actor, referralID, OpMarkPaid, payload, func() error {
		return s.market.MarkReferralPaid(ctx, token, referralID, amount, note)
	})
}

// MarkReferralIneligible отклоняет вознаграждение с указанной причиной.
func (s *Service) MarkReferralIneligible(ctx context.Context, token, actor, referralID, reason string) (*ReferralResult, error) {
	if err := validation.ValidateIneligibleReason(reason); err != nil {
		return nil, err
	}

	return s.runReferralOp(ctx, token, actor, referralID, OpMarkIneligible, map[string]any{"reason": reason}, func() error {
		return s.market.MarkReferralIneligible(ctx, token, referralID, reason)
	})
}

// RecalculateAndRetry пересчитывает вознаграждение и повторяет выплату.
func (s *Service) RecalculateAndRetry(ctx context.Context, token, actor, referralID string) (*ReferralResult, error) {
	res, err := s.runReferralOp(ctx, token, actor, referralID, OpRecalculate, nil, func() error {
		return s.market.RecalculateAndRetry(ctx, token, referralID)
	})
	if err != nil {
		return nil, err
	}

	res.BannerFor = s.timings.ReferralBannerDuration
	return res, nil
}

func (s *Service) runReferralOp(ctx context.Context, token, actor, referralID string, op ReferralOp, payload map[string]any, call func() error) (*ReferralResult, error) {
	key := operation.Key(KindReferral, referralID)
	if err := s.tracker.Begin(key); err != nil {
		return nil, err
	}

	err := s.checkReferralTransition(ctx, token, referralID, op)
	if err == nil {
		err = call()
	}
	s.tracker.Finish(key, err)
	s.record(actor, KindReferral, referralID, string(op), payload, err)

	if err != nil {
		if !errors.Is(err, ErrIllegalTransition) {
			s.logger.Warn("referral action error", zap.Error(err),
				zap.String("referral", referralID), zap.String("operation", string(op)))
		}
		return nil, err
	}

	res := &ReferralResult{
		ReferralID: referralID,
		Operation:  op,
		Status:     TargetStatus(op),
		Message:    referralMessage(op),
	}

	overview, err := s.ReferralOverview(ctx, token)
	if err != nil {
		s.logger.Warn("refresh referrals after action error", zap.Error(err))
		res.RefreshError = err.Error()
	} else {
		res.Referrals = overview.Referrals
		res.Stats = overview.Stats
	}

	return res, nil
}

// checkReferralTransition сверяет действие с текущим статусом реферала из первой страницы списка.
// Если реферал не найден или список недоступен, решение остаётся за бэкендом.
func (s *Service) checkReferralTransition(ctx context.Context, token, referralID string, op ReferralOp) error {
	page, err := s.market.ListReferrals(ctx, token, 1, ReferralPageSize)
	if err != nil {
		s.logger.Debug("referral status lookup skipped", zap.Error(err))
		return nil
	}

	for _, r := range page.Items {
		if r.ID != referralID {
			continue
		}
		if !CanTransition(r.Status, op) {
			return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, op, r.Status)
		}
		return nil
	}

	return nil
}

// ReferralOverview запрашивает первую страницу рефералов и статистику параллельно.
func (s *Service) ReferralOverview(ctx context.Context, token string) (*ReferralOverview, error) {
	var overview ReferralOverview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.market.ListReferrals(gctx, token, 1, ReferralPageSize)
		if err != nil {
			return err
		}
		overview.Referrals = page
		return nil
	})
	g.Go(func() error {
		stats, err := s.market.ReferralStats(gctx, token)
		if err != nil {
			return err
		}
		overview.Stats = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}

func referralMessage(op ReferralOp) string {
	switch op {
	case OpMarkPaid:
		return "Referral marked as paid"
	case OpMarkIneligible:
		return "Referral marked as ineligible"
	default:
		return "Reward recalculated and payout retried"
	}
}

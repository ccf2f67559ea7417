package marketplace

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

const (
	msgFetchReferrals = "Failed to fetch referrals"
	msgFetchStats     = "Failed to fetch referral stats"
	msgMarkPaid       = "Failed to mark referral as paid"
	msgMarkIneligible = "Failed to mark referral as ineligible"
	msgRecalculate    = "Failed to recalculate and retry referral reward"
	msgUpsertSettings = "Failed to update referral settings"
)

type markPaidBody struct {
	ReferralID     string  `json:"referralId"`
	OverrideAmount float64 `json:"overrideAmount"`
	Note           string  `json:"note,omitempty"`
}

type markIneligibleBody struct {
	ReferralID string `json:"referralId"`
	Reason     string `json:"reason"`
}

// ListReferrals запрашивает страницу реферальных связей.
func (c *Client) ListReferrals(ctx context.Context, token string, page, limit int) (*model.Page[model.Referral], error) {
	raw, err := c.do(ctx, token, request{
		method:   http.MethodGet,
		path:     "/referrals",
		query:    pageQuery(page, limit),
		fallback: msgFetchReferrals,
	})
	if err != nil {
		return nil, err
	}

	return decodePage[model.Referral](raw, page, limit)
}

// ReferralStats запрашивает агрегированную статистику реферальной программы.
func (c *Client) ReferralStats(ctx context.Context, token string) (*model.ReferralStats, error) {
	raw, err := c.do(ctx, token, request{
		method:   http.MethodGet,
		path:     "/referrals/stats",
		fallback: msgFetchStats,
	})
	if err != nil {
		return nil, err
	}

	var stats model.ReferralStats
	if err := decodeEntity(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// MarkReferralPaid отмечает вознаграждение выплаченным с ручной суммой.
func (c *Client) MarkReferralPaid(ctx context.Context, token, referralID string, amount decimal.Decimal, note string) error {
	_, err := c.do(ctx, token, request{
		method: http.MethodPatch,
		path:   "/referrals/admin/mark-paid",
		body: markPaidBody{
			ReferralID:     referralID,
			OverrideAmount: amount.InexactFloat64(),
			Note:           note,
		},
		fallback: msgMarkPaid,
	})
	return err
}

// MarkReferralIneligible отклоняет вознаграждение с указанием причины.
func (c *Client) MarkReferralIneligible(ctx context.Context, token, referralID, reason string) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodPatch,
		path:     "/referrals/admin/mark-ineligible",
		body:     markIneligibleBody{ReferralID: referralID, Reason: reason},
		fallback: msgMarkIneligible,
	})
	return err
}

// RecalculateAndRetry пересчитывает вознаграждение и повторяет попытку выплаты.
func (c *Client) RecalculateAndRetry(ctx context.Context, token, referralID string) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodPatch,
		path:     "/referrals/admin/recalculate-and-retry/" + url.PathEscape(referralID),
		fallback: msgRecalculate,
	})
	return err
}

// UpsertReferralSettings частично обновляет настройки реферальной программы.
func (c *Client) UpsertReferralSettings(ctx context.Context, token string, settings model.ReferralSettings) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodPost,
		path:     "/referrals/upsert",
		body:     settings,
		fallback: msgUpsertSettings,
	})
	return err
}

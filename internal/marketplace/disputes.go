package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

const (
	msgFetchDisputes  = "Failed to fetch disputes"
	msgFetchDispute   = "Failed to fetch dispute"
	msgResolveDispute = "Failed to resolve dispute"
)

type commentBody struct {
	Comment string `json:"comment"`
}

type splitBody struct {
	BuyerPercentage float64 `json:"buyerPercentage"`
	Comment         string  `json:"comment"`
}

// ListDisputes запрашивает страницу споров, при необходимости с фильтром по статусу.
func (c *Client) ListDisputes(ctx context.Context, token string, page, limit int, status model.DisputeStatus) (*model.Page[model.Dispute], error) {
	q := pageQuery(page, limit)
	if status != "" {
		q.Set("status", string(status))
	}

	raw, err := c.do(ctx, token, request{
		method:   http.MethodGet,
		path:     "/disputes",
		query:    q,
		fallback: msgFetchDisputes,
	})
	if err != nil {
		return nil, err
	}

	return decodePage[model.Dispute](raw, page, limit)
}

// GetDispute запрашивает спор по идентификатору.
func (c *Client) GetDispute(ctx context.Context, token, id string) (*model.Dispute, error) {
	raw, err := c.do(ctx, token, request{
		method:   http.MethodGet,
		path:     "/disputes/" + url.PathEscape(id),
		fallback: msgFetchDispute,
	})
	if err != nil {
		return nil, err
	}

	var d model.Dispute
	if err := decodeEntity(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// RefundBuyer возвращает покупателю спорную долю платежа.
func (c *Client) RefundBuyer(ctx context.Context, token, disputeID, comment string) error {
	return c.resolve(ctx, token, disputeID, "refund-buyer", commentBody{Comment: comment})
}

// PaySeller перечисляет продавцу удержанную сумму.
func (c *Client) PaySeller(ctx context.Context, token, disputeID, comment string) error {
	return c.resolve(ctx, token, disputeID, "pay-seller", commentBody{Comment: comment})
}

// SplitPayment делит платёж между покупателем и продавцом.
func (c *Client) SplitPayment(ctx context.Context, token, disputeID string, buyerPercentage float64, comment string) error {
	return c.resolve(ctx, token, disputeID, "split-payment", splitBody{
		BuyerPercentage: buyerPercentage,
		Comment:         comment,
	})
}

// RequestRework возвращает работу продавцу на доработку без движения средств.
func (c *Client) RequestRework(ctx context.Context, token, disputeID, comment string) error {
	return c.resolve(ctx, token, disputeID, "request-rework", commentBody{Comment: comment})
}

func (c *Client) resolve(ctx context.Context, token, disputeID, op string, body any) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodPatch,
		path:     "/disputes/admin/" + url.PathEscape(disputeID) + "/" + op,
		body:     body,
		fallback: msgResolveDispute,
	})
	return err
}

// ResolveFailure подменяет общую формулировку ошибки на "Failed to resolve dispute",
// чтобы любой сбой в ходе решения спора показывался одинаково.
// Сообщения, пришедшие от бэкенда, не меняются.
func ResolveFailure(err error) error {
	var remote *RemoteError
	if !errors.As(err, &remote) || !remote.Fallback {
		return err
	}
	return &RemoteError{
		StatusCode: remote.StatusCode,
		Message:    msgResolveDispute,
		Cause:      remote.Cause,
		Fallback:   true,
	}
}

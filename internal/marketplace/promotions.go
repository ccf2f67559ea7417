package marketplace

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

const (
	msgFetchPromotions = "Failed to fetch promotions"
	msgCreatePromotion = "Failed to create promotion"
	msgUpdatePromotion = "Failed to update promotion"
	msgDeletePromotion = "Failed to delete promotion"
)

// ListPromotions запрашивает страницу промо-предложений.
func (c *Client) ListPromotions(ctx context.Context, token string, page, limit int) (*model.Page[model.Promotion], error) {
	raw, err := c.do(ctx, token, request{
		method:   http.MethodGet,
		path:     "/promotions",
		query:    pageQuery(page, limit),
		fallback: msgFetchPromotions,
	})
	if err != nil {
		return nil, err
	}

	return decodePage[model.Promotion](raw, page, limit)
}

// CreatePromotion создаёт промо-предложение.
func (c *Client) CreatePromotion(ctx context.Context, token string, in model.PromotionInput) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodPost,
		path:     "/promotions",
		body:     in,
		fallback: msgCreatePromotion,
	})
	return err
}

// UpdatePromotion изменяет промо-предложение.
func (c *Client) UpdatePromotion(ctx context.Context, token, id string, in model.PromotionInput) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodPatch,
		path:     "/promotions/" + url.PathEscape(id),
		body:     in,
		fallback: msgUpdatePromotion,
	})
	return err
}

// DeletePromotion удаляет промо-предложение.
func (c *Client) DeletePromotion(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, token, request{
		method:   http.MethodDelete,
		path:     "/promotions/" + url.PathEscape(id),
		fallback: msgDeletePromotion,
	})
	return err
}

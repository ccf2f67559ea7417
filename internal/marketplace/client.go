// Package marketplace предоставляет клиент REST API бэкенда маркетплейса.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

// ErrUnauthorized возвращается, если у администратора нет действующего токена доступа.
// Запрос к бэкенду в этом случае не отправляется.
var ErrUnauthorized = errors.New("session expired, please sign in again")

// ErrNotConfigured возвращается, если адрес бэкенда не задан.
var ErrNotConfigured = errors.New("marketplace client not configured")

const maxErrorBody = 1 << 20

// RemoteError описывает неуспешный ответ бэкенда или сетевую ошибку.
// Message всегда пригоден для показа администратору.
// Fallback означает, что Message взят из общей формулировки операции, а не из ответа бэкенда.
type RemoteError struct {
	StatusCode int
	Message    string
	Cause      error
	Fallback   bool
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом маркетплейса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создаёт клиент бэкенда по указанному базовому адресу.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:    base,
		httpClient: cleanhttp.DefaultPooledClient(),
		logger:     logger,
	}
}

// BaseURL возвращает нормализованный базовый адрес бэкенда.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	fallback string
}

func (c *Client) do(ctx context.Context, token string, r request) ([]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("marketplace request failed",
			zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return nil, &RemoteError{Message: r.fallback, Cause: err, Fallback: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := extractMessage(raw)
		fallback := msg == ""
		if fallback {
			msg = r.fallback
		}
		c.logger.Info("marketplace returned error",
			zap.String("method", r.method), zap.String("path", r.path),
			zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: msg, Fallback: fallback}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: r.fallback, Cause: fmt.Errorf("read response: %w", err), Fallback: true}
	}

	return raw, nil
}

// extractMessage достаёт текст ошибки из полей message, error или detail тела ответа.
func extractMessage(raw []byte) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	for _, key := range []string{"message", "error", "detail"} {
		v, ok := body[key]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(v, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}

		var list []string
		if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}

	return ""
}

// decodeEntity декодирует сущность, в том числе обёрнутую в {"data": ...}.
func decodeEntity(raw []byte, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if data, ok := envelope["data"]; ok && len(data) > 0 && data[0] == '{' {
			raw = data
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type pageEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Items json.RawMessage `json:"items"`
	Total *int            `json:"total"`
	Page  *int            `json:"page"`
	Limit *int            `json:"limit"`
	Meta  *struct {
		Total int `json:"total"`
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"meta"`
}

// decodePage принимает как голый массив, так и конверт {data|items, total, page, limit}.
func decodePage[T any](raw []byte, page, limit int) (*model.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	res := &model.Page[T]{Items: []T{}, Page: page, Limit: limit}

	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &res.Items); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		res.Total = len(res.Items)
		return res, nil
	}

	var env pageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := env.Items
	if len(items) == 0 {
		items = env.Data
	}
	if trimmed := bytes.TrimSpace(items); len(trimmed) > 0 && trimmed[0] == '{' {
		return decodePage[T](trimmed, page, limit)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &res.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		if res.Items == nil {
			res.Items = []T{}
		}
	}

	res.Total = len(res.Items)
	if env.Meta != nil {
		res.Total = env.Meta.Total
		if env.Meta.Page > 0 {
			res.Page = env.Meta.Page
		}
		if env.Meta.Limit > 0 {
			res.Limit = env.Meta.Limit
		}
	}
	if env.Total != nil {
		res.Total = *env.Total
	}
	if env.Page != nil {
		res.Page = *env.Page
	}
	if env.Limit != nil {
		res.Limit = *env.Limit
	}

	return res, nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

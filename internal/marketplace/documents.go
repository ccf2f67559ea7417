package marketplace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

const msgDownloadDocument = "Failed to download document"

// Document описывает поток загружаемого документа.
type Document struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	FileName      string
}

// FetchDocument загружает документ (например, доказательство по спору) по абсолютному адресу.
// Токен администратора передаётся только на хост бэкенда маркетплейса.
func (c *Client) FetchDocument(ctx context.Context, token string, target *url.URL) (*Document, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.sameHost(target) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("document download failed", zap.String("host", target.Host), zap.Error(err))
		return nil, &RemoteError{Message: msgDownloadDocument, Cause: err, Fallback: true}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: msgDownloadDocument, Fallback: true}
	}

	name := path.Base(target.Path)
	if name == "." || name == "/" {
		name = "document"
	}

	return &Document{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		FileName:      name,
	}, nil
}

func (c *Client) sameHost(target *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil || c.baseURL == "" {
		return false
	}
	return strings.EqualFold(base.Host, target.Host)
}

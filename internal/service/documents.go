package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/h2non/filetype"

	"github.com/mmeshcher/marketplace-admin/internal/marketplace"
)

var (
	// ErrDocumentURL возвращается, если адрес документа не является абсолютным http(s) адресом.
	ErrDocumentURL = errors.New("document url must be an absolute http or https url")
	// ErrDocumentHost возвращается, если хост документа не входит в список разрешённых.
	ErrDocumentHost = errors.New("document host is not allowed")
)

const sniffLen = 262

// DownloadDocument проверяет адрес документа и возвращает поток для отдачи клиенту.
func (s *Service) DownloadDocument(ctx context.Context, token, rawURL string) (*marketplace.Document, error) {
	target, err := s.documentURL(rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := s.market.FetchDocument(ctx, token, target)
	if err != nil {
		return nil, err
	}

	if needsSniff(doc.ContentType) {
		br := bufio.NewReaderSize(doc.Body, sniffLen)
		head, _ := br.Peek(sniffLen)

		doc.ContentType = "application/octet-stream"
		if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
			doc.ContentType = kind.MIME.Value
		}
		doc.Body = readCloser{Reader: br, Closer: doc.Body}
	}

	return doc, nil
}

func (s *Service) documentURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, ErrDocumentURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrDocumentURL
	}

	if len(s.allowedHosts) > 0 {
		if _, ok := s.allowedHosts[strings.ToLower(u.Hostname())]; !ok {
			return nil, ErrDocumentHost
		}
	}
	return u, nil
}

func needsSniff(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return mt == "application/octet-stream" || mt == "binary/octet-stream"
}

type readCloser struct {
	io.Reader
	io.Closer
}

package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBody(t *testing.T, s string) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func readBody(t *testing.T, res *http.Response) []byte {
	t.Helper()
	defer res.Body.Close()

	var r io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(res.Body)
		require.NoError(t, err)
		defer gr.Close()
		r = gr
	}

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return body
}

// resolveEcho отвечает так же, как ручка решения спора: JSON с эхом полей формы или ошибкой.
func resolveEcho(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Action          string  `json:"action"`
		BuyerPercentage float64 `json:"buyerPercentage"`
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || form.Action == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "please fill in all required fields"})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"action":           form.Action,
		"sellerPercentage": 100 - form.BuyerPercentage,
	})
}

func TestGzipMiddleware(t *testing.T) {
	type want struct {
		statusCode      int
		contentEncoding string
		body            string
	}

	tests := []struct {
		name           string
		body           string
		compress       bool
		acceptEncoding string
		want           want
	}{
		{
			name:           "compressed resolve, compressed answer",
			body:           `{"action":"SPLIT_PAYMENT","buyerPercentage":40}`,
			compress:       true,
			acceptEncoding: "gzip, deflate",
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "gzip",
				body:            `{"action":"SPLIT_PAYMENT","sellerPercentage":60}`,
			},
		},
		{
			name:     "compressed resolve, plain answer",
			body:     `{"action":"REFUND_BUYER"}`,
			compress: true,
			want: want{
				statusCode: http.StatusOK,
				body:       `{"action":"REFUND_BUYER","sellerPercentage":100}`,
			},
		},
		{
			name:           "validation error is compressed too",
			body:           `{"comment":"no action"}`,
			acceptEncoding: "gzip",
			want: want{
				statusCode:      http.StatusUnprocessableEntity,
				contentEncoding: "gzip",
				body:            `{"error":"please fill in all required fields"}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.body)
			if tt.compress {
				body = gzipBody(t, tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/admin/disputes/d1/resolve", body)
			req.Header.Set("Content-Type", "application/json")
			if tt.compress {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()

			GzipMiddleware(http.HandlerFunc(resolveEcho)).ServeHTTP(rec, req)

			res := rec.Result()
			assert.Equal(t, tt.want.statusCode, res.StatusCode)
			assert.Equal(t, tt.want.contentEncoding, res.Header.Get("Content-Encoding"))
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
			assert.JSONEq(t, tt.want.body, string(readBody(t, res)))
		})
	}
}

func TestGzipMiddleware_CorruptBody(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/referrals/r1/mark-paid",
		strings.NewReader(`{"overrideAmount":"12.50"}`))
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	GzipMiddleware(next).ServeHTTP(rec, req)

	res := rec.Result()
	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Empty(t, res.Header.Get("Content-Encoding"))
	assert.Equal(t, http.StatusText(http.StatusBadRequest)+"\n", string(readBody(t, res)))
}

func TestGzipMiddleware_NoContent(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/referrals/settings",
		gzipBody(t, `{"rewardAmount":"10"}`))
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	GzipMiddleware(next).ServeHTTP(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, res.Header.Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestGzipMiddleware_ImplicitOK(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	GzipMiddleware(next).ServeHTTP(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "gzip", res.Header.Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", res.Header.Get("Vary"))
	assert.Equal(t, `{"status":"ok"}`, string(readBody(t, res)))
}

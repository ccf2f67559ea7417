package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return NewClient(ts.URL, nil)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSplitPayment_SendsPercentageAndComment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("method = %s, want PATCH", r.Method)
		}
		if r.URL.Path != "/disputes/admin/d1/split-payment" {
			t.Fatalf("path = %s, want /disputes/admin/d1/split-payment", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization = %q, want Bearer tok", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["buyerPercentage"] != float64(40) || body["comment"] != "fair split agreed" {
			t.Fatalf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.SplitPayment(testCtx(t), "tok", "d1", 40, "fair split agreed"); err != nil {
		t.Fatalf("SplitPayment error: %v", err)
	}
}

func TestResolveOperations_CommentOnlyBodies(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(c *Client) error
	}{
		{
			name: "refund buyer",
			path: "/disputes/admin/d2/refund-buyer",
			call: func(c *Client) error { return c.RefundBuyer(context.Background(), "tok", "d2", "refund") },
		},
		{
			name: "pay seller",
			path: "/disputes/admin/d2/pay-seller",
			call: func(c *Client) error { return c.PaySeller(context.Background(), "tok", "d2", "refund") },
		},
		{
			name: "request rework",
			path: "/disputes/admin/d2/request-rework",
			call: func(c *Client) error { return c.RequestRework(context.Background(), "tok", "d2", "refund") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				raw, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"comment":"refund"}`, string(raw))
				w.WriteHeader(http.StatusNoContent)
			})

			require.NoError(t, tt.call(client))
		})
	}
}

func TestRemoteErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "message field", status: 500, body: `{"message":"booking not found"}`, wantMsg: "booking not found"},
		{name: "error field", status: 400, body: `{"error":"dispute already resolved"}`, wantMsg: "dispute already resolved"},
		{name: "detail field", status: 422, body: `{"detail":"invalid comment"}`, wantMsg: "invalid comment"},
		{name: "message list", status: 400, body: `{"message":["comment must be a string","comment should not be empty"]}`, wantMsg: "comment must be a string; comment should not be empty"},
		{name: "message wins over error", status: 404, body: `{"statusCode":404,"message":"not here","error":"Not Found"}`, wantMsg: "not here"},
		{name: "no json", status: 502, body: `<html>bad gateway</html>`, wantMsg: "Failed to resolve dispute"},
		{name: "empty message", status: 500, body: `{"message":""}`, wantMsg: "Failed to resolve dispute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.PaySeller(testCtx(t), "tok", "d1", "ok")

			var remote *RemoteError
			require.True(t, errors.As(err, &remote), "expected RemoteError, got %v", err)
			assert.Equal(t, tt.status, remote.StatusCode)
			assert.Equal(t, tt.wantMsg, remote.Error())
			assert.Equal(t, tt.wantMsg == "Failed to resolve dispute", remote.Fallback)
		})
	}
}

func TestNetworkErrorUsesFallbackMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(ts.URL, nil)
	ts.Close()

	err := client.RequestRework(testCtx(t), "tok", "d1", "again")

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "Failed to resolve dispute", remote.Message)
	assert.Zero(t, remote.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestResolveFailure_ReplacesOnlyFallbackMessages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(ts.URL, nil)
	ts.Close()

	_, err := client.GetDispute(testCtx(t), "tok", "d1")
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "Failed to fetch dispute", remote.Message)

	err = ResolveFailure(err)
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "Failed to resolve dispute", remote.Message)
	assert.NotNil(t, errors.Unwrap(err), "network cause is kept")

	backend := &RemoteError{StatusCode: 404, Message: "dispute not found"}
	assert.Same(t, backend, ResolveFailure(backend))

	plain := errors.New("boom")
	assert.Equal(t, plain, ResolveFailure(plain))
}

func TestMissingTokenIssuesNoRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := client.MarkReferralIneligible(testCtx(t), "  ", "r1", "fraud")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called, "request must not be sent without token")
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", nil)
	_, err := client.ListDisputes(context.Background(), "tok", 1, 50, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListDisputes_EnvelopeAndQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/disputes", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "OPEN", r.URL.Query().Get("status"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"d1","status":"Open","buyer":{"id":"b1","fullName":"Ada"}}],"total":7}`))
	})

	page, err := client.ListDisputes(testCtx(t), "tok", 1, 50, model.DisputeStatusOpen)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.DisputeStatusOpen, page.Items[0].Status)
	assert.Equal(t, "Ada", page.Items[0].Buyer.FullName)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.Limit)
}

func TestListReferrals_BareArrayAndNestedEnvelope(t *testing.T) {
	bodies := []string{
		`[{"id":"r1","status":"PENDING","rewardAmount":null}]`,
		`{"data":{"items":[{"id":"r1","status":"PENDING","rewardAmount":null}],"meta":{"total":1,"page":1,"limit":100}}}`,
	}

	for _, body := range bodies {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		page, err := client.ListReferrals(testCtx(t), "tok", 1, 100)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, model.ReferralStatusPending, page.Items[0].Status)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, 100, page.Limit)
	}
}

func TestMarkReferralPaid_Body(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/referrals/admin/mark-paid", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"referralId":"r1","overrideAmount":5000,"note":"manual override"}`, string(raw))
	})

	err := client.MarkReferralPaid(testCtx(t), "tok", "r1", decimal.NewFromInt(5000), "manual override")
	require.NoError(t, err)
}

func TestMarkReferralPaid_OmitsEmptyNote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"referralId":"r1","overrideAmount":12.5}`, string(raw))
	})

	require.NoError(t, client.MarkReferralPaid(testCtx(t), "tok", "r1", decimal.RequireFromString("12.5"), ""))
}

func TestRecalculateAndRetry_Path(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/referrals/admin/recalculate-and-retry/r%201", r.URL.EscapedPath())
		assert.Equal(t, int64(0), r.ContentLength)
	})

	require.NoError(t, client.RecalculateAndRetry(testCtx(t), "tok", "r 1"))
}

func TestReferralStats_Decode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/referrals/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"totalReferrals":10,"pending":4,"paid":5,"ineligible":1,"totalRewardsPaid":25000}}`))
	})

	stats, err := client.ReferralStats(testCtx(t), "tok")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalReferrals)
	assert.Equal(t, 5, stats.Paid)
	assert.Equal(t, "25000", stats.TotalRewardsPaid.String())
}

func TestFetchDocument_TokenOnlyForBackendHost(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer storage.Close()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("x"))
	}))
	defer backend.Close()

	client := NewClient(backend.URL, nil)

	target, _ := url.Parse(storage.URL + "/evidence/receipt.pdf")
	doc, err := client.FetchDocument(testCtx(t), "tok", target)
	require.NoError(t, err)
	defer doc.Body.Close()
	assert.Equal(t, "receipt.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.ContentType)

	own, _ := url.Parse(backend.URL + "/files/1")
	doc2, err := client.FetchDocument(testCtx(t), "tok", own)
	require.NoError(t, err)
	doc2.Body.Close()
}

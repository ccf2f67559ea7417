package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDisputeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want DisputeStatus
	}{
		{raw: "New", want: DisputeStatusNew},
		{raw: "open", want: DisputeStatusOpen},
		{raw: "Under review", want: DisputeStatusUnderReview},
		{raw: "under-review", want: DisputeStatusUnderReview},
		{raw: " RESOLVED ", want: DisputeStatusResolved},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDisputeStatus(tt.raw))
		})
	}
}

func TestDisputeDecodeNormalizesStatus(t *testing.T) {
	var d Dispute
	err := json.Unmarshal([]byte(`{"id":"d1","status":"Under review","evidenceUrls":["a","b"]}`), &d)
	require.NoError(t, err)

	assert.Equal(t, DisputeStatusUnderReview, d.Status)
	assert.False(t, d.Status.IsTerminal())
	assert.Equal(t, []string{"a", "b"}, d.EvidenceURLs)
}

func TestResolutionActionIsValid(t *testing.T) {
	assert.True(t, ActionSplitPayment.IsValid())
	assert.False(t, ResolutionAction("").IsValid())
	assert.False(t, ResolutionAction("split_payment").IsValid())
}

func TestPromotionEffectiveStatus(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Promotion{StartsAt: start, EndsAt: start.Add(48 * time.Hour)}

	assert.Equal(t, PromotionStatusDraft, p.EffectiveStatus(start.Add(-time.Minute)))
	assert.Equal(t, PromotionStatusActive, p.EffectiveStatus(start))
	assert.Equal(t, PromotionStatusActive, p.EffectiveStatus(start.Add(24*time.Hour)))
	assert.Equal(t, PromotionStatusExpired, p.EffectiveStatus(start.Add(48*time.Hour)))
}

func TestReferralDecodeNullableReward(t *testing.T) {
	var r Referral
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","status":"PENDING","rewardAmount":null}`), &r))
	assert.False(t, r.RewardAmount.Valid)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"r2","status":"PAID","rewardAmount":5000,"rewardPaid":true}`), &r))
	assert.True(t, r.RewardAmount.Valid)
	assert.Equal(t, "5000", r.RewardAmount.Decimal.String())
	assert.True(t, r.RewardPaid)
}

func TestReferralDecodeNormalizesStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want ReferralStatus
	}{
		{raw: `"paid"`, want: ReferralStatusPaid},
		{raw: `" Pending "`, want: ReferralStatusPending},
		{raw: `"INELIGIBLE"`, want: ReferralStatusIneligible},
		{raw: `"processing"`, want: ReferralStatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var r Referral
			require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","status":`+tt.raw+`}`), &r))
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

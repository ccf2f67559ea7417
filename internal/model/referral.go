package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReferralStatus описывает этап жизненного цикла реферального вознаграждения.
type ReferralStatus string

const (
	ReferralStatusPending    ReferralStatus = "PENDING"
	ReferralStatusProcessing ReferralStatus = "PROCESSING"
	ReferralStatusPaid       ReferralStatus = "PAID"
	ReferralStatusIneligible ReferralStatus = "INELIGIBLE"
)

// ParseReferralStatus приводит статус из ответа бэкенда к каноническому виду.
func ParseReferralStatus(raw string) ReferralStatus {
	return ReferralStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

// UnmarshalJSON нормализует статус при декодировании ответа бэкенда.
func (s *ReferralStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseReferralStatus(raw)
	return nil
}

// ReferralParty описывает пригласившего или приглашённого пользователя.
type ReferralParty struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Referral описывает реферальную связь и состояние выплаты вознаграждения.
type Referral struct {
	ID                     string              `json:"id"`
	Referrer               ReferralParty       `json:"referrer"`
	Referred               ReferralParty       `json:"referred"`
	SignupDate             time.Time           `json:"signupDate"`
	FirstTransactionStatus string              `json:"firstTransactionStatus"`
	Status                 ReferralStatus      `json:"status"`
	RewardAmount           decimal.NullDecimal `json:"rewardAmount"`
	RewardPaid             bool                `json:"rewardPaid"`
	Note                   string              `json:"note,omitempty"`
}

// ReferralStats содержит агрегированную статистику реферальной программы.
type ReferralStats struct {
	TotalReferrals   int             `json:"totalReferrals"`
	Pending          int             `json:"pending"`
	Processing       int             `json:"processing"`
	Paid             int             `json:"paid"`
	Ineligible       int             `json:"ineligible"`
	TotalRewardsPaid decimal.Decimal `json:"totalRewardsPaid"`
}

// ReferralSettings описывает частичное обновление настроек реферальной программы.
// Незаполненные поля не передаются бэкенду.
type ReferralSettings struct {
	Enabled              *bool            `json:"enabled,omitempty"`
	RewardAmount         *decimal.Decimal `json:"rewardAmount,omitempty"`
	RewardCurrency       *string          `json:"rewardCurrency,omitempty" validate:"omitempty,len=3"`
	MinTransactionAmount *decimal.Decimal `json:"minTransactionAmount,omitempty"`
	PayoutDelayDays      *int             `json:"payoutDelayDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	ExpiryDays           *int             `json:"expiryDays,omitempty" validate:"omitempty,gte=1"`
}

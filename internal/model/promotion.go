package model

import "time"

// PromotionStatus описывает фазу промо-предложения, вычисляемую по датам.
type PromotionStatus string

const (
	PromotionStatusDraft   PromotionStatus = "DRAFT"
	PromotionStatusActive  PromotionStatus = "ACTIVE"
	PromotionStatusExpired PromotionStatus = "EXPIRED"
)

// Promotion описывает промо-предложение маркетплейса.
type Promotion struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Code            string          `json:"code,omitempty"`
	DiscountPercent float64         `json:"discountPercent"`
	StartsAt        time.Time       `json:"startsAt"`
	EndsAt          time.Time       `json:"endsAt"`
	Status          PromotionStatus `json:"status,omitempty"`
}

// EffectiveStatus вычисляет фазу предложения на момент now.
func (p Promotion) EffectiveStatus(now time.Time) PromotionStatus {
	switch {
	case now.Before(p.StartsAt):
		return PromotionStatusDraft
	case !p.EndsAt.IsZero() && !now.Before(p.EndsAt):
		return PromotionStatusExpired
	default:
		return PromotionStatusActive
	}
}

// PromotionInput описывает данные для создания или изменения промо-предложения.
type PromotionInput struct {
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description,omitempty" validate:"max=2000"`
	Code            string    `json:"code,omitempty" validate:"omitempty,alphanum,max=32"`
	DiscountPercent float64   `json:"discountPercent" validate:"gt=0,lte=100"`
	StartsAt        time.Time `json:"startsAt" validate:"required"`
	EndsAt          time.Time `json:"endsAt" validate:"required"`
}

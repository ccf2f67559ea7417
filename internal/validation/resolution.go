// Package validation содержит проверки входных данных действий администратора.
package validation

import (
	"errors"
	"strings"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

var (
	// ErrMissingFields возвращается, если не выбрано действие или не заполнены обязательные поля.
	ErrMissingFields = errors.New("please fill in all required fields")
	// ErrSplitOutOfRange возвращается, если доля покупателя выходит за пределы [0, 70].
	ErrSplitOutOfRange = errors.New("buyer percentage must be between 0 and 70")
)

// Границы доли покупателя при разделении платежа.
const (
	MinBuyerPercentage = 0
	MaxBuyerPercentage = 70
)

// ResolutionOption связывает подпись в интерфейсе с решением по спору.
type ResolutionOption struct {
	Label  string                 `json:"label"`
	Action model.ResolutionAction `json:"action"`
}

var resolutionOptions = []ResolutionOption{
	{Label: "Refund Buyer (70%)", Action: model.ActionRefundBuyer},
	{Label: "Pay Seller (65%)", Action: model.ActionPaySeller},
	{Label: "Split Payment Between Buyer & Seller", Action: model.ActionSplitPayment},
	{Label: "Request Rework", Action: model.ActionRequestRework},
}

// ResolutionOptions возвращает фиксированную таблицу вариантов решения.
func ResolutionOptions() []ResolutionOption {
	out := make([]ResolutionOption, len(resolutionOptions))
	copy(out, resolutionOptions)
	return out
}

// ActionByLabel ищет решение по точному совпадению подписи.
func ActionByLabel(label string) (model.ResolutionAction, bool) {
	for _, o := range resolutionOptions {
		if o.Label == label {
			return o.Action, true
		}
	}
	return "", false
}

// ValidateResolution проверяет выбранное решение, долю покупателя и комментарий.
// Доля продавца выводится из доли покупателя и отдельно не проверяется.
func ValidateResolution(action model.ResolutionAction, buyerPercentage float64, comment string) error {
	if !action.IsValid() || strings.TrimSpace(comment) == "" {
		return ErrMissingFields
	}

	if action == model.ActionSplitPayment &&
		(buyerPercentage < MinBuyerPercentage || buyerPercentage > MaxBuyerPercentage) {
		return ErrSplitOutOfRange
	}

	return nil
}

// SellerPercentage возвращает долю продавца при разделении платежа.
func SellerPercentage(buyerPercentage float64) float64 {
	return 100 - buyerPercentage
}

// IsValidationError сообщает, что ошибка относится к локальной проверке ввода.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrSplitOutOfRange) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidInput)
}

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/marketplace-admin/internal/model"
)

var (
	// ErrInvalidAmount возвращается, если сумма не является неотрицательным числом.
	ErrInvalidAmount = errors.New("override amount must be a valid non-negative number")
	// ErrInvalidInput возвращается при ошибках проверки по тегам структуры.
	ErrInvalidInput = errors.New("invalid input")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseOverrideAmount разбирает сумму ручной выплаты, введённую администратором.
func ParseOverrideAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrMissingFields
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	return amount, nil
}

// ValidateIneligibleReason проверяет причину отказа в вознаграждении.
func ValidateIneligibleReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrMissingFields
	}
	return nil
}

// ValidateReferralSettings проверяет частичное обновление настроек реферальной программы.
func ValidateReferralSettings(s model.ReferralSettings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
	}
	if s.RewardAmount != nil && s.RewardAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if s.MinTransactionAmount != nil && s.MinTransactionAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidatePromotion проверяет данные промо-предложения.
func ValidatePromotion(in model.PromotionInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
	}
	if !in.EndsAt.After(in.StartsAt) {
		return fmt.Errorf("%w: endsAt must be after startsAt", ErrInvalidInput)
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

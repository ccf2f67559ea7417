// Package model содержит доменные сущности административной панели маркетплейса.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DisputeStatus описывает статус спора по бронированию.
type DisputeStatus string

const (
	DisputeStatusNew         DisputeStatus = "NEW"
	DisputeStatusOpen        DisputeStatus = "OPEN"
	DisputeStatusUnderReview DisputeStatus = "UNDER_REVIEW"
	DisputeStatusResolved    DisputeStatus = "RESOLVED"
)

// ParseDisputeStatus приводит статус из API или подписи интерфейса ("Under review") к каноничному виду.
func ParseDisputeStatus(raw string) DisputeStatus {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return DisputeStatus(s)
}

// UnmarshalJSON нормализует статус при декодировании ответа бэкенда.
func (s *DisputeStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseDisputeStatus(raw)
	return nil
}

// IsTerminal сообщает, что по спору больше нельзя принимать решение.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved
}

// ResolutionAction описывает одно из взаимоисключающих решений по спору.
type ResolutionAction string

const (
	ActionRefundBuyer   ResolutionAction = "REFUND_BUYER"
	ActionPaySeller     ResolutionAction = "PAY_SELLER"
	ActionSplitPayment  ResolutionAction = "SPLIT_PAYMENT"
	ActionRequestRework ResolutionAction = "REQUEST_REWORK"
)

// IsValid проверяет, что действие входит в перечень допустимых решений.
func (a ResolutionAction) IsValid() bool {
	switch a {
	case ActionRefundBuyer, ActionPaySeller, ActionSplitPayment, ActionRequestRework:
		return true
	}
	return false
}

// PartyRole описывает сторону, открывшую спор.
type PartyRole string

const (
	RoleBuyer  PartyRole = "Buyer"
	RoleSeller PartyRole = "Seller"
)

// Party описывает участника сделки.
type Party struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// BookingSummary содержит краткие сведения о бронировании, по которому открыт спор.
type BookingSummary struct {
	ServiceTitle string `json:"serviceTitle"`
	Status       string `json:"status"`
}

// Dispute описывает спор между покупателем и продавцом.
type Dispute struct {
	ID             string         `json:"id"`
	BookingID      string         `json:"bookingId"`
	Buyer          Party          `json:"buyer"`
	Seller         *Party         `json:"seller,omitempty"`
	Reason         string         `json:"reason"`
	Description    string         `json:"description"`
	Status         DisputeStatus  `json:"status"`
	EvidenceURLs   []string       `json:"evidenceUrls"`
	CreatedAt      time.Time      `json:"createdAt"`
	ResolveComment *string        `json:"resolveComment,omitempty"`
	OpenedByRole   PartyRole      `json:"openedByRole"`
	Booking        BookingSummary `json:"booking"`
}

// Page описывает одну страницу коллекции, полученной от бэкенда.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// AuditEntry описывает запись журнала действий администратора.
type AuditEntry struct {
	ID           string          `json:"id"`
	EntityType   string          `json:"entityType"`
	EntityID     string          `json:"entityId"`
	Action       string          `json:"action"`
	Actor        string          `json:"actor"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Outcome      string          `json:"outcome"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Результаты действий администратора в журнале.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

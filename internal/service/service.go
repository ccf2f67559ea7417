// Package service реализует правила административной панели: разрешение споров,
// управление реферальными выплатами и обновление данных после изменений.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-admin/internal/marketplace"
	"github.com/mmeshcher/marketplace-admin/internal/model"
	"github.com/mmeshcher/marketplace-admin/internal/operation"
)

// Marketplace описывает операции бэкенда маркетплейса, используемые сервисом.
type Marketplace interface {
	ListDisputes(ctx context.Context, token string, page, limit int, status model.DisputeStatus) (*model.Page[model.Dispute], error)
	GetDispute(ctx context.Context, token, id string) (*model.Dispute, error)
	RefundBuyer(ctx context.Context, token, disputeID, comment string) error
	PaySeller(ctx context.Context, token, disputeID, comment string) error
	SplitPayment(ctx context.Context, token, disputeID string, buyerPercentage float64, comment string) error
	RequestRework(ctx context.Context, token, disputeID, comment string) error

	ListReferrals(ctx context.Context, token string, page, limit int) (*model.Page[model.Referral], error)
	ReferralStats(ctx context.Context, token string) (*model.ReferralStats, error)
	MarkReferralPaid(ctx context.Context, token, referralID string, amount decimal.Decimal, note string) error
	MarkReferralIneligible(ctx context.Context, token, referralID, reason string) error
	RecalculateAndRetry(ctx context.Context, token, referralID string) error
	UpsertReferralSettings(ctx context.Context, token string, settings model.ReferralSettings) error

	ListPromotions(ctx context.Context, token string, page, limit int) (*model.Page[model.Promotion], error)
	CreatePromotion(ctx context.Context, token string, in model.PromotionInput) error
	UpdatePromotion(ctx context.Context, token, id string, in model.PromotionInput) error
	DeletePromotion(ctx context.Context, token, id string) error

	FetchDocument(ctx context.Context, token string, target *url.URL) (*marketplace.Document, error)
}

// AuditRepository описывает контракт журнала действий администраторов.
type AuditRepository interface {
	Close() error
	RecordAction(ctx context.Context, e model.AuditEntry) error
	ListActions(ctx context.Context, entityType, entityID string, limit int) ([]model.AuditEntry, error)
}

// Timings задаёт паузы, которые клиент выдерживает после успешного действия.
// На корректность они не влияют и возвращаются клиенту как подсказка.
type Timings struct {
	DisputeDismissDelay    time.Duration
	ReferralBannerDuration time.Duration
}

// DefaultTimings возвращает стандартные паузы интерфейса.
func DefaultTimings() Timings {
	return Timings{
		DisputeDismissDelay:    500 * time.Millisecond,
		ReferralBannerDuration: 2 * time.Second,
	}
}

// Options содержит необязательные параметры сервиса.
type Options struct {
	Timings              Timings
	AllowedDocumentHosts []string
}

const (
	auditQueueSize    = 256
	auditWriteTimeout = 10 * time.Second
)

// Service содержит бизнес-логику административной панели.
type Service struct {
	market       Marketplace
	audit        AuditRepository
	tracker      *operation.Tracker
	logger       *zap.Logger
	timings      Timings
	allowedHosts map[string]struct{}
	nowFn        func() time.Time

	auditMu     sync.RWMutex
	auditClosed bool
	auditCh     chan model.AuditEntry
	auditDone   chan struct{}
}

// NewService создаёт сервис. audit может быть nil, тогда журнал не ведётся.
func NewService(market Marketplace, audit AuditRepository, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timings == (Timings{}) {
		opts.Timings = DefaultTimings()
	}

	hosts := make(map[string]struct{}, len(opts.AllowedDocumentHosts))
	for _, h := range opts.AllowedDocumentHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = struct{}{}
		}
	}

	s := &Service{
		market:       market,
		audit:        audit,
		tracker:      operation.NewTracker(),
		logger:       logger,
		timings:      opts.Timings,
		allowedHosts: hosts,
		nowFn:        time.Now,
	}

	if audit != nil {
		s.auditCh = make(chan model.AuditEntry, auditQueueSize)
		s.auditDone = make(chan struct{})
		go s.writeAudit()
	}

	return s
}

// Close дописывает накопленные записи журнала и закрывает ресурсы сервиса.
// Повторный вызов ничего не делает.
func (s *Service) Close() error {
	if s.audit == nil {
		return nil
	}

	s.auditMu.Lock()
	if s.auditClosed {
		s.auditMu.Unlock()
		return nil
	}
	s.auditClosed = true
	close(s.auditCh)
	s.auditMu.Unlock()

	<-s.auditDone
	return s.audit.Close()
}

// Виды сущностей, для которых отслеживаются действия.
const (
	KindDispute   = "dispute"
	KindReferral  = "referral"
	KindPromotion = "promotion"
)

// ErrUnknownKind возвращается при запросе состояния для неизвестного вида сущности.
var ErrUnknownKind = errors.New("unknown entity kind")

// OperationState возвращает состояние последнего действия над сущностью.
func (s *Service) OperationState(kind, id string) (operation.State, error) {
	switch kind {
	case KindDispute, KindReferral, KindPromotion:
		return s.tracker.Get(operation.Key(kind, id)), nil
	}
	return operation.State{}, ErrUnknownKind
}

// AuditTrail возвращает журнал действий по сущности.
func (s *Service) AuditTrail(ctx context.Context, entityType, entityID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if s.audit == nil {
		return []model.AuditEntry{}, nil
	}

	entries, err := s.audit.ListActions(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	return entries, nil
}

// record ставит действие в очередь журнала. Запись идёт в фоне,
// ни задержка, ни ошибка журнала не влияют на результат действия.
func (s *Service) record(actor, kind, id, action string, payload any, actionErr error) {
	if s.audit == nil {
		return
	}

	entry := model.AuditEntry{
		ID:         uuid.NewString(),
		EntityType: kind,
		EntityID:   id,
		Action:     action,
		Actor:      actor,
		Outcome:    model.OutcomeSucceeded,
		CreatedAt:  s.nowFn().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			entry.Payload = raw
		}
	}
	if actionErr != nil {
		entry.Outcome = model.OutcomeFailed
		entry.ErrorMessage = actionErr.Error()
	}

	s.auditMu.RLock()
	defer s.auditMu.RUnlock()

	if s.auditClosed {
		s.logger.Warn("admin action not recorded, service is closed",
			zap.String("kind", kind), zap.String("id", id), zap.String("action", action))
		return
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Error("admin action not recorded, audit queue is full",
			zap.String("kind", kind), zap.String("id", id), zap.String("action", action))
	}
}

func (s *Service) writeAudit() {
	defer close(s.auditDone)

	for e := range s.auditCh {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := s.audit.RecordAction(ctx, e); err != nil {
			s.logger.Error("record admin action error", zap.Error(err),
				zap.String("kind", e.EntityType), zap.String("id", e.EntityID), zap.String("action", e.Action))
		}
		cancel()
	}
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 500 {
		limit = 500
	}
	return page, limit
}

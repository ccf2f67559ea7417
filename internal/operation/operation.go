// Package operation описывает жизненный цикл одного действия администратора
// (Idle -> Submitting -> Succeeded | Failed) и защищает от повторной отправки.
package operation

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrBusy возвращается при попытке начать действие, пока предыдущее ещё выполняется.
	ErrBusy = errors.New("operation already in progress")
	// ErrInvalidTransition возвращается при событии, недопустимом в текущем состоянии.
	ErrInvalidTransition = errors.New("invalid operation transition")
)

// Status описывает состояние действия.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusSubmitting Status = "SUBMITTING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
)

// State содержит текущее состояние действия и последнюю ошибку.
type State struct {
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventKind описывает тип события.
type EventKind int

const (
	EventSubmit EventKind = iota
	EventSucceed
	EventFail
	EventReset
)

// Event переводит действие в следующее состояние.
type Event struct {
	Kind EventKind
	Err  error
	At   time.Time
}

// Reduce вычисляет следующее состояние действия. Других способов сменить состояние нет.
func Reduce(s State, e Event) (State, error) {
	if s.Status == "" {
		s.Status = StatusIdle
	}

	switch e.Kind {
	case EventSubmit:
		if s.Status == StatusSubmitting {
			return s, ErrBusy
		}
		return State{Status: StatusSubmitting, UpdatedAt: e.At}, nil
	case EventSucceed:
		if s.Status != StatusSubmitting {
			return s, ErrInvalidTransition
		}
		return State{Status: StatusSucceeded, UpdatedAt: e.At}, nil
	case EventFail:
		if s.Status != StatusSubmitting {
			return s, ErrInvalidTransition
		}
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		return State{Status: StatusFailed, Error: msg, UpdatedAt: e.At}, nil
	case EventReset:
		return State{Status: StatusIdle, UpdatedAt: e.At}, nil
	}

	return s, ErrInvalidTransition
}

// DefaultRetention задаёт, сколько хранится завершённое действие.
const DefaultRetention = 15 * time.Minute

// Tracker хранит состояние действий по ключу сущности, например "dispute:d1".
// Завершённые действия удаляются через retention после последнего изменения.
type Tracker struct {
	mu        sync.Mutex
	states    map[string]State
	nowFn     func() time.Time
	retention time.Duration
	lastSweep time.Time
}

// NewTracker создаёт пустой трекер действий.
func NewTracker() *Tracker {
	return &Tracker{
		states:    make(map[string]State),
		nowFn:     time.Now,
		retention: DefaultRetention,
	}
}

// Begin переводит действие в состояние Submitting или возвращает ErrBusy.
func (t *Tracker) Begin(key string) error {
	return t.apply(key, Event{Kind: EventSubmit})
}

// Finish фиксирует результат действия: успех при err == nil, иначе ошибку.
func (t *Tracker) Finish(key string, err error) {
	e := Event{Kind: EventSucceed}
	if err != nil {
		e = Event{Kind: EventFail, Err: err}
	}
	_ = t.apply(key, e)
}

// Reset возвращает действие в исходное состояние и забывает его.
func (t *Tracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.states, key)
}

// Get возвращает состояние действия, для неизвестного ключа Idle.
func (t *Tracker) Get(key string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[key]
	if !ok || t.expired(s, t.nowFn()) {
		return State{Status: StatusIdle}
	}
	return s
}

// Len возвращает число действий, которые хранит трекер.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.states)
}

func (t *Tracker) apply(key string, e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.At = t.nowFn()
	t.sweep(e.At)

	next, err := Reduce(t.states[key], e)
	if err != nil {
		return err
	}
	t.states[key] = next
	return nil
}

// sweep удаляет устаревшие завершённые действия не чаще раза в retention.
func (t *Tracker) sweep(now time.Time) {
	if t.retention <= 0 || now.Sub(t.lastSweep) < t.retention {
		return
	}
	t.lastSweep = now

	for key, s := range t.states {
		if t.expired(s, now) {
			delete(t.states, key)
		}
	}
}

func (t *Tracker) expired(s State, now time.Time) bool {
	if t.retention <= 0 || s.Status == StatusSubmitting {
		return false
	}
	return now.Sub(s.UpdatedAt) >= t.retention
}

// Key строит ключ трекера для сущности.
func Key(kind, id string) string {
	return kind + ":" + id
}

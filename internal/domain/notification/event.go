package notification

import (
	"context"

	"github.com/peercall/peercall-hub/internal/domain/matching"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Event определяет событие жизненного цикла матча, о котором уведомляются
// участники.
type Event string

const (
	// EventNewMatch - матч создан, участникам предлагается подтвердить.
	EventNewMatch Event = "new_match"

	// EventConfirmed - оба участника подтвердили матч.
	EventConfirmed Event = "confirmed"

	// EventCanceled - матч отменён.
	EventCanceled Event = "canceled"

	// EventPostMatch - звонок состоялся, участникам отправляется follow-up.
	EventPostMatch Event = "post_match"
)

// IsValid проверяет корректность события.
func (e Event) IsValid() bool {
	switch e {
	case EventNewMatch, EventConfirmed, EventCanceled, EventPostMatch:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление события.
func (e Event) String() string {
	return string(e)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Notifier доставляет уведомление о событии обоим участникам матча.
// С точки зрения вызывающего кода доставка - fire-and-forget: ошибка
// логируется, но не прерывает проход и не откатывает переход.
type Notifier interface {
	Notify(ctx context.Context, event Event, match matching.Match) error
}

// NoOpNotifier реализация по умолчанию, ничего не отправляет.
// Используется в тестах и при выключенных каналах доставки.
type NoOpNotifier struct{}

// Notify ничего не делает.
func (NoOpNotifier) Notify(context.Context, Event, matching.Match) error {
	return nil
}

package matching

import (
	"context"
	"time"
)

// PendingFilter сужает выборку матчей в состоянии Pending.
type PendingFilter int

const (
	// FilterAll - все Pending матчи.
	FilterAll PendingFilter = iota

	// FilterScheduledToday - Pending матчи, запланированные на сегодня.
	FilterScheduledToday

	// FilterPastDue - Pending матчи, запланированное время которых прошло.
	FilterPastDue
)

// UserRepository предоставляет доступ к пользователям подбора.
type UserRepository interface {
	// FindUnmatched возвращает пользователей, ожидающих подбора.
	FindUnmatched(ctx context.Context) ([]User, error)

	// FindByID возвращает пользователя по идентификатору.
	// Возвращает shared.ErrUserNotFound, если пользователь не найден.
	FindByID(ctx context.Context, id UserID) (User, error)
}

// MatchRepository предоставляет доступ к матчам.
type MatchRepository interface {
	// Create сохраняет новый Pending матч для пары пользователей.
	Create(ctx context.Context, first, second User, schedule time.Time) (Match, error)

	// FindByID возвращает матч по идентификатору.
	// Возвращает shared.ErrMatchNotFound, если матч не найден.
	FindByID(ctx context.Context, id MatchID) (Match, error)

	// Save сохраняет новое состояние матча.
	Save(ctx context.Context, match Match) (Match, error)

	// FindPending возвращает Pending матчи, удовлетворяющие фильтру.
	FindPending(ctx context.Context, filter PendingFilter) ([]Match, error)
}

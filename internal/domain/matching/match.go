package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH STATUS
// ══════════════════════════════════════════════════════════════════════════════

// MatchStatus представляет состояние жизненного цикла матча.
type MatchStatus string

const (
	// StatusPending - матч создан, ожидает подтверждения обоих участников.
	StatusPending MatchStatus = "Pending"

	// StatusConfirmed - оба участника подтвердили матч.
	StatusConfirmed MatchStatus = "Confirmed"

	// StatusCanceled - матч отменён до подтверждения. Терминальное состояние.
	StatusCanceled MatchStatus = "Canceled"

	// StatusComplete - звонок состоялся. Терминальное состояние.
	StatusComplete MatchStatus = "Complete"

	// StatusInvalid - нераспознанное сохранённое состояние. Терминальное,
	// никакие переходы из него невозможны.
	StatusInvalid MatchStatus = "Invalid"
)

// IsValid проверяет, что статус - одно из известных состояний (кроме Invalid).
func (s MatchStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCanceled, StatusComplete:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true для состояний, из которых нет переходов.
func (s MatchStatus) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusComplete, StatusInvalid:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление статуса.
func (s MatchStatus) String() string {
	return string(s)
}

// ParseMatchStatus разбирает сохранённый статус. Нераспознанная строка
// отображается в StatusInvalid вместе с ошибкой: матч остаётся читаемым,
// но становится недействующим.
func ParseMatchStatus(raw string) (MatchStatus, error) {
	switch MatchStatus(strings.TrimSpace(raw)) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCanceled:
		return StatusCanceled, nil
	case StatusComplete:
		return StatusComplete, nil
	default:
		return StatusInvalid, shared.WrapError("matching", "ParseStatus", shared.ErrInvalidFormat,
			fmt.Sprintf("unrecognized match status %q", raw), nil)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPANTS
// ══════════════════════════════════════════════════════════════════════════════

// UserPair представляет двух участников матча. Порядок не несёт смысла.
type UserPair struct {
	First  User
	Second User
}

// NewUserPair создаёт пару участников. Пользователь не может быть
// сматчен сам с собой.
func NewUserPair(first, second User) (UserPair, error) {
	if !first.ID.IsValid() || !second.ID.IsValid() {
		return UserPair{}, shared.ErrInvalidUserID
	}
	if first.Equal(second) {
		return UserPair{}, shared.ErrSelfMatch
	}

	return UserPair{First: first, Second: second}, nil
}

// Contains проверяет, является ли пользователь участником пары.
func (p UserPair) Contains(id UserID) bool {
	return p.First.ID == id || p.Second.ID == id
}

// Other возвращает второго участника пары относительно id.
func (p UserPair) Other(id UserID) (User, bool) {
	switch id {
	case p.First.ID:
		return p.Second, true
	case p.Second.ID:
		return p.First, true
	default:
		return User{}, false
	}
}

// IDs возвращает идентификаторы участников.
func (p UserPair) IDs() [2]UserID {
	return [2]UserID{p.First.ID, p.Second.ID}
}

// ConfirmedParticipants хранит подтверждения участников. Пустое значение
// UserID означает свободный слот. Слоты могут ссылаться только на участников
// матча и никогда не содержат одного пользователя дважды.
type ConfirmedParticipants struct {
	A UserID
	B UserID
}

// Populated возвращает true, когда оба слота заняты.
func (c ConfirmedParticipants) Populated() bool {
	return c.A != "" && c.B != ""
}

// Contains проверяет, подтвердил ли пользователь матч.
func (c ConfirmedParticipants) Contains(id UserID) bool {
	if id == "" {
		return false
	}
	return c.A == id || c.B == id
}

// withAdded возвращает копию с id в первом свободном слоте.
func (c ConfirmedParticipants) withAdded(id UserID) ConfirmedParticipants {
	if c.A == "" {
		return ConfirmedParticipants{A: id, B: c.B}
	}
	return ConfirmedParticipants{A: c.A, B: id}
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCH ENTITY
// Матч неизменяем: каждый переход возвращает новое значение. Матчи никогда
// не удаляются, только переводятся в терминальное состояние.
// ══════════════════════════════════════════════════════════════════════════════

// Match представляет запланированный звонок двух участников.
type Match struct {
	// ID - неизменный идентификатор матча.
	ID MatchID

	// Participants - пара участников.
	Participants UserPair

	// Schedule - момент звонка (UTC).
	Schedule time.Time

	// Status - текущее состояние жизненного цикла.
	Status MatchStatus

	// Link - ссылка на звонок, вставляется в уведомления.
	Link string

	// CallNumber - порядковый номер звонка для пары.
	CallNumber int

	// Confirmed - подтверждения участников.
	Confirmed ConfirmedParticipants

	// CreatedAt - когда матч создан.
	CreatedAt time.Time

	// UpdatedAt - время последнего перехода.
	UpdatedAt time.Time
}

// NewMatchParams параметры для создания матча.
type NewMatchParams struct {
	ID           MatchID
	Participants UserPair
	Schedule     time.Time
	Link         string
	CallNumber   int
	CreatedAt    time.Time
}

// NewMatch создаёт матч в состоянии Pending.
func NewMatch(params NewMatchParams) (Match, error) {
	if !params.ID.IsValid() {
		return Match{}, shared.ErrInvalidMatchID
	}
	if !params.Participants.First.ID.IsValid() || !params.Participants.Second.ID.IsValid() {
		return Match{}, shared.ErrInvalidUserID
	}
	if params.Participants.First.Equal(params.Participants.Second) {
		return Match{}, shared.ErrSelfMatch
	}

	return Match{
		ID:           params.ID,
		Participants: params.Participants,
		Schedule:     params.Schedule.UTC(),
		Status:       StatusPending,
		Link:         params.Link,
		CallNumber:   params.CallNumber,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}, nil
}

// HasParticipant проверяет, является ли пользователь участником матча.
func (m Match) HasParticipant(id UserID) bool {
	return m.Participants.Contains(id)
}

// ───────────────────────── предикаты переходов ─────────────────────────

// CanBeConfirmed возвращает true, когда матч можно перевести в Confirmed:
// он Pending и оба участника подтвердили.
func (m Match) CanBeConfirmed() bool {
	return m.Status == StatusPending && m.Confirmed.Populated()
}

// CanBeCancelled возвращает true, когда матч можно отменить. Отмена после
// подтверждения запрещена.
func (m Match) CanBeCancelled() bool {
	return m.Status == StatusPending
}

// CanBeCompleted возвращает true, когда звонок можно считать состоявшимся:
// матч подтверждён и запланированное время строго в прошлом.
func (m Match) CanBeCompleted(now time.Time) bool {
	return m.Status == StatusConfirmed && m.Schedule.Before(now.UTC())
}

// ───────────────────────── переходы ─────────────────────────

// ConfirmParticipant регистрирует подтверждение участника и возвращает
// новое значение матча. Разрешено только в Pending, только участнику
// и только один раз на участника.
func (m Match) ConfirmParticipant(id UserID, now time.Time) (Match, error) {
	if m.Status != StatusPending {
		return Match{}, shared.WrapError("matching", "ConfirmParticipant", shared.ErrStateTransition,
			fmt.Sprintf("match %s is %s, expected %s", m.ID, m.Status, StatusPending), nil)
	}
	if !m.HasParticipant(id) {
		return Match{}, shared.ErrNotParticipant
	}
	if m.Confirmed.Contains(id) {
		return Match{}, shared.ErrAlreadyConfirmed
	}

	next := m
	next.Confirmed = m.Confirmed.withAdded(id)
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Confirm переводит матч в Confirmed. Допустим только при CanBeConfirmed.
func (m Match) Confirm(now time.Time) (Match, error) {
	if !m.CanBeConfirmed() {
		return Match{}, shared.WrapError("matching", "Confirm", shared.ErrStateTransition,
			fmt.Sprintf("match %s cannot be confirmed in status %s", m.ID, m.Status), nil)
	}

	next := m
	next.Status = StatusConfirmed
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Cancel переводит матч в Canceled. Допустим только при CanBeCancelled.
func (m Match) Cancel(now time.Time) (Match, error) {
	if !m.CanBeCancelled() {
		return Match{}, shared.WrapError("matching", "Cancel", shared.ErrStateTransition,
			fmt.Sprintf("match %s cannot be canceled in status %s", m.ID, m.Status), nil)
	}

	next := m
	next.Status = StatusCanceled
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Complete переводит матч в Complete. Допустим только при CanBeCompleted.
func (m Match) Complete(now time.Time) (Match, error) {
	if !m.CanBeCompleted(now) {
		return Match{}, shared.WrapError("matching", "Complete", shared.ErrStateTransition,
			fmt.Sprintf("match %s cannot be completed in status %s", m.ID, m.Status), nil)
	}

	next := m
	next.Status = StatusComplete
	next.UpdatedAt = now.UTC()
	return next, nil
}

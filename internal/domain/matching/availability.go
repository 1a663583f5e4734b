// Package matching содержит доменную модель подбора звонков PeerCall Hub.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AVAILABILITY BLOCK
// Блок доступности — один временной слот (UTC), в который пользователь
// готов принять звонок.
// ══════════════════════════════════════════════════════════════════════════════

// AvailabilityBlock представляет один слот доступности пользователя.
// Значение неизменяемо; равенство определяется точным совпадением метки времени.
type AvailabilityBlock struct {
	// At - абсолютная метка времени слота (всегда UTC).
	At time.Time
}

// NewAvailabilityBlock создаёт блок доступности, нормализуя время к UTC.
func NewAvailabilityBlock(at time.Time) AvailabilityBlock {
	return AvailabilityBlock{At: at.UTC()}
}

// Equal проверяет точное совпадение слотов. Окно допуска отсутствует:
// два блока совместимы только при равенстве меток времени.
func (b AvailabilityBlock) Equal(other AvailabilityBlock) bool {
	return b.At.Equal(other.At)
}

// OverlapsWith - синоним Equal: слоты пересекаются только при точном совпадении.
func (b AvailabilityBlock) OverlapsWith(other AvailabilityBlock) bool {
	return b.Equal(other)
}

// Before возвращает true, если слот раньше target.
func (b AvailabilityBlock) Before(target AvailabilityBlock) bool {
	return b.At.Before(target.At)
}

// After возвращает true, если слот позже target.
func (b AvailabilityBlock) After(target AvailabilityBlock) bool {
	return b.At.After(target.At)
}

// IsApproaching определяет, попадает ли слот в горизонт приближения:
// now + horizon >= At.
func (b AvailabilityBlock) IsApproaching(now time.Time, horizon time.Duration) bool {
	suspect := now.UTC().Add(horizon)
	return suspect.After(b.At) || suspect.Equal(b.At)
}

// String возвращает строковое представление слота (RFC3339).
func (b AvailabilityBlock) String() string {
	return b.At.Format(time.RFC3339)
}

// ══════════════════════════════════════════════════════════════════════════════
// SYMBOLIC CONSTRUCTION
// Слоты задаются пользователями символически: день недели + каноническое
// время суток. Фактическая дата вычисляется от текущего момента.
// ══════════════════════════════════════════════════════════════════════════════

// Day представляет день недели (0 = воскресенье ... 6 = суббота).
type Day int

const (
	Sunday Day = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// IsValid проверяет корректность дня недели.
func (d Day) IsValid() bool {
	return d >= Sunday && d <= Saturday
}

// String возвращает английское название дня.
func (d Day) String() string {
	names := [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	if !d.IsValid() {
		return "Unknown"
	}
	return names[d]
}

// ParseDay разбирает название дня недели.
func ParseDay(s string) (Day, error) {
	switch strings.TrimSpace(s) {
	case "Sunday":
		return Sunday, nil
	case "Monday":
		return Monday, nil
	case "Tuesday":
		return Tuesday, nil
	case "Wednesday":
		return Wednesday, nil
	case "Thursday":
		return Thursday, nil
	case "Friday":
		return Friday, nil
	case "Saturday":
		return Saturday, nil
	default:
		return 0, shared.WrapError("matching", "ParseDay", shared.ErrInvalidFormat,
			fmt.Sprintf("unknown day of week %q", s), nil)
	}
}

// TimeOfDay представляет каноническое время слота. Слоты предлагаются
// пользователям фиксированным набором (восточное время США).
type TimeOfDay struct {
	// Hour - час (0-23).
	Hour int

	// Minute - минута (0-59).
	Minute int

	// Label - подпись слота, как она показана пользователю.
	Label string
}

// Канонические слоты времени.
var (
	ET10AM = TimeOfDay{Hour: 10, Minute: 0, Label: "10 AM ET"}
	ET12PM = TimeOfDay{Hour: 12, Minute: 0, Label: "12 PM ET"}
	ET3PM  = TimeOfDay{Hour: 15, Minute: 0, Label: "3 PM ET"}
	ET6PM  = TimeOfDay{Hour: 18, Minute: 0, Label: "6 PM ET"}
	ET9PM  = TimeOfDay{Hour: 21, Minute: 0, Label: "9 PM ET"}
)

// Equal проверяет совпадение канонических времён.
func (t TimeOfDay) Equal(other TimeOfDay) bool {
	return t.Hour == other.Hour && t.Minute == other.Minute && t.Label == other.Label
}

// ParseTimeOfDay разбирает подпись канонического слота.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch strings.TrimSpace(s) {
	case ET10AM.Label:
		return ET10AM, nil
	case ET12PM.Label:
		return ET12PM, nil
	case ET3PM.Label:
		return ET3PM, nil
	case ET6PM.Label:
		return ET6PM, nil
	case ET9PM.Label:
		return ET9PM, nil
	default:
		return TimeOfDay{}, shared.WrapError("matching", "ParseTimeOfDay", shared.ErrInvalidFormat,
			fmt.Sprintf("unknown time slot %q", s), nil)
	}
}

// BlockFromDayAndTime вычисляет следующую календарную дату для пары
// «день недели + время» относительно now. Сегодняшний день считается
// подходящим, если совпадает с целевым.
//
// Формула: desired = now + |targetDay - currentDay| дней.
//
// TODO: формула не переносит на следующую неделю дни, которые уже прошли
// (|target-current| даёт ту же дельту в обе стороны).
// TODO: канонические слоты заданы в ET, но час подставляется как UTC без
// конвертации часового пояса.
func BlockFromDayAndTime(day Day, tod TimeOfDay, now time.Time) (AvailabilityBlock, error) {
	if !day.IsValid() {
		return AvailabilityBlock{}, shared.ErrInvalidAvailability
	}

	current := now.UTC()
	daysToAdd := int(day) - int(current.Weekday())
	if daysToAdd < 0 {
		daysToAdd = -daysToAdd
	}

	desired := current.AddDate(0, 0, daysToAdd)
	desired = time.Date(desired.Year(), desired.Month(), desired.Day(),
		tod.Hour, tod.Minute, 0, 0, time.UTC)

	return AvailabilityBlock{At: desired}, nil
}

// SortBlocks сортирует блоки по убыванию времени (самый поздний - первым).
// Весь домен рассчитан на этот порядок: нулевой индекс - последний
// предпочитаемый слот недели.
func SortBlocks(blocks []AvailabilityBlock) []AvailabilityBlock {
	sorted := make([]AvailabilityBlock, len(blocks))
	copy(sorted, blocks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].After(sorted[j])
	})

	return sorted
}

package matching

import (
	"strings"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет уникальный идентификатор пользователя.
type UserID string

// IsValid проверяет, что идентификатор непустой.
func (id UserID) IsValid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// String возвращает строковое представление идентификатора.
func (id UserID) String() string {
	return string(id)
}

// MatchID представляет уникальный идентификатор матча.
type MatchID string

// IsValid проверяет, что идентификатор непустой.
func (id MatchID) IsValid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// String возвращает строковое представление идентификатора.
func (id MatchID) String() string {
	return string(id)
}

// Topic представляет тему, которую пользователь готов обсуждать на звонке.
type Topic string

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// Пользователь, ожидающий подбора. Идентичность неизменна после создания;
// слоты доступности - изменяемое от цикла к циклу предпочтение.
// ══════════════════════════════════════════════════════════════════════════════

// User представляет участника подбора звонков.
type User struct {
	// ID - неизменный идентификатор. Два пользователя равны тогда и только
	// тогда, когда равны их идентификаторы.
	ID UserID

	// Name - отображаемое имя.
	Name string

	// Email - адрес для email-уведомлений.
	Email string

	// Phone - номер для SMS-уведомлений.
	Phone string

	// Adult - совершеннолетний ли пользователь.
	Adult bool

	// Availabilities - слоты доступности, всегда отсортированы по убыванию
	// времени (самый поздний - первым). Порядок фиксирован: нулевой индекс
	// используется как «последний предпочитаемый слот недели».
	Availabilities []AvailabilityBlock

	// Topics - темы пользователя.
	Topics []Topic

	// LastMatchID - ссылка на последний матч пользователя (пустая, если
	// пользователь ещё не подбирался).
	LastMatchID MatchID

	// CreatedAt - когда пользователь создан.
	CreatedAt time.Time
}

// NewUserParams параметры для создания пользователя.
type NewUserParams struct {
	ID             UserID
	Name           string
	Email          string
	Phone          string
	Adult          bool
	Availabilities []AvailabilityBlock
	Topics         []Topic
	LastMatchID    MatchID
	CreatedAt      time.Time
}

// NewUser создаёт пользователя. Слоты доступности сортируются по убыванию
// времени при создании и далее не переупорядочиваются.
func NewUser(params NewUserParams) (User, error) {
	if !params.ID.IsValid() {
		return User{}, shared.ErrInvalidUserID
	}

	return User{
		ID:             params.ID,
		Name:           params.Name,
		Email:          params.Email,
		Phone:          params.Phone,
		Adult:          params.Adult,
		Availabilities: SortBlocks(params.Availabilities),
		Topics:         params.Topics,
		LastMatchID:    params.LastMatchID,
		CreatedAt:      params.CreatedAt,
	}, nil
}

// Equal проверяет равенство пользователей по идентификатору.
func (u User) Equal(other User) bool {
	return u.ID == other.ID
}

// SharedAvailabilitiesWith возвращает слоты пользователя, точно совпадающие
// с одним из слотов other. Пользователь не имеет общих слотов с самим собой
// по определению.
func (u User) SharedAvailabilitiesWith(other User) []AvailabilityBlock {
	if u.Equal(other) {
		return nil
	}

	shared := make([]AvailabilityBlock, 0)
	for _, mine := range u.Availabilities {
		for _, theirs := range other.Availabilities {
			if mine.Equal(theirs) {
				shared = append(shared, mine)
				break
			}
		}
	}

	return shared
}

// CountSharedAvailabilitiesWith возвращает количество общих слотов.
func (u User) CountSharedAvailabilitiesWith(other User) int {
	return len(u.SharedAvailabilitiesWith(other))
}

// HasSharedAvailabilityWith возвращает true, если есть хотя бы один общий слот.
func (u User) HasSharedAvailabilityWith(other User) bool {
	return len(u.SharedAvailabilitiesWith(other)) > 0
}

// LastMatchedWith возвращает true, если последний матч пользователя - тот же,
// что и последний матч other (т.е. они уже звонили друг другу в прошлом цикле).
func (u User) LastMatchedWith(other User) bool {
	if u.LastMatchID == "" {
		return false
	}
	return u.LastMatchID == other.LastMatchID
}

// ApproachingLastAvailability возвращает true, если последний предпочитаемый
// слот недели (нулевой индекс при сортировке по убыванию) попадает в горизонт
// приближения.
func (u User) ApproachingLastAvailability(now time.Time, horizon time.Duration) bool {
	if len(u.Availabilities) == 0 {
		return false
	}
	return u.Availabilities[0].IsApproaching(now, horizon)
}

package matching

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VOLUNTEER FALLBACK
// ══════════════════════════════════════════════════════════════════════════════

// VolunteerRouter обрабатывает пользователей, для которых не нашлось пары,
// а последний предпочитаемый слот уже близко. Точка расширения: реализация
// может направлять таких пользователей на звонок с волонтёром.
type VolunteerRouter interface {
	// Route направляет пользователя на волонтёрский звонок.
	Route(user User) error
}

// NoOpVolunteerRouter реализация по умолчанию: никуда не направляет,
// пользователь просто учитывается в статистике прохода.
type NoOpVolunteerRouter struct{}

// Route ничего не делает.
func (NoOpVolunteerRouter) Route(User) error {
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ALLOCATOR
// Жадный однопроходный аллокатор: идёт по пулу несматченных пользователей,
// для каждого искателя выбирает лучшего кандидата по оценке совместимости
// и выводит обоих из пула. Каждый пользователь заканчивает проход ровно
// в одном из трёх исходов: спарен, отложен или направлен к волонтёру.
// ══════════════════════════════════════════════════════════════════════════════

// AllocationResult итог одного прохода аллокатора. Значение, а не
// накапливаемое состояние: аллокатор не хранит счётчиков между проходами.
type AllocationResult struct {
	// Matches - сформированные пары.
	Matches []MatchInfo

	// Deferred - пользователи без кандидатов, отложенные до следующего прохода.
	Deferred []User

	// VolunteerRouted - пользователи, направленные к волонтёру.
	VolunteerRouted []User
}

// DeferredCount возвращает количество отложенных пользователей.
func (r AllocationResult) DeferredCount() int {
	return len(r.Deferred)
}

// VolunteerRoutedCount возвращает количество направленных к волонтёру.
func (r AllocationResult) VolunteerRoutedCount() int {
	return len(r.VolunteerRouted)
}

// Allocator подбирает пары из пула несматченных пользователей.
type Allocator struct {
	weights   Weights
	horizon   time.Duration
	volunteer VolunteerRouter
}

// AllocatorParams параметры для создания аллокатора.
type AllocatorParams struct {
	// Weights - веса оценки совместимости.
	Weights Weights

	// Horizon - горизонт приближения последнего слота (MatchByDaysPrior).
	Horizon time.Duration

	// Volunteer - маршрутизатор волонтёрских звонков. nil означает NoOp.
	Volunteer VolunteerRouter
}

// NewAllocator создаёт аллокатор.
func NewAllocator(params AllocatorParams) *Allocator {
	volunteer := params.Volunteer
	if volunteer == nil {
		volunteer = NoOpVolunteerRouter{}
	}

	return &Allocator{
		weights:   params.Weights,
		horizon:   params.Horizon,
		volunteer: volunteer,
	}
}

// Allocate выполняет один жадный проход по пулу. Пул обходится в исходном
// порядке; искатель - первый ещё не обработанный пользователь. Никто не
// спаривается с самим собой и ни один пользователь не попадает в две пары.
func (a *Allocator) Allocate(pool []User, now time.Time) AllocationResult {
	result := AllocationResult{
		Matches: make([]MatchInfo, 0),
	}

	remaining := make([]User, len(pool))
	copy(remaining, pool)

	for len(remaining) > 0 {
		seeker := remaining[0]
		remaining = remaining[1:]

		candidates := a.candidatesFor(seeker, remaining)
		best, ok := candidates.Best()
		if !ok {
			a.settle(seeker, now, &result)
			continue
		}

		remaining = removeUser(remaining, best.Candidate.ID)

		// Слоты отсортированы по убыванию: нулевой индекс общего списка -
		// самый поздний общий слот.
		result.Matches = append(result.Matches, MatchInfo{
			First:    seeker,
			Second:   best.Candidate,
			Schedule: best.Shared[0],
		})
	}

	return result
}

// candidatesFor строит список кандидатов искателя: пользователи пула,
// имеющие с ним хотя бы один общий слот.
func (a *Allocator) candidatesFor(seeker User, pool []User) CandidateList {
	candidates := make(CandidateList, 0, len(pool))
	for _, other := range pool {
		sharedBlocks := seeker.SharedAvailabilitiesWith(other)
		if len(sharedBlocks) == 0 {
			continue
		}

		candidates = append(candidates, MatchCandidate{
			Candidate: other,
			Shared:    sharedBlocks,
			Score:     a.weights.Score(seeker, other),
		})
	}

	return candidates
}

// settle решает судьбу искателя без кандидатов: если его последний
// предпочитаемый слот уже близко - к волонтёру, иначе откладывается
// до следующего прохода.
func (a *Allocator) settle(seeker User, now time.Time, result *AllocationResult) {
	if seeker.ApproachingLastAvailability(now, a.horizon) {
		// Ошибка маршрутизации не снимает пользователя с прохода:
		// он всё равно учитывается как направленный.
		_ = a.volunteer.Route(seeker)
		result.VolunteerRouted = append(result.VolunteerRouted, seeker)
		return
	}

	result.Deferred = append(result.Deferred, seeker)
}

func removeUser(pool []User, id UserID) []User {
	filtered := make([]User, 0, len(pool))
	for _, u := range pool {
		if u.ID == id {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered
}

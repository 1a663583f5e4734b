package matching

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// SCORING
// ══════════════════════════════════════════════════════════════════════════════

// Weights задаёт веса оценки совместимости кандидатов.
type Weights struct {
	// Shared - вес за каждый общий слот доступности.
	Shared int

	// NoPriorMatch - бонус за отсутствие недавнего матча между кандидатами.
	NoPriorMatch int

	// DeadlineApproaching - вес приближающегося дедлайна. Присутствует в
	// конфигурации, но в расчёт оценки не входит.
	// TODO: применить вес к кандидатам с ApproachingLastAvailability.
	DeadlineApproaching int
}

// DefaultWeights возвращает веса по умолчанию.
func DefaultWeights() Weights {
	return Weights{
		Shared:              1,
		NoPriorMatch:        2,
		DeadlineApproaching: 3,
	}
}

// Score вычисляет оценку совместимости seeker и candidate:
// количество общих слотов, умноженное на Shared, плюс бонус NoPriorMatch,
// если в прошлом цикле они не звонили друг другу.
func (w Weights) Score(seeker, candidate User) int {
	score := seeker.CountSharedAvailabilitiesWith(candidate) * w.Shared
	if !seeker.LastMatchedWith(candidate) {
		score += w.NoPriorMatch
	}
	return score
}

// ══════════════════════════════════════════════════════════════════════════════
// CANDIDATES
// ══════════════════════════════════════════════════════════════════════════════

// MatchCandidate представляет кандидата для конкретного искателя: сам
// кандидат, общие слоты и оценка совместимости. Живёт только внутри
// одного прохода аллокатора.
type MatchCandidate struct {
	Candidate User
	Shared    []AvailabilityBlock
	Score     int
}

// CandidateList список кандидатов одного искателя.
type CandidateList []MatchCandidate

// Sort упорядочивает кандидатов по убыванию оценки. Равные оценки
// разрешаются детерминированно по возрастанию идентификатора, чтобы
// результат прохода не зависел от порядка пула.
func (l CandidateList) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Score != l[j].Score {
			return l[i].Score > l[j].Score
		}
		return l[i].Candidate.ID < l[j].Candidate.ID
	})
}

// Best возвращает лучшего кандидата после сортировки.
func (l CandidateList) Best() (MatchCandidate, bool) {
	if len(l) == 0 {
		return MatchCandidate{}, false
	}
	l.Sort()
	return l[0], true
}

// MatchInfo представляет готовую пару с выбранным слотом. Результат работы
// аллокатора, вход для создания матча.
type MatchInfo struct {
	First    User
	Second   User
	Schedule AvailabilityBlock
}

package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(router VolunteerRouter) *Allocator {
	return NewAllocator(AllocatorParams{
		Weights:   DefaultWeights(),
		Horizon:   24 * time.Hour,
		Volunteer: router,
	})
}

func TestWeights_Score(t *testing.T) {
	common1 := block(t, "2024-01-08T15:00:00Z")
	common2 := block(t, "2024-01-09T18:00:00Z")

	seeker := makeUser(t, "u1", common1, common2)
	candidate := makeUser(t, "u2", common1, common2)

	weights := DefaultWeights()

	// Two shared blocks plus the no-prior-match bonus.
	assert.Equal(t, 2*weights.Shared+weights.NoPriorMatch, weights.Score(seeker, candidate))

	// Same pair in the previous cycle: the bonus disappears.
	seeker.LastMatchID = "m1"
	candidate.LastMatchID = "m1"
	assert.Equal(t, 2*weights.Shared, weights.Score(seeker, candidate))
}

func TestCandidateList_SortDeterministicTieBreak(t *testing.T) {
	list := CandidateList{
		{Candidate: makeUser(t, "zeta"), Score: 3},
		{Candidate: makeUser(t, "alpha"), Score: 3},
		{Candidate: makeUser(t, "mid"), Score: 5},
	}

	list.Sort()

	assert.Equal(t, UserID("mid"), list[0].Candidate.ID)
	assert.Equal(t, UserID("alpha"), list[1].Candidate.ID)
	assert.Equal(t, UserID("zeta"), list[2].Candidate.ID)
}

func TestAllocate_TwoUserScenario(t *testing.T) {
	shared := block(t, "2024-01-08T15:00:00Z")

	u1 := makeUser(t, "u1", shared)
	u2 := makeUser(t, "u2", shared)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := newTestAllocator(nil).Allocate([]User{u1, u2}, now)

	require.Len(t, result.Matches, 1)
	info := result.Matches[0]
	assert.Equal(t, UserID("u1"), info.First.ID)
	assert.Equal(t, UserID("u2"), info.Second.ID)
	assert.Equal(t, shared, info.Schedule)
	assert.Zero(t, result.DeferredCount())
	assert.Zero(t, result.VolunteerRoutedCount())
}

func TestAllocate_UnmatchableUserDeferred(t *testing.T) {
	shared := block(t, "2024-01-08T15:00:00Z")

	a := makeUser(t, "a", shared)
	b := makeUser(t, "b", shared)
	c := makeUser(t, "c", block(t, "2024-01-09T10:00:00Z"))

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := newTestAllocator(nil).Allocate([]User{a, b, c}, now)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, UserID("a"), result.Matches[0].First.ID)
	assert.Equal(t, UserID("b"), result.Matches[0].Second.ID)

	require.Len(t, result.Deferred, 1)
	assert.Equal(t, UserID("c"), result.Deferred[0].ID)
}

func TestAllocate_PrefersHigherScore(t *testing.T) {
	slot1 := block(t, "2024-01-08T15:00:00Z")
	slot2 := block(t, "2024-01-09T18:00:00Z")

	a := makeUser(t, "a", slot1, slot2)
	b := makeUser(t, "b", slot1)
	c := makeUser(t, "c", slot1, slot2)
	d := makeUser(t, "d", slot1, slot2)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := newTestAllocator(nil).Allocate([]User{a, b, c, d}, now)

	// a shares two slots with c (and with d), one with b. Ties between c and
	// d break by lowest id, so a pairs with c.
	require.NotEmpty(t, result.Matches)
	first := result.Matches[0]
	assert.Equal(t, UserID("a"), first.First.ID)
	assert.Equal(t, UserID("c"), first.Second.ID)
}

func TestAllocate_ChoosesLatestSharedBlock(t *testing.T) {
	early := block(t, "2024-01-08T10:00:00Z")
	late := block(t, "2024-01-10T18:00:00Z")

	u1 := makeUser(t, "u1", early, late)
	u2 := makeUser(t, "u2", early, late)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := newTestAllocator(nil).Allocate([]User{u1, u2}, now)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, late, result.Matches[0].Schedule)
}

func TestAllocate_NoSelfPairNoDoublePair(t *testing.T) {
	shared := block(t, "2024-01-08T15:00:00Z")

	pool := []User{
		makeUser(t, "u1", shared),
		makeUser(t, "u2", shared),
		makeUser(t, "u3", shared),
		makeUser(t, "u4", shared),
		makeUser(t, "u5", shared),
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := newTestAllocator(nil).Allocate(pool, now)

	seen := make(map[UserID]int)
	for _, info := range result.Matches {
		assert.NotEqual(t, info.First.ID, info.Second.ID)
		seen[info.First.ID]++
		seen[info.Second.ID]++
	}
	for _, u := range result.Deferred {
		seen[u.ID]++
	}
	for _, u := range result.VolunteerRouted {
		seen[u.ID]++
	}

	// Every user ends the pass in exactly one outcome.
	require.Len(t, seen, len(pool))
	for id, count := range seen {
		assert.Equal(t, 1, count, "user %s appeared %d times", id, count)
	}
	assert.Len(t, result.Matches, 2)
	assert.Len(t, result.Deferred, 1)
}

type recordingRouter struct {
	routed []UserID
}

func (r *recordingRouter) Route(user User) error {
	r.routed = append(r.routed, user.ID)
	return nil
}

func TestAllocate_VolunteerFallbackWhenApproaching(t *testing.T) {
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	// Last preferred slot within the 24h horizon, no one to pair with.
	lonely := makeUser(t, "u1", block(t, "2024-01-09T10:00:00Z"))

	router := &recordingRouter{}
	result := newTestAllocator(router).Allocate([]User{lonely}, now)

	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Deferred)
	require.Len(t, result.VolunteerRouted, 1)
	assert.Equal(t, UserID("u1"), result.VolunteerRouted[0].ID)
	assert.Equal(t, []UserID{"u1"}, router.routed)
}

func TestAllocate_DeferredWhenNotApproaching(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	lonely := makeUser(t, "u1", block(t, "2024-01-09T10:00:00Z"))

	router := &recordingRouter{}
	result := newTestAllocator(router).Allocate([]User{lonely}, now)

	assert.Empty(t, result.Matches)
	assert.Empty(t, result.VolunteerRouted)
	require.Len(t, result.Deferred, 1)
	assert.Empty(t, router.routed)
}

func TestAllocate_EmptyPool(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := newTestAllocator(nil).Allocate(nil, now)

	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Deferred)
	assert.Empty(t, result.VolunteerRouted)
}

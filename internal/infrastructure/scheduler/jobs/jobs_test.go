package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/peercall/peercall-hub/internal/application/query"
	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
	"github.com/peercall/peercall-hub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeUserRepo struct {
	unmatched []matching.User
	err       error
}

func (f *fakeUserRepo) FindUnmatched(context.Context) ([]matching.User, error) {
	return f.unmatched, f.err
}

func (f *fakeUserRepo) FindByID(_ context.Context, id matching.UserID) (matching.User, error) {
	for _, u := range f.unmatched {
		if u.ID == id {
			return u, nil
		}
	}
	return matching.User{}, shared.ErrUserNotFound
}

type fakeMatchRepo struct {
	pending   []matching.Match
	created   []matching.Match
	saved     []matching.Match
	createErr error
	saveErr   error
}

func (f *fakeMatchRepo) Create(_ context.Context, first, second matching.User, schedule time.Time) (matching.Match, error) {
	if f.createErr != nil {
		return matching.Match{}, f.createErr
	}

	pair, err := matching.NewUserPair(first, second)
	if err != nil {
		return matching.Match{}, err
	}

	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           matching.MatchID(fmt.Sprintf("m%d", len(f.created)+1)),
		Participants: pair,
		Schedule:     schedule,
		CallNumber:   1,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return matching.Match{}, err
	}

	f.created = append(f.created, match)
	return match, nil
}

func (f *fakeMatchRepo) FindByID(_ context.Context, id matching.MatchID) (matching.Match, error) {
	for _, m := range f.pending {
		if m.ID == id {
			return m, nil
		}
	}
	return matching.Match{}, shared.ErrMatchNotFound
}

func (f *fakeMatchRepo) Save(_ context.Context, match matching.Match) (matching.Match, error) {
	if f.saveErr != nil {
		return matching.Match{}, f.saveErr
	}
	f.saved = append(f.saved, match)
	return match, nil
}

func (f *fakeMatchRepo) FindPending(context.Context, matching.PendingFilter) ([]matching.Match, error) {
	return f.pending, nil
}

type notified struct {
	Event   notification.Event
	MatchID matching.MatchID
}

type fakeNotifier struct {
	events []notified
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, event notification.Event, match matching.Match) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, notified{Event: event, MatchID: match.ID})
	return nil
}

type fakeStatsStore struct {
	stored []query.AllocationStats
}

func (f *fakeStatsStore) StoreAllocationStats(_ context.Context, stats query.AllocationStats) error {
	f.stored = append(f.stored, stats)
	return nil
}

type fakePassLock struct {
	held     bool
	acquired int
	released int
}

func (f *fakePassLock) AcquirePassLock(context.Context, string) (bool, error) {
	f.acquired++
	return !f.held, nil
}

func (f *fakePassLock) ReleasePassLock(context.Context, string) error {
	f.released++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func poolUser(t *testing.T, id string, slots ...time.Time) matching.User {
	t.Helper()

	blocks := make([]matching.AvailabilityBlock, 0, len(slots))
	for _, s := range slots {
		blocks = append(blocks, matching.NewAvailabilityBlock(s))
	}

	user, err := matching.NewUser(matching.NewUserParams{
		ID:             matching.UserID(id),
		Name:           "User " + id,
		Email:          id + "@example.com",
		Availabilities: blocks,
	})
	require.NoError(t, err)
	return user
}

func pendingMatch(t *testing.T, id string, schedule time.Time, status matching.MatchStatus) matching.Match {
	t.Helper()

	u1 := poolUser(t, id+"-a", schedule)
	u2 := poolUser(t, id+"-b", schedule)
	pair, err := matching.NewUserPair(u1, u2)
	require.NoError(t, err)

	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           matching.MatchID(id),
		Participants: pair,
		Schedule:     schedule,
		CallNumber:   1,
		CreatedAt:    schedule.Add(-7 * 24 * time.Hour),
	})
	require.NoError(t, err)

	match.Status = status
	return match
}

func testAllocator() *matching.Allocator {
	return matching.NewAllocator(matching.AllocatorParams{
		Weights: matching.DefaultWeights(),
		Horizon: 7 * 24 * time.Hour,
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Generation pass
// ─────────────────────────────────────────────────────────────────────────────

func TestGenerateMatchesJobCreatesAndNotifies(t *testing.T) {
	slot := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Hour)

	users := &fakeUserRepo{unmatched: []matching.User{
		poolUser(t, "u1", slot),
		poolUser(t, "u2", slot),
	}}
	matches := &fakeMatchRepo{}
	notifier := &fakeNotifier{}
	stats := &fakeStatsStore{}
	lock := &fakePassLock{}

	job := NewGenerateMatchesJob(GenerateMatchesParams{
		Users:     users,
		Matches:   matches,
		Allocator: testAllocator(),
		Notifier:  notifier,
		Stats:     stats,
		Lock:      lock,
		Logger:    quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, matches.created, 1)
	assert.Equal(t, matching.StatusPending, matches.created[0].Status)
	assert.True(t, matches.created[0].Schedule.Equal(slot))

	// One notification per match covers both participants.
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notification.EventNewMatch, notifier.events[0].Event)

	require.Len(t, stats.stored, 1)
	assert.Equal(t, 2, stats.stored[0].UnmatchedUsers)
	assert.Equal(t, 1, stats.stored[0].MatchesCreated)
	assert.Equal(t, 0, stats.stored[0].Deferred)

	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
}

func TestGenerateMatchesJobSkipsWhenLockHeld(t *testing.T) {
	users := &fakeUserRepo{unmatched: []matching.User{poolUser(t, "u1")}}
	matches := &fakeMatchRepo{}
	lock := &fakePassLock{held: true}

	job := NewGenerateMatchesJob(GenerateMatchesParams{
		Users:     users,
		Matches:   matches,
		Allocator: testAllocator(),
		Lock:      lock,
		Logger:    quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches.created)
	assert.Equal(t, 0, lock.released)
}

func TestGenerateMatchesJobContinuesAfterPersistFailure(t *testing.T) {
	slot := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Hour)

	users := &fakeUserRepo{unmatched: []matching.User{
		poolUser(t, "u1", slot),
		poolUser(t, "u2", slot),
	}}
	matches := &fakeMatchRepo{createErr: errors.New("connection reset")}
	notifier := &fakeNotifier{}
	stats := &fakeStatsStore{}

	job := NewGenerateMatchesJob(GenerateMatchesParams{
		Users:     users,
		Matches:   matches,
		Allocator: testAllocator(),
		Notifier:  notifier,
		Stats:     stats,
		Logger:    quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, notifier.events)
	require.Len(t, stats.stored, 1)
	assert.Equal(t, 0, stats.stored[0].MatchesCreated)
}

func TestGenerateMatchesJobReportsDeferredUsers(t *testing.T) {
	slotA := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Hour)
	slotB := slotA.Add(2 * time.Hour)

	// No shared availability, far from the horizon: both users defer.
	users := &fakeUserRepo{unmatched: []matching.User{
		poolUser(t, "u1", slotA),
		poolUser(t, "u2", slotB),
	}}
	matches := &fakeMatchRepo{}
	stats := &fakeStatsStore{}

	job := NewGenerateMatchesJob(GenerateMatchesParams{
		Users:     users,
		Matches:   matches,
		Allocator: testAllocator(),
		Stats:     stats,
		Logger:    quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, matches.created)
	require.Len(t, stats.stored, 1)
	assert.Equal(t, 2, stats.stored[0].Deferred)
}

// ─────────────────────────────────────────────────────────────────────────────
// Completion pass
// ─────────────────────────────────────────────────────────────────────────────

func TestCompleteMatchesJobCompletesConfirmedPastDue(t *testing.T) {
	pastDue := time.Now().UTC().Add(-2 * time.Hour)

	confirmed := pendingMatch(t, "m1", pastDue, matching.StatusConfirmed)
	unconfirmed := pendingMatch(t, "m2", pastDue, matching.StatusPending)

	matches := &fakeMatchRepo{pending: []matching.Match{confirmed, unconfirmed}}
	notifier := &fakeNotifier{}

	job := NewCompleteMatchesJob(CompleteMatchesParams{
		Matches:  matches,
		Notifier: notifier,
		Logger:   quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)

	// Only the confirmed match transitions; the unconfirmed one is skipped.
	require.Len(t, matches.saved, 1)
	assert.Equal(t, matching.MatchID("m1"), matches.saved[0].ID)
	assert.Equal(t, matching.StatusComplete, matches.saved[0].Status)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notification.EventPostMatch, notifier.events[0].Event)
}

func TestCompleteMatchesJobNeverCompletesFutureMatches(t *testing.T) {
	future := time.Now().UTC().Add(2 * time.Hour)
	confirmed := pendingMatch(t, "m1", future, matching.StatusConfirmed)

	matches := &fakeMatchRepo{pending: []matching.Match{confirmed}}

	job := NewCompleteMatchesJob(CompleteMatchesParams{
		Matches: matches,
		Logger:  quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches.saved)
}

// ─────────────────────────────────────────────────────────────────────────────
// Auto-cancel pass
// ─────────────────────────────────────────────────────────────────────────────

func TestAutoCancelMatchesJobCancelsUnconfirmed(t *testing.T) {
	tonight := time.Now().UTC().Add(4 * time.Hour)

	unconfirmed := pendingMatch(t, "m1", tonight, matching.StatusPending)
	confirmed := pendingMatch(t, "m2", tonight, matching.StatusConfirmed)

	matches := &fakeMatchRepo{pending: []matching.Match{unconfirmed, confirmed}}
	notifier := &fakeNotifier{}

	job := NewAutoCancelMatchesJob(AutoCancelMatchesParams{
		Matches:  matches,
		Notifier: notifier,
		Logger:   quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)

	// Confirmed matches are never auto-canceled.
	require.Len(t, matches.saved, 1)
	assert.Equal(t, matching.MatchID("m1"), matches.saved[0].ID)
	assert.Equal(t, matching.StatusCanceled, matches.saved[0].Status)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notification.EventCanceled, notifier.events[0].Event)
}

func TestAutoCancelMatchesJobSurvivesNotifierFailure(t *testing.T) {
	tonight := time.Now().UTC().Add(4 * time.Hour)
	unconfirmed := pendingMatch(t, "m1", tonight, matching.StatusPending)

	matches := &fakeMatchRepo{pending: []matching.Match{unconfirmed}}
	notifier := &fakeNotifier{err: errors.New("gateway down")}

	job := NewAutoCancelMatchesJob(AutoCancelMatchesParams{
		Matches:  matches,
		Notifier: notifier,
		Logger:   quietLogger(),
	})

	err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, matches.saved, 1)
}

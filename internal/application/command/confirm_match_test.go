package command

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ───────────────────────── in-memory fakes ─────────────────────────

type fakeUserRepo struct {
	users map[matching.UserID]matching.User
}

func (r *fakeUserRepo) FindUnmatched(context.Context) ([]matching.User, error) {
	out := make([]matching.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id matching.UserID) (matching.User, error) {
	user, ok := r.users[id]
	if !ok {
		return matching.User{}, shared.ErrUserNotFound
	}
	return user, nil
}

type fakeMatchRepo struct {
	matches map[matching.MatchID]matching.Match
	saved   []matching.Match
}

func (r *fakeMatchRepo) Create(_ context.Context, first, second matching.User, schedule time.Time) (matching.Match, error) {
	pair, err := matching.NewUserPair(first, second)
	if err != nil {
		return matching.Match{}, err
	}
	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           matching.MatchID("m" + first.ID.String() + second.ID.String()),
		Participants: pair,
		Schedule:     schedule,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return matching.Match{}, err
	}
	r.matches[match.ID] = match
	return match, nil
}

func (r *fakeMatchRepo) FindByID(_ context.Context, id matching.MatchID) (matching.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return matching.Match{}, shared.ErrMatchNotFound
	}
	return match, nil
}

func (r *fakeMatchRepo) Save(_ context.Context, match matching.Match) (matching.Match, error) {
	r.matches[match.ID] = match
	r.saved = append(r.saved, match)
	return match, nil
}

func (r *fakeMatchRepo) FindPending(_ context.Context, filter matching.PendingFilter) ([]matching.Match, error) {
	out := make([]matching.Match, 0)
	for _, m := range r.matches {
		if m.Status == matching.StatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	events []notification.Event
}

func (n *fakeNotifier) Notify(_ context.Context, event notification.Event, _ matching.Match) error {
	n.events = append(n.events, event)
	return nil
}

// ───────────────────────── fixtures ─────────────────────────

func newFixture(t *testing.T) (*fakeUserRepo, *fakeMatchRepo, *fakeNotifier, matching.Match) {
	t.Helper()

	u1, err := matching.NewUser(matching.NewUserParams{ID: "u1", Name: "Alice"})
	require.NoError(t, err)
	u2, err := matching.NewUser(matching.NewUserParams{ID: "u2", Name: "Bob"})
	require.NoError(t, err)

	pair, err := matching.NewUserPair(u1, u2)
	require.NoError(t, err)

	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           "m1",
		Participants: pair,
		Schedule:     time.Now().UTC().Add(48 * time.Hour),
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	users := &fakeUserRepo{users: map[matching.UserID]matching.User{"u1": u1, "u2": u2}}
	matches := &fakeMatchRepo{matches: map[matching.MatchID]matching.Match{"m1": match}}
	notifier := &fakeNotifier{}

	return users, matches, notifier, match
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ───────────────────────── confirm ─────────────────────────

func TestConfirmMatch_FirstParticipantKeepsPending(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	handler := NewConfirmMatchHandler(matches, users, notifier, testLogger())

	result, err := handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u1"})
	require.NoError(t, err)

	assert.False(t, result.FullyConfirmed)
	assert.Equal(t, matching.StatusPending, result.Match.Status)
	assert.True(t, result.Match.Confirmed.Contains("u1"))
	assert.Empty(t, notifier.events)
	assert.Len(t, matches.saved, 1)
}

func TestConfirmMatch_SecondParticipantConfirmsAndNotifies(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	handler := NewConfirmMatchHandler(matches, users, notifier, testLogger())

	_, err := handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u1"})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u2"})
	require.NoError(t, err)

	assert.True(t, result.FullyConfirmed)
	assert.Equal(t, matching.StatusConfirmed, result.Match.Status)
	assert.Equal(t, []notification.Event{notification.EventConfirmed}, notifier.events)
}

func TestConfirmMatch_RejectsRepeatConfirmation(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	handler := NewConfirmMatchHandler(matches, users, notifier, testLogger())

	_, err := handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u1"})
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestConfirmMatch_RejectsNonParticipant(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	stranger, err := matching.NewUser(matching.NewUserParams{ID: "u3", Name: "Mallory"})
	require.NoError(t, err)
	users.users["u3"] = stranger

	handler := NewConfirmMatchHandler(matches, users, notifier, testLogger())

	_, err = handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u3"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestConfirmMatch_RejectsCanceledMatch(t *testing.T) {
	users, matches, notifier, match := newFixture(t)

	canceled, err := match.Cancel(time.Now().UTC())
	require.NoError(t, err)
	matches.matches[canceled.ID] = canceled

	handler := NewConfirmMatchHandler(matches, users, notifier, testLogger())

	_, err = handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestConfirmMatch_UnknownMatch(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	handler := NewConfirmMatchHandler(matches, users, notifier, testLogger())

	_, err := handler.Handle(context.Background(), ConfirmMatchCommand{MatchID: "nope", UserID: "u1"})
	assert.True(t, shared.IsNotFound(err))
}

// ───────────────────────── decline ─────────────────────────

func TestDeclineMatch_CancelsAndNotifies(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	handler := NewDeclineMatchHandler(matches, users, notifier, testLogger())

	result, err := handler.Handle(context.Background(), DeclineMatchCommand{MatchID: "m1", UserID: "u2"})
	require.NoError(t, err)

	assert.Equal(t, matching.StatusCanceled, result.Match.Status)
	assert.Equal(t, []notification.Event{notification.EventCanceled}, notifier.events)
}

func TestDeclineMatch_RejectsAfterConfirmation(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	confirm := NewConfirmMatchHandler(matches, users, notifier, testLogger())
	decline := NewDeclineMatchHandler(matches, users, notifier, testLogger())

	_, err := confirm.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u1"})
	require.NoError(t, err)
	_, err = confirm.Handle(context.Background(), ConfirmMatchCommand{MatchID: "m1", UserID: "u2"})
	require.NoError(t, err)

	_, err = decline.Handle(context.Background(), DeclineMatchCommand{MatchID: "m1", UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestDeclineMatch_RejectsNonParticipant(t *testing.T) {
	users, matches, notifier, _ := newFixture(t)
	stranger, err := matching.NewUser(matching.NewUserParams{ID: "u3", Name: "Mallory"})
	require.NoError(t, err)
	users.users["u3"] = stranger

	handler := NewDeclineMatchHandler(matches, users, notifier, testLogger())

	_, err = handler.Handle(context.Background(), DeclineMatchCommand{MatchID: "m1", UserID: "u3"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

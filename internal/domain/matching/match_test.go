package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peercall/peercall-hub/internal/domain/shared"
)

func makeMatch(t *testing.T) Match {
	t.Helper()

	u1 := makeUser(t, "u1")
	u2 := makeUser(t, "u2")

	pair, err := NewUserPair(u1, u2)
	require.NoError(t, err)

	match, err := NewMatch(NewMatchParams{
		ID:           "m1",
		Participants: pair,
		Schedule:     time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC),
		Link:         "https://calls.example.com/m1",
		CallNumber:   1,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return match
}

func TestNewMatch_StartsPending(t *testing.T) {
	match := makeMatch(t)

	assert.Equal(t, StatusPending, match.Status)
	assert.False(t, match.Confirmed.Populated())
	assert.True(t, match.HasParticipant("u1"))
	assert.True(t, match.HasParticipant("u2"))
	assert.False(t, match.HasParticipant("u3"))
}

func TestNewMatch_RejectsSelfPair(t *testing.T) {
	u1 := makeUser(t, "u1")

	_, err := NewUserPair(u1, u1)
	assert.ErrorIs(t, err, shared.ErrSelfMatch)
}

func TestParseMatchStatus(t *testing.T) {
	status, err := ParseMatchStatus("Confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status)

	status, err = ParseMatchStatus("garbage")
	assert.Error(t, err)
	assert.Equal(t, StatusInvalid, status)
	assert.True(t, status.IsTerminal())
}

func TestConfirmParticipant_FillsSlotsInOrder(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	match := makeMatch(t)

	match, err := match.ConfirmParticipant("u1", now)
	require.NoError(t, err)
	assert.Equal(t, UserID("u1"), match.Confirmed.A)
	assert.Equal(t, UserID(""), match.Confirmed.B)
	assert.Equal(t, StatusPending, match.Status)
	assert.False(t, match.CanBeConfirmed())

	match, err = match.ConfirmParticipant("u2", now)
	require.NoError(t, err)
	assert.Equal(t, UserID("u1"), match.Confirmed.A)
	assert.Equal(t, UserID("u2"), match.Confirmed.B)
	assert.True(t, match.CanBeConfirmed())

	match, err = match.Confirm(now)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, match.Status)
}

func TestConfirmParticipant_RejectsDoubleConfirmation(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	match := makeMatch(t)

	match, err := match.ConfirmParticipant("u1", now)
	require.NoError(t, err)

	_, err = match.ConfirmParticipant("u1", now)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestConfirmParticipant_RejectsNonParticipant(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	match := makeMatch(t)

	_, err := match.ConfirmParticipant("stranger", now)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestConfirm_RequiresBothSlots(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	match := makeMatch(t)

	_, err := match.Confirm(now)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	match, err = match.ConfirmParticipant("u1", now)
	require.NoError(t, err)

	_, err = match.Confirm(now)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestCancel_OnlyWhilePending(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	match := makeMatch(t)

	canceled, err := match.Cancel(now)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	// Cancellation after confirmation is disallowed.
	confirmed := makeMatch(t)
	confirmed, err = confirmed.ConfirmParticipant("u1", now)
	require.NoError(t, err)
	confirmed, err = confirmed.ConfirmParticipant("u2", now)
	require.NoError(t, err)
	confirmed, err = confirmed.Confirm(now)
	require.NoError(t, err)

	_, err = confirmed.Cancel(now)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	_, err = canceled.Cancel(now)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestComplete_RequiresConfirmedAndPastSchedule(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	match := makeMatch(t)

	// Pending match cannot complete regardless of time.
	afterSchedule := match.Schedule.Add(time.Hour)
	_, err := match.Complete(afterSchedule)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	match, err = match.ConfirmParticipant("u1", now)
	require.NoError(t, err)
	match, err = match.ConfirmParticipant("u2", now)
	require.NoError(t, err)
	match, err = match.Confirm(now)
	require.NoError(t, err)

	// Schedule not yet strictly past.
	_, err = match.Complete(match.Schedule)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	done, err := match.Complete(afterSchedule)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, done.Status)

	_, err = done.Complete(afterSchedule.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestTransitions_ReturnNewValues(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	original := makeMatch(t)

	updated, err := original.ConfirmParticipant("u1", now)
	require.NoError(t, err)

	assert.False(t, original.Confirmed.Contains("u1"))
	assert.True(t, updated.Confirmed.Contains("u1"))
}

func TestUserPair_Other(t *testing.T) {
	match := makeMatch(t)

	other, ok := match.Participants.Other("u1")
	require.True(t, ok)
	assert.Equal(t, UserID("u2"), other.ID)

	_, ok = match.Participants.Other("stranger")
	assert.False(t, ok)
}

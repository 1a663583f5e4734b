package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peercall/peercall-hub/internal/application/command"
	"github.com/peercall/peercall-hub/internal/application/query"
	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
	"github.com/peercall/peercall-hub/internal/domain/shared"
	"github.com/peercall/peercall-hub/internal/interface/http/handlers"
	"github.com/peercall/peercall-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeUserRepo struct {
	users map[matching.UserID]matching.User
}

func (r *fakeUserRepo) FindUnmatched(ctx context.Context) ([]matching.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id matching.UserID) (matching.User, error) {
	user, ok := r.users[id]
	if !ok {
		return matching.User{}, shared.ErrUserNotFound
	}
	return user, nil
}

type fakeMatchRepo struct {
	matches map[matching.MatchID]matching.Match
}

func (r *fakeMatchRepo) Create(ctx context.Context, first, second matching.User, schedule time.Time) (matching.Match, error) {
	return matching.Match{}, nil
}

func (r *fakeMatchRepo) FindByID(ctx context.Context, id matching.MatchID) (matching.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return matching.Match{}, shared.ErrMatchNotFound
	}
	return match, nil
}

func (r *fakeMatchRepo) Save(ctx context.Context, match matching.Match) (matching.Match, error) {
	r.matches[match.ID] = match
	return match, nil
}

func (r *fakeMatchRepo) FindPending(ctx context.Context, filter matching.PendingFilter) ([]matching.Match, error) {
	return nil, nil
}

type fakeStatsReader struct {
	stats *query.AllocationStats
	err   error
}

func (r *fakeStatsReader) LastAllocationStats(ctx context.Context) (*query.AllocationStats, error) {
	return r.stats, r.err
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func testUser(t *testing.T, id, name string) matching.User {
	t.Helper()

	user, err := matching.NewUser(matching.NewUserParams{
		ID:        matching.UserID(id),
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return user
}

func testMatch(t *testing.T, id string, first, second matching.User) matching.Match {
	t.Helper()

	pair, err := matching.NewUserPair(first, second)
	require.NoError(t, err)

	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           matching.MatchID(id),
		Participants: pair,
		Schedule:     time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC),
		Link:         "https://meet.example.com/" + id,
		CallNumber:   1,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return match
}

type fixture struct {
	server  *Server
	matches *fakeMatchRepo
	stats   *fakeStatsReader
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	alice := testUser(t, "u1", "Alice")
	bob := testUser(t, "u2", "Bob")
	carol := testUser(t, "u3", "Carol")

	users := &fakeUserRepo{users: map[matching.UserID]matching.User{
		alice.ID: alice,
		bob.ID:   bob,
		carol.ID: carol,
	}}
	matches := &fakeMatchRepo{matches: map[matching.MatchID]matching.Match{
		"m1": testMatch(t, "m1", alice, bob),
	}}
	stats := &fakeStatsReader{}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	quietHTTP := logger.New(logger.Options{Output: io.Discard})

	deps := Dependencies{
		ConfirmMatchHandler:       command.NewConfirmMatchHandler(matches, users, notification.NoOpNotifier{}, quiet),
		DeclineMatchHandler:       command.NewDeclineMatchHandler(matches, users, notification.NoOpNotifier{}, quiet),
		GetMatchHandler:           query.NewGetMatchHandler(matches),
		GetAllocationStatsHandler: query.NewGetAllocationStatsHandler(stats),
		Logger:                    quietHTTP,
		HealthChecker:             handlers.NewNoopHealthChecker(),
	}

	config := DefaultConfig()
	config.RateLimitPerMinute = 0 // no limiter goroutine in tests

	return fixture{
		server:  NewServer(config, deps),
		matches: matches,
		stats:   stats,
	}
}

func (f fixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)

	var body JSONResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body
}

func dataMap(t *testing.T, body JSONResponse) map[string]interface{} {
	t.Helper()

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object")
	return data
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestConfirmEndpointFirstParticipant(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/match/m1/confirm/u1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	data := dataMap(t, body)
	assert.Equal(t, "m1", data["match_id"])
	assert.Equal(t, "Pending", data["status"])
	assert.Equal(t, false, data["fully_confirmed"])
}

func TestConfirmEndpointSecondParticipantConfirmsMatch(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.get(t, "/match/m1/confirm/u1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.get(t, "/match/m1/confirm/u2")
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataMap(t, body)
	assert.Equal(t, "Confirmed", data["status"])
	assert.Equal(t, true, data["fully_confirmed"])
	assert.Equal(t, matching.StatusConfirmed, f.matches.matches["m1"].Status)
}

func TestConfirmEndpointRejectsNonParticipant(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/match/m1/confirm/u3")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "forbidden", body.Error.Code)
}

func TestConfirmEndpointUnknownMatch(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/match/missing/confirm/u1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "not_found", body.Error.Code)
}

func TestDeclineEndpointCancelsPendingMatch(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/match/m1/decline/u2")

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, body)
	assert.Equal(t, "Canceled", data["status"])
	assert.Equal(t, matching.StatusCanceled, f.matches.matches["m1"].Status)
}

func TestDeclineEndpointRejectsConfirmedMatch(t *testing.T) {
	f := newFixture(t)

	f.get(t, "/match/m1/confirm/u1")
	f.get(t, "/match/m1/confirm/u2")

	rec, body := f.get(t, "/match/m1/decline/u1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "conflict", body.Error.Code)
}

func TestGetMatchEndpoint(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/api/v1/matches/m1")

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, body)
	assert.Equal(t, "m1", data["id"])
	assert.Equal(t, "Pending", data["status"])

	participants, ok := data["participants"].([]interface{})
	require.True(t, ok)
	assert.Len(t, participants, 2)
}

func TestGetMatchEndpointUnknownMatch(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/api/v1/matches/missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, body.Error)
}

func TestAllocationStatsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.stats.stats = &query.AllocationStats{
		UnmatchedUsers: 10,
		MatchesCreated: 4,
		Deferred:       2,
		RanAt:          time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
	}

	rec, body := f.get(t, "/api/v1/stats/allocation")

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, body)
	assert.Equal(t, float64(10), data["unmatched_users"])
	assert.Equal(t, float64(4), data["matches_created"])
}

func TestAllocationStatsEndpointBeforeFirstPass(t *testing.T) {
	f := newFixture(t)

	rec, body := f.get(t, "/api/v1/stats/allocation")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, body.Error)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.get(t, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
}

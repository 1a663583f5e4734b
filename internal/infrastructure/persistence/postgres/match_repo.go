package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/shared"
	"github.com/peercall/peercall-hub/pkg/timeutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MatchRepository implements matching.MatchRepository for PostgreSQL.
type MatchRepository struct {
	conn  *Connection
	users *UserRepository
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(conn *Connection, users *UserRepository) *MatchRepository {
	return &MatchRepository{conn: conn, users: users}
}

const matchColumns = `id, first_user_id, second_user_id, schedule, status, link, call_number, confirmed_a, confirmed_b, created_at, updated_at`

// Create persists a new Pending match and points both participants'
// last_match_id at it, all in one transaction.
func (r *MatchRepository) Create(ctx context.Context, first, second matching.User, schedule time.Time) (matching.Match, error) {
	pair, err := matching.NewUserPair(first, second)
	if err != nil {
		return matching.Match{}, err
	}

	id := matching.MatchID(uuid.NewString())
	now := time.Now().UTC()

	callNumber, err := r.nextCallNumber(ctx, first.ID, second.ID)
	if err != nil {
		return matching.Match{}, err
	}

	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           id,
		Participants: pair,
		Schedule:     schedule,
		CallNumber:   callNumber,
		CreatedAt:    now,
	})
	if err != nil {
		return matching.Match{}, err
	}

	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO matches (
				id, first_user_id, second_user_id, schedule, status,
				link, call_number, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			match.ID.String(),
			first.ID.String(),
			second.ID.String(),
			match.Schedule,
			match.Status.String(),
			match.Link,
			match.CallNumber,
			match.CreatedAt,
			match.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET last_match_id = $1, updated_at = $2 WHERE id = ANY($3)`,
			match.ID.String(), now, []string{first.ID.String(), second.ID.String()})
		if err != nil {
			return fmt.Errorf("failed to update last match references: %w", err)
		}

		return nil
	})
	if err != nil {
		return matching.Match{}, err
	}

	return match, nil
}

// FindByID returns a match with both participants loaded.
func (r *MatchRepository) FindByID(ctx context.Context, id matching.MatchID) (matching.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id.String())
	match, err := r.scanMatch(ctx, row)
	if err != nil {
		if IsNoRows(err) {
			return matching.Match{}, shared.ErrMatchNotFound
		}
		return matching.Match{}, fmt.Errorf("failed to query match: %w", err)
	}

	return match, nil
}

// Save persists the current state of a match.
func (r *MatchRepository) Save(ctx context.Context, match matching.Match) (matching.Match, error) {
	query := `
		UPDATE matches SET
			status = $1,
			link = $2,
			confirmed_a = $3,
			confirmed_b = $4,
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.conn.Exec(ctx, query,
		match.Status.String(),
		match.Link,
		nullableID(match.Confirmed.A),
		nullableID(match.Confirmed.B),
		match.UpdatedAt,
		match.ID.String(),
	)
	if err != nil {
		return matching.Match{}, fmt.Errorf("failed to save match: %w", err)
	}

	if result.RowsAffected() == 0 {
		return matching.Match{}, shared.ErrMatchNotFound
	}

	return match, nil
}

// FindPending returns Pending matches narrowed by the filter.
func (r *MatchRepository) FindPending(ctx context.Context, filter matching.PendingFilter) ([]matching.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = 'Pending'
	`

	args := make([]any, 0, 2)
	now := time.Now().UTC()

	switch filter {
	case matching.FilterScheduledToday:
		query += ` AND schedule >= $1 AND schedule <= $2`
		args = append(args, timeutil.StartOfDay(now), timeutil.EndOfDay(now))
	case matching.FilterPastDue:
		query += ` AND schedule < $1`
		args = append(args, now)
	}

	query += ` ORDER BY schedule`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending matches: %w", err)
	}
	defer rows.Close()

	matches := make([]matching.Match, 0)
	for rows.Next() {
		match, err := r.scanMatch(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	return matches, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// nextCallNumber counts prior matches between the pair, in either order.
func (r *MatchRepository) nextCallNumber(ctx context.Context, a, b matching.UserID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE (first_user_id = $1 AND second_user_id = $2)
		   OR (first_user_id = $2 AND second_user_id = $1)
	`, a.String(), b.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prior matches: %w", err)
	}
	return count + 1, nil
}

func (r *MatchRepository) scanMatch(ctx context.Context, row rowScanner) (matching.Match, error) {
	var (
		id         string
		firstID    string
		secondID   string
		schedule   time.Time
		rawStatus  string
		link       string
		callNumber int
		confirmedA *string
		confirmedB *string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := row.Scan(&id, &firstID, &secondID, &schedule, &rawStatus, &link,
		&callNumber, &confirmedA, &confirmedB, &createdAt, &updatedAt)
	if err != nil {
		return matching.Match{}, err
	}

	first, err := r.users.FindByID(ctx, matching.UserID(firstID))
	if err != nil {
		return matching.Match{}, fmt.Errorf("failed to load first participant: %w", err)
	}
	second, err := r.users.FindByID(ctx, matching.UserID(secondID))
	if err != nil {
		return matching.Match{}, fmt.Errorf("failed to load second participant: %w", err)
	}

	// Unrecognized persisted statuses map to the terminal Invalid state;
	// the row stays readable but no transitions are possible.
	status, _ := matching.ParseMatchStatus(rawStatus)

	match := matching.Match{
		ID:         matching.MatchID(id),
		Schedule:   schedule.UTC(),
		Status:     status,
		Link:       link,
		CallNumber: callNumber,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
	match.Participants = matching.UserPair{First: first, Second: second}

	if confirmedA != nil {
		match.Confirmed.A = matching.UserID(*confirmedA)
	}
	if confirmedB != nil {
		match.Confirmed.B = matching.UserID(*confirmedB)
	}

	return match, nil
}

func nullableID(id matching.UserID) *string {
	if id == "" {
		return nil
	}
	s := id.String()
	return &s
}

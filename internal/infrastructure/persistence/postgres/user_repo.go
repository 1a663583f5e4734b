package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements matching.UserRepository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, name, email, phone, adult, topics, last_match_id, created_at`

// FindUnmatched returns users who are not a participant of any active
// (Pending or Confirmed) match, with their availability slots loaded.
func (r *UserRepository) FindUnmatched(ctx context.Context) ([]matching.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE m.status IN ('Pending', 'Confirmed')
			  AND (m.first_user_id = u.id OR m.second_user_id = u.id)
		)
		ORDER BY u.created_at
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched users: %w", err)
	}
	defer rows.Close()

	users, err := r.scanUsers(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadAvailabilities(ctx, users); err != nil {
		return nil, err
	}

	return users, nil
}

// FindByID returns a user by ID with availability slots loaded.
func (r *UserRepository) FindByID(ctx context.Context, id matching.UserID) (matching.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id.String())
	user, err := r.scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return matching.User{}, shared.ErrUserNotFound
		}
		return matching.User{}, fmt.Errorf("failed to query user: %w", err)
	}

	users := []matching.User{user}
	if err := r.loadAvailabilities(ctx, users); err != nil {
		return matching.User{}, err
	}

	return users[0], nil
}

// ReplaceAvailabilities swaps a user's availability slots for the next cycle.
func (r *UserRepository) ReplaceAvailabilities(ctx context.Context, id matching.UserID, blocks []matching.AvailabilityBlock) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_availability WHERE user_id = $1`, id.String()); err != nil {
			return fmt.Errorf("failed to clear availability: %w", err)
		}

		for _, block := range blocks {
			_, err := tx.Exec(ctx,
				`INSERT INTO user_availability (user_id, available_at) VALUES ($1, $2)
				 ON CONFLICT ON CONSTRAINT uniq_user_slot DO NOTHING`,
				id.String(), block.At)
			if err != nil {
				return fmt.Errorf("failed to insert availability: %w", err)
			}
		}

		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (matching.User, error) {
	var (
		id          string
		name        string
		email       string
		phone       string
		adult       bool
		topics      []string
		lastMatchID *string
		createdAt   time.Time
	)

	if err := row.Scan(&id, &name, &email, &phone, &adult, &topics, &lastMatchID, &createdAt); err != nil {
		return matching.User{}, err
	}

	domainTopics := make([]matching.Topic, 0, len(topics))
	for _, t := range topics {
		domainTopics = append(domainTopics, matching.Topic(t))
	}

	var lastMatch matching.MatchID
	if lastMatchID != nil {
		lastMatch = matching.MatchID(*lastMatchID)
	}

	return matching.NewUser(matching.NewUserParams{
		ID:          matching.UserID(id),
		Name:        name,
		Email:       email,
		Phone:       phone,
		Adult:       adult,
		Topics:      domainTopics,
		LastMatchID: lastMatch,
		CreatedAt:   createdAt,
	})
}

func (r *UserRepository) scanUsers(rows pgx.Rows) ([]matching.User, error) {
	users := make([]matching.User, 0)
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// loadAvailabilities fills availability slots for all given users in one query.
// Blocks come back descending so the domain ordering is preserved as loaded.
func (r *UserRepository) loadAvailabilities(ctx context.Context, users []matching.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]string, len(users))
	index := make(map[matching.UserID]int, len(users))
	for i, u := range users {
		ids[i] = u.ID.String()
		index[u.ID] = i
	}

	query := `
		SELECT user_id, available_at
		FROM user_availability
		WHERE user_id = ANY($1)
		ORDER BY available_at DESC
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID string
			at     time.Time
		)
		if err := rows.Scan(&userID, &at); err != nil {
			return fmt.Errorf("failed to scan availability: %w", err)
		}

		i, ok := index[matching.UserID(userID)]
		if !ok {
			continue
		}
		users[i].Availabilities = append(users[i].Availabilities, matching.NewAvailabilityBlock(at))
	}

	return rows.Err()
}

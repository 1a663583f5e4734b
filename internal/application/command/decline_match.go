package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DECLINE MATCH COMMAND
// Cancels a pending match on a participant's request. Once confirmed,
// a match can no longer be declined.
// ══════════════════════════════════════════════════════════════════════════════

// DeclineMatchCommand contains the data to decline a match.
type DeclineMatchCommand struct {
	// MatchID is the ID of the match being declined.
	MatchID string

	// UserID is the ID of the declining participant.
	UserID string
}

// Validate validates the command.
func (c DeclineMatchCommand) Validate() error {
	if c.MatchID == "" {
		return errors.New("decline_match: match_id is required")
	}
	if c.UserID == "" {
		return errors.New("decline_match: user_id is required")
	}
	return nil
}

// DeclineMatchResult contains the result of the decline.
type DeclineMatchResult struct {
	// Match is the persisted state after cancellation.
	Match matching.Match
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DeclineMatchHandler handles the DeclineMatchCommand.
type DeclineMatchHandler struct {
	matches  matching.MatchRepository
	users    matching.UserRepository
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewDeclineMatchHandler creates a new DeclineMatchHandler.
func NewDeclineMatchHandler(
	matches matching.MatchRepository,
	users matching.UserRepository,
	notifier notification.Notifier,
	logger *slog.Logger,
) *DeclineMatchHandler {
	return &DeclineMatchHandler{
		matches:  matches,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle executes the decline match command.
func (h *DeclineMatchHandler) Handle(ctx context.Context, cmd DeclineMatchCommand) (*DeclineMatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("decline_match: validation failed: %w", err)
	}

	match, err := h.matches.FindByID(ctx, matching.MatchID(cmd.MatchID))
	if err != nil {
		return nil, fmt.Errorf("decline_match: %w", err)
	}

	user, err := h.users.FindByID(ctx, matching.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("decline_match: %w", err)
	}

	if !match.CanBeCancelled() {
		return nil, shared.WrapError("matching", "DeclineMatch", shared.ErrStateTransition,
			fmt.Sprintf("match %s cannot be declined in status %s", match.ID, match.Status), nil)
	}
	if !match.HasParticipant(user.ID) {
		return nil, shared.ErrNotParticipant
	}

	match, err = match.Cancel(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("decline_match: %w", err)
	}

	saved, err := h.matches.Save(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("decline_match: failed to save match: %w", err)
	}

	if err := h.notifier.Notify(ctx, notification.EventCanceled, saved); err != nil {
		h.logger.Warn("cancellation notification failed",
			slog.String("match_id", saved.ID.String()),
			slog.String("error", err.Error()))
	}

	return &DeclineMatchResult{Match: saved}, nil
}

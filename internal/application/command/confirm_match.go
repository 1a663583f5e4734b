// Package command contains write operations (CQRS - Commands).
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
// CONFIRM MATCH COMMAND
// Registers one participant's confirmation. When the second participant
// confirms, the match transitions to Confirmed and both are notified.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmMatchCommand contains the data to confirm a match.
type ConfirmMatchCommand struct {
	// MatchID is the ID of the match being confirmed.
	MatchID string

	// UserID is the ID of the confirming participant.
	UserID string
}

// Validate validates the command.
func (c ConfirmMatchCommand) Validate() error {
	if c.MatchID == "" {
		return errors.New("confirm_match: match_id is required")
	}
	if c.UserID == "" {
		return errors.New("confirm_match: user_id is required")
	}
	return nil
}

// ConfirmMatchResult contains the result of the confirmation.
type ConfirmMatchResult struct {
	// Match is the persisted state after the transition.
	Match matching.Match

	// FullyConfirmed indicates that this confirmation was the second one
	// and the match is now Confirmed.
	FullyConfirmed bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmMatchHandler handles the ConfirmMatchCommand.
type ConfirmMatchHandler struct {
	matches  matching.MatchRepository
	users    matching.UserRepository
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewConfirmMatchHandler creates a new ConfirmMatchHandler.
func NewConfirmMatchHandler(
	matches matching.MatchRepository,
	users matching.UserRepository,
	notifier notification.Notifier,
	logger *slog.Logger,
) *ConfirmMatchHandler {
	return &ConfirmMatchHandler{
		matches:  matches,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle executes the confirm match command.
func (h *ConfirmMatchHandler) Handle(ctx context.Context, cmd ConfirmMatchCommand) (*ConfirmMatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("confirm_match: validation failed: %w", err)
	}

	match, err := h.matches.FindByID(ctx, matching.MatchID(cmd.MatchID))
	if err != nil {
		return nil, fmt.Errorf("confirm_match: %w", err)
	}

	user, err := h.users.FindByID(ctx, matching.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("confirm_match: %w", err)
	}

	if match.Status == matching.StatusCanceled {
		return nil, shared.WrapError("matching", "ConfirmMatch", shared.ErrStateTransition,
			fmt.Sprintf("match %s has been canceled", match.ID), nil)
	}
	if !match.HasParticipant(user.ID) {
		return nil, shared.ErrNotParticipant
	}

	now := time.Now().UTC()

	match, err = match.ConfirmParticipant(user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("confirm_match: %w", err)
	}

	result := &ConfirmMatchResult{}

	if match.CanBeConfirmed() {
		match, err = match.Confirm(now)
		if err != nil {
			return nil, fmt.Errorf("confirm_match: %w", err)
		}
		result.FullyConfirmed = true

		// Delivery failure never rolls back the transition.
		if err := h.notifier.Notify(ctx, notification.EventConfirmed, match); err != nil {
			h.logger.Warn("confirmation notification failed",
				slog.String("match_id", match.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	saved, err := h.matches.Save(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("confirm_match: failed to save match: %w", err)
	}

	result.Match = saved
	return result, nil
}

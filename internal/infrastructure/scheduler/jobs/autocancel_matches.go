package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTO-CANCEL MATCHES JOB
// ══════════════════════════════════════════════════════════════════════════════

// AutoCancelMatchesJob cancels today's matches that are still unconfirmed
// at the cutoff. Runs once a day at the configured cutoff hour.
type AutoCancelMatchesJob struct {
	matches  matching.MatchRepository
	notifier notification.Notifier
	logger   *slog.Logger
}

// AutoCancelMatchesParams contains dependencies for the auto-cancel pass.
type AutoCancelMatchesParams struct {
	Matches  matching.MatchRepository
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// NewAutoCancelMatchesJob creates the auto-cancel pass job.
func NewAutoCancelMatchesJob(params AutoCancelMatchesParams) *AutoCancelMatchesJob {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := params.Notifier
	if notifier == nil {
		notifier = notification.NoOpNotifier{}
	}

	return &AutoCancelMatchesJob{
		matches:  params.Matches,
		notifier: notifier,
		logger:   logger,
	}
}

// Name returns the job name.
func (j *AutoCancelMatchesJob) Name() string {
	return "autocancel_matches"
}

// Description returns a human-readable description.
func (j *AutoCancelMatchesJob) Description() string {
	return "Cancels today's matches still unconfirmed at the cutoff"
}

// Run executes the auto-cancel pass.
func (j *AutoCancelMatchesJob) Run(ctx context.Context) error {
	now := time.Now().UTC()

	today, err := j.matches.FindPending(ctx, matching.FilterScheduledToday)
	if err != nil {
		return fmt.Errorf("failed to load today's matches: %w", err)
	}

	j.logger.Info("starting auto-cancel pass", "scheduled_today", len(today))

	canceled := 0
	for _, match := range today {
		// A Pending match at the cutoff means at least one participant
		// never confirmed.
		if !match.CanBeCancelled() {
			continue
		}

		gone, err := match.Cancel(now)
		if err != nil {
			j.logger.Error("failed to cancel match",
				"match_id", match.ID.String(),
				"error", err,
			)
			continue
		}

		if _, err := j.matches.Save(ctx, gone); err != nil {
			j.logger.Error("failed to save canceled match",
				"match_id", gone.ID.String(),
				"error", err,
			)
			continue
		}
		canceled++

		if err := j.notifier.Notify(ctx, notification.EventCanceled, gone); err != nil {
			j.logger.Warn("failed to send cancellation notifications",
				"match_id", gone.ID.String(),
				"error", err,
			)
		}
	}

	observeLifecyclePass(j.Name(), len(today), canceled)

	j.logger.Info("auto-cancel pass completed",
		"scheduled_today", len(today),
		"canceled", canceled,
	)

	return nil
}

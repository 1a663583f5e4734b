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
// COMPLETE MATCHES JOB
// ══════════════════════════════════════════════════════════════════════════════

// CompleteMatchesJob closes out past-due matches. Records that cannot be
// completed (the call was never confirmed) are logged and left untouched.
type CompleteMatchesJob struct {
	matches  matching.MatchRepository
	notifier notification.Notifier
	logger   *slog.Logger
}

// CompleteMatchesParams contains dependencies for the completion pass.
type CompleteMatchesParams struct {
	Matches  matching.MatchRepository
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// NewCompleteMatchesJob creates the completion pass job.
func NewCompleteMatchesJob(params CompleteMatchesParams) *CompleteMatchesJob {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := params.Notifier
	if notifier == nil {
		notifier = notification.NoOpNotifier{}
	}

	return &CompleteMatchesJob{
		matches:  params.Matches,
		notifier: notifier,
		logger:   logger,
	}
}

// Name returns the job name.
func (j *CompleteMatchesJob) Name() string {
	return "complete_matches"
}

// Description returns a human-readable description.
func (j *CompleteMatchesJob) Description() string {
	return "Completes past-due matches and sends post-call notifications"
}

// Run executes the completion pass.
func (j *CompleteMatchesJob) Run(ctx context.Context) error {
	now := time.Now().UTC()

	pastDue, err := j.matches.FindPending(ctx, matching.FilterPastDue)
	if err != nil {
		return fmt.Errorf("failed to load past-due matches: %w", err)
	}

	j.logger.Info("starting completion pass", "past_due", len(pastDue))

	completed := 0
	for _, match := range pastDue {
		if !match.CanBeCompleted(now) {
			// Past due but never confirmed. Left for the auto-cancel
			// pass or manual review.
			j.logger.Info("skipping non-completable match",
				"match_id", match.ID.String(),
				"status", match.Status.String(),
			)
			continue
		}

		done, err := match.Complete(now)
		if err != nil {
			j.logger.Error("failed to complete match",
				"match_id", match.ID.String(),
				"error", err,
			)
			continue
		}

		if _, err := j.matches.Save(ctx, done); err != nil {
			j.logger.Error("failed to save completed match",
				"match_id", done.ID.String(),
				"error", err,
			)
			continue
		}
		completed++

		if err := j.notifier.Notify(ctx, notification.EventPostMatch, done); err != nil {
			j.logger.Warn("failed to send post-match notifications",
				"match_id", done.ID.String(),
				"error", err,
			)
		}
	}

	observeLifecyclePass(j.Name(), len(pastDue), completed)

	j.logger.Info("completion pass completed",
		"past_due", len(pastDue),
		"completed", completed,
	)

	return nil
}

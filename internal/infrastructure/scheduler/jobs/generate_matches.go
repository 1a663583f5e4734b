// Package jobs contains the scheduled matching passes for PeerCall Hub.
// Each pass is independent and processes its records strictly in order,
// logging per-record failures and carrying on.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/peercall/peercall-hub/internal/application/query"
	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE MATCHES JOB
// ══════════════════════════════════════════════════════════════════════════════

// StatsStore persists the outcome of a generation pass for the stats endpoint.
type StatsStore interface {
	StoreAllocationStats(ctx context.Context, stats query.AllocationStats) error
}

// PassLocker guards a pass against concurrent worker instances.
type PassLocker interface {
	AcquirePassLock(ctx context.Context, pass string) (bool, error)
	ReleasePassLock(ctx context.Context, pass string) error
}

// GenerateMatchesJob pairs all unmatched users and persists the resulting
// Pending matches. This is the weekly allocation pass.
type GenerateMatchesJob struct {
	users     matching.UserRepository
	matches   matching.MatchRepository
	allocator *matching.Allocator
	notifier  notification.Notifier
	stats     StatsStore
	lock      PassLocker
	logger    *slog.Logger
}

// GenerateMatchesParams contains dependencies for the generation pass.
type GenerateMatchesParams struct {
	Users     matching.UserRepository
	Matches   matching.MatchRepository
	Allocator *matching.Allocator
	Notifier  notification.Notifier
	Stats     StatsStore
	Lock      PassLocker
	Logger    *slog.Logger
}

// NewGenerateMatchesJob creates the generation pass job.
func NewGenerateMatchesJob(params GenerateMatchesParams) *GenerateMatchesJob {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	notifier := params.Notifier
	if notifier == nil {
		notifier = notification.NoOpNotifier{}
	}

	return &GenerateMatchesJob{
		users:     params.Users,
		matches:   params.Matches,
		allocator: params.Allocator,
		notifier:  notifier,
		stats:     params.Stats,
		lock:      params.Lock,
		logger:    logger,
	}
}

// Name returns the job name.
func (j *GenerateMatchesJob) Name() string {
	return "generate_matches"
}

// Description returns a human-readable description.
func (j *GenerateMatchesJob) Description() string {
	return "Pairs unmatched users into scheduled calls"
}

// Run executes the generation pass.
func (j *GenerateMatchesJob) Run(ctx context.Context) error {
	if j.lock != nil {
		acquired, err := j.lock.AcquirePassLock(ctx, j.Name())
		if err != nil {
			return fmt.Errorf("failed to acquire pass lock: %w", err)
		}
		if !acquired {
			j.logger.Info("generation pass already running elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := j.lock.ReleasePassLock(ctx, j.Name()); err != nil {
				j.logger.Warn("failed to release pass lock", "error", err)
			}
		}()
	}

	now := time.Now().UTC()

	pool, err := j.users.FindUnmatched(ctx)
	if err != nil {
		return fmt.Errorf("failed to load unmatched users: %w", err)
	}

	j.logger.Info("starting generation pass", "unmatched", len(pool))

	result := j.allocator.Allocate(pool, now)

	created := 0
	for _, info := range result.Matches {
		match, err := j.matches.Create(ctx, info.First, info.Second, info.Schedule.At)
		if err != nil {
			j.logger.Error("failed to persist match",
				"first_user_id", info.First.ID.String(),
				"second_user_id", info.Second.ID.String(),
				"error", err,
			)
			continue
		}
		created++

		if err := j.notifier.Notify(ctx, notification.EventNewMatch, match); err != nil {
			j.logger.Warn("failed to send new match notifications",
				"match_id", match.ID.String(),
				"error", err,
			)
		}
	}

	stats := query.AllocationStats{
		UnmatchedUsers:  len(pool),
		MatchesCreated:  created,
		Deferred:        result.DeferredCount(),
		VolunteerRouted: result.VolunteerRoutedCount(),
		RanAt:           now,
	}

	observeGenerationPass(stats)

	if j.stats != nil {
		if err := j.stats.StoreAllocationStats(ctx, stats); err != nil {
			j.logger.Warn("failed to cache allocation stats", "error", err)
		}
	}

	j.logger.Info("generation pass completed",
		"unmatched", stats.UnmatchedUsers,
		"created", stats.MatchesCreated,
		"deferred", stats.Deferred,
		"volunteer_routed", stats.VolunteerRouted,
	)

	return nil
}

package query

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ALLOCATION STATS QUERY
// Read model of the last generation pass, cached by the worker.
// ══════════════════════════════════════════════════════════════════════════════

// AllocationStats describes the outcome of the last generation pass.
type AllocationStats struct {
	UnmatchedUsers  int       `json:"unmatched_users"`
	MatchesCreated  int       `json:"matches_created"`
	Deferred        int       `json:"deferred"`
	VolunteerRouted int       `json:"volunteer_routed"`
	RanAt           time.Time `json:"ran_at"`
}

// AllocationStatsReader reads the cached stats of the last pass.
type AllocationStatsReader interface {
	// LastAllocationStats returns the cached stats, or nil when no pass
	// has run yet.
	LastAllocationStats(ctx context.Context) (*AllocationStats, error)
}

// GetAllocationStatsHandler handles allocation stats lookups.
type GetAllocationStatsHandler struct {
	reader AllocationStatsReader
}

// NewGetAllocationStatsHandler creates a new GetAllocationStatsHandler.
func NewGetAllocationStatsHandler(reader AllocationStatsReader) *GetAllocationStatsHandler {
	return &GetAllocationStatsHandler{reader: reader}
}

// Handle returns the stats of the last generation pass.
func (h *GetAllocationStatsHandler) Handle(ctx context.Context) (*AllocationStats, error) {
	stats, err := h.reader.LastAllocationStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_allocation_stats: %w", err)
	}
	return stats, nil
}

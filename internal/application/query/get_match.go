// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/matching"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MATCH QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetMatchQuery requests a single match by ID.
type GetMatchQuery struct {
	// MatchID is the ID of the match to fetch.
	MatchID string
}

// Validate validates the query.
func (q GetMatchQuery) Validate() error {
	if q.MatchID == "" {
		return errors.New("get_match: match_id is required")
	}
	return nil
}

// ParticipantView is a read model of one participant.
type ParticipantView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Confirmed bool   `json:"confirmed"`
}

// MatchView is a read model of a match for the HTTP layer.
type MatchView struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Schedule     time.Time         `json:"schedule"`
	Link         string            `json:"link,omitempty"`
	CallNumber   int               `json:"call_number"`
	Participants []ParticipantView `json:"participants"`
}

// GetMatchHandler handles the GetMatchQuery.
type GetMatchHandler struct {
	matches matching.MatchRepository
}

// NewGetMatchHandler creates a new GetMatchHandler.
func NewGetMatchHandler(matches matching.MatchRepository) *GetMatchHandler {
	return &GetMatchHandler{matches: matches}
}

// Handle executes the get match query.
func (h *GetMatchHandler) Handle(ctx context.Context, q GetMatchQuery) (*MatchView, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_match: validation failed: %w", err)
	}

	match, err := h.matches.FindByID(ctx, matching.MatchID(q.MatchID))
	if err != nil {
		return nil, fmt.Errorf("get_match: %w", err)
	}

	return toMatchView(match), nil
}

func toMatchView(match matching.Match) *MatchView {
	participants := make([]ParticipantView, 0, 2)
	for _, user := range []matching.User{match.Participants.First, match.Participants.Second} {
		participants = append(participants, ParticipantView{
			ID:        user.ID.String(),
			Name:      user.Name,
			Confirmed: match.Confirmed.Contains(user.ID),
		})
	}

	return &MatchView{
		ID:           match.ID.String(),
		Status:       match.Status.String(),
		Schedule:     match.Schedule,
		Link:         match.Link,
		CallNumber:   match.CallNumber,
		Participants: participants,
	}
}

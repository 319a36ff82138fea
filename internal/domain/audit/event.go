// Package audit models the immutable reconciliation audit trail: one event
// per settlement ingest, divergence resolution or closure clear. Events are
// written best-effort and never updated.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened
type Action string

const (
	ActionClosureCreated     Action = "closure_created"
	ActionSettlementIngested Action = "settlement_ingested"
	ActionDivergenceResolved Action = "divergence_resolved"
	ActionClosureCleared     Action = "closure_cleared"
)

// Event is one audit-trail entry, keyed by the closure's calendar date.
type Event struct {
	ID          uuid.UUID              `json:"id" bson:"_id"`
	ClosureDate string                 `json:"closure_date" bson:"closure_date"` // YYYY-MM-DD
	Action      Action                 `json:"action" bson:"action"`
	ActorID     string                 `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	ActorName   string                 `json:"actor_name,omitempty" bson:"actor_name,omitempty"`
	Summary     string                 `json:"summary" bson:"summary"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
}

// NewEvent creates an audit event for the given closure date.
func NewEvent(closureDate string, action Action, summary string) *Event {
	return &Event{
		ID:          uuid.New(),
		ClosureDate: closureDate,
		Action:      action,
		Summary:     summary,
		CreatedAt:   time.Now(),
	}
}

// Repository persists audit events. Writes are best-effort: callers log and
// continue on failure rather than failing the originating operation.
type Repository interface {
	Record(ctx context.Context, event *Event) error
	ListByClosureDate(ctx context.Context, closureDate string, limit, offset int) ([]*Event, error)
}

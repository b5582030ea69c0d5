package formula

import (
	"context"
	"errors"
	"time"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
)

var (
	// ErrNotFound is returned when a formula id does not exist.
	ErrNotFound = errors.New("formula: not found")
	// ErrInvalidAmount is returned for negative amounts and non-positive
	// target totals.
	ErrInvalidAmount = errors.New("formula: invalid amount")
	// ErrItemNotFound is returned when a line item is not in the formula.
	ErrItemNotFound = errors.New("formula: line item not found")
)

// DefaultTargetTotal is the target total of a new formula.
const DefaultTargetTotal = 100

// Formula is the canonical record's header.
type Formula struct {
	ID            string    `json:"id"`
	Name          string    `json:"name" validate:"required"`
	Solvent       string    `json:"solvent,omitempty"`
	SolventAmount float64   `json:"solvent_amount" validate:"gte=0"`
	TargetTotal   float64   `json:"target_total" validate:"gte=0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Item is one line item: an ingredient reference and its amount. Name is
// joined from the catalog and empty for refs the catalog does not know.
type Item struct {
	Ref    string  `json:"ref"`
	Name   string  `json:"name,omitempty"`
	Amount float64 `json:"amount"`
}

// Layout is the persisted visual layout of a formula.
type Layout struct {
	Snapshot  canvas.Snapshot `json:"snapshot"`
	Digest    string          `json:"digest"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ChangeKind says what part of a formula a write touched.
type ChangeKind string

const (
	ChangeItems  ChangeKind = "items"
	ChangeLayout ChangeKind = "layout"
	ChangeHeader ChangeKind = "header"
)

// Change notifies subscribers that a formula was written. Notifications
// coalesce: a subscriber that falls behind sees only the newest pending
// one, so it should re-read the record rather than replay changes.
type Change struct {
	FormulaID string     `json:"formula_id"`
	Kind      ChangeKind `json:"kind"`
	Ref       string     `json:"ref,omitempty"`
}

type actorKey struct{}

type actor struct {
	typ audit.ActorType
	id  string
}

// WithActor attributes writes made with ctx to the given actor in the audit
// trail. Writes without one are attributed to the editor user.
func WithActor(ctx context.Context, typ audit.ActorType, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{typ: typ, id: id})
}

func actorFrom(ctx context.Context) actor {
	if a, ok := ctx.Value(actorKey{}).(actor); ok && a.typ != "" {
		return a
	}
	return actor{typ: audit.ActorUser, id: "editor"}
}

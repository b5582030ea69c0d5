package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorAgent  ActorType = "agent"
)

// Action describes what was done.
type Action string

const (
	ActionFormulaCreated  Action = "formula_created"
	ActionLineItemAdded   Action = "line_item_added"
	ActionLineItemRemoved Action = "line_item_removed"
	ActionAmountSet       Action = "amount_set"
	ActionTargetTotalSet  Action = "target_total_set"
	ActionSolventSet      Action = "solvent_set"
	ActionFormulaRenamed  Action = "formula_renamed"
	ActionLayoutPersisted Action = "layout_persisted"
	ActionCatalogImported Action = "catalog_imported"
	ActionAnalysisStored  Action = "analysis_stored"
)

// Scope describes what kind of record an action applies to.
type Scope string

const (
	ScopeFormula  Scope = "formula"
	ScopeCatalog  Scope = "catalog"
	ScopeAnalysis Scope = "analysis"
)

// Entry is a single audit trail record.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorType     ActorType `json:"actor_type"`
	ActorID       string    `json:"actor_id"`
	Action        Action    `json:"action"`
	Scope         Scope     `json:"scope"`
	ScopeID       string    `json:"scope_id"`
	Summary       string    `json:"summary"`
	Detail        string    `json:"detail,omitempty"`
	AffectedRefs  []string  `json:"affected_refs,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}

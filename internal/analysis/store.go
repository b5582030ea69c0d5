package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/db"
)

// Store keeps the history of analyses per formula.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save inserts rec, assigning an id when it has none, and records it in the
// audit trail in the same transaction.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	request, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}
	interactions, err := json.Marshal(rec.Result.Interactions)
	if err != nil {
		return fmt.Errorf("marshalling interactions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (
			id, formula_id, request, final_scent_profile, profile_html, interactions,
			longevity, projection, provider, model, input_tokens, output_tokens, cost_usd, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FormulaID, string(request),
		rec.Result.FinalScentProfile, rec.Result.ProfileHTML, string(interactions),
		string(rec.Result.Longevity), string(rec.Result.Projection),
		rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}

	refs := make([]string, 0, len(rec.Request))
	for _, ing := range rec.Request {
		refs = append(refs, ing.Name)
	}
	err = audit.LogTx(ctx, tx, audit.Entry{
		ActorType:    audit.ActorAgent,
		ActorID:      rec.Provider,
		Action:       audit.ActionAnalysisStored,
		Scope:        audit.ScopeAnalysis,
		ScopeID:      rec.FormulaID,
		Summary:      fmt.Sprintf("Analysis of %d ingredients: %s, %s", len(rec.Request), rec.Result.Longevity, rec.Result.Projection),
		AffectedRefs: refs,
		NewValue:     rec.ID,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

const columns = `id, formula_id, request, final_scent_profile, profile_html, interactions,
	longevity, projection, provider, model, input_tokens, output_tokens, cost_usd, created_at`

// Get returns a single analysis.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scan(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM analyses WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

// Latest returns the most recent analysis of a formula.
func (s *Store) Latest(ctx context.Context, formulaID string) (*Record, error) {
	rec, err := scan(s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM analyses WHERE formula_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, formulaID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns a formula's analyses, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, formulaID string, limit int) ([]Record, error) {
	query := `SELECT ` + columns + ` FROM analyses WHERE formula_id = ? ORDER BY created_at DESC, rowid DESC`
	args := []any{formulaID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (*Record, error) {
	var (
		rec                   Record
		request, interactions string
		longevity, projection string
	)
	err := sc.Scan(
		&rec.ID, &rec.FormulaID, &request, &rec.Result.FinalScentProfile, &rec.Result.ProfileHTML,
		&interactions, &longevity, &projection, &rec.Provider, &rec.Model,
		&rec.InputTokens, &rec.OutputTokens, &rec.CostUSD, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning analysis: %w", err)
	}
	rec.Result.Longevity = Longevity(longevity)
	rec.Result.Projection = Projection(projection)
	if err := json.Unmarshal([]byte(request), &rec.Request); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	if err := json.Unmarshal([]byte(interactions), &rec.Result.Interactions); err != nil {
		return nil, fmt.Errorf("decoding interactions: %w", err)
	}
	return &rec, nil
}

// Package formula is the canonical formula record: line items, amounts and
// the persisted visual layout. Every write is one transaction, is recorded
// in the audit trail and is announced to subscribers.
package formula

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/db"
)

// Store persists formulas in SQLite. Writes are serialized, so they are
// applied in call order.
type Store struct {
	db *db.DB

	writeMu sync.Mutex

	subMu   sync.Mutex
	subs    map[string]map[int]chan Change
	nextSub int
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, subs: make(map[string]map[int]chan Change)}
}

// Create inserts a new formula. A missing id is generated and a zero target
// total becomes DefaultTargetTotal.
func (s *Store) Create(ctx context.Context, f Formula) (*Formula, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Name == "" {
		return nil, errors.New("formula: name is required")
	}
	if f.TargetTotal == 0 {
		f.TargetTotal = DefaultTargetTotal
	}
	if f.TargetTotal < 0 || f.SolventAmount < 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	err := s.write(ctx, Change{FormulaID: f.ID, Kind: ChangeHeader}, func(tx *sql.Tx) (*audit.Entry, error) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO formulas (id, name, solvent, solvent_amount, target_total, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.Solvent, f.SolventAmount, f.TargetTotal, f.CreatedAt, f.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting formula: %w", err)
		}
		return &audit.Entry{
			Action:   audit.ActionFormulaCreated,
			Summary:  fmt.Sprintf("Created formula %q", f.Name),
			NewValue: f.Name,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Get returns a formula header.
func (s *Store) Get(ctx context.Context, id string) (*Formula, error) {
	var f Formula
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, solvent, solvent_amount, target_total, created_at, updated_at
		 FROM formulas WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.Solvent, &f.SolventAmount, &f.TargetTotal, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting formula: %w", err)
	}
	return &f, nil
}

// List returns all formulas, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Formula, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, solvent, solvent_amount, target_total, created_at, updated_at
		 FROM formulas ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing formulas: %w", err)
	}
	defer rows.Close()

	var out []Formula
	for rows.Next() {
		var f Formula
		if err := rows.Scan(&f.ID, &f.Name, &f.Solvent, &f.SolventAmount, &f.TargetTotal, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning formula: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Items returns the formula's line items in insertion order.
func (s *Store) Items(ctx context.Context, id string) ([]Item, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT fi.ingredient_ref, COALESCE(i.name, ''), fi.amount
		 FROM formula_items fi LEFT JOIN ingredients i ON i.id = fi.ingredient_ref
		 WHERE fi.formula_id = ? ORDER BY fi.seq`, id)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Ref, &it.Name, &it.Amount); err != nil {
			return nil, fmt.Errorf("scanning line item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Layout returns the persisted layout. The bool is false when none has been
// written yet.
func (s *Store) Layout(ctx context.Context, id string) (Layout, bool, error) {
	var (
		l   Layout
		raw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot, digest, updated_at FROM formula_layouts WHERE formula_id = ?`, id,
	).Scan(&raw, &l.Digest, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return Layout{}, false, nil
	}
	if err != nil {
		return Layout{}, false, fmt.Errorf("reading layout: %w", err)
	}
	snap, err := canvas.ParseSnapshot([]byte(raw))
	if err != nil {
		return Layout{}, false, err
	}
	l.Snapshot = snap
	return l, true, nil
}

// AddLineItem appends ref with amount zero. Adding a ref the formula already
// has is a no-op.
func (s *Store) AddLineItem(ctx context.Context, id, ref string) error {
	if ref == "" {
		return errors.New("formula: ingredient ref is required")
	}
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeItems, Ref: ref}, func(tx *sql.Tx) (*audit.Entry, error) {
		if err := touch(ctx, tx, id); err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO formula_items (formula_id, ingredient_ref, amount, seq)
			 SELECT ?, ?, 0, COALESCE(MAX(seq), 0) + 1 FROM formula_items WHERE formula_id = ?
			 ON CONFLICT(formula_id, ingredient_ref) DO NOTHING`,
			id, ref, id,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting line item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, errNoop
		}
		return &audit.Entry{
			Action:       audit.ActionLineItemAdded,
			Summary:      "Added " + ref,
			AffectedRefs: []string{ref},
		}, nil
	})
}

// RemoveLineItem deletes ref from the formula. Removing an absent ref is a
// no-op.
func (s *Store) RemoveLineItem(ctx context.Context, id, ref string) error {
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeItems, Ref: ref}, func(tx *sql.Tx) (*audit.Entry, error) {
		if err := touch(ctx, tx, id); err != nil {
			return nil, err
		}
		var prev float64
		err := tx.QueryRowContext(ctx,
			`SELECT amount FROM formula_items WHERE formula_id = ? AND ingredient_ref = ?`, id, ref,
		).Scan(&prev)
		if err == sql.ErrNoRows {
			return nil, errNoop
		}
		if err != nil {
			return nil, fmt.Errorf("reading line item: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM formula_items WHERE formula_id = ? AND ingredient_ref = ?`, id, ref,
		); err != nil {
			return nil, fmt.Errorf("deleting line item: %w", err)
		}
		return &audit.Entry{
			Action:        audit.ActionLineItemRemoved,
			Summary:       "Removed " + ref,
			AffectedRefs:  []string{ref},
			PreviousValue: formatAmount(prev),
		}, nil
	})
}

// SetAmount sets the amount of an existing line item.
func (s *Store) SetAmount(ctx context.Context, id, ref string, amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeItems, Ref: ref}, func(tx *sql.Tx) (*audit.Entry, error) {
		if err := touch(ctx, tx, id); err != nil {
			return nil, err
		}
		var prev float64
		err := tx.QueryRowContext(ctx,
			`SELECT amount FROM formula_items WHERE formula_id = ? AND ingredient_ref = ?`, id, ref,
		).Scan(&prev)
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("reading line item: %w", err)
		}
		if prev == amount {
			return nil, errNoop
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE formula_items SET amount = ? WHERE formula_id = ? AND ingredient_ref = ?`,
			amount, id, ref,
		); err != nil {
			return nil, fmt.Errorf("updating line item: %w", err)
		}
		return &audit.Entry{
			Action:        audit.ActionAmountSet,
			Summary:       fmt.Sprintf("Set %s to %s", ref, formatAmount(amount)),
			AffectedRefs:  []string{ref},
			PreviousValue: formatAmount(prev),
			NewValue:      formatAmount(amount),
		}, nil
	})
}

// SetTargetTotal changes the total that percentages are computed against.
func (s *Store) SetTargetTotal(ctx context.Context, id string, total float64) error {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return ErrInvalidAmount
	}
	// Percentages of every item change with the total.
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeItems}, func(tx *sql.Tx) (*audit.Entry, error) {
		var prev float64
		err := tx.QueryRowContext(ctx, `SELECT target_total FROM formulas WHERE id = ?`, id).Scan(&prev)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("reading formula: %w", err)
		}
		if prev == total {
			return nil, errNoop
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE formulas SET target_total = ?, updated_at = ? WHERE id = ?`,
			total, time.Now().UTC(), id,
		); err != nil {
			return nil, fmt.Errorf("updating target total: %w", err)
		}
		return &audit.Entry{
			Action:        audit.ActionTargetTotalSet,
			Summary:       "Set target total to " + formatAmount(total),
			PreviousValue: formatAmount(prev),
			NewValue:      formatAmount(total),
		}, nil
	})
}

// SetSolvent sets the carrier and its amount.
func (s *Store) SetSolvent(ctx context.Context, id, solvent string, amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeHeader}, func(tx *sql.Tx) (*audit.Entry, error) {
		res, err := tx.ExecContext(ctx,
			`UPDATE formulas SET solvent = ?, solvent_amount = ?, updated_at = ? WHERE id = ?`,
			solvent, amount, time.Now().UTC(), id,
		)
		if err != nil {
			return nil, fmt.Errorf("updating solvent: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrNotFound
		}
		return &audit.Entry{
			Action:   audit.ActionSolventSet,
			Summary:  fmt.Sprintf("Set solvent to %s (%s)", solvent, formatAmount(amount)),
			NewValue: solvent,
		}, nil
	})
}

// Rename changes the formula's display name.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	if name == "" {
		return errors.New("formula: name is required")
	}
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeHeader}, func(tx *sql.Tx) (*audit.Entry, error) {
		var prev string
		err := tx.QueryRowContext(ctx, `SELECT name FROM formulas WHERE id = ?`, id).Scan(&prev)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("reading formula: %w", err)
		}
		if prev == name {
			return nil, errNoop
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE formulas SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now().UTC(), id,
		); err != nil {
			return nil, fmt.Errorf("renaming formula: %w", err)
		}
		return &audit.Entry{
			Action:        audit.ActionFormulaRenamed,
			Summary:       fmt.Sprintf("Renamed formula to %q", name),
			PreviousValue: prev,
			NewValue:      name,
		}, nil
	})
}

// PersistLayout stores a layout snapshot atomically. A snapshot whose digest
// matches the stored one is a no-op: nothing is written, audited or
// announced.
func (s *Store) PersistLayout(ctx context.Context, id string, snap canvas.Snapshot, digest string) error {
	if digest == "" {
		digest = snap.Digest()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}
	return s.write(ctx, Change{FormulaID: id, Kind: ChangeLayout}, func(tx *sql.Tx) (*audit.Entry, error) {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM formulas WHERE id = ?`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("reading formula: %w", err)
		}
		if exists == 0 {
			return nil, ErrNotFound
		}
		var prev string
		err := tx.QueryRowContext(ctx, `SELECT digest FROM formula_layouts WHERE formula_id = ?`, id).Scan(&prev)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("reading layout digest: %w", err)
		}
		if prev == digest {
			return nil, errNoop
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO formula_layouts (formula_id, snapshot, digest, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(formula_id) DO UPDATE SET snapshot = excluded.snapshot, digest = excluded.digest, updated_at = excluded.updated_at`,
			id, string(data), digest, time.Now().UTC(),
		); err != nil {
			return nil, fmt.Errorf("writing layout: %w", err)
		}
		return &audit.Entry{
			Action:        audit.ActionLayoutPersisted,
			Summary:       fmt.Sprintf("Saved layout (%d nodes, %d connections, %d groups)", len(snap.Nodes), len(snap.Connections), len(snap.Groups)),
			PreviousValue: prev,
			NewValue:      digest,
		}, nil
	})
}

// errNoop aborts a write that would change nothing.
var errNoop = errors.New("no-op")

// write runs fn in a transaction under the write lock, records the audit
// entry fn returns in the same transaction, and announces ch after commit.
func (s *Store) write(ctx context.Context, ch Change, fn func(tx *sql.Tx) (*audit.Entry, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := fn(tx)
	if errors.Is(err, errNoop) {
		return nil
	}
	if err != nil {
		return err
	}

	a := actorFrom(ctx)
	entry.ActorType = a.typ
	entry.ActorID = a.id
	entry.Scope = audit.ScopeFormula
	entry.ScopeID = ch.FormulaID
	if err := audit.LogTx(ctx, tx, *entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	s.publish(ch)
	return nil
}

// touch bumps updated_at and reports ErrNotFound for unknown formulas.
func touch(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `UPDATE formulas SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating formula: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Subscribe returns a channel that receives a Change after every write to
// the formula, and a function that ends the subscription and closes the
// channel.
func (s *Store) Subscribe(formulaID string) (<-chan Change, func()) {
	ch := make(chan Change, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[formulaID] == nil {
		s.subs[formulaID] = make(map[int]chan Change)
	}
	s.subs[formulaID][id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs[formulaID], id)
			if len(s.subs[formulaID]) == 0 {
				delete(s.subs, formulaID)
			}
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish never blocks. A subscriber with a notification already pending
// gets the newer one in its place, except that a layout change never
// replaces a pending items or header change: layout writes are the ones
// subscribers may ignore.
func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[c.FormulaID] {
		select {
		case ch <- c:
			continue
		default:
		}
		next := c
		select {
		case pending := <-ch:
			if c.Kind == ChangeLayout && pending.Kind != ChangeLayout {
				next = pending
			}
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}

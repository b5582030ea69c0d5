package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ziadkadry99/formula-canvas/internal/db"
)

// Store persists the catalog in SQLite and keeps an in-memory copy so the
// canvas can resolve refs without touching the database.
type Store struct {
	db *db.DB

	mu    sync.RWMutex
	cache map[string]Ingredient
}

// NewStore creates a Store backed by the given database. Call Load before
// using it as a Lookup.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, cache: make(map[string]Ingredient)}
}

// Load reads the whole catalog into memory.
func (s *Store) Load(ctx context.Context) error {
	all, err := s.list(ctx)
	if err != nil {
		return err
	}
	cache := make(map[string]Ingredient, len(all))
	for _, ing := range all {
		cache[ing.ID] = ing
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

// Lookup implements Lookup from the in-memory copy.
func (s *Store) Lookup(ref string) (Ingredient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.cache[ref]
	return ing, ok
}

// All returns the cached catalog sorted by name.
func (s *Store) All() []Ingredient {
	s.mu.RLock()
	out := make([]Ingredient, 0, len(s.cache))
	for _, ing := range s.cache {
		out = append(out, ing)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns one ingredient from the database.
func (s *Store) Get(ctx context.Context, id string) (*Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM ingredients WHERE id = ?`, id)
	ing, err := scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting ingredient: %w", err)
	}
	return ing, nil
}

// Upsert inserts or replaces an ingredient.
func (s *Store) Upsert(ctx context.Context, ing Ingredient) error {
	families, err := json.Marshal(ing.Families)
	if err != nil {
		return fmt.Errorf("encoding families: %w", err)
	}
	if ing.Families == nil {
		families = []byte("[]")
	}
	profile, err := json.Marshal(ing.Profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if ing.Profile == nil {
		profile = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingredients (id, name, vendor, cost, note, families, profile, is_allergen, ifra_limit, cas, description, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, vendor = excluded.vendor, cost = excluded.cost, note = excluded.note,
		   families = excluded.families, profile = excluded.profile, is_allergen = excluded.is_allergen,
		   ifra_limit = excluded.ifra_limit, cas = excluded.cas, description = excluded.description,
		   updated_at = excluded.updated_at`,
		ing.ID, ing.Name, ing.Vendor, ing.Cost, string(ing.Note), string(families), string(profile),
		ing.IsAllergen, ing.IFRALimit, ing.CAS, ing.Description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting ingredient %s: %w", ing.ID, err)
	}

	s.mu.Lock()
	s.cache[ing.ID] = ing
	s.mu.Unlock()
	return nil
}

// Count returns the number of stored ingredients.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingredients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ingredients: %w", err)
	}
	return n, nil
}

// Seed loads the built-in palette into an empty catalog and reports how many
// ingredients it wrote.
func (s *Store) Seed(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	for _, ing := range Palette {
		if err := s.Upsert(ctx, ing); err != nil {
			return 0, err
		}
	}
	return len(Palette), nil
}

const columns = `id, name, vendor, cost, note, families, profile, is_allergen, ifra_limit, cas, description`

func (s *Store) list(ctx context.Context) ([]Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM ingredients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing ingredients: %w", err)
	}
	defer rows.Close()

	var out []Ingredient
	for rows.Next() {
		ing, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ingredient: %w", err)
		}
		out = append(out, *ing)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (*Ingredient, error) {
	var (
		ing               Ingredient
		note              string
		families, profile string
	)
	if err := sc.Scan(&ing.ID, &ing.Name, &ing.Vendor, &ing.Cost, &note, &families, &profile,
		&ing.IsAllergen, &ing.IFRALimit, &ing.CAS, &ing.Description); err != nil {
		return nil, err
	}
	ing.Note = Note(note)
	if err := json.Unmarshal([]byte(families), &ing.Families); err != nil {
		ing.Families = nil
	}
	if err := json.Unmarshal([]byte(profile), &ing.Profile); err != nil || len(ing.Profile) == 0 {
		ing.Profile = nil
	}
	return &ing, nil
}

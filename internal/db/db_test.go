package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist by counting rows in each one.
	tables := []string{
		"formulas", "formula_items", "formula_layouts",
		"ingredients", "audit_entries", "analyses",
	}

	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestItemsCascadeWithFormula(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO formulas (id, name) VALUES ('f1', 'Study')`); err != nil {
		t.Fatalf("insert formula: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO formula_items (formula_id, ingredient_ref, amount, seq) VALUES ('f1', 'ing-1', 12, 1)`); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	if _, err := d.Exec(`DELETE FROM formulas WHERE id = 'f1'`); err != nil {
		t.Fatalf("delete formula: %v", err)
	}
	var count int
	d.QueryRow(`SELECT COUNT(*) FROM formula_items`).Scan(&count)
	if count != 0 {
		t.Errorf("items left after formula delete: %d", count)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "canvas.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()
	if d.Path() != path {
		t.Errorf("Path() = %q", d.Path())
	}
}

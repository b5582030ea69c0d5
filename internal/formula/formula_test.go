package formula

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/db"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

func setupTestStore(t *testing.T) (*Store, *audit.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), audit.NewStore(database)
}

func createFormula(t *testing.T, s *Store) string {
	t.Helper()
	f, err := s.Create(context.Background(), Formula{Name: "Test"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return f.ID
}

func TestCreateAndGet(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, Formula{Name: "Chypre Draft"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated id")
	}
	if created.TargetTotal != DefaultTargetTotal {
		t.Errorf("TargetTotal = %v, want %v", created.TargetTotal, DefaultTargetTotal)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Chypre Draft" {
		t.Errorf("Name = %q", got.Name)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestAddLineItemIsIdempotent(t *testing.T) {
	s, log := setupTestStore(t)
	ctx := context.Background()
	id := createFormula(t, s)

	for i := 0; i < 2; i++ {
		if err := s.AddLineItem(ctx, id, "ing-1"); err != nil {
			t.Fatalf("AddLineItem: %v", err)
		}
	}
	if err := s.AddLineItem(ctx, id, "ing-2"); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}

	items, err := s.Items(ctx, id)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 || items[0].Ref != "ing-1" || items[1].Ref != "ing-2" {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Amount != 0 {
		t.Errorf("new item amount = %v, want 0", items[0].Amount)
	}

	entries, _ := log.Query(ctx, audit.QueryFilter{Action: audit.ActionLineItemAdded})
	if len(entries) != 2 {
		t.Errorf("audit entries = %d, want 2", len(entries))
	}
}

func TestWritesToUnknownFormula(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	if err := s.AddLineItem(ctx, "nope", "ing-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddLineItem err = %v", err)
	}
	if err := s.SetTargetTotal(ctx, "nope", 50); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetTargetTotal err = %v", err)
	}
	if err := s.PersistLayout(ctx, "nope", canvas.Snapshot{}, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("PersistLayout err = %v", err)
	}
}

func TestSetAmountAndRemove(t *testing.T) {
	s, log := setupTestStore(t)
	ctx := context.Background()
	id := createFormula(t, s)

	s.AddLineItem(ctx, id, "ing-3")
	if err := s.SetAmount(ctx, id, "ing-3", 2.8); err != nil {
		t.Fatalf("SetAmount: %v", err)
	}
	if err := s.SetAmount(ctx, id, "ing-3", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount err = %v", err)
	}
	if err := s.SetAmount(ctx, id, "ing-9", 1); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown ref err = %v", err)
	}

	entries, _ := log.Query(ctx, audit.QueryFilter{Action: audit.ActionAmountSet})
	if len(entries) != 1 || entries[0].NewValue != "2.8" || entries[0].PreviousValue != "0" {
		t.Fatalf("amount audit = %+v", entries)
	}

	if err := s.RemoveLineItem(ctx, id, "ing-3"); err != nil {
		t.Fatalf("RemoveLineItem: %v", err)
	}
	if err := s.RemoveLineItem(ctx, id, "ing-3"); err != nil {
		t.Fatalf("second RemoveLineItem: %v", err)
	}
	items, _ := s.Items(ctx, id)
	if len(items) != 0 {
		t.Errorf("items after remove = %+v", items)
	}
	removed, _ := log.Query(ctx, audit.QueryFilter{Action: audit.ActionLineItemRemoved})
	if len(removed) != 1 {
		t.Errorf("remove audit entries = %d, want 1", len(removed))
	}
}

func TestItemsJoinCatalogNames(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	id := createFormula(t, s)

	if _, err := s.db.ExecContext(ctx, `INSERT INTO ingredients (id, name) VALUES ('ing-1', 'Iso E Super')`); err != nil {
		t.Fatalf("insert ingredient: %v", err)
	}
	s.AddLineItem(ctx, id, "ing-1")
	s.AddLineItem(ctx, id, "custom")

	items, _ := s.Items(ctx, id)
	if items[0].Name != "Iso E Super" || items[1].Name != "" {
		t.Errorf("names = %q, %q", items[0].Name, items[1].Name)
	}
}

func TestPersistLayoutSkipsSameDigest(t *testing.T) {
	s, log := setupTestStore(t)
	ctx := context.Background()
	id := createFormula(t, s)

	g := canvas.NewGraph()
	g.AddNode(canvas.IngredientPayload{Ref: "ing-1", Name: "Iso E Super"}, geometry.Pt(120, 80))
	snap := g.Snapshot()

	changes, cancel := s.Subscribe(id)
	defer cancel()

	if err := s.PersistLayout(ctx, id, snap, snap.Digest()); err != nil {
		t.Fatalf("PersistLayout: %v", err)
	}
	<-changes
	if err := s.PersistLayout(ctx, id, snap, snap.Digest()); err != nil {
		t.Fatalf("second PersistLayout: %v", err)
	}

	select {
	case c := <-changes:
		t.Errorf("unexpected change for identical layout: %+v", c)
	default:
	}

	entries, _ := log.Query(ctx, audit.QueryFilter{Action: audit.ActionLayoutPersisted})
	if len(entries) != 1 {
		t.Errorf("layout audit entries = %d, want 1", len(entries))
	}

	l, ok, err := s.Layout(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Layout: ok=%v err=%v", ok, err)
	}
	if l.Digest != snap.Digest() {
		t.Errorf("digest = %s, want %s", l.Digest, snap.Digest())
	}
	if len(l.Snapshot.Nodes) != 1 || l.Snapshot.Nodes[0].Position != geometry.Pt(120, 80) {
		t.Errorf("snapshot = %+v", l.Snapshot)
	}
}

func TestLayoutMissing(t *testing.T) {
	s, _ := setupTestStore(t)
	id := createFormula(t, s)
	_, ok, err := s.Layout(context.Background(), id)
	if err != nil || ok {
		t.Errorf("Layout = ok %v err %v, want absent", ok, err)
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	id := createFormula(t, s)

	changes, cancel := s.Subscribe(id)
	s.AddLineItem(ctx, id, "ing-1")
	s.AddLineItem(ctx, id, "ing-2")

	select {
	case c := <-changes:
		if c.Ref != "ing-2" || c.Kind != ChangeItems {
			t.Errorf("change = %+v, want newest", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	cancel()
	if _, open := <-changes; open {
		t.Error("channel still open after cancel")
	}
	// Writes after cancel must not panic on the closed channel.
	s.AddLineItem(ctx, id, "ing-3")
}

func TestLayoutChangeKeepsPendingItemsChange(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	id := createFormula(t, s)

	g := canvas.NewGraph()
	g.AddNode(canvas.IngredientPayload{Ref: "ing-1", Name: "Iso E Super"}, geometry.Pt(120, 80))
	snap := g.Snapshot()

	changes, cancel := s.Subscribe(id)
	defer cancel()
	if err := s.AddLineItem(ctx, id, "ing-1"); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := s.PersistLayout(ctx, id, snap, snap.Digest()); err != nil {
		t.Fatalf("PersistLayout: %v", err)
	}

	select {
	case c := <-changes:
		if c.Kind != ChangeItems || c.Ref != "ing-1" {
			t.Errorf("change = %+v, want the items change", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	// A layout change still reaches an idle subscriber.
	g.AddNode(canvas.OutputPayload{Label: "EDP"}, geometry.Pt(400, 80))
	snap = g.Snapshot()
	if err := s.PersistLayout(ctx, id, snap, snap.Digest()); err != nil {
		t.Fatalf("PersistLayout: %v", err)
	}
	select {
	case c := <-changes:
		if c.Kind != ChangeLayout {
			t.Errorf("change = %+v, want layout", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no layout change delivered")
	}
}

func TestWithActorAttributesWrites(t *testing.T) {
	s, log := setupTestStore(t)
	id := createFormula(t, s)
	ctx := WithActor(context.Background(), audit.ActorAgent, "mcp")

	s.AddLineItem(ctx, id, "ing-1")
	entries, _ := log.Query(context.Background(), audit.QueryFilter{ActorID: "mcp"})
	if len(entries) != 1 || entries[0].ActorType != audit.ActorAgent || entries[0].ScopeID != id {
		t.Errorf("entries = %+v", entries)
	}
}

func TestSeed(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Seed(ctx)
	if err != nil || !created {
		t.Fatalf("Seed = %v, %v", created, err)
	}
	created, err = s.Seed(ctx)
	if err != nil || created {
		t.Fatalf("second Seed = %v, %v", created, err)
	}

	f, _ := s.Get(ctx, SampleID)
	if f.SolventAmount != 80 || f.TargetTotal != 100 {
		t.Errorf("formula = %+v", f)
	}
	items, _ := s.Items(ctx, SampleID)
	if len(items) != 4 || items[0].Amount != 12 || items[3].Amount != 0.7 {
		t.Errorf("items = %+v", items)
	}
}

// --- HTTP handler tests ---

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	s, _ := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, s)
	return r, s
}

func TestHTTPCreateAndAddItem(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/formulas", strings.NewReader(`{"id":"f1","name":"Fougère"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/formulas/f1/items", strings.NewReader(`{"ref":"ing-9","amount":3}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/formulas/f1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var got formulaResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Fougère" || len(got.Items) != 1 || got.Items[0].Amount != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPValidation(t *testing.T) {
	r, s := setupRouter(t)
	id := createFormula(t, s)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create without name", http.MethodPost, "/api/formulas", `{}`, http.StatusBadRequest},
		{"add without ref", http.MethodPost, "/api/formulas/" + id + "/items", `{}`, http.StatusBadRequest},
		{"negative amount", http.MethodPut, "/api/formulas/" + id + "/items/ing-1", `{"amount":-2}`, http.StatusBadRequest},
		{"zero target", http.MethodPut, "/api/formulas/" + id + "/target-total", `{"target_total":0}`, http.StatusBadRequest},
		{"unknown formula", http.MethodGet, "/api/formulas/missing", ``, http.StatusNotFound},
		{"unknown item", http.MethodPut, "/api/formulas/" + id + "/items/ing-1", `{"amount":2}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

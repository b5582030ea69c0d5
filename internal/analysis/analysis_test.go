package analysis

import (
	"bytes"
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
	"github.com/ziadkadry99/formula-canvas/internal/db"
	"github.com/ziadkadry99/formula-canvas/internal/llm"
)

type fakeProvider struct {
	content string
	err     error
	reqs    []llm.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "gemini-2.0-flash", InputTokens: 1000, OutputTokens: 500}, nil
}

const goodAnswer = `{
  "final_scent_profile": "A **bright** citrus opening over cedar.",
  "ingredient_interactions": [{"ingredients": ["Bergamot", "Iso E Super"], "effect": "Radiant woody glow."}],
  "longevity_estimate": "Moderate (4-6 hours)",
  "projection_estimate": "Strong"
}`

var formulaIngredients = []Ingredient{
	{Name: "Iso E Super", Concentration: 12},
	{Name: "Bergamot", Concentration: 2.8},
	{Name: "Unused", Concentration: 0},
}

func TestAnalyze(t *testing.T) {
	p := &fakeProvider{content: goodAnswer}
	svc := NewService(p, "gemini-2.0-flash", time.Second)

	rec, err := svc.Analyze(context.Background(), "f1", formulaIngredients)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(rec.Request) != 2 {
		t.Errorf("request = %+v, zero concentrations should be dropped", rec.Request)
	}
	if rec.Result.Longevity != LongevityModerate || rec.Result.Projection != ProjectionStrong {
		t.Errorf("result = %+v", rec.Result)
	}
	if !strings.Contains(rec.Result.ProfileHTML, "<strong>bright</strong>") {
		t.Errorf("html = %q", rec.Result.ProfileHTML)
	}
	if rec.Provider != "fake" || rec.CostUSD <= 0 {
		t.Errorf("provider = %q, cost = %v", rec.Provider, rec.CostUSD)
	}

	req := p.reqs[0]
	if !req.JSONMode || len(req.Messages) != 2 {
		t.Fatalf("request = %+v", req)
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "- Iso E Super: 12%") || strings.Contains(user, "Unused") {
		t.Errorf("prompt = %q", user)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	p := &fakeProvider{content: goodAnswer}
	svc := NewService(p, "m", 0)

	_, err := svc.Analyze(context.Background(), "f1", []Ingredient{{Name: "A", Concentration: 0}})
	if !errors.Is(err, ErrEmptyFormula) {
		t.Errorf("err = %v, want ErrEmptyFormula", err)
	}
	if len(p.reqs) != 0 {
		t.Error("provider called for empty formula")
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain", goodAnswer, false},
		{"fenced", "```json\n" + goodAnswer + "\n```", false},
		{"bad longevity", strings.Replace(goodAnswer, "Moderate (4-6 hours)", "Forever", 1), true},
		{"bad projection", strings.Replace(goodAnswer, `"Strong"`, `"Loud"`, 1), true},
		{"missing profile", `{"longevity_estimate":"Long (7+ hours)","projection_estimate":"Intimate"}`, true},
		{"not json", "I think it smells nice.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResult(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("err = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestTrackerLatestWins(t *testing.T) {
	var tr Tracker
	first := tr.Begin()
	second := tr.Begin()

	if tr.Resolve(first, &Record{ID: "old"}, nil) {
		t.Error("superseded request should not resolve")
	}
	if st := tr.Status(); !st.InFlight || st.Result != nil {
		t.Errorf("status = %+v", st)
	}
	if !tr.Resolve(second, &Record{ID: "new"}, nil) {
		t.Fatal("latest request should resolve")
	}
	st := tr.Status()
	if st.InFlight || st.Result.ID != "new" {
		t.Errorf("status = %+v", st)
	}

	// A failure keeps the previous result and surfaces a message.
	third := tr.Begin()
	tr.Resolve(third, nil, ErrEmptyFormula)
	st = tr.Status()
	if st.Result.ID != "new" || st.Error != "Cannot analyze an empty formula." {
		t.Errorf("status = %+v", st)
	}
	tr.Begin()
	if tr.Status().Error != "" {
		t.Error("Begin should clear the previous error")
	}
}

func setupStore(t *testing.T) (*Store, *audit.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), audit.NewStore(database)
}

func TestStoreSaveAndLatest(t *testing.T) {
	s, log := setupStore(t)
	ctx := context.Background()
	svc := NewService(&fakeProvider{content: goodAnswer}, "m", 0)

	first, _ := svc.Analyze(ctx, "f1", formulaIngredients)
	first.CreatedAt = time.Now().UTC().Add(-time.Minute)
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, _ := svc.Analyze(ctx, "f1", formulaIngredients[:1])
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	latest, err := s.Latest(ctx, "f1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != second.ID || len(latest.Request) != 1 {
		t.Errorf("latest = %+v", latest)
	}
	if len(latest.Result.Interactions) != 1 || latest.Result.Projection != ProjectionStrong {
		t.Errorf("result = %+v", latest.Result)
	}

	all, _ := s.List(ctx, "f1", 0)
	if len(all) != 2 {
		t.Errorf("list = %d", len(all))
	}
	if _, err := s.Latest(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest(other) err = %v", err)
	}

	entries, _ := log.Query(ctx, audit.QueryFilter{Scope: audit.ScopeAnalysis, ScopeID: "f1"})
	if len(entries) != 2 || entries[0].ActorType != audit.ActorAgent {
		t.Errorf("audit = %+v", entries)
	}
}

func TestHTTPAnalyze(t *testing.T) {
	s, _ := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, NewService(&fakeProvider{content: goodAnswer}, "m", 0), s)

	body, _ := json.Marshal(analyzeRequest{FormulaID: "f1", Ingredients: formulaIngredients})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var got Record
	json.NewDecoder(rec.Body).Decode(&got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+got.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(`{"ingredients":[]}`)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "empty formula") {
		t.Errorf("empty status = %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("list without formula_id status = %d", rec.Code)
	}
}

func TestHTTPAnalyzeWithoutProvider(t *testing.T) {
	s, _ := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, nil, s)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader(`{}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

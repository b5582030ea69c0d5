package analysis

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRoutes mounts the analysis API under /api/analyses. svc may be nil
// when no provider is configured; POST then answers 503.
func RegisterRoutes(r chi.Router, svc *Service, store *Store) {
	r.Route("/api/analyses", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/", handleAnalyze(svc, store))
		r.Get("/{id}", handleGet(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formulaID := r.URL.Query().Get("formula_id")
		if formulaID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formula_id is required"})
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}
		recs, err := store.List(r.Context(), formulaID, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if recs == nil {
			recs = []Record{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type analyzeRequest struct {
	FormulaID   string       `json:"formula_id"`
	Ingredients []Ingredient `json:"ingredients" validate:"dive"`
}

func handleAnalyze(svc *Service, store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no LLM provider configured"})
			return
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		rec, err := svc.Analyze(r.Context(), req.FormulaID, req.Ingredients)
		switch {
		case errors.Is(err, ErrEmptyFormula):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": message(err)})
			return
		case err != nil:
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": message(err)})
			return
		}

		if req.FormulaID != "" {
			if err := store.Save(r.Context(), rec); err != nil {
				log.Printf("analysis: saving result: %v", err)
			}
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

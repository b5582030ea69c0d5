package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the catalog API under /api/catalog. index may be nil,
// in which case the similar endpoint answers 503.
func RegisterRoutes(r chi.Router, store *Store, index *SimilarityIndex) {
	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
		r.Get("/{id}/similar", handleSimilar(store, index))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := store.All()
		q := strings.ToLower(r.URL.Query().Get("q"))
		note := Note(r.URL.Query().Get("note"))
		out := make([]Ingredient, 0, len(all))
		for _, ing := range all {
			if q != "" && !strings.Contains(strings.ToLower(ing.Name), q) {
				continue
			}
			if note != "" && ing.Note != note {
				continue
			}
			out = append(out, ing)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ing, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ing)
	}
}

func handleSimilar(store *Store, index *SimilarityIndex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if index == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "similarity index unavailable"})
			return
		}
		id := chi.URLParam(r, "id")
		ing, ok := store.Lookup(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		n := 5
		if v := r.URL.Query().Get("n"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				n = parsed
			}
		}
		matches, err := index.Nearest(r.Context(), ing.ProfileVector(), n, id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if matches == nil {
			matches = []Match{}
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

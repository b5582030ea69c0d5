package formula

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRoutes mounts the formula API under /api/formulas.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/formulas", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/", handleCreate(store))
		r.Get("/{id}", handleGet(store))
		r.Put("/{id}/target-total", handleSetTargetTotal(store))
		r.Put("/{id}/solvent", handleSetSolvent(store))
		r.Put("/{id}/name", handleRename(store))
		r.Get("/{id}/items", handleItems(store))
		r.Post("/{id}/items", handleAddItem(store))
		r.Put("/{id}/items/{ref}", handleSetAmount(store))
		r.Delete("/{id}/items/{ref}", handleRemoveItem(store))
	})
}

type formulaResponse struct {
	Formula
	Items []Item `json:"items"`
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formulas, err := store.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if formulas == nil {
			formulas = []Formula{}
		}
		writeJSON(w, http.StatusOK, formulas)
	}
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f Formula
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(f); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		created, err := store.Create(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		f, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		items, err := store.Items(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []Item{}
		}
		writeJSON(w, http.StatusOK, formulaResponse{Formula: *f, Items: items})
	}
}

func handleItems(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.Items(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []Item{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type addItemRequest struct {
	Ref    string   `json:"ref" validate:"required"`
	Amount *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

func handleAddItem(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req addItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := store.AddLineItem(r.Context(), id, req.Ref); err != nil {
			writeError(w, err)
			return
		}
		if req.Amount != nil {
			if err := store.SetAmount(r.Context(), id, req.Ref, *req.Amount); err != nil {
				writeError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
	}
}

type amountRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

func handleSetAmount(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := store.SetAmount(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "ref"), req.Amount); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleRemoveItem(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.RemoveLineItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "ref")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type targetTotalRequest struct {
	TargetTotal float64 `json:"target_total" validate:"gt=0"`
}

func handleSetTargetTotal(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req targetTotalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := store.SetTargetTotal(r.Context(), chi.URLParam(r, "id"), req.TargetTotal); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

type solventRequest struct {
	Solvent string  `json:"solvent"`
	Amount  float64 `json:"amount" validate:"gte=0"`
}

func handleSetSolvent(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req solventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := store.SetSolvent(r.Context(), chi.URLParam(r, "id"), req.Solvent, req.Amount); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

func handleRename(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := store.Rename(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

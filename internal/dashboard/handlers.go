package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Formulas     int `json:"formulas"`
	Ingredients  int `json:"ingredients"`
	LiveSessions int `json:"live_sessions"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Entries []audit.Entry `json:"entries"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	formulas, err := d.formulas.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	stats := statsResponse{
		Formulas:    len(formulas),
		Ingredients: len(d.catalog.All()),
	}
	if d.editor != nil {
		stats.LiveSessions = d.editor.Len()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	entries := []audit.Entry{}
	if d.audit != nil {
		found, err := d.audit.Query(r.Context(), audit.QueryFilter{Limit: 10})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if found != nil {
			entries = found
		}
	}
	writeJSON(w, http.StatusOK, recentResponse{Entries: entries})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

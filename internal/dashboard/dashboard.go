// Package dashboard serves the workspace overview: a browser page listing
// formulas with a live canvas view, and the stats behind it.
package dashboard

import (
	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
)

// Dashboard provides the overview page and its API.
type Dashboard struct {
	formulas *formula.Store
	catalog  *catalog.Store
	audit    *audit.Store
	editor   *editor.Manager
}

// New creates a new Dashboard. audit and mgr may be nil.
func New(formulas *formula.Store, cat *catalog.Store, auditStore *audit.Store, mgr *editor.Manager) *Dashboard {
	return &Dashboard{
		formulas: formulas,
		catalog:  cat,
		audit:    auditStore,
		editor:   mgr,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
}

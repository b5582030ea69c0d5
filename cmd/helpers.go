package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ziadkadry99/formula-canvas/internal/analysis"
	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/config"
	"github.com/ziadkadry99/formula-canvas/internal/db"
	"github.com/ziadkadry99/formula-canvas/internal/editor"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/llm"
	"github.com/ziadkadry99/formula-canvas/internal/reconcile"
)

// workspace holds the stores every command works against.
type workspace struct {
	cfg      *config.Config
	db       *db.DB
	formulas *formula.Store
	catalog  *catalog.Store
	index    *catalog.SimilarityIndex
	audit    *audit.Store
	analyses *analysis.Store
	analyzer *analysis.Service // nil without a usable provider
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `formulacanvas init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openWorkspace opens the database, seeds and loads the catalog and builds
// the similarity index. With analyze set it also creates the analyzer when
// the provider can be created.
func openWorkspace(ctx context.Context, cfg *config.Config, analyze bool) (*workspace, error) {
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	w := &workspace{
		cfg:      cfg,
		db:       database,
		formulas: formula.NewStore(database),
		catalog:  catalog.NewStore(database),
		audit:    audit.NewStore(database),
		analyses: analysis.NewStore(database),
	}

	if n, err := w.catalog.Seed(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("seeding catalog: %w", err)
	} else if n > 0 && verbose {
		fmt.Fprintf(os.Stderr, "Seeded catalog with %d ingredients\n", n)
	}
	if err := w.catalog.Load(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	w.index, err = catalog.NewSimilarityIndex(ctx, w.catalog.All())
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("building similarity index: %w", err)
	}

	if !analyze {
		return w, nil
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: scent analysis disabled: %v\n", err)
	} else {
		w.analyzer = analysis.NewService(provider, cfg.Model, cfg.AnalysisTimeout())
	}
	return w, nil
}

func (w *workspace) Close() error { return w.db.Close() }

func (w *workspace) editorDeps() editor.Deps {
	return editor.Deps{
		Formulas: w.formulas,
		Catalog:  w.catalog,
		Index:    w.index,
		Analyzer: w.analyzer,
		Analyses: w.analyses,
	}
}

// createLLMProviderFromConfig creates the rate-limited analysis provider.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(cfg.LLM())
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.Analysis.RequestsPerMinute), nil
}

// editorOptions maps the canvas section of the config onto editor options.
func editorOptions(cfg *config.Config) editor.Options {
	opts := editor.DefaultOptions()
	c := cfg.Canvas
	opts.MinZoom = c.MinZoom
	opts.MaxZoom = c.MaxZoom
	opts.GroupPadding = c.GroupPadding
	opts.DefaultStrength = c.DefaultStrength
	opts.Cascade = reconcile.Options{
		Origin: geometry.Pt(c.CascadeOriginX, c.CascadeOriginY),
		Step:   c.CascadeStep,
		Wrap:   c.CascadeWrap,
	}
	return opts
}

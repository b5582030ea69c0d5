package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
	"github.com/ziadkadry99/formula-canvas/internal/progress"
)

var validate = validator.New()

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Files    int      `json:"files"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer loads ingredient definitions from YAML files into a Store.
type Importer struct {
	Store    *Store
	Index    *SimilarityIndex // optional; kept in step with the store
	Audit    *audit.Store     // optional
	Reporter progress.Reporter
}

// file is the on-disk shape: either a bare list of ingredients or a
// document with an ingredients key.
type file struct {
	Ingredients []Ingredient `yaml:"ingredients"`
}

// ExpandPatterns resolves doublestar glob patterns (e.g. catalogs/**/*.yaml)
// into a sorted, de-duplicated list of files.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		base, pattern := doublestar.SplitPattern(filepath.ToSlash(p))
		matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", p, err)
		}
		for _, m := range matches {
			path := filepath.Join(base, filepath.FromSlash(m))
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Import reads every file matched by patterns. Invalid entries are skipped
// and reported; they never abort the import.
func (im *Importer) Import(ctx context.Context, patterns []string) (ImportResult, error) {
	var res ImportResult
	files, err := ExpandPatterns(patterns)
	if err != nil {
		return res, err
	}
	res.Files = len(files)

	rep := im.Reporter
	if rep == nil {
		rep = progress.Discard{}
	}
	rep.Start(len(files))
	defer rep.Finish()

	var imported []string
	for i, path := range files {
		rep.Update(i+1, filepath.Base(path))

		ings, err := readFile(path)
		if err != nil {
			rep.Skip(filepath.Base(path), err.Error())
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		for _, ing := range ings {
			if err := validate.Struct(ing); err != nil {
				res.Skipped++
				rep.Skip(filepath.Base(path), fmt.Sprintf("%s: %v", ing.ID, err))
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s: %v", path, ing.ID, err))
				continue
			}
			if err := im.Store.Upsert(ctx, ing); err != nil {
				return res, err
			}
			if im.Index != nil {
				if err := im.Index.Upsert(ctx, ing); err != nil {
					return res, err
				}
			}
			imported = append(imported, ing.ID)
			res.Imported++
		}
	}

	if im.Audit != nil && res.Imported > 0 {
		if err := im.Audit.Log(ctx, audit.Entry{
			ActorType:    audit.ActorSystem,
			ActorID:      "catalog-import",
			Action:       audit.ActionCatalogImported,
			Scope:        audit.ScopeCatalog,
			Summary:      fmt.Sprintf("Imported %d ingredients from %d files", res.Imported, res.Files),
			Detail:       strings.Join(files, "\n"),
			AffectedRefs: imported,
		}); err != nil {
			return res, err
		}
	}
	return res, nil
}

func readFile(path string) ([]Ingredient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc file
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Ingredients) > 0 {
		return doc.Ingredients, nil
	}
	var list []Ingredient
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return list, nil
}

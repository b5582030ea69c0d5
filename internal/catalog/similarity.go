package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "palette"

// Match is a catalog ingredient ranked by profile similarity.
type Match struct {
	Ingredient Ingredient `json:"ingredient"`
	Similarity float32    `json:"similarity"`
}

// SimilarityIndex ranks catalog ingredients by cosine similarity of their
// profile vectors. Vectors are supplied directly, so no embedding model is
// involved.
type SimilarityIndex struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	byID       map[string]Ingredient
}

var errNoEmbedder = errors.New("catalog: similarity index only accepts profile vectors")

// NewSimilarityIndex builds an index over the given ingredients.
func NewSimilarityIndex(ctx context.Context, ingredients []Ingredient) (*SimilarityIndex, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbedder
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	idx := &SimilarityIndex{db: db, collection: col, byID: make(map[string]Ingredient)}
	for _, ing := range ingredients {
		if err := idx.Upsert(ctx, ing); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Upsert adds or replaces one ingredient.
func (x *SimilarityIndex) Upsert(ctx context.Context, ing Ingredient) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byID[ing.ID]; ok {
		if err := x.collection.Delete(ctx, nil, nil, ing.ID); err != nil {
			return fmt.Errorf("replace %s: %w", ing.ID, err)
		}
	}
	err := x.collection.AddDocument(ctx, chromem.Document{
		ID:        ing.ID,
		Content:   ing.Name,
		Embedding: toFloat32(ing.ProfileVector()),
		Metadata:  map[string]string{"note": string(ing.Note)},
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", ing.ID, err)
	}
	x.byID[ing.ID] = ing
	return nil
}

// Len returns the number of indexed ingredients.
func (x *SimilarityIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// Nearest returns up to n ingredients whose profile is closest to profile
// (expressed on the Families axis), skipping the excluded ids.
func (x *SimilarityIndex) Nearest(ctx context.Context, profile []float64, n int, exclude ...string) ([]Match, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(profile) != len(Families) {
		return nil, fmt.Errorf("profile has %d components, want %d", len(profile), len(Families))
	}
	nonZero := false
	for _, v := range profile {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	// chromem-go requires nResults <= collection size.
	limit := n + len(skip)
	if count := x.collection.Count(); count == 0 {
		return nil, nil
	} else if limit > count {
		limit = count
	}

	results, err := x.collection.QueryEmbedding(ctx, toFloat32(profile), limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var out []Match
	for _, r := range results {
		if skip[r.ID] {
			continue
		}
		ing, ok := x.byID[r.ID]
		if !ok {
			continue
		}
		out = append(out, Match{Ingredient: ing, Similarity: r.Similarity})
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

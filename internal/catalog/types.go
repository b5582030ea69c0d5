package catalog

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when an ingredient id is not in the catalog.
var ErrNotFound = errors.New("catalog: ingredient not found")

// Note is the default pyramid position of a material.
type Note string

const (
	NoteTop  Note = "Top"
	NoteMid  Note = "Mid"
	NoteBase Note = "Base"
)

// Families is the fixed olfactory axis profile vectors are expressed on.
// Unknown collects the weight of materials with no profile data.
var Families = []string{
	"Citrus", "Fruity", "Green", "Aquatic",
	"Floral", "Spicy", "Aromatic", "Woody",
	"Earthy", "Amber", "Musky", "Animalic",
	Unknown,
}

// Unknown is the family used for materials without profile data.
const Unknown = "Unknown"

// Ingredient is a palette entry: one raw material with its default note,
// regulatory limit and olfactory profile.
type Ingredient struct {
	ID          string             `json:"id" yaml:"id" validate:"required"`
	Name        string             `json:"name" yaml:"name" validate:"required"`
	Vendor      string             `json:"vendor,omitempty" yaml:"vendor"`
	Cost        float64            `json:"cost" yaml:"cost" validate:"gte=0"`
	Note        Note               `json:"note" yaml:"note" validate:"omitempty,oneof=Top Mid Base"`
	Families    []string           `json:"families" yaml:"families"`
	Profile     map[string]float64 `json:"profile,omitempty" yaml:"profile"`
	IsAllergen  bool               `json:"is_allergen" yaml:"is_allergen"`
	IFRALimit   float64            `json:"ifra_limit" yaml:"ifra_limit" validate:"gte=0,lte=100"`
	CAS         string             `json:"cas,omitempty" yaml:"cas"`
	Description string             `json:"description,omitempty" yaml:"description"`
}

// HasLimit reports whether the material carries a regulatory limit. A limit
// of zero means unrestricted.
func (i Ingredient) HasLimit() bool { return i.IFRALimit > 0 }

// ProfileVector returns the material's profile on the Families axis, summing
// to 100. An explicit Profile wins; otherwise the families list is weighted
// by rank (the first family dominates). A material with neither is entirely
// Unknown.
func (i Ingredient) ProfileVector() []float64 {
	v := make([]float64, len(Families))
	if len(i.Profile) > 0 {
		total := 0.0
		for fam, w := range i.Profile {
			if w <= 0 {
				continue
			}
			v[familyIndex(fam)] += w
			total += w
		}
		if total > 0 {
			for k := range v {
				v[k] = v[k] / total * 100
			}
			return v
		}
	}
	if len(i.Families) == 0 {
		v[len(v)-1] = 100
		return v
	}
	// Rank weights n, n-1, ..., 1.
	n := len(i.Families)
	denom := float64(n*(n+1)) / 2
	for rank, fam := range i.Families {
		v[familyIndex(fam)] += float64(n-rank) / denom * 100
	}
	return v
}

// familyIndex maps a family name onto the axis, case-insensitively. Unlisted
// families land on Unknown.
func familyIndex(fam string) int {
	for k, f := range Families {
		if strings.EqualFold(f, fam) {
			return k
		}
	}
	if strings.EqualFold(fam, "musk") {
		return familyIndex("Musky")
	}
	return len(Families) - 1
}

// Lookup resolves a line item's ingredient reference to catalog data.
type Lookup interface {
	Lookup(ref string) (Ingredient, bool)
}

// MapLookup is an in-memory Lookup, handy for tests and small tools.
type MapLookup map[string]Ingredient

// Lookup implements Lookup.
func (m MapLookup) Lookup(ref string) (Ingredient, bool) {
	i, ok := m[ref]
	return i, ok
}

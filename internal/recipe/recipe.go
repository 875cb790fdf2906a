// internal/recipe/recipe.go
//
// Recipe definitions are the read-only lookup table behind the cart. They are
// loaded once at startup (see loader.go) and never mutated afterwards; every
// accessor hands out copies so callers cannot reach into the catalog.

package recipe

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultSpellURL points at the classic wiki page for a crafting spell.
const DefaultSpellURL = "https://www.wowhead.com/classic/spell=%d"

// MaxBaseQuantity bounds a reagent's per-craft amount so that scaling by the
// largest craft count (100) still fits in an int.
const MaxBaseQuantity = math.MaxInt / 100

// ErrInvalidRecord is wrapped by every dataset validation failure.
var ErrInvalidRecord = errors.New("invalid recipe record")

// Reagent is one material requirement for a single craft.
type Reagent struct {
	Name         string `json:"name"`
	ItemID       int    `json:"itemRef,omitempty"`
	BaseQuantity int    `json:"baseQuantity"`
}

// Definition is an immutable recipe record from the dataset.
type Definition struct {
	ID       int       `json:"id"`
	Name     string    `json:"displayName"`
	SpellID  int       `json:"externalRef"`
	Reagents []Reagent `json:"reagents"`
}

// SpellURL formats the external wiki link using pattern, which must contain a
// single %d verb. An empty pattern uses DefaultSpellURL.
func (d Definition) SpellURL(pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultSpellURL
	}
	return fmt.Sprintf(pattern, d.SpellID)
}

// ItemIDs lists the distinct non-zero item references in reagent order.
func (d Definition) ItemIDs() []int {
	seen := make(map[int]struct{}, len(d.Reagents))
	ids := make([]int, 0, len(d.Reagents))
	for _, r := range d.Reagents {
		if r.ItemID <= 0 {
			continue
		}
		if _, ok := seen[r.ItemID]; ok {
			continue
		}
		seen[r.ItemID] = struct{}{}
		ids = append(ids, r.ItemID)
	}
	return ids
}

// Clone returns a deep copy.
func (d Definition) Clone() Definition {
	out := d
	out.Reagents = append([]Reagent(nil), d.Reagents...)
	return out
}

func (d Definition) validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", d.ID)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("display name is required")
	}
	if len(d.Reagents) == 0 {
		return fmt.Errorf("at least one reagent is required")
	}
	for i, r := range d.Reagents {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("reagents[%d]: name is required", i)
		}
		if r.BaseQuantity < 1 {
			return fmt.Errorf("reagents[%d] (%s): base quantity must be >= 1, got %d", i, r.Name, r.BaseQuantity)
		}
		if r.BaseQuantity > MaxBaseQuantity {
			return fmt.Errorf("reagents[%d] (%s): base quantity %d exceeds %d", i, r.Name, r.BaseQuantity, MaxBaseQuantity)
		}
	}
	return nil
}

// Catalog is the ordered, indexed recipe dataset.
type Catalog struct {
	defs []Definition
	byID map[int]int
}

// NewCatalog validates defs and indexes them by id. Dataset order is kept and
// defs is left untouched.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[int]int, len(defs)),
	}
	for i, raw := range defs {
		def := raw.Clone()
		def.Name = strings.TrimSpace(def.Name)
		for j := range def.Reagents {
			def.Reagents[j].Name = strings.TrimSpace(def.Reagents[j].Name)
		}
		if err := def.validate(); err != nil {
			return nil, fmt.Errorf("recipe: record %d (%q): %w: %v", i, def.Name, ErrInvalidRecord, err)
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("recipe: record %d (%q): %w: duplicate id %d", i, def.Name, ErrInvalidRecord, def.ID)
		}
		c.byID[def.ID] = len(c.defs)
		c.defs = append(c.defs, def)
	}
	return c, nil
}

// Len reports the number of recipes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// Lookup returns a copy of the recipe with the given id.
func (c *Catalog) Lookup(id int) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[idx].Clone(), true
}

// Each visits recipes in dataset order until fn returns false. The value
// passed to fn shares its reagent slice with the catalog and must not be kept.
func (c *Catalog) Each(fn func(Definition) bool) {
	if c == nil {
		return
	}
	for _, def := range c.defs {
		if !fn(def) {
			return
		}
	}
}

// All returns copies of every recipe in dataset order.
func (c *Catalog) All() []Definition {
	if c == nil {
		return nil
	}
	out := make([]Definition, len(c.defs))
	for i, def := range c.defs {
		out[i] = def.Clone()
	}
	return out
}

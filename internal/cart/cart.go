// internal/cart/cart.go
//
// The cart engine owns all recipe-search state for one session:
//
//   - search term and suggestions
//   - the active recipe and its craft multiplier
//   - pinned recipe snapshots
//
// Every user action maps to one Engine method. The shopping list is never
// stored; it is rebuilt from the pinned set on each read.

package cart

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/kingrea/classic-quest/internal/recipe"
)

const (
	// SuggestionLimit caps the number of search suggestions.
	SuggestionLimit = 10

	// Terms shorter than this many runes do not search.
	minSearchRunes = 2
)

var (
	// ErrNotFound reports an unknown recipe id. It is terminal for that id.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveRecipe is returned by Pin when nothing is selected.
	ErrNoActiveRecipe = errors.New("cart: no active recipe")

	// ErrIndexOutOfRange is returned for pinned indices or keys that do not exist.
	ErrIndexOutOfRange = errors.New("cart: pinned index out of range")
)

// Reporter receives non-fatal failures such as unknown recipe ids.
type Reporter interface {
	Warn(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Warn(string, ...any) {}

// ScaledReagent is a reagent with its per-craft and multiplied quantities.
type ScaledReagent struct {
	Name         string
	ItemID       int
	BaseQuantity int
	Quantity     int
}

// ActiveRecipe is the recipe currently being inspected.
type ActiveRecipe struct {
	Recipe     recipe.Definition
	Multiplier int
}

// Reagents returns the recipe's reagents scaled by the multiplier.
func (a ActiveRecipe) Reagents() []ScaledReagent {
	return scale(a.Recipe.Reagents, a.Multiplier)
}

// PinnedRecipe is a snapshot of an ActiveRecipe taken at pin time. Key is
// stable across unpins of other entries.
type PinnedRecipe struct {
	Key        string
	RecipeID   int
	Name       string
	SpellID    int
	Multiplier int
	Reagents   []ScaledReagent
}

func (p PinnedRecipe) clone() PinnedRecipe {
	p.Reagents = append([]ScaledReagent(nil), p.Reagents...)
	return p
}

// ShoppingListEntry is one aggregated reagent across all pinned recipes.
type ShoppingListEntry struct {
	Name     string
	ItemID   int
	Quantity int
}

// View is a read-only copy of the engine state for presentation.
type View struct {
	Term         string
	Suggestions  []recipe.Definition
	Active       *ActiveRecipe
	Pinned       []PinnedRecipe
	ShoppingList []ShoppingListEntry
	Generation   uint64
}

// Option customizes engine construction.
type Option func(*Engine)

// WithReporter routes non-fatal failures to r.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithKeyGenerator overrides pinned key generation. Tests use it for
// deterministic keys.
func WithKeyGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newKey = fn
		}
	}
}

// Engine is the recipe cart state machine. It is not safe for concurrent use;
// one UI loop owns it.
type Engine struct {
	catalog  *recipe.Catalog
	reporter Reporter
	newKey   func() string
	fold     cases.Caser

	term        string
	suggestions []recipe.Definition
	active      *ActiveRecipe
	pinned      []PinnedRecipe
	generation  uint64
}

// New creates an engine over catalog.
func New(catalog *recipe.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		reporter: nopReporter{},
		newKey:   uuid.NewString,
		fold:     cases.Fold(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Generation increments on every search and selection. Asynchronous work
// tagged with an older generation is stale.
func (e *Engine) Generation() uint64 {
	return e.generation
}

// Search filters the catalog by case-insensitive substring match on display
// name, returning at most SuggestionLimit matches in dataset order. Terms
// under two runes return no suggestions.
func (e *Engine) Search(term string) []recipe.Definition {
	e.generation++
	e.term = term
	e.suggestions = nil
	if utf8.RuneCountInString(term) < minSearchRunes {
		return nil
	}
	needle := e.fold.String(term)
	var matches []recipe.Definition
	e.catalog.Each(func(def recipe.Definition) bool {
		if strings.Contains(e.fold.String(def.Name), needle) {
			matches = append(matches, def.Clone())
		}
		return len(matches) < SuggestionLimit
	})
	e.suggestions = matches
	return cloneDefs(matches)
}

// SelectRecipe makes the recipe with id active, resetting the multiplier to 1
// and clearing suggestions. An unknown id clears the active recipe and the
// suggestions and returns an error wrapping ErrNotFound.
func (e *Engine) SelectRecipe(id int) (ActiveRecipe, error) {
	e.generation++
	e.suggestions = nil
	def, ok := e.catalog.Lookup(id)
	if !ok {
		e.active = nil
		e.reporter.Warn("Recipe not found: %d", id)
		return ActiveRecipe{}, fmt.Errorf("cart: recipe %d: %w", id, ErrNotFound)
	}
	e.active = &ActiveRecipe{Recipe: def, Multiplier: MinMultiplier}
	return e.activeCopy(), nil
}

// SetMultiplier clamps v into [1,100] and applies it to the active recipe.
// With no active recipe the zero ActiveRecipe carrying the clamped value is
// returned and nothing changes.
func (e *Engine) SetMultiplier(v int) ActiveRecipe {
	m := ClampMultiplier(v)
	if e.active == nil {
		return ActiveRecipe{Multiplier: m}
	}
	e.active.Multiplier = m
	return e.activeCopy()
}

// SetMultiplierText is SetMultiplier for raw field input.
func (e *Engine) SetMultiplierText(raw string) ActiveRecipe {
	return e.SetMultiplier(ParseMultiplier(raw))
}

// Pin snapshots the active recipe with its reagents scaled by the current
// multiplier. Later multiplier edits on the active recipe do not touch it.
func (e *Engine) Pin() (PinnedRecipe, error) {
	if e.active == nil {
		return PinnedRecipe{}, ErrNoActiveRecipe
	}
	a := e.active
	p := PinnedRecipe{
		Key:        e.newKey(),
		RecipeID:   a.Recipe.ID,
		Name:       a.Recipe.Name,
		SpellID:    a.Recipe.SpellID,
		Multiplier: a.Multiplier,
		Reagents:   scale(a.Recipe.Reagents, a.Multiplier),
	}
	e.pinned = append(e.pinned, p)
	return p.clone(), nil
}

// RescalePinned changes the multiplier of the pinned entry at index. Each
// quantity becomes base*newMultiplier, which equals q*new/old without
// accumulating rounding across repeated rescales.
func (e *Engine) RescalePinned(index, newMultiplier int) (PinnedRecipe, error) {
	if index < 0 || index >= len(e.pinned) {
		return PinnedRecipe{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(e.pinned))
	}
	m := ClampMultiplier(newMultiplier)
	p := &e.pinned[index]
	p.Multiplier = m
	for i := range p.Reagents {
		p.Reagents[i].Quantity = p.Reagents[i].BaseQuantity * m
	}
	return p.clone(), nil
}

// Unpin removes the entry at index. Entries after it shift down by one, so
// indices must not be reused across an unpin.
func (e *Engine) Unpin(index int) error {
	if index < 0 || index >= len(e.pinned) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(e.pinned))
	}
	e.pinned = append(e.pinned[:index], e.pinned[index+1:]...)
	return nil
}

// IndexOf returns the current index of the pinned entry with key, or -1.
func (e *Engine) IndexOf(key string) int {
	for i, p := range e.pinned {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// UnpinKey removes the pinned entry with key.
func (e *Engine) UnpinKey(key string) error {
	idx := e.IndexOf(key)
	if idx < 0 {
		return fmt.Errorf("%w: key %q", ErrIndexOutOfRange, key)
	}
	return e.Unpin(idx)
}

// Pinned returns copies of the pinned entries in pin order.
func (e *Engine) Pinned() []PinnedRecipe {
	out := make([]PinnedRecipe, len(e.pinned))
	for i, p := range e.pinned {
		out[i] = p.clone()
	}
	return out
}

// Active returns the active recipe, if any.
func (e *Engine) Active() (ActiveRecipe, bool) {
	if e.active == nil {
		return ActiveRecipe{}, false
	}
	return e.activeCopy(), true
}

// ShoppingList aggregates the pinned set.
func (e *Engine) ShoppingList() []ShoppingListEntry {
	return BuildShoppingList(e.pinned)
}

// View snapshots the whole state.
func (e *Engine) View() View {
	v := View{
		Term:         e.term,
		Suggestions:  cloneDefs(e.suggestions),
		Pinned:       e.Pinned(),
		ShoppingList: e.ShoppingList(),
		Generation:   e.generation,
	}
	if e.active != nil {
		a := e.activeCopy()
		v.Active = &a
	}
	return v
}

// BuildShoppingList sums scaled reagent quantities by reagent name across
// pinned, keeping first-seen order. The item id of the first occurrence wins.
func BuildShoppingList(pinned []PinnedRecipe) []ShoppingListEntry {
	var list []ShoppingListEntry
	index := map[string]int{}
	for _, p := range pinned {
		for _, r := range p.Reagents {
			if pos, ok := index[r.Name]; ok {
				list[pos].Quantity += r.Quantity
				if list[pos].ItemID == 0 {
					list[pos].ItemID = r.ItemID
				}
				continue
			}
			index[r.Name] = len(list)
			list = append(list, ShoppingListEntry{Name: r.Name, ItemID: r.ItemID, Quantity: r.Quantity})
		}
	}
	return list
}

func (e *Engine) activeCopy() ActiveRecipe {
	return ActiveRecipe{Recipe: e.active.Recipe.Clone(), Multiplier: e.active.Multiplier}
}

func scale(reagents []recipe.Reagent, multiplier int) []ScaledReagent {
	out := make([]ScaledReagent, len(reagents))
	for i, r := range reagents {
		out[i] = ScaledReagent{
			Name:         r.Name,
			ItemID:       r.ItemID,
			BaseQuantity: r.BaseQuantity,
			Quantity:     r.BaseQuantity * multiplier,
		}
	}
	return out
}

func cloneDefs(defs []recipe.Definition) []recipe.Definition {
	if len(defs) == 0 {
		return nil
	}
	out := make([]recipe.Definition, len(defs))
	for i, def := range defs {
		out[i] = def.Clone()
	}
	return out
}

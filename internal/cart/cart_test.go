package cart

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/classic-quest/internal/recipe"
)

type recordingReporter struct {
	lines []string
}

func (r *recordingReporter) Warn(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func testCatalog(t *testing.T) *recipe.Catalog {
	t.Helper()
	defs := []recipe.Definition{
		{ID: 1, Name: "Smelt Iron", SpellID: 3307, Reagents: []recipe.Reagent{
			{Name: "Iron Ore", ItemID: 2772, BaseQuantity: 1},
		}},
		{ID: 2, Name: "Iron Buckle", SpellID: 8768, Reagents: []recipe.Reagent{
			{Name: "Iron Bar", ItemID: 3575, BaseQuantity: 1},
		}},
		{ID: 3, Name: "Green Iron Boots", SpellID: 3334, Reagents: []recipe.Reagent{
			{Name: "Iron Bar", ItemID: 3575, BaseQuantity: 10},
			{Name: "Green Dye", ItemID: 2605, BaseQuantity: 1},
		}},
		{ID: 4, Name: "Iron Shield Spike", SpellID: 7221, Reagents: []recipe.Reagent{
			{Name: "Iron Bar", ItemID: 3575, BaseQuantity: 5},
			{Name: "Solid Grinding Stone", ItemID: 7966, BaseQuantity: 3},
		}},
		{ID: 5, Name: "Enchant Bracer - Minor Stamina", SpellID: 7457, Reagents: []recipe.Reagent{
			{Name: "Strange Dust", ItemID: 10940, BaseQuantity: 3},
		}},
	}
	for i := 0; i < 12; i++ {
		defs = append(defs, recipe.Definition{
			ID:       100 + i,
			Name:     fmt.Sprintf("Runed Rod %02d", i),
			Reagents: []recipe.Reagent{{Name: "Strange Dust", BaseQuantity: 1}},
		})
	}
	cat, err := recipe.NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return cat
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	n := 0
	keys := WithKeyGenerator(func() string {
		n++
		return fmt.Sprintf("pin-%d", n)
	})
	return New(testCatalog(t), append([]Option{keys}, opts...)...)
}

func TestSearchShortTermsReturnNothing(t *testing.T) {
	e := newTestEngine(t)
	for _, term := range []string{"", "i", "I", "é"} {
		if got := e.Search(term); len(got) != 0 {
			t.Fatalf("Search(%q) = %d results, want 0", term, len(got))
		}
	}
}

func TestSearchIsCaseInsensitiveAndOrdered(t *testing.T) {
	e := newTestEngine(t)
	got := e.Search("IRON")
	var ids []int
	for _, def := range got {
		if !strings.Contains(strings.ToLower(def.Name), "iron") {
			t.Fatalf("suggestion %q does not contain term", def.Name)
		}
		ids = append(ids, def.ID)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, ids); diff != "" {
		t.Fatalf("suggestion order mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCapsAtTenResults(t *testing.T) {
	e := newTestEngine(t)
	got := e.Search("rod")
	if len(got) != SuggestionLimit {
		t.Fatalf("len(Search) = %d, want %d", len(got), SuggestionLimit)
	}
	if got[0].ID != 100 || got[9].ID != 109 {
		t.Fatalf("expected dataset order 100..109, got %d..%d", got[0].ID, got[9].ID)
	}
}

func TestSelectRecipeResetsMultiplierAndClearsSuggestions(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(3); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	e.SetMultiplier(7)
	e.Search("iron")
	active, err := e.SelectRecipe(4)
	if err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	if active.Multiplier != 1 {
		t.Fatalf("multiplier = %d, want 1", active.Multiplier)
	}
	if v := e.View(); len(v.Suggestions) != 0 {
		t.Fatalf("suggestions = %d, want 0 after selection", len(v.Suggestions))
	}
}

func TestSelectUnknownRecipeReportsNotFound(t *testing.T) {
	rep := &recordingReporter{}
	e := newTestEngine(t, WithReporter(rep))
	if _, err := e.SelectRecipe(1); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	e.Search("iron")
	_, err := e.SelectRecipe(999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("SelectRecipe(999) error = %v, want ErrNotFound", err)
	}
	v := e.View()
	if v.Active != nil {
		t.Fatalf("active recipe should be cleared, got %+v", v.Active)
	}
	if len(v.Suggestions) != 0 {
		t.Fatalf("suggestions should be cleared, got %d", len(v.Suggestions))
	}
	if len(rep.lines) != 1 || !strings.Contains(rep.lines[0], "999") {
		t.Fatalf("reporter lines = %v, want one mentioning 999", rep.lines)
	}
}

func TestSetMultiplierNormalizes(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(5); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	cases := []struct {
		in   int
		want int
	}{{0, 1}, {-5, 1}, {1, 1}, {42, 42}, {100, 100}, {500, 100}}
	for _, tc := range cases {
		if got := e.SetMultiplier(tc.in).Multiplier; got != tc.want {
			t.Fatalf("SetMultiplier(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := e.SetMultiplierText("abc").Multiplier; got != 1 {
		t.Fatalf(`SetMultiplierText("abc") = %d, want 1`, got)
	}
}

func TestParseMultiplier(t *testing.T) {
	cases := map[string]int{
		"":        1,
		"abc":     1,
		"0":       1,
		"-5":      1,
		" 7":      7,
		"+8":      8,
		"12x":     12,
		"3.9":     3,
		"500":     100,
		"9999999": 100,
		"100":     100,
	}
	for in, want := range cases {
		if got := ParseMultiplier(in); got != want {
			t.Fatalf("ParseMultiplier(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestActiveReagentsScaleWithMultiplier(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(4); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	active := e.SetMultiplier(3)
	got := active.Reagents()
	if got[0].Quantity != 15 || got[1].Quantity != 9 {
		t.Fatalf("scaled quantities = %d/%d, want 15/9", got[0].Quantity, got[1].Quantity)
	}
}

func TestLargestQuantityScalesWithoutOverflow(t *testing.T) {
	cat, err := recipe.NewCatalog([]recipe.Definition{
		{ID: 1, Name: "Bulk Order", Reagents: []recipe.Reagent{{Name: "Copper Ore", BaseQuantity: recipe.MaxBaseQuantity}}},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	e := New(cat)
	if _, err := e.SelectRecipe(1); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	got := e.SetMultiplier(MaxMultiplier).Reagents()[0].Quantity
	if got <= 0 || got != recipe.MaxBaseQuantity*MaxMultiplier {
		t.Fatalf("quantity = %d, want %d", got, recipe.MaxBaseQuantity*MaxMultiplier)
	}
}

func TestPinWithoutActiveRecipe(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Pin(); !errors.Is(err, ErrNoActiveRecipe) {
		t.Fatalf("Pin error = %v, want ErrNoActiveRecipe", err)
	}
}

func TestPinIsSnapshot(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(5); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	e.SetMultiplier(4)
	pinned, err := e.Pin()
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if pinned.Reagents[0].Quantity != 12 {
		t.Fatalf("pinned quantity = %d, want 12", pinned.Reagents[0].Quantity)
	}
	e.SetMultiplier(9)
	if got := e.Pinned()[0].Reagents[0].Quantity; got != 12 {
		t.Fatalf("pinned quantity after active edit = %d, want 12", got)
	}
	if got := e.Pinned()[0].Multiplier; got != 4 {
		t.Fatalf("pinned multiplier = %d, want 4", got)
	}
}

func TestRescalePinned(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(5); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	e.SetMultiplier(4)
	if _, err := e.Pin(); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	got, err := e.RescalePinned(0, 2)
	if err != nil {
		t.Fatalf("RescalePinned: %v", err)
	}
	if got.Multiplier != 2 || got.Reagents[0].Quantity != 6 {
		t.Fatalf("rescaled = (x%d, %d), want (x2, 6)", got.Multiplier, got.Reagents[0].Quantity)
	}
	got, _ = e.RescalePinned(0, 0)
	if got.Multiplier != 1 || got.Reagents[0].Quantity != 3 {
		t.Fatalf("rescale to 0 = (x%d, %d), want (x1, 3)", got.Multiplier, got.Reagents[0].Quantity)
	}
	if _, err := e.RescalePinned(3, 2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("RescalePinned(3) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestRescalePinnedHasNoDrift(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(3); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	e.SetMultiplier(7)
	if _, err := e.Pin(); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	for i := 0; i < 1000; i++ {
		m := 1 + (i*37)%100
		if _, err := e.RescalePinned(0, m); err != nil {
			t.Fatalf("RescalePinned: %v", err)
		}
	}
	got, _ := e.RescalePinned(0, 3)
	if got.Reagents[0].Quantity != 30 || got.Reagents[1].Quantity != 3 {
		t.Fatalf("after 1000 rescales quantities = %d/%d, want 30/3", got.Reagents[0].Quantity, got.Reagents[1].Quantity)
	}
}

func TestRescaleOnePinLeavesOthersAlone(t *testing.T) {
	e := newTestEngine(t)
	for _, id := range []int{2, 3} {
		if _, err := e.SelectRecipe(id); err != nil {
			t.Fatalf("SelectRecipe: %v", err)
		}
		if _, err := e.Pin(); err != nil {
			t.Fatalf("Pin: %v", err)
		}
	}
	if _, err := e.RescalePinned(1, 5); err != nil {
		t.Fatalf("RescalePinned: %v", err)
	}
	pinned := e.Pinned()
	if pinned[0].Multiplier != 1 || pinned[0].Reagents[0].Quantity != 1 {
		t.Fatalf("first pin changed: %+v", pinned[0])
	}
}

func TestUnpinKeepsOrderOfOthers(t *testing.T) {
	e := newTestEngine(t)
	for i, id := range []int{1, 2, 3, 4} {
		if _, err := e.SelectRecipe(id); err != nil {
			t.Fatalf("SelectRecipe: %v", err)
		}
		e.SetMultiplier(i + 1)
		if _, err := e.Pin(); err != nil {
			t.Fatalf("Pin: %v", err)
		}
	}
	before := e.Pinned()
	if err := e.Unpin(1); err != nil {
		t.Fatalf("Unpin: %v", err)
	}
	want := []PinnedRecipe{before[0], before[2], before[3]}
	if diff := cmp.Diff(want, e.Pinned()); diff != "" {
		t.Fatalf("pinned after unpin mismatch (-want +got):\n%s", diff)
	}
	if err := e.Unpin(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Unpin(3) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestUnpinKey(t *testing.T) {
	e := newTestEngine(t)
	for _, id := range []int{1, 2} {
		if _, err := e.SelectRecipe(id); err != nil {
			t.Fatalf("SelectRecipe: %v", err)
		}
		if _, err := e.Pin(); err != nil {
			t.Fatalf("Pin: %v", err)
		}
	}
	if err := e.UnpinKey("pin-1"); err != nil {
		t.Fatalf("UnpinKey: %v", err)
	}
	if got := e.IndexOf("pin-2"); got != 0 {
		t.Fatalf("IndexOf(pin-2) = %d, want 0", got)
	}
	if err := e.UnpinKey("pin-1"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("second UnpinKey error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestShoppingListSumsByReagentName(t *testing.T) {
	e := newTestEngine(t)
	// Green Iron Boots: 10 Iron Bar, 1 Green Dye. Iron Shield Spike: 5 Iron Bar, 3 stones.
	for _, id := range []int{3, 4} {
		if _, err := e.SelectRecipe(id); err != nil {
			t.Fatalf("SelectRecipe: %v", err)
		}
		if _, err := e.Pin(); err != nil {
			t.Fatalf("Pin: %v", err)
		}
	}
	want := []ShoppingListEntry{
		{Name: "Iron Bar", ItemID: 3575, Quantity: 15},
		{Name: "Green Dye", ItemID: 2605, Quantity: 1},
		{Name: "Solid Grinding Stone", ItemID: 7966, Quantity: 3},
	}
	got := e.ShoppingList()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shopping list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(got, e.ShoppingList()); diff != "" {
		t.Fatalf("shopping list not idempotent:\n%s", diff)
	}

	if err := e.Unpin(0); err != nil {
		t.Fatalf("Unpin: %v", err)
	}
	for _, entry := range e.ShoppingList() {
		if entry.Name == "Green Dye" {
			t.Fatalf("shopping list still references unpinned reagent %q", entry.Name)
		}
	}
}

func TestBuildShoppingListEmpty(t *testing.T) {
	if got := BuildShoppingList(nil); len(got) != 0 {
		t.Fatalf("BuildShoppingList(nil) = %v, want empty", got)
	}
}

func TestViewIsACopy(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SelectRecipe(3); err != nil {
		t.Fatalf("SelectRecipe: %v", err)
	}
	if _, err := e.Pin(); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	v := e.View()
	v.Pinned[0].Reagents[0].Quantity = 999
	v.Active.Recipe.Reagents[0].BaseQuantity = 999
	if got := e.Pinned()[0].Reagents[0].Quantity; got != 10 {
		t.Fatalf("engine mutated through view: %d", got)
	}
	if active, _ := e.Active(); active.Recipe.Reagents[0].BaseQuantity != 10 {
		t.Fatalf("active recipe mutated through view")
	}
}

func TestGenerationAdvancesOnSearchAndSelect(t *testing.T) {
	e := newTestEngine(t)
	start := e.Generation()
	e.Search("ir")
	_, _ = e.SelectRecipe(1)
	_, _ = e.SelectRecipe(42)
	if got := e.Generation(); got != start+3 {
		t.Fatalf("generation = %d, want %d", got, start+3)
	}
}

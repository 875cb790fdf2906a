package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseJSONAcceptsOriginalExportKeys(t *testing.T) {
	data := []byte(`[
  {"RecipeID": 7, "WowheadName": "Enchant Bracer - Minor Stamina", "SpellID": 7457,
   "reagents": [{"reagentName": "Strange Dust", "itemID": 10940, "amount": 3}]}
]`)
	defs, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}
	want := []Definition{{
		ID:       7,
		Name:     "Enchant Bracer - Minor Stamina",
		SpellID:  7457,
		Reagents: []Reagent{{Name: "Strange Dust", ItemID: 10940, BaseQuantity: 3}},
	}}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Fatalf("ParseJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSONAcceptsCanonicalKeysAndStringNumbers(t *testing.T) {
	data := []byte(`[
  {"id": "12", "displayName": "Runed Copper Rod", "externalRef": "7421",
   "reagents": [
     {"name": "Copper Rod", "itemRef": 6217, "baseQuantity": "1"},
     {"name": "Strange Dust", "baseQuantity": 1}
   ]}
]`)
	defs, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("len(defs) = %d, want 1", len(defs))
	}
	def := defs[0]
	if def.ID != 12 || def.SpellID != 7421 {
		t.Fatalf("ids = (%d, %d), want (12, 7421)", def.ID, def.SpellID)
	}
	if got := def.Reagents[1].ItemID; got != 0 {
		t.Fatalf("missing itemRef = %d, want 0", got)
	}
}

func TestParseJSONRejectsNonArray(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"id": 1}`)); err == nil {
		t.Fatalf("expected error for object dataset")
	}
	if _, err := ParseJSON([]byte(`[{`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestNewCatalogValidation(t *testing.T) {
	cases := []struct {
		name string
		defs []Definition
	}{
		{"zero id", []Definition{{ID: 0, Name: "A", Reagents: []Reagent{{Name: "x", BaseQuantity: 1}}}}},
		{"blank name", []Definition{{ID: 1, Name: "  ", Reagents: []Reagent{{Name: "x", BaseQuantity: 1}}}}},
		{"no reagents", []Definition{{ID: 1, Name: "A"}}},
		{"zero quantity", []Definition{{ID: 1, Name: "A", Reagents: []Reagent{{Name: "x"}}}}},
		{"quantity too large", []Definition{{ID: 1, Name: "A", Reagents: []Reagent{{Name: "x", BaseQuantity: MaxBaseQuantity + 1}}}}},
		{"duplicate id", []Definition{
			{ID: 1, Name: "A", Reagents: []Reagent{{Name: "x", BaseQuantity: 1}}},
			{ID: 1, Name: "B", Reagents: []Reagent{{Name: "y", BaseQuantity: 1}}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.defs)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("NewCatalog error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestNewCatalogLeavesInputUntouched(t *testing.T) {
	defs := []Definition{
		{ID: 7, Name: " Brown Linen Vest ", Reagents: []Reagent{{Name: " Linen Cloth ", ItemID: 2589, BaseQuantity: 3}}},
	}
	cat, err := NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if defs[0].Name != " Brown Linen Vest " || defs[0].Reagents[0].Name != " Linen Cloth " {
		t.Fatalf("input mutated: %+v", defs[0])
	}
	got, _ := cat.Lookup(7)
	if got.Name != "Brown Linen Vest" || got.Reagents[0].Name != "Linen Cloth" {
		t.Fatalf("catalog not normalized: %+v", got)
	}
	defs[0].Reagents[0].BaseQuantity = 50
	if again, _ := cat.Lookup(7); again.Reagents[0].BaseQuantity != 3 {
		t.Fatalf("catalog shares reagents with input")
	}
}

func TestParseJSONRejectsFractionalAmounts(t *testing.T) {
	for _, raw := range []string{
		`[{"id":1,"displayName":"A","reagents":[{"name":"x","amount":2.5}]}]`,
		`[{"id":1,"displayName":"A","reagents":[{"name":"x","amount":"0.5"}]}]`,
	} {
		_, err := ParseJSON([]byte(raw))
		if !errors.Is(err, ErrInvalidRecord) || !strings.Contains(err.Error(), "whole number") {
			t.Fatalf("ParseJSON(%s) error = %v, want whole-number rejection", raw, err)
		}
	}
	defs, err := ParseJSON([]byte(`[{"id":1,"displayName":"A","reagents":[{"name":"x","amount":4.0}]}]`))
	if err != nil {
		t.Fatalf("integral float rejected: %v", err)
	}
	if defs[0].Reagents[0].BaseQuantity != 4 {
		t.Fatalf("amount = %d, want 4", defs[0].Reagents[0].BaseQuantity)
	}
}

func TestCatalogLookupReturnsCopies(t *testing.T) {
	cat, err := NewCatalog([]Definition{
		{ID: 3, Name: "Enchant Chest - Minor Mana", Reagents: []Reagent{{Name: "Lesser Magic Essence", ItemID: 10938, BaseQuantity: 1}}},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	def, ok := cat.Lookup(3)
	if !ok {
		t.Fatalf("expected recipe 3 to exist")
	}
	def.Reagents[0].BaseQuantity = 99
	again, _ := cat.Lookup(3)
	if again.Reagents[0].BaseQuantity != 1 {
		t.Fatalf("catalog mutated through lookup copy: %d", again.Reagents[0].BaseQuantity)
	}
	if _, ok := cat.Lookup(4); ok {
		t.Fatalf("expected recipe 4 to be missing")
	}
}

func TestLoadBundledDataset(t *testing.T) {
	cat, err := LoadBundled()
	if err != nil {
		t.Fatalf("LoadBundled: %v", err)
	}
	if cat.Len() == 0 {
		t.Fatalf("bundled dataset is empty")
	}
	def, ok := cat.Lookup(1)
	if !ok {
		t.Fatalf("bundled dataset missing recipe 1")
	}
	if got := def.SpellURL(""); got != "https://www.wowhead.com/classic/spell=7418" {
		t.Fatalf("SpellURL = %q", got)
	}
}

func TestLoadCSVGroupsRowsByRecipe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipes.csv")
	body := strings.Join([]string{
		"Recipe_ID,Name,Spell_ID,Reagent,Item_ID,Amount",
		"2,Runed Copper Rod,7421,Copper Rod,6217,1",
		"1,Enchant Boots - Minor Agility,7867,Strange Dust,10940,6",
		"2,Runed Copper Rod,7421,Strange Dust,10940,1",
		"1,Enchant Boots - Minor Agility,7867,Lesser Astral Essence,,2",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := Load(path, FormatAuto)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all := cat.All()
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all[0].ID != 2 || len(all[0].Reagents) != 2 {
		t.Fatalf("first recipe = %+v, want id 2 with two reagents", all[0])
	}
	if got := all[1].ItemIDs(); !cmp.Equal(got, []int{10940}) {
		t.Fatalf("ItemIDs = %v, want [10940]", got)
	}
}

func TestLoadCSVRejectsBadNumbers(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("recipe_id,name,reagent,amount\nx,A,B,1\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("ParseCSV error = %v, want line 2 complaint", err)
	}
}

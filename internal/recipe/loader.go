package recipe

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Supported dataset formats.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

//go:embed data/recipes.json
var bundledDataset []byte

// Field aliases accepted in JSON datasets. The first key of each list is the
// canonical name; the rest match the wiki export layout.
var (
	idKeys       = []string{"id", "RecipeID", "recipeId"}
	nameKeys     = []string{"displayName", "WowheadName", "name"}
	spellKeys    = []string{"externalRef", "SpellID", "spellId"}
	reagentsKeys = []string{"reagents", "Reagents"}
	reagentKeys  = []string{"name", "reagentName", "ReagentName"}
	itemKeys     = []string{"itemRef", "itemID", "ItemID", "itemId"}
	amountKeys   = []string{"baseQuantity", "amount", "Amount", "quantity"}
)

// LoadBundled returns the catalog compiled into the binary.
func LoadBundled() (*Catalog, error) {
	defs, err := ParseJSON(bundledDataset)
	if err != nil {
		return nil, fmt.Errorf("recipe: bundled dataset: %w", err)
	}
	return NewCatalog(defs)
}

// Load reads a dataset from path. An empty path loads the bundled dataset.
// format is one of FormatAuto, FormatJSON or FormatCSV; auto picks by file
// extension and falls back to JSON.
func Load(path, format string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return LoadBundled()
	}
	format = resolveFormat(path, format)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: open dataset: %w", err)
	}
	defer f.Close()

	var defs []Definition
	switch format {
	case FormatCSV:
		defs, err = ParseCSV(f)
	case FormatJSON:
		var data []byte
		data, err = io.ReadAll(f)
		if err == nil {
			defs, err = ParseJSON(data)
		}
	default:
		return nil, fmt.Errorf("recipe: unsupported dataset format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("recipe: %s: %w", path, err)
	}
	return NewCatalog(defs)
}

func resolveFormat(path, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != FormatAuto {
		return format
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// ParseJSON decodes a JSON array of recipe records. Numeric fields may be
// encoded as numbers or strings.
func ParseJSON(data []byte) ([]Definition, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("dataset is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.New("dataset must be a JSON array of recipes")
	}
	var (
		defs []Definition
		bad  error
	)
	root.ForEach(func(i, rec gjson.Result) bool {
		def := Definition{
			ID:      int(firstOf(rec, idKeys).Int()),
			Name:    firstOf(rec, nameKeys).String(),
			SpellID: int(firstOf(rec, spellKeys).Int()),
		}
		firstOf(rec, reagentsKeys).ForEach(func(j, r gjson.Result) bool {
			amount := firstOf(r, amountKeys)
			if !wholeNumber(amount) {
				bad = fmt.Errorf("record %d reagent %d: amount %s is not a whole number", i.Int(), j.Int(), amount.Raw)
				return false
			}
			def.Reagents = append(def.Reagents, Reagent{
				Name:         firstOf(r, reagentKeys).String(),
				ItemID:       int(firstOf(r, itemKeys).Int()),
				BaseQuantity: int(amount.Int()),
			})
			return true
		})
		defs = append(defs, def)
		return bad == nil
	})
	if bad != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, bad)
	}
	return defs, nil
}

// wholeNumber rejects fractional amounts that Int would silently truncate.
// Missing values pass and are caught by validation.
func wholeNumber(v gjson.Result) bool {
	if !v.Exists() {
		return true
	}
	f := v.Float()
	return f == math.Trunc(f)
}

func firstOf(r gjson.Result, keys []string) gjson.Result {
	for _, key := range keys {
		if v := r.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// ParseCSV reads one row per reagent:
//
//	recipe_id,name,spell_id,reagent,item_id,amount
//
// Rows sharing a recipe_id are grouped into one recipe in first-seen order.
// Header names are case-insensitive; item_id and spell_id may be empty.
func ParseCSV(r io.Reader) ([]Definition, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no rows")
	}

	headers := map[string]int{}
	for i, h := range records[0] {
		headers[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"recipe_id", "name", "reagent", "amount"} {
		if _, ok := headers[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}
	cell := func(row []string, name string) string {
		idx, ok := headers[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	number := func(row []string, name string, line int) (int, error) {
		raw := cell(row, name)
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("line %d: %s %q is not an integer", line, name, raw)
		}
		return n, nil
	}

	var defs []Definition
	index := map[int]int{}
	for i, row := range records[1:] {
		line := i + 2
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		id, err := number(row, "recipe_id", line)
		if err != nil {
			return nil, err
		}
		spellID, err := number(row, "spell_id", line)
		if err != nil {
			return nil, err
		}
		itemID, err := number(row, "item_id", line)
		if err != nil {
			return nil, err
		}
		amount, err := number(row, "amount", line)
		if err != nil {
			return nil, err
		}
		pos, ok := index[id]
		if !ok {
			pos = len(defs)
			index[id] = pos
			defs = append(defs, Definition{ID: id, Name: cell(row, "name"), SpellID: spellID})
		}
		defs[pos].Reagents = append(defs[pos].Reagents, Reagent{
			Name:         cell(row, "reagent"),
			ItemID:       itemID,
			BaseQuantity: amount,
		})
	}
	return defs, nil
}

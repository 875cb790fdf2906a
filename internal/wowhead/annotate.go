package wowhead

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// DefaultNameColumn is the column appended by AnnotateCSV.
	DefaultNameColumn = "FullSpellName"

	// NotFoundName is written for spells that could not be resolved.
	NotFoundName = "Spell Not Found"

	spellIDColumn = "spellid"
)

// SpellNamer resolves a spell id to its display name.
type SpellNamer interface {
	SpellName(ctx context.Context, spellID int) (string, error)
}

// AnnotateOptions tunes AnnotateCSV.
type AnnotateOptions struct {
	// Column is the header of the appended name column.
	Column string
	// Progress, when set, is called after each row.
	Progress func(done, total, spellID int, name string, err error)
}

// AnnotateCSV copies the CSV from in to out, appending a column with the
// resolved name of each row's SpellID. Lookups run one at a time. Rows whose
// id is missing, malformed or unresolved get NotFoundName. Only a context
// cancellation or an I/O error aborts the run.
func AnnotateCSV(ctx context.Context, namer SpellNamer, in io.Reader, out io.Writer, opts AnnotateOptions) error {
	column := strings.TrimSpace(opts.Column)
	if column == "" {
		column = DefaultNameColumn
	}
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("wowhead: read csv: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("wowhead: csv has no header row")
	}
	idCol := -1
	for i, h := range records[0] {
		key := strings.ToLower(strings.NewReplacer("_", "", " ", "").Replace(strings.TrimSpace(h)))
		if key == spellIDColumn {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return fmt.Errorf("wowhead: csv is missing a SpellID column")
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(append(records[0], column)); err != nil {
		return fmt.Errorf("wowhead: write header: %w", err)
	}
	total := len(records) - 1
	for i, row := range records[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, spellID, lookupErr := resolveRow(ctx, namer, row, idCol)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opts.Progress != nil {
			opts.Progress(i+1, total, spellID, name, lookupErr)
		}
		if err := cw.Write(append(row, name)); err != nil {
			return fmt.Errorf("wowhead: write row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("wowhead: flush csv: %w", err)
	}
	return nil
}

func resolveRow(ctx context.Context, namer SpellNamer, row []string, idCol int) (string, int, error) {
	if idCol >= len(row) {
		return NotFoundName, 0, fmt.Errorf("row has no SpellID value")
	}
	raw := strings.TrimSpace(row[idCol])
	spellID, err := strconv.Atoi(raw)
	if err != nil {
		// Spreadsheet exports sometimes write ids as floats.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return NotFoundName, 0, fmt.Errorf("spell id %q is not a number", raw)
		}
		spellID = int(f)
	}
	name, err := namer.SpellName(ctx, spellID)
	if err != nil {
		return NotFoundName, spellID, err
	}
	return name, spellID, nil
}

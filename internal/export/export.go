// Package export writes the aggregated shopping list out of the app:
// spreadsheets for planning and plain text for pasting into chat.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/xuri/excelize/v2"

	"github.com/kingrea/classic-quest/internal/cart"
)

// SheetName is the worksheet XLSX exports write to.
const SheetName = "Shopping List"

var header = []string{"Reagent", "Item ID", "Quantity"}

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// FileName builds a sortable export file name such as
// shopping-20260301-120000.xlsx.
func FileName(now time.Time, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	return fmt.Sprintf("shopping-%s.%s", now.UTC().Format("20060102-150405"), ext)
}

// CSV writes entries with a header row. Unknown item ids are left blank.
func CSV(w io.Writer, entries []cart.ShoppingListEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Name, itemCell(e.ItemID), strconv.Itoa(e.Quantity)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// File writes entries to path in the format its extension names: .csv or
// .xlsx.
func File(path string, entries []cart.ShoppingListEntry) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return XLSX(path, entries)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := CSV(f, entries); err != nil {
			f.Close()
			return fmt.Errorf("export: write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("export: save %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("export: unsupported format %q", ext)
	}
}

// XLSX writes entries to a new workbook at path.
func XLSX(path string, entries []cart.ShoppingListEntry) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 32); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := sw.SetRow("A1", row); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for i, e := range entries {
		var item interface{}
		if e.ItemID > 0 {
			item = e.ItemID
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{e.Name, item, e.Quantity}); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

// Text renders one "Name xN" line per entry.
func Text(entries []cart.ShoppingListEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s x%d\n", e.Name, e.Quantity)
	}
	return b.String()
}

// Clipboard copies the text rendering to the system clipboard.
func Clipboard(entries []cart.ShoppingListEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("export: shopping list is empty")
	}
	if err := clipboardWriteAll(Text(entries)); err != nil {
		return fmt.Errorf("export: clipboard: %w", err)
	}
	return nil
}

func itemCell(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}

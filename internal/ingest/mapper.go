package ingest

import (
	"fmt"

	"github.com/datakeep/ingest-core/internal/format"
	"github.com/datakeep/ingest-core/internal/tabular"
)

// MapSheets applies the caller's sheet selection to a reader's output,
// producing the (target name, table) pairs to persist. Output order follows
// the selection, not the reader.
//
// For excel, each selection rule naming a worksheet present in the file emits
// that worksheet under the rule's target name; rules naming absent worksheets
// are skipped rather than failing the whole import. For single-sheet formats
// the one physical sheet is emitted under the first rule's target name,
// whatever its key.
func MapSheets(sourceType format.SourceType, sheets []tabular.Sheet, selection tabular.SheetSelection) ([]tabular.Sheet, error) {
	var mapped []tabular.Sheet

	switch sourceType {
	case format.TypeExcel:
		byName := make(map[string]tabular.Table, len(sheets))
		for _, sheet := range sheets {
			byName[sheet.Name] = sheet.Table
		}
		for _, rule := range selection {
			table, ok := byName[rule.Source]
			if !ok {
				continue
			}
			mapped = append(mapped, tabular.Sheet{Name: rule.Target, Table: table})
		}

	default:
		if len(selection) == 0 {
			return nil, wrapError(CodeNoTargetName, fmt.Errorf("selection is empty, no target name for the %s sheet", sourceType))
		}
		if len(sheets) > 0 {
			mapped = append(mapped, tabular.Sheet{Name: selection[0].Target, Table: sheets[0].Table})
		}
	}

	if len(mapped) == 0 {
		return nil, wrapError(CodeNoSheetsSelected, fmt.Errorf("selection matched no sheets in the file"))
	}
	return mapped, nil
}

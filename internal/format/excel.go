package format

import (
	"github.com/xuri/excelize/v2"

	"github.com/datakeep/ingest-core/internal/tabular"
)

// ExcelReader parses an xlsx workbook into one sheet per worksheet, in
// workbook order, with worksheet names kept exactly as stored.
type ExcelReader struct{}

func (r *ExcelReader) Type() SourceType { return TypeExcel }

func (r *ExcelReader) Read(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, parseError(TypeExcel, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, parseError(TypeExcel, err)
		}

		table := tabular.Table{}
		if len(rows) > 0 {
			table.Headers = rows[0]
			table.Rows = make([][]any, 0, len(rows)-1)
			for _, rec := range rows[1:] {
				table.Rows = append(table.Rows, padRow(rec, len(table.Headers)))
			}
		}
		sheets = append(sheets, Sheet{Name: name, Table: table})
	}

	return sheets, nil
}

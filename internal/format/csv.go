package format

import (
	"encoding/csv"
	"os"

	"github.com/datakeep/ingest-core/internal/tabular"
)

// CSVReader parses a comma-separated file into a single sentinel sheet.
// The first record is the header; subsequent records are data rows. Ragged
// records are padded or truncated to the header width. Cells stay strings;
// anything beyond that is up to downstream consumers.
type CSVReader struct{}

func (r *CSVReader) Type() SourceType { return TypeCSV }

func (r *CSVReader) Read(path string) ([]Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, parseError(TypeCSV, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, parseError(TypeCSV, err)
	}

	table := tabular.Table{}
	if len(records) > 0 {
		table.Headers = records[0]
		table.Rows = make([][]any, 0, len(records)-1)
		for _, rec := range records[1:] {
			table.Rows = append(table.Rows, padRow(rec, len(table.Headers)))
		}
	}

	return []Sheet{{Name: SingleSheet, Table: table}}, nil
}

// padRow widens or narrows a string record to width columns, lifting the
// cells into the generic cell type.
func padRow(rec []string, width int) []any {
	row := make([]any, width)
	for i := 0; i < width; i++ {
		if i < len(rec) {
			row[i] = rec[i]
		} else {
			row[i] = nil
		}
	}
	return row
}

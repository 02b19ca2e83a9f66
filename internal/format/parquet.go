package format

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/datakeep/ingest-core/internal/tabular"
)

// ParquetReader parses a parquet file into a single sentinel sheet. Only flat
// schemas are supported; column order follows the file footer and cells keep
// the physical type the file stores (widened to int64/float64).
type ParquetReader struct{}

func (r *ParquetReader) Type() SourceType { return TypeParquet }

func (r *ParquetReader) Read(path string) ([]Sheet, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, parseError(TypeParquet, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, 4)
	if err != nil {
		return nil, parseError(TypeParquet, err)
	}
	defer pr.ReadStop()

	elements := pr.Footer.GetSchema()
	if len(elements) == 0 {
		return nil, parseError(TypeParquet, fmt.Errorf("file has no schema"))
	}
	leaves := elements[1:]
	for _, el := range leaves {
		if el.GetNumChildren() > 0 {
			return nil, parseError(TypeParquet, fmt.Errorf("nested schemas are not supported (group %q)", el.GetName()))
		}
	}

	numRows := int(pr.GetNumRows())
	table := tabular.Table{
		Headers: make([]string, len(leaves)),
		Rows:    make([][]any, numRows),
	}
	for i := range table.Rows {
		table.Rows[i] = make([]any, len(leaves))
	}

	for col, el := range leaves {
		// Opening the file renames footer schema elements to exported Go
		// identifiers; the stored column names survive as ExName.
		table.Headers[col] = pr.SchemaHandler.Infos[col+1].ExName

		vals, _, dls, err := pr.ReadColumnByIndex(int64(col), int64(numRows))
		if err != nil {
			return nil, parseError(TypeParquet, fmt.Errorf("column %q: %w", table.Headers[col], err))
		}

		nullable := el.GetRepetitionType() == parquet.FieldRepetitionType_OPTIONAL
		vi := 0
		for row := 0; row < numRows && row < len(dls); row++ {
			if nullable && dls[row] == 0 {
				table.Rows[row][col] = nil
				// Some column buffers keep nil placeholders aligned with the
				// definition levels; skip them so defined values stay in step.
				if len(vals) == len(dls) {
					vi++
				}
				continue
			}
			if vi < len(vals) {
				table.Rows[row][col] = normalizeCell(vals[vi])
			}
			vi++
		}
	}

	return []Sheet{{Name: SingleSheet, Table: table}}, nil
}

// normalizeCell widens parquet physical values to the cell types the rest of
// the pipeline understands.
func normalizeCell(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return float64(t)
	case float64:
		return t
	case bool:
		return t
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

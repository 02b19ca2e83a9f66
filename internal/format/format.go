// Package format contains one reader per supported source file format.
// Readers are pure: a local file path in, ordered sheets out. Dispatch is by
// the data source's declared type, never by sniffing content.
package format

import "github.com/datakeep/ingest-core/internal/tabular"

// Sheet is re-exported so reader signatures read naturally at call sites.
type Sheet = tabular.Sheet

// SourceType is the declared type of an uploaded file.
type SourceType string

const (
	TypeCSV     SourceType = "csv"
	TypeExcel   SourceType = "excel"
	TypeParquet SourceType = "parquet"
)

// SingleSheet is the sentinel sheet name emitted by single-sheet formats
// (csv, parquet). The mapper replaces it with the caller's target name.
const SingleSheet = "_single"

// Reader parses one source format into ordered sheets.
type Reader interface {
	// Type reports the source type this reader handles.
	Type() SourceType
	// Read parses the file at path. Sheet order follows the file; for
	// single-sheet formats the one sheet is named SingleSheet.
	Read(path string) ([]Sheet, error)
}

// ForType returns the reader for a declared type, or an unsupported-type
// error before any file I/O happens.
func ForType(t SourceType) (Reader, error) {
	switch t {
	case TypeCSV:
		return &CSVReader{}, nil
	case TypeExcel:
		return &ExcelReader{}, nil
	case TypeParquet:
		return &ParquetReader{}, nil
	default:
		return nil, unsupportedType(t)
	}
}

// FileExt returns the conventional file extension for a source type, used to
// name scratch files.
func FileExt(t SourceType) string {
	switch t {
	case TypeExcel:
		return ".xlsx"
	case TypeParquet:
		return ".parquet"
	default:
		return ".csv"
	}
}

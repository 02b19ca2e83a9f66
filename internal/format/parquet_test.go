package format

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const fixtureSchema = `{
  "Tag": "name=parquet_go_root, repetitiontype=REQUIRED",
  "Fields": [
    {"Tag": "name=city, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},
    {"Tag": "name=population, type=INT64, repetitiontype=OPTIONAL"},
    {"Tag": "name=area, type=DOUBLE, repetitiontype=OPTIONAL"},
    {"Tag": "name=capital, type=BOOLEAN, repetitiontype=OPTIONAL"}
  ]
}`

func writeParquetFixture(t *testing.T, rows []map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.parquet")

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	pw, err := writer.NewJSONWriter(fixtureSchema, fw, 2)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			t.Fatalf("marshal row: %v", err)
		}
		if err := pw.Write(string(line)); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return path
}

func TestParquetReaderShapesAndTypes(t *testing.T) {
	path := writeParquetFixture(t, []map[string]any{
		{"city": "berlin", "population": int64(3600000), "area": 891.7, "capital": true},
		{"city": "lyon", "population": int64(513000), "area": 47.9, "capital": false},
	})

	sheets, err := (&ParquetReader{}).Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Name != SingleSheet {
		t.Fatalf("expected single sentinel sheet, got %+v", sheets)
	}

	table := sheets[0].Table
	wantHeaders := []string{"city", "population", "area", "capital"}
	if table.NumColumns() != len(wantHeaders) {
		t.Fatalf("got %d columns, want %d", table.NumColumns(), len(wantHeaders))
	}
	for i, h := range wantHeaders {
		if table.Headers[i] != h {
			t.Errorf("header %d = %q, want %q", i, table.Headers[i], h)
		}
	}
	if table.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", table.NumRows())
	}

	row := table.Rows[0]
	if row[0] != "berlin" {
		t.Errorf("city = %v (%T), want berlin", row[0], row[0])
	}
	if row[1] != int64(3600000) {
		t.Errorf("population = %v (%T), want int64", row[1], row[1])
	}
	if row[2] != 891.7 {
		t.Errorf("area = %v (%T), want float64", row[2], row[2])
	}
	if row[3] != true {
		t.Errorf("capital = %v (%T), want bool", row[3], row[3])
	}
}

func TestParquetReaderNulls(t *testing.T) {
	path := writeParquetFixture(t, []map[string]any{
		{"city": "berlin", "population": int64(1), "area": 1.0, "capital": true},
		{"city": nil, "population": nil, "area": 2.0, "capital": false},
	})

	sheets, err := (&ParquetReader{}).Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	row := sheets[0].Table.Rows[1]
	if row[0] != nil || row[1] != nil {
		t.Errorf("expected nils, got %v / %v", row[0], row[1])
	}
	if row[2] != 2.0 {
		t.Errorf("area = %v, want 2.0", row[2])
	}
}

func TestParquetReaderKeepsStoredColumnNames(t *testing.T) {
	// Opening a file rewrites footer schema names into exported Go
	// identifiers; headers must come from the stored names regardless.
	const schema = `{
	  "Tag": "name=parquet_go_root, repetitiontype=REQUIRED",
	  "Fields": [
	    {"Tag": "name=postal_code, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"},
	    {"Tag": "name=gdpPerCapita, type=DOUBLE, repetitiontype=OPTIONAL"}
	  ]
	}`
	path := filepath.Join(t.TempDir(), "names.parquet")

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	pw, err := writer.NewJSONWriter(schema, fw, 2)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	line, err := json.Marshal(map[string]any{"postal_code": "10115", "gdpPerCapita": 1.5})
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	if err := pw.Write(string(line)); err != nil {
		t.Fatalf("write row: %v", err)
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	sheets, err := (&ParquetReader{}).Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"postal_code", "gdpPerCapita"}
	for i, h := range want {
		if sheets[0].Table.Headers[i] != h {
			t.Errorf("header %d = %q, want %q", i, sheets[0].Table.Headers[i], h)
		}
	}
}

func TestParquetReaderCorruptFile(t *testing.T) {
	path := writeFixture(t, "corrupt.parquet", "definitely not parquet")

	_, err := (&ParquetReader{}).Read(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if code := errCode(err); code != CodeParseFailed {
		t.Errorf("code = %q, want %q", code, CodeParseFailed)
	}
}

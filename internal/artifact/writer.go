// Package artifact serializes mapped sheets to parquet and uploads them to
// the object store at their deterministic per-dataset paths.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/datakeep/ingest-core/internal/objectstore"
	"github.com/datakeep/ingest-core/internal/tabular"
)

// Ext is the artifact file extension. The object key layout
// {bucket}/{projectID}/{datasetID}/{name}.parquet is a persisted contract.
const Ext = ".parquet"

// Writer persists sheet tables as parquet objects.
type Writer struct {
	store  objectstore.ObjectStore
	bucket string
}

func NewWriter(store objectstore.ObjectStore, bucket string) *Writer {
	return &Writer{store: store, bucket: bucket}
}

// Write serializes the table and uploads it, returning the storage pointer
// (bucket-qualified object path). The key depends only on project, dataset,
// and target name, so re-importing the same target overwrites the artifact.
func (w *Writer) Write(ctx context.Context, projectID, datasetID uuid.UUID, name string, table tabular.Table) (string, error) {
	key := objectstore.JoinKey(projectID.String(), datasetID.String(), name+Ext)
	pointer := objectstore.JoinKey(w.bucket, key)

	data, err := encodeParquet(table)
	if err != nil {
		return "", writeError(pointer, err)
	}
	if err := w.store.PutObject(ctx, w.bucket, key, data); err != nil {
		return "", writeError(pointer, err)
	}
	return pointer, nil
}

// encodeParquet builds the parquet body in memory: one OPTIONAL field per
// column, physical type inferred from the cell values, SNAPPY compressed.
func encodeParquet(table tabular.Table) ([]byte, error) {
	for _, header := range table.Headers {
		// Tags are "key=value, key=value" strings; a name containing the
		// delimiters would silently corrupt the schema.
		if header == "" || strings.ContainsAny(header, ",=") {
			return nil, fmt.Errorf("column name %q cannot be stored in a parquet schema", header)
		}
	}

	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)

	types := inferColumnTypes(table)
	pw, err := writer.NewJSONWriter(buildSchema(table.Headers, types), pfw, 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range table.Rows {
		rec := make(map[string]any, len(table.Headers))
		for i, header := range table.Headers {
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			rec[header] = coerceCell(cell, types[i])
		}
		// The JSON writer only accepts records as encoded JSON text.
		line, err := json.Marshal(rec)
		if err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return nil, err
		}
		if err := pw.Write(string(line)); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return nil, err
	}
	_ = pfw.Close()
	return buf.Bytes(), nil
}

func buildSchema(headers []string, types []columnType) string {
	fields := make([]map[string]string, 0, len(headers))
	for i, header := range headers {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", header, types[i].tag()),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

type columnType int

const (
	colString columnType = iota
	colInt
	colFloat
	colBool
)

func (c columnType) tag() string {
	switch c {
	case colInt:
		return "INT64"
	case colFloat:
		return "DOUBLE"
	case colBool:
		return "BOOLEAN"
	default:
		return "BYTE_ARRAY, convertedtype=UTF8"
	}
}

// inferColumnTypes picks one physical type per column from the cells present.
// Columns that mix ints and floats widen to DOUBLE; any other mixture, or a
// column of nothing but nulls, stays a string column.
func inferColumnTypes(table tabular.Table) []columnType {
	types := make([]columnType, len(table.Headers))
	for col := range table.Headers {
		seen := false
		inferred := colString
		for _, row := range table.Rows {
			if col >= len(row) || row[col] == nil {
				continue
			}
			var cur columnType
			switch row[col].(type) {
			case int64:
				cur = colInt
			case float64:
				cur = colFloat
			case bool:
				cur = colBool
			default:
				cur = colString
			}
			if !seen {
				inferred = cur
				seen = true
				continue
			}
			if inferred == cur {
				continue
			}
			if (inferred == colInt && cur == colFloat) || (inferred == colFloat && cur == colInt) {
				inferred = colFloat
				continue
			}
			inferred = colString
		}
		types[col] = inferred
	}
	return types
}

// coerceCell converts a cell to the value shape its column type expects.
func coerceCell(cell any, t columnType) any {
	if cell == nil {
		return nil
	}
	switch t {
	case colInt:
		switch v := cell.(type) {
		case int64:
			return v
		case float64:
			return int64(v)
		}
	case colFloat:
		switch v := cell.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		}
	case colBool:
		if v, ok := cell.(bool); ok {
			return v
		}
	default:
		switch v := cell.(type) {
		case string:
			return v
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return fmt.Sprint(cell)
}

// Package tabular holds the in-memory representation of parsed sheet data
// shared by the format readers, the sheet mapper, and the artifact writer.
package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is one sheet's worth of data: ordered column names plus ordered rows.
// Cell values are string, int64, float64, bool, or nil depending on what the
// source format's reader provides.
type Table struct {
	Headers []string
	Rows    [][]any
}

// NumRows returns the number of data rows (headers excluded).
func (t Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t Table) NumColumns() int { return len(t.Headers) }

// Truncate returns a copy of the table limited to at most n rows.
// The backing row slices are shared, not copied.
func (t Table) Truncate(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Headers: t.Headers, Rows: t.Rows[:n]}
}

// Sheet is a named table. Readers return sheets as an ordered slice rather
// than a map so that workbook order survives.
type Sheet struct {
	Name  string
	Table Table
}

// SheetRule maps one source sheet name to the datasheet name it should be
// persisted under.
type SheetRule struct {
	Source string
	Target string
}

// SheetSelection is the caller-supplied ordered mapping from source sheet
// names to target datasheet names. It is a slice because insertion order is
// contractual: it controls artifact ordering and, for single-sheet formats,
// which rule supplies the target name.
type SheetSelection []SheetRule

// UnmarshalJSON decodes a JSON object into a SheetSelection while preserving
// the document order of its keys, which encoding/json's map decoding discards.
func (s *SheetSelection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sheet selection must be a JSON object")
	}

	var rules SheetSelection
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sheet selection key must be a string")
		}
		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("sheet selection value for %q must be a string: %w", key, err)
		}
		rules = append(rules, SheetRule{Source: key, Target: target})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = rules
	return nil
}

// MarshalJSON encodes the selection back as a JSON object in rule order.
func (s SheetSelection) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, rule := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rule.Source)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rule.Target)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

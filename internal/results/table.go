// Package results encodes pipeline output tables and persists them to
// blob storage. Tables are written the way the downstream spreadsheet
// tooling expects them: UTF-8 with BOM, every field quoted, CRLF rows.
package results

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ExpiryColumn is the column the expiry flow writes into.
const ExpiryColumn = "Fecha de vencimiento"

// MedicationColumns is the fixed column order of medication result tables.
var MedicationColumns = []string{
	"Nombre Extraído",
	"Texto extraído",
	"Nombre Normalizado",
	"Nombre del medicamento",
	"Dosis",
	"Fecha de vencimiento",
}

// Row holds one medication extraction result.
type Row struct {
	// Extracted is the raw model output flattened to a single line.
	Extracted string
	// RawUpper is the raw model output trimmed and upper-cased.
	RawUpper string
	// Normalized is the canonical form used for dictionary matching.
	Normalized string
	// Name is the reconciled medication name, or the not-found marker.
	Name string
	// Dose is the reconciled dose, empty when unknown.
	Dose string
	// Expiry is filled in later by the expiry flow.
	Expiry string
}

func (r Row) fields() []string {
	return []string{r.Extracted, r.RawUpper, r.Normalized, r.Name, r.Dose, r.Expiry}
}

// Table is a loaded result table: a header plus data rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// AddColumn appends an empty column to the table and returns its index.
func (t *Table) AddColumn(name string) int {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Columns) - 1
}

// Set writes value at (row, col), padding short rows as needed.
func (t *Table) Set(row, col int, value string) {
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// Encode serializes the table with a UTF-8 BOM and every field quoted.
func (t *Table) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString("\xef\xbb\xbf")
	writeQuoted(&buf, t.Columns)
	for _, row := range t.Rows {
		writeQuoted(&buf, row)
	}
	return buf.Bytes()
}

// writeQuoted writes one record with all fields quoted. encoding/csv
// only quotes fields that need it, so records are assembled by hand.
func writeQuoted(buf *bytes.Buffer, record []string) {
	for i, field := range record {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

// EncodeMedicationTable serializes a single-row medication result table.
func EncodeMedicationTable(row Row) []byte {
	t := &Table{Columns: MedicationColumns, Rows: [][]string{row.fields()}}
	return t.Encode()
}

// DecodeTable parses a result table, tolerating a leading BOM and rows
// of uneven width.
func DecodeTable(data []byte) (*Table, error) {
	const op = "DecodeTable"

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", op, err)
	}

	t := &Table{Columns: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read row: %w", op, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

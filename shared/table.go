package shared

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// Column represents a raw price table column.
type Column struct {
	// Header holds the column header levels, outermost first.
	Header []string
	// Cells holds the raw cell values, one per row.
	Cells []string
}

// Name returns the outermost header level of the column.
func (c *Column) Name() string {
	if len(c.Header) == 0 {
		return ""
	}

	return c.Header[0]
}

// Table represents a raw price table as returned by a data source. Column
// naming and casing are whatever the source uses.
type Table struct {
	Columns []Column
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	var n int
	for idx := range t.Columns {
		if len(t.Columns[idx].Cells) > n {
			n = len(t.Columns[idx].Cells)
		}
	}

	return n
}

// TableFromResults builds a table from json objects, one object per row. Columns
// are ordered by first appearance of their key.
func TableFromResults(rows []gjson.Result) *Table {
	index := make(map[string]int)
	table := &Table{}

	for rowIdx := range rows {
		rows[rowIdx].ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			colIdx, ok := index[name]
			if !ok {
				colIdx = len(table.Columns)
				index[name] = colIdx
				table.Columns = append(table.Columns, Column{
					Header: []string{name},
					Cells:  make([]string, len(rows)),
				})
			}

			table.Columns[colIdx].Cells[rowIdx] = value.String()
			return true
		})
	}

	return table
}

// ParseJSONTable parses the json array found at path into a table. An empty
// path denotes the document root.
func ParseJSONTable(data []byte, path string) (*Table, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json price table")
	}

	res := gjson.ParseBytes(data)
	if path != "" {
		res = res.Get(path)
	}

	if !res.IsArray() {
		return nil, fmt.Errorf("expected a json array of rows at path '%s', got %s", path, res.Type.String())
	}

	return TableFromResults(res.Array()), nil
}

// ParseCSVTable parses csv price data with the provided number of header rows.
// Multi-row headers become header levels, the first row being the outermost.
func ParseCSVTable(r io.Reader, headerRows int) (*Table, error) {
	if headerRows < 1 {
		return nil, fmt.Errorf("csv tables need at least one header row, got %d", headerRows)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv records: %w", err)
	}

	if len(records) < headerRows {
		return nil, fmt.Errorf("csv has %d rows, expected at least %d header rows", len(records), headerRows)
	}

	width := len(records[0])
	table := &Table{Columns: make([]Column, width)}
	for col := 0; col < width; col++ {
		header := make([]string, 0, headerRows)
		for row := 0; row < headerRows; row++ {
			var level string
			if col < len(records[row]) {
				level = strings.TrimSpace(records[row][col])
			}
			header = append(header, level)
		}

		table.Columns[col].Header = header
		table.Columns[col].Cells = make([]string, 0, len(records)-headerRows)
	}

	for _, record := range records[headerRows:] {
		for col := 0; col < width; col++ {
			var cell string
			if col < len(record) {
				cell = strings.TrimSpace(record[col])
			}
			table.Columns[col].Cells = append(table.Columns[col].Cells, cell)
		}
	}

	return table, nil
}

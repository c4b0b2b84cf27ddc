package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is the tabular payload shared by all report renderers. Rows are
// positional; each row must have one cell per column.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// CSVExporter renders a Table as RFC 4180 CSV. The title is not emitted;
// CSV consumers get the column row as the first record.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the table.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv export requires at least one column")
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv columns: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("csv row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

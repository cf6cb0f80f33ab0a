// Package export renders the admin roster downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is an ordered table headed by column names. Rows shorter than the
// header are padded on render so every record lines up.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// Append adds one row in header order.
func (d *Dataset) Append(values ...string) {
	d.Rows = append(d.Rows, values)
}

// CSVExporter renders a dataset as a spreadsheet-friendly CSV download.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Section is one titled table of a report.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Report groups several sections under a single title.
type Report struct {
	Title    string
	Sections []Section
}

func (r Report) validate() error {
	if len(r.Sections) == 0 {
		return fmt.Errorf("report requires at least one section")
	}
	for _, section := range r.Sections {
		if len(section.Headers) == 0 {
			return fmt.Errorf("section %q requires at least one header", section.Title)
		}
		for i, row := range section.Rows {
			if len(row) != len(section.Headers) {
				return fmt.Errorf("section %q row %d has %d cells, want %d", section.Title, i, len(row), len(section.Headers))
			}
		}
	}
	return nil
}

// CSVExporter renders a report as CSV, one block per section separated by an empty line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the report.
func (e *CSVExporter) Render(report Report) ([]byte, error) {
	if err := report.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, section := range report.Sections {
		if i > 0 {
			writer.Flush()
			buf.WriteString("\n")
		}
		if section.Title != "" {
			if err := writer.Write([]string{"# " + section.Title}); err != nil {
				return nil, fmt.Errorf("write csv section title: %w", err)
			}
		}
		if err := writer.Write(section.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		if err := writer.WriteAll(section.Rows); err != nil {
			return nil, fmt.Errorf("write csv rows: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

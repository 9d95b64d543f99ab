package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Roadside Dashboard",
		Sections: []Section{
			{Title: "Emergencies", Headers: []string{"status", "count"}, Rows: [][]string{{"pending", "3"}, {"completed", "10"}}},
			{Title: "Top garages", Headers: []string{"garage", "revenue"}, Rows: [][]string{{"Colombo Motors", "125000.00"}}},
		},
	}
}

func TestCSVExporterRendersSections(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "# Emergencies\nstatus,count\npending,3\n"))
	assert.Contains(t, text, "\n\n# Top garages\ngarage,revenue\nColombo Motors,125000.00\n")
}

func TestCSVExporterValidatesRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{})
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Report{Sections: []Section{{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}}})
	require.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderPadsShortRows(t *testing.T) {
	data := Dataset{Headers: []string{"Name", "Phone", "Status"}}
	data.Append("Alex Rivera", "5551234567", "active")
	data.Append("Blair Chen")

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Phone,Status", lines[0])
	assert.Equal(t, "Alex Rivera,5551234567,active", lines[1])
	assert.Equal(t, "Blair Chen,,", lines[2])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	data := Dataset{Headers: []string{"Name", "Phone"}}
	data.Append("Alex Rivera", "5551234567")

	out, err := NewPDFExporter().Render(data, "Tutor Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

package reporting

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCaseTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCaseTable(&buf, newTestReport().Cases))
	out := buf.String()

	assert.Contains(t, out, "Case")
	assert.Contains(t, out, "Predicted")
	assert.Contains(t, out, "WebSurfer @ 4")
	assert.Contains(t, out, "Orchestrator @ 2")
	assert.Contains(t, out, "missing_reference")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, ".json") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 5)
	assert.Contains(t, rows[3], "no_prediction")
	assert.NotContains(t, rows[3], "✓")
}

func TestPair(t *testing.T) {
	assert.Equal(t, "-", pair("", ""))
	assert.Equal(t, "Coder @ 3", pair("Coder", "3"))
}

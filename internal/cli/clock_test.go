package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triadic/internal/stepclock"
)

func TestBuildClockTable(t *testing.T) {
	table, err := BuildClockTable()
	require.NoError(t, err)
	require.Len(t, table.Rows, 30)

	first := table.Rows[0]
	assert.Equal(t, stepclock.StepAddress{Phase: 1, Stage: 1, Step: 1, Absolute: 1}, first.Address)
	assert.Equal(t, "stream-1", first.Primary)
	assert.Equal(t, 1, first.StreamStep)
	assert.Equal(t, stepclock.Triad{1, 5, 9}, first.Triad)

	fourth := table.Rows[3]
	assert.Equal(t, "integration", fourth.Primary)
	assert.Equal(t, 4, fourth.Delay.PatternStep)

	// Absolute 13 wraps onto stream step 1.
	assert.Equal(t, 1, table.Rows[12].StreamStep)
	last := table.Rows[29]
	assert.Equal(t, stepclock.StepAddress{Phase: 3, Stage: 5, Step: 2, Absolute: 30}, last.Address)
	assert.Equal(t, 6, last.StreamStep)
}

func TestClockCommandText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewClockCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 31)
	assert.True(t, strings.HasPrefix(lines[0], "ABS"))
	assert.Contains(t, lines[1], "relevance_realization")
}

func TestClockCommandJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewClockCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   ClockTable `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Rows, 30)
}

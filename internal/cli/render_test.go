package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarriaga/blazer/internal/datasource"
)

func sampleResult() *datasource.Result {
	return &datasource.Result{
		Columns: []string{"id", "name"},
		Rows: [][]any{
			{int64(1), "chunky bacon"},
			{int64(2), nil},
		},
	}
}

func TestRenderTable(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderResult(buf, sampleResult(), "table"))

	out := buf.String()
	assert.Contains(t, out, "chunky bacon")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.NotContains(t, out, "cached at")
}

func TestRenderTableEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderResult(buf, &datasource.Result{Columns: []string{"id"}}, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderTableCached(t *testing.T) {
	res := sampleResult()
	res.CachedAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	buf := new(bytes.Buffer)
	require.NoError(t, renderResult(buf, res, "table"))
	assert.Contains(t, buf.String(), "cached at 2026-08-30 12:00:00")
}

func TestRenderJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderResult(buf, sampleResult(), "json"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "chunky bacon", rows[0]["name"])
	assert.Nil(t, rows[1]["name"])
}

func TestRenderCSV(t *testing.T) {
	res := &datasource.Result{
		Columns: []string{"id", "note"},
		Rows: [][]any{
			{int64(1), `has "quotes", and commas`},
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, renderResult(buf, res, "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,note", lines[0])
	assert.Equal(t, `1,"has ""quotes"", and commas"`, lines[1])
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "blazer "+Version)
}

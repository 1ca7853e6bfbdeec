package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/omarriaga/blazer/internal/datasource"
)

func renderResult(w io.Writer, res *datasource.Result, format string) error {
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		return renderCSV(w, res)
	default:
		return renderTable(w, res)
	}
}

func renderTable(w io.Writer, res *datasource.Result) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, values := range res.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	if res.Cached() {
		_, _ = fmt.Fprintf(w, "cached at %s\n", res.CachedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func renderJSON(w io.Writer, res *datasource.Result) error {
	out := make([]map[string]any, 0, len(res.Rows))
	for _, values := range res.Rows {
		row := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			var v any
			if i < len(values) {
				v = values[i]
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderCSV(w io.Writer, res *datasource.Result) error {
	_, _ = fmt.Fprintln(w, strings.Join(res.Columns, ","))

	for _, values := range res.Rows {
		fields := make([]string, len(values))
		for i, v := range values {
			fields[i] = escapeCSV(formatValue(v))
		}
		_, _ = fmt.Fprintln(w, strings.Join(fields, ","))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

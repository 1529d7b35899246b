package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Output formats accepted by the listing commands.
const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

func renderTable(w io.Writer, format string, header table.Row, rows []table.Row) {
	if len(rows) == 0 && format == formatTable {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.AppendRows(rows)

	switch format {
	case formatMarkdown:
		t.RenderMarkdown()
	case formatCSV:
		t.RenderCSV()
	default:
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	}
}

package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oakwood-commons/jvx/internal/flatten"
)

// WriteTable renders rows as a PATH / TYPE / VALUE table.
func WriteTable(w io.Writer, rows []flatten.Row, opts Options) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"PATH", "TYPE", "VALUE"})

	for _, r := range rows {
		path := strings.Repeat("  ", r.Level) + DisplayKey(r)
		t.AppendRow(table.Row{path, r.Value.Kind().String(), Truncate(ValueText(r), opts.MaxValueWidth)})
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

// Package table renders tabular view content with an explicit placeholder
// row for empty results.
package table

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table is a rendered view body.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
	// Empty is the placeholder shown as the only row when Rows is empty.
	Empty string
	// Footer lines are printed below the table.
	Footer []string
}

// Renderer receives rendered tables for a view.
type Renderer interface {
	Render(t Table)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(t Table)

func (f RendererFunc) Render(t Table) { f(t) }

// Discard drops every table.
var Discard Renderer = RendererFunc(func(Table) {})

// Body returns the rows to display. An empty table yields exactly one row
// holding the placeholder text.
func (t Table) Body() [][]string {
	if len(t.Rows) > 0 {
		return t.Rows
	}
	return [][]string{{t.Empty}}
}

// IsPlaceholder reports whether Body will return the placeholder row.
func (t Table) IsPlaceholder() bool {
	return len(t.Rows) == 0
}

// WriteTo prints the table with aligned columns.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	if t.Title != "" {
		fmt.Fprintf(&sb, "%s\n\n", t.Title)
	}

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	if len(t.Columns) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	}
	if t.IsPlaceholder() {
		fmt.Fprintf(tw, "(%s)\n", t.Empty)
	} else {
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	if err := tw.Flush(); err != nil {
		return 0, err
	}

	for _, line := range t.Footer {
		fmt.Fprintln(&sb, line)
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// String returns the rendered table.
func (t Table) String() string {
	var sb strings.Builder
	_, _ = t.WriteTo(&sb)
	return sb.String()
}

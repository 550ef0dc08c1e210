package output

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Table renders tabular data for text output. Widths are measured in runes
// so addresses and symbols line up.
type Table struct {
	headers  []string
	rows     [][]string
	right    map[int]bool
	noHeader bool
	sep      string
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, right: map[int]bool{}, sep: "  "}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// SetNoHeader suppresses the header row.
func (t *Table) SetNoHeader(noHeader bool) {
	t.noHeader = noHeader
}

// SetSeparator sets the column separator.
func (t *Table) SetSeparator(sep string) {
	t.sep = sep
}

// AlignRight right-aligns the given column, for amounts.
func (t *Table) AlignRight(col int) {
	t.right[col] = true
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}

	widths := t.widths()
	var sb strings.Builder

	if !t.noHeader && len(t.headers) > 0 {
		t.writeRow(&sb, t.headers, widths)
		rule := make([]string, len(widths))
		for i, n := range widths {
			rule[i] = strings.Repeat("-", n)
		}
		t.writeRow(&sb, rule, widths)
	}
	for _, row := range t.rows {
		t.writeRow(&sb, row, widths)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// String returns the table as a string.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) widths() []int {
	n := len(t.headers)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	widths := make([]int, n)
	measure := func(cells []string) {
		for i, c := range cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}
	if !t.noHeader {
		measure(t.headers)
	}
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func (t *Table) writeRow(sb *strings.Builder, cells []string, widths []int) {
	parts := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(cell))
		if t.right[i] {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	sb.WriteString(strings.TrimRight(strings.Join(parts, t.sep), " "))
	sb.WriteByte('\n')
}

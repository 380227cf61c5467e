package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// style returns a color that prints plain text when noColor is set.
func style(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Table prints aligned columns under a bold header and a rule line. Rows are cut or padded to
// the header count; trailing blanks are trimmed from every row.
type Table struct {
	w       io.Writer
	noColor bool
	headers []string
	rows    [][]string
}

func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{w: w, noColor: noColor, headers: headers}
}

func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	widths := make([]int, len(t.headers))
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	join := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = pad(c, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	rules := make([]string, len(widths))
	for i, n := range widths {
		rules[i] = strings.Repeat("─", n)
	}

	style(t.noColor, color.Bold, color.FgCyan).Fprintln(t.w, join(t.headers))
	style(t.noColor, color.FgHiBlack).Fprintln(t.w, strings.Join(rules, "  "))
	for _, row := range t.rows {
		fmt.Fprintln(t.w, join(row))
	}
}

// Pairs prints "key: value" lines with the values aligned.
type Pairs struct {
	w       io.Writer
	noColor bool
	keys    []string
	values  []string
}

func NewPairs(w io.Writer, noColor bool) *Pairs {
	return &Pairs{w: w, noColor: noColor}
}

func (p *Pairs) Add(key, value string) {
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
}

func (p *Pairs) Render() {
	width := 0
	for _, k := range p.keys {
		width = max(width, utf8.RuneCountInString(k)+1)
	}
	key := style(p.noColor, color.FgCyan)
	for i, k := range p.keys {
		key.Fprint(p.w, pad(k+":", width))
		fmt.Fprintf(p.w, " %s\n", p.values[i])
	}
}

// List prints one bullet per item.
type List struct {
	w       io.Writer
	noColor bool
	items   []string
}

func NewList(w io.Writer, noColor bool) *List {
	return &List{w: w, noColor: noColor}
}

func (l *List) Add(item string) { l.items = append(l.items, item) }

func (l *List) Render() {
	bullet := style(l.noColor, color.FgCyan)
	for _, item := range l.items {
		bullet.Fprint(l.w, "  • ")
		fmt.Fprintln(l.w, item)
	}
}

// Header prints title in bold with a rule of the same width beneath it.
func Header(w io.Writer, title string, noColor bool) {
	style(noColor, color.Bold, color.FgCyan).Fprintln(w, title)
	style(noColor, color.FgHiBlack).Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}

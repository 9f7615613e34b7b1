// Package ui renders terminal reports for the fluentmap commands.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Table renders aligned columns under a colored header. Widths are display
// widths; the last column is left unpadded.
type Table struct {
	writer  io.Writer
	indent  string
	headers []string
	rows    [][]string
	styles  map[int]*color.Color
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		styles:  make(map[int]*color.Color),
	}
}

// Indent prefixes every rendered line
func (t *Table) Indent(prefix string) *Table {
	t.indent = prefix
	return t
}

// Style colors the cells of column i
func (t *Table) Style(i int, c *color.Color) *Table {
	t.styles[i] = c
	return t
}

// AddRow adds a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	header := color.New(color.Bold, color.FgCyan)
	t.line(t.headers, widths, func(int) *color.Color { return header })

	rule := color.New(color.FgHiBlack)
	fmt.Fprint(t.writer, t.indent)
	for i, w := range widths {
		if i > 0 {
			fmt.Fprint(t.writer, "  ")
		}
		rule.Fprint(t.writer, strings.Repeat("─", w))
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		t.line(row, widths, func(i int) *color.Color { return t.styles[i] })
	}
}

func (t *Table) line(cells []string, widths []int, style func(int) *color.Color) {
	fmt.Fprint(t.writer, t.indent)
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i < len(widths)-1 {
			cell = runewidth.FillRight(cell, widths[i])
		}
		if i > 0 {
			fmt.Fprint(t.writer, "  ")
		}
		if c := style(i); c != nil {
			c.Fprint(t.writer, cell)
		} else {
			fmt.Fprint(t.writer, cell)
		}
	}
	fmt.Fprintln(t.writer)
}

// Header writes a bold title followed by a dimmed note
func Header(w io.Writer, title, note string) {
	color.New(color.Bold).Fprint(w, title)
	if note != "" {
		fmt.Fprint(w, " ")
		color.New(color.Faint).Fprint(w, note)
	}
	fmt.Fprintln(w)
}

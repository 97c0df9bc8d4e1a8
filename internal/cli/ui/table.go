// Package ui renders command output: aligned tables, titled sections and
// status messages.
package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders aligned columns under a coloured header
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{w: w, headers: headers, noColor: noColor}
}

// AddRow appends a row; missing cells render empty
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
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	header := color.New(color.Bold, color.FgCyan)
	rule := color.New(color.FgHiBlack)
	if t.noColor {
		header.DisableColor()
		rule.DisableColor()
	}

	cells := make([]string, len(widths))
	for i, h := range t.headers {
		cells[i] = header.Sprint(pad(h, widths[i]))
	}
	fmt.Fprintln(t.w, strings.TrimRight(strings.Join(cells, "  "), " "))

	for i, width := range widths {
		cells[i] = rule.Sprint(strings.Repeat("─", width))
	}
	fmt.Fprintln(t.w, strings.Join(cells, "  "))

	for _, row := range t.rows {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = pad(cell, widths[i])
		}
		fmt.Fprintln(t.w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// Section is a titled, indented block of lines
type Section struct {
	w       io.Writer
	title   string
	lines   []string
	noColor bool
}

// NewSection creates a section
func NewSection(w io.Writer, title string, noColor bool) *Section {
	return &Section{w: w, title: title, noColor: noColor}
}

// AddLine appends a formatted line
func (s *Section) AddLine(format string, args ...interface{}) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

// Render writes the section followed by a blank line. Empty sections are
// not written.
func (s *Section) Render() {
	if len(s.lines) == 0 {
		return
	}
	title := color.New(color.Bold, color.FgCyan)
	if s.noColor {
		title.DisableColor()
	}
	title.Fprintln(s.w, s.title)
	for _, line := range s.lines {
		fmt.Fprintf(s.w, "  %s\n", line)
	}
	fmt.Fprintln(s.w)
}

package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "MODEL", "TABLE")
	table.AddRow("library.Author", "authors")
	table.AddRow("library.Book", "books", "ignored")
	table.AddRow("x")

	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}

	expected := []string{
		"MODEL           TABLE",
		"──────────────  ───────",
		"library.Author  authors",
		"library.Book    books",
		"x",
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("line %d: expected %q, got %q", i, want, lines[i])
		}
	}
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSection_Render(t *testing.T) {
	var buf bytes.Buffer
	section := NewSection(&buf, "library.Book", true)
	section.AddLine("table:   %s", "books")
	section.AddLine("dialect: %s", "sqlite")
	section.Render()

	expected := "library.Book\n  table:   books\n  dialect: sqlite\n\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestSection_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewSection(&buf, "Relationships", true).Render()
	if buf.Len() != 0 {
		t.Errorf("expected empty section to render nothing, got %q", buf.String())
	}
}

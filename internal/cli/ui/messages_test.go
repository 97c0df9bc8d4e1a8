package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestMessage_Format(t *testing.T) {
	msg := Message{
		Level:       LevelError,
		Context:     "model not found",
		Problem:     "Bok",
		Suggestions: []string{"Book"},
		Hints:       []string{"List models: schemabridge inspect <manifest>"},
		NoColor:     true,
	}

	expected := "✗ MODEL NOT FOUND: Bok\n" +
		"\n" +
		"   Did you mean: Book?\n" +
		"\n" +
		"   → List models: schemabridge inspect <manifest>\n"
	if got := msg.Format(); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestMessage_Levels(t *testing.T) {
	tests := []struct {
		level  Level
		symbol string
	}{
		{LevelError, "✗"},
		{LevelWarning, "⚠"},
		{LevelInfo, "ℹ"},
	}

	for _, tt := range tests {
		got := Message{Level: tt.level, Problem: "something", NoColor: true}.Format()
		if got != tt.symbol+" something\n" {
			t.Errorf("level %d: got %q", tt.level, got)
		}
	}
}

func TestModelNotFound(t *testing.T) {
	msg := ModelNotFound("Autor", []string{"Author", "Book", "Tag"}, true)

	if len(msg.Suggestions) != 1 || msg.Suggestions[0] != "Author" {
		t.Errorf("expected suggestion Author, got %v", msg.Suggestions)
	}

	var buf bytes.Buffer
	msg.Write(&buf)
	if !strings.Contains(buf.String(), "Did you mean: Author?") {
		t.Errorf("expected suggestion in output, got %q", buf.String())
	}
}

func TestConfigError(t *testing.T) {
	msg := ConfigError(errors.New("missing is required"), true)
	got := msg.Format()

	if !strings.HasPrefix(got, "✗ CONFIGURATION ERROR: missing is required\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "SCHEMABRIDGE_MISSING=warn") {
		t.Errorf("expected environment hint, got %q", got)
	}
}

func TestSuccess(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, true, "Created %d tables", 3)
	if buf.String() != "✓ Created 3 tables\n" {
		t.Errorf("got %q", buf.String())
	}
}

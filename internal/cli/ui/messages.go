package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a status message with optional suggestions and hints
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders the message
//
//	✗ MODEL NOT FOUND: Bok
//
//	   Did you mean: Book?
//
//	   → List models: schemabridge inspect models.yml
func (m Message) Format() string {
	var b strings.Builder

	var head *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		head, symbol = color.New(color.FgYellow, color.Bold), "⚠"
	case LevelInfo:
		head, symbol = color.New(color.FgCyan, color.Bold), "ℹ"
	default:
		head, symbol = color.New(color.FgRed, color.Bold), "✗"
	}
	hint := color.New(color.FgCyan)
	suggest := color.New(color.FgYellow)
	if m.NoColor {
		head.DisableColor()
		hint.DisableColor()
		suggest.DisableColor()
	}

	if m.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		suggest.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write writes the message
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// ModelNotFound reports an unknown model name with close matches
func ModelNotFound(name string, candidates []string, noColor bool) Message {
	return Message{
		Level:       LevelError,
		Context:     "model not found",
		Problem:     name,
		Suggestions: Suggest(name, candidates, DefaultMaxSuggestions),
		Hints:       []string{"List models: schemabridge inspect <manifest>"},
		NoColor:     noColor,
	}
}

// ConfigError reports an invalid configuration
func ConfigError(err error, noColor bool) Message {
	return Message{
		Level:   LevelError,
		Context: "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"Set missing: warn|skip|raise|fallback:<Kind> in schemabridge.yml",
			"Or export SCHEMABRIDGE_MISSING=warn",
		},
		NoColor: noColor,
	}
}

// Success renders a success line
func Success(w io.Writer, noColor bool, format string, args ...interface{}) {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	green.Fprintf(w, "✓ "+format+"\n", args...)
}

package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Progress renders a step counter bar for a known number of steps
type Progress struct {
	w       io.Writer
	total   int
	done    int
	width   int
	noColor bool
}

// NewProgress creates a progress bar for total steps
func NewProgress(w io.Writer, total int, noColor bool) *Progress {
	return &Progress{w: w, total: total, width: 30, noColor: noColor}
}

// Step marks one step done and redraws the bar with a label
func (p *Progress) Step(label string) {
	if p.done < p.total {
		p.done++
	}
	p.render(label)
}

// Finish ends the bar line
func (p *Progress) Finish() {
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *Progress) render(label string) {
	if p.total == 0 {
		return
	}
	filled := p.width * p.done / p.total

	bar := color.New(color.FgCyan)
	rest := color.New(color.FgHiBlack)
	if p.noColor {
		bar.DisableColor()
		rest.DisableColor()
	}

	fmt.Fprintf(p.w, "\r[%s%s] %d/%d %s\033[K",
		bar.Sprint(strings.Repeat("█", filled)),
		rest.Sprint(strings.Repeat("░", p.width-filled)),
		p.done, p.total, label)
}

// Package ui renders command output: results, health summaries, lifecycle
// outcomes and consolidation plans. Everything except query id lists goes to
// the Printer's writer, normally stderr.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/onto/internal/result"
)

// Palette.
const (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan: headings
	colorAccent  = lipgloss.Color("#FFD700") // Gold: warnings
	colorSuccess = lipgloss.Color("#00E676") // Green: success
	colorDanger  = lipgloss.Color("#FF5252") // Red: errors
	colorMuted   = lipgloss.Color("#8C8C8C") // Gray: detail
)

type styles struct {
	heading lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
}

// Printer writes styled output. Colour is used only when the writer is a
// terminal that supports it.
type Printer struct {
	w io.Writer
	s styles
}

// New returns a Printer on stderr.
func New() *Printer {
	return NewWriter(os.Stderr)
}

// NewWriter returns a Printer on w.
func NewWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w: w,
		s: styles{
			heading: r.NewStyle().Bold(true).Foreground(colorPrimary),
			ok:      r.NewStyle().Bold(true).Foreground(colorSuccess),
			warn:    r.NewStyle().Foreground(colorAccent),
			bad:     r.NewStyle().Bold(true).Foreground(colorDanger),
			dim:     r.NewStyle().Foreground(colorMuted),
			bold:    r.NewStyle().Bold(true),
		},
	}
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Error prints a one-line failure.
func (p *Printer) Error(msg string) {
	p.line("%s %s", p.s.bad.Render("error:"), msg)
}

// Info prints a de-emphasized note.
func (p *Printer) Info(msg string) {
	p.line("%s", p.s.dim.Render(msg))
}

// Success prints a confirmation.
func (p *Printer) Success(msg string) {
	p.line("%s %s", p.s.ok.Render("✓"), msg)
}

// Heading prints a section title.
func (p *Printer) Heading(title string) {
	p.line("%s", p.s.heading.Render(title))
}

// Result prints a result's findings followed by its status line.
func (p *Printer) Result(res result.Result) {
	for _, f := range res.Findings {
		p.Finding(f)
	}
	if len(res.Findings) > 0 {
		p.line("")
	}
	switch res.Status {
	case result.StatusFatal:
		p.line("%s %s", p.s.bad.Render("✗"), res.Message)
	case result.StatusWarnings:
		p.line("%s %s (%d errors, %d findings)", p.s.warn.Render("⚠"), res.Message, res.Errors(), len(res.Findings))
	default:
		p.Success(res.Message)
	}
}

// Finding prints one finding with a severity marker.
func (p *Printer) Finding(f result.Finding) {
	marker := p.s.warn.Render("warn ")
	if f.Severity == result.SeverityError {
		marker = p.s.bad.Render("error")
	}
	p.line("  %s %s %s", marker, p.s.dim.Render("["+string(f.Category)+"]"), f.String())
}

// IDs writes one id per line to w, unstyled, so the list pipes cleanly.
func IDs(w io.Writer, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintln(w, strings.Join(ids, "\n"))
}

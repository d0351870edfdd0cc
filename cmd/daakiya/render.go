package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/daakiya/internal/history"
)

const labelWidth = 72

// palette styles terminal output. Writers that are not a color terminal get
// plain text, so piped output stays clean. NO_COLOR forces plain text too.
type palette struct {
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
	ok      lipgloss.Style
	client  lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
}

func newPalette(w io.Writer, getenv func(string) string) palette {
	var opts []termenv.OutputOption
	if getenv != nil && getenv("NO_COLOR") != "" {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	r := lipgloss.NewRenderer(w, opts...)
	return palette{
		added:   r.NewStyle().Foreground(lipgloss.Color("2")),
		removed: r.NewStyle().Foreground(lipgloss.Color("1")),
		hunk:    r.NewStyle().Foreground(lipgloss.Color("6")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		client:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		failed:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		muted:   r.NewStyle().Faint(true),
	}
}

func (p palette) diff(text string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			body = p.muted.Render(body)
		case strings.HasPrefix(body, "@@"):
			body = p.hunk.Render(body)
		case strings.HasPrefix(body, "+"):
			body = p.added.Render(body)
		case strings.HasPrefix(body, "-"):
			body = p.removed.Render(body)
		}
		b.WriteString(body)
		if strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// status pads before styling so escape codes do not break column alignment.
func (p palette) status(e history.Entry) string {
	label := padRight(statusLabel(e), 6)
	switch {
	case e.Response == nil:
		return p.muted.Render(label)
	case e.Response.Failed(), e.Response.Status >= 500:
		return p.failed.Render(label)
	case e.Response.Status >= 400:
		return p.client.Render(label)
	default:
		return p.ok.Render(label)
	}
}

// fitLabel truncates by display width so wide runes keep the table aligned.
func fitLabel(s string) string {
	return runewidth.Truncate(s, labelWidth, "...")
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

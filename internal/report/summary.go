// File: internal/report/summary.go
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/xkilldash9x/uiverify/internal/verify"
)

// Outcome glyphs carry meaning without relying on color.
const (
	glyphOK      = "✓"
	glyphSoft    = "!"
	glyphHard    = "✗"
	glyphSkipped = "-"
)

// maxNameWidth caps the step column so long locators do not push the outcome off screen.
const maxNameWidth = 48

type palette struct {
	plain, ok, soft, hard, dim, bold lipgloss.Style
}

func newPalette(w io.Writer, color bool) palette {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return palette{
		plain: r.NewStyle(),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		soft:  r.NewStyle().Foreground(lipgloss.Color("214")),
		hard:  r.NewStyle().Foreground(lipgloss.Color("196")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("240")),
		bold:  r.NewStyle().Bold(true),
	}
}

func (p palette) outcome(o verify.Outcome) (string, lipgloss.Style) {
	switch o {
	case verify.OutcomeOK:
		return glyphOK, p.ok
	case verify.OutcomeSoftFail:
		return glyphSoft, p.soft
	case verify.OutcomeHardFail:
		return glyphHard, p.hard
	}
	return glyphSkipped, p.dim
}

func (p palette) verdict(v verify.Verdict) lipgloss.Style {
	switch v {
	case verify.VerdictPassed:
		return p.ok.Bold(true)
	case verify.VerdictFailed:
		return p.soft.Bold(true)
	}
	return p.hard.Bold(true)
}

// PrintSummary writes a human-readable summary of r to w. Colors are used
// only when color is true.
func PrintSummary(w io.Writer, r *verify.Report, color bool) error {
	p := newPalette(w, color)

	width := 0
	names := make([]string, len(r.Results))
	for i, res := range r.Results {
		names[i] = truncate(res.Step.Describe(), maxNameWidth)
		width = max(width, lipgloss.Width(names[i]))
	}
	nameCol := p.plain.Width(width + 2)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n",
		p.bold.Render(r.Scenario),
		p.verdict(r.Verdict).Render(strings.ToUpper(string(r.Verdict))),
		p.dim.Render(fmt.Sprintf("(%s, run %s)", r.Duration().Round(time.Millisecond), shortID(r.RunID))),
	)
	if r.Target != "" {
		fmt.Fprintf(&b, "%s %s\n", p.dim.Render("target"), r.Target)
	}

	for i, res := range r.Results {
		glyph, style := p.outcome(res.Outcome)
		line := fmt.Sprintf("  %s %s%s", style.Render(glyph), nameCol.Render(names[i]), style.Render(fmt.Sprintf("%-9s", res.Outcome)))
		if res.Outcome != verify.OutcomeSkipped {
			line += " " + p.dim.Render(res.Duration.Round(time.Millisecond).String())
		}
		if res.Outcome == verify.OutcomeSoftFail || res.Outcome == verify.OutcomeHardFail {
			line += "  " + res.Message
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	fmt.Fprintf(&b, "%d ok, %d soft-fail, %d hard-fail, %d skipped\n",
		r.Count(verify.OutcomeOK), r.Count(verify.OutcomeSoftFail),
		r.Count(verify.OutcomeHardFail), r.Count(verify.OutcomeSkipped))
	if r.Artifact != "" {
		fmt.Fprintf(&b, "%s %s\n", p.dim.Render("screenshot"), r.Artifact)
	}
	if r.Verdict == verify.VerdictAborted {
		for _, reason := range r.Reasons {
			fmt.Fprintf(&b, "%s %s\n", p.hard.Render("aborted:"), reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// truncate cuts s to n terminal cells. Wide runes count double.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	return runewidth.Truncate(s, n, "…")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/michaelbrown/playground/internal/verdict"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

type painter func(code, s string) string

func newPainter(color bool) painter {
	return func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}
}

// RenderText writes a terminal rendering of v. ANSI colours are used only
// when color is true.
func RenderText(w io.Writer, v View, color bool) error {
	paint := newPainter(color)
	var b strings.Builder
	for _, c := range v.Cases {
		writeCase(&b, c, paint)
	}
	writeSummary(&b, v, paint)
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderCaseText writes the lines of a single case.
func RenderCaseText(w io.Writer, c CaseView, color bool) error {
	var b strings.Builder
	writeCase(&b, c, newPainter(color))
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummaryText writes only the summary line of v.
func RenderSummaryText(w io.Writer, v View, color bool) error {
	var b strings.Builder
	writeSummary(&b, v, newPainter(color))
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCase(b *strings.Builder, c CaseView, paint painter) {
	label := fmt.Sprintf("Test %d", c.Index+1)
	switch c.State {
	case Pending:
		b.WriteString(paint(ansiGray, fmt.Sprintf("  ○ %s  pending", label)))
		b.WriteString("\n")
	case Running:
		b.WriteString(paint(ansiCyan, fmt.Sprintf("  … %s  running", label)))
		b.WriteString("\n")
	case Completed:
		writeCompleted(b, label, c, paint)
	}
}

func writeSummary(b *strings.Builder, v View, paint painter) {
	s := v.Summary
	line := fmt.Sprintf("%d/%d passed, %d failed, %d errors", s.Pass, s.Total, s.Fail, s.Error)
	switch {
	case s.Fail+s.Error > 0:
		line = paint(ansiRed, line)
	case v.Done:
		line = paint(ansiGreen, line)
	}
	b.WriteString(line)
	b.WriteString("\n")
}

func writeCompleted(b *strings.Builder, label string, c CaseView, paint painter) {
	vd := c.Verdict
	switch vd.Kind {
	case verdict.Pass:
		b.WriteString(paint(ansiGreen, fmt.Sprintf("  ✓ %s  passed", label)))
		b.WriteString("\n")
	case verdict.Fail:
		b.WriteString(paint(ansiRed, fmt.Sprintf("  ✗ %s  wrong answer", label)))
		b.WriteString("\n")
		writeBlock(b, "expected", vd.ExpectedOutput, paint)
		writeBlock(b, "actual", vd.Stdout, paint)
	default:
		b.WriteString(paint(ansiYellow, fmt.Sprintf("  ! %s  %s: %s", label, kindLabel(vd.Kind), vd.Message)))
		b.WriteString("\n")
		if vd.Stderr != "" {
			writeBlock(b, "stderr", vd.Stderr, paint)
		}
	}
}

func writeBlock(b *strings.Builder, title, body string, paint painter) {
	b.WriteString(fmt.Sprintf("      %s:\n", title))
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		b.WriteString(paint(ansiGray, "      │ "+line))
		b.WriteString("\n")
	}
}

func kindLabel(k verdict.Kind) string {
	switch k {
	case verdict.RuntimeError:
		return "runtime error"
	case verdict.NetworkError:
		return "network error"
	}
	return string(k)
}

// RenderMarkdown renders v as a markdown table followed by failure details.
func RenderMarkdown(v View) string {
	var b strings.Builder
	s := v.Summary
	b.WriteString(fmt.Sprintf("**%d/%d passed** · %d failed · %d errors\n\n", s.Pass, s.Total, s.Fail, s.Error))
	b.WriteString("| Test | Result | Detail |\n|---|---|---|\n")
	for _, c := range v.Cases {
		result := string(c.State)
		if c.Verdict != nil {
			result = kindLabel(c.Verdict.Kind)
		}
		d := strings.ReplaceAll(firstLine(c.Detail), "|", "\\|")
		b.WriteString(fmt.Sprintf("| %d | %s | %s |\n", c.Index+1, result, d))
	}

	for _, c := range v.Cases {
		if c.Verdict == nil || c.Verdict.Kind == verdict.Pass {
			continue
		}
		vd := c.Verdict
		b.WriteString(fmt.Sprintf("\n### Test %d\n\n", c.Index+1))
		if vd.Kind == verdict.Fail {
			b.WriteString(fmt.Sprintf("Expected:\n```\n%s\n```\nActual:\n```\n%s\n```\n", vd.ExpectedOutput, vd.Stdout))
			continue
		}
		b.WriteString(vd.Message + "\n")
		if vd.Stderr != "" {
			b.WriteString(fmt.Sprintf("```\n%s\n```\n", vd.Stderr))
		}
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

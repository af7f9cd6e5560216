package output

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// sectionWidth is the rule length under a section header.
const sectionWidth = 61

// Status is the outcome a row or phase reports.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StatusOf is StatusFailed when failures is positive.
func StatusOf(failures int) Status {
	if failures > 0 {
		return StatusFailed
	}
	return StatusSuccess
}

type icon struct {
	glyph string
	code  string
}

var statusIcons = map[Status]icon{
	StatusSuccess: {"✓", colorGreen},
	StatusFailed:  {"✗", colorRed},
	StatusSkipped: {"⊘", colorYellow},
}

// StatusIcon returns the glyph for st. Unknown statuses render as skipped.
func StatusIcon(st Status, color bool) string {
	ic, ok := statusIcons[st]
	if !ok {
		ic = statusIcons[StatusSkipped]
	}
	return paint(color, ic.code, ic.glyph)
}

// Section is a framed block of rows:
//
//	── Synth ─────────────────── 1.2s ──
//	│ S3Ops   4 resources
//	├───────────────────────────────────
//	└───────────────────────────────────
type Section struct {
	w     io.Writer
	color bool
}

// NewSection writes the header and returns the section. A zero elapsed
// leaves the timing off the header.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	fmt.Fprintf(w, "\n    %s\n", paint(color, colorHeader, sectionHeader(name, elapsed)))
	return &Section{w: w, color: color}
}

func sectionHeader(name string, elapsed time.Duration) string {
	left := "── " + name + " "
	right := "──"
	if elapsed > 0 {
		right = " " + formatElapsed(elapsed) + " ──"
	}
	fill := sectionWidth + 1 - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if fill < 1 {
		fill = 1
	}
	return left + strings.Repeat("─", fill) + right
}

// Row writes one framed line.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "    │ %s\n", fmt.Sprintf(format, args...))
}

// Separator writes a divider inside the frame.
func (s *Section) Separator() {
	s.rule("├")
}

// Close writes the footer.
func (s *Section) Close() {
	s.rule("└")
}

func (s *Section) rule(corner string) {
	fmt.Fprintf(s.w, "    %s%s\n", corner, strings.Repeat("─", sectionWidth))
}

// RowStatus writes "label: detail icon".
func RowStatus(sec *Section, label, detail string, st Status, color bool) {
	if detail == "" {
		sec.Row("%s %s", label, StatusIcon(st, color))
		return
	}
	sec.Row("%s: %s %s", label, detail, StatusIcon(st, color))
}

// KV is one entry of a ContextBlock.
type KV struct {
	Key   string
	Value string
}

// ContextBlock prints the run context as aligned key/value pairs, two
// per line.
func ContextBlock(w io.Writer, kv []KV) {
	if len(kv) == 0 {
		return
	}
	keyWidth := 0
	for _, e := range kv {
		keyWidth = max(keyWidth, len(e.Key))
	}
	fmt.Fprintln(w)
	for i := 0; i < len(kv); i += 2 {
		line := fmt.Sprintf("    %-*s  %-20s", keyWidth, kv[i].Key, kv[i].Value)
		if i+1 < len(kv) {
			line += fmt.Sprintf("%-*s  %s", keyWidth, kv[i+1].Key, kv[i+1].Value)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// SummaryRow writes one phase line of the closing summary.
func SummaryRow(w io.Writer, phase string, st Status, detail string, color bool) {
	fmt.Fprintf(w, "    │ %-12s%s  %s\n", phase, StatusIcon(st, color), detail)
}

// SummaryTotal closes the summary with the overall time and status.
func SummaryTotal(w io.Writer, elapsed time.Duration, st Status, color bool) {
	fmt.Fprintf(w, "    └ %-12s%s  %s\n", "total", StatusIcon(st, color), formatElapsed(elapsed))
}

// formatElapsed renders d as "<1ms", "340ms", "2.4s" or "1m12.0s".
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%dm%.1fs", mins, (d - time.Duration(mins)*time.Minute).Seconds())
}

// Package output renders command results as framed terminal sections and
// writes the JUnit reports CI picks up.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sofmeright/imagefreight/src/lint"
)

// count is one "<n> <label>" part of a summary line.
type count struct {
	n     int
	label string
	code  string
}

// joinCounts renders the non-zero counts, or empty when all are zero.
func joinCounts(color bool, counts ...count) string {
	var parts []string
	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, paint(color, c.code, fmt.Sprintf("%d %s", c.n, c.label)))
		}
	}
	return strings.Join(parts, ", ")
}

// FindingsSummaryLine returns "<total> findings in <n> files: ...".
func FindingsSummaryLine(total, critical, warning, info, filesScanned int, color bool) string {
	summary := joinCounts(color,
		count{critical, "critical", colorRed},
		count{warning, "warning", colorYellow},
		count{info, "info", ""},
	)
	if summary == "" {
		summary = "no findings"
	}
	return fmt.Sprintf("%s findings in %d files: %s", bold(color, fmt.Sprint(total)), filesScanned, summary)
}

var severityLabels = map[lint.Severity]icon{
	lint.SeverityCritical: {"CRIT", colorRed},
	lint.SeverityWarning:  {"WARN", colorYellow},
	lint.SeverityInfo:     {"INFO", colorGray},
}

func severityTag(s lint.Severity, color bool) string {
	l, ok := severityLabels[s]
	if !ok {
		return s.String()
	}
	return paint(color, l.code, l.glyph)
}

// LintTable writes the per-module counters of a lint run.
func LintTable(w io.Writer, stats []lint.ModuleStats) {
	fmt.Fprintf(w, "    │ %-16s%6s  %6s  %8s  %s\n", "module", "files", "cached", "findings", "critical")
	for _, s := range stats {
		fmt.Fprintf(w, "    │ %-16s%5d   %5d   %8d  %8d\n", s.Name, s.Files, s.Cached, s.Findings, s.Critical)
	}
}

// CountFindings tallies findings by severity.
func CountFindings(findings []lint.Finding) (critical, warning, info int) {
	for _, f := range findings {
		switch f.Severity {
		case lint.SeverityCritical:
			critical++
		case lint.SeverityWarning:
			warning++
		default:
			info++
		}
	}
	return critical, warning, info
}

// SectionFindings lists findings under their component file. The input
// order is kept within a file; files are listed in path order.
func SectionFindings(sec *Section, findings []lint.Finding, color bool) {
	if len(findings) == 0 {
		return
	}
	byFile := map[string][]lint.Finding{}
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		sec.Row("")
		sec.Row("%s", bold(color, file))
		for _, f := range byFile[file] {
			sec.Row("  %-8s %-4s  %-12s %s", location(f), severityTag(f.Severity, color), f.Module, f.Message)
		}
	}
	sec.Row("")
}

func location(f lint.Finding) string {
	switch {
	case f.Line == 0:
		return "-"
	case f.Column > 0:
		return fmt.Sprintf("%d:%d", f.Line, f.Column)
	default:
		return fmt.Sprint(f.Line)
	}
}

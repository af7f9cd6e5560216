package output

import (
	"fmt"

	"github.com/sofmeright/imagefreight/src/nag"
)

// nagTag returns a short level label, optionally colored. Suppressed
// findings are dimmed regardless of level.
func nagTag(f nag.Finding, color bool) string {
	switch {
	case f.Suppressed:
		return Dimmed("SUPP", color)
	case f.Level == nag.LevelError:
		return paint(color, colorRed, "ERR ")
	default:
		return paint(color, colorYellow, "WARN")
	}
}

// SectionNagFindings renders rule findings grouped by stack. Suppressed
// findings are listed only when showSuppressed is set, with their reason.
func SectionNagFindings(sec *Section, findings []nag.Finding, showSuppressed, color bool) {
	var current string
	for _, f := range findings {
		if f.Suppressed && !showSuppressed {
			continue
		}
		if f.Stack != current {
			current = f.Stack
			sec.Row("")
			sec.Row("%s", bold(color, f.Stack))
		}
		sec.Row("  %s  %-28s %s", nagTag(f, color), f.RuleID, f.LogicalID)
		sec.Row("        %s", f.Message)
		if f.Suppressed {
			sec.Row("        %s", Dimmed("reason: "+f.Reason, color))
		}
	}
	if current != "" {
		sec.Row("")
	}
}

// NagSummaryLine returns a one-line rule summary, optionally colored.
func NagSummaryLine(s nag.Summary, rules, stacks int, color bool) string {
	summary := joinCounts(color,
		count{s.Errors, "error", colorRed},
		count{s.Warnings, "warning", colorYellow},
		count{s.Suppressed, "suppressed", ""},
	)
	if summary == "" {
		summary = "compliant"
	}
	return fmt.Sprintf("%d rules over %d stacks: %s", rules, stacks, summary)
}

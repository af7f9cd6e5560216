package lint

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sofmeright/imagefreight/src/artifact"
)

// Severity ranks a finding. Critical findings fail check and block deploy.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

var severityNames = [...]string{"info", "warning", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Finding is one problem in one artifact file. Line 0 means the whole
// file.
type Finding struct {
	File     string
	Line     int
	Column   int
	Module   string
	Severity Severity
	Message  string
}

// FileInfo is what a module inspects. Path is slash-separated and
// relative to the artifact tree root, the same form the lock file and
// object keys use.
type FileInfo = artifact.File

// SortFindings orders findings by file, line, column, module, message.
func SortFindings(findings []Finding) {
	slices.SortFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Module, b.Module),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

// HasCritical reports whether any finding is critical.
func HasCritical(findings []Finding) bool {
	return slices.ContainsFunc(findings, func(f Finding) bool {
		return f.Severity == SeverityCritical
	})
}

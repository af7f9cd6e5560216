package modules

import (
	"bytes"
	"context"
	"os"

	"github.com/sofmeright/imagefreight/src/lint"
)

func init() {
	lint.Register("lineendings", func() lint.Module { return lineEndingsModule{} })
}

// lineEndingsModule flags carriage returns, which break the shell steps
// a Linux build instance runs, plus trailing whitespace and a missing
// final newline.
type lineEndingsModule struct{}

func (lineEndingsModule) Name() string         { return "lineendings" }
func (lineEndingsModule) DefaultEnabled() bool { return true }
func (lineEndingsModule) AutoDetect() []string { return nil }

func (m lineEndingsModule) Check(ctx context.Context, file lint.FileInfo) ([]lint.Finding, error) {
	data, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || bytes.IndexByte(data, 0) >= 0 {
		return nil, nil
	}

	var (
		findings []lint.Finding
		crlf, lf int
		trailing []int
		lineNo   int
		rest     = data
	)
	for len(rest) > 0 {
		lineNo++
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
			if bytes.HasSuffix(line, []byte("\r")) {
				crlf++
				line = line[:len(line)-1]
			} else {
				lf++
			}
		} else {
			rest = nil
		}
		if n := len(line); n > 0 && (line[n-1] == ' ' || line[n-1] == '\t') {
			trailing = append(trailing, lineNo)
		}
	}

	switch {
	case crlf > 0 && lf > 0:
		findings = append(findings, at(file, 1, m.Name(), lint.SeverityWarning, "mixed line endings (CRLF and LF)"))
	case crlf > 0:
		findings = append(findings, at(file, 1, m.Name(), lint.SeverityWarning, "file uses CRLF line endings"))
	}
	for _, n := range trailing {
		findings = append(findings, at(file, n, m.Name(), lint.SeverityInfo, "trailing whitespace"))
	}
	if data[len(data)-1] != '\n' {
		findings = append(findings, at(file, lineNo, m.Name(), lint.SeverityInfo, "missing final newline"))
	}
	return findings, nil
}

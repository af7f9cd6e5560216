package modules

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"

	"github.com/sofmeright/imagefreight/src/lint"
)

func init() {
	lint.Register("secrets", func() lint.Module { return &secretsModule{} })
}

// secretsModule scans component documents and payloads for credentials
// before they land in the bucket every build instance reads from.
type secretsModule struct {
	once     sync.Once
	detector *detect.Detector
	err      error
}

func (m *secretsModule) Name() string         { return "secrets" }
func (m *secretsModule) DefaultEnabled() bool { return true }
func (m *secretsModule) AutoDetect() []string { return nil }

// Check runs concurrently across files; the detector is shared.
func (m *secretsModule) Check(ctx context.Context, file lint.FileInfo) ([]lint.Finding, error) {
	m.once.Do(func() {
		m.detector, m.err = detect.NewDetectorDefaultConfig()
	})
	if m.err != nil {
		return nil, fmt.Errorf("gitleaks: %w", m.err)
	}

	data, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return nil, err
	}

	var findings []lint.Finding
	for _, leak := range m.detector.DetectBytes(data) {
		// gitleaks lines are 0-indexed.
		findings = append(findings, at(file, leak.StartLine+1, m.Name(), lint.SeverityCritical, describeLeak(leak)))
	}
	return findings, nil
}

// describeLeak names the rule without echoing the secret itself.
func describeLeak(leak report.Finding) string {
	return fmt.Sprintf("%s (%s) in %q", leak.Description, leak.RuleID, redact(leak.Match, leak.Secret))
}

func redact(match, secret string) string {
	if secret == "" {
		return match
	}
	keep := min(4, len(secret)/4)
	return strings.ReplaceAll(match, secret, secret[:keep]+"****")
}

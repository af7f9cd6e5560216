package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sofmeright/imagefreight/src/lint"
	"github.com/sofmeright/imagefreight/src/nag"
	"github.com/sofmeright/imagefreight/src/stack"
)

// IsCI reports whether the run is inside a CI job.
func IsCI() bool {
	return os.Getenv("CI") == "true" || IsGitHubActions()
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// SectionStart opens a collapsible log section on GitLab and a log group
// on GitHub Actions. Elsewhere it writes nothing.
func SectionStart(w io.Writer, id, name string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=false]\r\033[0K%s\n", time.Now().Unix(), id, name)
	case IsGitHubActions():
		fmt.Fprintf(w, "::group::%s\n", name)
	}
}

// SectionEnd closes the section SectionStart opened for id.
func SectionEnd(w io.Writer, id string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
	case IsGitHubActions():
		fmt.Fprintln(w, "::endgroup::")
	}
}

// JUnit XML types for GitLab test reporting.

type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// WriteLintJUnit writes lint findings as JUnit XML to dir/lint.xml.
// Each lint module becomes a test suite, each scanned file becomes a test case.
func WriteLintJUnit(dir string, findings []lint.Finding, files []lint.FileInfo, modules []string, elapsed time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	// Group findings by module → file
	byModule := make(map[string]map[string][]lint.Finding)
	for _, m := range modules {
		byModule[m] = make(map[string][]lint.Finding)
	}
	for _, f := range findings {
		if _, ok := byModule[f.Module]; !ok {
			byModule[f.Module] = make(map[string][]lint.Finding)
		}
		byModule[f.Module][f.File] = append(byModule[f.Module][f.File], f)
	}

	totalTests := 0
	totalFailures := 0
	var suites []JUnitTestSuite

	for _, mod := range modules {
		modFindings := byModule[mod]
		suite := JUnitTestSuite{
			Name: "imagefreight/lint/" + mod,
			Time: fmt.Sprintf("%.3f", elapsed.Seconds()/float64(len(modules))),
		}

		// Create a test case for each file scanned
		for _, f := range files {
			tc := JUnitTestCase{
				Name:      f.Path,
				Classname: "imagefreight.lint." + mod,
				Time:      "0.000",
			}

			if ff, ok := modFindings[f.Path]; ok && len(ff) > 0 {
				// Find worst severity
				worst := lint.SeverityInfo
				var lines []string
				for _, finding := range ff {
					if finding.Severity > worst {
						worst = finding.Severity
					}
					loc := fmt.Sprintf("%d", finding.Line)
					if finding.Column > 0 {
						loc = fmt.Sprintf("%d:%d", finding.Line, finding.Column)
					}
					lines = append(lines, fmt.Sprintf("  %s [%s] %s", loc, finding.Severity, finding.Message))
				}

				// Only critical findings are failures; warnings are not
				if worst >= lint.SeverityCritical {
					tc.Failure = &JUnitFailure{
						Message: fmt.Sprintf("%d finding(s) in %s", len(ff), f.Path),
						Type:    worst.String(),
						Body:    strings.Join(lines, "\n"),
					}
					suite.Failures++
					totalFailures++
				}
			}

			suite.Cases = append(suite.Cases, tc)
			suite.Tests++
			totalTests++
		}

		suites = append(suites, suite)
	}

	root := JUnitTestSuites{
		Name:     "imagefreight-lint",
		Tests:    totalTests,
		Failures: totalFailures,
		Time:     fmt.Sprintf("%.3f", elapsed.Seconds()),
		Suites:   suites,
	}

	return writeJUnit(filepath.Join(dir, "lint.xml"), root)
}

// WriteNagJUnit writes rule results as JUnit XML to dir/nag.xml. Each
// stack becomes a suite and each resource a case, failing when it has an
// unsuppressed error.
func WriteNagJUnit(dir string, stacks []*stack.Stack, findings []nag.Finding, elapsed time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	byResource := make(map[string][]nag.Finding)
	for _, f := range findings {
		if f.Suppressed {
			continue
		}
		key := f.Stack + "/" + f.LogicalID
		byResource[key] = append(byResource[key], f)
	}

	root := JUnitTestSuites{
		Name: "imagefreight-nag",
		Time: fmt.Sprintf("%.3f", elapsed.Seconds()),
	}
	for _, st := range stacks {
		suite := JUnitTestSuite{Name: "imagefreight/nag/" + st.Name, Time: "0.000"}
		for _, id := range st.Template.ResourceIDs() {
			tc := JUnitTestCase{
				Name:      id,
				Classname: "imagefreight.nag." + st.Name,
				Time:      "0.000",
			}
			var lines []string
			failed := false
			for _, f := range byResource[st.Name+"/"+id] {
				lines = append(lines, fmt.Sprintf("  %s [%s] %s", f.RuleID, f.Level, f.Message))
				if f.Level == nag.LevelError {
					failed = true
				}
			}
			if failed {
				tc.Failure = &JUnitFailure{
					Message: fmt.Sprintf("%d finding(s) on %s", len(lines), st.Path(id)),
					Type:    nag.LevelError.String(),
					Body:    strings.Join(lines, "\n"),
				}
				suite.Failures++
			}
			suite.Cases = append(suite.Cases, tc)
			suite.Tests++
		}
		root.Tests += suite.Tests
		root.Failures += suite.Failures
		root.Suites = append(root.Suites, suite)
	}

	return writeJUnit(filepath.Join(dir, "nag.xml"), root)
}

func writeJUnit(path string, root JUnitTestSuites) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	f.WriteString(xml.Header)
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding junit xml: %w", err)
	}
	_, err = f.WriteString("\n")
	return err
}

// CommitSHA returns the short commit SHA from CI variables, if any.
func CommitSHA() string {
	if sha := os.Getenv("CI_COMMIT_SHORT_SHA"); sha != "" {
		return sha
	}
	for _, v := range []string{"CI_COMMIT_SHA", "GITHUB_SHA"} {
		if sha := os.Getenv(v); len(sha) >= 8 {
			return sha[:8]
		}
	}
	return ""
}

// CIHeader prints a compact pipeline context block at the start of a CI run.
func CIHeader(w io.Writer) {
	if !IsCI() {
		return
	}
	parts := []string{}
	if tag := os.Getenv("CI_COMMIT_TAG"); tag != "" {
		parts = append(parts, fmt.Sprintf("tag=%s", tag))
	}
	if sha := CommitSHA(); sha != "" {
		parts = append(parts, fmt.Sprintf("sha=%s", sha))
	}
	if pipe := os.Getenv("CI_PIPELINE_ID"); pipe != "" {
		parts = append(parts, fmt.Sprintf("pipeline=%s", pipe))
	} else if run := os.Getenv("GITHUB_RUN_ID"); run != "" {
		parts = append(parts, fmt.Sprintf("run=%s", run))
	}
	if runner := os.Getenv("CI_RUNNER_DESCRIPTION"); runner != "" {
		parts = append(parts, fmt.Sprintf("runner=%s", runner))
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "  ci: %s\n", strings.Join(parts, "  "))
	}
}

// PhaseResult prints a one-line phase outcome. A zero elapsed omits the
// timing.
func PhaseResult(w io.Writer, phase string, st Status, detail string, elapsed time.Duration, color bool) {
	if elapsed == 0 {
		fmt.Fprintf(w, "    %-10s %s  %s\n", phase, StatusIcon(st, color), detail)
		return
	}
	fmt.Fprintf(w, "    %-10s %s  %-44s %s\n", phase, StatusIcon(st, color), detail, Dimmed(formatElapsed(elapsed), color))
}

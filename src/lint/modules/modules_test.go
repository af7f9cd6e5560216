package modules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/lint"
)

const validDoc = `name: InstallXrdp
description: Installs xrdp
schemaVersion: 1.0
phases:
  - name: build
    steps:
      - name: Install
        action: ExecuteBash
        inputs:
          commands:
            - sudo apt-get install -y xrdp
`

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func check(t *testing.T, m lint.Module, logicalPath string, content string) []lint.Finding {
	t.Helper()
	abs := writeTempFile(t, logicalPath, []byte(content))
	findings, err := m.Check(context.Background(), lint.FileInfo{
		Path:    logicalPath,
		AbsPath: abs,
		Size:    int64(len(content)),
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return findings
}

func messages(findings []lint.Finding) string {
	var parts []string
	for _, f := range findings {
		parts = append(parts, f.Severity.String()+": "+f.Message)
	}
	return strings.Join(parts, "\n")
}

func TestYAML(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    []string
	}{
		{name: "clean", path: "a.yml", content: validDoc},
		{name: "not yaml", path: "run.sh", content: "a: [\n"},
		{name: "duplicate key", path: "a.yml", content: "name: a\nname: b\n", want: []string{`warning: duplicate key "name" (first defined at line 1)`}},
		{name: "parse error", path: "a.yaml", content: "a: [\n", want: []string{"critical: YAML parse error"}},
		{name: "tabs", path: "a.yml", content: "a:\n\tb: 1\n", want: []string{"warning: tab indentation", "critical: YAML parse error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := check(t, &yamlModule{}, tt.path, tt.content)
			if len(findings) != len(tt.want) {
				t.Fatalf("findings:\n%s", messages(findings))
			}
			for i, want := range tt.want {
				got := findings[i].Severity.String() + ": " + findings[i].Message
				if !strings.HasPrefix(got, want) {
					t.Errorf("finding %d = %q, want prefix %q", i, got, want)
				}
			}
		})
	}
}

func TestLargeFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Lint.LargeFilesMax = 10

	m := &largeFilesModule{maxBytes: defaultLargeFileMax}
	if err := m.Bind(&lint.Project{Config: cfg}); err != nil {
		t.Fatal(err)
	}
	if got := check(t, m, "big.bin", strings.Repeat("x", 11)); len(got) != 1 {
		t.Errorf("findings = %s", messages(got))
	}
	if got := check(t, m, "small.bin", "x"); len(got) != 0 {
		t.Errorf("findings = %s", messages(got))
	}

	if err := m.Configure(map[string]any{"max_bytes": 100}); err != nil {
		t.Fatal(err)
	}
	if got := check(t, m, "big.bin", strings.Repeat("x", 11)); len(got) != 0 {
		t.Errorf("option did not win: %s", messages(got))
	}
	if err := m.Configure(map[string]any{"max_bytes": "lots"}); err == nil {
		t.Error("expected error for non-numeric max_bytes")
	}
}

func TestLineEndings(t *testing.T) {
	m := &lineEndingsModule{}

	if got := check(t, m, "a.yml", "a: 1\n"); len(got) != 0 {
		t.Errorf("clean file: %s", messages(got))
	}

	got := check(t, m, "a.yml", "a: 1\r\nb: 2 \r\n")
	want := "warning: file uses CRLF line endings\ninfo: trailing whitespace"
	if messages(got) != want {
		t.Errorf("got:\n%s\nwant:\n%s", messages(got), want)
	}

	got = check(t, m, "a.sh", "echo a\r\necho b")
	want = "warning: file uses CRLF line endings\ninfo: missing final newline"
	if messages(got) != want {
		t.Errorf("got:\n%s\nwant:\n%s", messages(got), want)
	}

	got = check(t, m, "a.sh", "echo a\r\necho b\n")
	if len(got) != 1 || got[0].Message != "mixed line endings (CRLF and LF)" {
		t.Errorf("got:\n%s", messages(got))
	}

	if got := check(t, m, "blob.bin", "a\x00b\r\n"); len(got) != 0 {
		t.Errorf("binary file: %s", messages(got))
	}
}

func TestSecretsClean(t *testing.T) {
	if got := check(t, &secretsModule{}, "ubuntu/a.yml", validDoc); len(got) != 0 {
		t.Errorf("findings = %s", messages(got))
	}
}

func boundProject(t *testing.T, lock *artifact.Lock) *lint.Project {
	t.Helper()
	cfg := config.Default()
	cfg.Variants = []config.VariantConfig{{
		ID:             "ubuntu",
		PlatformFolder: "ubuntu",
		Components: []config.ComponentConfig{
			{ID: "rXrdp", Name: "InstallXrdp", File: "install_xrdp.yml", Version: "1.1.0"},
		},
	}}
	return &lint.Project{Config: cfg, Lock: lock}
}

func TestComponentDoc(t *testing.T) {
	m := &componentDocModule{}
	if err := m.Bind(boundProject(t, nil)); err != nil {
		t.Fatal(err)
	}

	if got := check(t, m, "ubuntu/install_xrdp.yml", validDoc); len(got) != 0 {
		t.Errorf("valid doc: %s", messages(got))
	}
	if got := check(t, m, "ubuntu/other.yml", "not: a component\n"); len(got) != 0 {
		t.Errorf("unreferenced file checked: %s", messages(got))
	}

	bad := strings.Replace(validDoc, "schemaVersion: 1.0", "schemaVersion: 2.0", 1)
	got := check(t, m, "ubuntu/install_xrdp.yml", bad)
	if len(got) != 1 || got[0].Severity != lint.SeverityCritical || !strings.Contains(got[0].Message, "schemaVersion") {
		t.Errorf("findings = %s", messages(got))
	}

	noDesc := strings.Replace(validDoc, "description: Installs xrdp\n", "", 1)
	got = check(t, m, "ubuntu/install_xrdp.yml", noDesc)
	if len(got) != 1 || got[0].Severity != lint.SeverityInfo || !strings.Contains(got[0].Message, "ubuntu/InstallXrdp") {
		t.Errorf("findings = %s", messages(got))
	}
}

func TestDrift(t *testing.T) {
	const file = "ubuntu/install_xrdp.yml"
	hash := artifact.HashBytes([]byte(validDoc))
	lockAt := func(version, hash string) *artifact.Lock {
		return &artifact.Lock{Version: 1, Components: []artifact.LockEntry{
			{Variant: "ubuntu", Name: "InstallXrdp", File: file, Version: version, Hash: hash},
		}}
	}

	tests := []struct {
		name        string
		lock        *artifact.Lock
		changed     map[string]bool
		lockChanged bool
		want        string
	}{
		{name: "in sync", lock: lockAt("1.1.0", hash)},
		{name: "not locked", lock: &artifact.Lock{}, want: "warning: not in the lock file"},
		{name: "nil lock", want: "warning: not in the lock file"},
		{name: "edited without bump", lock: lockAt("1.1.0", "stale"), want: "critical: ubuntu/InstallXrdp: content changed but version is still 1.1.0"},
		{name: "edited and downgraded", lock: lockAt("2.0.0", "stale"), want: "critical: ubuntu/InstallXrdp: content changed but version is still 1.1.0 (locked at 2.0.0)"},
		{name: "edited and bumped", lock: lockAt("1.0.0", "stale"), want: "info: ubuntu/InstallXrdp: content changed with version 1.0.0 -> 1.1.0"},
		{name: "version only", lock: lockAt("1.0.0", hash), want: "info: ubuntu/InstallXrdp: version 1.1.0 differs from locked 1.0.0"},
		{name: "bad locked version", lock: lockAt("latest", hash), want: `critical: ubuntu/InstallXrdp: locked version "latest"`},
		{name: "changed in git without lock", lock: lockAt("1.1.0", hash), changed: map[string]bool{file: true}, want: "warning: changed against main but the lock file was not updated"},
		{name: "changed in git with lock", lock: lockAt("1.1.0", hash), changed: map[string]bool{file: true}, lockChanged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := boundProject(t, tt.lock)
			p.Changed = tt.changed
			p.LockChanged = tt.lockChanged
			p.Branch = "main"

			m := &driftModule{}
			if err := m.Bind(p); err != nil {
				t.Fatal(err)
			}
			got := messages(check(t, m, file, validDoc))
			if tt.want == "" {
				if got != "" {
					t.Errorf("unexpected findings:\n%s", got)
				}
				return
			}
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("got:\n%s\nwant prefix:\n%s", got, tt.want)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	for _, name := range []string{"componentdoc", "drift", "largefiles", "lineendings", "secrets", "yaml"} {
		if _, err := lint.Get(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

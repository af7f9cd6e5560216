package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/config"
)

var (
	echoCalls    atomic.Int64
	volatileCall atomic.Int64
)

// echoModule reports one finding per file containing "bad".
type echoModule struct {
	prefix string
	bound  bool
}

func (m *echoModule) Name() string         { return "echo" }
func (m *echoModule) DefaultEnabled() bool { return true }
func (m *echoModule) AutoDetect() []string { return nil }

func (m *echoModule) Configure(opts map[string]any) error {
	m.prefix, _ = opts["prefix"].(string)
	return nil
}

func (m *echoModule) Bind(p *Project) error {
	m.bound = p != nil
	return nil
}

func (m *echoModule) Check(_ context.Context, f FileInfo) ([]Finding, error) {
	echoCalls.Add(1)
	data, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(string(data), "bad") {
		return nil, nil
	}
	sev := SeverityWarning
	if !m.bound {
		sev = SeverityInfo
	}
	return []Finding{{File: f.Path, Line: 1, Module: m.Name(), Severity: sev, Message: m.prefix + "bad content"}}, nil
}

type volatileModule struct{}

func (volatileModule) Name() string            { return "volatile" }
func (volatileModule) DefaultEnabled() bool    { return true }
func (volatileModule) AutoDetect() []string    { return nil }
func (volatileModule) CacheTTL() time.Duration { return -1 }
func (volatileModule) Check(_ context.Context, f FileInfo) ([]Finding, error) {
	volatileCall.Add(1)
	return nil, nil
}

type optInModule struct{}

func (optInModule) Name() string         { return "optin" }
func (optInModule) DefaultEnabled() bool { return false }
func (optInModule) AutoDetect() []string { return nil }
func (optInModule) Check(_ context.Context, f FileInfo) ([]Finding, error) {
	return []Finding{{File: f.Path, Module: "optin", Severity: SeverityCritical, Message: "opt-in"}}, nil
}

func init() {
	Register("echo", func() Module { return &echoModule{} })
	Register("volatile", func() Module { return volatileModule{} })
	Register("optin", func() Module { return optInModule{} })
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	return root
}

func testProject(root string) *Project {
	return &Project{Config: config.Default(), Root: root, Lock: &artifact.Lock{}}
}

func TestNewEngineSelection(t *testing.T) {
	off := false
	on := true

	tests := []struct {
		name    string
		modules []string
		skip    []string
		cfg     map[string]config.ModuleConfig
		want    []string
		wantErr bool
	}{
		{name: "defaults", want: []string{"echo", "volatile"}},
		{name: "skip", skip: []string{"volatile"}, want: []string{"echo"}},
		{name: "config disables", cfg: map[string]config.ModuleConfig{"echo": {Enabled: &off}}, want: []string{"volatile"}},
		{name: "config enables opt-in", cfg: map[string]config.ModuleConfig{"optin": {Enabled: &on}}, want: []string{"echo", "optin", "volatile"}},
		{name: "explicit", modules: []string{"optin"}, want: []string{"optin"}},
		{name: "unknown", modules: []string{"nope"}, wantErr: true},
		{name: "nothing left", modules: []string{"echo"}, skip: []string{"echo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProject(t.TempDir())
			if tt.cfg != nil {
				p.Config.Lint.Modules = tt.cfg
			}
			e, err := NewEngine(p, tt.modules, tt.skip, false, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(e.ModuleNames(), ","); got != strings.Join(tt.want, ",") {
				t.Errorf("modules = %s, want %s", got, strings.Join(tt.want, ","))
			}
		})
	}
}

func TestRunWithStats(t *testing.T) {
	root := writeTree(t, map[string]string{
		"ubuntu/b.yml":     "bad\n",
		"ubuntu/a.yml":     "bad\n",
		"ubuntu/ok.yml":    "fine\n",
		"scratch/skip.yml": "bad\n",
		"vendor/v.yml":     "bad\n",
	})
	p := testProject(root)
	p.Config.Lint.Exclude = []string{"scratch/**"}
	p.Config.Lint.Modules = map[string]config.ModuleConfig{
		"echo": {Options: map[string]any{"prefix": "x: "}, Exclude: []string{"vendor/**"}},
	}

	e, err := NewEngine(p, []string{"echo"}, nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	files, err := artifact.Collect(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	findings, stats, err := e.RunWithStats(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 2 {
		t.Fatalf("findings = %+v", findings)
	}
	if findings[0].File != "ubuntu/a.yml" || findings[1].File != "ubuntu/b.yml" {
		t.Errorf("findings not sorted: %+v", findings)
	}
	if findings[0].Message != "x: bad content" || findings[0].Severity != SeverityWarning {
		t.Errorf("module not configured and bound: %+v", findings[0])
	}
	if stats[0].Files != 3 || stats[0].Warnings != 2 {
		t.Errorf("stats = %+v", stats[0])
	}
}

func TestRunUsesCache(t *testing.T) {
	root := writeTree(t, map[string]string{"a.yml": "bad\n", "b.yml": "ok\n"})
	cache := NewCache(filepath.Join(t.TempDir(), "cache"))

	run := func() []Finding {
		t.Helper()
		e, err := NewEngine(testProject(root), []string{"echo", "volatile"}, nil, false, cache)
		if err != nil {
			t.Fatal(err)
		}
		files, err := e.CollectFiles()
		if err != nil {
			t.Fatal(err)
		}
		findings, err := e.Run(context.Background(), files)
		if err != nil {
			t.Fatal(err)
		}
		return findings
	}

	echoBefore, volatileBefore := echoCalls.Load(), volatileCall.Load()
	first := run()
	second := run()

	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
	if got := echoCalls.Load() - echoBefore; got != 2 {
		t.Errorf("echo ran %d times, want 2 (second run cached)", got)
	}
	if got := volatileCall.Load() - volatileBefore; got != 4 {
		t.Errorf("volatile ran %d times, want 4 (never cached)", got)
	}
}

func TestCacheMaxAge(t *testing.T) {
	c := NewCache(t.TempDir())
	key := c.Key([]byte("content"), "a.yml", "echo", "{}")
	want := []Finding{{File: "a.yml", Module: "echo", Message: "m"}}
	if err := c.Put(key, want); err != nil {
		t.Fatal(err)
	}

	if got, ok := c.Get(key, 0); !ok || len(got) != 1 || got[0] != want[0] {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	if _, ok := c.Get(key, time.Hour); !ok {
		t.Error("fresh entry missed")
	}

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(c.path(key), old, old); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key, time.Hour); ok {
		t.Error("stale entry hit")
	}
	if _, ok := c.Get(key, 0); !ok {
		t.Error("maxAge 0 should accept any age")
	}

	if c.Key([]byte("content"), "a.yml", "echo", "{}") == c.Key([]byte("content"), "a.yml", "echo", `{"a":1}`) {
		t.Error("config does not change the key")
	}
	if key == c.Key([]byte("content"), "b.yml", "echo", "{}") {
		t.Error("path does not change the key")
	}
}

func TestUnderAndFilter(t *testing.T) {
	changed := map[string]bool{
		"components/ubuntu/a.yml": true,
		"components.lock.yaml":    true,
		"README.md":               true,
	}
	under := Under(changed, "components")
	if len(under) != 1 || !under["ubuntu/a.yml"] {
		t.Errorf("Under = %v", under)
	}
	if Under(nil, "components") != nil {
		t.Error("nil set must stay nil")
	}
	if got := Under(changed, "."); len(got) != 3 {
		t.Errorf("Under(.) = %v", got)
	}

	files := []FileInfo{{Path: "ubuntu/a.yml"}, {Path: "ubuntu/b.yml"}}
	if got := FilterByDelta(files, under); len(got) != 1 || got[0].Path != "ubuntu/a.yml" {
		t.Errorf("FilterByDelta = %+v", got)
	}
	if got := FilterByDelta(files, nil); len(got) != 2 {
		t.Errorf("nil set filtered: %+v", got)
	}
}

func TestDeltaOutsideRepo(t *testing.T) {
	d := &Delta{Dir: t.TempDir()}
	changed, err := d.ChangedFiles(context.Background())
	if err != nil || changed != nil {
		t.Errorf("ChangedFiles = %v, %v; want full scan", changed, err)
	}
	if _, ok := d.Rel(d.Dir); ok {
		t.Error("Rel without a repository should fail")
	}
}

func TestProjectReferences(t *testing.T) {
	p := testProject("")
	refs := p.References()
	xrdp := refs["ubuntu/install_xrdp.yml"]
	if len(xrdp) != 1 || xrdp[0].Component.Name != "InstallXrdp" || xrdp[0].Variant.ID != config.VariantUbuntu {
		t.Errorf("refs = %+v", xrdp)
	}
	if len(refs) != 6 {
		t.Errorf("got %d referenced files, want 6", len(refs))
	}
}

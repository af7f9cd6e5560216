package modules

import (
	"context"
	"fmt"

	"github.com/sofmeright/imagefreight/src/lint"
)

const defaultLargeFileMax int64 = 256 * 1024

func init() {
	lint.Register("largefiles", func() lint.Module { return &largeFilesModule{maxBytes: defaultLargeFileMax} })
}

// largeFilesModule flags payloads that belong in a package repository
// rather than the components bucket.
type largeFilesModule struct {
	maxBytes int64
}

func (m *largeFilesModule) Name() string         { return "largefiles" }
func (m *largeFilesModule) DefaultEnabled() bool { return true }
func (m *largeFilesModule) AutoDetect() []string { return nil }

// Bind takes the threshold from lint.large_files_max.
func (m *largeFilesModule) Bind(p *lint.Project) error {
	if p.Config != nil && p.Config.Lint.LargeFilesMax > 0 {
		m.maxBytes = p.Config.Lint.LargeFilesMax
	}
	return nil
}

// Configure accepts {"max_bytes": n}, which wins over the project value.
func (m *largeFilesModule) Configure(opts map[string]any) error {
	raw, ok := opts["max_bytes"]
	if !ok {
		return nil
	}
	n, err := toInt64(raw)
	if err != nil || n <= 0 {
		return fmt.Errorf("largefiles: max_bytes must be a positive integer, got %v", raw)
	}
	m.maxBytes = n
	return nil
}

func (m *largeFilesModule) Check(ctx context.Context, file lint.FileInfo) ([]lint.Finding, error) {
	if file.Size <= m.maxBytes {
		return nil, nil
	}
	return []lint.Finding{at(file, 0, m.Name(), lint.SeverityWarning,
		fmt.Sprintf("file size %s exceeds threshold %s", humanSize(file.Size), humanSize(m.maxBytes)))}, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func humanSize(b int64) string {
	switch {
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

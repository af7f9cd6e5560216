package component

import (
	"fmt"
	"os"
	"strings"

	"github.com/sofmeright/imagefreight/src/config"
)

// Entry is one component as a pipeline references it, with its parsed
// document when the file could be read.
type Entry struct {
	Variant   config.VariantConfig
	Component config.ComponentConfig
	Doc       *Document
	Hash      string
	Locked    bool
}

// GenerateDocs renders markdown documentation grouped by variant.
// Components keep their recipe order.
func GenerateDocs(entries []Entry) string {
	var b strings.Builder

	var current string
	for _, e := range entries {
		if e.Variant.ID != current {
			if current != "" {
				b.WriteString("\n---\n\n")
			}
			current = e.Variant.ID
			fmt.Fprintf(&b, "## %s (`%s`)\n\n", e.Variant.Description, e.Variant.StackName)
			b.WriteString("| # | Component | Version | File | Description |\n")
			b.WriteString("|---|-----------|---------|------|-------------|\n")
			n := 0
			for _, o := range entries {
				if o.Variant.ID != current {
					continue
				}
				n++
				desc := "-"
				if o.Doc != nil && o.Doc.Description != "" {
					desc = escapeCell(o.Doc.Description)
				}
				fmt.Fprintf(&b, "| %d | `%s` | %s | `%s/%s` | %s |\n",
					n, o.Component.Name, o.Component.Version, o.Variant.PlatformFolder, o.Component.File, desc)
			}
			b.WriteString("\n")
		}
		b.WriteString(renderSteps(e))
	}

	return b.String()
}

func renderSteps(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", e.Component.Name)
	if e.Doc == nil {
		b.WriteString("_Document not found._\n\n")
		return b.String()
	}
	for _, p := range e.Doc.Phases {
		fmt.Fprintf(&b, "- **%s**", p.Name)
		names := make([]string, 0, len(p.Steps))
		for _, s := range p.Steps {
			names = append(names, fmt.Sprintf("`%s` (%s)", s.Name, s.Action))
		}
		if len(names) > 0 {
			b.WriteString(": " + strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// InjectIntoReadme replaces the text between startMarker and endMarker in
// the README at readmePath with content and returns the result.
func InjectIntoReadme(readmePath, startMarker, endMarker, content string) (string, error) {
	data, err := os.ReadFile(readmePath)
	if err != nil {
		return "", fmt.Errorf("reading README: %w", err)
	}
	text := string(data)

	start := strings.Index(text, startMarker)
	if start == -1 {
		return "", fmt.Errorf("start marker %q not found in %s", startMarker, readmePath)
	}
	end := strings.Index(text, endMarker)
	if end == -1 {
		return "", fmt.Errorf("end marker %q not found in %s", endMarker, readmePath)
	}
	if end <= start {
		return "", fmt.Errorf("end marker appears before start marker in %s", readmePath)
	}

	return text[:start+len(startMarker)] + "\n" + content + text[end:], nil
}

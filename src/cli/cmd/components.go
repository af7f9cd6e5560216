package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/component"
	"github.com/sofmeright/imagefreight/src/output"
)

const (
	docsStartMarker = "<!-- imagefreight:components:start -->"
	docsEndMarker   = "<!-- imagefreight:components:end -->"
)

var (
	docsOutputFile string
	docsReadme     string
)

var componentsCmd = &cobra.Command{
	Use:     "components",
	Aliases: []string{"component"},
	Short:   "Inspect, pin and document component documents",
}

var componentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List components per variant with their lock state",
	Args:  cobra.NoArgs,
	RunE:  runComponentsList,
}

var componentsLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Refresh the lock file from the artifact tree",
	Long: `Hash every component document the variants reference and record it
with its declared version. Commit the lock together with the version
bump so the drift check can tell edited documents from released ones.`,
	Args: cobra.NoArgs,
	RunE: runComponentsLock,
}

var componentsDocsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate markdown documentation for the components",
	Long: `Render a table per variant and the build steps of every component.

Output modes:
  - Default: print markdown to stdout
  - --output: write markdown to a file
  - --readme: replace the block between the imagefreight:components
    markers in a README`,
	Args: cobra.NoArgs,
	RunE: runComponentsDocs,
}

func init() {
	componentsDocsCmd.Flags().StringVarP(&docsOutputFile, "output", "o", "", "write docs to file")
	componentsDocsCmd.Flags().StringVar(&docsReadme, "readme", "", "inject docs into this README between markers")

	componentsCmd.AddCommand(componentsListCmd, componentsLockCmd, componentsDocsCmd)
	rootCmd.AddCommand(componentsCmd)
}

func componentEntries() ([]component.Entry, error) {
	lock, err := artifact.LoadLock(lockPath(cfg))
	if err != nil {
		return nil, err
	}
	return component.Entries(cfg, cfg.Store.Source, lock)
}

func runComponentsList(cmd *cobra.Command, args []string) error {
	entries, err := componentEntries()
	if err != nil {
		return err
	}
	color := output.UseColor()
	w := os.Stdout

	var sec *output.Section
	current := ""
	for _, e := range entries {
		if e.Variant.ID != current {
			if sec != nil {
				sec.Close()
			}
			current = e.Variant.ID
			sec = output.NewSection(w, e.Variant.ID, 0, color)
		}
		status, detail := output.StatusSuccess, "locked"
		switch {
		case e.Doc == nil:
			status, detail = output.StatusFailed, "missing"
		case !e.Locked:
			status, detail = output.StatusSkipped, "not locked"
		}
		label := fmt.Sprintf("%-24s %-8s %s", e.Component.Name, e.Component.Version,
			output.Dimmed(artifact.ComponentFile(e.Variant, e.Component), color))
		output.RowStatus(sec, label, detail, status, color)
	}
	if sec != nil {
		sec.Close()
	}
	return nil
}

func runComponentsLock(cmd *cobra.Command, args []string) error {
	lock, err := artifact.BuildLock(cfg, cfg.Store.Source)
	if err != nil {
		return err
	}
	path := lockPath(cfg)
	if err := lock.Save(path); err != nil {
		return fmt.Errorf("writing lock: %w", err)
	}
	fmt.Printf("  lock → %s (%d components)\n", path, len(lock.Components))
	return nil
}

func runComponentsDocs(cmd *cobra.Command, args []string) error {
	entries, err := componentEntries()
	if err != nil {
		return err
	}
	docs := component.GenerateDocs(entries)

	switch {
	case docsReadme != "":
		updated, err := component.InjectIntoReadme(docsReadme, docsStartMarker, docsEndMarker, docs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(docsReadme, []byte(updated), 0o644); err != nil {
			return fmt.Errorf("writing README: %w", err)
		}
		fmt.Printf("  docs → %s\n", docsReadme)
	case docsOutputFile != "":
		if err := os.WriteFile(docsOutputFile, []byte(docs), 0o644); err != nil {
			return fmt.Errorf("writing docs: %w", err)
		}
		fmt.Printf("  docs → %s\n", docsOutputFile)
	default:
		fmt.Print(docs)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/lint"
	"github.com/sofmeright/imagefreight/src/output"
)

var (
	lintLevel    string
	lintModules  []string
	lintNoModule []string
	lintNoCache  bool
	lintAll      bool
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Lint the component artifact tree",
	Long: `Run cache-aware checks over the component artifact tree.

By default, only files changed against the target branch are scanned
(--level changed). Use --level full or --all to scan everything.

The drift module compares every referenced component document with the
lock file and fails when content changed without a version bump.`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func init() {
	addLintFlags(lintCmd)
	rootCmd.AddCommand(lintCmd)
}

func addLintFlags(c *cobra.Command) {
	c.Flags().StringVar(&lintLevel, "level", "", "scan level: changed or full (default: from config, then full)")
	c.Flags().StringSliceVar(&lintModules, "module", nil, "run only these modules (comma-separated)")
	c.Flags().StringSliceVar(&lintNoModule, "no-module", nil, "skip these modules (comma-separated)")
	c.Flags().BoolVar(&lintNoCache, "no-cache", false, "disable cache (clear and rescan)")
	c.Flags().BoolVar(&lintAll, "all", false, "scan all files (shorthand for --level full)")
}

func runLint(cmd *cobra.Command, args []string) error {
	critical, err := lintArtifacts(context.Background(), os.Stdout, output.UseColor())
	if err != nil {
		return err
	}
	if critical > 0 {
		return fmt.Errorf("lint failed: %d critical findings", critical)
	}
	return nil
}

// lintArtifacts runs the lint engine over the artifact tree, renders the
// result and returns the number of critical findings.
func lintArtifacts(ctx context.Context, w io.Writer, color bool) (int, error) {
	level := config.LevelFull
	switch {
	case lintAll:
	case lintLevel != "":
		level = config.Level(lintLevel)
	case cfg.Lint.Level != "":
		level = cfg.Lint.Level
	}
	if level != config.LevelFull && level != config.LevelChanged {
		return 0, fmt.Errorf("unknown lint level %q", level)
	}

	project, err := loadProject(ctx, cfg, level == config.LevelFull)
	if err != nil {
		return 0, err
	}

	cache := lint.NewCache(cfg.Lint.CacheDir)
	if lintNoCache {
		cache.Enabled = false
		if err := cache.Clear(); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "cache: clear failed: %v\n", err)
		}
	} else {
		lint.EnsureGitignore(".")
	}

	engine, err := lint.NewEngine(project, lintModules, lintNoModule, verbose, cache)
	if err != nil {
		return 0, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "modules: %v\n", engine.ModuleNames())
	}

	files, err := engine.CollectFiles()
	if err != nil {
		return 0, fmt.Errorf("collecting files: %w", err)
	}
	if project.Changed != nil {
		all := len(files)
		files = lint.FilterByDelta(files, project.Changed)
		if verbose {
			fmt.Fprintf(os.Stderr, "delta: %d/%d files changed against %s\n", len(files), all, project.Branch)
		}
	}

	start := time.Now()
	findings, modStats, runErr := engine.RunWithStats(ctx, files)
	elapsed := time.Since(start)

	critical, warning, info := output.CountFindings(findings)
	var totalFiles, totalCached int
	for _, ms := range modStats {
		totalFiles += ms.Files
		totalCached += ms.Cached
	}

	if output.IsCI() {
		if jErr := output.WriteLintJUnit(reportsDir, findings, files, engine.ModuleNames(), elapsed); jErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write junit report: %v\n", jErr)
		}
	}

	output.SectionStart(w, "if_lint", "Lint")
	sec := output.NewSection(w, "Lint", elapsed, color)
	output.LintTable(w, modStats)
	sec.Separator()
	sec.Row("%-16s%5d   %5d   %d findings (%d critical)",
		"total", totalFiles, totalCached, len(findings), critical)
	sec.Close()
	output.SectionEnd(w, "if_lint")

	if len(findings) > 0 {
		output.SectionStart(w, "if_findings", "Findings")
		fSec := output.NewSection(w, "Findings", 0, color)
		output.SectionFindings(fSec, findings, color)
		fSec.Separator()
		fSec.Row("%s", output.FindingsSummaryLine(len(findings), critical, warning, info, len(files), color))
		fSec.Close()
		output.SectionEnd(w, "if_findings")
	}

	if runErr != nil {
		return critical, runErr
	}
	return critical, nil
}

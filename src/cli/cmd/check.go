package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/nag"
	"github.com/sofmeright/imagefreight/src/output"
)

var (
	checkVariants       []string
	checkShowSuppressed bool
	checkNoLint         bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check templates against the rule pack and lint the artifacts",
	Long: `Synthesize every stack in memory, evaluate the nag rule pack over
each resource, then lint the component artifact tree.

A rule violation is accepted only through a suppression recorded on the
resource with a reason of at least nag.min_reason_length characters.
Exits non-zero on any unsuppressed error or critical lint finding.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkVariants, "variant", nil, "only check these variants (comma-separated)")
	checkCmd.Flags().BoolVar(&checkShowSuppressed, "show-suppressed", false, "list suppressed findings with their reasons")
	checkCmd.Flags().BoolVar(&checkNoLint, "no-lint", false, "skip the artifact lint")
	addLintFlags(checkCmd)

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	color := output.UseColor()
	w := os.Stdout

	output.CIHeader(w)
	output.ContextBlock(w, []output.KV{
		{Key: "account", Value: orDash(cfg.Account)},
		{Key: "region", Value: orDash(cfg.Region)},
		{Key: "config", Value: configName()},
		{Key: "variants", Value: fmt.Sprintf("%d", len(cfg.Variants))},
	})

	start := time.Now()
	_, asm, err := assemble(ctx, cfg, checkVariants, cfn.FormatJSON)
	if err != nil {
		return fmt.Errorf("synth: %w", err)
	}

	engine, err := nag.NewEngine(cfg.Nag, verbose)
	if err != nil {
		return err
	}
	findings, err := engine.Run(ctx, asm.Stacks)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	summary := nag.Summarize(findings)

	if output.IsCI() {
		if jErr := output.WriteNagJUnit(nagReportDir(), asm.Stacks, findings, elapsed); jErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write junit report: %v\n", jErr)
		}
	}

	output.SectionStart(w, "if_nag", "Nag")
	sec := output.NewSection(w, "Nag", elapsed, color)
	output.SectionNagFindings(sec, findings, checkShowSuppressed, color)
	sec.Separator()
	sec.Row("%s", output.NagSummaryLine(summary, len(engine.Rules), len(asm.Stacks), color))
	sec.Close()
	output.SectionEnd(w, "if_nag")

	lintStart := time.Now()
	critical := 0
	if !checkNoLint {
		critical, err = lintArtifacts(ctx, w, color)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	output.SummaryRow(w, "nag", output.StatusOf(summary.Errors), fmt.Sprintf("%d errors, %d warnings, %d suppressed", summary.Errors, summary.Warnings, summary.Suppressed), color)
	switch {
	case checkNoLint:
		output.SummaryRow(w, "lint", output.StatusSkipped, "--no-lint", color)
	default:
		output.SummaryRow(w, "lint", output.StatusOf(critical), fmt.Sprintf("%d critical", critical), color)
	}
	output.SummaryTotal(w, elapsed+time.Since(lintStart), output.StatusOf(summary.Errors+critical), color)

	switch {
	case summary.Errors > 0 && critical > 0:
		return fmt.Errorf("check failed: %d unsuppressed rule errors, %d critical lint findings", summary.Errors, critical)
	case summary.Errors > 0:
		return fmt.Errorf("check failed: %d unsuppressed rule errors", summary.Errors)
	case critical > 0:
		return fmt.Errorf("check failed: %d critical lint findings", critical)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func configName() string {
	if cfgFile == "" {
		return config.DefaultFile
	}
	return cfgFile
}

func nagReportDir() string {
	if cfg.Nag.ReportDir != "" {
		return cfg.Nag.ReportDir
	}
	return reportsDir
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration the same way synth does and report every
problem at once: deployment target, bucket settings, variants, component
versions and instance settings.

Warnings do not fail the command.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	color := output.UseColor()
	w := os.Stdout

	warnings, err := config.Validate(cfg)

	sec := output.NewSection(w, "Config", 0, color)
	for _, warn := range warnings {
		sec.Row("%s %s", output.StatusIcon(output.StatusSkipped, color), warn)
	}
	status := output.StatusSuccess
	detail := fmt.Sprintf("%d variants", len(cfg.Variants))
	if err != nil {
		status = output.StatusFailed
		detail = err.Error()
	}
	output.RowStatus(sec, "config", detail, status, color)
	sec.Close()

	return err
}

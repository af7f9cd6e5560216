package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/compose"
	"github.com/sofmeright/imagefreight/src/output"
)

var (
	synthOut      string
	synthFormat   string
	synthVariants []string
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Emit CloudFormation templates and the assembly manifest",
	Long: `Build the storage stack and one pipeline stack per variant, validate
every dependency edge, and write the templates in deployment order
together with manifest.json.

Templates are staged before they are moved into the output directory;
other files already there are left alone. An inline vpc block is
recorded into context_file so later runs can drop it.`,
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().StringVarP(&synthOut, "out", "o", "", "output directory (default: from config, then cdk.out)")
	synthCmd.Flags().StringVar(&synthFormat, "format", "", "template format: json or yaml (default: from config)")
	synthCmd.Flags().StringSliceVar(&synthVariants, "variant", nil, "only build these variants (comma-separated)")

	rootCmd.AddCommand(synthCmd)
}

func runSynth(cmd *cobra.Command, args []string) error {
	out := synthOut
	if out == "" {
		out = cfg.Synth.Out
	}
	fmtName := synthFormat
	if fmtName == "" {
		fmtName = cfg.Synth.Format
	}
	format, err := cfn.ParseFormat(fmtName)
	if err != nil {
		return err
	}

	start := time.Now()
	app, asm, err := assemble(context.Background(), cfg, synthVariants, format)
	if err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	if err := asm.Write(out, app.Tags()); err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	recorded, err := compose.RecordContext(cfg)
	if err != nil {
		return fmt.Errorf("synth: recording vpc context: %w", err)
	}

	color := output.UseColor()
	w := os.Stdout
	output.SectionStart(w, "if_synth", "Synth")
	sec := output.NewSection(w, "Synth", time.Since(start), color)
	for _, s := range asm.Stacks {
		sec.Row("%-36s %3d resources  %s", s.Name, len(s.Template.Resources), output.Dimmed(asm.TemplateFile(s), color))
	}
	sec.Separator()
	output.RowStatus(sec, "assembly", out, output.StatusSuccess, color)
	if recorded {
		output.RowStatus(sec, "context", cfg.ContextFile+" (vpc recorded)", output.StatusSuccess, color)
	}
	sec.Close()
	output.SectionEnd(w, "if_synth")
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/output"
	"github.com/sofmeright/imagefreight/src/stack"
)

var graphResources bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print stack and resource deployment order",
	Long: `Print the stacks in deployment order, grouped into levels that can
deploy in parallel. With --resources, also print each stack's resources
in creation order with their direct dependencies.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&graphResources, "resources", true, "include resource order per stack")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	app, asm, err := assemble(context.Background(), cfg, nil, cfn.FormatJSON)
	if err != nil {
		return err
	}
	color := output.UseColor()
	w := os.Stdout

	g, err := app.StackGraph()
	if err != nil {
		return err
	}
	levels, err := g.Levels()
	if err != nil {
		return err
	}

	sec := output.NewSection(w, "Stacks", 0, color)
	for i, level := range levels {
		sec.Row("%d  %s", i+1, strings.Join(level, ", "))
	}
	sec.Close()

	if !graphResources {
		return nil
	}
	for _, s := range asm.Stacks {
		rg, err := stack.ResourceGraph(s)
		if err != nil {
			return err
		}
		order, err := rg.Sort()
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		rsec := output.NewSection(w, s.Name, 0, color)
		for _, id := range order {
			line := fmt.Sprintf("%-36s %s", id, output.Dimmed(s.Template.Resources[id].Type, color))
			if deps := rg.Dependencies(id); len(deps) > 0 {
				line += "  ← " + strings.Join(deps, ", ")
			}
			rsec.Row("%s", line)
		}
		rsec.Close()
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/config"

	// Register built-in lint modules and nag rules.
	_ "github.com/sofmeright/imagefreight/src/lint/modules"
	_ "github.com/sofmeright/imagefreight/src/nag/rules"
)

// reportsDir receives the lint JUnit XML and the deploy report. The nag
// report goes to nag.report_dir.
const reportsDir = ".imagefreight/reports"

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "imagefreight",
	Short: "Image pipeline infrastructure as code",
	Long: `ImageFreight declares the components bucket and the EC2 Image Builder
pipelines that turn component documents into desktop AMIs, checks the
templates against a policy rule pack, lints the component documents and
deploys them to the bucket.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .imagefreight.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

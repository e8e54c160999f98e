package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/config"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/output"
)

var (
	cfgFile      string
	outputFormat string
	templateStr  string

	// appConfig is loaded by initializeLogging before any command runs.
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "pagedeploy",
		Short: "Deploy front-end projects to static hosting",
		Long: `pagedeploy clones a front-end project, optionally merges new gallery images
into its numbered asset collection, builds it for production, and publishes the
build to the repository's static-hosting branch.

Examples:
  pagedeploy deploy my-site -u octo                 # Clone, build, publish, clean up
  pagedeploy deploy my-site -u octo -i ~/new-photos # Import images before building
  pagedeploy import ~/new-photos -C ./my-site       # Import into a local checkout
  pagedeploy history                                # View past runs
  pagedeploy config show                            # Show configuration`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/pagedeploy/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "pretty",
		"output format: "+strings.Join(output.Available(), ", "))
	rootCmd.PersistentFlags().StringVar(&templateStr, "template", "", "Go template for -o template")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr if quiet mode is not enabled. Stdout
// is reserved for rendered results.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// render writes r to the command's stdout in the selected output format.
func render(cmd *cobra.Command, r *output.Result) error {
	var formatter output.Formatter
	if templateStr != "" {
		formatter = output.NewTemplateFormatter(templateStr)
	} else {
		f, err := output.Get(outputFormat)
		if err != nil {
			return err
		}
		formatter = f
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

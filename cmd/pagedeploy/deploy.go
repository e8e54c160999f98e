package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/config"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/deploy"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/history"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/output"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/runner"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <repo> [project]",
	Short: "Clone, build, and publish a repository",
	Long: `Deploy clones <user>/<repo> from the configured git host, optionally imports
new images into the project's asset collection and pushes them, installs npm
dependencies, runs a production build, and publishes the result with
angular-cli-ghpages. The clone is removed afterwards unless --keep-clone is set.

[project] is the directory inside the repository holding the front-end
project. It defaults to the repository name.

Examples:
  pagedeploy deploy portfolio -u octo
  pagedeploy deploy portfolio web -u octo --work-dir /tmp/deploys
  pagedeploy deploy portfolio -u octo -i ~/Pictures/new -m "Add March photos"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDeploy,
}

func init() {
	addDeployFlags(deployCmd.Flags())
	rootCmd.AddCommand(deployCmd)
}

func addDeployFlags(f *pflag.FlagSet) {
	f.StringP("user", "u", "", "account that owns the repository")
	f.String("host", "", "git host URL")
	f.String("work-dir", "", "directory to clone into")
	f.StringP("input", "i", "", "directory with new images to import before building")
	f.String("manifest", "", "manifest path relative to the project")
	f.String("output-dir", "", "image directory relative to the project")
	f.Int("pad-width", 0, "minimum digits in new image identifiers")
	f.StringP("message", "m", "", "commit message for imported images")
	f.Bool("keep-clone", false, "leave the clone in place after the run")
	f.Duration("timeout", 0, "per-command timeout")
	f.Bool("no-history", false, "do not record this run")
}

// buildDeployOptions merges configuration with command-line flags. Flags
// win when set.
func buildDeployOptions(cmd *cobra.Command, cfg *config.Config, args []string) deploy.Options {
	f := cmd.Flags()

	opts := deploy.Options{
		HostURL:  cfg.HostURL,
		Username: cfg.Username,
		Repo:     args[0],
		WorkDir:  cfg.WorkDir,
	}
	if len(args) > 1 {
		opts.Project = args[1]
	}
	if f.Changed("user") {
		opts.Username, _ = f.GetString("user")
	}
	if f.Changed("host") {
		opts.HostURL, _ = f.GetString("host")
	}
	if f.Changed("work-dir") {
		opts.WorkDir, _ = f.GetString("work-dir")
	}
	opts.KeepClone, _ = f.GetBool("keep-clone")

	a := deploy.AssetOptions{
		InputDir:      cfg.Assets.InputDir,
		Manifest:      cfg.Assets.Manifest,
		OutputDir:     cfg.Assets.OutputDir,
		PadWidth:      cfg.Assets.PadWidth,
		CommitMessage: cfg.Assets.CommitMessage,
	}
	if f.Changed("input") {
		a.InputDir, _ = f.GetString("input")
	}
	if f.Changed("manifest") {
		a.Manifest, _ = f.GetString("manifest")
	}
	if f.Changed("output-dir") {
		a.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("pad-width") {
		a.PadWidth, _ = f.GetInt("pad-width")
	}
	if f.Changed("message") {
		a.CommitMessage, _ = f.GetString("message")
	}
	if a.InputDir != "" {
		a.InputDir, _ = config.ExpandPath(a.InputDir)
		opts.Assets = &a
	}
	if opts.WorkDir != "" {
		opts.WorkDir, _ = config.ExpandPath(opts.WorkDir)
	}

	return opts
}

// commandTimeout returns the --timeout flag or the configured default.
func commandTimeout(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("timeout") {
		d, _ := cmd.Flags().GetDuration("timeout")
		return d
	}
	return cfg.CommandTimeout
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	opts := buildDeployOptions(cmd, cfg, args)
	if opts.Username == "" {
		printError("no username: pass --user or set username in %s", configHint(cfg))
		return deploy.ErrMissingTarget
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printInfo("Deploying %s", opts.Target())
	printVerbose("Clone URL: %s", deploy.RepoURL(opts.HostURL, opts.Username, opts.Repo))
	if opts.Assets != nil {
		printVerbose("Importing images from %s", opts.Assets.InputDir)
	}

	pipeline := deploy.New(runner.NewExecRunner(commandTimeout(cmd, cfg)))
	rep, runErr := pipeline.Run(ctx, opts)

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory && rep != nil {
		recordRun(cfg, history.OpDeploy, output.HistoryRun(rep, runErr))
	}

	if err := render(cmd, output.FromDeploy(rep, runErr)); err != nil {
		return err
	}
	return runErr
}

// configHint names the config file in use, or the default location.
func configHint(cfg *config.Config) string {
	if cfg.File != "" {
		return cfg.File
	}
	if path, err := config.ConfigPath(); err == nil {
		return path
	}
	return "the config file"
}

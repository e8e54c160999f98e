package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage pagedeploy configuration settings.

Configuration is loaded from:
  1. --config <file> (if given)
  2. $XDG_CONFIG_HOME/pagedeploy/config.yaml (if set)
  3. ~/.config/pagedeploy/config.yaml

Environment variables can override config file settings using the PAGEDEPLOY_ prefix:
  PAGEDEPLOY_USERNAME=octo
  PAGEDEPLOY_WORK_DIR=/tmp/deploys
  PAGEDEPLOY_ASSETS_PAD_WIDTH=5`,
	// Config commands must work even when the config file is broken.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			configLoadErr = err
			return nil
		}
		appConfig = cfg
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

// configLoadErr is set when the config subcommands could not load the file.
var configLoadErr error

// configEnvVars lists the environment variables config show reports.
var configEnvVars = []string{
	"PAGEDEPLOY_HOST_URL",
	"PAGEDEPLOY_USERNAME",
	"PAGEDEPLOY_WORK_DIR",
	"PAGEDEPLOY_COMMAND_TIMEOUT",
	"PAGEDEPLOY_ASSETS_INPUT_DIR",
	"PAGEDEPLOY_ASSETS_MANIFEST",
	"PAGEDEPLOY_ASSETS_OUTPUT_DIR",
	"PAGEDEPLOY_ASSETS_PAD_WIDTH",
	"PAGEDEPLOY_ASSETS_COMMIT_MESSAGE",
	"PAGEDEPLOY_HISTORY_ENABLED",
	"PAGEDEPLOY_HISTORY_PATH",
	"PAGEDEPLOY_HISTORY_RETENTION_DAYS",
	"PAGEDEPLOY_LOGGING_LEVEL",
	"PAGEDEPLOY_LOGGING_PATH",
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if configLoadErr != nil || cfg == nil {
		printError("Failed to load configuration: %v", configLoadErr)
		cfg = &config.Config{
			HostURL:        config.DefaultHostURL,
			WorkDir:        config.DefaultWorkDir,
			CommandTimeout: config.DefaultCommandTimeout,
		}
		cfg.Assets.Manifest = config.DefaultManifest
		cfg.Assets.OutputDir = config.DefaultOutputDir
		cfg.Assets.PadWidth = config.DefaultPadWidth
		cfg.Assets.CommitMessage = config.DefaultCommitMessage
		cfg.History.Enabled = true
		cfg.History.Path = config.HistoryDir()
		cfg.History.RetentionDays = config.DefaultRetentionDays
		cfg.Logging.Level = "info"
	}

	out := cmd.OutOrStdout()
	if cfg.File != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.File)
	} else {
		fmt.Fprintln(out, "Config file: (using defaults, no file found)")
		fmt.Fprintln(out)
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "host_url:               %s\n", cfg.HostURL)
	fmt.Fprintf(out, "username:               %s\n", cfg.Username)
	fmt.Fprintf(out, "work_dir:               %s\n", cfg.WorkDir)
	fmt.Fprintf(out, "command_timeout:        %s\n", cfg.CommandTimeout)
	fmt.Fprintf(out, "assets.input_dir:       %s\n", cfg.Assets.InputDir)
	fmt.Fprintf(out, "assets.manifest:        %s\n", cfg.Assets.Manifest)
	fmt.Fprintf(out, "assets.output_dir:      %s\n", cfg.Assets.OutputDir)
	fmt.Fprintf(out, "assets.pad_width:       %d\n", cfg.Assets.PadWidth)
	fmt.Fprintf(out, "assets.commit_message:  %s\n", cfg.Assets.CommitMessage)
	fmt.Fprintf(out, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:           %s\n", cfg.History.Path)
	fmt.Fprintf(out, "history.retention:      %d days\n", cfg.History.RetentionDays)
	fmt.Fprintf(out, "logging.level:          %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.path:           %s\n", logPath)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	anyOverrides := false
	for _, name := range configEnvVars {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'pagedeploy config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}

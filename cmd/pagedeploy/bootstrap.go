package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/config"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/history"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
)

// initializeLogging loads the configuration and sets up file and console
// logging. It is the root PersistentPreRunE hook.
func initializeLogging(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	appConfig = cfg

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	consoleLevel := "warn"
	switch {
	case getQuiet():
		consoleLevel = "error"
	case getVerbose():
		consoleLevel = "debug"
	}

	err = logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         logPath,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
		Console:      os.Stderr,
	})
	if err != nil {
		// A broken log file must not block a deploy.
		printError("logging disabled: %v", err)
		return nil
	}

	logging.Get("cli").Debug("configuration loaded", "file", cfg.File, "command", cmd.CommandPath())
	return nil
}

// parseRotationConfig converts the config rotation settings into the logging
// package form. An empty or invalid max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()
	out.MaxAge = rc.MaxAge
	out.MaxBackups = rc.MaxBackups
	out.Daily = rc.Daily

	if rc.MaxSize != "" {
		size, err := humanize.ParseBytes(rc.MaxSize)
		if err == nil && size > 0 {
			out.MaxSize = int64(size)
		}
	}
	return out
}

// openHistory returns the run history, or nil when it is disabled.
func openHistory(cfg *config.Config) (*history.History, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	dir := cfg.History.Path
	if dir == "" {
		dir = config.HistoryDir()
	}
	return history.New(dir)
}

// recordRun stores run in the history and prunes old entries. Failures are
// reported but never fail the command.
func recordRun(cfg *config.Config, op history.OperationType, run history.Run) {
	h, err := openHistory(cfg)
	if err != nil {
		printError("history: %v", err)
		return
	}
	if h == nil {
		return
	}

	entry, err := h.Record(op, run)
	if err != nil {
		printError("history: %v", err)
		return
	}
	printVerbose("Recorded run %s", entry.ID)

	if _, err := h.Cleanup(cfg.History.RetentionDays); err != nil {
		logging.Get("cli").Warn("history cleanup failed", "error", err)
	}
}

// requireConfig returns appConfig, failing when the pre-run hook did not load it.
func requireConfig() (*config.Config, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return appConfig, nil
}

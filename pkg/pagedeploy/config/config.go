package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// AssetsConfig configures image import. Manifest and OutputDir are relative
// to the project directory during a deploy.
type AssetsConfig struct {
	InputDir      string `mapstructure:"input_dir"`
	Manifest      string `mapstructure:"manifest"`
	OutputDir     string `mapstructure:"output_dir"`
	PadWidth      int    `mapstructure:"pad_width"`
	CommitMessage string `mapstructure:"commit_message"`
}

// HistoryConfig configures run history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	HostURL        string        `mapstructure:"host_url"`
	Username       string        `mapstructure:"username"`
	WorkDir        string        `mapstructure:"work_dir"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	Assets         AssetsConfig  `mapstructure:"assets"`
	History        HistoryConfig `mapstructure:"history"`
	Logging        LoggingConfig `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Load reads configuration from path, or from the default locations when
// path is empty:
//   - $XDG_CONFIG_HOME/pagedeploy/config.yaml
//   - $HOME/.config/pagedeploy/config.yaml
//
// A missing file in the default locations is not an error. Environment
// variables are prefixed with PAGEDEPLOY_ (e.g., PAGEDEPLOY_ASSETS_PAD_WIDTH).
func Load(path string) (*Config, error) {
	v := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.WorkDir, &cfg.Assets.InputDir, &cfg.History.Path, &cfg.Logging.Path} {
		if *p, err = ExpandPath(*p); err != nil {
			return nil, err
		}
	}

	if cfg.Assets.PadWidth < 1 {
		return nil, fmt.Errorf("assets.pad_width must be at least 1, got %d", cfg.Assets.PadWidth)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host_url", DefaultHostURL)
	v.SetDefault("username", "")
	v.SetDefault("work_dir", DefaultWorkDir)
	v.SetDefault("command_timeout", DefaultCommandTimeout)

	v.SetDefault("assets.input_dir", "")
	v.SetDefault("assets.manifest", DefaultManifest)
	v.SetDefault("assets.output_dir", DefaultOutputDir)
	v.SetDefault("assets.pad_width", DefaultPadWidth)
	v.SetDefault("assets.commit_message", DefaultCommitMessage)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a commented default config file if none exists and
// returns its path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	var components strings.Builder
	for _, name := range []string{"deploy", "assets", "runner", "history"} {
		fmt.Fprintf(&components, "    %s: %s\n", name, DefaultComponentLevels[name])
	}

	defaultConfig := fmt.Sprintf(`# pagedeploy configuration

# Git host and account that own the repositories to deploy
host_url: %s
username: ""

# Directory clones are created in
work_dir: %s

# Upper bound for each git/npm/ng command
command_timeout: %s

# Image import settings
assets:
  # Directory with new images; empty disables the import step
  input_dir: ""
  # Paths relative to the project directory
  manifest: %s
  output_dir: %s
  # Minimum digits in generated identifiers
  pad_width: %d
  commit_message: %q

# Deploy/import run history
history:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/pagedeploy/pagedeploy.log)
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
%s`, DefaultHostURL, DefaultWorkDir, DefaultCommandTimeout, DefaultManifest, DefaultOutputDir,
		DefaultPadWidth, DefaultCommitMessage, HistoryDir(), DefaultRetentionDays, DefaultLogMaxSize,
		components.String())

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/pagedeploy/ for logs and history.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(StateDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

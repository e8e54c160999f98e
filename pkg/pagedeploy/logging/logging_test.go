package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
)

// These tests share the package's global state and must not run in parallel.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"verbose", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, logging.ErrInvalidLevel) {
				t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidLevel", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	validDir := t.TempDir()
	invalidDir := t.TempDir()
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}

	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg:  logging.Config{Level: "info", Path: filepath.Join(validDir, "test.log")},
		},
		{
			name: "component overrides",
			cfg: logging.Config{
				Level:      "info",
				Path:       filepath.Join(validDir, "components.log"),
				Components: map[string]string{"assets": "debug", "runner": "warn"},
			},
		},
		{
			name:    "invalid level",
			cfg:     logging.Config{Level: "loud", Path: filepath.Join(invalidDir, "x.log")},
			wantErr: true,
		},
		{
			name: "invalid component level",
			cfg: logging.Config{
				Level:      "info",
				Path:       filepath.Join(invalidDir, "y.log"),
				Components: map[string]string{"deploy": "chatty"},
			},
			wantErr: true,
		},
		{
			name:    "unwritable path",
			cfg:     logging.Config{Level: "info", Path: filepath.Join(blocker, "sub", "z.log")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logging.Init(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if closeErr := logging.Close(); closeErr != nil {
					t.Errorf("Close() error = %v", closeErr)
				}
			}
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "write.log")

	if err := logging.Init(logging.Config{Level: "debug", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logger := logging.Get("assets")
	logger.Info("imported asset", "id", "0002")
	logger.Debug("probe", "candidate", "0003")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	for _, want := range []string{"imported asset", "0002", "probe", "assets"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log file missing %q, got: %s", want, content)
		}
	}
}

func TestComponentLevelOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "levels.log")

	err := logging.Init(logging.Config{
		Level:      "warn",
		Path:       logPath,
		Components: map[string]string{"deploy": "debug"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("runner").Info("runner info hidden")
	logging.Get("runner").Warn("runner warn shown")
	logging.Get("deploy").Debug("deploy debug shown")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	logContent := string(content)

	if strings.Contains(logContent, "runner info hidden") {
		t.Error("info message written below warn level")
	}
	if !strings.Contains(logContent, "runner warn shown") {
		t.Error("warn message missing")
	}
	if !strings.Contains(logContent, "deploy debug shown") {
		t.Error("component override did not enable debug")
	}
}

func TestConsoleOutput(t *testing.T) {
	var console bytes.Buffer

	err := logging.Init(logging.Config{
		Level:        "debug",
		Path:         filepath.Join(t.TempDir(), "console.log"),
		ConsoleLevel: "warn",
		Console:      &console,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logger := logging.Get("deploy")
	logger.Info("quiet on console")
	logger.Error("loud on console")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if strings.Contains(console.String(), "quiet on console") {
		t.Error("info message reached warn-level console")
	}
	if !strings.Contains(console.String(), "loud on console") {
		t.Errorf("error message missing from console, got: %s", console.String())
	}
}

func TestGetBeforeInitDiscards(t *testing.T) {
	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	logger := logging.Get("history")
	if logger == nil {
		t.Fatal("Get() returned nil")
	}
	logger.Info("goes nowhere")

	if got := logger.With("k", "v").Component(); got != "history" {
		t.Errorf("With().Component() = %q, want %q", got, "history")
	}
}

package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
)

func countLogFiles(t *testing.T, dir, prefix string) int {
	t.Helper()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}

	n := 0
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "size_rotate.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    512,
		MaxBackups: 3,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := writer.Write([]byte(strings.Repeat("x", 50) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := countLogFiles(t, tempDir, "size_rotate"); n < 2 {
		t.Errorf("expected at least 2 log files after rotation, got %d", n)
	}
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "backup_limit.log")

	maxBackups := 2
	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    256,
		MaxBackups: maxBackups,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 50; i++ {
		if _, err := writer.Write([]byte(strings.Repeat("y", 30) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := countLogFiles(t, tempDir, "backup_limit"); n > maxBackups+1 {
		t.Errorf("expected at most %d log files, got %d", maxBackups+1, n)
	}
}

func TestRotationMaxAge(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	stale := filepath.Join(tempDir, "aged.2020-01-01-000000.000.log")
	if err := os.WriteFile(stale, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("failed to write stale log: %v", err)
	}
	old := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("failed to age stale log: %v", err)
	}

	writer, err := logging.NewRotatingWriter(filepath.Join(tempDir, "aged.log"), logging.RotationConfig{MaxAge: 7})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer writer.Close()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale rotated log still present, stat err = %v", err)
	}
}

func TestWriteAfterClose(t *testing.T) {
	t.Parallel()

	writer, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := writer.Write([]byte("late\n")); err == nil {
		t.Error("Write() after Close() succeeded, want error")
	}
}

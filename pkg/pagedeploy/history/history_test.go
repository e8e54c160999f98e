package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestHistory(t *testing.T) *History {
	t.Helper()

	h, err := New(filepath.Join(t.TempDir(), "history"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

// stepClock makes each call to now one minute later than the last.
func stepClock(h *History) {
	base := time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC)
	calls := 0
	h.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}

	h, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if h.Dir() == "" {
		t.Error("Dir() is empty")
	}
}

func TestHistory_LogDeploy(t *testing.T) {
	t.Parallel()

	t.Run("records a successful run", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		entry, err := h.LogDeploy(Run{
			Target:   "octo/site",
			Duration: 42 * time.Second,
			Steps: []StepRecord{
				{Name: "clone", Status: "ok"},
				{Name: "assets", Status: "ok"},
			},
			Assets: []AssetRecord{
				{ID: "0002", Source: "a.png", Size: 100},
				{ID: "0003", Source: "b.png", Size: 250},
			},
		})
		if err != nil {
			t.Fatalf("LogDeploy() error = %v", err)
		}

		if entry.Operation != OpDeploy {
			t.Errorf("Operation = %v, want %v", entry.Operation, OpDeploy)
		}
		if !strings.HasPrefix(entry.ID, "deploy-") {
			t.Errorf("ID = %v, want prefix 'deploy-'", entry.ID)
		}
		if !entry.Success || entry.Error != "" {
			t.Errorf("Success = %v, Error = %q, want success", entry.Success, entry.Error)
		}
		if entry.Summary.TotalAssets != 2 || entry.Summary.TotalBytes != 350 {
			t.Errorf("Summary = %+v, want 2 assets / 350 bytes", entry.Summary)
		}

		if _, err := os.Stat(filepath.Join(h.Dir(), entry.ID+".json")); err != nil {
			t.Errorf("entry file not written: %v", err)
		}
	})

	t.Run("records a failure", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		entry, err := h.LogDeploy(Run{Target: "octo/site", Err: errors.New("build step: ng exited with status 1")})
		if err != nil {
			t.Fatalf("LogDeploy() error = %v", err)
		}
		if entry.Success {
			t.Error("Success = true, want false")
		}
		if !strings.Contains(entry.Error, "ng exited") {
			t.Errorf("Error = %q", entry.Error)
		}
	})
}

func TestHistory_IDFormat(t *testing.T) {
	t.Parallel()
	h := setupTestHistory(t)
	stepClock(h)

	entry, err := h.LogImport(Run{Target: "/srv/site"})
	if err != nil {
		t.Fatalf("LogImport() error = %v", err)
	}

	const prefix = "import-2026-10-16T10-31-00-"
	if !strings.HasPrefix(entry.ID, prefix) {
		t.Fatalf("ID = %v, want prefix %v", entry.ID, prefix)
	}
	if got := len(entry.ID) - len(prefix); got != 8 {
		t.Errorf("suffix length = %d, want 8", got)
	}
}

func TestHistory_List(t *testing.T) {
	t.Parallel()

	t.Run("returns newest first", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)
		stepClock(h)

		for _, target := range []string{"first", "second", "third"} {
			if _, err := h.LogDeploy(Run{Target: target}); err != nil {
				t.Fatalf("LogDeploy() error = %v", err)
			}
		}

		entries, err := h.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("len(entries) = %v, want 3", len(entries))
		}
		if entries[0].Target != "third" || entries[2].Target != "first" {
			t.Errorf("order = %v, %v, %v", entries[0].Target, entries[1].Target, entries[2].Target)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)
		stepClock(h)

		for i := 0; i < 5; i++ {
			if _, err := h.LogImport(Run{}); err != nil {
				t.Fatalf("LogImport() error = %v", err)
			}
		}

		entries, err := h.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("len(entries) = %v, want 2", len(entries))
		}
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		entries, err := h.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("List() = %v, want empty slice", entries)
		}
	})

	t.Run("skips unreadable files", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		if _, err := h.LogDeploy(Run{Target: "ok"}); err != nil {
			t.Fatalf("LogDeploy() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(h.Dir(), "garbage.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(h.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		entries, err := h.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("len(entries) = %v, want 1", len(entries))
		}
	})
}

func TestHistory_Get(t *testing.T) {
	t.Parallel()

	t.Run("retrieves existing entry", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		original, err := h.LogDeploy(Run{
			Target: "octo/site",
			Steps:  []StepRecord{{Name: "clone", Status: "ok"}},
		})
		if err != nil {
			t.Fatalf("LogDeploy() error = %v", err)
		}

		got, err := h.Get(original.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Target != "octo/site" || len(got.Steps) != 1 {
			t.Errorf("Get() = %+v", got)
		}
	})

	t.Run("finds renamed files", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		original, err := h.LogDeploy(Run{Target: "octo/site"})
		if err != nil {
			t.Fatalf("LogDeploy() error = %v", err)
		}
		if err := os.Rename(filepath.Join(h.Dir(), original.ID+".json"), filepath.Join(h.Dir(), "renamed.json")); err != nil {
			t.Fatal(err)
		}

		if _, err := h.Get(original.ID); err != nil {
			t.Errorf("Get() error = %v", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		if _, err := h.LogDeploy(Run{}); err != nil {
			t.Fatal(err)
		}
		_, err := h.Get("deploy-nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		if _, err := h.Get(""); err == nil {
			t.Error("Get(\"\") error = nil, want error")
		}
	})
}

func TestHistory_Cleanup(t *testing.T) {
	t.Parallel()

	t.Run("removes old entries", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		old, err := h.LogDeploy(Run{Target: "old"})
		if err != nil {
			t.Fatal(err)
		}
		fresh, err := h.LogDeploy(Run{Target: "fresh"})
		if err != nil {
			t.Fatal(err)
		}

		aged := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(filepath.Join(h.Dir(), old.ID+".json"), aged, aged); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}

		removed, err := h.Cleanup(5)
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if removed != 1 {
			t.Errorf("removed = %d, want 1", removed)
		}
		if _, err := h.Get(old.ID); err == nil {
			t.Error("old entry still present")
		}
		if _, err := h.Get(fresh.ID); err != nil {
			t.Errorf("fresh entry removed: %v", err)
		}
	})

	t.Run("zero retention keeps everything", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		entry, err := h.LogDeploy(Run{})
		if err != nil {
			t.Fatal(err)
		}
		aged := time.Now().AddDate(-1, 0, 0)
		if err := os.Chtimes(filepath.Join(h.Dir(), entry.ID+".json"), aged, aged); err != nil {
			t.Fatal(err)
		}

		removed, err := h.Cleanup(0)
		if err != nil || removed != 0 {
			t.Errorf("Cleanup(0) = %d, %v", removed, err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		h := setupTestHistory(t)

		if _, err := h.Cleanup(7); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
	})
}

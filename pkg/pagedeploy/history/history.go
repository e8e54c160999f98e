package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("history entry not found")

// History manages run records in a directory.
type History struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New returns a History rooted at dir. The directory is created on the
// first Record.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir, now: time.Now}, nil
}

// Dir returns the directory entries are stored in.
func (h *History) Dir() string {
	return h.dir
}

// LogDeploy records a deploy run.
func (h *History) LogDeploy(run Run) (*Entry, error) {
	return h.Record(OpDeploy, run)
}

// LogImport records a standalone import.
func (h *History) LogImport(run Run) (*Entry, error) {
	return h.Record(OpImport, run)
}

// Record persists run as a new entry and returns it.
func (h *History) Record(op OperationType, run Run) (*Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now().UTC()
	entry := &Entry{
		ID:        generateID(op, now),
		Timestamp: now,
		Operation: op,
		Target:    run.Target,
		Success:   run.Err == nil,
		Duration:  run.Duration,
		Steps:     run.Steps,
		Assets:    run.Assets,
	}
	if run.Err != nil {
		entry.Error = run.Err.Error()
	}
	for _, a := range run.Assets {
		entry.Summary.TotalAssets++
		entry.Summary.TotalBytes += a.Size
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := h.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}

	logging.Get("history").Debug("recorded run", "id", entry.ID, "success", entry.Success)
	return entry, nil
}

func (h *History) writeEntry(entry *Entry) error {
	path := filepath.Join(h.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of 0 or less returns all of them.
// Files that cannot be parsed are skipped.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, err := h.readEntryFile(id + ".json")
	if err == nil && entry.ID == id {
		return entry, nil
	}

	// Files may have been renamed by hand.
	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Cleanup removes entries whose files are older than retentionDays and
// returns how many were removed. A retention of 0 or less keeps everything.
func (h *History) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	logger := logging.Get("history")
	cutoff := h.now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(h.dir, f.Name())); err != nil {
			logger.Warn("failed to remove history entry", "file", f.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("pruned history", "removed", removed, "retention_days", retentionDays)
	}
	return removed, nil
}

func (h *History) readAll() ([]Entry, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := h.readEntryFile(f.Name())
		if err != nil {
			logging.Get("history").Debug("skipping unreadable entry", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (h *History) readEntryFile(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// generateID creates an ID like "deploy-2026-10-16T10-30-00-1b4e28ba".
func generateID(op OperationType, ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", op, ts.Format("2006-01-02T15-04-05"), suffix)
}

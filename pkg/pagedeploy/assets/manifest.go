// Package assets merges directories of new images into a numbered asset
// collection tracked by a JSON manifest of zero-padded identifiers.
package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// DefaultPadWidth is the digit count used to format identifiers.
const DefaultPadWidth = 4

var (
	// ErrNotFound is returned when the input directory or manifest is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFormat is returned when a manifest is not a JSON array of
	// strings. A missing manifest also matches it.
	ErrInvalidFormat = errors.New("invalid manifest format")

	// ErrInvalidPadWidth is returned for pad widths below one.
	ErrInvalidPadWidth = errors.New("pad width must be at least 1")

	// ErrCounterOverflow is returned when the next identifier would not fit
	// in an int.
	ErrCounterOverflow = errors.New("identifier counter overflow")
)

// LoadManifest reads and parses the manifest at path.
func LoadManifest(fsys afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest %s: %w: %w", path, ErrNotFound, ErrInvalidFormat)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	entries, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return entries, nil
}

// ParseManifest decodes a manifest document. Only valid UTF-8 holding a JSON
// array whose elements are all strings is accepted.
func ParseManifest(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrInvalidFormat)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrInvalidFormat, jsonKind(raw))
	}

	entries := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s, want string", ErrInvalidFormat, i, jsonKind(item))
		}
		entries = append(entries, s)
	}
	return entries, nil
}

// EncodeManifest renders entries as an indented JSON array. Non-ASCII and
// HTML characters are written as-is.
func EncodeManifest(entries []string) ([]byte, error) {
	if entries == nil {
		entries = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveManifest replaces the manifest at path. The new content is written to
// a temp file in the same directory and renamed over the original.
func SaveManifest(fsys afero.Fs, path string, entries []string) error {
	data, err := EncodeManifest(entries)
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, err := fsys.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	_ = fsys.Chmod(tmpPath, mode)

	if err := fsys.Rename(tmpPath, path); err != nil {
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}

// NextCounter returns one more than the largest all-digit entry, or 1 when
// there is none. Entries with other characters are ignored. An entry at or
// beyond the int range yields ErrCounterOverflow.
func NextCounter(entries []string) (int, error) {
	highest := 0
	for _, e := range entries {
		if !isDigits(e) {
			continue
		}
		n, err := strconv.Atoi(e)
		if err != nil {
			return 0, fmt.Errorf("%w: entry %q", ErrCounterOverflow, e)
		}
		if n > highest {
			highest = n
		}
	}
	return advance(highest)
}

// advance returns n+1, or ErrCounterOverflow when n is math.MaxInt.
func advance(n int) (int, error) {
	if n == math.MaxInt {
		return 0, fmt.Errorf("%w: no identifier after %d", ErrCounterOverflow, n)
	}
	return n + 1, nil
}

// FormatID formats n as a decimal string zero-padded to width digits.
func FormatID(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Package output provides formatters for displaying deploy reports, import
// results, and run history in various formats (pretty, plain, json, yaml,
// template, paths).
//
// The package uses a registry pattern so formatters can be selected by name
// at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromDeploy(report, runErr)); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Operation names used in Result.Operation.
const (
	OpDeploy  = "deploy"
	OpImport  = "import"
	OpHistory = "history"
)

// StepInfo is one pipeline step.
type StepInfo struct {
	Name     string
	Status   string
	Duration time.Duration
	Error    string
}

// AssetInfo is one imported image.
type AssetInfo struct {
	// ID is the identifier recorded in the manifest.
	ID string

	// Source is the original file name.
	Source string

	// Path is where the copy was written.
	Path string

	// Size is the file size in bytes.
	Size int64

	// SizeHuman is the human-readable file size (e.g., "1.5 MiB").
	SizeHuman string
}

// RunInfo is one entry from the run history.
type RunInfo struct {
	ID        string
	Timestamp time.Time
	Operation string
	Target    string
	Success   bool
	Duration  time.Duration
	Assets    int
	Error     string
}

// Result contains the data for formatting. Which sections are populated
// depends on Operation.
type Result struct {
	// Operation is OpDeploy, OpImport, or OpHistory.
	Operation string

	// Target is the repository ("user/repo") or import directory.
	Target string

	Started  time.Time
	Duration time.Duration
	Success  bool
	Error    string

	Steps  []StepInfo
	Assets []AssetInfo

	// ManifestEntries is the manifest length after an import.
	ManifestEntries int

	// NothingToDo is set when an import found no input files.
	NothingToDo bool

	// Runs holds history entries, newest first.
	Runs []RunInfo
}

// TotalSize returns the sum of all imported asset sizes.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, a := range r.Assets {
		total += a.Size
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any existing
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
)

// Extension is appended to every identifier to name the output file,
// whatever the source file's extension was.
const Extension = ".jpg"

// Request describes one import.
type Request struct {
	// InputDir holds the new files. Only its direct regular files are read.
	InputDir string

	// ManifestPath is the JSON array of identifiers to extend.
	ManifestPath string

	// OutputDir receives <id>.jpg files. Created on first use.
	OutputDir string

	// PadWidth is the identifier width. Zero means DefaultPadWidth.
	PadWidth int
}

// Assignment records where one source file ended up.
type Assignment struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// Result is the outcome of an import.
type Result struct {
	// Assigned lists new identifiers in processing order.
	Assigned []Assignment `json:"assigned"`

	// Manifest is the manifest content after the import.
	Manifest []string `json:"manifest"`

	// NothingToDo is set when the input directory had no files.
	NothingToDo bool `json:"nothing_to_do"`
}

// IDs returns the newly assigned identifiers in order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Assigned))
	for i, a := range r.Assigned {
		ids[i] = a.ID
	}
	return ids
}

// TotalSize returns the number of bytes copied.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, a := range r.Assigned {
		total += a.Size
	}
	return total
}

// Importer copies input files into a numbered collection.
type Importer struct {
	fs afero.Fs
}

// Option configures an Importer.
type Option func(*Importer)

// WithFs sets the file system the importer works on.
func WithFs(fsys afero.Fs) Option {
	return func(i *Importer) {
		i.fs = fsys
	}
}

// NewImporter creates an importer on the OS file system unless WithFs is given.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import merges the files of inputDir into outputDir on the OS file system
// and appends their identifiers to the manifest at manifestPath.
func Import(inputDir, manifestPath, outputDir string, padWidth int) (*Result, error) {
	return NewImporter().Import(Request{
		InputDir:     inputDir,
		ManifestPath: manifestPath,
		OutputDir:    outputDir,
		PadWidth:     padWidth,
	})
}

// Import runs the request. Validation failures return before anything is
// written. If a copy or the manifest write fails, the files created by this
// call are removed and the manifest keeps its previous content.
func (i *Importer) Import(req Request) (*Result, error) {
	logger := logging.Get("assets")

	width := req.PadWidth
	if width == 0 {
		width = DefaultPadWidth
	}
	if width < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPadWidth, width)
	}

	info, err := i.fs.Stat(req.InputDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("input directory %s: %w", req.InputDir, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("input directory %s: %w", req.InputDir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("input directory %s is not a directory: %w", req.InputDir, ErrNotFound)
	}

	original, err := LoadManifest(i.fs, req.ManifestPath)
	if err != nil {
		return nil, err
	}

	sources, err := i.listInputs(req.InputDir)
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		logger.Info("nothing to do", "input", req.InputDir)
		return &Result{Manifest: original, NothingToDo: true}, nil
	}

	counter, err := NextCounter(original)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", req.ManifestPath, err)
	}

	if err := i.fs.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", req.OutputDir, err)
	}
	logger.Debug("starting import", "files", len(sources), "counter", counter)

	result := &Result{}
	for n, src := range sources {
		if n > 0 {
			if counter, err = advance(counter); err != nil {
				i.rollback(result.Assigned)
				return nil, err
			}
		}
		a, used, err := i.place(src, req.OutputDir, counter, width)
		if err != nil {
			i.rollback(result.Assigned)
			return nil, err
		}
		counter = used
		result.Assigned = append(result.Assigned, a)
		logger.Info("imported asset", "source", filepath.Base(a.Source), "id", a.ID)
	}

	merged := make([]string, 0, len(original)+len(result.Assigned))
	merged = append(merged, original...)
	merged = append(merged, result.IDs()...)

	if err := SaveManifest(i.fs, req.ManifestPath, merged); err != nil {
		i.rollback(result.Assigned)
		return nil, err
	}

	result.Manifest = merged
	logger.Info("manifest updated", "path", req.ManifestPath, "added", len(result.Assigned), "total", len(merged))
	return result, nil
}

type source struct {
	path string
	info os.FileInfo
}

// listInputs returns the regular files directly inside dir, sorted by
// case-insensitive name with the exact name breaking ties.
func (i *Importer) listInputs(dir string) ([]source, error) {
	infos, err := afero.ReadDir(i.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var sources []source
	for _, info := range infos {
		path := filepath.Join(dir, info.Name())
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := i.fs.Stat(path)
			if err != nil {
				continue
			}
			info = target
		}
		if !info.Mode().IsRegular() {
			continue
		}
		sources = append(sources, source{path: path, info: info})
	}

	sort.SliceStable(sources, func(a, b int) bool {
		na, nb := filepath.Base(sources[a].path), filepath.Base(sources[b].path)
		la, lb := strings.ToLower(na), strings.ToLower(nb)
		if la != lb {
			return la < lb
		}
		return na < nb
	})
	return sources, nil
}

// place copies src to the first free identifier at or after counter and
// returns the assignment and the counter value it used.
func (i *Importer) place(src source, outputDir string, counter, width int) (Assignment, int, error) {
	for {
		id := FormatID(counter, width)
		dst := filepath.Join(outputDir, id+Extension)

		_, err := i.fs.Stat(dst)
		if err == nil {
			logging.Get("assets").Debug("identifier taken on disk", "id", id)
			if counter, err = advance(counter); err != nil {
				return Assignment{}, 0, err
			}
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Assignment{}, 0, fmt.Errorf("checking %s: %w", dst, err)
		}

		size, err := i.copyFile(src, dst)
		if errors.Is(err, fs.ErrExist) {
			if counter, err = advance(counter); err != nil {
				return Assignment{}, 0, err
			}
			continue
		}
		if err != nil {
			return Assignment{}, 0, err
		}

		return Assignment{Source: src.path, ID: id, Path: dst, Size: size}, counter, nil
	}
}

// copyFile creates dst exclusively and copies src into it, then carries over
// permissions and modification time on a best-effort basis.
func (i *Importer) copyFile(src source, dst string) (int64, error) {
	in, err := i.fs.Open(src.path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", src.path, err)
	}
	defer in.Close()

	out, err := i.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, err
		}
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = i.fs.Remove(dst)
		return 0, fmt.Errorf("copying %s to %s: %w", src.path, dst, err)
	}

	_ = i.fs.Chmod(dst, src.info.Mode().Perm())
	mtime := src.info.ModTime()
	if err := i.fs.Chtimes(dst, mtime, mtime); err != nil {
		logging.Get("assets").Debug("could not copy modification time", "path", dst, "error", err)
	}
	return n, nil
}

func (i *Importer) rollback(assigned []Assignment) {
	logger := logging.Get("assets")
	for j := len(assigned) - 1; j >= 0; j-- {
		if err := i.fs.Remove(assigned[j].Path); err != nil {
			logger.Warn("could not remove imported file", "path", assigned[j].Path, "error", err)
		}
	}
	if len(assigned) > 0 {
		logger.Warn("import rolled back", "removed", len(assigned))
	}
}

package output

import "time"

// document is the structure written by the json and yaml formatters.
type document struct {
	Operation string      `json:"operation" yaml:"operation"`
	Target    string      `json:"target,omitempty" yaml:"target,omitempty"`
	Started   *time.Time  `json:"started,omitempty" yaml:"started,omitempty"`
	Duration  string      `json:"duration,omitempty" yaml:"duration,omitempty"`
	Success   bool        `json:"success" yaml:"success"`
	Error     string      `json:"error,omitempty" yaml:"error,omitempty"`
	Steps     []docStep   `json:"steps,omitempty" yaml:"steps,omitempty"`
	Assets    []docAsset  `json:"assets,omitempty" yaml:"assets,omitempty"`
	Summary   *docSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Runs      []docRun    `json:"runs,omitempty" yaml:"runs,omitempty"`
}

type docStep struct {
	Name     string `json:"name" yaml:"name"`
	Status   string `json:"status" yaml:"status"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

type docAsset struct {
	ID        string `json:"id" yaml:"id"`
	Source    string `json:"source" yaml:"source"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`
}

type docSummary struct {
	Imported        int   `json:"imported" yaml:"imported"`
	TotalSize       int64 `json:"total_size" yaml:"total_size"`
	ManifestEntries int   `json:"manifest_entries" yaml:"manifest_entries"`
	NothingToDo     bool  `json:"nothing_to_do" yaml:"nothing_to_do"`
}

type docRun struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Operation string    `json:"operation" yaml:"operation"`
	Target    string    `json:"target" yaml:"target"`
	Success   bool      `json:"success" yaml:"success"`
	Duration  string    `json:"duration,omitempty" yaml:"duration,omitempty"`
	Assets    int       `json:"assets" yaml:"assets"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// buildDocument converts Result to the serialized structure.
func buildDocument(r *Result) document {
	doc := document{
		Operation: r.Operation,
		Target:    r.Target,
		Duration:  formatDurationString(r.Duration),
		Success:   r.Success,
		Error:     r.Error,
	}
	if !r.Started.IsZero() {
		started := r.Started
		doc.Started = &started
	}

	for _, s := range r.Steps {
		doc.Steps = append(doc.Steps, docStep{
			Name:     s.Name,
			Status:   s.Status,
			Duration: formatDurationString(s.Duration),
			Error:    s.Error,
		})
	}

	for _, a := range r.Assets {
		doc.Assets = append(doc.Assets, docAsset{
			ID:        a.ID,
			Source:    a.Source,
			Path:      a.Path,
			Size:      a.Size,
			SizeHuman: a.SizeHuman,
		})
	}

	if r.Operation != OpHistory {
		doc.Summary = &docSummary{
			Imported:        len(r.Assets),
			TotalSize:       r.TotalSize(),
			ManifestEntries: r.ManifestEntries,
			NothingToDo:     r.NothingToDo,
		}
	}

	for _, run := range r.Runs {
		doc.Runs = append(doc.Runs, docRun{
			ID:        run.ID,
			Timestamp: run.Timestamp,
			Operation: run.Operation,
			Target:    run.Target,
			Success:   run.Success,
			Duration:  formatDurationString(run.Duration),
			Assets:    run.Assets,
			Error:     run.Error,
		})
	}

	return doc
}

// formatDurationString formats a duration for serialized output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

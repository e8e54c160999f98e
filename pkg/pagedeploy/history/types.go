// Package history keeps a record of deploy and import runs as one JSON file
// per run under the state directory.
package history

import "time"

// OperationType is the kind of run recorded.
type OperationType string

const (
	// OpDeploy is a full deploy pipeline run.
	OpDeploy OperationType = "deploy"
	// OpImport is a standalone asset import.
	OpImport OperationType = "import"
)

// Entry is one recorded run.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Target    string        `json:"target"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Steps     []StepRecord  `json:"steps,omitempty"`
	Assets    []AssetRecord `json:"assets,omitempty"`
	Summary   Summary       `json:"summary"`
}

// StepRecord is the outcome of one pipeline step.
type StepRecord struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// AssetRecord is one imported file.
type AssetRecord struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Size   int64  `json:"size"`
}

// Summary contains run totals.
type Summary struct {
	TotalAssets int   `json:"total_assets"`
	TotalBytes  int64 `json:"total_bytes"`
}

// Run is what callers hand to Record.
type Run struct {
	Target   string
	Duration time.Duration
	Steps    []StepRecord
	Assets   []AssetRecord
	Err      error
}

package output

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/assets"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/deploy"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/history"
)

// FromDeploy builds a Result from a pipeline report and the error Run
// returned with it.
func FromDeploy(rep *deploy.Report, runErr error) *Result {
	r := &Result{Operation: OpDeploy, Success: runErr == nil}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if rep == nil {
		return r
	}

	r.Target = rep.Target
	r.Started = rep.Started
	r.Duration = rep.Duration
	for _, s := range rep.Steps {
		r.Steps = append(r.Steps, StepInfo{
			Name:     s.Name,
			Status:   string(s.Status),
			Duration: s.Duration,
			Error:    s.Error,
		})
	}
	if rep.Import != nil {
		r.Assets = assetInfos(rep.Import)
		r.ManifestEntries = len(rep.Import.Manifest)
		r.NothingToDo = rep.Import.NothingToDo
	}
	return r
}

// FromImport builds a Result from a standalone import.
func FromImport(res *assets.Result, target string, elapsed time.Duration) *Result {
	r := &Result{
		Operation: OpImport,
		Target:    target,
		Duration:  elapsed,
		Success:   true,
	}
	if res != nil {
		r.Assets = assetInfos(res)
		r.ManifestEntries = len(res.Manifest)
		r.NothingToDo = res.NothingToDo
	}
	return r
}

// FromHistory builds a Result listing history entries.
func FromHistory(entries []history.Entry) *Result {
	r := &Result{Operation: OpHistory, Success: true}
	for _, e := range entries {
		r.Runs = append(r.Runs, RunInfo{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Operation: string(e.Operation),
			Target:    e.Target,
			Success:   e.Success,
			Duration:  e.Duration,
			Assets:    e.Summary.TotalAssets,
			Error:     e.Error,
		})
	}
	return r
}

// FromEntry builds a detailed Result for a single history entry.
func FromEntry(e *history.Entry) *Result {
	r := &Result{
		Operation: string(e.Operation),
		Target:    e.Target,
		Started:   e.Timestamp,
		Duration:  e.Duration,
		Success:   e.Success,
		Error:     e.Error,
	}
	for _, s := range e.Steps {
		r.Steps = append(r.Steps, StepInfo{Name: s.Name, Status: s.Status, Duration: s.Duration, Error: s.Error})
	}
	for _, a := range e.Assets {
		r.Assets = append(r.Assets, AssetInfo{
			ID:        a.ID,
			Source:    a.Source,
			Size:      a.Size,
			SizeHuman: humanize.IBytes(uint64(a.Size)),
		})
	}
	return r
}

// HistoryRun converts a pipeline report into a history record.
func HistoryRun(rep *deploy.Report, runErr error) history.Run {
	run := history.Run{Err: runErr}
	if rep == nil {
		return run
	}
	run.Target = rep.Target
	run.Duration = rep.Duration
	for _, s := range rep.Steps {
		run.Steps = append(run.Steps, history.StepRecord{
			Name:     s.Name,
			Status:   string(s.Status),
			Duration: s.Duration,
			Error:    s.Error,
		})
	}
	if rep.Import != nil {
		run.Assets = AssetRecords(rep.Import)
	}
	return run
}

// AssetRecords converts import assignments into history records.
func AssetRecords(res *assets.Result) []history.AssetRecord {
	records := make([]history.AssetRecord, 0, len(res.Assigned))
	for _, a := range res.Assigned {
		records = append(records, history.AssetRecord{ID: a.ID, Source: a.Source, Size: a.Size})
	}
	return records
}

func assetInfos(res *assets.Result) []AssetInfo {
	infos := make([]AssetInfo, 0, len(res.Assigned))
	for _, a := range res.Assigned {
		infos = append(infos, AssetInfo{
			ID:        a.ID,
			Source:    a.Source,
			Path:      a.Path,
			Size:      a.Size,
			SizeHuman: humanize.IBytes(uint64(a.Size)),
		})
	}
	return infos
}

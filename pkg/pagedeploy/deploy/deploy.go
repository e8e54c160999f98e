// Package deploy publishes a front-end project from a remote repository to
// its static-hosting branch: clone, optional asset import with commit and
// push, dependency install, production build, publish, then removal of the
// clone. Steps run one after another; the first failure stops the run.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/assets"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/runner"
)

// DefaultHostURL is the git host repositories are cloned from.
const DefaultHostURL = "https://www.github.com"

// Step names, in execution order.
const (
	StepClone   = "clone"
	StepAssets  = "assets"
	StepInstall = "install"
	StepBuild   = "build"
	StepPublish = "publish"
	StepCleanup = "cleanup"
)

var (
	// ErrMissingTarget is returned when the username or repository is empty.
	ErrMissingTarget = errors.New("username and repository are required")

	// ErrCloneExists is returned when the clone directory is already present.
	// Such a directory is never removed by cleanup.
	ErrCloneExists = errors.New("clone directory already exists")
)

// Options selects what to deploy and how.
type Options struct {
	HostURL  string
	Username string
	Repo     string

	// Project is the directory inside the clone holding the front-end
	// project. Defaults to Repo.
	Project string

	// WorkDir is where the clone is created. Defaults to ".".
	WorkDir string

	// Assets enables the import step when non-nil.
	Assets *AssetOptions

	// KeepClone skips the cleanup step.
	KeepClone bool
}

// AssetOptions configures the import step. Manifest and OutputDir are
// relative to the project directory.
type AssetOptions struct {
	InputDir      string
	Manifest      string
	OutputDir     string
	PadWidth      int
	CommitMessage string
}

// DefaultCommitMessage is used when AssetOptions.CommitMessage is empty.
const DefaultCommitMessage = "Add new images"

// Target returns "username/repo".
func (o Options) Target() string {
	return o.Username + "/" + o.Repo
}

// RepoURL returns the clone URL for user/repo on host.
func RepoURL(host, username, repo string) string {
	return fmt.Sprintf("%s/%s/%s.git", strings.TrimSuffix(host, "/"), username, repo)
}

func (o Options) withDefaults() Options {
	if o.HostURL == "" {
		o.HostURL = DefaultHostURL
	}
	if o.Project == "" {
		o.Project = o.Repo
	}
	if o.WorkDir == "" {
		o.WorkDir = "."
	}
	if o.Assets != nil && o.Assets.CommitMessage == "" {
		a := *o.Assets
		a.CommitMessage = DefaultCommitMessage
		o.Assets = &a
	}
	return o
}

func (o Options) cloneDir() string {
	return filepath.Join(o.WorkDir, o.Repo)
}

func (o Options) projectDir() string {
	return filepath.Join(o.cloneDir(), o.Project)
}

// Status is the outcome of a step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records one step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Report summarizes a pipeline run.
type Report struct {
	Target   string         `json:"target"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Steps    []StepResult   `json:"steps"`
	Import   *assets.Result `json:"import,omitempty"`

	// ownsClone is set once this run starts a clone into a directory that
	// did not exist. Cleanup removes nothing otherwise.
	ownsClone bool
}

// Failed returns the first failed step, or nil.
func (r *Report) Failed() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == StatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// StepError reports the step that stopped the pipeline.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline runs deploy steps through a runner.Runner.
type Pipeline struct {
	runner   runner.Runner
	fs       afero.Fs
	importer *assets.Importer
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs sets the file system used for the import step and cleanup.
func WithFs(fsys afero.Fs) Option {
	return func(p *Pipeline) {
		p.fs = fsys
	}
}

// New returns a pipeline that runs commands with r.
func New(r runner.Runner, opts ...Option) *Pipeline {
	p := &Pipeline{
		runner: r,
		fs:     afero.NewOsFs(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.importer = assets.NewImporter(assets.WithFs(p.fs))
	return p
}

type step struct {
	name string
	run  func(ctx context.Context, o Options, rep *Report) (string, bool, error)
}

// Run executes the pipeline. The returned report is complete even when err
// is non-nil. Cleanup runs after a failed step too, unless KeepClone is set.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Username == "" || opts.Repo == "" {
		return nil, ErrMissingTarget
	}
	opts = opts.withDefaults()
	logger := logging.Get("deploy").With("target", opts.Target())

	rep := &Report{Target: opts.Target(), Started: p.now()}

	steps := []step{
		{StepClone, p.clone},
		{StepAssets, p.importAssets},
		{StepInstall, p.install},
		{StepBuild, p.build},
		{StepPublish, p.publish},
	}

	var runErr error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := p.runStep(ctx, logger, s, opts, rep); err != nil {
			runErr = err
			break
		}
	}

	if opts.KeepClone {
		rep.Steps = append(rep.Steps, StepResult{Name: StepCleanup, Status: StatusSkipped})
		logger.Info("keeping clone", "dir", opts.cloneDir())
	} else if err := p.runStep(ctx, logger, step{StepCleanup, p.cleanup}, opts, rep); err != nil && runErr == nil {
		runErr = err
	}

	rep.Duration = p.now().Sub(rep.Started)
	if runErr != nil {
		logger.Error("deploy failed", "error", runErr)
		return rep, runErr
	}
	logger.Info("deploy finished", "elapsed", rep.Duration)
	return rep, nil
}

func (p *Pipeline) runStep(ctx context.Context, logger *logging.Logger, s step, opts Options, rep *Report) error {
	logger.Info(s.name + " started")
	start := p.now()

	output, skipped, err := s.run(ctx, opts, rep)
	res := StepResult{Name: s.name, Duration: p.now().Sub(start)}

	switch {
	case err != nil:
		res.Status = StatusFailed
		res.Output = output
		res.Error = err.Error()
		rep.Steps = append(rep.Steps, res)
		logger.Error(s.name+" failed", "error", err)
		if output != "" {
			logger.Error(s.name+" output", "output", output)
		}
		return &StepError{Step: s.name, Err: err}
	case skipped:
		res.Status = StatusSkipped
		logger.Info(s.name + " skipped")
	default:
		res.Status = StatusOK
		logger.Info(s.name+" finished", "elapsed", res.Duration)
	}
	rep.Steps = append(rep.Steps, res)
	return nil
}

// exec runs one command and folds a non-zero exit into the error.
func (p *Pipeline) exec(ctx context.Context, dir, name string, args ...string) (string, error) {
	res, err := p.runner.Run(ctx, dir, name, args...)
	if err != nil {
		return res.Output, err
	}
	return res.Output, res.Err()
}

func (p *Pipeline) clone(ctx context.Context, o Options, rep *Report) (string, bool, error) {
	dir := o.cloneDir()
	exists, err := afero.Exists(p.fs, dir)
	if err != nil {
		return "", false, fmt.Errorf("checking %s: %w", dir, err)
	}
	if exists {
		return "", false, fmt.Errorf("%s: %w", dir, ErrCloneExists)
	}

	rep.ownsClone = true
	out, err := p.exec(ctx, o.WorkDir, "git", "clone", RepoURL(o.HostURL, o.Username, o.Repo))
	return out, false, err
}

func (p *Pipeline) importAssets(ctx context.Context, o Options, rep *Report) (string, bool, error) {
	if o.Assets == nil || o.Assets.InputDir == "" {
		return "", true, nil
	}
	a := o.Assets
	projectDir := o.projectDir()

	result, err := p.importer.Import(assets.Request{
		InputDir:     a.InputDir,
		ManifestPath: filepath.Join(projectDir, a.Manifest),
		OutputDir:    filepath.Join(projectDir, a.OutputDir),
		PadWidth:     a.PadWidth,
	})
	if err != nil {
		return "", false, err
	}
	rep.Import = result
	if result.NothingToDo {
		return "", true, nil
	}

	var combined strings.Builder
	commands := [][]string{
		{"git", "add", "--", a.OutputDir, a.Manifest},
		{"git", "commit", "-m", a.CommitMessage},
		{"git", "push"},
	}
	for _, c := range commands {
		out, err := p.exec(ctx, projectDir, c[0], c[1:]...)
		combined.WriteString(out)
		if err != nil {
			return combined.String(), false, err
		}
	}
	return combined.String(), false, nil
}

func (p *Pipeline) install(ctx context.Context, o Options, _ *Report) (string, bool, error) {
	out, err := p.exec(ctx, o.projectDir(), "npm", "install")
	return out, false, err
}

func (p *Pipeline) build(ctx context.Context, o Options, _ *Report) (string, bool, error) {
	out, err := p.exec(ctx, o.projectDir(), "ng", "build",
		"--configuration", "production",
		"--base-href", "/"+o.Project+"/")
	return out, false, err
}

func (p *Pipeline) publish(ctx context.Context, o Options, _ *Report) (string, bool, error) {
	dist := filepath.ToSlash(filepath.Join("dist", o.Project, "browser"))
	out, err := p.exec(ctx, o.projectDir(), "npx", "angular-cli-ghpages", "--dir="+dist)
	return out, false, err
}

func (p *Pipeline) cleanup(_ context.Context, o Options, rep *Report) (string, bool, error) {
	if !rep.ownsClone {
		return "", true, nil
	}
	dir := o.cloneDir()
	exists, err := afero.DirExists(p.fs, dir)
	if err != nil {
		return "", false, fmt.Errorf("checking %s: %w", dir, err)
	}
	if !exists {
		return "", true, nil
	}
	if err := p.fs.RemoveAll(dir); err != nil {
		return "", false, fmt.Errorf("removing %s: %w", dir, err)
	}
	return "", false, nil
}

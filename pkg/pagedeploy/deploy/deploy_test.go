package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/assets"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/runner"
)

// newClonePipeline returns a pipeline on an in-memory file system whose fake
// "git clone" creates /work/site/site with an images manifest.
func newClonePipeline(t *testing.T, manifest string) (*Pipeline, *runner.Fake, afero.Fs) {
	t.Helper()

	mem := afero.NewMemMapFs()
	fake := runner.NewFake()
	fake.OnRun = func(c runner.Call) error {
		if c.Name == "git" && len(c.Args) > 0 && c.Args[0] == "clone" {
			return afero.WriteFile(mem, "/work/site/site/src/assets/images.json", []byte(manifest), 0o644)
		}
		return nil
	}
	return New(fake, WithFs(mem)), fake, mem
}

func baseOptions() Options {
	return Options{
		Username: "octo",
		Repo:     "site",
		WorkDir:  "/work",
	}
}

func stepStatuses(rep *Report) map[string]Status {
	out := make(map[string]Status, len(rep.Steps))
	for _, s := range rep.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestRun_FullPipelineWithoutAssets(t *testing.T) {
	p, fake, mem := newClonePipeline(t, `[]`)

	rep, err := p.Run(context.Background(), baseOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"git clone https://www.github.com/octo/site.git",
		"npm install",
		"ng build --configuration production --base-href /site/",
		"npx angular-cli-ghpages --dir=dist/site/browser",
	}, fake.Lines())

	calls := fake.Calls()
	assert.Equal(t, "/work", calls[0].Dir)
	for _, c := range calls[1:] {
		assert.Equal(t, "/work/site/site", c.Dir)
	}

	assert.Equal(t, map[string]Status{
		StepClone:   StatusOK,
		StepAssets:  StatusSkipped,
		StepInstall: StatusOK,
		StepBuild:   StatusOK,
		StepPublish: StatusOK,
		StepCleanup: StatusOK,
	}, stepStatuses(rep))
	assert.Nil(t, rep.Failed())
	assert.Equal(t, "octo/site", rep.Target)

	exists, err := afero.DirExists(mem, "/work/site")
	require.NoError(t, err)
	assert.False(t, exists, "clone not removed")
}

func TestRun_ProjectSubdirectory(t *testing.T) {
	mem := afero.NewMemMapFs()
	fake := runner.NewFake()
	p := New(fake, WithFs(mem))

	opts := baseOptions()
	opts.Project = "frontend"
	opts.HostURL = "https://git.example.com/"

	_, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	lines := fake.Lines()
	require.Len(t, lines, 4)
	assert.Equal(t, "git clone https://git.example.com/octo/site.git", lines[0])
	assert.Equal(t, "ng build --configuration production --base-href /frontend/", lines[2])
	assert.Equal(t, "npx angular-cli-ghpages --dir=dist/frontend/browser", lines[3])
	assert.Equal(t, "/work/site/frontend", fake.Calls()[1].Dir)
}

func TestRun_ImportsCommitsAndPushesAssets(t *testing.T) {
	p, fake, mem := newClonePipeline(t, `["0001"]`)
	require.NoError(t, afero.WriteFile(mem, "/incoming/b.png", []byte("b"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/incoming/a.png", []byte("a"), 0o644))

	opts := baseOptions()
	opts.KeepClone = true
	opts.Assets = &AssetOptions{
		InputDir:  "/incoming",
		Manifest:  "src/assets/images.json",
		OutputDir: "src/assets/images",
		PadWidth:  4,
	}

	rep, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"git clone https://www.github.com/octo/site.git",
		"git add -- src/assets/images src/assets/images.json",
		`git commit -m "Add new images"`,
		"git push",
		"npm install",
		"ng build --configuration production --base-href /site/",
		"npx angular-cli-ghpages --dir=dist/site/browser",
	}, fake.Lines())

	require.NotNil(t, rep.Import)
	assert.Equal(t, []string{"0002", "0003"}, rep.Import.IDs())
	assert.Equal(t, StatusOK, stepStatuses(rep)[StepAssets])
	assert.Equal(t, StatusSkipped, stepStatuses(rep)[StepCleanup])

	manifest, err := assets.LoadManifest(mem, "/work/site/site/src/assets/images.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001", "0002", "0003"}, manifest)

	data, err := afero.ReadFile(mem, "/work/site/site/src/assets/images/0002.jpg")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestRun_NothingToImportSkipsGit(t *testing.T) {
	p, fake, mem := newClonePipeline(t, `[]`)
	require.NoError(t, mem.MkdirAll("/incoming", 0o755))

	opts := baseOptions()
	opts.Assets = &AssetOptions{
		InputDir:  "/incoming",
		Manifest:  "src/assets/images.json",
		OutputDir: "src/assets/images",
	}

	rep, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	for _, line := range fake.Lines() {
		assert.NotContains(t, line, "git add")
		assert.NotContains(t, line, "git commit")
	}
	assert.Equal(t, StatusSkipped, stepStatuses(rep)[StepAssets])
	require.NotNil(t, rep.Import)
	assert.True(t, rep.Import.NothingToDo)
}

func TestRun_FailedStepStopsPipelineButCleansUp(t *testing.T) {
	p, fake, mem := newClonePipeline(t, `[]`)
	fake.Respond("ng", runner.Response{ExitCode: 1, Output: "error TS2304: Cannot find name"})

	rep, err := p.Run(context.Background(), baseOptions())
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepBuild, stepErr.Step)

	var exitErr *runner.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)

	for _, line := range fake.Lines() {
		assert.NotContains(t, line, "angular-cli-ghpages", "publish ran after failed build")
	}

	failed := rep.Failed()
	require.NotNil(t, failed)
	assert.Equal(t, StepBuild, failed.Name)
	assert.Contains(t, failed.Output, "TS2304")
	assert.Equal(t, StatusOK, stepStatuses(rep)[StepCleanup])

	exists, err := afero.DirExists(mem, "/work/site")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_CloneFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	fake := runner.NewFake()
	fake.Respond("git clone", runner.Response{ExitCode: 128, Output: "fatal: repository not found"})

	rep, err := New(fake, WithFs(mem)).Run(context.Background(), baseOptions())
	require.Error(t, err)

	assert.Equal(t, []string{"git clone https://www.github.com/octo/site.git"}, fake.Lines())
	assert.Equal(t, StepClone, rep.Failed().Name)
	assert.Equal(t, StatusSkipped, stepStatuses(rep)[StepCleanup])
}

func TestRun_StartErrorPropagates(t *testing.T) {
	p, fake, _ := newClonePipeline(t, `[]`)
	missing := errors.New("npm: executable file not found")
	fake.Respond("npm", runner.Response{Err: missing})

	_, err := p.Run(context.Background(), baseOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, missing)
}

func TestRun_ImportErrorFailsAssetStep(t *testing.T) {
	p, fake, _ := newClonePipeline(t, `{"not": "an array"}`)

	opts := baseOptions()
	opts.Assets = &AssetOptions{
		InputDir:  "/missing",
		Manifest:  "src/assets/images.json",
		OutputDir: "src/assets/images",
	}

	rep, err := p.Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, assets.ErrNotFound)
	assert.Equal(t, StepAssets, rep.Failed().Name)
	assert.Len(t, fake.Lines(), 1)
}

func TestRun_MissingTarget(t *testing.T) {
	fake := runner.NewFake()

	_, err := New(fake).Run(context.Background(), Options{Repo: "site"})
	assert.ErrorIs(t, err, ErrMissingTarget)

	_, err = New(fake).Run(context.Background(), Options{Username: "octo"})
	assert.ErrorIs(t, err, ErrMissingTarget)

	assert.Empty(t, fake.Calls())
}

func TestRun_CanceledContext(t *testing.T) {
	p, fake, _ := newClonePipeline(t, `[]`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := p.Run(ctx, baseOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.Calls())
	require.Len(t, rep.Steps, 1)
	assert.Equal(t, StepCleanup, rep.Steps[0].Name)
}

func TestRun_ExistingCloneIsLeftAlone(t *testing.T) {
	p, fake, mem := newClonePipeline(t, `[]`)
	require.NoError(t, afero.WriteFile(mem, "/work/site/notes.txt", []byte("local work"), 0o644))

	rep, err := p.Run(context.Background(), baseOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCloneExists)

	assert.Empty(t, fake.Calls())
	assert.Equal(t, StepClone, rep.Failed().Name)
	assert.Equal(t, StatusSkipped, stepStatuses(rep)[StepCleanup])

	data, err := afero.ReadFile(mem, "/work/site/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "local work", string(data))
}

func TestRun_CanceledContextKeepsExistingDirectory(t *testing.T) {
	p, _, mem := newClonePipeline(t, `[]`)
	require.NoError(t, mem.MkdirAll("/work/site", 0o755))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := p.Run(ctx, baseOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusSkipped, stepStatuses(rep)[StepCleanup])

	exists, err := afero.DirExists(mem, "/work/site")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepoURL(t *testing.T) {
	assert.Equal(t, "https://www.github.com/octo/site.git", RepoURL(DefaultHostURL, "octo", "site"))
	assert.Equal(t, "https://example.com/a/b.git", RepoURL("https://example.com/", "a", "b"))
}

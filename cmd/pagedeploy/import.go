package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/assets"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/config"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/history"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/output"
)

var importCmd = &cobra.Command{
	Use:   "import [input-dir]",
	Short: "Import images into a local project",
	Long: `Import copies every file in [input-dir] into the project's image directory
under the next free numeric identifiers and appends them to the manifest.
Nothing is committed; use deploy -i for the clone, commit, and publish flow.

[input-dir] defaults to assets.input_dir from the configuration.

Examples:
  pagedeploy import ~/Pictures/new -C ./portfolio
  pagedeploy import ~/Pictures/new --manifest data/images.json --output-dir public/img`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	addImportFlags(importCmd.Flags())
	rootCmd.AddCommand(importCmd)
}

func addImportFlags(f *pflag.FlagSet) {
	f.StringP("project-dir", "C", ".", "project directory the manifest and output paths are relative to")
	f.String("manifest", "", "manifest path relative to the project")
	f.String("output-dir", "", "image directory relative to the project")
	f.Int("pad-width", 0, "minimum digits in new image identifiers")
	f.Bool("no-history", false, "do not record this run")
}

// buildImportRequest resolves the import paths from configuration, flags,
// and arguments.
func buildImportRequest(cmd *cobra.Command, cfg *config.Config, args []string) (assets.Request, string, error) {
	f := cmd.Flags()

	inputDir := cfg.Assets.InputDir
	if len(args) > 0 {
		inputDir = args[0]
	}
	if inputDir == "" {
		return assets.Request{}, "", fmt.Errorf("no input directory: pass one or set assets.input_dir")
	}
	inputDir, err := config.ExpandPath(inputDir)
	if err != nil {
		return assets.Request{}, "", err
	}

	projectDir, _ := f.GetString("project-dir")
	if projectDir, err = config.ExpandPath(projectDir); err != nil {
		return assets.Request{}, "", err
	}

	manifest, outputDir, padWidth := cfg.Assets.Manifest, cfg.Assets.OutputDir, cfg.Assets.PadWidth
	if f.Changed("manifest") {
		manifest, _ = f.GetString("manifest")
	}
	if f.Changed("output-dir") {
		outputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("pad-width") {
		padWidth, _ = f.GetInt("pad-width")
	}

	req := assets.Request{
		InputDir:     inputDir,
		ManifestPath: joinProject(projectDir, manifest),
		OutputDir:    joinProject(projectDir, outputDir),
		PadWidth:     padWidth,
	}
	return req, projectDir, nil
}

// joinProject resolves p against the project directory unless it is absolute.
func joinProject(projectDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	req, projectDir, err := buildImportRequest(cmd, cfg, args)
	if err != nil {
		return err
	}

	printVerbose("Importing %s into %s", req.InputDir, req.OutputDir)
	printVerbose("Manifest: %s", req.ManifestPath)

	start := time.Now()
	res, importErr := assets.NewImporter().Import(req)
	elapsed := time.Since(start)

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		run := history.Run{Target: projectDir, Duration: elapsed, Err: importErr}
		if res != nil {
			run.Assets = output.AssetRecords(res)
		}
		recordRun(cfg, history.OpImport, run)
	}

	if importErr != nil {
		return importErr
	}
	return render(cmd, output.FromImport(res, projectDir, elapsed))
}

// Package config provides configuration management for pagedeploy.
package config

import "time"

// Default configuration values for pagedeploy.
const (
	// AppName names the config, state, and log directories.
	AppName = "pagedeploy"

	// EnvPrefix prefixes environment overrides, e.g. PAGEDEPLOY_HOST_URL.
	EnvPrefix = "PAGEDEPLOY"

	// DefaultHostURL is the git host repositories are cloned from.
	DefaultHostURL = "https://www.github.com"

	// DefaultWorkDir is where clones are created.
	DefaultWorkDir = "."

	// DefaultCommandTimeout bounds each external command.
	DefaultCommandTimeout = 30 * time.Minute

	// DefaultManifest is the image manifest path inside the project.
	DefaultManifest = "src/assets/images.json"

	// DefaultOutputDir is where imported images go inside the project.
	DefaultOutputDir = "src/assets/images"

	// DefaultPadWidth is the minimum digit count of image identifiers.
	DefaultPadWidth = 4

	// DefaultCommitMessage is used when committing imported images.
	DefaultCommitMessage = "Add new images"

	// DefaultRetentionDays is how long run history is kept.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"
)

// DefaultComponentLevels are the per-component log levels written by
// config init.
var DefaultComponentLevels = map[string]string{
	"deploy":  "info",
	"assets":  "info",
	"runner":  "info",
	"history": "warn",
}

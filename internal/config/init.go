package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Example returns the configuration written by Init.
func Example() Config {
	return Config{
		Source:     DefaultSource,
		Target:     DefaultTarget,
		Clean:      true,
		Data:       []string{DefaultDataFile},
		Layouts:    DefaultLayouts,
		Assets:     DefaultAssets,
		Images:     DefaultImages,
		Extensions: []string{".html", ".md"},
		Build:      BuildConfig{Concurrency: 0},
		Sanitize: SanitizeConfig{
			AllowedTags: nil,
		},
		State: StateConfig{Path: DefaultStatePath},
		Site:  SiteConfig{BaseURL: "https://example.com"},
	}
}

// Init writes an example configuration file. An existing file is only
// replaced when force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.InternalError("failed to marshal config").WithCause(err).Build()
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.FileSystemError("failed to write config file").WithCause(err).WithContext("path", configPath).Build()
	}
	return nil
}

// Package config loads sitebuilder settings from defaults, an optional YAML
// file, a .env file and SITEBUILDER_ environment variables.
package config

import (
	"path/filepath"
)

// Default file names searched in the working directory when no config file is given.
var DefaultConfigFiles = []string{"sitebuilder.yaml", "sitebuilder.yml"}

// Defaults mirror the layout of a conventional site checkout.
const (
	DefaultSource    = "src"
	DefaultTarget    = "target"
	DefaultLayouts   = "layouts"
	DefaultAssets    = "assets"
	DefaultImages    = "assets/images"
	DefaultDataFile  = "data.yml"
	DefaultStatePath = ".sitebuilder/manifest.db"
	EnvPrefix        = "SITEBUILDER_"
)

// Config is the resolved configuration. Source, Target, State.Path and
// Metrics.Textfile are absolute after Load; Layouts, Assets, Images, Data and
// Exclude stay relative to Source.
type Config struct {
	Source     string         `koanf:"source" yaml:"source"`
	Target     string         `koanf:"target" yaml:"target"`
	Clean      bool           `koanf:"clean" yaml:"clean"`
	Data       []string       `koanf:"data" yaml:"data"`
	Layouts    string         `koanf:"layouts" yaml:"layouts"`
	Assets     string         `koanf:"assets" yaml:"assets"`
	Images     string         `koanf:"images" yaml:"images"`
	Extensions []string       `koanf:"extensions" yaml:"extensions"`
	Exclude    []string       `koanf:"exclude" yaml:"exclude,omitempty"`
	Build      BuildConfig    `koanf:"build" yaml:"build"`
	Sanitize   SanitizeConfig `koanf:"sanitize" yaml:"sanitize"`
	State      StateConfig    `koanf:"state" yaml:"state"`
	Metrics    MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Site       SiteConfig     `koanf:"site" yaml:"site"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-" yaml:"-"`
}

// BuildConfig tunes the render fan-out. Zero concurrency means GOMAXPROCS.
type BuildConfig struct {
	Concurrency int `koanf:"concurrency" yaml:"concurrency"`
}

// SanitizeConfig is the HTML allow-list. Omitted lists allow everything.
type SanitizeConfig struct {
	AllowedTags       []string            `koanf:"allowed_tags" yaml:"allowed_tags,omitempty"`
	AllowedAttributes map[string][]string `koanf:"allowed_attributes" yaml:"allowed_attributes,omitempty"`
}

// StateConfig locates the build history database. An empty path disables it.
type StateConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// MetricsConfig enables writing Prometheus metrics to a textfile after each build.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty"`
}

// SiteConfig holds values exposed to templates.
type SiteConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url"`
}

// LayoutsDir is the absolute layouts directory.
func (c *Config) LayoutsDir() string { return c.underSource(c.Layouts) }

// AssetsDir is the absolute static assets directory.
func (c *Config) AssetsDir() string { return c.underSource(c.Assets) }

// ImagesDir is the absolute directory image references resolve against.
func (c *Config) ImagesDir() string { return c.underSource(c.Images) }

// DataFiles returns the absolute data document paths in merge order.
func (c *Config) DataFiles() []string {
	files := make([]string, 0, len(c.Data))
	for _, d := range c.Data {
		files = append(files, c.underSource(d))
	}
	return files
}

// ExcludedDirs lists source-relative directories that never hold content.
func (c *Config) ExcludedDirs() []string {
	dirs := make([]string, 0, len(c.Exclude)+2)
	for _, d := range []string{c.Layouts, c.Assets} {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return append(dirs, c.Exclude...)
}

func (c *Config) underSource(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Source, filepath.FromSlash(p))
}

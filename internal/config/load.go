package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

func defaults() map[string]any {
	return map[string]any{
		"source":            DefaultSource,
		"target":            DefaultTarget,
		"clean":             false,
		"data":              []string{DefaultDataFile},
		"layouts":           DefaultLayouts,
		"assets":            DefaultAssets,
		"images":            DefaultImages,
		"extensions":        []string{".html", ".md"},
		"build.concurrency": 0,
		"state.path":        DefaultStatePath,
		"site.base_url":     "",
	}
}

// Load builds the configuration. Precedence, highest first: environment
// (after .env is applied), the config file, defaults. An explicit cfgFile
// must exist; otherwise DefaultConfigFiles are tried in the working
// directory. Relative paths resolve against the config file's directory, or
// the working directory when no file was used.
func Load(cfgFile string) (*Config, error) {
	if err := LoadEnvFiles("."); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, ferrors.ConfigError("failed to load defaults").WithCause(err).Build()
	}

	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, ferrors.ConfigError("failed to read config file").WithCause(err).WithContext("path", used).Build()
		}
	}

	// SITEBUILDER_BUILD__CONCURRENCY -> build.concurrency
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, ferrors.ConfigError("failed to load environment").WithCause(err).Build()
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, ferrors.ConfigError("unable to decode config").WithCause(err).Build()
	}
	cfg.File = used

	base, err := os.Getwd()
	if err != nil {
		return nil, ferrors.ConfigError("failed to determine working directory").WithCause(err).Build()
	}
	if used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			base = filepath.Dir(abs)
		}
	}
	cfg.Resolve(base)

	slog.Debug("Configuration loaded", logfields.Path(used), slog.String("source", cfg.Source), slog.String("target", cfg.Target))
	return &cfg, nil
}

// LoadEnvFiles applies .env and .env.local from dir without overriding
// variables already set. Missing files are ignored.
func LoadEnvFiles(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return ferrors.ConfigError("failed to load env file").WithCause(err).WithContext("path", p).Build()
		}
		slog.Debug("Loaded environment file", logfields.Path(p))
	}
	return nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", ferrors.ConfigError("configuration file not found").WithCause(err).WithContext("path", explicit).Build()
		}
		return explicit, nil
	}
	for _, name := range DefaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// Resolve makes Source, Target, State.Path and Metrics.Textfile absolute
// against base and normalises extensions.
func (c *Config) Resolve(base string) {
	c.Source = resolvePathRelativeTo(c.Source, base)
	c.Target = resolvePathRelativeTo(c.Target, base)
	if c.State.Path != ":memory:" {
		c.State.Path = resolvePathRelativeTo(c.State.Path, base)
	}
	c.Metrics.Textfile = resolvePathRelativeTo(c.Metrics.Textfile, base)

	exts := make([]string, 0, len(c.Extensions))
	for _, e := range c.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	c.Extensions = exts
}

func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Source == "" {
		return ferrors.ConfigError("source directory is required").Build()
	}
	if c.Target == "" {
		return ferrors.ConfigError("target directory is required").Build()
	}
	if filepath.Clean(c.Source) == filepath.Clean(c.Target) {
		return ferrors.ConfigError("target directory must differ from source").WithContext("path", c.Target).Build()
	}
	if rel, err := filepath.Rel(c.Target, c.Source); err == nil && !strings.HasPrefix(rel, "..") {
		return ferrors.ConfigError("source directory must not be inside target").
			WithContext("source", c.Source).WithContext("target", c.Target).Build()
	}
	if c.Build.Concurrency < 0 {
		return ferrors.ValidationError("build.concurrency must not be negative").
			WithContext("value", c.Build.Concurrency).Build()
	}
	if len(c.Extensions) == 0 {
		return ferrors.ConfigError("at least one content extension is required").Build()
	}
	for _, p := range append([]string{c.Layouts, c.Assets, c.Images}, c.Data...) {
		if filepath.IsAbs(p) {
			continue
		}
		if clean := filepath.Clean(filepath.FromSlash(p)); clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return ferrors.ConfigError(fmt.Sprintf("path %q escapes the source directory", p)).Build()
		}
	}
	return nil
}

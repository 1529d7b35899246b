package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Equal(t, filepath.Join(dir, "src"), cfg.Source)
	assert.Equal(t, filepath.Join(dir, "target"), cfg.Target)
	assert.Equal(t, filepath.Join(dir, ".sitebuilder", "manifest.db"), cfg.State.Path)
	assert.Equal(t, []string{".html", ".md"}, cfg.Extensions)
	assert.Equal(t, filepath.Join(dir, "src", "layouts"), cfg.LayoutsDir())
	assert.Equal(t, filepath.Join(dir, "src", "assets", "images"), cfg.ImagesDir())
	assert.Equal(t, []string{filepath.Join(dir, "src", "data.yml")}, cfg.DataFiles())
	assert.Equal(t, []string{"layouts", "assets"}, cfg.ExcludedDirs())
	assert.Zero(t, cfg.Build.Concurrency)
	assert.Nil(t, cfg.Sanitize.AllowedTags)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	siteDir := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(siteDir, 0o750))
	cfgPath := filepath.Join(siteDir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
source: content
target: public
clean: true
data: [data.yml, extra.yml]
extensions: [html, MD]
build:
  concurrency: 3
sanitize:
  allowed_tags: [p, a]
  allowed_attributes:
    a: [href]
site:
  base_url: https://example.org
`), 0o600))
	t.Chdir(dir)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, cfg.File)
	assert.Equal(t, filepath.Join(siteDir, "content"), cfg.Source)
	assert.Equal(t, filepath.Join(siteDir, "public"), cfg.Target)
	assert.True(t, cfg.Clean)
	assert.Equal(t, []string{".html", ".md"}, cfg.Extensions)
	assert.Len(t, cfg.DataFiles(), 2)
	assert.Equal(t, 3, cfg.Build.Concurrency)
	assert.Equal(t, []string{"p", "a"}, cfg.Sanitize.AllowedTags)
	assert.Equal(t, map[string][]string{"a": {"href"}}, cfg.Sanitize.AllowedAttributes)
	assert.Equal(t, "https://example.org", cfg.Site.BaseURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("sitebuilder.yaml", []byte("build:\n  concurrency: 2\n"), 0o600))
	t.Setenv("SITEBUILDER_BUILD__CONCURRENCY", "6")
	t.Setenv("SITEBUILDER_SITE__BASE_URL", "https://env.example")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sitebuilder.yaml", cfg.File)
	assert.Equal(t, 6, cfg.Build.Concurrency)
	assert.Equal(t, "https://env.example", cfg.Site.BaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SITEBUILDER_TARGET", "")
	require.NoError(t, os.Unsetenv("SITEBUILDER_TARGET"))
	require.NoError(t, os.WriteFile(".env", []byte("SITEBUILDER_TARGET=dist\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dist"), cfg.Target)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope.yaml")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Example()
		cfg.Resolve("/work")
		return &cfg
	}

	tests := map[string]func(*Config){
		"same dirs":            func(c *Config) { c.Target = c.Source },
		"source inside target": func(c *Config) { c.Target = "/work" },
		"negative concurrency": func(c *Config) { c.Build.Concurrency = -1 },
		"no extensions":        func(c *Config) { c.Extensions = nil },
		"escaping images":      func(c *Config) { c.Images = "../images" },
		"empty source":         func(c *Config) { c.Source = "" },
	}
	require.NoError(t, valid().Validate())
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			_, ok := ferrors.AsClassified(err)
			assert.True(t, ok)
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitebuilder.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, Init(path, true))

	t.Chdir(filepath.Dir(path))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Clean)
	assert.Equal(t, "https://example.com", cfg.Site.BaseURL)
	require.NoError(t, cfg.Validate())
}

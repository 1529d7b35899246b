package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

const (
	blogFixture = "../testdata/blog/site"
	blogGolden  = "../testdata/blog/want"
)

func openStore(t *testing.T, path string) *manifest.Store {
	t.Helper()
	store, err := manifest.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGolden_Blog(t *testing.T) {
	dir, commit := setupSiteRepo(t, blogFixture)
	cfg := loadSiteConfig(t, dir)
	store := openStore(t, cfg.State.Path)
	recorder := metrics.NewPrometheusRecorder(nil)

	b := pipeline.New(cfg, pipeline.WithManifest(store), pipeline.WithRecorder(recorder))
	res, err := b.Build(context.Background())
	require.NoError(t, err)

	verifyTree(t, cfg.Target, blogGolden)
	assert.Equal(t, 6, res.Items)
	assert.Equal(t, 2, res.Assets)
	assert.Equal(t, res.Outputs, res.Changed, "first build changes every output")
	assert.Equal(t, 2, res.Workers)

	builds, err := store.ListBuilds(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, manifest.StatusSuccess, builds[0].Status)
	assert.Equal(t, commit, builds[0].Commit)
	assert.Equal(t, 6, builds[0].Outputs)

	again, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Changed, "unchanged sources produce identical output")

	require.NoError(t, recorder.WriteTextfile(filepath.Join(dir, "metrics.prom")))
	assert.FileExists(t, filepath.Join(dir, "metrics.prom"))
}

func TestGolden_UnresolvedReference(t *testing.T) {
	dir, _ := setupSiteRepo(t, blogFixture)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "pages", "broken.html"),
		[]byte("<p><a href=\"pages:nowhere\">gone</a></p>\n"), 0o600))
	cfg := loadSiteConfig(t, dir)
	store := openStore(t, cfg.State.Path)

	_, err := pipeline.New(cfg, pipeline.WithManifest(store)).Build(context.Background())
	require.Error(t, err)

	var unresolved *serrors.UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "pages:nowhere", unresolved.Reference)
	assert.Equal(t, "pages/broken.html", unresolved.Path)
	assert.NoFileExists(t, filepath.Join(cfg.Target, "pages", "broken.html"))

	builds, err := store.ListBuilds(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, manifest.StatusFailed, builds[0].Status)
	assert.Contains(t, builds[0].Error, "pages:nowhere")
}

func TestGolden_MalformedDataStopsBeforeOutput(t *testing.T) {
	dir, _ := setupSiteRepo(t, blogFixture)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "data.local.yml"), []byte("- not\n- a mapping\n"), 0o600))
	cfg := loadSiteConfig(t, dir)

	_, err := pipeline.New(cfg).Build(context.Background())
	require.Error(t, err)

	kind, ok := serrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, serrors.KindDataParse, kind)
	assert.NoDirExists(t, cfg.Target)
}

func TestGolden_WithoutGitRepository(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, copyDir(blogFixture, dir))
	cfg := loadSiteConfig(t, dir)
	store := openStore(t, cfg.State.Path)

	_, err := pipeline.New(cfg, pipeline.WithManifest(store)).Build(context.Background())
	require.NoError(t, err)
	verifyTree(t, cfg.Target, blogGolden)

	builds, err := store.ListBuilds(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Empty(t, builds[0].Commit)
}

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

const layout = `<html><head><title>{{ .page.title }} | {{ .site.Data.title }}</title></head><body>{{ template "content" . }}</body></html>`

const indexPage = `---
layout: default
title: Home
---
<ul>{{ range .site.Posts }}<li><a href="posts:{{ .Key }}">{{ .FrontMatter.title }}</a></li>{{ end }}</ul>
<a href="pages:about#team">About</a><img src="images:logo.png">
`

func writeSite(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	base := map[string]string{
		"src/data.yml":               "title: My Site\n",
		"src/layouts/default.html":   layout,
		"src/index.html":             indexPage,
		"src/pages/about.md":         "---\ntitle: About\nkey: about\n---\n# About\n\n<h2 id=\"team\">Team</h2>\n",
		"src/posts/first.md":         "---\ntitle: First\ndate: 2014-01-01\n---\nOne\n",
		"src/posts/second.md":        "---\ntitle: Second\ndate: 2015-01-01\n---\nTwo\n",
		"src/assets/images/logo.png": "png",
	}
	for k, v := range files {
		base[k] = v
	}
	for rel, content := range base {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	}

	cfg := config.Example()
	cfg.Clean = true
	cfg.Build.Concurrency = 2
	cfg.Resolve(root)
	require.NoError(t, cfg.Validate())
	return &cfg
}

func readTarget(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(cfg.Target, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(raw)
}

type fakeRecorder struct {
	metrics.NoopRecorder
	mu         sync.Mutex
	outcomes   map[metrics.BuildOutcomeLabel]int
	references map[string]int
	stages     map[string]metrics.ResultLabel
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		outcomes:   map[metrics.BuildOutcomeLabel]int{},
		references: map[string]int{},
		stages:     map[string]metrics.ResultLabel{},
	}
}

func (f *fakeRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[o]++
}

func (f *fakeRecorder) IncStageResult(stage string, r metrics.ResultLabel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages[stage] = r
}

func (f *fakeRecorder) ObserveReference(kind string, resolved bool) {
	if !resolved {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.references[kind]++
}

func TestBuildEndToEnd(t *testing.T) {
	cfg := writeSite(t, nil)
	rec := newFakeRecorder()

	res, err := New(cfg, WithRecorder(rec)).Build(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, 4, res.Items)
	assert.Equal(t, []string{"index.html", "pages/about.html", "posts/first.html", "posts/second.html"}, res.Outputs)
	assert.Equal(t, 1, res.Assets)
	assert.Equal(t, 2, res.Workers)

	index := readTarget(t, cfg, "index.html")
	assert.Contains(t, index, "<title>Home | My Site</title>")
	assert.Contains(t, index, `<li><a href="/posts/second.html">Second</a></li><li><a href="/posts/first.html">First</a></li>`)
	assert.Contains(t, index, `<a href="/pages/about.html#team">About</a>`)
	assert.Contains(t, index, `<img src="/assets/images/logo.png">`)
	assert.NotContains(t, index, "---")

	about := readTarget(t, cfg, "pages/about.html")
	assert.Contains(t, about, `<h1 id="about">About</h1>`)
	assert.Contains(t, about, `<h2 id="team">Team</h2>`)

	assert.Equal(t, "png", readTarget(t, cfg, "assets/images/logo.png"))

	assert.Equal(t, 1, rec.outcomes[metrics.OutcomeSuccess])
	assert.Equal(t, 2, rec.references["posts"])
	assert.Equal(t, 1, rec.references["pages"])
	assert.Equal(t, 1, rec.references["images"])
	assert.Equal(t, metrics.ResultSuccess, rec.stages[string(StageRender)])

	// Posts are newest first in the index.
	require.Len(t, res.Index.Posts, 2)
	assert.Equal(t, "posts-second", res.Index.Posts[0].Key())
	assert.Greater(t, res.Cache.Misses, int64(0))
}

func TestBuildUnresolvedReferenceFails(t *testing.T) {
	cfg := writeSite(t, map[string]string{
		"src/pages/broken.html": `<a href="pages:nope">x</a>`,
	})
	cfg.Build.Concurrency = 1
	rec := newFakeRecorder()

	res, err := New(cfg, WithRecorder(rec)).Build(context.Background())
	require.Error(t, err)
	var unresolved *serrors.UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "pages/broken.html", unresolved.Path)
	assert.Equal(t, "pages:nope", unresolved.Reference)
	assert.NotContains(t, res.Outputs, "pages/broken.html")
	assert.NoFileExists(t, filepath.Join(cfg.Target, "pages", "broken.html"))
	assert.Equal(t, 1, rec.outcomes[metrics.OutcomeFailed])
	assert.Equal(t, metrics.ResultFatal, rec.stages[string(StageRender)])
}

func TestBuildMalformedDataAbortsBeforeRender(t *testing.T) {
	cfg := writeSite(t, map[string]string{"src/data.yml": "title: [unclosed\n"})

	_, err := New(cfg).Build(context.Background())
	require.Error(t, err)
	kind, ok := serrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, serrors.KindDataParse, kind)
	assert.NoDirExists(t, cfg.Target)
}

func TestBuildDuplicateKeyFails(t *testing.T) {
	cfg := writeSite(t, map[string]string{
		"src/pages/team.html": "---\nkey: about\n---\nteam",
	})

	_, err := New(cfg).Build(context.Background())
	kind, _ := serrors.KindOf(err)
	assert.Equal(t, serrors.KindCollect, kind)
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	cfg := writeSite(t, nil)

	res, err := New(cfg, WithDryRun(true)).Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Outputs, 4)
	assert.NoDirExists(t, cfg.Target)
}

func TestBuildRecordsManifest(t *testing.T) {
	cfg := writeSite(t, nil)
	store, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	first, err := New(cfg, WithManifest(store)).Build(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Changed, 4)

	// Started times order history; keep them distinct.
	time.Sleep(time.Millisecond)
	second, err := New(cfg, WithManifest(store)).Build(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Changed)

	builds, err := store.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, second.BuildID, builds[0].ID)
	assert.Equal(t, manifest.StatusSuccess, builds[0].Status)
	assert.Equal(t, 4, builds[0].Outputs)
}

func TestBuildCanceled(t *testing.T) {
	cfg := writeSite(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newFakeRecorder()

	_, err := New(cfg, WithRecorder(rec)).Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rec.outcomes[metrics.OutcomeCanceled])
}

func TestCollect(t *testing.T) {
	cfg := writeSite(t, map[string]string{"src/misc/notes.html": "notes"})

	idx, items, err := New(cfg).Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, idx.Finalized())
	assert.Len(t, items, 5)
	assert.Len(t, idx.Pages, 2)
	assert.Len(t, idx.Posts, 2)
	assert.Equal(t, "My Site", idx.Data["title"])
	assert.Contains(t, idx.Layouts, "default")

	_, ok := idx.Lookup("pages", "about")
	assert.True(t, ok)
	_, ok = idx.Lookup("pages", "index")
	assert.True(t, ok)
}

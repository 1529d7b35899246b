package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBuildLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.BeginBuild(ctx, Build{ID: "b1", Started: started, Commit: "abc123"}))
	fp, err := s.RecordOutput(ctx, "b1", "index.html", []byte("<p>home</p>"))
	require.NoError(t, err)
	assert.Equal(t, Fingerprint([]byte("<p>home</p>")), fp)
	_, err = s.RecordOutput(ctx, "b1", "pages/about.html", []byte("<p>about</p>"))
	require.NoError(t, err)
	require.NoError(t, s.FinishBuild(ctx, "b1", StatusSuccess, 2, nil))

	builds, err := s.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	b := builds[0]
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, StatusSuccess, b.Status)
	assert.Equal(t, "abc123", b.Commit)
	assert.Equal(t, 2, b.Items)
	assert.Equal(t, 2, b.Outputs)
	assert.True(t, b.Started.Equal(started))
	assert.False(t, b.Finished.IsZero())
	assert.Empty(t, b.Error)

	outputs, err := s.Outputs(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "index.html", outputs[0].Path)
	assert.Equal(t, len("<p>home</p>"), outputs[0].Bytes)
}

func TestFailedBuildKeepsError(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.BeginBuild(ctx, Build{ID: "b1", Started: time.Now()}))
	require.NoError(t, s.FinishBuild(ctx, "b1", StatusFailed, 0, errors.New("reference to unknown link pages:x")))

	builds, err := s.ListBuilds(ctx, 10)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, StatusFailed, builds[0].Status)
	assert.Contains(t, builds[0].Error, "pages:x")
}

func TestFinishUnknownBuild(t *testing.T) {
	s := openStore(t)
	require.Error(t, s.FinishBuild(context.Background(), "nope", StatusSuccess, 0, nil))
}

func TestListBuildsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.BeginBuild(ctx, Build{ID: id, Started: base.Add(time.Duration(i) * time.Hour)}))
	}

	builds, err := s.ListBuilds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "new", builds[0].ID)
	assert.Equal(t, "mid", builds[1].ID)
	assert.Equal(t, StatusRunning, builds[0].Status)
}

func TestLastSuccessful(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, ok, err := s.LastSuccessful(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.BeginBuild(ctx, Build{ID: "b1", Started: base}))
	_, err = s.RecordOutput(ctx, "b1", "index.html", []byte("v1"))
	require.NoError(t, err)
	require.NoError(t, s.FinishBuild(ctx, "b1", StatusSuccess, 1, nil))

	require.NoError(t, s.BeginBuild(ctx, Build{ID: "b2", Started: base.Add(time.Hour)}))
	require.NoError(t, s.FinishBuild(ctx, "b2", StatusFailed, 0, errors.New("boom")))

	require.NoError(t, s.BeginBuild(ctx, Build{ID: "b3", Started: base.Add(2 * time.Hour)}))

	fps, ok, err := s.LastSuccessful(ctx, "b3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"index.html": Fingerprint([]byte("v1"))}, fps)
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.BeginBuild(context.Background(), Build{ID: "m", Started: time.Now()}))
	builds, err := s.ListBuilds(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, builds, 1)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte("a")), Fingerprint([]byte("a")))
	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
}

// Package integration runs whole builds against fixture sites and compares
// the output tree with golden copies.
package integration

import (
	"flag"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

var updateGolden = flag.Bool("update-golden", false, "rewrite golden output trees")

// setupSiteRepo copies a fixture site into a fresh git repository with one
// commit and returns the repository path.
func setupSiteRepo(t *testing.T, fixture string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, copyDir(fixture, dir), "failed to copy fixture site")

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "failed to initialize git repo")
	wt, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")
	require.NoError(t, wt.AddGlob("."), "failed to add files to git")

	hash, err := wt.Commit("Initial site", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err, "failed to create initial commit")
	return dir, hash.String()
}

// copyDir recursively copies a directory tree.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

// copyFile copies a single file.
func copyFile(src, dst string) error {
	// #nosec G304 -- test utility with paths from test setup, not user input
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	// #nosec G304 -- test utility with paths from test setup, not user input
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}

// loadSiteConfig loads the fixture's sitebuilder.yaml.
func loadSiteConfig(t *testing.T, dir string) *config.Config {
	t.Helper()

	cfg, err := config.Load(filepath.Join(dir, "sitebuilder.yaml"))
	require.NoError(t, err, "failed to load site config")
	require.NoError(t, cfg.Validate())
	return cfg
}

// readTree returns every regular file under root keyed by slash path.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		// #nosec G304 -- test utility reading from test output directory
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err, "failed to walk %s", root)
	return files
}

// verifyTree compares the output directory with the golden tree, or
// replaces the golden tree when -update-golden is set.
func verifyTree(t *testing.T, outputDir, goldenDir string) {
	t.Helper()

	actual := readTree(t, outputDir)
	if *updateGolden {
		require.NoError(t, os.RemoveAll(goldenDir))
		require.NoError(t, copyDir(outputDir, goldenDir))
		t.Logf("Updated golden tree: %s", goldenDir)
		return
	}

	expected := readTree(t, goldenDir)
	for path, want := range expected {
		got, ok := actual[path]
		if !ok {
			t.Errorf("missing output %s", path)
			continue
		}
		if got != want {
			t.Errorf("output %s differs\n--- want\n%s\n--- got\n%s", path, want, got)
		}
	}
	for path := range actual {
		if _, ok := expected[path]; !ok && !strings.HasPrefix(path, ".") {
			t.Errorf("unexpected output %s", path)
		}
	}
}

// Package output writes rendered items and static assets into the target
// directory.
package output

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Writer places files beneath a target root. It never writes outside it.
type Writer struct {
	root string
}

func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

func (w *Writer) Root() string { return w.root }

// Clean removes everything inside the target root, keeping the root itself.
func (w *Writer) Clean() error {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ferrors.FileSystemError("failed to read target directory").WithCause(err).WithContext("path", w.root).Build()
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			return ferrors.FileSystemError("failed to clean target directory").WithCause(err).WithContext("path", w.root).Build()
		}
	}
	return nil
}

// Write stores content at the slash-separated path rel and returns the full
// path written.
func (w *Writer) Write(rel string, content []byte) (string, error) {
	full, err := w.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", ferrors.FileSystemError("failed to create output directory").WithCause(err).WithContext("path", full).Build()
	}
	if err := os.WriteFile(full, content, 0o644); err != nil { //nolint:gosec // public HTML output, non-sensitive
		return "", ferrors.FileSystemError("failed to write output file").WithCause(err).WithContext("path", full).Build()
	}
	return full, nil
}

func (w *Writer) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ferrors.ValidationError(fmt.Sprintf("output path %q escapes target directory", rel)).Build()
	}
	return filepath.Join(w.root, clean), nil
}

// CopyTree copies the regular files under src to dstRel inside the target
// root and returns how many were copied. A missing src copies nothing.
func (w *Writer) CopyTree(src, dstRel string) (int, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	copied := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		dst, err := w.resolve(filepath.ToSlash(filepath.Join(dstRel, rel)))
		if err != nil {
			return err
		}
		if err := copyFile(p, dst); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		if _, ok := ferrors.AsClassified(err); ok {
			return copied, err
		}
		return copied, ferrors.FileSystemError("failed to copy assets").WithCause(err).WithContext("path", src).Build()
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	in, err := os.Open(src) // #nosec G304 -- src comes from walking the assets dir
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 -- dst is validated to stay under the target root
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Package source finds and reads content documents and layouts beneath a
// site's source root.
package source

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

// DefaultExtensions are the content file types collected when none are configured.
var DefaultExtensions = []string{".html", ".md"}

// Discovery walks a source tree for content documents.
type Discovery struct {
	root       string
	extensions map[string]bool
	// excluded holds slash-separated directories relative to root.
	excluded []string
}

// NewDiscovery returns a discovery for root. exclude lists directories,
// relative to root, whose files are not content (layouts, assets).
func NewDiscovery(root string, extensions, exclude []string) *Discovery {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	ex := make([]string, 0, len(exclude))
	for _, d := range exclude {
		d = strings.Trim(filepath.ToSlash(filepath.Clean(d)), "/")
		if d != "" && d != "." {
			ex = append(ex, d)
		}
	}
	return &Discovery{root: root, extensions: exts, excluded: ex}
}

// Discover returns the slash-separated relative paths of every content file,
// sorted so builds see sources in a stable order.
func (d *Discovery) Discover(ctx context.Context) ([]string, error) {
	var found []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel != "." && (strings.HasPrefix(entry.Name(), ".") || d.isExcluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			return nil
		}
		if !d.extensions[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}

		found = append(found, rel)
		slog.Debug("Discovered source", logfields.Path(rel))
		return nil
	})
	if err != nil {
		return nil, &serrors.SourceReadError{Path: d.root, Err: err}
	}
	sort.Strings(found)
	return found, nil
}

func (d *Discovery) isExcluded(rel string) bool {
	for _, ex := range d.excluded {
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// ReadItem loads one content document and splits off its front matter.
func ReadItem(root, rel string) (*site.Item, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	raw, err := os.ReadFile(full) // #nosec G304 -- path comes from walking the source root
	if err != nil {
		return nil, &serrors.SourceReadError{Path: rel, Err: err}
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, &serrors.SourceReadError{Path: rel, Err: err}
	}
	return &site.Item{
		SourcePath:   full,
		RelativePath: rel,
		FrontMatter:  doc.FrontMatter,
		Body:         doc.Body,
	}, nil
}

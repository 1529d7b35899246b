package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

// LoadLayouts reads every *.html file directly inside dir. A layout's name is
// its file name without extension. A missing dir yields no layouts.
func LoadLayouts(dir string) (map[string]*site.Layout, error) {
	layouts := map[string]*site.Layout{}
	if dir == "" {
		return layouts, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return layouts, nil
		}
		return nil, &serrors.SourceReadError{Path: dir, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(full) // #nosec G304 -- layouts dir is configured by the site owner
		if err != nil {
			return nil, &serrors.SourceReadError{Path: full, Err: err}
		}
		doc, err := frontmatter.Parse(raw)
		if err != nil {
			return nil, &serrors.SourceReadError{Path: full, Err: err}
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		layouts[name] = &site.Layout{
			Name:        name,
			SourcePath:  full,
			FrontMatter: doc.FrontMatter,
			Body:        string(doc.Body),
		}
	}
	return layouts, nil
}

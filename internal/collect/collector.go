// Package collect classifies content items into buckets, assigns their stable
// keys and produces the finalized site index.
package collect

import (
	"fmt"
	"log/slog"
	"math"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

// Collector is the only writer of a site index. Items are added one at a
// time; Finish is the single barrier after which the index is read-only.
type Collector struct {
	index    *site.Index
	items    []*site.Item
	finished bool
	titler   cases.Caser
}

// New creates a collector for a fresh index rooted at paths.
func New(paths site.Paths) *Collector {
	return &Collector{
		index:  site.NewIndex(paths),
		titler: cases.Title(language.English),
	}
}

// SetData installs the merged site data.
func (c *Collector) SetData(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	c.index.Data = data
}

// SetLayouts installs the known layouts.
func (c *Collector) SetLayouts(layouts map[string]*site.Layout) {
	if layouts == nil {
		layouts = map[string]*site.Layout{}
	}
	c.index.Layouts = layouts
}

// SetBuild records build metadata exposed to templates.
func (c *Collector) SetBuild(info site.BuildInfo, baseURL string) {
	c.index.Build = info
	c.index.BaseURL = baseURL
}

// Add classifies one item and forwards it. Registration into the index and
// forwarding are independent: items of unknown buckets are still returned.
func (c *Collector) Add(it *site.Item) (*site.Item, error) {
	if c.finished {
		return nil, &serrors.CollectError{Path: it.RelativePath, Reason: "item added after collection finished"}
	}

	it.RelativePath = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(it.RelativePath)), "/")
	it.Bucket = site.BucketFor(it.RelativePath)
	if it.FrontMatter == nil {
		it.FrontMatter = map[string]any{}
	}
	if key := it.FrontMatter[site.FieldKey]; isFalsy(key) {
		it.FrontMatter[site.FieldKey] = site.DeriveKey(it.RelativePath)
	} else if _, isString := key.(string); !isString {
		// YAML may decode keys like 2014 as numbers.
		it.FrontMatter[site.FieldKey] = strings.TrimSpace(fmt.Sprint(key))
	}
	if _, ok := it.FrontMatter[site.FieldTitle]; !ok {
		it.FrontMatter[site.FieldTitle] = c.deriveTitle(it.RelativePath)
	}

	if v, ok := it.FrontMatter[site.FieldDate]; ok && v != nil && it.Bucket == site.BucketPosts {
		if _, parsed := site.ParseDate(v); !parsed {
			slog.Debug("Unparsable post date, sorting as epoch", logfields.Path(it.RelativePath), slog.Any("date", v))
		}
	}

	if !c.index.Register(it) {
		return nil, &serrors.CollectError{Path: it.RelativePath, Key: it.Key(), Reason: "duplicate key in bucket " + it.Bucket}
	}
	if !site.IsRegisteredBucket(it.Bucket) {
		slog.Debug("Item forwarded without registration", logfields.Path(it.RelativePath), logfields.Bucket(it.Bucket))
	}

	c.items = append(c.items, it)
	return it, nil
}

// Finish sorts posts by date, newest first, and finalizes the index. Ties
// keep their insertion order; undated posts sort as the epoch.
func (c *Collector) Finish() (*site.Index, []*site.Item) {
	if !c.finished {
		posts := c.index.Posts
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].Date().After(posts[j].Date())
		})
		c.index.Finalize()
		c.finished = true
		slog.Debug("Collection finished",
			logfields.Count(len(c.items)),
			slog.Int("pages", len(c.index.Pages)),
			slog.Int("posts", len(c.index.Posts)))
	}
	return c.index, c.items
}

func (c *Collector) deriveTitle(relPath string) string {
	base := path.Base(relPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return c.titler.String(base)
}

// isFalsy reports whether a front matter key counts as absent: nil, empty
// string, false or a numeric zero.
func isFalsy(v any) bool {
	switch k := v.(type) {
	case nil:
		return true
	case string:
		return k == ""
	case bool:
		return !k
	case int:
		return k == 0
	case int64:
		return k == 0
	case uint64:
		return k == 0
	case float64:
		return k == 0 || math.IsNaN(k)
	}
	return false
}

package site

import (
	"maps"
	"path"
	"strings"
)

// Recognised bucket names. Items in any other bucket are forwarded through
// the pipeline but never registered in the index.
const (
	BucketPages = "pages"
	BucketPosts = "posts"
)

// OutputExtension is the extension every rendered item is written with.
const OutputExtension = ".html"

// Front matter keys with meaning to the pipeline.
const (
	FieldKey    = "key"
	FieldDate   = "date"
	FieldLayout = "layout"
	FieldTitle  = "title"
)

// Item is one content document moving through the build.
type Item struct {
	// SourcePath is the path the item was read from.
	SourcePath string
	// RelativePath is slash-separated and relative to the source root.
	RelativePath string
	// FrontMatter holds parsed metadata; "key" is always set after collection.
	FrontMatter map[string]any
	// Bucket is derived from the first segment of RelativePath.
	Bucket string
	// Body is template source, then rendered HTML, then resolved HTML.
	Body []byte
}

// Key returns the item's stable key, or "" before collection assigned one.
func (it *Item) Key() string {
	if it == nil || it.FrontMatter == nil {
		return ""
	}
	if k, ok := it.FrontMatter[FieldKey].(string); ok {
		return k
	}
	return ""
}

// Layout returns the layout name requested in front matter.
func (it *Item) Layout() string {
	if it == nil || it.FrontMatter == nil {
		return ""
	}
	name, _ := it.FrontMatter[FieldLayout].(string)
	return strings.TrimSpace(name)
}

// OutputPath is the slash-separated output location relative to the target root.
func (it *Item) OutputPath() string {
	return ChangeExtension(it.RelativePath, OutputExtension)
}

// URL is the site-relative URL of the rendered item.
func (it *Item) URL() string {
	return "/" + it.OutputPath()
}

// Clone returns a copy whose Body can be replaced without affecting the
// original. FrontMatter is shared; stages after collection treat it as read-only.
func (it *Item) Clone() *Item {
	c := *it
	c.Body = append([]byte(nil), it.Body...)
	return &c
}

// CloneFrontMatter returns a shallow copy of the front matter map.
func (it *Item) CloneFrontMatter() map[string]any {
	return maps.Clone(it.FrontMatter)
}

// BucketFor returns the bucket of a slash-separated path relative to the
// source root: its first directory segment, or "pages" for top-level files.
func BucketFor(relPath string) string {
	relPath = strings.TrimPrefix(path.Clean("/"+relPath), "/")
	if i := strings.IndexByte(relPath, '/'); i > 0 {
		return relPath[:i]
	}
	return BucketPages
}

// IsRegisteredBucket reports whether items of the bucket are indexed.
func IsRegisteredBucket(bucket string) bool {
	return bucket == BucketPages || bucket == BucketPosts
}

// DeriveKey builds the default key for a relative path: the extension is
// stripped and every character outside [A-Za-z0-9] becomes '-'.
func DeriveKey(relPath string) string {
	noExt := strings.TrimSuffix(relPath, path.Ext(relPath))
	return strings.Map(func(r rune) rune {
		if isAlnum(r) {
			return r
		}
		return '-'
	}, noExt)
}

// ChangeExtension replaces the extension of the final path element, or
// appends ext when there is none.
func ChangeExtension(p, ext string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

package site

import (
	"time"
)

// Paths are the filesystem locations a build works with.
type Paths struct {
	Source  string
	Target  string
	Layouts string
	Images  string
}

// BuildInfo describes the running build and is visible to templates.
type BuildInfo struct {
	ID         string
	Started    time.Time
	Commit     string
	CommitDate time.Time
}

// Layout is a wrapper template that items select with the "layout" field.
type Layout struct {
	Name        string
	SourcePath  string
	FrontMatter map[string]any
	Body        string
}

// Index is the shared build state all stages read. The collector is its only
// writer; once Finalize has run it must be treated as immutable.
type Index struct {
	Data    map[string]any
	Pages   []*Item
	Posts   []*Item
	Layouts map[string]*Layout
	Paths   Paths
	Build   BuildInfo
	BaseURL string

	finalized bool
	byKey     map[string]map[string]*Item
}

// NewIndex returns an empty, writable index.
func NewIndex(paths Paths) *Index {
	return &Index{
		Data:    map[string]any{},
		Layouts: map[string]*Layout{},
		Paths:   paths,
		byKey: map[string]map[string]*Item{
			BucketPages: {},
			BucketPosts: {},
		},
	}
}

// Finalized reports whether collection has completed.
func (idx *Index) Finalized() bool {
	return idx != nil && idx.finalized
}

// Finalize marks the index read-only. Only the collector calls this.
func (idx *Index) Finalize() {
	idx.finalized = true
}

// Register adds an item to its bucket. It reports false when the key is
// already taken in that bucket.
func (idx *Index) Register(it *Item) bool {
	keys, ok := idx.byKey[it.Bucket]
	if !ok {
		return true
	}
	key := it.Key()
	if _, dup := keys[key]; dup {
		return false
	}
	keys[key] = it
	switch it.Bucket {
	case BucketPages:
		idx.Pages = append(idx.Pages, it)
	case BucketPosts:
		idx.Posts = append(idx.Posts, it)
	}
	return true
}

// Lookup finds the item with key in bucket.
func (idx *Index) Lookup(bucket, key string) (*Item, bool) {
	keys, ok := idx.byKey[bucket]
	if !ok {
		return nil, false
	}
	it, ok := keys[key]
	return it, ok
}

// Items returns the registered items of a bucket in index order.
func (idx *Index) Items(bucket string) []*Item {
	switch bucket {
	case BucketPages:
		return idx.Pages
	case BucketPosts:
		return idx.Posts
	default:
		return nil
	}
}

package site

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		relPath string
		want    string
	}{
		{"posts/2014-03-01-hello world.md", "posts-2014-03-01-hello-world"},
		{"about.html", "about"},
		{"pages/team/index.html", "pages-team-index"},
		{"pages/no_ext", "pages-no-ext"},
		{"posts/café.md", "posts-caf-"},
		{"pages/v1.2/notes.md", "pages-v1-2-notes"},
	}
	for _, tt := range tests {
		t.Run(tt.relPath, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveKey(tt.relPath))
		})
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		relPath string
		want    string
	}{
		{"posts/a.md", BucketPosts},
		{"pages/b.md", BucketPages},
		{"misc/c.md", "misc"},
		{"index.html", BucketPages},
		{"posts/2020/deep.md", BucketPosts},
	}
	for _, tt := range tests {
		t.Run(tt.relPath, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketFor(tt.relPath))
		})
	}
	assert.True(t, IsRegisteredBucket(BucketPages))
	assert.True(t, IsRegisteredBucket(BucketPosts))
	assert.False(t, IsRegisteredBucket("misc"))
}

func TestOutputPathAndURL(t *testing.T) {
	it := &Item{RelativePath: "pages/about.md"}
	assert.Equal(t, "pages/about.html", it.OutputPath())
	assert.Equal(t, "/pages/about.html", it.URL())

	assert.Equal(t, "pages/readme.html", ChangeExtension("pages/readme", ".html"))
	assert.Equal(t, "v1.2/notes.html", ChangeExtension("v1.2/notes.md", ".html"))
}

func TestParseDate(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()

	d, ok := ParseDate("2020-03-01")
	require.True(t, ok)
	assert.Equal(t, 2020, d.Year())
	assert.Equal(t, time.March, d.Month())

	d, ok = ParseDate("2020-03-01T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, 10, d.Hour())

	ts := time.Date(2021, 5, 4, 0, 0, 0, 0, time.UTC)
	d, ok = ParseDate(ts)
	require.True(t, ok)
	assert.True(t, ts.Equal(d))

	d, ok = ParseDate("not a date")
	assert.False(t, ok)
	assert.True(t, epoch.Equal(d))

	d, ok = ParseDate(nil)
	assert.False(t, ok)
	assert.True(t, epoch.Equal(d))
}

func TestParseDateLayouts(t *testing.T) {
	plus1 := time.FixedZone("", 3600)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2014-03-01 10:00", time.Date(2014, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2014-03-01 10:00:30", time.Date(2014, 3, 1, 10, 0, 30, 0, time.UTC)},
		{"2014-03-01 10:00:00 +0100", time.Date(2014, 3, 1, 10, 0, 0, 0, plus1)},
		{"2014-03-01T10:00:00+0100", time.Date(2014, 3, 1, 10, 0, 0, 0, plus1)},
		{"2014-03-01T10:00:00+01:00", time.Date(2014, 3, 1, 10, 0, 0, 0, plus1)},
		{"2014-03-01T10:00:00", time.Date(2014, 3, 1, 10, 0, 0, 0, time.UTC)},
		{" 2014-03-01 ", time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestItemCloneIsolatesBody(t *testing.T) {
	orig := &Item{RelativePath: "pages/a.html", Body: []byte("source")}
	c := orig.Clone()
	c.Body = append(c.Body[:0], []byte("rendered")...)
	assert.Equal(t, "source", string(orig.Body))
}

func TestIndexRegister(t *testing.T) {
	idx := NewIndex(Paths{})

	a := &Item{RelativePath: "pages/a.html", Bucket: BucketPages, FrontMatter: map[string]any{FieldKey: "a"}}
	dup := &Item{RelativePath: "pages/other.html", Bucket: BucketPages, FrontMatter: map[string]any{FieldKey: "a"}}
	post := &Item{RelativePath: "posts/a.md", Bucket: BucketPosts, FrontMatter: map[string]any{FieldKey: "a"}}
	misc := &Item{RelativePath: "misc/c.md", Bucket: "misc", FrontMatter: map[string]any{FieldKey: "c"}}

	assert.True(t, idx.Register(a))
	assert.False(t, idx.Register(dup))
	assert.True(t, idx.Register(post), "same key in another bucket is allowed")
	assert.True(t, idx.Register(misc))

	assert.Len(t, idx.Pages, 1)
	assert.Len(t, idx.Posts, 1)

	got, ok := idx.Lookup(BucketPages, "a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = idx.Lookup("misc", "c")
	assert.False(t, ok)
	assert.False(t, idx.Finalized())
}

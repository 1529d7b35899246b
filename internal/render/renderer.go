// Package render turns collected item bodies into HTML by evaluating them as
// templates against the finalized site index.
package render

import (
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/tmplcache"
)

// ErrIndexNotFinalized is returned when rendering starts before collection
// has finished.
var ErrIndexNotFinalized = errors.New("render: site index is not finalized")

// Renderer evaluates item bodies. It reads the index and the template cache
// and is safe for concurrent use on distinct items.
type Renderer struct {
	cache *tmplcache.Cache
	idx   *site.Index
	md    *markdown.Converter
}

func NewRenderer(cache *tmplcache.Cache, idx *site.Index) *Renderer {
	return &Renderer{cache: cache, idx: idx, md: markdown.New()}
}

// Context is the value templates are executed with: .site is the index and
// .page the item's front matter.
func Context(idx *site.Index, it *site.Item) map[string]any {
	return map[string]any{
		"site": idx,
		"page": it.FrontMatter,
	}
}

// Render converts Markdown bodies to HTML, wraps the body in its layout and
// executes the result. The body is replaced only on success.
func (r *Renderer) Render(it *site.Item) error {
	if !r.idx.Finalized() {
		return ErrIndexNotFinalized
	}

	body := it.Body
	if markdown.IsMarkdown(it.RelativePath) {
		html, err := r.md.Convert(body)
		if err != nil {
			return &serrors.SourceReadError{Path: it.RelativePath, Err: err}
		}
		body = html
	}

	source, err := r.applyLayout(it, string(body))
	if err != nil {
		return err
	}

	tmpl, err := r.cache.Get(source)
	if err != nil {
		return &serrors.TemplateCompileError{Path: it.RelativePath, Fragment: serrors.Fragment(source), Err: err}
	}
	out, err := tmpl.Execute(Context(r.idx, it))
	if err != nil {
		return &serrors.TemplateRenderError{Path: it.RelativePath, Fragment: serrors.Fragment(source), Err: err}
	}

	slog.Debug("Rendered item", logfields.Path(it.RelativePath), logfields.Layout(it.Layout()))
	it.Body = out
	return nil
}

// applyLayout defines the body as the "content" template and appends the
// layout source, which includes it with {{ template "content" . }}.
func (r *Renderer) applyLayout(it *site.Item, body string) (string, error) {
	name := it.Layout()
	if name == "" {
		return body, nil
	}
	layout, ok := r.idx.Layouts[name]
	if !ok {
		return "", &serrors.TemplateCompileError{
			Path:     it.RelativePath,
			Fragment: "layout: " + name,
			Err:      errors.New("unknown layout " + name),
		}
	}
	return `{{define "content"}}` + body + `{{end}}` + layout.Body, nil
}

// Package resolve rewrites typed references in rendered HTML into final
// site-relative URLs and applies the sanitize allow-list in the same pass.
package resolve

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/linkref"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

// ImagesURLPrefix is the public prefix resolved image references receive.
const ImagesURLPrefix = "/assets/images/"

// ReferenceObserver is told about every typed reference the resolver meets.
type ReferenceObserver interface {
	ObserveReference(kind string, resolved bool)
}

type Resolver struct {
	idx      *site.Index
	policy   compiledPolicy
	observer ReferenceObserver
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithPolicy(p Policy) Option {
	return func(r *Resolver) { r.policy = p.compile() }
}

func WithObserver(o ReferenceObserver) Option {
	return func(r *Resolver) { r.observer = o }
}

func New(idx *site.Index, opts ...Option) *Resolver {
	r := &Resolver{idx: idx}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRef maps a parsed reference to its final URL. from names the item
// holding the reference and is used in errors.
func (r *Resolver) ResolveRef(ref linkref.Ref, from string) (string, error) {
	resolved, reason := r.lookup(ref)
	if r.observer != nil {
		r.observer.ObserveReference(ref.Kind.String(), reason == "")
	}
	if reason != "" {
		return "", &serrors.UnresolvedReferenceError{Path: from, Reference: ref.Raw, Reason: reason}
	}
	return resolved, nil
}

func (r *Resolver) lookup(ref linkref.Ref) (string, string) {
	switch ref.Kind {
	case linkref.Pages, linkref.Posts:
		it, ok := r.idx.Lookup(ref.Kind.String(), ref.PathOrKey)
		if !ok {
			return "", "no " + ref.Type + " item with that key"
		}
		return it.URL() + ref.Anchor, ""
	case linkref.Images:
		if !r.imageExists(ref.PathOrKey) {
			return "", "image not found"
		}
		return ImagesURLPrefix + ref.PathOrKey, ""
	case linkref.Mailto:
		return ref.Raw, ""
	default:
		return "", "unknown reference type " + ref.Type
	}
}

func (r *Resolver) imageExists(rel string) bool {
	root := r.idx.Paths.Images
	if root == "" {
		return false
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	within, err := filepath.Rel(root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return false
	}
	info, err := os.Lstat(full)
	return err == nil && info.Mode().IsRegular()
}

// Resolve rewrites the item's body. On error the body is left untouched.
func (r *Resolver) Resolve(it *site.Item) error {
	out, err := r.rewrite(it.RelativePath, it.Body)
	if err != nil {
		return err
	}
	it.Body = out
	return nil
}

func (r *Resolver) rewrite(from string, body []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var out bytes.Buffer
	out.Grow(len(body))

	skipping := ""
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return out.Bytes(), nil
			}
			return nil, z.Err()
		}
		// Token lowercases the tokenizer buffer in place, so keep the raw
		// bytes first.
		raw := append([]byte(nil), z.Raw()...)
		tok := z.Token()

		if skipping != "" {
			if !closesImplicitly(skipping, tt, tok.Data) {
				switch {
				case tt == html.StartTagToken && tok.Data == skipping:
					depth++
				case tt == html.EndTagToken && tok.Data == skipping:
					depth--
					if depth == 0 {
						skipping = ""
					}
				}
				continue
			}
			// The token ending an omitted end tag is processed normally.
			skipping, depth = "", 0
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if !r.policy.tagAllowed(tok.Data) {
				if tt == html.StartTagToken && contentDropped[tok.Data] {
					skipping, depth = tok.Data, 1
				}
				continue
			}
			changed, err := r.rewriteAttrs(from, &tok)
			if err != nil {
				return nil, err
			}
			if changed {
				out.WriteString(tok.String())
				continue
			}
		case html.EndTagToken:
			if !r.policy.tagAllowed(tok.Data) {
				continue
			}
		}
		out.Write(raw)
	}
}

func (r *Resolver) rewriteAttrs(from string, tok *html.Token) (bool, error) {
	changed := false
	kept := tok.Attr[:0]
	for _, a := range tok.Attr {
		if !r.policy.attrAllowed(tok.Data, a.Key) {
			changed = true
			continue
		}
		if isReferenceAttr(tok.Data, a.Key) {
			if ref, ok := linkref.Parse(a.Val); ok {
				resolved, err := r.ResolveRef(ref, from)
				if err != nil {
					return false, err
				}
				slog.Debug("Resolved reference",
					logfields.Path(from),
					logfields.Reference(ref.Raw),
					slog.String("url", resolved))
				if resolved != a.Val {
					a.Val = resolved
					changed = true
				}
			}
		}
		kept = append(kept, a)
	}
	tok.Attr = kept
	return changed, nil
}

func isReferenceAttr(tag, attr string) bool {
	return (tag == "a" && attr == "href") || (tag == "img" && attr == "src")
}

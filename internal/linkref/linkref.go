// Package linkref parses typed cross-document references of the form
// type:path-or-key[#anchor].
package linkref

import "strings"

// Kind is the resolved variant of a typed reference.
type Kind int

const (
	Unknown Kind = iota
	Pages
	Posts
	Images
	Mailto
)

func (k Kind) String() string {
	switch k {
	case Pages:
		return "pages"
	case Posts:
		return "posts"
	case Images:
		return "images"
	case Mailto:
		return "mailto"
	default:
		return "unknown"
	}
}

// Ref is a parsed typed reference. Anchor includes its leading '#', or is
// empty when the reference has none.
type Ref struct {
	Kind      Kind
	Type      string
	PathOrKey string
	Anchor    string
	Raw       string
}

// Parse recognises a typed reference. It returns false for values that do not
// match the grammar; those are left untouched by the resolver.
func Parse(s string) (Ref, bool) {
	colon := strings.IndexByte(s, ':')
	if colon <= 0 {
		return Ref{}, false
	}
	typ := s[:colon]
	for i := 0; i < len(typ); i++ {
		if typ[i] < 'a' || typ[i] > 'z' {
			return Ref{}, false
		}
	}

	rest := s[colon+1:]
	if rest == "" || rest[0] == '/' {
		return Ref{}, false
	}

	target, anchor := rest, ""
	if i := strings.IndexByte(rest[1:], '#'); i >= 0 {
		target, anchor = rest[:i+1], rest[i+1:]
		if len(anchor) < 2 {
			return Ref{}, false
		}
	}

	return Ref{
		Kind:      kindOf(typ),
		Type:      typ,
		PathOrKey: target,
		Anchor:    anchor,
		Raw:       s,
	}, true
}

func kindOf(typ string) Kind {
	switch typ {
	case "pages":
		return Pages
	case "posts":
		return Posts
	case "images":
		return Images
	case "mailto":
		return Mailto
	default:
		return Unknown
	}
}

package resolve

import "golang.org/x/net/html"

// Policy is an allow-list applied while rewriting. A nil AllowedTags or
// AllowedAttributes permits everything. AllowedAttributes is keyed by tag
// name; the "*" entry applies to every tag.
type Policy struct {
	AllowedTags       []string
	AllowedAttributes map[string][]string
}

// contentDropped lists elements whose text is discarded along with the tag
// when the tag is not allowed.
var contentDropped = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
	"option":   true,
	"noscript": true,
}

// impliedEnd lists content-dropped elements whose end tag may be omitted,
// with the start tags and parent end tags that close them.
var impliedEnd = map[string]struct{ starts, parents map[string]bool }{
	"option": {
		starts:  map[string]bool{"option": true, "optgroup": true, "hr": true},
		parents: map[string]bool{"select": true, "datalist": true, "optgroup": true},
	},
}

func closesImplicitly(open string, tt html.TokenType, tag string) bool {
	rule, ok := impliedEnd[open]
	if !ok {
		return false
	}
	switch tt {
	case html.StartTagToken, html.SelfClosingTagToken:
		return rule.starts[tag]
	case html.EndTagToken:
		return rule.parents[tag]
	}
	return false
}

type compiledPolicy struct {
	tags  map[string]bool
	attrs map[string]map[string]bool
}

func (p Policy) compile() compiledPolicy {
	var c compiledPolicy
	if p.AllowedTags != nil {
		c.tags = make(map[string]bool, len(p.AllowedTags))
		for _, t := range p.AllowedTags {
			c.tags[t] = true
		}
	}
	if p.AllowedAttributes != nil {
		c.attrs = make(map[string]map[string]bool, len(p.AllowedAttributes))
		for tag, names := range p.AllowedAttributes {
			set := make(map[string]bool, len(names))
			for _, n := range names {
				set[n] = true
			}
			c.attrs[tag] = set
		}
	}
	return c
}

func (c compiledPolicy) tagAllowed(tag string) bool {
	return c.tags == nil || c.tags[tag]
}

func (c compiledPolicy) attrAllowed(tag, attr string) bool {
	if c.attrs == nil {
		return true
	}
	return c.attrs[tag][attr] || c.attrs["*"][attr]
}

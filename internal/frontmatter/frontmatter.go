// Package frontmatter separates a leading YAML metadata block from a content
// document.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a front matter
// block but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Document is a content file split into metadata and body.
type Document struct {
	FrontMatter map[string]any
	Body        []byte
	// HadFrontMatter is false when the file did not start with a delimiter.
	HadFrontMatter bool
}

// Parse splits content and decodes its front matter. Documents without a
// block get an empty, non-nil map.
func Parse(content []byte) (Document, error) {
	raw, body, had, err := Split(content)
	if err != nil {
		return Document{}, err
	}
	fields, err := ParseYAML(raw)
	if err != nil {
		return Document{}, fmt.Errorf("parse front matter: %w", err)
	}
	return Document{FrontMatter: fields, Body: body, HadFrontMatter: had}, nil
}

// Split separates `---` delimited front matter from the body. If the
// document does not start with a delimiter, had is false and body is the
// full input.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---")
	rest := content[start:]
	for offset := 0; ; {
		idx := bytes.Index(rest[offset:], closeSeq)
		if idx < 0 {
			return nil, nil, false, ErrMissingClosingDelimiter
		}
		end := offset + idx + len(closeSeq)
		switch {
		case end == len(rest):
			return rest[:offset+idx+len(nl)], []byte{}, true, nil
		case bytes.HasPrefix(rest[end:], []byte(nl)):
			return rest[:offset+idx+len(nl)], rest[end+len(nl):], true, nil
		}
		offset = end
	}
}

// ParseYAML decodes raw front matter (without delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

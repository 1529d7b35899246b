// Package data loads structured site data documents and merges them into the
// namespace templates see as .site.Data.
package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	serrors "git.home.luguber.info/inful/sitebuilder/internal/site/errors"
)

// Merge copies every top-level key of src into dst. A key already present in
// dst is replaced wholesale; nested mappings are not merged.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Load decodes every YAML document in r and shallow-merges them in order.
// name identifies the stream in errors.
func Load(r io.Reader, name string) (map[string]any, error) {
	out := map[string]any{}
	dec := yaml.NewDecoder(r)
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, &serrors.DataParseError{Path: name, Err: err}
		}
		doc, err := decodeMapping(&node)
		if err != nil {
			return nil, &serrors.DataParseError{Path: name, Err: err}
		}
		out = Merge(out, doc)
	}
}

// LoadFiles reads each file in order and merges their documents. With
// skipMissing, files that do not exist are logged and skipped.
func LoadFiles(paths []string, skipMissing bool) (map[string]any, error) {
	out := map[string]any{}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && skipMissing {
				slog.Debug("Site data file not found, skipping", logfields.Path(p))
				continue
			}
			return nil, &serrors.SourceReadError{Path: p, Err: err}
		}
		doc, err := Load(bytes.NewReader(raw), p)
		if err != nil {
			return nil, err
		}
		out = Merge(out, doc)
	}
	return out, nil
}

func decodeMapping(node *yaml.Node) (map[string]any, error) {
	root := node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return map[string]any{}, nil
		}
		root = root.Content[0]
	}
	switch {
	case root.Kind == yaml.MappingNode:
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}
	var doc map[string]any
	if err := root.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/sitebuilder/internal/site"
	"git.home.luguber.info/inful/sitebuilder/internal/tmplcache"
)

// TextEngine compiles item bodies with text/template. Missing map keys
// render as their zero value so optional front matter fields can be tested
// with if.
type TextEngine struct {
	funcs template.FuncMap
}

// NewTextEngine returns an engine whose absURL helper prefixes baseURL.
func NewTextEngine(baseURL string) *TextEngine {
	return &TextEngine{funcs: Funcs(baseURL)}
}

// Funcs are the helpers available to every template.
func Funcs(baseURL string) template.FuncMap {
	base := strings.TrimRight(baseURL, "/")
	return template.FuncMap{
		"formatDate": formatDate,
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"absURL": func(p string) string {
			if base == "" {
				return p
			}
			return base + "/" + strings.TrimLeft(p, "/")
		},
	}
}

// formatDate formats a front matter date with a Go layout string. Values
// that are not dates render as an empty string.
func formatDate(layout string, v any) string {
	t, ok := site.ParseDate(v)
	if !ok {
		return ""
	}
	return t.Format(layout)
}

func (e *TextEngine) Compile(source string) (tmplcache.Template, error) {
	tpl, err := template.New("body").Funcs(e.funcs).Option("missingkey=zero").Parse(source)
	if err != nil {
		return nil, err
	}
	return textTemplate{tpl: tpl}, nil
}

type textTemplate struct {
	tpl *template.Template
}

func (t textTemplate) Execute(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return buf.Bytes(), nil
}


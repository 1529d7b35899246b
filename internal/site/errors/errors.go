// Package errors defines the closed set of failures the content pipeline
// reports. Every type carries the source path plus the offending reference or
// template fragment, and classifies itself for CLI exit-code mapping.
package errors

import (
	stderrors "errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Kind enumerates pipeline failure kinds.
type Kind string

const (
	KindUnresolvedReference Kind = "unresolved_reference"
	KindTemplateCompile     Kind = "template_compile"
	KindTemplateRender      Kind = "template_render"
	KindDataParse           Kind = "data_parse"
	KindSourceRead          Kind = "source_read"
	KindCollect             Kind = "collect"
)

// fragmentLimit bounds how much template source an error message quotes.
const fragmentLimit = 80

// UnresolvedReferenceError reports a typed reference whose target is missing
// or whose type is not recognised. Reference is the original attribute text.
type UnresolvedReferenceError struct {
	Path      string
	Reference string
	Reason    string
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("%s: reference to unknown link %s", e.Path, e.Reference)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *UnresolvedReferenceError) Kind() Kind { return KindUnresolvedReference }

func (e *UnresolvedReferenceError) Classify() *ferrors.ClassifiedError {
	return ferrors.NewError(ferrors.CategoryReference, "reference to unknown link").
		Fatal().
		WithContext("path", e.Path).
		WithContext("reference", e.Reference).
		Build()
}

// TemplateCompileError reports template source that failed to compile.
type TemplateCompileError struct {
	Path     string
	Fragment string
	Err      error
}

func (e *TemplateCompileError) Error() string {
	return fmt.Sprintf("%s: compile template %q: %v", e.Path, e.Fragment, e.Err)
}

func (e *TemplateCompileError) Unwrap() error { return e.Err }
func (e *TemplateCompileError) Kind() Kind    { return KindTemplateCompile }

func (e *TemplateCompileError) Classify() *ferrors.ClassifiedError {
	return ferrors.WrapError(e.Err, ferrors.CategoryTemplate, "template failed to compile").
		Fatal().
		WithContext("path", e.Path).
		WithContext("fragment", e.Fragment).
		Build()
}

// TemplateRenderError reports a fault while evaluating a compiled template.
type TemplateRenderError struct {
	Path     string
	Fragment string
	Err      error
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("%s: render template %q: %v", e.Path, e.Fragment, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }
func (e *TemplateRenderError) Kind() Kind    { return KindTemplateRender }

func (e *TemplateRenderError) Classify() *ferrors.ClassifiedError {
	return ferrors.WrapError(e.Err, ferrors.CategoryTemplate, "template failed to render").
		Fatal().
		WithContext("path", e.Path).
		WithContext("fragment", e.Fragment).
		Build()
}

// DataParseError reports a malformed structured data document. It aborts the
// whole build before rendering starts.
type DataParseError struct {
	Path string
	Err  error
}

func (e *DataParseError) Error() string {
	return fmt.Sprintf("%s: parse site data: %v", e.Path, e.Err)
}

func (e *DataParseError) Unwrap() error { return e.Err }
func (e *DataParseError) Kind() Kind    { return KindDataParse }

func (e *DataParseError) Classify() *ferrors.ClassifiedError {
	return ferrors.WrapError(e.Err, ferrors.CategoryData, "site data document is malformed").
		Fatal().
		WithContext("path", e.Path).
		Build()
}

// SourceReadError reports a content or layout file that could not be read
// or split into front matter and body.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("%s: read source: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }
func (e *SourceReadError) Kind() Kind    { return KindSourceRead }

func (e *SourceReadError) Classify() *ferrors.ClassifiedError {
	return ferrors.WrapError(e.Err, ferrors.CategorySource, "source file could not be read").
		Fatal().
		WithContext("path", e.Path).
		Build()
}

// CollectError reports a violated collection invariant, such as a duplicate
// key within a bucket or an item added after collection finished.
type CollectError struct {
	Path   string
	Key    string
	Reason string
}

func (e *CollectError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key %q)", e.Path, e.Reason, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *CollectError) Kind() Kind { return KindCollect }

func (e *CollectError) Classify() *ferrors.ClassifiedError {
	return ferrors.NewError(ferrors.CategoryCollect, e.Reason).
		Fatal().
		WithContext("path", e.Path).
		WithContext("key", e.Key).
		Build()
}

// KindOf returns the kind of the first pipeline error in err's chain.
func KindOf(err error) (Kind, bool) {
	var k interface{ Kind() Kind }
	if stderrors.As(err, &k) {
		return k.Kind(), true
	}
	return "", false
}

// Fragment shortens template source for inclusion in error messages.
func Fragment(source string) string {
	r := []rune(source)
	if len(r) <= fragmentLimit {
		return source
	}
	return string(r[:fragmentLimit]) + "..."
}

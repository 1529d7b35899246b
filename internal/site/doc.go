// Package site defines the build-scoped site index and the content items that
// flow through the pipeline.
//
// An Index is populated once per build by the collector and becomes read-only
// after Finalize. Stages after collection must only read it.
package site

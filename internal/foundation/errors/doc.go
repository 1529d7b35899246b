// Package errors provides foundational, type-safe error primitives used across sitebuilder.
//
// This package contains classified error types and helpers for consistent error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, reference, template, data, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - Classifier: Implemented by domain errors that know their own classification
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for exit codes and error presentation
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryData, "data document is malformed").
//		Fatal().
//		WithContext("path", dataPath).
//		WithCause(originalErr).
//		Build()
package errors

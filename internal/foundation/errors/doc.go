// Package errors provides the classified error type used across mountrewrite.
//
// A ClassifiedError carries a category (config, validation, parse, filesystem,
// ...), a severity, a retry strategy and structured context. The CLI adapter
// turns categories into process exit codes and log records.
//
// Example usage:
//
//	err := errors.WrapError(parseErr, errors.CategoryParse, "artifact is not valid JavaScript").
//		WithContext("file", path).
//		Build()
package errors

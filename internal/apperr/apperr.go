// Package apperr defines the error taxonomy shared across the service.
// Components wrap these sentinels with fmt.Errorf("...: %w", ...) so
// callers can classify failures with errors.Is while keeping the
// underlying detail.
package apperr

import "errors"

var (
	// ErrInvalidInput indicates a request that fails validation before
	// any work starts, like an empty or oversized upload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates the uploaded media type is not
	// one the extractor recognizes.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtractionFailed indicates a recognized format whose content
	// could not be read, or that yielded no text at all.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNotConfigured indicates a required provider credential was
	// never supplied.
	ErrNotConfigured = errors.New("service not configured")

	// ErrEmbeddingService wraps any failure from the embedding provider.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService wraps any failure from the generation provider.
	ErrGenerationService = errors.New("generation service error")

	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the record belongs to a different owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyProcessed indicates a re-processing request for a
	// document that was already processed.
	ErrAlreadyProcessed = errors.New("document already processed")
)

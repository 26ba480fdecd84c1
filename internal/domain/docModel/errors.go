package docModel

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyProcessing rejects a second pipeline run for a document
	// that already has one in flight. Callers are told, not queued silently.
	ErrAlreadyProcessing = errors.New("document is already processing")

	ErrNotFound = errors.New("not found")

	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// ExtractionError marks unsupported or corrupt source input. Terminal:
// the document moves to failed and the raw file is retained for diagnostics.
type ExtractionError struct {
	FileType FileType
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s input: %v", e.FileType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransientServiceError wraps embedding/vector-store/network failures that
// are worth retrying with backoff before escalating to document-level failed.
type TransientServiceError struct {
	Service string
	Err     error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("transient %s error: %v", e.Service, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var t *TransientServiceError
	return errors.As(err, &t)
}

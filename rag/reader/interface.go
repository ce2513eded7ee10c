// Package reader loads source files into documents.
package reader

import (
	"context"

	"github.com/aqua777/indexquery/schema"
)

// Reader is the interface for document loaders.
type Reader interface {
	// LoadData loads documents and returns them as a slice.
	LoadData(ctx context.Context) ([]schema.Document, error)
}

// FileExtractor turns one file into documents. Extractors are chosen by
// file extension.
type FileExtractor interface {
	LoadFile(ctx context.Context, filePath string) ([]schema.Document, error)
}

// ReaderError represents an error during document loading.
type ReaderError struct {
	Source  string // File path that caused the error
	Message string
	Err     error
}

func (e *ReaderError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Source + ": " + e.Message
}

func (e *ReaderError) Unwrap() error {
	return e.Err
}

// NewReaderError creates a new ReaderError.
func NewReaderError(source, message string, err error) *ReaderError {
	return &ReaderError{
		Source:  source,
		Message: message,
		Err:     err,
	}
}

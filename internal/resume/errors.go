package resume

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrNotFound          = errors.New("resume not found")
	ErrUnsupportedFormat = errors.New("unsupported resume format")
)

// NotFoundError is returned when the resume file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resume file not found: %s", e.Path)
}

// Is reports ErrNotFound as matching.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnsupportedFormatError is returned for file types other than PDF and DOCX.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported resume format for %q: file has no extension (expected .pdf or .docx)", e.Filename)
	}
	return fmt.Sprintf("unsupported resume format %q for %q (expected .pdf or .docx)", e.Extension, e.Filename)
}

// Is reports ErrUnsupportedFormat as matching.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ParseError is returned when a document of a supported type cannot be read.
type ParseError struct {
	Filename string
	Format   Format
	Message  string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to read %s resume %q: %s: %v", e.Format, e.Filename, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to read %s resume %q: %s", e.Format, e.Filename, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

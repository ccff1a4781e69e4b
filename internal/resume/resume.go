// Package resume extracts plain text from PDF and DOCX resumes.
package resume

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format is a supported resume file type.
type Format string

const (
	// FormatPDF is a Portable Document Format file
	FormatPDF Format = "pdf"
	// FormatDOCX is an Office Open XML word processing file
	FormatDOCX Format = "docx"
)

// Document is a loaded resume.
// Data keeps the original bytes so the file can be attached to an email.
type Document struct {
	Filename string `json:"filename"`
	Format   Format `json:"format"`
	Text     string `json:"text"`
	Data     []byte `json:"-"`
}

// ContentType returns the MIME type of the original file.
func (d *Document) ContentType() string {
	switch d.Format {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/pdf"
	}
}

// Source is a resume given either as a path on disk or as uploaded bytes.
// When Data is set, Filename supplies the extension.
type Source struct {
	Path     string
	Data     []byte
	Filename string
}

// FormatFor returns the resume format implied by filename's extension.
func FormatFor(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return "", &UnsupportedFormatError{Filename: filename, Extension: ext}
	}
}

// Load reads a resume from src.
func Load(src Source) (*Document, error) {
	if src.Data != nil {
		name := src.Filename
		if name == "" {
			name = filepath.Base(src.Path)
		}
		return LoadBytes(src.Data, name)
	}
	if src.Path == "" {
		return nil, &NotFoundError{Path: "(none)"}
	}
	return LoadFile(src.Path)
}

// LoadFile reads and parses the resume at path.
func LoadFile(path string) (*Document, error) {
	// Reject unknown types before touching the disk
	if _, err := FormatFor(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read resume %s: %w", path, err)
	}

	return LoadBytes(data, filepath.Base(path))
}

// LoadBytes parses an in-memory resume; filename selects the parser.
func LoadBytes(data []byte, filename string) (*Document, error) {
	format, err := FormatFor(filename)
	if err != nil {
		return nil, err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = parsePDF(data)
	case FormatDOCX:
		text, err = parseDOCX(data)
	}
	if err != nil {
		return nil, &ParseError{Filename: filename, Format: format, Message: "corrupt or unreadable document", Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Filename: filename, Format: format, Message: "document contains no extractable text"}
	}

	return &Document{
		Filename: filename,
		Format:   format,
		Text:     text,
		Data:     data,
	}, nil
}

// Package models defines the core data types for sitechat.
package models

import (
	"path/filepath"
	"strings"
)

// SourceKind identifies where knowledge base text comes from.
type SourceKind string

const (
	// SourceWebsite is a seed URL to crawl.
	SourceWebsite SourceKind = "website"

	// SourceDocument is a single text or PDF document.
	SourceDocument SourceKind = "document"
)

// Format is the closed set of document formats the extractors understand.
type Format string

const (
	FormatText    Format = "text"
	FormatPDF     Format = "pdf"
	FormatUnknown Format = ""
)

// FormatForPath maps a file name to its document format by extension.
// Anything other than .txt or .pdf is FormatUnknown and must be skipped.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return FormatText
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Source is a read-only input to knowledge base construction.
type Source struct {
	// Kind selects crawl or document extraction.
	Kind SourceKind `json:"kind"`

	// URL is the crawl seed for website sources.
	URL string `json:"url,omitempty"`

	// Path is a local file path for document sources.
	Path string `json:"path,omitempty"`

	// Data holds the document bytes when the source is not backed by a file.
	Data []byte `json:"-"`

	// Name is the origin identifier used in logs and segment keys.
	Name string `json:"name"`

	// Format is the document format; ignored for website sources.
	Format Format `json:"format,omitempty"`
}

// Origin returns the identifier recorded on chunks produced from the source.
func (s Source) Origin() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Kind == SourceWebsite:
		return s.URL
	default:
		return filepath.Base(s.Path)
	}
}

// WebsiteSource builds a website source for the given seed URL.
func WebsiteSource(seed string) Source {
	return Source{Kind: SourceWebsite, URL: seed, Name: seed}
}

// FileSource builds a document source for a local file, deriving its format
// from the extension.
func FileSource(path string) Source {
	return Source{
		Kind:   SourceDocument,
		Path:   path,
		Name:   filepath.Base(path),
		Format: FormatForPath(path),
	}
}

// RawDocument is extracted plain text tagged with its origin. It only lives
// for the duration of a build.
type RawDocument struct {
	Origin string
	Text   string
}

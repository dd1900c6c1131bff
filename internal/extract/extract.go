package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Extractor converts raw document bytes into plain text. Implementations
// are format-specific and stateless.
type Extractor interface {
	// Extract returns the document's plain text and, where the format has a
	// natural page/sheet/row-group notion, how many of those it saw.
	Extract(r io.Reader, filename string) (text string, pages int, err error)
}

// Options tunes extractor construction.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can ingest.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".json":     true,
	".xlsx":     true,
	".pdf":      true,
	".docx":     true,
}

// ForFile resolves the extractor for a filename. This is the single place
// format dispatch happens; the pipeline only ever sees the Extractor
// interface.
func ForFile(filename string, opts Options) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".json":
		return &JSONExtractor{}, nil
	case ".xlsx":
		return &XLSXExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Format returns the lowercased extension without the dot, e.g. "pdf".
func Format(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

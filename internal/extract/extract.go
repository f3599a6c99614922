// Package extract converts uploaded files into normalized text.
// Extractors are pure byte-to-string transforms registered in a
// dispatch table keyed by media type; nothing here touches storage.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/maintdesk/backend/internal/apperr"
)

const (
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Func is a single-format extractor.
type Func func(ctx context.Context, data []byte) (string, error)

var registry = map[string]Func{}

func register(mediaType string, fn Func) {
	registry[mediaType] = fn
}

func init() {
	register("text/plain", extractPlain)
	register("text/markdown", extractPlain)
	register("application/json", extractJSON)
	register("text/csv", extractCSV)
	register("application/pdf", extractPDF)
	register(MediaTypeDOCX, extractDOCX)
}

// IsTabular reports whether a media type goes through the tabular
// extractor, whose output uses structured chunking downstream.
func IsTabular(mediaType string) bool {
	return Normalize(mediaType) == "text/csv"
}

// IsSupported reports whether an extractor is registered for the
// media type. The argument is normalized first.
func IsSupported(mediaType string) bool {
	_, ok := registry[Normalize(mediaType)]
	return ok
}

// Supported lists the recognized media types.
func Supported() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// Normalize strips media type parameters and maps common filename
// extensions onto canonical media types.
func Normalize(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case ".txt", "txt":
		return "text/plain"
	case ".md", "md":
		return "text/markdown"
	case ".json", "json":
		return "application/json"
	case ".csv", "csv":
		return "text/csv"
	case ".pdf", "pdf":
		return "application/pdf"
	case ".docx", "docx":
		return MediaTypeDOCX
	}
	return mt
}

// Extract converts data to text using the extractor registered for
// mediaType. Unknown types fail with apperr.ErrUnsupportedFormat; a
// recognized type that yields no text fails with
// apperr.ErrExtractionFailed.
func Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	fn, ok := registry[Normalize(mediaType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, mediaType)
	}

	text, err := fn(ctx, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text content in %s", apperr.ErrExtractionFailed, mediaType)
	}
	return text, nil
}

func extractPlain(_ context.Context, data []byte) (string, error) {
	return string(bytes.TrimSpace(data)), nil
}

func extractJSON(_ context.Context, data []byte) (string, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("%w: invalid JSON: %v", apperr.ErrExtractionFailed, err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: re-serialize JSON: %v", apperr.ErrExtractionFailed, err)
	}
	return string(out), nil
}

// extractPDF walks pages in order and joins each page's text with a
// blank line. Image-only scans produce no text and fail rather than
// yield an empty document. The context is checked between pages so a
// caller abort does not wait for the full document.
func extractPDF(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open PDF: %v", apperr.ErrExtractionFailed, err)
	}

	var pages []string
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}

	content := strings.Join(pages, "\n\n")
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: PDF has no extractable text (scanned pages?)", apperr.ErrExtractionFailed)
	}
	return content, nil
}

// extractDOCX pulls the raw text out of word/document.xml. Styling and
// structure are intentionally discarded.
func extractDOCX(_ context.Context, data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open DOCX: %v", apperr.ErrExtractionFailed, err)
	}

	for _, f := range reader.File {
		if path.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %v", apperr.ErrExtractionFailed, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read document.xml: %v", apperr.ErrExtractionFailed, err)
		}
		return stripXMLTags(string(content)), nil
	}

	return "", fmt.Errorf("%w: DOCX missing document.xml", apperr.ErrExtractionFailed)
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF yields no extractable text, for example
// scanned papers with image-only pages.
var ErrNoText = errors.New("pdf: no extractable text")

// ExtractText extracts plain text from the PDF content, page by page.
// maxPages caps how many pages are read; zero or negative reads all pages.
// Pages that fail to decode are skipped rather than failing the whole
// document.
func ExtractText(content []byte, maxPages int) (text string, err error) {
	// The underlying parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: parse failed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("pdf: open document: %w", err)
	}

	numPages := reader.NumPage()
	if maxPages <= 0 || maxPages > numPages {
		maxPages = numPages
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", ErrNoText
	}
	return result, nil
}

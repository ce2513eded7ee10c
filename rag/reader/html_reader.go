package reader

import (
	"bytes"
	"context"
	"html"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/aqua777/indexquery/schema"
)

var (
	reRemoveBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|iframe|svg|head)[^>]*>.*?</(script|style|noscript|iframe|svg|head)>`)
	reComments     = regexp.MustCompile(`<!--[\s\S]*?-->`)
	reBlockTags    = regexp.MustCompile(`(?i)</?(div|p|br|li|tr|td|th|h[1-6]|blockquote|pre|table)[^>]*>`)
	reAnyTag       = regexp.MustCompile(`<[^>]+>`)
	reSpaces       = regexp.MustCompile(`[ \t\x{00a0}]+`)
	reBlankLines   = regexp.MustCompile(`\n\s*\n+`)
)

// HTMLReader extracts readable text from HTML files. It runs readability
// first and falls back to stripping tags when readability keeps less than
// MinReadableRatio of the page text, which happens on table-heavy filings.
type HTMLReader struct {
	MinReadableRatio float64
}

// NewHTMLReader creates an HTMLReader with a 0.5 ratio.
func NewHTMLReader() *HTMLReader {
	return &HTMLReader{MinReadableRatio: 0.5}
}

// LoadFile loads a single HTML file as one document.
func (r *HTMLReader) LoadFile(ctx context.Context, filePath string) ([]schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, NewReaderError(filePath, "failed to read HTML file", err)
	}

	title, text := r.extract(content, filePath)
	if text == "" {
		return nil, NewReaderError(filePath, "no text content found in HTML", nil)
	}

	doc := newFileDocument(text, fileMetadata(filePath, "html"))
	if title != "" {
		doc.Metadata["title"] = title
	}
	return []schema.Document{doc}, nil
}

func (r *HTMLReader) extract(content []byte, filePath string) (string, string) {
	stripped := StripHTML(string(content))

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}
	article, err := readability.FromReader(bytes.NewReader(content), &url.URL{Scheme: "file", Path: absPath})
	if err != nil {
		return "", stripped
	}

	title := strings.TrimSpace(article.Title)
	readable := normalizeSpace(article.TextContent)
	if readable == "" || float64(len(readable)) < r.MinReadableRatio*float64(len(stripped)) {
		return title, stripped
	}
	return title, readable
}

// StripHTML removes markup and returns the visible text with paragraph breaks.
func StripHTML(doc string) string {
	text := reRemoveBlocks.ReplaceAllString(doc, "")
	text = reComments.ReplaceAllString(text, "")
	text = reBlockTags.ReplaceAllString(text, "\n")
	text = reAnyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return normalizeSpace(text)
}

func normalizeSpace(text string) string {
	text = reSpaces.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = reBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var _ FileExtractor = (*HTMLReader)(nil)

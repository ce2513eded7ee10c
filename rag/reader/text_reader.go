package reader

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aqua777/indexquery/schema"
)

// TextReader loads plain text and markdown files verbatim. Files that are
// not valid UTF-8 are skipped with a warning.
type TextReader struct {
	logger *slog.Logger
}

func NewTextReader() *TextReader {
	return &TextReader{logger: slog.Default()}
}

func (r *TextReader) withLogger(logger *slog.Logger) *TextReader {
	return &TextReader{logger: logger}
}

func (r *TextReader) LoadFile(ctx context.Context, filePath string) ([]schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, NewReaderError(filePath, "failed to read file", err)
	}
	if !utf8.Valid(content) {
		r.logger.Warn("Skipping file that is not text", "path", filePath)
		return nil, nil
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, nil
	}
	fileType := strings.TrimPrefix(extOf(filePath), ".")
	return []schema.Document{newFileDocument(text, fileMetadata(filePath, fileType))}, nil
}

var _ FileExtractor = (*TextReader)(nil)

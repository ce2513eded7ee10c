package reader

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/aqua777/indexquery/schema"
)

// PDFReader reads PDF files with ledongthuc/pdf.
type PDFReader struct {
	// SplitByPage creates one document per page with a page_number tag.
	SplitByPage bool
}

// NewPDFReader creates a PDFReader that returns one document per file.
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// LoadFile loads a single PDF file.
func (r *PDFReader) LoadFile(ctx context.Context, filePath string) ([]schema.Document, error) {
	f, pdfReader, err := pdf.Open(filePath)
	if err != nil {
		return nil, NewReaderError(filePath, "failed to open PDF", err)
	}
	defer f.Close()

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return nil, NewReaderError(filePath, "PDF has no pages", nil)
	}

	base := fileMetadata(filePath, "pdf")
	base["total_pages"] = numPages

	var docs []schema.Document
	var whole strings.Builder
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// keep going, one broken page should not drop the file
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if r.SplitByPage {
			doc := newFileDocument(text, base)
			doc.Metadata["page_number"] = pageNum
			docs = append(docs, doc)
			continue
		}
		if whole.Len() > 0 {
			whole.WriteString("\n\n")
		}
		whole.WriteString(text)
	}

	if !r.SplitByPage && whole.Len() > 0 {
		docs = append(docs, newFileDocument(whole.String(), base))
	}
	if len(docs) == 0 {
		return nil, NewReaderError(filePath, "no text content found in PDF", nil)
	}
	return docs, nil
}

func newFileDocument(text string, metadata map[string]interface{}) schema.Document {
	doc := schema.NewDocument(text)
	for k, v := range metadata {
		doc.Metadata[k] = v
	}
	doc.ExcludedEmbedMetadataKeys = excludedFromEmbed
	doc.ExcludedLLMMetadataKeys = excludedFromEmbed
	return doc
}

var _ FileExtractor = (*PDFReader)(nil)

package reader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aqua777/indexquery/schema"
)

// DocxReader reads Microsoft Word (.docx) files. Paragraphs become
// paragraph breaks, table cells are joined with " | ".
type DocxReader struct{}

func NewDocxReader() *DocxReader {
	return &DocxReader{}
}

func (r *DocxReader) LoadFile(ctx context.Context, filePath string) ([]schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, NewReaderError(filePath, "failed to open DOCX file", err)
	}
	defer zr.Close()

	metadata := fileMetadata(filePath, "docx")
	if props, err := readZipXML(&zr.Reader, "docProps/core.xml", parseCoreProperties); err == nil {
		for k, v := range props {
			metadata[k] = v
		}
	}

	text, err := readZipXML(&zr.Reader, "word/document.xml", parseDocumentText)
	if err != nil {
		return nil, NewReaderError(filePath, "failed to extract text", err)
	}
	if text == "" {
		return nil, nil
	}
	return []schema.Document{newFileDocument(text, metadata)}, nil
}

func readZipXML[T any](zr *zip.Reader, name string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	for _, file := range zr.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return zero, err
		}
		defer rc.Close()
		return parse(rc)
	}
	return zero, fmt.Errorf("%s not found in archive", name)
}

// parseDocumentText walks word/document.xml in document order.
func parseDocumentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out      strings.Builder
		para     strings.Builder
		cells    []string
		inText   bool
		inCell   bool
		cellText strings.Builder
	)

	flushPara := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if text == "" {
			return
		}
		if inCell {
			if cellText.Len() > 0 {
				cellText.WriteString(" ")
			}
			cellText.WriteString(text)
			return
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(text)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br":
				para.WriteString("\n")
			case "tc":
				inCell = true
				cellText.Reset()
			case "tr":
				cells = cells[:0]
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flushPara()
			case "tc":
				cells = append(cells, cellText.String())
				inCell = false
			case "tr":
				if len(cells) > 0 {
					para.WriteString(strings.Join(cells, " | "))
					flushPara()
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flushPara()
	return out.String(), nil
}

type coreProperties struct {
	Title    string `xml:"title"`
	Subject  string `xml:"subject"`
	Creator  string `xml:"creator"`
	Keywords string `xml:"keywords"`
}

func parseCoreProperties(r io.Reader) (map[string]interface{}, error) {
	var core coreProperties
	if err := xml.NewDecoder(r).Decode(&core); err != nil {
		return nil, err
	}
	props := make(map[string]interface{})
	for key, val := range map[string]string{
		"title":    core.Title,
		"subject":  core.Subject,
		"author":   core.Creator,
		"keywords": core.Keywords,
	} {
		if val != "" {
			props[key] = val
		}
	}
	return props, nil
}

var _ FileExtractor = (*DocxReader)(nil)

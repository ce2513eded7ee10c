package reader

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/indexquery/schema"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeDocx(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStripHTML(t *testing.T) {
	in := `<html><head><title>T</title><style>x{}</style></head><body>` +
		`<h1>Report</h1><p>Revenue &amp; growth</p><script>a()</script>` +
		`<table><tr><td>2021</td><td>17,455</td></tr></table></body></html>`
	assert.Equal(t, "Report\n\nRevenue & growth\n\n2021\n\n17,455", StripHTML(in))
}

func TestHTMLReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "UBER_2021.html")
	body := strings.Repeat("Uber reported gross bookings growth across mobility and delivery segments. ", 30)
	writeFile(t, path, `<html><head><title>Uber 10-K</title></head><body><article><p>`+body+`</p></article></body></html>`)

	docs, err := NewHTMLReader().LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Contains(t, doc.Text, "gross bookings growth")
	assert.NotContains(t, doc.Text, "<p>")
	assert.Equal(t, "UBER_2021.html", doc.Metadata[MetaFileName])
	assert.Equal(t, "html", doc.Metadata[MetaFileType])
	assert.Contains(t, doc.ExcludedEmbedMetadataKeys, MetaFilePath)

	t.Run("missing file", func(t *testing.T) {
		_, err := NewHTMLReader().LoadFile(context.Background(), filepath.Join(dir, "nope.html"))
		var rerr *ReaderError
		require.True(t, errors.As(err, &rerr))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("empty page", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.html")
		writeFile(t, empty, "<html><body><script>x()</script></body></html>")
		_, err := NewHTMLReader().LoadFile(context.Background(), empty)
		assert.Error(t, err)
	})
}

func TestTextReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beats.md")
	writeFile(t, path, "  Opening Image\n\nTheme Stated  ")

	docs, err := NewTextReader().LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Opening Image\n\nTheme Stated", docs[0].Text)
	assert.Equal(t, "md", docs[0].Metadata[MetaFileType])

	bin := filepath.Join(dir, "blob.bin")
	writeFile(t, bin, string([]byte{0xff, 0xfe, 0x00}))
	docs, err = NewTextReader().LoadFile(context.Background(), bin)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocxReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.docx")
	writeDocx(t, path, map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>Beat one</w:t></w:r></w:p>` +
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
			`<w:p><w:r><w:t>Beat two</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
		"docProps/core.xml": `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
			`<dc:title>Save the Cat</dc:title><dc:creator>Blake</dc:creator></cp:coreProperties>`,
	})

	docs, err := NewDocxReader().LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Beat one\n\nA | B\n\nBeat two", docs[0].Text)
	assert.Equal(t, "Save the Cat", docs[0].Metadata["title"])
	assert.Equal(t, "Blake", docs[0].Metadata["author"])

	t.Run("not a zip", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.docx")
		writeFile(t, bad, "plain text")
		_, err := NewDocxReader().LoadFile(context.Background(), bad)
		assert.Error(t, err)
	})
}

func TestPDFReader_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "not a pdf")

	_, err := NewPDFReader().LoadFile(context.Background(), path)
	var rerr *ReaderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, path, rerr.Source)
}

func TestSimpleDirectoryReader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "bravo")
	writeFile(t, filepath.Join(dir, "sub", "c.html"), "<html><body><p>charlie</p></body></html>")
	writeFile(t, filepath.Join(dir, ".hidden", "d.txt"), "delta")
	writeFile(t, filepath.Join(dir, ".e.txt"), "echo")
	writeFile(t, filepath.Join(dir, "f.csv"), "x,y")

	texts := func(docs []schema.Document) []string {
		out := make([]string, len(docs))
		for i, d := range docs {
			out[i] = d.Text
		}
		return out
	}

	t.Run("defaults", func(t *testing.T) {
		r, err := NewSimpleDirectoryReader(WithInputDir(dir), WithReaderLogger(quietLogger()), WithNumWorkers(4))
		require.NoError(t, err)
		docs, err := r.LoadData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "x,y", "bravo", "charlie"}, texts(docs))
	})

	t.Run("not recursive", func(t *testing.T) {
		r, err := NewSimpleDirectoryReader(WithInputDir(dir), WithRecursive(false), WithReaderLogger(quietLogger()))
		require.NoError(t, err)
		docs, err := r.LoadData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "x,y"}, texts(docs))
	})

	t.Run("include hidden", func(t *testing.T) {
		r, err := NewSimpleDirectoryReader(WithInputDir(dir), WithExcludeHidden(false), WithRequiredExts(".txt"), WithReaderLogger(quietLogger()))
		require.NoError(t, err)
		docs, err := r.LoadData(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"alpha", "delta", "echo"}, texts(docs))
	})

	t.Run("explicit files", func(t *testing.T) {
		r, err := NewSimpleDirectoryReader(WithInputFiles(filepath.Join(dir, "sub", "b.md")), WithReaderLogger(quietLogger()))
		require.NoError(t, err)
		docs, err := r.LoadData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"bravo"}, texts(docs))
	})

	t.Run("missing explicit file", func(t *testing.T) {
		r, err := NewSimpleDirectoryReader(WithInputFiles(filepath.Join(dir, "missing.html")), WithReaderLogger(quietLogger()))
		require.NoError(t, err)
		_, err = r.LoadData(context.Background())
		var rerr *ReaderError
		assert.True(t, errors.As(err, &rerr))
	})

	t.Run("binary files are skipped with a warning", func(t *testing.T) {
		mixed := t.TempDir()
		writeFile(t, filepath.Join(mixed, "notes.txt"), "quarterly notes")
		deck := filepath.Join(mixed, "deck.pptx")
		writeFile(t, deck, string([]byte{0x50, 0x4b, 0x03, 0x04, 0xff, 0xfe, 0x00}))

		var logs strings.Builder
		logger := slog.New(slog.NewTextHandler(&logs, nil))
		r, err := NewSimpleDirectoryReader(WithInputDir(mixed), WithReaderLogger(logger))
		require.NoError(t, err)

		docs, err := r.LoadData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"quarterly notes"}, texts(docs))
		assert.Contains(t, logs.String(), "Skipping file that is not text")
		assert.Contains(t, logs.String(), deck)
	})

	t.Run("empty directory", func(t *testing.T) {
		r, err := NewSimpleDirectoryReader(WithInputDir(t.TempDir()), WithReaderLogger(quietLogger()))
		require.NoError(t, err)
		_, err = r.LoadData(context.Background())
		assert.Error(t, err)
	})

	t.Run("no input", func(t *testing.T) {
		_, err := NewSimpleDirectoryReader()
		assert.Error(t, err)
	})
}

func TestReaderError(t *testing.T) {
	inner := errors.New("boom")
	err := NewReaderError("file.txt", "failed", inner)
	assert.Equal(t, "file.txt: failed: boom", err.Error())
	assert.Equal(t, inner, errors.Unwrap(err))
	assert.Equal(t, "file.txt: failed", NewReaderError("file.txt", "failed", nil).Error())
}

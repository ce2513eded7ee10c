package reader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aqua777/indexquery/schema"
)

// SimpleDirectoryReader loads an explicit file list or walks a directory,
// picking an extractor per file extension.
type SimpleDirectoryReader struct {
	inputDir      string
	inputFiles    []string
	recursive     bool
	excludeHidden bool
	requiredExts  map[string]bool
	extractors    map[string]FileExtractor
	fallback      FileExtractor
	numWorkers    int
	logger        *slog.Logger
}

// DirectoryReaderOption configures a SimpleDirectoryReader.
type DirectoryReaderOption func(*SimpleDirectoryReader)

// WithInputDir sets the directory to walk.
func WithInputDir(dir string) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.inputDir = dir
	}
}

// WithInputFiles sets an explicit file list. It takes precedence over the
// input directory.
func WithInputFiles(files ...string) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.inputFiles = files
	}
}

// WithRecursive controls descent into subdirectories.
func WithRecursive(recursive bool) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.recursive = recursive
	}
}

// WithExcludeHidden controls skipping of dot files and dot directories.
func WithExcludeHidden(exclude bool) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.excludeHidden = exclude
	}
}

// WithRequiredExts restricts loading to the given extensions, e.g. ".pdf".
func WithRequiredExts(exts ...string) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.requiredExts = make(map[string]bool, len(exts))
		for _, ext := range exts {
			r.requiredExts[strings.ToLower(ext)] = true
		}
	}
}

// WithFileExtractor registers an extractor for an extension.
func WithFileExtractor(ext string, extractor FileExtractor) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.extractors[strings.ToLower(ext)] = extractor
	}
}

// WithNumWorkers sets how many files are loaded concurrently.
func WithNumWorkers(n int) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		if n > 0 {
			r.numWorkers = n
		}
	}
}

// WithReaderLogger sets the logger.
func WithReaderLogger(logger *slog.Logger) DirectoryReaderOption {
	return func(r *SimpleDirectoryReader) {
		r.logger = logger
	}
}

// DefaultFileExtractors maps extensions to the built-in extractors.
func DefaultFileExtractors() map[string]FileExtractor {
	html := NewHTMLReader()
	text := NewTextReader()
	return map[string]FileExtractor{
		".html": html,
		".htm":  html,
		".pdf":  NewPDFReader(),
		".docx": NewDocxReader(),
		".txt":  text,
		".md":   text,
	}
}

// NewSimpleDirectoryReader creates a reader. It is recursive and skips
// hidden files by default. Unknown extensions are read as text.
func NewSimpleDirectoryReader(opts ...DirectoryReaderOption) (*SimpleDirectoryReader, error) {
	r := &SimpleDirectoryReader{
		recursive:     true,
		excludeHidden: true,
		extractors:    DefaultFileExtractors(),
		fallback:      NewTextReader(),
		numWorkers:    1,
		logger:        slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.inputDir == "" && len(r.inputFiles) == 0 {
		return nil, fmt.Errorf("no input files or directory specified")
	}
	for ext, ex := range r.extractors {
		if tr, ok := ex.(*TextReader); ok {
			r.extractors[ext] = tr.withLogger(r.logger)
		}
	}
	if tr, ok := r.fallback.(*TextReader); ok {
		r.fallback = tr.withLogger(r.logger)
	}
	return r, nil
}

// LoadData loads every selected file. Documents come back in file order.
func (r *SimpleDirectoryReader) LoadData(ctx context.Context) ([]schema.Document, error) {
	files, err := r.files()
	if err != nil {
		return nil, err
	}
	r.logger.Info("Loading documents", "dir", r.inputDir, "files", len(files))

	results := make([][]schema.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.numWorkers)
	for i, file := range files {
		g.Go(func() error {
			docs, err := r.extractorFor(file).LoadFile(gctx, file)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []schema.Document
	for _, batch := range results {
		docs = append(docs, batch...)
	}
	return docs, nil
}

func (r *SimpleDirectoryReader) extractorFor(path string) FileExtractor {
	if ex, ok := r.extractors[extOf(path)]; ok {
		return ex
	}
	return r.fallback
}

func (r *SimpleDirectoryReader) files() ([]string, error) {
	if len(r.inputFiles) > 0 {
		for _, f := range r.inputFiles {
			if _, err := os.Stat(f); err != nil {
				return nil, NewReaderError(f, "input file not accessible", err)
			}
		}
		return r.inputFiles, nil
	}

	var files []string
	err := filepath.WalkDir(r.inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(d.Name(), ".") && path != r.inputDir
		if d.IsDir() {
			if path == r.inputDir {
				return nil
			}
			if !r.recursive || (r.excludeHidden && hidden) {
				return filepath.SkipDir
			}
			return nil
		}
		if r.excludeHidden && hidden {
			return nil
		}
		if len(r.requiredExts) > 0 && !r.requiredExts[extOf(path)] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, NewReaderError(r.inputDir, "failed to walk directory", err)
	}
	if len(files) == 0 {
		return nil, NewReaderError(r.inputDir, "no files found", nil)
	}
	sort.Strings(files)
	return files, nil
}

var _ Reader = (*SimpleDirectoryReader)(nil)

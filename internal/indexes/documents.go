package indexes

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aqua777/indexquery/internal/catalog"
	"github.com/aqua777/indexquery/rag/reader"
	"github.com/aqua777/indexquery/schema"
)

// documents returns the group's documents tagged with the group metadata.
// Aggregates reuse what members read earlier in the run and read the rest
// from disk.
func (b *Builder) documents(ctx context.Context, g catalog.Group) ([]schema.Document, error) {
	if docs, ok := b.read[g.Name]; ok {
		return docs, nil
	}

	var docs []schema.Document
	switch g.Loader {
	case catalog.LoaderAggregate:
		for _, name := range g.Members {
			member, ok := b.catalog.Group(name)
			if !ok {
				return nil, fmt.Errorf("unknown member %s", name)
			}
			memberDocs, err := b.documents(ctx, member)
			if err != nil {
				return nil, err
			}
			docs = append(docs, memberDocs...)
		}
	case catalog.LoaderFiles, catalog.LoaderDirectory:
		raw, err := b.readGroup(ctx, g)
		if err != nil {
			return nil, err
		}
		docs = make([]schema.Document, len(raw))
		for i, doc := range raw {
			docs[i] = doc.WithMetadata(g.Metadata)
		}
	default:
		return nil, fmt.Errorf("unknown loader %q", g.Loader)
	}

	b.logger.Info("Loaded documents", "group", g.Name, "documents", len(docs))
	b.read[g.Name] = docs
	return docs, nil
}

func (b *Builder) readGroup(ctx context.Context, g catalog.Group) ([]schema.Document, error) {
	opts := []reader.DirectoryReaderOption{
		reader.WithNumWorkers(b.readWorkers),
		reader.WithReaderLogger(b.logger),
	}
	if g.Loader == catalog.LoaderFiles {
		files := make([]string, len(g.Paths))
		for i, p := range g.Paths {
			files[i] = filepath.Join(b.docsDir, p)
		}
		opts = append(opts, reader.WithInputFiles(files...))
	} else {
		opts = append(opts,
			reader.WithInputDir(filepath.Join(b.docsDir, g.Paths[0])),
			reader.WithRecursive(true),
			reader.WithExcludeHidden(true),
		)
	}

	r, err := reader.NewSimpleDirectoryReader(opts...)
	if err != nil {
		return nil, err
	}
	return r.LoadData(ctx)
}

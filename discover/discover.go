// Package discover enumerates and loads candidate PDF documents under a
// directory tree. Discovery is best effort: unreadable entries and malformed
// documents are skipped so one bad file never sinks the whole scan.
package discover

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/pdfmerge/ir/raw"
	"github.com/wudi/pdfmerge/observability"
	"github.com/wudi/pdfmerge/parser"
	"github.com/wudi/pdfmerge/recovery"
)

// Extension selects candidate files during the walk.
const Extension = ".pdf"

// Source is a successfully loaded candidate document. Name is the file's
// base name; it determines merge rank downstream.
type Source struct {
	Doc   *raw.Document
	Name  string
	Pages int
}

type Options struct {
	// Exclude is a base name skipped during the walk, typically the
	// reserved output filename.
	Exclude string
	// Parallelism bounds concurrent document loads. Zero means GOMAXPROCS.
	Parallelism int
	Logger      observability.Logger
}

// Scan walks root recursively and parses every candidate file. The returned
// order follows the walk; callers needing a deterministic merge order sort
// by name. The only error returned is context cancellation.
func Scan(ctx context.Context, root string, opts Options) ([]Source, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger{}
	}

	type candidate struct {
		path string
		name string
	}
	var candidates []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil {
				return err // root itself is unreadable
			}
			logger.Warn("skipping unreadable entry",
				observability.String("path", path),
				observability.Error("error", err))
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, Extension) || name == opts.Exclude {
			return nil
		}
		candidates = append(candidates, candidate{path: path, name: name})
		return nil
	})
	if err != nil {
		// WalkDir only propagates the root stat failure here; treat it
		// like any other unreadable entry.
		logger.Warn("scan root unreadable",
			observability.String("path", root),
			observability.Error("error", err))
		return nil, nil
	}

	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	loaded := make([]*Source, len(candidates))
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			src, err := load(ctx, c.path, c.name)
			if err != nil {
				logger.Warn("skipping malformed document",
					observability.String("path", c.path),
					observability.Error("error", err))
				return nil
			}
			loaded[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(loaded))
	for _, src := range loaded {
		if src != nil {
			sources = append(sources, *src)
		}
	}
	return sources, nil
}

func load(ctx context.Context, path, name string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := parser.NewDocumentParser(parser.Config{
		Recovery: recovery.NewLenientStrategy(),
	})
	doc, err := p.Parse(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Source{Doc: doc, Name: name, Pages: doc.PageCount()}, nil
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wudi/pdfmerge/ir/raw"
	"github.com/wudi/pdfmerge/recovery"
	"github.com/wudi/pdfmerge/xref"
)

// Config controls document parsing (xref resolution + object loading).
type Config struct {
	Recovery recovery.Strategy
	XRef     xref.ResolverConfig
}

// DocumentParser builds a raw.Document using the xref table and object loader.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	return &DocumentParser{cfg: cfg}
}

func (p *DocumentParser) Parse(ctx context.Context, r io.ReaderAt) (*raw.Document, error) {
	resolver := xref.NewResolver(p.cfg.XRef)
	table, err := resolver.Resolve(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("resolve xref: %w", err)
	}

	loader, err := (&ObjectLoaderBuilder{}).WithReader(r).WithXRef(table).Build()
	if err != nil {
		return nil, err
	}

	doc := &raw.Document{
		Objects: make(map[raw.ObjectRef]raw.Object),
		Trailer: resolver.Trailer(),
		Version: detectHeaderVersion(r),
	}

	for _, objNum := range table.Objects() {
		if objNum == 0 {
			continue // free head entry
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		_, gen, found := table.Lookup(objNum)
		if !found {
			continue
		}
		ref := raw.ObjectRef{Num: objNum, Gen: gen}
		obj, err := loader.Load(ref)
		if err != nil {
			if p.skipOnError(err, objNum, gen) {
				continue
			}
			return nil, fmt.Errorf("load object %d: %w", objNum, err)
		}
		doc.Put(ref, obj)
	}

	if doc.Trailer == nil {
		return nil, errors.New("document has no trailer")
	}
	return doc, nil
}

func (p *DocumentParser) skipOnError(err error, objNum, gen int) bool {
	if p.cfg.Recovery == nil {
		return false
	}
	action := p.cfg.Recovery.OnError(nil, err, recovery.Location{
		ObjectNum: objNum,
		ObjectGen: gen,
		Component: "Parser",
	})
	return action == recovery.ActionSkip || action == recovery.ActionWarn
}

func detectHeaderVersion(r io.ReaderAt) string {
	buf := make([]byte, 64)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	line := string(buf[:n])
	for _, sep := range []string{"\r\n", "\n", "\r"} {
		if idx := strings.Index(line, sep); idx >= 0 {
			line = line[:idx]
			break
		}
	}
	if strings.HasPrefix(line, "%PDF-") && len(line) >= 8 {
		return strings.TrimSpace(line[5:])
	}
	return ""
}

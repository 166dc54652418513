// Package optimize deduplicates and recompresses regenerable low-level
// structures of a raw document without altering its logical content.
package optimize

import (
	"context"
	"fmt"

	"github.com/wudi/pdfmerge/filters"
	"github.com/wudi/pdfmerge/ir/raw"
)

type Config struct {
	CombineIdenticalIndirectObjects bool
	CompressStreams                 bool
	// PruneUnreachable drops objects no reference chain from the trailer
	// can reach and renumbers the pool to close the gaps.
	PruneUnreachable bool
	// CompressionLevel follows compress/flate; zero means default.
	CompressionLevel int
	// MinStreamSize is the smallest stream worth compressing. Zero means
	// the default of 64 bytes.
	MinStreamSize int
}

// DefaultConfig enables every compaction the merge pipeline relies on.
func DefaultConfig() Config {
	return Config{
		CombineIdenticalIndirectObjects: true,
		CompressStreams:                 true,
		PruneUnreachable:                true,
	}
}

type Optimizer struct {
	config Config
}

func New(config Config) *Optimizer {
	return &Optimizer{config: config}
}

func (o *Optimizer) Optimize(ctx context.Context, doc *raw.Document) error {
	if o.config.PruneUnreachable {
		if err := o.pruneUnreachable(ctx, doc); err != nil {
			return fmt.Errorf("prune unreachable objects: %w", err)
		}
	}
	if o.config.CombineIdenticalIndirectObjects {
		if err := o.combineIdenticalIndirectObjects(ctx, doc); err != nil {
			return fmt.Errorf("combine identical indirect objects: %w", err)
		}
	}
	if o.config.CompressStreams {
		if err := o.compressStreams(ctx, doc); err != nil {
			return fmt.Errorf("compress streams: %w", err)
		}
	}
	return nil
}

// combineIdenticalIndirectObjects merges byte-identical objects into one
// survivor (the lowest id), rewrites every reference to follow it, and
// renumbers the pool to close the gaps. Collapsing one layer can make
// parents identical in turn, so the pass repeats until it finds nothing.
func (o *Optimizer) combineIdenticalIndirectObjects(ctx context.Context, doc *raw.Document) error {
	for pass := 0; pass < 16; pass++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		groups := make(map[string]raw.ObjectRef)
		redirects := make(map[raw.ObjectRef]raw.ObjectRef)
		for _, ref := range sortedRefs(doc) {
			obj := doc.Objects[ref]
			switch raw.TypeNameOf(obj) {
			case "Catalog", "Pages", "Page":
				// Structural nodes keep their identity; folding two
				// identical pages would collapse distinct Kids entries.
				continue
			}
			fp := fingerprint(obj)
			if survivor, ok := groups[fp]; ok {
				redirects[ref] = survivor
				continue
			}
			groups[fp] = ref
		}
		if len(redirects) == 0 {
			return nil
		}
		for ref := range redirects {
			delete(doc.Objects, ref)
		}
		for ref, obj := range doc.Objects {
			doc.Objects[ref] = raw.RewriteRefs(obj, redirects)
		}
		if doc.Trailer != nil {
			raw.RewriteRefs(doc.Trailer, redirects)
		}
		doc.RenumberDense()
	}
	return nil
}

// pruneUnreachable marks every object a reference chain from the trailer
// reaches and sweeps the rest.
func (o *Optimizer) pruneUnreachable(ctx context.Context, doc *raw.Document) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if doc.Trailer == nil {
		return nil
	}
	reachable := make(map[raw.ObjectRef]bool, len(doc.Objects))
	var mark func(obj raw.Object)
	mark = func(obj raw.Object) {
		switch v := obj.(type) {
		case raw.RefObj:
			if reachable[v.R] {
				return
			}
			reachable[v.R] = true
			if target, ok := doc.Objects[v.R]; ok {
				mark(target)
			}
		case *raw.DictObj:
			for _, val := range v.KV {
				mark(val)
			}
		case *raw.ArrayObj:
			for _, item := range v.Items {
				mark(item)
			}
		case *raw.StreamObj:
			if v.Dict != nil {
				mark(v.Dict)
			}
		}
	}
	mark(doc.Trailer)
	var dropped bool
	for ref := range doc.Objects {
		if !reachable[ref] {
			delete(doc.Objects, ref)
			dropped = true
		}
	}
	if dropped {
		doc.RenumberDense()
	}
	return nil
}

func (o *Optimizer) compressStreams(ctx context.Context, doc *raw.Document) error {
	level := o.config.CompressionLevel
	if level == 0 {
		level = -1
	}
	minSize := o.config.MinStreamSize
	if minSize == 0 {
		minSize = 64
	}
	enc := filters.NewFlateEncoder(level)
	for ref, obj := range doc.Objects {
		st, ok := obj.(*raw.StreamObj)
		if !ok || st.Dict == nil || len(st.Data) < minSize {
			continue
		}
		if len(filters.FilterNames(st.Dict)) > 0 {
			continue // already filtered, leave untouched
		}
		data, err := enc.Encode(ctx, st.Data)
		if err != nil {
			return err
		}
		if len(data) >= len(st.Data) {
			continue
		}
		st.Dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))
		st.Dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))
		st.Data = data
		doc.Objects[ref] = st
	}
	return nil
}

func sortedRefs(doc *raw.Document) []raw.ObjectRef {
	refs := make([]raw.ObjectRef, 0, len(doc.Objects))
	for ref := range doc.Objects {
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs
}

// Package merge folds a sorted sequence of parsed PDF documents into one.
// Object pools are renumbered to stay disjoint, structural roots are folded
// into a single catalog and page tree, pages are reassembled in document
// order, and a fresh outline is synthesized from per-document bookmarks.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wudi/pdfmerge/ir/raw"
	"github.com/wudi/pdfmerge/observability"
	"github.com/wudi/pdfmerge/optimize"
)

// Input couples a parsed document with the display name that determines its
// merge rank. Callers pass inputs already sorted (see SortByName); the merge
// consumes each document's object pool exactly once.
type Input struct {
	Doc  *raw.Document
	Name string
}

var (
	ErrMissingCatalog = errors.New("merge: catalog root not found in any input")
	ErrMissingPages   = errors.New("merge: pages root not found in any input")
)

type Config struct {
	Logger observability.Logger
	// Optimize configures the compaction pass that runs after id
	// normalization.
	Optimize optimize.Config
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Engine{cfg: cfg}
}

// SortByName orders inputs byte-wise ascending by name. This is the only
// meaningful input order: it defines the final page sequence.
func SortByName(inputs []Input) {
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
}

// pageRecord is a classified page awaiting reinsertion, tagged with its
// source document rank and intra-document position.
type pageRecord struct {
	ref   raw.ObjectRef
	dict  *raw.DictObj
	rank  int
	index int
}

type poolEntry struct {
	ref raw.ObjectRef
	obj raw.Object
}

// Merge runs the full pass sequence over the inputs and returns the unified
// document. On a structural failure nothing is produced and all intermediate
// state is discarded.
func (e *Engine) Merge(ctx context.Context, inputs []Input) (*raw.Document, error) {
	out := raw.NewDocument("1.5")

	var (
		union     []poolEntry
		pages     []pageRecord
		bookmarks []Bookmark
	)
	offset := 1
	contributing := 0

	for rank, in := range inputs {
		// Renumbering pass: shift this document's ids past every pool
		// processed so far, so the union below cannot collide.
		offset = in.Doc.Renumber(offset)

		pageRefs := in.Doc.PageRefs()
		if len(pageRefs) > 0 {
			contributing++
			bookmarks = append(bookmarks, Bookmark{
				Title:  fmt.Sprintf("Page_%d", contributing),
				Color:  DefaultBookmarkColor,
				Target: pageRefs[0],
			})
		}
		for i, pref := range pageRefs {
			obj, _ := in.Doc.Get(pref)
			dict, ok := obj.(*raw.DictObj)
			if !ok {
				continue
			}
			pages = append(pages, pageRecord{ref: pref, dict: dict, rank: rank, index: i})
		}

		e.cfg.Logger.Debug("document renumbered",
			observability.String("name", in.Name),
			observability.Int("pages", len(pageRefs)),
			observability.Int("next_id", offset))

		for _, ent := range sortedEntries(in.Doc) {
			union = append(union, ent)
		}
		in.Doc.Objects = nil // consumed
	}

	catalogRef, pagesRef, pagesDict, redirects, err := e.classify(out, union)
	if err != nil {
		return nil, err
	}

	e.reassemblePages(out, pages, pagesRef, pagesDict)

	// References to folded structural roots follow their survivor.
	if len(redirects) > 0 {
		for ref, obj := range out.Objects {
			out.Objects[ref] = raw.RewriteRefs(obj, redirects)
		}
	}

	e.finalizeCatalog(out, catalogRef, pagesRef)

	bookmarks = retargetBookmarks(out, bookmarks, pages)
	attachOutline(out, catalogRef, bookmarks)

	e.normalize(out)

	if err := optimize.New(e.cfg.Optimize).Optimize(ctx, out); err != nil {
		return nil, fmt.Errorf("merge: compaction: %w", err)
	}

	e.cfg.Logger.Info("merge complete",
		observability.Int("documents", len(inputs)),
		observability.Int("pages", len(pages)),
		observability.Int("objects", len(out.Objects)))
	return out, nil
}

// classify partitions the renumbered union by structural role. The first
// catalog wins outright; later page-tree roots are folded into the first one
// key-wise with first-seen keys winning. Outline objects are dropped, pages
// are handled by reassemblePages, and everything else is copied through.
func (e *Engine) classify(out *raw.Document, union []poolEntry) (raw.ObjectRef, raw.ObjectRef, *raw.DictObj, map[raw.ObjectRef]raw.ObjectRef, error) {
	var (
		catalogRef raw.ObjectRef
		catalog    *raw.DictObj
		pagesRef   raw.ObjectRef
		pagesDict  *raw.DictObj
		redirects  = make(map[raw.ObjectRef]raw.ObjectRef)
	)

	for _, ent := range union {
		switch raw.TypeNameOf(ent.obj) {
		case "Catalog":
			dict, ok := ent.obj.(*raw.DictObj)
			if !ok {
				continue
			}
			if catalog == nil {
				catalogRef = ent.ref
				catalog = dict.Clone()
			} else {
				redirects[ent.ref] = catalogRef
			}
		case "Pages":
			dict, ok := ent.obj.(*raw.DictObj)
			if !ok {
				continue
			}
			if pagesDict == nil {
				pagesRef = ent.ref
				pagesDict = dict.Clone()
			} else {
				redirects[ent.ref] = pagesRef
				for _, key := range dict.Keys() {
					if _, exists := pagesDict.Get(key); !exists {
						v, _ := dict.Get(key)
						pagesDict.Set(key, v)
					}
				}
			}
		case "Page":
			// Collected via the page-tree walk; reinserted later in
			// merge order.
		case "Outlines", "Outline":
			// Source outlines are always discarded, never merged.
		default:
			out.Put(ent.ref, ent.obj)
		}
	}

	if pagesDict == nil {
		return raw.ObjectRef{}, raw.ObjectRef{}, nil, nil, ErrMissingPages
	}
	if catalog == nil {
		return raw.ObjectRef{}, raw.ObjectRef{}, nil, nil, ErrMissingCatalog
	}

	out.Put(catalogRef, catalog)
	return catalogRef, pagesRef, pagesDict, redirects, nil
}

// reassemblePages rewires every collected page under the surviving page-tree
// root and rebuilds Kids/Count in merge order. This defines the final
// reading order of the unified document.
func (e *Engine) reassemblePages(out *raw.Document, pages []pageRecord, pagesRef raw.ObjectRef, pagesDict *raw.DictObj) {
	kids := raw.NewArray()
	for _, p := range pages {
		p.dict.Set(raw.NameLiteral("Parent"), raw.RefObj{R: pagesRef})
		out.Put(p.ref, p.dict)
		kids.Append(raw.RefObj{R: p.ref})
	}
	pagesDict.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(len(pages))))
	pagesDict.Set(raw.NameLiteral("Kids"), kids)
	out.Put(pagesRef, pagesDict)
}

// finalizeCatalog points the surviving catalog at the surviving page tree,
// drops any inherited outline reference, and roots the trailer.
func (e *Engine) finalizeCatalog(out *raw.Document, catalogRef, pagesRef raw.ObjectRef) {
	catalog, _ := out.Objects[catalogRef].(*raw.DictObj)
	catalog.Set(raw.NameLiteral("Pages"), raw.RefObj{R: pagesRef})
	catalog.Delete(raw.NameLiteral("Outlines"))

	out.Trailer.Set(raw.NameLiteral("Root"), raw.RefObj{R: catalogRef})

	info := raw.Dict()
	info.Set(raw.NameLiteral("Producer"), raw.Str([]byte("pdfmerge")))
	infoRef := out.Add(info)
	out.Trailer.Set(raw.NameLiteral("Info"), raw.RefObj{R: infoRef})
}

// normalize erases the arbitrary offsets left by the renumbering pass:
// dangling references are nulled out, then the pool is renumbered to the
// dense sequence starting at 1.
func (e *Engine) normalize(out *raw.Document) {
	for ref, obj := range out.Objects {
		out.Objects[ref] = pruneDangling(out, obj)
	}
	out.RenumberDense()
}

func pruneDangling(doc *raw.Document, obj raw.Object) raw.Object {
	switch v := obj.(type) {
	case raw.RefObj:
		if _, ok := doc.Objects[v.R]; !ok {
			return raw.NullObj{}
		}
		return v
	case *raw.ArrayObj:
		for i, item := range v.Items {
			v.Items[i] = pruneDangling(doc, item)
		}
		return v
	case *raw.DictObj:
		for key, item := range v.KV {
			v.KV[key] = pruneDangling(doc, item)
		}
		return v
	case *raw.StreamObj:
		if v.Dict != nil {
			pruneDangling(doc, v.Dict)
		}
		return v
	default:
		return obj
	}
}

func sortedEntries(doc *raw.Document) []poolEntry {
	entries := make([]poolEntry, 0, len(doc.Objects))
	for ref, obj := range doc.Objects {
		entries = append(entries, poolEntry{ref: ref, obj: obj})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ref.Num != entries[j].ref.Num {
			return entries[i].ref.Num < entries[j].ref.Num
		}
		return entries[i].ref.Gen < entries[j].ref.Gen
	})
	return entries
}

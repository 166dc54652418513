package merge

import "github.com/wudi/pdfmerge/ir/raw"

// Bookmark is a navigation entry produced for the first page of each
// contributing document.
type Bookmark struct {
	Title  string
	Color  [3]float64
	Level  int
	Target raw.ObjectRef
}

// DefaultBookmarkColor is the identifying color given to generated entries.
var DefaultBookmarkColor = [3]float64{0, 0, 1}

// retargetBookmarks repoints any bookmark whose target no longer resolves to
// a live page at the first surviving page. Bookmarks with no page to fall
// back on are dropped.
func retargetBookmarks(out *raw.Document, bookmarks []Bookmark, pages []pageRecord) []Bookmark {
	valid := func(ref raw.ObjectRef) bool {
		dict, ok := out.Objects[ref].(*raw.DictObj)
		return ok && dict.TypeName() == "Page"
	}
	var fallback *raw.ObjectRef
	for _, p := range pages {
		if valid(p.ref) {
			ref := p.ref
			fallback = &ref
			break
		}
	}
	kept := bookmarks[:0]
	for _, b := range bookmarks {
		if !valid(b.Target) {
			if fallback == nil {
				continue
			}
			b.Target = *fallback
		}
		kept = append(kept, b)
	}
	return kept
}

// attachOutline compiles the bookmark list into a fresh outline tree: one
// root Outlines node plus one item per bookmark, chained as siblings via
// First/Last/Next/Parent, and hangs it off the catalog. An empty list is a
// no-op.
func attachOutline(out *raw.Document, catalogRef raw.ObjectRef, bookmarks []Bookmark) {
	if len(bookmarks) == 0 {
		return
	}

	root := raw.Dict()
	root.Set(raw.NameLiteral("Type"), raw.NameLiteral("Outlines"))
	rootRef := out.Add(root)

	items := make([]*raw.DictObj, len(bookmarks))
	itemRefs := make([]raw.ObjectRef, len(bookmarks))
	for i, b := range bookmarks {
		item := raw.Dict()
		item.Set(raw.NameLiteral("Type"), raw.NameLiteral("Outline"))
		item.Set(raw.NameLiteral("Title"), raw.Str([]byte(b.Title)))
		item.Set(raw.NameLiteral("Parent"), raw.RefObj{R: rootRef})
		item.Set(raw.NameLiteral("C"), raw.NewArray(
			raw.NumberFloat(b.Color[0]),
			raw.NumberFloat(b.Color[1]),
			raw.NumberFloat(b.Color[2]),
		))
		item.Set(raw.NameLiteral("Dest"), raw.NewArray(
			raw.RefObj{R: b.Target},
			raw.NameLiteral("Fit"),
		))
		items[i] = item
		itemRefs[i] = out.Add(item)
	}
	for i := range items {
		if i+1 < len(items) {
			items[i].Set(raw.NameLiteral("Next"), raw.RefObj{R: itemRefs[i+1]})
		}
	}

	root.Set(raw.NameLiteral("First"), raw.RefObj{R: itemRefs[0]})
	root.Set(raw.NameLiteral("Last"), raw.RefObj{R: itemRefs[len(itemRefs)-1]})
	root.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(len(itemRefs))))

	if catalog, ok := out.Objects[catalogRef].(*raw.DictObj); ok {
		catalog.Set(raw.NameLiteral("Outlines"), raw.RefObj{R: rootRef})
	}
}

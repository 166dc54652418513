package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a raw (undecoded) PDF stream.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Document is the root container for raw PDF objects. Relationships between
// objects are expressed as ObjectRef lookups into Objects, never as native
// pointers, so reindexing the pool is a plain map rewrite.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g., "1.7"

	// MaxID is the highest object number currently allocated in the pool.
	MaxID int
}

// NewDocument returns an empty document with the given header version.
func NewDocument(version string) *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: version,
	}
}

// Add inserts obj under a freshly allocated object number and returns its ref.
func (d *Document) Add(obj Object) ObjectRef {
	d.MaxID++
	ref := ObjectRef{Num: d.MaxID}
	d.Objects[ref] = obj
	return ref
}

// Put inserts obj under ref, growing MaxID when ref outruns it.
func (d *Document) Put(ref ObjectRef, obj Object) {
	d.Objects[ref] = obj
	if ref.Num > d.MaxID {
		d.MaxID = ref.Num
	}
}

// Get returns the object stored under ref.
func (d *Document) Get(ref ObjectRef) (Object, bool) {
	obj, ok := d.Objects[ref]
	return obj, ok
}

// Deref follows obj through one level of indirection. Dangling references
// resolve to null.
func (d *Document) Deref(obj Object) Object {
	if ref, ok := obj.(RefObj); ok {
		if target, ok := d.Objects[ref.R]; ok {
			return target
		}
		return NullObj{}
	}
	return obj
}

// Root resolves the trailer's Root reference to the catalog dictionary.
func (d *Document) Root() (*DictObj, ObjectRef, bool) {
	if d.Trailer == nil {
		return nil, ObjectRef{}, false
	}
	rootObj, ok := d.Trailer.Get(NameLiteral("Root"))
	if !ok {
		return nil, ObjectRef{}, false
	}
	ref, ok := rootObj.(RefObj)
	if !ok {
		return nil, ObjectRef{}, false
	}
	dict, ok := d.Objects[ref.R].(*DictObj)
	if !ok {
		return nil, ObjectRef{}, false
	}
	return dict, ref.R, true
}

// PageRefs walks the page tree from the catalog and returns page object refs
// in reading order. Cycles and dangling kids are tolerated and skipped.
func (d *Document) PageRefs() []ObjectRef {
	catalog, _, ok := d.Root()
	if !ok {
		return nil
	}
	pagesObj, ok := catalog.Get(NameLiteral("Pages"))
	if !ok {
		return nil
	}
	rootRef, ok := pagesObj.(RefObj)
	if !ok {
		return nil
	}
	var pages []ObjectRef
	seen := make(map[ObjectRef]bool)
	var walk func(ref ObjectRef)
	walk = func(ref ObjectRef) {
		if seen[ref] {
			return
		}
		seen[ref] = true
		node, ok := d.Objects[ref].(*DictObj)
		if !ok {
			return
		}
		switch node.TypeName() {
		case "Page":
			pages = append(pages, ref)
		case "Pages":
			kidsObj, ok := node.Get(NameLiteral("Kids"))
			if !ok {
				return
			}
			kids, ok := kidsObj.(*ArrayObj)
			if !ok {
				return
			}
			for _, kid := range kids.Items {
				if kidRef, ok := kid.(RefObj); ok {
					walk(kidRef.R)
				}
			}
		}
	}
	walk(rootRef.R)
	return pages
}

// PageCount returns the number of leaf pages reachable from the catalog.
func (d *Document) PageCount() int { return len(d.PageRefs()) }

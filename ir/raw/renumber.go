package raw

import "sort"

// RewriteRefs applies mapping to every reference reachable from obj,
// descending into arrays, dictionaries and stream dictionaries. Container
// objects are rewritten in place; the (possibly replaced) object is returned.
// References absent from the mapping are left untouched.
func RewriteRefs(obj Object, mapping map[ObjectRef]ObjectRef) Object {
	switch v := obj.(type) {
	case RefObj:
		if to, ok := mapping[v.R]; ok {
			return RefObj{R: to}
		}
		return v
	case *ArrayObj:
		for i, item := range v.Items {
			v.Items[i] = RewriteRefs(item, mapping)
		}
		return v
	case *DictObj:
		for key, item := range v.KV {
			v.KV[key] = RewriteRefs(item, mapping)
		}
		return v
	case *StreamObj:
		if v.Dict != nil {
			RewriteRefs(v.Dict, mapping)
		}
		return v
	default:
		return obj
	}
}

// sortedRefs returns the pool's refs ordered by (Num, Gen).
func (d *Document) sortedRefs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}

// Renumber reassigns every object number to a consecutive run starting at
// offset, preserving relative order, and rewrites all references (including
// the trailer) consistently. It returns the next free object number, so a
// caller merging several documents can thread the offset through them and
// keep the pools disjoint. An empty pool leaves the offset unchanged.
func (d *Document) Renumber(offset int) int {
	if offset < 1 {
		offset = 1
	}
	refs := d.sortedRefs()
	mapping := make(map[ObjectRef]ObjectRef, len(refs))
	next := offset
	for _, ref := range refs {
		mapping[ref] = ObjectRef{Num: next, Gen: ref.Gen}
		next++
	}
	d.applyMapping(mapping)
	d.MaxID = next - 1
	return next
}

// RenumberDense renumbers the pool to the gap-free sequence 1..n with
// generation reset to zero, erasing any offsets left by earlier passes.
func (d *Document) RenumberDense() {
	refs := d.sortedRefs()
	mapping := make(map[ObjectRef]ObjectRef, len(refs))
	for i, ref := range refs {
		mapping[ref] = ObjectRef{Num: i + 1}
	}
	d.applyMapping(mapping)
	d.MaxID = len(refs)
}

func (d *Document) applyMapping(mapping map[ObjectRef]ObjectRef) {
	objects := make(map[ObjectRef]Object, len(d.Objects))
	for ref, obj := range d.Objects {
		objects[mapping[ref]] = RewriteRefs(obj, mapping)
	}
	d.Objects = objects
	if d.Trailer != nil {
		RewriteRefs(d.Trailer, mapping)
	}
}

package raw_test

import (
	"testing"

	"github.com/wudi/pdfmerge/ir/raw"
)

func TestRenumberShiftsPool(t *testing.T) {
	doc := buildPagedDoc(2)
	objects := len(doc.Objects)

	next := doc.Renumber(10)
	if next != 10+objects {
		t.Fatalf("expected next id %d, got %d", 10+objects, next)
	}
	if doc.MaxID != next-1 {
		t.Fatalf("expected MaxID %d, got %d", next-1, doc.MaxID)
	}
	for ref := range doc.Objects {
		if ref.Num < 10 || ref.Num >= next {
			t.Fatalf("object %d outside renumbered range [10,%d)", ref.Num, next)
		}
	}

	// The trailer and every internal reference must follow the move.
	catalog, catalogRef, ok := doc.Root()
	if !ok {
		t.Fatal("catalog lost after renumbering")
	}
	if catalogRef.Num != 10 {
		t.Fatalf("expected catalog at object 10, got %d", catalogRef.Num)
	}
	pagesObj, _ := catalog.Get(raw.NameLiteral("Pages"))
	if pagesObj.(raw.RefObj).R.Num != 11 {
		t.Fatalf("expected page tree root at object 11, got %d", pagesObj.(raw.RefObj).R.Num)
	}
	if got := doc.PageCount(); got != 2 {
		t.Fatalf("expected 2 pages after renumbering, got %d", got)
	}
}

func TestRenumberEmptyPoolKeepsOffset(t *testing.T) {
	doc := raw.NewDocument("1.5")
	if next := doc.Renumber(7); next != 7 {
		t.Fatalf("expected offset unchanged at 7, got %d", next)
	}
}

func TestRenumberOffsetBelowOneClamps(t *testing.T) {
	doc := raw.NewDocument("1.5")
	doc.Add(raw.NumberInt(1))
	if next := doc.Renumber(0); next != 2 {
		t.Fatalf("expected next id 2, got %d", next)
	}
}

func TestRenumberDenseClosesGapsAndResetsGen(t *testing.T) {
	doc := raw.NewDocument("1.5")
	doc.Put(raw.ObjectRef{Num: 5}, raw.NumberInt(50))
	doc.Put(raw.ObjectRef{Num: 9, Gen: 2}, raw.NumberInt(90))
	arr := raw.NewArray(raw.RefObj{R: raw.ObjectRef{Num: 9, Gen: 2}})
	doc.Put(raw.ObjectRef{Num: 12}, arr)

	doc.RenumberDense()
	if doc.MaxID != 3 {
		t.Fatalf("expected MaxID 3, got %d", doc.MaxID)
	}
	for want := 1; want <= 3; want++ {
		if _, ok := doc.Objects[raw.ObjectRef{Num: want}]; !ok {
			t.Fatalf("missing object %d after dense renumbering", want)
		}
	}
	item, _ := arr.Get(0)
	if got := item.(raw.RefObj).R; got.Num != 2 || got.Gen != 0 {
		t.Fatalf("expected rewritten ref 2 0, got %d %d", got.Num, got.Gen)
	}
}

func TestRewriteRefsDescendsContainers(t *testing.T) {
	mapping := map[raw.ObjectRef]raw.ObjectRef{
		{Num: 1}: {Num: 10},
	}

	dict := raw.Dict()
	dict.Set(raw.NameLiteral("A"), raw.RefObj{R: raw.ObjectRef{Num: 1}})
	dict.Set(raw.NameLiteral("B"), raw.NewArray(raw.RefObj{R: raw.ObjectRef{Num: 1}}))
	stream := raw.NewStream(dict, nil)

	raw.RewriteRefs(stream, mapping)

	a, _ := dict.Get(raw.NameLiteral("A"))
	if a.(raw.RefObj).R.Num != 10 {
		t.Fatalf("dict ref not rewritten: %v", a)
	}
	b, _ := dict.Get(raw.NameLiteral("B"))
	item, _ := b.(*raw.ArrayObj).Get(0)
	if item.(raw.RefObj).R.Num != 10 {
		t.Fatalf("array ref not rewritten: %v", item)
	}
}

func TestRewriteRefsLeavesUnmappedRefsAlone(t *testing.T) {
	mapping := map[raw.ObjectRef]raw.ObjectRef{{Num: 1}: {Num: 10}}
	got := raw.RewriteRefs(raw.RefObj{R: raw.ObjectRef{Num: 3}}, mapping)
	if got.(raw.RefObj).R.Num != 3 {
		t.Fatalf("unmapped ref changed: %v", got)
	}
}

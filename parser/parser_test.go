package parser_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/wudi/pdfmerge/ir/raw"
	"github.com/wudi/pdfmerge/parser"
	"github.com/wudi/pdfmerge/recovery"
)

const pageContent = "BT /F1 12 Tf (Hello) Tj ET"

// buildOnePagePDF emits a complete single-page document whose content stream
// announces its length through an indirect reference.
func buildOnePagePDF() []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.5\n")

	offsets := make(map[int]int64)

	offsets[1] = int64(buf.Len())
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = int64(buf.Len())
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = int64(buf.Len())
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>\nendobj\n")

	offsets[4] = int64(buf.Len())
	buf.WriteString("4 0 obj\n<< /Length 5 0 R >>\nstream\n")
	buf.WriteString(pageContent)
	buf.WriteString("\nendstream\nendobj\n")

	offsets[5] = int64(buf.Len())
	fmt.Fprintf(buf, "5 0 obj\n%d\nendobj\n", len(pageContent))

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 6\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(buf, "%010d 00000 n \n", offsets[i])
	}
	buf.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\n")
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}

type readerAt struct {
	data []byte
}

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if off+int64(n) >= int64(len(r.data)) {
		return n, io.EOF
	}
	return n, nil
}

func TestParseOnePageDocument(t *testing.T) {
	p := parser.NewDocumentParser(parser.Config{})
	doc, err := p.Parse(context.Background(), &readerAt{data: buildOnePagePDF()})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if doc.Version != "1.5" {
		t.Fatalf("expected version 1.5, got %q", doc.Version)
	}
	if len(doc.Objects) != 5 {
		t.Fatalf("expected 5 objects, got %d", len(doc.Objects))
	}
	if doc.PageCount() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.PageCount())
	}

	catalog, _, ok := doc.Root()
	if !ok || catalog.TypeName() != "Catalog" {
		t.Fatal("catalog did not resolve")
	}

	stream, ok := doc.Objects[raw.ObjectRef{Num: 4}].(*raw.StreamObj)
	if !ok {
		t.Fatalf("expected stream at object 4, got %T", doc.Objects[raw.ObjectRef{Num: 4}])
	}
	if string(stream.Data) != pageContent {
		t.Fatalf("stream payload mismatch: %q", stream.Data)
	}
}

func TestParseStrictFailsOnCorruptObject(t *testing.T) {
	pdf := buildOnePagePDF()
	// Corrupt the page object header so its load fails.
	corrupt := bytes.Replace(pdf, []byte("3 0 obj"), []byte("3 0 obx"), 1)

	p := parser.NewDocumentParser(parser.Config{})
	if _, err := p.Parse(context.Background(), &readerAt{data: corrupt}); err == nil {
		t.Fatal("expected error for corrupt object without recovery")
	}
}

func TestParseLenientSkipsCorruptObject(t *testing.T) {
	pdf := buildOnePagePDF()
	corrupt := bytes.Replace(pdf, []byte("3 0 obj"), []byte("3 0 obx"), 1)

	strategy := recovery.NewLenientStrategy()
	p := parser.NewDocumentParser(parser.Config{Recovery: strategy})
	doc, err := p.Parse(context.Background(), &readerAt{data: corrupt})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := doc.Objects[raw.ObjectRef{Num: 3}]; ok {
		t.Fatal("corrupt object should have been skipped")
	}
	if len(strategy.Errors) == 0 {
		t.Fatal("lenient strategy should have recorded the failure")
	}
	// The rest of the document is still usable.
	if _, _, ok := doc.Root(); !ok {
		t.Fatal("catalog lost during lenient parse")
	}
}

func TestParseRejectsMissingTrailerRoot(t *testing.T) {
	p := parser.NewDocumentParser(parser.Config{})
	if _, err := p.Parse(context.Background(), &readerAt{data: []byte("garbage")}); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

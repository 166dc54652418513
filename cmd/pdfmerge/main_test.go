package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/pdfmerge/ir/raw"
	"github.com/wudi/pdfmerge/merge"
	"github.com/wudi/pdfmerge/parser"
	"github.com/wudi/pdfmerge/writer"
)

func writePDF(t *testing.T, path string, pages int, withCatalog bool) {
	t.Helper()

	doc := raw.NewDocument("1.5")
	pagesDict := raw.Dict()
	pagesDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	pagesRef := doc.Add(pagesDict)

	if withCatalog {
		catalog := raw.Dict()
		catalog.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
		catalog.Set(raw.NameLiteral("Pages"), raw.RefObj{R: pagesRef})
		doc.Trailer.Set(raw.NameLiteral("Root"), raw.RefObj{R: doc.Add(catalog)})
	}

	kids := raw.NewArray()
	for i := 0; i < pages; i++ {
		page := raw.Dict()
		page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		page.Set(raw.NameLiteral("Parent"), raw.RefObj{R: pagesRef})
		kids.Append(raw.RefObj{R: doc.Add(page)})
	}
	pagesDict.Set(raw.NameLiteral("Kids"), kids)
	pagesDict.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(pages)))

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := writer.NewWriter().Write(context.Background(), doc, f, writer.Config{}); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type fileReaderAt struct {
	data []byte
}

func (r *fileReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if off+int64(n) >= int64(len(r.data)) {
		return n, io.EOF
	}
	return n, nil
}

func TestRunMergesDirectory(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, filepath.Join(dir, "b.pdf"), 1, true)
	writePDF(t, filepath.Join(dir, "a.pdf"), 2, true)
	outPath := filepath.Join(dir, "merged.pdf")

	var console bytes.Buffer
	opts := options{inPath: dir, outPath: outPath}
	if err := run(context.Background(), opts, &console); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := console.String()
	if !strings.Contains(text, "Path: "+dir) {
		t.Fatalf("missing path line in %q", text)
	}
	aLine := strings.Index(text, "a.pdf (2 pages)")
	bLine := strings.Index(text, "b.pdf (1 pages)")
	if aLine < 0 || bLine < 0 || aLine > bLine {
		t.Fatalf("order lines wrong or missing in %q", text)
	}
	if !strings.Contains(text, "Merged: "+outPath+" (3 pages)") {
		t.Fatalf("missing merge summary in %q", text)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	doc, err := parser.NewDocumentParser(parser.Config{}).Parse(context.Background(), &fileReaderAt{data: data})
	if err != nil {
		t.Fatalf("reparse output: %v", err)
	}
	if doc.PageCount() != 3 {
		t.Fatalf("expected 3 pages in the output, got %d", doc.PageCount())
	}
}

func TestRunOutputNeverBecomesInput(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, filepath.Join(dir, "a.pdf"), 1, true)
	outPath := filepath.Join(dir, defaultOutputName)

	opts := options{inPath: dir, outPath: outPath}
	if err := run(context.Background(), opts, io.Discard); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var console bytes.Buffer
	if err := run(context.Background(), opts, &console); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if strings.Contains(console.String(), "    "+defaultOutputName) {
		t.Fatalf("previous output picked up as input: %q", console.String())
	}
	if !strings.Contains(console.String(), "Merged: "+outPath+" (1 pages)") {
		t.Fatalf("second run should merge just a.pdf, got %q", console.String())
	}
}

func TestRunWithoutDocumentsWritesNothing(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "merged.pdf")

	var console bytes.Buffer
	if err := run(context.Background(), options{inPath: dir, outPath: outPath}, &console); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(console.String(), "No PDFs found") {
		t.Fatalf("missing empty-scan message in %q", console.String())
	}
	if _, err := os.Stat(outPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no output file may be produced for an empty scan")
	}
}

func TestRunStructuralFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	// A well-formed file with a page tree but no catalog root.
	writePDF(t, filepath.Join(dir, "headless.pdf"), 0, false)
	outPath := filepath.Join(dir, "merged.pdf")

	err := run(context.Background(), options{inPath: dir, outPath: outPath}, io.Discard)
	if !errors.Is(err, merge.ErrMissingCatalog) {
		t.Fatalf("expected ErrMissingCatalog, got %v", err)
	}
	if _, statErr := os.Stat(outPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("no output file may be produced on a structural failure")
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.inPath != "." || opts.outPath != defaultOutputName {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.annotate || opts.verbose {
		t.Fatalf("flags must default to off: %+v", opts)
	}
}

func TestParseFlagsPositionalArguments(t *testing.T) {
	opts, err := parseFlags([]string{"-v", "in", "out.pdf"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.inPath != "in" || opts.outPath != "out.pdf" || !opts.verbose {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseFlags([]string{"a", "b", "c"}); err == nil {
		t.Fatal("expected error for too many arguments")
	}
}

func TestParseFlagsAnnotateAliases(t *testing.T) {
	for _, args := range [][]string{{"-anno"}, {"-a"}} {
		opts, err := parseFlags(args)
		if err != nil {
			t.Fatalf("parse %v: %v", args, err)
		}
		if !opts.annotate {
			t.Fatalf("%v did not set annotate", args)
		}
	}
}

package scanner_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/wudi/pdfmerge/scanner"
)

func scanAll(t *testing.T, input string) []scanner.Token {
	t.Helper()
	s := scanner.NewBytes([]byte(input), scanner.Config{})
	var toks []scanner.Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return toks
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		toks = append(toks, tok)
	}
}

func TestScanDictionaryTokens(t *testing.T) {
	toks := scanAll(t, "<< /Type /Catalog /Count 3 >>")
	want := []struct {
		typ scanner.TokenType
		str string
	}{
		{scanner.TokenDict, "<<"},
		{scanner.TokenName, "Type"},
		{scanner.TokenName, "Catalog"},
		{scanner.TokenName, "Count"},
		{scanner.TokenNumber, ""},
		{scanner.TokenKeyword, ">>"},
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(toks))
	}
	for i, w := range want {
		if toks[i].Type != w.typ {
			t.Fatalf("token %d: expected type %d, got %d", i, w.typ, toks[i].Type)
		}
		if w.str != "" && toks[i].Str != w.str {
			t.Fatalf("token %d: expected %q, got %q", i, w.str, toks[i].Str)
		}
	}
	if toks[4].Int != 3 || !toks[4].IsInt {
		t.Fatalf("expected integer 3, got %+v", toks[4])
	}
}

func TestScanNameEscapes(t *testing.T) {
	toks := scanAll(t, "/A#20B")
	if len(toks) != 1 || toks[0].Str != "A B" {
		t.Fatalf("expected name \"A B\", got %+v", toks)
	}
}

func TestScanLiteralString(t *testing.T) {
	toks := scanAll(t, `(a\(nested\) \n \101 (deep))`)
	if len(toks) != 1 {
		t.Fatalf("expected one token, got %d", len(toks))
	}
	want := "a(nested) \n A (deep)"
	if string(toks[0].Bytes) != want {
		t.Fatalf("expected %q, got %q", want, toks[0].Bytes)
	}
	if toks[0].IsHex {
		t.Fatal("literal string flagged as hex")
	}
}

func TestScanHexString(t *testing.T) {
	toks := scanAll(t, "<48 65 6C6C 6F>")
	if len(toks) != 1 {
		t.Fatalf("expected one token, got %d", len(toks))
	}
	if string(toks[0].Bytes) != "Hello" || !toks[0].IsHex {
		t.Fatalf("expected hex \"Hello\", got %+v", toks[0])
	}
}

func TestScanHexStringOddDigitPadsZero(t *testing.T) {
	toks := scanAll(t, "<48656C6C6F2>")
	if got := toks[0].Bytes[len(toks[0].Bytes)-1]; got != 0x20 {
		t.Fatalf("expected trailing byte 0x20, got %#x", got)
	}
}

func TestScanNumberVersusReference(t *testing.T) {
	toks := scanAll(t, "5 0 R 12 -3 4.5 7 0 RG")
	if toks[0].Type != scanner.TokenRef || toks[0].Int != 5 || toks[0].Gen != 0 {
		t.Fatalf("expected ref 5 0, got %+v", toks[0])
	}
	if toks[1].Type != scanner.TokenNumber || toks[1].Int != 12 {
		t.Fatalf("expected integer 12, got %+v", toks[1])
	}
	if toks[2].Int != -3 {
		t.Fatalf("expected integer -3, got %+v", toks[2])
	}
	if toks[3].IsInt || toks[3].Float != 4.5 {
		t.Fatalf("expected real 4.5, got %+v", toks[3])
	}
	// "7 0 RG" is two numbers and an operator, not a reference.
	if toks[4].Type != scanner.TokenNumber || toks[4].Int != 7 {
		t.Fatalf("expected integer 7, got %+v", toks[4])
	}
	if toks[5].Type != scanner.TokenNumber || toks[5].Int != 0 {
		t.Fatalf("expected integer 0, got %+v", toks[5])
	}
	if toks[6].Type != scanner.TokenKeyword || toks[6].Str != "RG" {
		t.Fatalf("expected keyword RG, got %+v", toks[6])
	}
}

func TestScanKeywordsAndAtoms(t *testing.T) {
	toks := scanAll(t, "true false null obj endobj [ ]")
	if toks[0].Type != scanner.TokenBoolean || !toks[0].Bool {
		t.Fatalf("expected true, got %+v", toks[0])
	}
	if toks[1].Type != scanner.TokenBoolean || toks[1].Bool {
		t.Fatalf("expected false, got %+v", toks[1])
	}
	if toks[2].Type != scanner.TokenNull {
		t.Fatalf("expected null, got %+v", toks[2])
	}
	if toks[3].Str != "obj" || toks[4].Str != "endobj" {
		t.Fatalf("expected obj/endobj keywords, got %+v %+v", toks[3], toks[4])
	}
	if toks[5].Type != scanner.TokenArray || toks[6].Type != scanner.TokenKeyword {
		t.Fatalf("expected array delimiters, got %+v %+v", toks[5], toks[6])
	}
}

func TestScanSkipsComments(t *testing.T) {
	toks := scanAll(t, "% header comment\n42")
	if len(toks) != 1 || toks[0].Int != 42 {
		t.Fatalf("expected single integer 42, got %+v", toks)
	}
}

func TestScanStreamWithAnnouncedLength(t *testing.T) {
	payload := []byte("BT /F1 12 Tf ET")
	input := append([]byte("stream\n"), payload...)
	input = append(input, []byte("\nendstream more")...)
	s := scanner.NewBytes(input, scanner.Config{})
	s.SetNextStreamLength(int64(len(payload)))

	tok, err := s.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if tok.Type != scanner.TokenStream || !bytes.Equal(tok.Bytes, payload) {
		t.Fatalf("expected stream payload %q, got %+v", payload, tok)
	}
	next, err := s.Next()
	if err != nil {
		t.Fatalf("next after stream: %v", err)
	}
	if next.Str != "more" {
		t.Fatalf("endstream not consumed, got %+v", next)
	}
}

func TestScanStreamFallsBackToEndstreamScan(t *testing.T) {
	input := []byte("stream\r\ndata bytes\nendstream")
	s := scanner.NewBytes(input, scanner.Config{})
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if string(tok.Bytes) != "data bytes" {
		t.Fatalf("expected trimmed payload, got %q", tok.Bytes)
	}
}

func TestScanStringLimit(t *testing.T) {
	s := scanner.NewBytes([]byte("(abcdef)"), scanner.Config{MaxStringLength: 3})
	if _, err := s.Next(); err == nil {
		t.Fatal("expected error for string over the configured maximum")
	}
}

func TestSeekTo(t *testing.T) {
	s := scanner.NewBytes([]byte("ignored 42"), scanner.Config{})
	if err := s.SeekTo(8); err != nil {
		t.Fatalf("seek: %v", err)
	}
	tok, err := s.Next()
	if err != nil || tok.Int != 42 {
		t.Fatalf("expected 42 after seek, got %+v (%v)", tok, err)
	}
	if err := s.SeekTo(999); err == nil {
		t.Fatal("expected error for out-of-range seek")
	}
}

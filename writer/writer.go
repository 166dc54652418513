package writer

import (
	"context"
	"io"

	"github.com/wudi/pdfmerge/ir/raw"
)

type PDFVersion string

const (
	PDF15 PDFVersion = "1.5"
	PDF17 PDFVersion = "1.7"
)

type Config struct {
	Version PDFVersion
	// Compression is the flate level applied to unfiltered streams.
	// Zero leaves stream data untouched.
	Compression int
}

// Writer serializes a raw document to a classic xref-table PDF. Output is
// deterministic: objects are emitted in ascending id order and dictionary
// keys are sorted.
type Writer interface {
	Write(ctx context.Context, doc *raw.Document, w io.Writer, cfg Config) error
}

func NewWriter() Writer { return &impl{} }

package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"

	"github.com/wudi/pdfmerge/ir/raw"
)

type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params raw.Dictionary) ([]byte, error)
}

type Encoder interface {
	Name() string
	Encode(ctx context.Context, input []byte) ([]byte, error)
}

type Limits struct {
	MaxDecompressedSize int64
}

type Pipeline struct {
	decoders []Decoder
	limits   Limits
}

// NewPipeline constructs a pipeline with provided decoders and limits.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	return &Pipeline{decoders: decoders, limits: limits}
}

func (p *Pipeline) findDecoder(name string) Decoder {
	for _, d := range p.decoders {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []raw.Dictionary) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		dec := p.findDecoder(name)
		if dec == nil {
			return nil, errors.New("unknown filter: " + name)
		}
		var param raw.Dictionary
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			return nil, err
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, errors.New("decompressed size exceeds limit")
		}
		data = out
	}
	return data, nil
}

type flateDecoder struct{}

func NewFlateDecoder() Decoder    { return flateDecoder{} }
func (flateDecoder) Name() string { return "FlateDecode" }

func (flateDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return out, nil
}

type flateEncoder struct{ level int }

// NewFlateEncoder returns a FlateDecode producer. Level follows
// compress/flate: 0 stored, 9 best compression, -1 default.
func NewFlateEncoder(level int) Encoder { return flateEncoder{level: level} }

func (flateEncoder) Name() string { return "FlateDecode" }

func (e flateEncoder) Encode(ctx context.Context, in []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, e.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(in); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FilterNames extracts the /Filter chain from a stream dictionary.
func FilterNames(dict *raw.DictObj) []string {
	if dict == nil {
		return nil
	}
	fObj, ok := dict.Get(raw.NameLiteral("Filter"))
	if !ok {
		return nil
	}
	switch v := fObj.(type) {
	case raw.NameObj:
		return []string{v.Val}
	case *raw.ArrayObj:
		var names []string
		for _, it := range v.Items {
			if n, ok := it.(raw.NameObj); ok {
				names = append(names, n.Val)
			}
		}
		return names
	}
	return nil
}

package xref

import (
	"context"
	"errors"
	"io"

	"github.com/wudi/pdfmerge/ir/raw"
	"github.com/wudi/pdfmerge/scanner"
)

// repair scans the entire file to reconstruct the xref table. It looks for
// "<num> <gen> obj" patterns and trailer dictionaries; the last trailer wins.
func repair(ctx context.Context, data []byte) (Table, *raw.DictObj, error) {
	s := scanner.NewBytes(data, scanner.Config{})
	entries := make(map[int]entry)
	var lastTrailer *raw.DictObj

	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		tok, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Skip unreadable bytes during a repair scan.
			continue
		}

		if tok.Type == scanner.TokenNumber && tok.IsInt {
			objNum := int(tok.Int)

			tokGen, err := s.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				continue
			}
			if tokGen.Type != scanner.TokenNumber || !tokGen.IsInt {
				continue
			}
			gen := int(tokGen.Int)

			tokObj, err := s.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				continue
			}
			if tokObj.Type == scanner.TokenKeyword && tokObj.Str == "obj" {
				// Later definitions of the same object shadow earlier
				// ones, matching incremental-update semantics.
				entries[objNum] = entry{offset: tok.Pos, gen: gen}
				continue
			}
			// tokGen could itself start an object header; rewind to it.
			if err := s.SeekTo(tokGen.Pos); err != nil {
				return nil, nil, err
			}
			continue
		}

		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			tr := &tokenReader{s: s}
			if obj, err := parseObject(tr); err == nil {
				if dict, ok := obj.(*raw.DictObj); ok {
					lastTrailer = dict
				}
			}
		}
	}

	if len(entries) == 0 {
		return nil, nil, errors.New("repair failed: no objects found")
	}
	if lastTrailer == nil {
		lastTrailer = raw.Dict()
		lastTrailer.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(len(entries)+1)))
	}
	return &table{entries: entries}, lastTrailer, nil
}

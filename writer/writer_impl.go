package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/wudi/pdfmerge/filters"
	"github.com/wudi/pdfmerge/ir/raw"
)

type impl struct{}

func (im *impl) Write(ctx context.Context, doc *raw.Document, w io.Writer, cfg Config) error {
	if doc == nil || doc.Trailer == nil {
		return errors.New("document has no trailer")
	}
	version := cfg.Version
	if version == "" {
		version = PDF17
		if doc.Version != "" {
			version = PDFVersion(doc.Version)
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	// Binary marker comment so transfer tools treat the file as binary.
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")

	refs := make([]raw.ObjectRef, 0, len(doc.Objects))
	for ref := range doc.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})

	offsets := make(map[raw.ObjectRef]int64, len(refs))
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		obj := doc.Objects[ref]
		if cfg.Compression > 0 {
			var err error
			obj, err = compressStream(ctx, obj, cfg.Compression)
			if err != nil {
				return fmt.Errorf("compress object %d: %w", ref.Num, err)
			}
		}
		offsets[ref] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
		if err := serializeObject(&buf, obj); err != nil {
			return fmt.Errorf("serialize object %d: %w", ref.Num, err)
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := int64(buf.Len())
	writeXRefTable(&buf, refs, offsets)

	trailer := doc.Trailer.Clone()
	maxNum := 0
	if len(refs) > 0 {
		maxNum = refs[len(refs)-1].Num
	}
	trailer.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(maxNum+1)))
	buf.WriteString("trailer\n")
	if err := serializeObject(&buf, trailer); err != nil {
		return fmt.Errorf("serialize trailer: %w", err)
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := w.Write(buf.Bytes())
	return err
}

// compressStream flate-encodes a stream that carries no filter yet.
func compressStream(ctx context.Context, obj raw.Object, level int) (raw.Object, error) {
	st, ok := obj.(*raw.StreamObj)
	if !ok || st.Dict == nil {
		return obj, nil
	}
	if len(filters.FilterNames(st.Dict)) > 0 {
		return obj, nil
	}
	enc := filters.NewFlateEncoder(level)
	data, err := enc.Encode(ctx, st.Data)
	if err != nil {
		return nil, err
	}
	if len(data) >= len(st.Data) {
		return obj, nil
	}
	dict := st.Dict.Clone()
	dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))
	dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))
	return raw.NewStream(dict, data), nil
}

// writeXRefTable emits classic subsections, splitting on gaps in the id
// sequence. The free-list head occupies entry zero.
func writeXRefTable(buf *bytes.Buffer, refs []raw.ObjectRef, offsets map[raw.ObjectRef]int64) {
	buf.WriteString("xref\n")

	type xentry struct {
		num, gen int
		offset   int64
		free     bool
	}
	entries := []xentry{{num: 0, gen: 65535, free: true}}
	for _, ref := range refs {
		entries = append(entries, xentry{num: ref.Num, gen: ref.Gen, offset: offsets[ref]})
	}

	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].num == entries[j-1].num+1 {
			j++
		}
		fmt.Fprintf(buf, "%d %d\n", entries[i].num, j-i)
		for _, e := range entries[i:j] {
			kind := "n"
			if e.free {
				kind = "f"
			}
			fmt.Fprintf(buf, "%010d %05d %s \n", e.offset, e.gen, kind)
		}
		i = j
	}
}

package xref

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/pdfmerge/ir/raw"
)

// Table holds object offsets for a classic xref table.
type Table interface {
	Lookup(objNum int) (offset int64, gen int, found bool)
	Objects() []int
	Type() string
}

// Resolver locates and parses xref information in a PDF.
type Resolver interface {
	Resolve(ctx context.Context, r io.ReaderAt) (Table, error)
	Trailer() *raw.DictObj
}

type ResolverConfig struct {
	// MaxChainDepth bounds the /Prev chain walked across incremental
	// updates. Zero means the default of 32.
	MaxChainDepth int
}

// NewResolver returns a classic-table resolver with a repair fallback.
func NewResolver(cfg ResolverConfig) Resolver {
	if cfg.MaxChainDepth <= 0 {
		cfg.MaxChainDepth = 32
	}
	return &tableResolver{cfg: cfg}
}

type entry struct {
	offset int64
	gen    int
}

type tableResolver struct {
	cfg     ResolverConfig
	trailer *raw.DictObj
}

func (t *tableResolver) Trailer() *raw.DictObj { return t.trailer }

func (t *tableResolver) Resolve(ctx context.Context, r io.ReaderAt) (Table, error) {
	data := readAll(r)

	table, trailer, err := t.resolveChain(ctx, data)
	if err == nil {
		t.trailer = trailer
		return table, nil
	}

	// Damaged or missing table: reconstruct by scanning the whole file.
	repaired, repTrailer, repErr := repair(ctx, data)
	if repErr != nil {
		return nil, fmt.Errorf("resolve xref: %w", err)
	}
	t.trailer = repTrailer
	return repaired, nil
}

func (t *tableResolver) resolveChain(ctx context.Context, data []byte) (Table, *raw.DictObj, error) {
	offset, err := startXRefOffset(data)
	if err != nil {
		return nil, nil, err
	}

	entries := make(map[int]entry)
	trailer := raw.Dict()
	seen := make(map[int64]bool)

	for depth := 0; depth < t.cfg.MaxChainDepth; depth++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		if offset <= 0 || offset >= int64(len(data)) {
			return nil, nil, fmt.Errorf("xref offset out of range: %d", offset)
		}
		if seen[offset] {
			break
		}
		seen[offset] = true

		section, sectionTrailer, err := parseSection(data, offset)
		if err != nil {
			return nil, nil, err
		}
		// Newer sections are visited first; their entries win.
		for num, e := range section {
			if _, ok := entries[num]; !ok {
				entries[num] = e
			}
		}
		for _, key := range sectionTrailer.Keys() {
			if _, ok := trailer.Get(key); !ok {
				v, _ := sectionTrailer.Get(key)
				trailer.Set(key, v)
			}
		}

		prevObj, ok := sectionTrailer.Get(raw.NameLiteral("Prev"))
		if !ok {
			break
		}
		prev, ok := prevObj.(raw.NumberObj)
		if !ok || !prev.IsInteger() {
			break
		}
		offset = prev.Int()
	}

	if len(entries) == 0 {
		return nil, nil, errors.New("empty xref table")
	}
	trailer.Delete(raw.NameLiteral("Prev"))
	return &table{entries: entries}, trailer, nil
}

func startXRefOffset(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	lines := bufio.NewScanner(bytes.NewReader(data[idx+len("startxref"):]))
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse startxref: %w", err)
		}
		return val, nil
	}
	return 0, errors.New("startxref value missing")
}

// parseSection reads one classic xref section plus its trailer dictionary.
func parseSection(data []byte, offset int64) (map[int]entry, *raw.DictObj, error) {
	section := data[offset:]
	trailerIdx := bytes.Index(section, []byte("trailer"))
	if trailerIdx < 0 {
		return nil, nil, errors.New("trailer keyword not found after xref section")
	}

	sc := bufio.NewScanner(bytes.NewReader(section[:trailerIdx]))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "xref" {
		return nil, nil, errors.New("xref keyword not found at offset")
	}

	entries := make(map[int]entry)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, nil, fmt.Errorf("invalid xref subsection header: %q", line)
		}
		startObj, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, nil, fmt.Errorf("parse xref start: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, nil, fmt.Errorf("parse xref count: %w", err)
		}
		for i := 0; i < count; i++ {
			if !sc.Scan() {
				return nil, nil, errors.New("unexpected end of xref section")
			}
			entryLine := strings.TrimSpace(sc.Text())
			fields := strings.Fields(entryLine)
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("invalid xref entry: %q", entryLine)
			}
			off, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("parse xref offset: %w", err)
			}
			gen, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, nil, fmt.Errorf("parse xref gen: %w", err)
			}
			if len(fields[2]) == 0 || fields[2][0] != 'n' {
				continue // free entry
			}
			entries[startObj+i] = entry{offset: off, gen: gen}
		}
	}

	trailer, err := parseTrailerDict(section[trailerIdx+len("trailer"):])
	if err != nil {
		return nil, nil, err
	}
	return entries, trailer, nil
}

func readAll(r io.ReaderAt) []byte {
	var buf bytes.Buffer
	const chunk = 32 * 1024
	tmp := make([]byte, chunk)
	for off := int64(0); ; off += chunk {
		n, err := r.ReadAt(tmp, off)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil || n < chunk {
			break
		}
	}
	return buf.Bytes()
}

type table struct {
	entries map[int]entry
}

func (t *table) Lookup(objNum int) (int64, int, bool) {
	e, ok := t.entries[objNum]
	if !ok {
		return 0, 0, false
	}
	return e.offset, e.gen, true
}

func (t *table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (t *table) Type() string { return "table" }

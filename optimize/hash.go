package optimize

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wudi/pdfmerge/ir/raw"
)

// fingerprint produces a canonical rendering of an object's full content,
// including nested structure and reference targets. Two objects share a
// fingerprint only if replacing one with the other is unobservable.
func fingerprint(obj raw.Object) string {
	var buf bytes.Buffer
	writeFingerprint(&buf, obj)
	return buf.String()
}

func writeFingerprint(buf *bytes.Buffer, obj raw.Object) {
	switch v := obj.(type) {
	case nil, raw.NullObj:
		buf.WriteString("null")
	case raw.BoolObj:
		fmt.Fprintf(buf, "b%t", v.V)
	case raw.NumberObj:
		if v.IsInt {
			fmt.Fprintf(buf, "i%d", v.I)
		} else {
			fmt.Fprintf(buf, "f%g", v.F)
		}
	case raw.StringObj:
		fmt.Fprintf(buf, "s%t%d:", v.Hex, len(v.Bytes))
		buf.Write(v.Bytes)
	case raw.NameObj:
		fmt.Fprintf(buf, "n%d:%s", len(v.Val), v.Val)
	case raw.RefObj:
		fmt.Fprintf(buf, "r%d.%d", v.R.Num, v.R.Gen)
	case *raw.ArrayObj:
		buf.WriteByte('[')
		for _, item := range v.Items {
			writeFingerprint(buf, item)
			buf.WriteByte(',')
		}
		buf.WriteByte(']')
	case *raw.DictObj:
		buf.WriteString("<<")
		keys := make([]string, 0, v.Len())
		for _, k := range v.Keys() {
			keys = append(keys, k.Value())
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(buf, "/%d:%s=", len(key), key)
			val, _ := v.Get(raw.NameLiteral(key))
			writeFingerprint(buf, val)
		}
		buf.WriteString(">>")
	case *raw.StreamObj:
		buf.WriteString("stm")
		writeFingerprint(buf, v.Dict)
		fmt.Fprintf(buf, "%d:", len(v.Data))
		buf.Write(v.Data)
	default:
		fmt.Fprintf(buf, "?%s", obj.Type())
	}
}

func sortRefs(refs []raw.ObjectRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
}

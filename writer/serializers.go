package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/wudi/pdfmerge/ir/raw"
)

func serializeObject(buf *bytes.Buffer, obj raw.Object) error {
	switch v := obj.(type) {
	case nil, raw.NullObj:
		buf.WriteString("null")
	case raw.BoolObj:
		if v.V {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case raw.NumberObj:
		if v.IsInt {
			buf.WriteString(strconv.FormatInt(v.I, 10))
		} else {
			buf.WriteString(strconv.FormatFloat(v.F, 'f', -1, 64))
		}
	case raw.StringObj:
		serializeString(buf, v)
	case raw.NameObj:
		serializeName(buf, v.Val)
	case raw.RefObj:
		fmt.Fprintf(buf, "%d %d R", v.R.Num, v.R.Gen)
	case *raw.ArrayObj:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := serializeObject(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *raw.DictObj:
		return serializeDict(buf, v)
	case *raw.StreamObj:
		dict := v.Dict
		if dict == nil {
			dict = raw.Dict()
		}
		dict = dict.Clone()
		dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(v.Data))))
		if err := serializeDict(buf, dict); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		return fmt.Errorf("cannot serialize object of type %q", obj.Type())
	}
	return nil
}

func serializeDict(buf *bytes.Buffer, dict *raw.DictObj) error {
	keys := make([]string, 0, dict.Len())
	for _, k := range dict.Keys() {
		keys = append(keys, k.Value())
	}
	sort.Strings(keys)
	buf.WriteString("<<")
	for _, key := range keys {
		buf.WriteByte(' ')
		serializeName(buf, key)
		buf.WriteByte(' ')
		val, _ := dict.Get(raw.NameLiteral(key))
		if err := serializeObject(buf, val); err != nil {
			return err
		}
	}
	buf.WriteString(" >>")
	return nil
}

func serializeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c > '~' || c == '#' || c == '/' || c == '(' || c == ')' ||
			c == '<' || c == '>' || c == '[' || c == ']' || c == '{' || c == '}' || c == '%' {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func serializeString(buf *bytes.Buffer, s raw.StringObj) {
	if s.Hex {
		buf.WriteByte('<')
		for _, b := range s.Bytes {
			fmt.Fprintf(buf, "%02X", b)
		}
		buf.WriteByte('>')
		return
	}
	buf.WriteByte('(')
	for _, b := range s.Bytes {
		switch b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\r':
			buf.WriteString("\\r")
		case '\n':
			buf.WriteString("\\n")
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

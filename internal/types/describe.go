package types

import (
	"strconv"
	"strings"

	"vire/internal/source"
)

// Describe renders a type in source-like syntax for diagnostics.
func (in *Interner) Describe(id TypeID) string {
	var b strings.Builder
	in.describe(&b, id)
	return b.String()
}

func (in *Interner) describe(b *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		b.WriteString("<invalid#")
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		b.WriteByte('>')
		return
	}
	switch tt.Kind {
	case KindBool:
		b.WriteString("bool")
	case KindInt:
		writeNumeric(b, 'i', "isize", tt.Width)
	case KindUint:
		writeNumeric(b, 'u', "usize", tt.Width)
	case KindFloat:
		writeNumeric(b, 'f', "f64", tt.Width)
	case KindString:
		b.WriteString("str")
	case KindNever:
		b.WriteByte('!')
	case KindPointer:
		if tt.Mutable {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
		in.describe(b, tt.Elem)
	case KindReference:
		if tt.Mutable {
			b.WriteString("&mut ")
		} else {
			b.WriteByte('&')
		}
		in.describe(b, tt.Elem)
	case KindTuple:
		elems := in.TupleElems(id)
		b.WriteByte('(')
		in.describeList(b, elems)
		if len(elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case KindNominal:
		info, _ := in.NominalInfo(id)
		if info == nil {
			b.WriteString("<nominal>")
			return
		}
		b.WriteString(in.Strings.MustLookup(info.Name))
		if len(info.TypeArgs) > 0 {
			b.WriteByte('<')
			in.describeList(b, info.TypeArgs)
			b.WriteByte('>')
		}
	case KindGenericParam:
		b.WriteByte('$')
		b.WriteString(in.stringPayload(tt))
	case KindFn:
		params, _ := in.FnParams(id)
		b.WriteString("fn(")
		in.describeList(b, params)
		b.WriteByte(')')
		if tt.Elem != NoTypeID {
			b.WriteString(" -> ")
			in.describe(b, tt.Elem)
		}
	case KindDyn:
		b.WriteString("dyn ")
		b.WriteString(in.stringPayload(tt))
	default:
		b.WriteString(tt.Kind.String())
	}
}

func (in *Interner) describeList(b *strings.Builder, ids []TypeID) {
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		in.describe(b, id)
	}
}

func (in *Interner) stringPayload(tt Type) string {
	s, ok := in.Strings.Lookup(source.StringID(tt.Payload))
	if !ok {
		return "?"
	}
	return s
}

func writeNumeric(b *strings.Builder, prefix byte, anyName string, w Width) {
	if w == WidthAny {
		b.WriteString(anyName)
		return
	}
	b.WriteByte(prefix)
	b.WriteString(strconv.Itoa(int(w)))
}

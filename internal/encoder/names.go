package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"vire/internal/vir"
)

// Value fields are shared by every type of the same kind family; the width,
// signedness and mutability of the type never influence them.
const (
	valueFieldBool = "val_bool"
	valueFieldInt  = "val_int"
	valueFieldRef  = "val_ref"

	discriminantField = "discriminant"
)

var (
	boolValueField = vir.NewField(valueFieldBool, vir.TypeBool)
	intValueField  = vir.NewField(valueFieldInt, vir.TypeInt)
	refValueField  = vir.NewField(valueFieldRef, vir.TypeRef)
)

func tupleFieldName(index int) string {
	return "tuple_" + strconv.Itoa(index)
}

func structFieldName(field string) string {
	return "struct_" + sanitizeSegment(field)
}

func enumFieldName(variant int, field string) string {
	return "enum_" + strconv.Itoa(variant) + "_" + sanitizeSegment(field)
}

func tupleName(elems []string) string {
	return fmt.Sprintf("tuple%d$%s", len(elems), strings.Join(elems, "$"))
}

func instanceName(base string, args []string) string {
	if len(args) == 0 {
		return base
	}
	return fmt.Sprintf("%s$targs%d$%s", base, len(args), strings.Join(args, "$"))
}

// nominalName turns a path such as `std::option::Option` into a backend
// identifier (`adt3$std$option$Option`). The segment count keeps the end of
// the identity unambiguous when the name is nested in a tuple or an instance.
// Identities are NFC-normalized by the string interner before they get here.
func nominalName(path string) string {
	segs := strings.Split(path, "::")
	for i, s := range segs {
		segs[i] = sanitizeSegment(s)
	}
	return fmt.Sprintf("adt%d$%s", len(segs), strings.Join(segs, "$"))
}

// sanitizeSegment keeps ASCII identifier characters and hex-escapes the rest
// as `_u<HEX>_`. `$` is always escaped so it stays reserved as the name
// separator, and an underscore that is followed by `u` is escaped too so a
// literal `_u` is never read back as the start of an escape.
func sanitizeSegment(s string) string {
	if !needsEscape(s) {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if r == '_' && i+1 < len(s) && s[i+1] == 'u' {
			fmt.Fprintf(&b, "_u%X_", r)
			continue
		}
		if r < 0x80 && isIdentByte(byte(r)) {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "_u%X_", r)
	}
	return b.String()
}

func needsEscape(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return true
		}
		if s[i] == '_' && i+1 < len(s) && s[i+1] == 'u' {
			return true
		}
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

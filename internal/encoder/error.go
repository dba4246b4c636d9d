package encoder

import (
	"strings"

	"vire/internal/types"
)

// ErrorKind categorizes encoding failures.
type ErrorKind uint8

const (
	// KindUnsupportedType: the type, or a type reachable from it, has no
	// encoding at this layer.
	KindUnsupportedType ErrorKind = iota + 1
	// KindInternalConsistency: an invariant the encoder relies on does not
	// hold. The run must stop.
	KindInternalConsistency
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedType:
		return "unsupported type"
	case KindInternalConsistency:
		return "internal consistency violation"
	default:
		return "encoding error"
	}
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedType     = &Error{Kind: KindUnsupportedType}
	ErrInternalConsistency = &Error{Kind: KindInternalConsistency}
)

// Error is the structured error returned by every encoder operation.
type Error struct {
	Kind   ErrorKind
	Op     string       // operation that failed, e.g. "predicate_def"
	Type   types.TypeID // offending type
	Desc   string       // offending type rendered for humans
	Within []string     // enclosing types, innermost first
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Desc != "" {
		b.WriteString(" `")
		b.WriteString(e.Desc)
		b.WriteByte('`')
	}
	if len(e.Within) > 0 {
		b.WriteString(" (within `")
		b.WriteString(strings.Join(e.Within, "` in `"))
		b.WriteString("`)")
	}
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so the package sentinels work with
// errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// within returns a copy of e that also records enclosing as context.
// Errors may be shared between goroutines through the registry, so the
// receiver is never modified.
func (e *Error) within(enclosing string) *Error {
	cp := *e
	cp.Within = append(append([]string(nil), e.Within...), enclosing)
	return &cp
}

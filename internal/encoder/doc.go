// Package encoder derives, for every monomorphized type, the heap fields that
// represent its values, the name of its access predicate, and the predicate
// definition itself.
//
// A Context owns the type interner, a Registry that memoizes every derived
// artifact, and the logger. A TypeEncoder is a short-lived pairing of a
// Context with one type; nested types are always resolved through the
// Registry by name, so recursive types terminate at the first indirection
// instead of being inlined.
//
//	ctx := encoder.NewContext(in, encoder.WithLogger(log))
//	pred, err := ctx.Registry().PredicateDef(id)
package encoder

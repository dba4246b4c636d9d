// Package vir holds the data constructors of the verification IR: fields,
// places, permission amounts, boolean and arithmetic expressions, access
// assertions and predicate definitions.
//
// Values are plain data. Predicates reference each other by name only, so a
// program is an arena of named definitions and recursive types never require
// nested, owned sub-definitions.
package vir

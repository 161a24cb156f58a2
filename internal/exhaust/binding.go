// Package exhaust finds single-pass iterators that are consumed again by
// an enclosing loop after their first pass has drained them:
//
//	squares = map(square, xs)
//	for row in rows:
//	    for s in squares:  # empty from the second row on
//	        ...
//
// A Session walks one module. Assignments feed a ScopeTable of tracked
// bindings; every loop iterable and every argument of a draining call is
// a use site, reported when the nearest loop around it does not also
// contain the binding's definition.
package exhaust

import "itercheck/internal/pyast"

// OriginKind says how a tracked binding got its iterator.
type OriginKind int

const (
	// DirectProducer is a call such as map(...) or zip(...).
	DirectProducer OriginKind = iota + 1
	// GeneratorForm is a generator expression.
	GeneratorForm
	// Alias is a plain copy of another tracked name.
	Alias
)

func (k OriginKind) String() string {
	switch k {
	case DirectProducer:
		return "producer call"
	case GeneratorForm:
		return "generator expression"
	case Alias:
		return "alias"
	default:
		return "unknown"
	}
}

// Binding is the tracked association between a name in a scope and the
// iterator its latest assignment produced.
type Binding struct {
	Name  string
	Scope *pyast.Scope
	// Def is the statement (or assignment expression) that bound the name.
	Def  pyast.Node
	Kind OriginKind
	// Source is the binding an Alias copies; nil otherwise.
	Source *Binding
}

// Root follows aliases back to the binding that created the iterator.
// Exhausting an alias exhausts its root, since both names refer to the
// same object.
func (b *Binding) Root() *Binding {
	for b.Kind == Alias && b.Source != nil {
		b = b.Source
	}
	return b
}

// Origin returns the kind of the root binding.
func (b *Binding) Origin() OriginKind {
	return b.Root().Kind
}

package exhaust

import "itercheck/internal/pyast"

// Unwinder finds the variable references a use expression consumes.
type Unwinder struct {
	classifier *Classifier
}

func NewUnwinder(c *Classifier) *Unwinder {
	return &Unwinder{classifier: c}
}

// Unwind returns every bare name reachable from expr through
// parentheses, splats, assignment expressions, producer calls and the
// first iterable of a comprehension, in source order. It never descends
// into lambdas or other call arguments, so
//
//	zip(filter(pred, a), iter(b), sorted(c))
//
// yields pred, a and b.
func (u *Unwinder) Unwind(expr pyast.Node) []*pyast.Name {
	var names []*pyast.Name
	u.collect(expr, &names)
	return names
}

func (u *Unwinder) collect(n pyast.Node, names *[]*pyast.Name) {
	switch e := n.(type) {
	case *pyast.Name:
		if !e.Store {
			*names = append(*names, e)
		}
	case *pyast.Starred:
		u.collect(e.Value, names)
	case *pyast.NamedExpr:
		u.collect(e.Value, names)
	case *pyast.Call:
		if !u.classifier.IsProducerCall(e) {
			return
		}
		for _, arg := range e.Args {
			u.collect(arg, names)
		}
	case *pyast.Comprehension:
		if len(e.Clauses) > 0 {
			u.collect(e.Clauses[0].Iter, names)
		}
	}
}

package exhaust

import "itercheck/internal/pyast"

// NearestEnclosingLoop returns the closest loop whose repeated part
// contains n. The walk stops at function, lambda, class and module
// boundaries. Parts of a loop that run once per loop execution do not
// count as inside it: a for loop's iterable and else clause, a while
// loop's else clause and the first iterable of a comprehension. A node
// without a parent has no enclosing loop.
func NearestEnclosingLoop(n pyast.Node) (pyast.Node, bool) {
	if n == nil {
		return nil, false
	}
	prev := n
	for cur := n.Parent(); cur != nil; prev, cur = cur, cur.Parent() {
		switch c := cur.(type) {
		case *pyast.For:
			if contains(c.Body, prev) {
				return c, true
			}
		case *pyast.While:
			if prev == c.Cond || contains(c.Body, prev) {
				return c, true
			}
		case *pyast.CompFor:
			if prev == c.Iter && isFirstClause(c) {
				// Continue above the comprehension itself.
				cur = c.Parent()
			}
		case *pyast.Comprehension:
			return c, true
		default:
			if crossesBoundary(cur, prev) {
				return nil, false
			}
		}
	}
	return nil, false
}

// IsAncestorOrSelf reports whether candidate is n or lies on n's parent
// chain before a function, lambda, class or module boundary.
func IsAncestorOrSelf(candidate, n pyast.Node) bool {
	if candidate == nil || n == nil {
		return false
	}
	prev := n
	for cur := n; cur != nil; prev, cur = cur, cur.Parent() {
		if cur == candidate {
			return true
		}
		if crossesBoundary(cur, prev) {
			return false
		}
	}
	return false
}

// crossesBoundary reports whether moving up from child into n leaves a
// scope. Decorators, defaults and base classes are evaluated outside the
// scope they belong to, so only the bodies count.
func crossesBoundary(n, child pyast.Node) bool {
	switch n := n.(type) {
	case *pyast.Module:
		return true
	case *pyast.FunctionDef:
		return contains(n.Body, child)
	case *pyast.Lambda:
		return child == n.Body
	case *pyast.ClassDef:
		return contains(n.Body, child)
	default:
		return false
	}
}

// BoundByComprehension reports whether ref names a target of a
// comprehension around it, which makes the name local to that
// comprehension. The first iterable is evaluated in the enclosing scope
// and is not affected by the comprehension's own targets.
func BoundByComprehension(ref *pyast.Name) bool {
	if ref == nil {
		return false
	}
	var prev pyast.Node = ref
	for cur := ref.Parent(); cur != nil; prev, cur = cur, cur.Parent() {
		switch c := cur.(type) {
		case *pyast.CompFor:
			if prev == c.Iter && isFirstClause(c) {
				prev, cur = c, c.Parent()
			}
		case *pyast.Comprehension:
			for _, clause := range c.Clauses {
				if targetBinds(clause.Target, ref.ID) {
					return true
				}
			}
		default:
			if crossesBoundary(cur, prev) {
				return false
			}
		}
	}
	return false
}

func targetBinds(target pyast.Node, name string) bool {
	switch t := target.(type) {
	case *pyast.Name:
		return t.ID == name
	case *pyast.Tuple:
		for _, e := range t.Elts {
			if targetBinds(e, name) {
				return true
			}
		}
	case *pyast.Starred:
		return targetBinds(t.Value, name)
	}
	return false
}

func isFirstClause(cf *pyast.CompFor) bool {
	comp, ok := cf.Parent().(*pyast.Comprehension)
	return ok && len(comp.Clauses) > 0 && comp.Clauses[0] == cf
}

func contains(list []pyast.Node, n pyast.Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

package pyast

// Visitor receives enter and leave callbacks during Walk. If Enter
// returns false the children of the node are skipped and Leave is not
// called for it.
type Visitor interface {
	Enter(n Node) bool
	Leave(n Node)
}

// Walk traverses the tree rooted at n in source evaluation order.
func Walk(v Visitor, n Node) {
	if n == nil || !v.Enter(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(v, child)
	}
	v.Leave(n)
}

type inspector func(Node) bool

func (f inspector) Enter(n Node) bool { return f(n) }
func (f inspector) Leave(Node) {}

// Inspect calls f for every node in preorder, descending into a node's
// children only if f returns true.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}

// Children returns the direct children of n in evaluation order: a for
// loop's iterable precedes its target and body, a comprehension's clauses
// precede its element, and an assignment's value precedes its targets.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch n := n.(type) {
	case *Module:
		add(n.Body...)
	case *FunctionDef:
		add(n.Decorators...)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Returns)
		add(n.Body...)
	case *Lambda:
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *Param:
		add(n.Annotation, n.Default)
	case *ClassDef:
		add(n.Decorators...)
		add(n.Bases...)
		add(n.Body...)
	case *For:
		add(n.Iter, n.Target)
		add(n.Body...)
		add(n.Else...)
	case *While:
		add(n.Cond)
		add(n.Body...)
		add(n.Else...)
	case *Comprehension:
		for _, cf := range n.Clauses {
			add(cf)
		}
		add(n.Elt, n.Value)
	case *CompFor:
		add(n.Iter, n.Target)
		add(n.Ifs...)
	case *Assign:
		add(n.Value, n.Annotation)
		add(n.Targets...)
	case *AugAssign:
		add(n.Value, n.Target)
	case *NamedExpr:
		add(n.Value)
		if n.Target != nil {
			add(n.Target)
		}
	case *Call:
		add(n.Func)
		add(n.Args...)
		for _, kw := range n.Keywords {
			add(kw)
		}
	case *Keyword:
		add(n.Value)
	case *Starred:
		add(n.Value)
	case *Attribute:
		add(n.Value)
	case *Tuple:
		add(n.Elts...)
	case *Other:
		add(n.Children...)
	case *Name, *Import, *Global:
	}
	return out
}

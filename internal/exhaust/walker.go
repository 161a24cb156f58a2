package exhaust

import (
	"strings"

	"itercheck/internal/pyast"
)

type loopFrame struct {
	node    pyast.Node
	flagged map[string]bool
}

// Session is the mutable state of one module's analysis: the scope table
// and the stack of loops currently being walked. It implements
// pyast.Visitor and must not be shared between modules or goroutines.
type Session struct {
	checker *Checker
	table   *ScopeTable
	loops   []*loopFrame
	emit    Emitter
}

func (c *Checker) NewSession(emit Emitter) *Session {
	if emit == nil {
		emit = func(Diagnostic) {}
	}
	return &Session{checker: c, table: NewScopeTable(), emit: emit}
}

// Table exposes the session's bindings.
func (s *Session) Table() *ScopeTable { return s.table }

func (s *Session) Enter(n pyast.Node) bool {
	switch n := n.(type) {
	case *pyast.Module:
		s.table.Reset()
		s.loops = s.loops[:0]
	case *pyast.For:
		s.push(n)
		s.checkUse(n.Iter)
		s.unbindTarget(n.Target)
	case *pyast.While:
		s.push(n)
	case *pyast.Comprehension:
		s.push(n)
	case *pyast.CompFor:
		if s.checker.cfg.CheckComprehensions {
			s.checkUse(n.Iter)
		}
	case *pyast.Call:
		if s.checker.cfg.CheckConsumerCalls && s.checker.classifier.IsConsumerCall(n) {
			for _, arg := range n.Args {
				s.checkUse(arg)
			}
		}
	case *pyast.FunctionDef:
		s.unbind(n, n.Name)
	case *pyast.ClassDef:
		s.unbind(n, n.Name)
	case *pyast.Import:
		for _, name := range n.Names {
			s.unbind(n, boundImportName(name, n.IsFrom))
		}
	}
	return true
}

func (s *Session) Leave(n pyast.Node) {
	switch n := n.(type) {
	case *pyast.For, *pyast.While, *pyast.Comprehension:
		s.pop(n)
	case *pyast.Assign:
		s.assign(n, n.Targets, n.Value)
	case *pyast.NamedExpr:
		if n.Target != nil {
			s.assign(n, []pyast.Node{n.Target}, n.Value)
		}
	case *pyast.AugAssign:
		s.unbindTarget(n.Target)
	case *pyast.Other:
		// with ... as x, except E as x
		if n.Type == "as_pattern" || n.Type == "except_clause" {
			for _, child := range n.Children {
				s.unbindTarget(child)
			}
		}
	}
}

// assign applies the classifier to value and updates every target. Only
// plain names can be tracked; names inside tuple or starred targets are
// untracked from here on.
func (s *Session) assign(def pyast.Node, targets []pyast.Node, value pyast.Node) {
	kind, source, tracked := s.checker.classifier.Classify(value, s.table)
	for _, t := range targets {
		name, ok := t.(*pyast.Name)
		if !ok || !tracked {
			s.unbindTarget(t)
			continue
		}
		scope := name.Scope().BindingScope(name.ID)
		s.table.Bind(scope, name.ID, &Binding{
			Name:   name.ID,
			Scope:  scope,
			Def:    def,
			Kind:   kind,
			Source: source,
		})
	}
}

// unbindTarget drops the tracking of every name an assignment target
// stores to. For loop targets are rebound on each pass, so the loop's own
// iterable check runs before this.
func (s *Session) unbindTarget(t pyast.Node) {
	switch t := t.(type) {
	case *pyast.Name:
		if t.Store {
			s.unbind(t, t.ID)
		}
	case *pyast.Tuple:
		for _, e := range t.Elts {
			s.unbindTarget(e)
		}
	case *pyast.Starred:
		s.unbindTarget(t.Value)
	}
}

func (s *Session) unbind(at pyast.Node, name string) {
	if name == "" || at.Scope() == nil {
		return
	}
	s.table.Unbind(at.Scope().BindingScope(name), name)
}

func (s *Session) push(loop pyast.Node) {
	s.loops = append(s.loops, &loopFrame{node: loop, flagged: make(map[string]bool)})
}

func (s *Session) pop(loop pyast.Node) {
	if n := len(s.loops); n > 0 && s.loops[n-1].node == loop {
		s.loops = s.loops[:n-1]
	}
}

// frame returns the stack frame of loop, or a detached frame if the loop
// is not being walked.
func (s *Session) frame(loop pyast.Node) *loopFrame {
	for i := len(s.loops) - 1; i >= 0; i-- {
		if s.loops[i].node == loop {
			return s.loops[i]
		}
	}
	return &loopFrame{node: loop, flagged: make(map[string]bool)}
}

func boundImportName(name pyast.ImportName, from bool) string {
	if name.AsName != "" {
		return name.AsName
	}
	if from {
		return name.Name
	}
	root, _, _ := strings.Cut(name.Name, ".")
	return root
}

package pyast

// ScopeKind is the kind of lexical namespace a Scope represents.
type ScopeKind int

const (
	ModuleScope ScopeKind = iota
	FunctionScope
	ClassScope
)

func (k ScopeKind) String() string {
	switch k {
	case ModuleScope:
		return "module"
	case FunctionScope:
		return "function"
	case ClassScope:
		return "class"
	default:
		return "unknown"
	}
}

// DeclKind records how a name came to be bound in a scope. A name bound
// in several ways carries the union of the flags.
type DeclKind uint8

const (
	DeclAssign DeclKind = 1 << iota
	DeclParam
	DeclImport
	DeclDef
)

// Scope is a module, function (or lambda) or class namespace. It holds
// the statically visible local declarations, collected while the tree is
// built; loops and comprehensions never introduce a Scope.
type Scope struct {
	Kind   ScopeKind
	Node   Node
	Parent *Scope

	decls      map[string]DeclKind
	imports    map[string]string
	globals    map[string]bool
	nonlocals  map[string]bool
	starImport bool
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{
		Kind:      kind,
		Parent:    parent,
		decls:     make(map[string]DeclKind),
		imports:   make(map[string]string),
		globals:   make(map[string]bool),
		nonlocals: make(map[string]bool),
	}
}

// Module returns the outermost scope.
func (s *Scope) Module() *Scope {
	for s.Parent != nil {
		s = s.Parent
	}
	return s
}

// Outer returns the next scope searched for free names. Class bodies are
// not visible from the functions nested in them, so they are skipped.
func (s *Scope) Outer() *Scope {
	p := s.Parent
	for p != nil && p.Kind == ClassScope {
		p = p.Parent
	}
	return p
}

// Declares reports whether name is bound locally in s.
func (s *Scope) Declares(name string) bool {
	_, ok := s.decls[name]
	return ok
}

// Decl returns how name is bound locally in s.
func (s *Scope) Decl(name string) (DeclKind, bool) {
	k, ok := s.decls[name]
	return k, ok
}

// ImportPath returns the dotted path a local import binds to name, e.g.
// "itertools" for "import itertools" or "itertools.chain" for
// "from itertools import chain".
func (s *Scope) ImportPath(name string) (string, bool) {
	p, ok := s.imports[name]
	return p, ok
}

// IsGlobal reports whether s declares name global.
func (s *Scope) IsGlobal(name string) bool { return s.globals[name] }

// IsNonlocal reports whether s declares name nonlocal.
func (s *Scope) IsNonlocal(name string) bool { return s.nonlocals[name] }

// HasStarImport reports whether s contains "from m import *".
func (s *Scope) HasStarImport() bool { return s.starImport }

// Names returns the locally declared names in no particular order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.decls))
	for n := range s.decls {
		names = append(names, n)
	}
	return names
}

// Lookup returns the scope that name resolves to when referenced from s,
// following Python's rules for global, nonlocal and class scopes. It
// returns false for names that are not bound anywhere in the chain, such
// as builtins.
func (s *Scope) Lookup(name string) (*Scope, bool) {
	if s.globals[name] {
		m := s.Module()
		return m, m.Declares(name)
	}
	start := s
	if s.nonlocals[name] {
		start = s.Outer()
	}
	for sc := start; sc != nil; sc = sc.Outer() {
		if sc.Declares(name) {
			return sc, true
		}
	}
	return nil, false
}

// BindingScope returns the scope an assignment to name in s writes to.
func (s *Scope) BindingScope(name string) *Scope {
	if s.globals[name] {
		return s.Module()
	}
	if s.nonlocals[name] {
		for sc := s.Outer(); sc != nil && sc.Kind != ModuleScope; sc = sc.Outer() {
			if sc.Declares(name) {
				return sc
			}
		}
	}
	return s
}

func (s *Scope) declare(name string, kind DeclKind) {
	if name == "" {
		return
	}
	target := s.BindingScope(name)
	target.decls[name] |= kind
}

func (s *Scope) declareImport(name, path string) {
	s.declare(name, DeclImport)
	s.BindingScope(name).imports[name] = path
}

package exhaust

import "itercheck/internal/pyast"

type scopeKey struct {
	scope *pyast.Scope
	name  string
}

// ScopeTable maps (scope, name) to the live tracked binding. There is at
// most one entry per key; rebinding a name replaces or removes it.
type ScopeTable struct {
	entries map[scopeKey]*Binding
}

func NewScopeTable() *ScopeTable {
	return &ScopeTable{entries: make(map[scopeKey]*Binding)}
}

// Bind records b as the live binding of name in scope.
func (t *ScopeTable) Bind(scope *pyast.Scope, name string, b *Binding) {
	t.entries[scopeKey{scope, name}] = b
}

// Unbind drops any tracked binding of name in scope.
func (t *ScopeTable) Unbind(scope *pyast.Scope, name string) {
	delete(t.entries, scopeKey{scope, name})
}

// Lookup finds the binding name refers to when used in scope from. The
// search walks outward through enclosing scopes and stops at the first
// scope that declares name locally, tracked or not, because Python
// resolves the reference there. global and nonlocal declarations redirect
// the search.
func (t *ScopeTable) Lookup(name string, from *pyast.Scope) (*Binding, bool) {
	if from == nil {
		return nil, false
	}
	if from.IsGlobal(name) {
		b, ok := t.entries[scopeKey{from.Module(), name}]
		return b, ok
	}
	start := from
	if from.IsNonlocal(name) {
		start = from.Outer()
	}
	for sc := start; sc != nil; sc = sc.Outer() {
		if b, ok := t.entries[scopeKey{sc, name}]; ok {
			return b, true
		}
		if sc.Declares(name) {
			return nil, false
		}
	}
	return nil, false
}

// Len returns the number of live bindings.
func (t *ScopeTable) Len() int { return len(t.entries) }

// Reset drops every binding. Called at the start of each module.
func (t *ScopeTable) Reset() {
	clear(t.entries)
}

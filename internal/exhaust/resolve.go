package exhaust

import (
	"strings"

	"itercheck/internal/pyast"
)

// Resolver decides what a call target refers to. ResolveCallee returns
// the canonical dotted name of the callee ("map", "itertools.chain") or
// false when the target is shadowed by a local definition or cannot be
// resolved. An unresolved callee is never treated as a producer.
type Resolver interface {
	ResolveCallee(fn pyast.Node) (string, bool)
}

// LexicalResolver resolves call targets from the static declarations
// collected by pyast. A bare name that nothing in scope rebinds is taken
// to be the builtin of that name. A dotted name resolves only through an
// import of its first component.
type LexicalResolver struct{}

func (LexicalResolver) ResolveCallee(fn pyast.Node) (string, bool) {
	dotted, ok := pyast.DottedName(fn)
	if !ok {
		return "", false
	}
	scope := fn.Scope()
	if scope == nil {
		return "", false
	}
	root, rest, qualified := strings.Cut(dotted, ".")

	decl, found := scope.Lookup(root)
	if !found {
		if qualified || scope.Module().HasStarImport() {
			return "", false
		}
		return dotted, true
	}

	kind, _ := decl.Decl(root)
	path, imported := decl.ImportPath(root)
	if !imported || kind != pyast.DeclImport {
		return "", false
	}
	if qualified {
		return path + "." + rest, true
	}
	return path, true
}

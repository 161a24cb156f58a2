package pyast

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := Parse(context.Background(), []byte(strings.TrimLeft(src, "\n")), "sample.py")
	require.NoError(t, err)
	return mod
}

func TestParseLoops(t *testing.T) {
	mod := mustParse(t, `
for a, (b, *c) in pairs:
    pass
else:
    done()
async def f():
    async for x in stream:
        pass
while ready():
    step()
else:
    finish()
`)
	require.Len(t, mod.Body, 3)

	loop, ok := mod.Body[0].(*For)
	require.True(t, ok)
	assert.False(t, loop.Async)
	assert.Equal(t, "pairs", loop.Iter.(*Name).ID)
	target, ok := loop.Target.(*Tuple)
	require.True(t, ok)
	require.Len(t, target.Elts, 2)
	assert.Equal(t, "a", target.Elts[0].(*Name).ID)
	assert.True(t, target.Elts[0].(*Name).Store)
	inner, ok := target.Elts[1].(*Tuple)
	require.True(t, ok)
	assert.IsType(t, &Starred{}, inner.Elts[1])
	require.Len(t, loop.Else, 1)
	assert.Same(t, loop, loop.Else[0].Parent())

	fn := mod.Body[1].(*FunctionDef)
	assert.True(t, fn.Async)
	asyncFor, ok := fn.Body[0].(*For)
	require.True(t, ok)
	assert.True(t, asyncFor.Async)

	w, ok := mod.Body[2].(*While)
	require.True(t, ok)
	assert.IsType(t, &Call{}, w.Cond)
	assert.Len(t, w.Body, 1)
	assert.Len(t, w.Else, 1)
}

func TestParseComprehensions(t *testing.T) {
	mod := mustParse(t, `
gen = (x for x in xs if x for y in ys)
lst = [x for x in xs]
st = {x for x in xs}
dct = {k: v for k, v in items}
total = sum(x for x in xs)
`)
	kinds := []CompKind{GeneratorExp, ListComp, SetComp, DictComp}
	for i, kind := range kinds {
		comp, ok := mod.Body[i].(*Assign).Value.(*Comprehension)
		require.True(t, ok, "statement %d", i)
		assert.Equal(t, kind, comp.Kind)
	}

	gen := mod.Body[0].(*Assign).Value.(*Comprehension)
	require.Len(t, gen.Clauses, 2)
	assert.Equal(t, "xs", gen.Clauses[0].Iter.(*Name).ID)
	assert.Len(t, gen.Clauses[0].Ifs, 1)
	assert.Equal(t, "ys", gen.Clauses[1].Iter.(*Name).ID)
	assert.Same(t, gen, gen.Clauses[0].Parent())

	dct := mod.Body[3].(*Assign).Value.(*Comprehension)
	assert.Equal(t, "k", dct.Elt.(*Name).ID)
	assert.Equal(t, "v", dct.Value.(*Name).ID)

	call := mod.Body[4].(*Assign).Value.(*Call)
	require.Len(t, call.Args, 1)
	assert.Equal(t, GeneratorExp, call.Args[0].(*Comprehension).Kind)

	assert.False(t, mod.BodyScope.Declares("x"), "comprehension variables stay local")
	assert.False(t, mod.BodyScope.Declares("k"))
}

func TestParseAssignments(t *testing.T) {
	mod := mustParse(t, `
a = b = make()
c: int = 1
d += 2
obj.attr = 3
(e := compute())
`)
	chained := mod.Body[0].(*Assign)
	require.Len(t, chained.Targets, 2)
	assert.Equal(t, "a", chained.Targets[0].(*Name).ID)
	assert.Equal(t, "b", chained.Targets[1].(*Name).ID)
	assert.IsType(t, &Call{}, chained.Value)

	annotated := mod.Body[1].(*Assign)
	assert.NotNil(t, annotated.Annotation)

	aug := mod.Body[2].(*AugAssign)
	assert.Equal(t, "+=", aug.Op)

	attr := mod.Body[3].(*Assign)
	assert.IsType(t, &Attribute{}, attr.Targets[0])

	walrus := mod.Body[4].(*NamedExpr)
	assert.Equal(t, "e", walrus.Target.ID)
	assert.True(t, walrus.Target.Store)

	got := mod.BodyScope.Names()
	sort.Strings(got)
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e"}, got); diff != "" {
		t.Errorf("declared names mismatch (-want +got):\n%s", diff)
	}
}

func TestParseScopes(t *testing.T) {
	mod := mustParse(t, `
import os.path
import numpy as np
from itertools import chain, islice as take
from . import sibling

@decorate(arg)
def outer(p, q=default, *args, k: int = 1, **kwargs):
    local = 1
    def inner():
        nonlocal local
        global g
        local = 2
        g = 3
    return inner

class K(Base, metaclass=Meta):
    attr = 1
    fn = lambda self, n: n
`)
	ms := mod.BodyScope
	assert.Equal(t, ModuleScope, ms.Kind)
	assert.Same(t, mod, ms.Node)

	for name, path := range map[string]string{
		"os":    "os",
		"np":    "numpy",
		"chain": "itertools.chain",
		"take":  "itertools.islice",
	} {
		got, ok := ms.ImportPath(name)
		assert.True(t, ok, name)
		assert.Equal(t, path, got, name)
	}
	kind, ok := ms.Decl("sibling")
	assert.True(t, ok)
	assert.Equal(t, DeclImport, kind)

	outer := mod.Body[4].(*FunctionDef)
	assert.Equal(t, "outer", outer.Name)
	require.Len(t, outer.Decorators, 1)
	assert.Same(t, ms, outer.Decorators[0].Scope(), "decorators evaluate in the enclosing scope")
	var params []string
	for _, p := range outer.Params {
		params = append(params, p.Name)
	}
	assert.Equal(t, []string{"p", "q", "args", "k", "kwargs"}, params)
	assert.Equal(t, ParamVarArgs, outer.Params[2].Kind)
	assert.Equal(t, ParamKwArgs, outer.Params[4].Kind)
	assert.Same(t, ms, outer.Params[1].Default.Scope())

	fs := outer.BodyScope
	assert.Equal(t, FunctionScope, fs.Kind)
	kind, ok = fs.Decl("p")
	assert.True(t, ok)
	assert.Equal(t, DeclParam, kind)
	assert.True(t, fs.Declares("local"))
	assert.True(t, fs.Declares("inner"))

	inner := outer.Body[1].(*FunctionDef)
	is := inner.BodyScope
	assert.True(t, is.IsNonlocal("local"))
	assert.True(t, is.IsGlobal("g"))
	assert.False(t, is.Declares("local"), "nonlocal assignment writes to the outer scope")
	assert.True(t, ms.Declares("g"), "global assignment writes to the module")
	assert.Same(t, fs, is.BindingScope("local"))
	assert.Same(t, ms, is.BindingScope("g"))

	sc, ok := is.Lookup("local")
	assert.True(t, ok)
	assert.Same(t, fs, sc)
	_, ok = is.Lookup("len")
	assert.False(t, ok)

	cls := mod.Body[5].(*ClassDef)
	assert.Len(t, cls.Bases, 2)
	cs := cls.BodyScope
	assert.Equal(t, ClassScope, cs.Kind)
	assert.True(t, cs.Declares("attr"))
	assert.Same(t, ms, cs.Outer())

	lambda := cls.Body[1].(*Assign).Value.(*Lambda)
	assert.Same(t, ms, lambda.BodyScope.Outer(), "class scopes are skipped")
	assert.True(t, lambda.BodyScope.Declares("n"))
}

func TestParseStarImport(t *testing.T) {
	mod := mustParse(t, `
from helpers import *
`)
	imp := mod.Body[0].(*Import)
	assert.True(t, imp.Star)
	assert.True(t, imp.IsFrom)
	assert.Equal(t, "helpers", imp.From)
	assert.True(t, mod.BodyScope.HasStarImport())
}

func TestParseComments(t *testing.T) {
	mod := mustParse(t, `
# leading
x = 1  # itercheck: ignore
for i in x:
    # inside
    pass
`)
	var texts []string
	for _, c := range mod.Comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"# leading", "# itercheck: ignore", "# inside"}, texts)
	assert.Equal(t, 2, mod.Comments[1].Pos.Line)
	assert.Equal(t, 8, mod.Comments[1].Pos.Column)
	assert.False(t, mod.Comments[0].Inline)
	assert.True(t, mod.Comments[1].Inline)
	assert.False(t, mod.Comments[2].Inline)
}

func TestParseCompoundStatements(t *testing.T) {
	mod := mustParse(t, `
with open(p) as fh:
    for line in fh:
        pass
try:
    risky()
except ValueError as err:
    handle(err)
if cond:
    for k in ks:
        pass
`)
	loops := 0
	Inspect(mod, func(n Node) bool {
		if _, ok := n.(*For); ok {
			loops++
		}
		return true
	})
	assert.Equal(t, 2, loops)
	assert.True(t, mod.BodyScope.Declares("fh"))
	assert.True(t, mod.BodyScope.Declares("err"))
}

func TestParseSyntaxError(t *testing.T) {
	mod, err := Parse(context.Background(), []byte("for x in :\n    pass\n"), "broken.py")
	require.NoError(t, err)
	assert.True(t, mod.HasErrors)
}

func TestParseRejects(t *testing.T) {
	p := NewParser(WithMaxFileSize(8))
	_, err := p.Parse(context.Background(), []byte("x = 1\ny = 2\n"), "big.py")
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	_, err = Parse(context.Background(), []byte{0xff, 0xfe, 'x'}, "bad.py")
	assert.True(t, errors.Is(err, ErrInvalidContent))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Parse(ctx, []byte("x = 1\n"), "canceled.py")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPositions(t *testing.T) {
	mod := mustParse(t, "x = 1\nfor item in x:\n    pass\n")
	loop := mod.Body[1].(*For)
	name := loop.Iter.(*Name)
	assert.Equal(t, Position{Offset: 18, Line: 2, Column: 13}, name.Pos())
	assert.Equal(t, "2:13", name.Pos().String())
	assert.True(t, name.Pos().IsValid())
	assert.False(t, Position{}.IsValid())
	assert.Same(t, mod, EnclosingModule(name))
	assert.Nil(t, EnclosingModule(&Name{ID: "detached"}))
}

func TestDottedName(t *testing.T) {
	mod := mustParse(t, "a.b.c()\nf().g()\n")
	got, ok := DottedName(mod.Body[0].(*Call).Func)
	assert.True(t, ok)
	assert.Equal(t, "a.b.c", got)

	_, ok = DottedName(mod.Body[1].(*Call).Func)
	assert.False(t, ok)
}

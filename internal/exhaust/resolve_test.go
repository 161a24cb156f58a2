package exhaust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itercheck/internal/pyast"
)

func TestLexicalResolver(t *testing.T) {
	mod := parse(t, `
import itertools
import os.path
import functools as ft
from itertools import chain as ch
from operator import itemgetter

map(f, xs)
itertools.chain(a, b)
os.path.join(a, b)
ft.partial(f)
ch(a, b)
itemgetter(0)
unknown.attr(a)
obj.method()
make()()

def local():
    def zip(*args):
        return args
    zip(a, b)
    filter(f, xs)

class Box:
    iter = staticmethod(lambda x: x)
    iter(a)
`)
	want := []struct {
		callee string
		ok     bool
	}{
		{"map", true},
		{"itertools.chain", true},
		{"os.path.join", true},
		{"functools.partial", true},
		{"itertools.chain", true},
		{"operator.itemgetter", true},
		{"", false},
		{"", false},
		// make()() is visited before the inner make()
		{"", false},
		{"make", true},
		{"", false},
		{"filter", true},
		{"staticmethod", true},
		{"", false},
	}

	calls := nodes[*pyast.Call](mod)
	require.Len(t, calls, len(want))

	var r LexicalResolver
	for i, call := range calls {
		got, ok := r.ResolveCallee(call.Func)
		assert.Equal(t, want[i].ok, ok, "call %d", i)
		assert.Equal(t, want[i].callee, got, "call %d", i)
	}
}

func TestLexicalResolverStarImport(t *testing.T) {
	mod := parse(t, `
from helpers import *
map(f, xs)
`)
	call := nodes[*pyast.Call](mod)[0]
	_, ok := LexicalResolver{}.ResolveCallee(call.Func)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	mod := parse(t, `
gen = (i for i in src)
mapped = map(f, src)
eager = list(map(f, src))
listed = [i for i in src]
alias = gen
plain = other
walrus = (w := zip(a, b))
`)
	c := NewClassifier(DefaultProducers, DefaultConsumers, nil)
	table := NewScopeTable()

	type result struct {
		Kind    OriginKind
		Tracked bool
	}
	want := []result{
		{GeneratorForm, true},
		{DirectProducer, true},
		{0, false},
		{0, false},
		{Alias, true},
		{0, false},
		{DirectProducer, true},
	}

	assigns := nodes[*pyast.Assign](mod)
	require.Len(t, assigns, len(want))
	for i, a := range assigns {
		kind, source, tracked := c.Classify(a.Value, table)
		assert.Equal(t, want[i], result{kind, tracked}, "assignment %d", i)

		name := a.Targets[0].(*pyast.Name)
		if tracked {
			table.Bind(name.Scope(), name.ID, &Binding{Name: name.ID, Scope: name.Scope(), Def: a, Kind: kind, Source: source})
		}
	}

	b, ok := table.Lookup("alias", mod.BodyScope)
	require.True(t, ok)
	assert.Equal(t, GeneratorForm, b.Origin())
	assert.Equal(t, "gen", b.Root().Name)
}

func TestScopeTableLookup(t *testing.T) {
	mod := parse(t, `
it = None
shadowed = None

def outer():
    shadowed = 1
    def inner():
        nonlocal counter
        global it
    counter = 0

class C:
    it = 2
    def method(self):
        pass
`)
	fns := nodes[*pyast.FunctionDef](mod)
	require.Len(t, fns, 3)
	outer, inner, method := fns[0], fns[1], fns[2]
	class := nodes[*pyast.ClassDef](mod)[0]

	table := NewScopeTable()
	modScope := mod.BodyScope
	itBinding := &Binding{Name: "it", Scope: modScope, Kind: DirectProducer}
	table.Bind(modScope, "it", itBinding)
	table.Bind(modScope, "shadowed", &Binding{Name: "shadowed", Scope: modScope, Kind: DirectProducer})
	counter := &Binding{Name: "counter", Scope: outer.BodyScope, Kind: GeneratorForm}
	table.Bind(outer.BodyScope, "counter", counter)
	assert.Equal(t, 3, table.Len())

	b, ok := table.Lookup("it", inner.BodyScope)
	assert.True(t, ok)
	assert.Same(t, itBinding, b)

	b, ok = table.Lookup("counter", inner.BodyScope)
	assert.True(t, ok)
	assert.Same(t, counter, b)

	_, ok = table.Lookup("shadowed", inner.BodyScope)
	assert.False(t, ok, "outer declares shadowed locally")

	_, ok = table.Lookup("it", class.BodyScope)
	assert.False(t, ok, "class body declares it")

	b, ok = table.Lookup("it", method.BodyScope)
	assert.True(t, ok, "class scope is skipped from methods")
	assert.Same(t, itBinding, b)

	_, ok = table.Lookup("it", nil)
	assert.False(t, ok)

	table.Unbind(modScope, "it")
	_, ok = table.Lookup("it", method.BodyScope)
	assert.False(t, ok)

	table.Reset()
	assert.Equal(t, 0, table.Len())
}

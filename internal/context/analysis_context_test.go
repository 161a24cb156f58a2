package context

import (
	stdcontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itercheck/internal/directives/ignore"
	"itercheck/internal/pyast"
)

const sample = `class Reader:
    def rows(self, data):
        for r in data:
            for c in r:  # itercheck: ignore
                yield c
        f = lambda: [x for x in data]
`

func newContext(t *testing.T) *AnalysisContext {
	t.Helper()
	mod, err := pyast.Parse(stdcontext.Background(), []byte(sample), "reader.py")
	require.NoError(t, err)
	return NewAnalysisContext("reader.py", []byte(sample), mod)
}

func find[T pyast.Node](root pyast.Node) []T {
	var out []T
	pyast.Inspect(root, func(n pyast.Node) bool {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

func TestSourceLine(t *testing.T) {
	ctx := newContext(t)
	assert.Equal(t, "for r in data:", ctx.SourceLine(3))
	assert.Equal(t, "", ctx.SourceLine(0))
	assert.Equal(t, "", ctx.SourceLine(100))
}

func TestEnclosingFunction(t *testing.T) {
	ctx := newContext(t)
	fors := find[*pyast.For](ctx.Module)
	require.Len(t, fors, 2)
	assert.Equal(t, "Reader.rows", EnclosingFunction(fors[1]))
	assert.Equal(t, "", EnclosingFunction(ctx.Module))

	comp := find[*pyast.Comprehension](ctx.Module)[0]
	assert.Equal(t, "Reader.rows.<lambda>", EnclosingFunction(comp))
}

func TestLoop(t *testing.T) {
	ctx := newContext(t)
	fors := find[*pyast.For](ctx.Module)

	outer := ctx.Loop(fors[0])
	assert.Equal(t, LoopFor, outer.Kind)
	assert.Equal(t, 3, outer.Line)
	assert.Equal(t, 1, outer.Depth)
	assert.False(t, outer.IsInnerLoop)

	inner := ctx.Loop(fors[1])
	assert.Equal(t, 2, inner.Depth)
	assert.True(t, inner.IsInnerLoop)
	assert.Same(t, inner, ctx.Loop(fors[1]))

	comp := ctx.Loop(find[*pyast.Comprehension](ctx.Module)[0])
	assert.Equal(t, LoopComprehension, comp.Kind)
	assert.Equal(t, 1, comp.Depth, "lambda body starts a new scope")
	assert.Equal(t, "comprehension", comp.Kind.String())
}

func TestIsIgnored(t *testing.T) {
	ctx := newContext(t)
	assert.True(t, ctx.IsIgnored(4, ignore.ReusedIterator))
	assert.False(t, ctx.IsIgnored(2, ignore.ReusedIterator))

	ctx.RespectIgnores = false
	assert.False(t, ctx.IsIgnored(4, ignore.ReusedIterator))
}

package pyast

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events []string
	skip   func(Node) bool
}

func (r *recorder) Enter(n Node) bool {
	r.events = append(r.events, "enter "+label(n))
	return r.skip == nil || !r.skip(n)
}

func (r *recorder) Leave(n Node) {
	r.events = append(r.events, "leave "+label(n))
}

func label(n Node) string {
	switch n := n.(type) {
	case *Name:
		return n.ID
	case *Call:
		name, _ := DottedName(n.Func)
		return name + "()"
	default:
		return fmt.Sprintf("%T", n)
	}
}

func TestWalkEvaluationOrder(t *testing.T) {
	mod := mustParse(t, `
for item in source:
    result = [f(x) for x in item]
`)
	var names []string
	Inspect(mod, func(n Node) bool {
		if name, ok := n.(*Name); ok {
			names = append(names, name.ID)
		}
		return true
	})
	want := []string{"source", "item", "item", "x", "f", "x", "result"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	mod := mustParse(t, "outer(inner(a))\nafter()\n")
	r := &recorder{skip: func(n Node) bool {
		c, ok := n.(*Call)
		return ok && label(c) == "outer()"
	}}
	Walk(r, mod)

	want := []string{
		"enter *pyast.Module",
		"enter outer()",
		"enter after()",
		"enter after",
		"leave after",
		"leave after()",
		"leave *pyast.Module",
	}
	if diff := cmp.Diff(want, r.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestChildrenOfAssignment(t *testing.T) {
	mod := mustParse(t, "a = b = value\n")
	children := Children(mod.Body[0])
	assert.Len(t, children, 3)
	assert.Equal(t, "value", children[0].(*Name).ID)
	assert.Equal(t, "a", children[1].(*Name).ID)
	assert.Equal(t, "b", children[2].(*Name).ID)
	assert.Empty(t, Children(children[0]))
}

func TestWalkNil(t *testing.T) {
	r := &recorder{}
	Walk(r, nil)
	assert.Empty(t, r.events)
}

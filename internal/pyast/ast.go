// Package pyast is a small, closed Python syntax tree built from
// tree-sitter parse trees. Nodes carry parent links, source positions and
// the lexical scope they are evaluated in.
package pyast

import "fmt"

// Position is a location in a source file. Line and Column are 1-based;
// Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position was set by the parser.
func (p Position) IsValid() bool { return p.Line > 0 }

// Node is implemented by every syntax node in this package. The set of
// implementations is closed; use a type switch to dispatch on it.
type Node interface {
	Pos() Position
	End() Position
	// Parent returns the enclosing node, or nil for a Module.
	Parent() Node
	// Scope returns the lexical scope the node is evaluated in.
	Scope() *Scope
	node()
}

type base struct {
	start, end Position
	parent     Node
	scope      *Scope
}

func (b *base) Pos() Position { return b.start }
func (b *base) End() Position { return b.end }
func (b *base) Parent() Node { return b.parent }
func (b *base) Scope() *Scope { return b.scope }
func (b *base) node() {}

// Comment is a source comment, including the leading '#'.
type Comment struct {
	Pos  Position
	Text string

	// Inline is set when code precedes the comment on its line.
	Inline bool
}

// Module is the root of a parsed file.
type Module struct {
	base
	Path      string
	Body      []Node
	Comments  []Comment
	BodyScope *Scope
	// HasErrors is set when the parser recovered from syntax errors.
	HasErrors bool
}

// ParamKind distinguishes plain, *args and **kwargs parameters.
type ParamKind int

const (
	ParamPlain ParamKind = iota
	ParamVarArgs
	ParamKwArgs
)

// Param is a function or lambda parameter. Default and Annotation are
// evaluated in the scope enclosing the function.
type Param struct {
	base
	Name       string
	Kind       ParamKind
	Annotation Node
	Default    Node
}

// FunctionDef is a def statement.
type FunctionDef struct {
	base
	Name       string
	Async      bool
	Decorators []Node
	Params     []*Param
	Returns    Node
	Body       []Node
	BodyScope  *Scope
}

// Lambda is a lambda expression.
type Lambda struct {
	base
	Params    []*Param
	Body      Node
	BodyScope *Scope
}

// ClassDef is a class statement. Bases holds positional bases and
// keyword arguments such as metaclass=.
type ClassDef struct {
	base
	Name       string
	Decorators []Node
	Bases      []Node
	Body       []Node
	BodyScope  *Scope
}

// For is a for statement.
type For struct {
	base
	Async  bool
	Target Node
	Iter   Node
	Body   []Node
	Else   []Node
}

// While is a while statement.
type While struct {
	base
	Cond Node
	Body []Node
	Else []Node
}

// CompKind is the flavour of a comprehension.
type CompKind int

const (
	ListComp CompKind = iota
	SetComp
	DictComp
	GeneratorExp
)

func (k CompKind) String() string {
	switch k {
	case ListComp:
		return "list comprehension"
	case SetComp:
		return "set comprehension"
	case DictComp:
		return "dict comprehension"
	case GeneratorExp:
		return "generator expression"
	default:
		return "comprehension"
	}
}

// Comprehension is a list, set or dict comprehension or a generator
// expression. For dict comprehensions Elt is the key and Value the value.
type Comprehension struct {
	base
	Kind    CompKind
	Elt     Node
	Value   Node
	Clauses []*CompFor
}

// CompFor is one "for ... in ..." clause of a comprehension together with
// the "if" filters that follow it.
type CompFor struct {
	base
	Async  bool
	Target Node
	Iter   Node
	Ifs    []Node
}

// Assign is a plain, chained or annotated assignment. Value is nil for a
// bare annotation such as "x: int".
type Assign struct {
	base
	Targets    []Node
	Value      Node
	Annotation Node
}

// AugAssign is an augmented assignment such as "x += 1".
type AugAssign struct {
	base
	Target Node
	Op     string
	Value  Node
}

// NamedExpr is an assignment expression "(name := value)".
type NamedExpr struct {
	base
	Target *Name
	Value  Node
}

// Call is a call expression. A sole generator argument, as in
// "sum(x for x in xs)", appears as the only element of Args.
type Call struct {
	base
	Func     Node
	Args     []Node
	Keywords []*Keyword
}

// Keyword is a keyword argument. Name is empty for a "**mapping" splat.
type Keyword struct {
	base
	Name  string
	Value Node
}

// Starred is a "*value" splat in a call or a target.
type Starred struct {
	base
	Value Node
}

// Name is an identifier. Store is set when the name is an assignment
// target.
type Name struct {
	base
	ID    string
	Store bool
}

// Attribute is "value.attr".
type Attribute struct {
	base
	Value Node
	Attr  string
}

// Tuple is a tuple or list used as an assignment target.
type Tuple struct {
	base
	Elts []Node
	List bool
}

// ImportName is one imported name, with its optional "as" alias.
type ImportName struct {
	Name   string
	AsName string
}

// Import is an import or from-import statement.
type Import struct {
	base
	From   string
	Names  []ImportName
	Star   bool
	IsFrom bool
}

// Global is a global or nonlocal declaration.
type Global struct {
	base
	Names    []string
	Nonlocal bool
}

// Other is any syntax this package does not model explicitly. Type is
// the tree-sitter node type, e.g. "if_statement" or "binary_operator".
type Other struct {
	base
	Type     string
	Children []Node
}

// DottedName renders a chain of attribute accesses on a name, such as
// "itertools.chain". It returns false for any other expression.
func DottedName(n Node) (string, bool) {
	switch n := n.(type) {
	case *Name:
		return n.ID, true
	case *Attribute:
		prefix, ok := DottedName(n.Value)
		if !ok {
			return "", false
		}
		return prefix + "." + n.Attr, true
	default:
		return "", false
	}
}

// EnclosingModule returns the module containing n, or nil if n is
// detached.
func EnclosingModule(n Node) *Module {
	for ; n != nil; n = n.Parent() {
		if m, ok := n.(*Module); ok {
			return m
		}
	}
	return nil
}

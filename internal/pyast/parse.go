package pyast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFileSize is the largest source accepted by a Parser unless
// WithMaxFileSize says otherwise.
const DefaultMaxFileSize = 10 * 1024 * 1024

var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrInvalidContent = errors.New("invalid content")
)

// Parser turns Python source into a Module.
type Parser struct {
	maxFileSize int64
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxFileSize limits the size of sources the parser accepts.
func WithMaxFileSize(bytes int64) ParserOption {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// NewParser returns a Parser. It is safe for concurrent use; every Parse
// call creates its own tree-sitter parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses src with a default Parser.
func Parse(ctx context.Context, src []byte, path string) (*Module, error) {
	return NewParser().Parse(ctx, src, path)
}

// Parse parses src. Syntax errors do not fail the parse: the affected
// region becomes an Other node of type "ERROR" and Module.HasErrors is
// set.
func (p *Parser) Parse(ctx context.Context, src []byte, path string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if int64(len(src)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(src), p.maxFileSize)
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: parser returned no root node", ErrInvalidContent)
	}

	c := &converter{src: src}
	mod := c.module(root, path)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled: %w", err)
	}
	return mod, nil
}

// converter builds pyast nodes from a tree-sitter tree, tracking the
// current scope so that declarations land where Python would put them.
type converter struct {
	src      []byte
	scope    *Scope
	comments []Comment
}

func (c *converter) base(n *sitter.Node, parent Node) base {
	return base{
		start:  position(n.StartByte(), n.StartPoint()),
		end:    position(n.EndByte(), n.EndPoint()),
		parent: parent,
		scope:  c.scope,
	}
}

func position(offset uint32, pt sitter.Point) Position {
	return Position{Offset: int(offset), Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

// named returns the named children of n without comments.
func (c *converter) named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// collectComments gathers every comment in source order. Comments are
// extras in the grammar and can hang off any node, not only blocks.
func (c *converter) collectComments(n *sitter.Node) {
	if n == nil {
		return
	}
	if n.Type() == "comment" {
		c.comments = append(c.comments, Comment{
			Pos:    position(n.StartByte(), n.StartPoint()),
			Text:   c.text(n),
			Inline: c.codeBefore(n.StartByte()),
		})
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c.collectComments(n.NamedChild(i))
	}
}

// codeBefore reports whether anything but indentation precedes offset on
// its line.
func (c *converter) codeBefore(offset uint32) bool {
	for i := int(offset) - 1; i >= 0 && c.src[i] != '\n'; i-- {
		if c.src[i] != ' ' && c.src[i] != '\t' && c.src[i] != '\f' {
			return true
		}
	}
	return false
}

func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); ch != nil && !ch.IsNamed() && ch.Type() == tok {
			return true
		}
	}
	return false
}

func (c *converter) module(root *sitter.Node, path string) *Module {
	m := &Module{Path: path, HasErrors: root.HasError()}
	c.scope = newScope(ModuleScope, nil)
	c.scope.Node = m
	m.base = c.base(root, nil)
	m.BodyScope = c.scope
	m.Body = c.stmts(root, m)
	c.collectComments(root)
	m.Comments = c.comments
	return m
}

// stmts converts the statements of a module or block.
func (c *converter) stmts(n *sitter.Node, parent Node) []Node {
	var out []Node
	for _, child := range c.named(n) {
		if s := c.stmt(child, parent); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// suite converts a body field, which tree-sitter always wraps in a block.
func (c *converter) suite(n *sitter.Node, parent Node) []Node {
	if n == nil {
		return nil
	}
	if n.Type() == "block" {
		return c.stmts(n, parent)
	}
	if s := c.stmt(n, parent); s != nil {
		return []Node{s}
	}
	return nil
}

func (c *converter) stmt(n *sitter.Node, parent Node) Node {
	switch n.Type() {
	case "expression_statement":
		children := c.named(n)
		if len(children) == 1 {
			return c.expr(children[0], parent)
		}
		o := &Other{base: c.base(n, parent), Type: n.Type()}
		for _, child := range children {
			o.Children = appendNode(o.Children, c.expr(child, o))
		}
		return o
	case "for_statement":
		return c.forStmt(n, parent)
	case "while_statement":
		return c.whileStmt(n, parent)
	case "function_definition":
		return c.funcDef(n, parent, nil)
	case "class_definition":
		return c.classDef(n, parent, nil)
	case "decorated_definition":
		return c.decorated(n, parent)
	case "import_statement", "import_from_statement", "future_import_statement":
		return c.importStmt(n, parent)
	case "global_statement", "nonlocal_statement":
		g := &Global{base: c.base(n, parent), Nonlocal: n.Type() == "nonlocal_statement"}
		for _, child := range c.named(n) {
			name := c.text(child)
			g.Names = append(g.Names, name)
			if g.Nonlocal {
				c.scope.nonlocals[name] = true
			} else {
				c.scope.globals[name] = true
			}
		}
		return g
	case "with_statement", "try_statement", "if_statement", "match_statement":
		return c.other(n, parent)
	default:
		return c.expr(n, parent)
	}
}

func (c *converter) forStmt(n *sitter.Node, parent Node) Node {
	f := &For{base: c.base(n, parent), Async: hasToken(n, "async")}
	f.Iter = c.expr(n.ChildByFieldName("right"), f)
	f.Target = c.target(n.ChildByFieldName("left"), f)
	f.Body = c.suite(n.ChildByFieldName("body"), f)
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		f.Else = c.suite(alt.ChildByFieldName("body"), f)
	}
	return f
}

func (c *converter) whileStmt(n *sitter.Node, parent Node) Node {
	w := &While{base: c.base(n, parent)}
	w.Cond = c.expr(n.ChildByFieldName("condition"), w)
	w.Body = c.suite(n.ChildByFieldName("body"), w)
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		w.Else = c.suite(alt.ChildByFieldName("body"), w)
	}
	return w
}

func (c *converter) decorated(n *sitter.Node, parent Node) Node {
	var decorators []*sitter.Node
	for _, child := range c.named(n) {
		if child.Type() == "decorator" {
			decorators = append(decorators, child)
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return c.other(n, parent)
	}
	switch def.Type() {
	case "function_definition":
		return c.funcDef(def, parent, decorators)
	case "class_definition":
		return c.classDef(def, parent, decorators)
	default:
		return c.other(n, parent)
	}
}

func (c *converter) decoratorList(decorators []*sitter.Node, parent Node) []Node {
	var out []Node
	for _, d := range decorators {
		for _, e := range c.named(d) {
			out = appendNode(out, c.expr(e, parent))
		}
	}
	return out
}

func (c *converter) funcDef(n *sitter.Node, parent Node, decorators []*sitter.Node) Node {
	f := &FunctionDef{
		base:  c.base(n, parent),
		Name:  c.text(n.ChildByFieldName("name")),
		Async: hasToken(n, "async"),
	}
	f.Decorators = c.decoratorList(decorators, f)
	f.Returns = c.expr(n.ChildByFieldName("return_type"), f)
	params := c.params(n.ChildByFieldName("parameters"), f)
	c.scope.declare(f.Name, DeclDef)

	outer := c.scope
	c.scope = newScope(FunctionScope, outer)
	c.scope.Node = f
	f.BodyScope = c.scope
	f.Params = c.declareParams(params)
	f.Body = c.suite(n.ChildByFieldName("body"), f)
	c.scope = outer
	return f
}

func (c *converter) lambda(n *sitter.Node, parent Node) Node {
	l := &Lambda{base: c.base(n, parent)}
	params := c.params(n.ChildByFieldName("parameters"), l)

	outer := c.scope
	c.scope = newScope(FunctionScope, outer)
	c.scope.Node = l
	l.BodyScope = c.scope
	l.Params = c.declareParams(params)
	l.Body = c.expr(n.ChildByFieldName("body"), l)
	c.scope = outer
	return l
}

func (c *converter) declareParams(params []*Param) []*Param {
	for _, p := range params {
		c.scope.declare(p.Name, DeclParam)
	}
	return params
}

// params converts a parameter list in the enclosing scope, since defaults
// and annotations are evaluated there.
func (c *converter) params(n *sitter.Node, parent Node) []*Param {
	var out []*Param
	for _, child := range c.named(n) {
		p := &Param{base: c.base(child, parent)}
		switch child.Type() {
		case "identifier":
			p.Name = c.text(child)
		case "default_parameter", "typed_default_parameter":
			p.Name = c.text(child.ChildByFieldName("name"))
			p.Annotation = c.expr(child.ChildByFieldName("type"), p)
			p.Default = c.expr(child.ChildByFieldName("value"), p)
		case "typed_parameter":
			p.Annotation = c.expr(child.ChildByFieldName("type"), p)
			for _, inner := range c.named(child) {
				switch inner.Type() {
				case "identifier":
					p.Name = c.text(inner)
				case "list_splat_pattern":
					p.Name, p.Kind = c.splatName(inner), ParamVarArgs
				case "dictionary_splat_pattern":
					p.Name, p.Kind = c.splatName(inner), ParamKwArgs
				}
				if p.Name != "" {
					break
				}
			}
		case "list_splat_pattern":
			p.Name, p.Kind = c.splatName(child), ParamVarArgs
		case "dictionary_splat_pattern":
			p.Name, p.Kind = c.splatName(child), ParamKwArgs
		default:
			// keyword_separator, positional_separator and py2 tuple params
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *converter) splatName(n *sitter.Node) string {
	for _, child := range c.named(n) {
		if child.Type() == "identifier" {
			return c.text(child)
		}
	}
	return ""
}

func (c *converter) classDef(n *sitter.Node, parent Node, decorators []*sitter.Node) Node {
	cd := &ClassDef{base: c.base(n, parent), Name: c.text(n.ChildByFieldName("name"))}
	cd.Decorators = c.decoratorList(decorators, cd)
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		args, kws := c.arguments(supers, cd)
		cd.Bases = args
		for _, kw := range kws {
			cd.Bases = append(cd.Bases, kw)
		}
	}
	c.scope.declare(cd.Name, DeclDef)

	outer := c.scope
	c.scope = newScope(ClassScope, outer)
	c.scope.Node = cd
	cd.BodyScope = c.scope
	cd.Body = c.suite(n.ChildByFieldName("body"), cd)
	c.scope = outer
	return cd
}

func (c *converter) importStmt(n *sitter.Node, parent Node) Node {
	imp := &Import{base: c.base(n, parent), IsFrom: n.Type() != "import_statement"}
	mod := n.ChildByFieldName("module_name")
	if mod != nil {
		imp.From = c.text(mod)
	} else if n.Type() == "future_import_statement" {
		imp.From = "__future__"
	}
	for _, child := range c.named(n) {
		if mod != nil && child.StartByte() == mod.StartByte() && child.EndByte() == mod.EndByte() {
			continue
		}
		switch child.Type() {
		case "wildcard_import":
			imp.Star = true
		case "dotted_name":
			imp.Names = append(imp.Names, ImportName{Name: c.text(child)})
		case "aliased_import":
			imp.Names = append(imp.Names, ImportName{
				Name:   c.text(child.ChildByFieldName("name")),
				AsName: c.text(child.ChildByFieldName("alias")),
			})
		}
	}

	if imp.Star {
		c.scope.starImport = true
	}
	for _, name := range imp.Names {
		switch {
		case name.AsName != "" && imp.IsFrom:
			c.scope.declareImport(name.AsName, imp.From+"."+name.Name)
		case name.AsName != "":
			c.scope.declareImport(name.AsName, name.Name)
		case imp.IsFrom:
			c.scope.declareImport(name.Name, imp.From+"."+name.Name)
		default:
			// "import a.b.c" binds a.
			root, _, _ := strings.Cut(name.Name, ".")
			c.scope.declareImport(root, root)
		}
	}
	return imp
}

// target converts an assignment target and declares the names it binds.
func (c *converter) target(n *sitter.Node, parent Node) Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "keyword_identifier":
		name := &Name{base: c.base(n, parent), ID: c.text(n), Store: true}
		c.scope.declare(name.ID, DeclAssign)
		return name
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list", "tuple", "list":
		t := &Tuple{base: c.base(n, parent), List: n.Type() == "list_pattern" || n.Type() == "list"}
		for _, child := range c.named(n) {
			t.Elts = appendNode(t.Elts, c.target(child, t))
		}
		return t
	case "list_splat_pattern", "list_splat":
		s := &Starred{base: c.base(n, parent)}
		if inner := c.named(n); len(inner) > 0 {
			s.Value = c.target(inner[0], s)
		}
		return s
	case "parenthesized_expression":
		if inner := c.named(n); len(inner) == 1 {
			return c.target(inner[0], parent)
		}
		return c.other(n, parent)
	default:
		// attribute and subscript targets do not bind names
		return c.expr(n, parent)
	}
}

func (c *converter) expr(n *sitter.Node, parent Node) Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return &Name{base: c.base(n, parent), ID: c.text(n)}
	case "parenthesized_expression":
		if inner := c.named(n); len(inner) == 1 && inner[0].Type() != "yield" {
			return c.expr(inner[0], parent)
		}
		return c.other(n, parent)
	case "assignment":
		return c.assign(n, parent)
	case "augmented_assignment":
		a := &AugAssign{base: c.base(n, parent), Op: c.text(n.ChildByFieldName("operator"))}
		a.Value = c.expr(n.ChildByFieldName("right"), a)
		a.Target = c.target(n.ChildByFieldName("left"), a)
		return a
	case "named_expression":
		ne := &NamedExpr{base: c.base(n, parent)}
		ne.Value = c.expr(n.ChildByFieldName("value"), ne)
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			ne.Target = &Name{base: c.base(nameNode, ne), ID: c.text(nameNode), Store: true}
			c.scope.declare(ne.Target.ID, DeclAssign)
		}
		return ne
	case "call":
		return c.call(n, parent)
	case "attribute":
		a := &Attribute{base: c.base(n, parent), Attr: c.text(n.ChildByFieldName("attribute"))}
		a.Value = c.expr(n.ChildByFieldName("object"), a)
		return a
	case "list_splat", "parenthesized_list_splat":
		s := &Starred{base: c.base(n, parent)}
		if inner := c.named(n); len(inner) > 0 {
			s.Value = c.expr(inner[0], s)
		}
		return s
	case "generator_expression":
		return c.comprehension(n, parent, GeneratorExp)
	case "list_comprehension":
		return c.comprehension(n, parent, ListComp)
	case "set_comprehension":
		return c.comprehension(n, parent, SetComp)
	case "dictionary_comprehension":
		return c.comprehension(n, parent, DictComp)
	case "lambda":
		return c.lambda(n, parent)
	case "as_pattern":
		return c.asPattern(n, parent)
	case "except_clause":
		return c.exceptClause(n, parent)
	default:
		return c.other(n, parent)
	}
}

// assign flattens chained assignments: "a = b = value" becomes one Assign
// with two targets.
func (c *converter) assign(n *sitter.Node, parent Node) Node {
	a := &Assign{base: c.base(n, parent)}
	var lefts []*sitter.Node
	cur := n
	for {
		lefts = append(lefts, cur.ChildByFieldName("left"))
		if a.Annotation == nil {
			a.Annotation = c.expr(cur.ChildByFieldName("type"), a)
		}
		right := cur.ChildByFieldName("right")
		if right != nil && right.Type() == "assignment" {
			cur = right
			continue
		}
		a.Value = c.expr(right, a)
		break
	}
	for _, left := range lefts {
		a.Targets = appendNode(a.Targets, c.target(left, a))
	}
	return a
}

func (c *converter) call(n *sitter.Node, parent Node) Node {
	call := &Call{base: c.base(n, parent)}
	call.Func = c.expr(n.ChildByFieldName("function"), call)
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Type() == "generator_expression" {
		call.Args = appendNode(nil, c.expr(args, call))
		return call
	}
	call.Args, call.Keywords = c.arguments(args, call)
	return call
}

func (c *converter) arguments(n *sitter.Node, parent Node) ([]Node, []*Keyword) {
	var args []Node
	var kws []*Keyword
	for _, child := range c.named(n) {
		switch child.Type() {
		case "keyword_argument":
			kw := &Keyword{base: c.base(child, parent), Name: c.text(child.ChildByFieldName("name"))}
			kw.Value = c.expr(child.ChildByFieldName("value"), kw)
			kws = append(kws, kw)
		case "dictionary_splat":
			kw := &Keyword{base: c.base(child, parent)}
			if inner := c.named(child); len(inner) > 0 {
				kw.Value = c.expr(inner[0], kw)
			}
			kws = append(kws, kw)
		default:
			args = appendNode(args, c.expr(child, parent))
		}
	}
	return args, kws
}

func (c *converter) comprehension(n *sitter.Node, parent Node, kind CompKind) Node {
	comp := &Comprehension{base: c.base(n, parent), Kind: kind}
	body := n.ChildByFieldName("body")
	var clauses []*sitter.Node
	for _, child := range c.named(n) {
		switch child.Type() {
		case "for_in_clause", "if_clause":
			clauses = append(clauses, child)
		}
	}

	// Clauses come first so the element sees them as its context, matching
	// evaluation order.
	var last *CompFor
	for _, clause := range clauses {
		if clause.Type() == "for_in_clause" {
			cf := &CompFor{base: c.base(clause, comp), Async: hasToken(clause, "async")}
			cf.Iter = c.expr(clause.ChildByFieldName("right"), cf)
			cf.Target = c.compTarget(clause.ChildByFieldName("left"), cf)
			comp.Clauses = append(comp.Clauses, cf)
			last = cf
			continue
		}
		if last == nil {
			continue
		}
		for _, cond := range c.named(clause) {
			last.Ifs = appendNode(last.Ifs, c.expr(cond, last))
		}
	}

	if body != nil && body.Type() == "pair" {
		comp.Elt = c.expr(body.ChildByFieldName("key"), comp)
		comp.Value = c.expr(body.ChildByFieldName("value"), comp)
	} else {
		comp.Elt = c.expr(body, comp)
	}
	return comp
}

// compTarget converts a comprehension loop variable. Those names are
// local to the comprehension and never shadow names in the enclosing
// scope, so nothing is declared.
func (c *converter) compTarget(n *sitter.Node, parent Node) Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "keyword_identifier":
		return &Name{base: c.base(n, parent), ID: c.text(n), Store: true}
	case "pattern_list", "tuple_pattern", "list_pattern":
		t := &Tuple{base: c.base(n, parent), List: n.Type() == "list_pattern"}
		for _, child := range c.named(n) {
			t.Elts = appendNode(t.Elts, c.compTarget(child, t))
		}
		return t
	default:
		return c.expr(n, parent)
	}
}

// asPattern handles "value as target" in with items and except clauses.
func (c *converter) asPattern(n *sitter.Node, parent Node) Node {
	o := &Other{base: c.base(n, parent), Type: n.Type()}
	alias := n.ChildByFieldName("alias")
	for _, child := range c.named(n) {
		if alias != nil && child.StartByte() == alias.StartByte() && child.Type() == alias.Type() {
			for _, t := range c.named(child) {
				o.Children = appendNode(o.Children, c.target(t, o))
			}
			continue
		}
		o.Children = appendNode(o.Children, c.expr(child, o))
	}
	return o
}

// exceptClause declares the name bound by the older "except E as name"
// form, where the name follows a bare "as" token.
func (c *converter) exceptClause(n *sitter.Node, parent Node) Node {
	o := &Other{base: c.base(n, parent), Type: n.Type()}
	afterAs := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			afterAs = child.Type() == "as"
			continue
		}
		switch {
		case child.Type() == "comment":
		case child.Type() == "block":
			blk := &Other{base: c.base(child, o), Type: "block"}
			blk.Children = c.stmts(child, blk)
			o.Children = append(o.Children, blk)
		case afterAs:
			o.Children = appendNode(o.Children, c.target(child, o))
		default:
			o.Children = appendNode(o.Children, c.expr(child, o))
		}
		afterAs = false
	}
	return o
}

// other converts unmodelled syntax generically, keeping every named
// child so traversal still reaches nested loops, calls and assignments.
func (c *converter) other(n *sitter.Node, parent Node) Node {
	o := &Other{base: c.base(n, parent), Type: n.Type()}
	for _, child := range c.named(n) {
		switch child.Type() {
		case "block":
			blk := &Other{base: c.base(child, o), Type: "block"}
			blk.Children = c.stmts(child, blk)
			o.Children = append(o.Children, blk)
		case "function_definition", "class_definition", "decorated_definition",
			"for_statement", "while_statement", "import_statement", "import_from_statement",
			"global_statement", "nonlocal_statement", "expression_statement":
			o.Children = appendNode(o.Children, c.stmt(child, o))
		default:
			o.Children = appendNode(o.Children, c.expr(child, o))
		}
	}
	return o
}

func appendNode(list []Node, n Node) []Node {
	if n == nil {
		return list
	}
	return append(list, n)
}

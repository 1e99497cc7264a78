package csrc

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// converter walks one function definition at a time.
type converter struct {
	src    []byte
	scopes frontend.Scopes
}

// defUse collects the variables a statement writes and reads.
type defUse struct {
	defs frontend.VarSet
	uses frontend.VarSet
}

func newDefUse() *defUse {
	return &defUse{defs: make(frontend.VarSet), uses: make(frontend.VarSet)}
}

// ignoredNames are identifiers that never denote analyzable variables.
var ignoredNames = map[string]bool{
	"NULL": true, "nullptr": true, "true": true, "false": true,
	"stdin": true, "stdout": true, "stderr": true, "EOF": true,
}

func (c *converter) function(def *sitter.Node) *frontend.Function {
	body := def.ChildByFieldName("body")
	if body == nil || body.Type() != "compound_statement" {
		return nil
	}
	fdecl := functionDeclarator(def.ChildByFieldName("declarator"))
	if fdecl == nil {
		return nil
	}
	name := nameOf(fdecl.ChildByFieldName("declarator"), c.src)
	if name == "" {
		return nil
	}

	c.scopes = frontend.Scopes{}
	c.scopes.Push()
	fn := &frontend.Function{Name: name, Pos: position(def.StartPoint(), def.StartByte())}
	if params := fdecl.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			if param == nil {
				continue
			}
			if id := declaredIdentifier(param.ChildByFieldName("declarator")); id != nil {
				fn.Params = append(fn.Params, c.scopes.Declare(id.Content(c.src), int(id.StartByte())))
			}
		}
	}
	fn.Body = c.stmt(body)
	return fn
}

// stmt converts one statement node. It returns nil for nodes that are not
// statements (comments, stray punctuation).
func (c *converter) stmt(node *sitter.Node) *frontend.Stmt {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "comment", "{", "}", ";":
		return nil

	case "compound_statement":
		c.scopes.Push()
		defer c.scopes.Pop()
		s := c.newStmt(node, frontend.KindCompound)
		s.Stmts = c.stmtList(node, nil)
		return s

	case "case_statement":
		s := c.newStmt(node, frontend.KindCompound)
		s.Stmts = c.stmtList(node, node.ChildByFieldName("value"))
		return s

	case "labeled_statement":
		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			if inner := node.NamedChild(i); inner != nil && inner.Type() != "statement_identifier" {
				return c.stmt(inner)
			}
		}
		return c.newStmt(node, frontend.KindOther)

	case "if_statement":
		return c.ifStatement(node)

	case "switch_statement":
		c.scopes.Push()
		defer c.scopes.Pop()
		body := node.ChildByFieldName("body")
		s := c.newStmt(node, frontend.KindBranch)
		s.Header = c.header(node, body)
		c.setDefUse(s, node.ChildByFieldName("condition"))
		s.Then = c.stmt(body)
		return s

	case "while_statement":
		c.scopes.Push()
		defer c.scopes.Pop()
		body := node.ChildByFieldName("body")
		s := c.newStmt(node, frontend.KindLoop)
		s.Header = c.header(node, body)
		c.setDefUse(s, node.ChildByFieldName("condition"))
		s.Body = c.stmt(body)
		return s

	case "do_statement":
		body := node.ChildByFieldName("body")
		cond := node.ChildByFieldName("condition")
		s := c.newStmt(node, frontend.KindLoop)
		s.Header = "do while " + frontend.CollapseSpace(contentOf(cond, c.src))
		s.Body = c.stmt(body)
		c.setDefUse(s, cond)
		return s

	case "for_statement":
		return c.forStatement(node)

	case "for_range_loop":
		return c.rangeLoop(node)

	case "expression_statement", "return_statement", "throw_statement", "co_return_statement":
		du := newDefUse()
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c.expr(node.NamedChild(i), du)
		}
		return c.leaf(node, du)

	case "declaration":
		du := newDefUse()
		c.declaration(node, du)
		return c.leaf(node, du)

	default:
		// break, continue, goto, try, asm and anything unrecognized: present
		// but inert.
		return c.newStmt(node, frontend.KindOther)
	}
}

func (c *converter) stmtList(node, skip *sitter.Node) []*frontend.Stmt {
	var stmts []*frontend.Stmt
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || skip != nil && sameNode(child, skip) {
			continue
		}
		if s := c.stmt(child); s != nil {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func (c *converter) ifStatement(node *sitter.Node) *frontend.Stmt {
	c.scopes.Push()
	defer c.scopes.Pop()

	consequence := node.ChildByFieldName("consequence")
	s := c.newStmt(node, frontend.KindBranch)
	s.Header = c.header(node, consequence)
	c.setDefUse(s, node.ChildByFieldName("condition"))
	s.Then = c.stmt(consequence)

	alternative := node.ChildByFieldName("alternative")
	if alternative != nil && alternative.Type() == "else_clause" {
		alternative = firstStatement(alternative)
	}
	s.Else = c.stmt(alternative)
	return s
}

func (c *converter) forStatement(node *sitter.Node) *frontend.Stmt {
	c.scopes.Push()
	defer c.scopes.Pop()

	body := node.ChildByFieldName("body")
	s := c.newStmt(node, frontend.KindLoop)
	s.Header = c.header(node, body)

	du := newDefUse()
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || body != nil && sameNode(child, body) || child.Type() == "comment" {
			continue
		}
		if child.Type() == "declaration" {
			c.declaration(child, du)
		} else {
			c.expr(child, du)
		}
	}
	s.Defines, s.Uses = du.defs.Sorted(), du.uses.Sorted()
	s.Body = c.stmt(body)
	return s
}

func (c *converter) rangeLoop(node *sitter.Node) *frontend.Stmt {
	c.scopes.Push()
	defer c.scopes.Pop()

	body := node.ChildByFieldName("body")
	s := c.newStmt(node, frontend.KindLoop)
	s.Header = c.header(node, body)

	du := newDefUse()
	c.expr(node.ChildByFieldName("right"), du)
	if id := declaredIdentifier(node.ChildByFieldName("declarator")); id != nil {
		du.defs.Add(c.scopes.Declare(id.Content(c.src), int(id.StartByte())))
	}
	s.Defines, s.Uses = du.defs.Sorted(), du.uses.Sorted()
	s.Body = c.stmt(body)
	return s
}

// leaf builds a statement without control children, classified by whether
// it writes anything.
func (c *converter) leaf(node *sitter.Node, du *defUse) *frontend.Stmt {
	kind := frontend.KindOther
	if len(du.defs) > 0 {
		kind = frontend.KindAssign
	}
	s := c.newStmt(node, kind)
	s.Defines, s.Uses = du.defs.Sorted(), du.uses.Sorted()
	return s
}

func (c *converter) setDefUse(s *frontend.Stmt, expr *sitter.Node) {
	du := newDefUse()
	c.expr(expr, du)
	s.Defines, s.Uses = du.defs.Sorted(), du.uses.Sorted()
}

// declaration handles `T a = x, *b, c[n];`. Initializers are read before the
// declared name comes into scope.
func (c *converter) declaration(node *sitter.Node, du *defUse) {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "declarator" {
			continue
		}
		decl := node.Child(i)
		if decl == nil {
			continue
		}
		if decl.Type() == "init_declarator" {
			c.expr(decl.ChildByFieldName("value"), du)
			if id := declaredIdentifier(decl.ChildByFieldName("declarator")); id != nil {
				du.defs.Add(c.scopes.Declare(id.Content(c.src), int(id.StartByte())))
			}
			continue
		}
		if id := declaredIdentifier(decl); id != nil {
			c.scopes.Declare(id.Content(c.src), int(id.StartByte()))
		}
	}
}

// expr records the reads and writes of an expression.
func (c *converter) expr(node *sitter.Node, du *defUse) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		name := node.Content(c.src)
		if !ignoredNames[name] {
			du.uses.Add(c.scopes.Resolve(name))
		}
	case "assignment_expression":
		op := node.ChildByFieldName("operator")
		compound := op != nil && op.Type() != "="
		c.target(node.ChildByFieldName("left"), du, compound)
		c.expr(node.ChildByFieldName("right"), du)
	case "update_expression":
		c.target(node.ChildByFieldName("argument"), du, true)
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Type() != "identifier" && fn.Type() != "qualified_identifier" {
			c.expr(fn, du)
		}
		c.expr(node.ChildByFieldName("arguments"), du)
	case "field_expression":
		c.expr(node.ChildByFieldName("argument"), du)
	case "sizeof_expression", "alignof_expression", "cast_expression":
		c.expr(node.ChildByFieldName("value"), du)
	case "declaration":
		c.declaration(node, du)
	case "lambda_expression", "string_literal", "raw_string_literal", "concatenated_string",
		"number_literal", "char_literal", "true", "false", "null", "nullptr",
		"type_descriptor", "primitive_type", "type_identifier", "comment":
	default:
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c.expr(node.NamedChild(i), du)
		}
	}
}

// target records a write. Writes through subscripts, fields and pointers
// are weak updates of the base variable: it is both read and written.
func (c *converter) target(node *sitter.Node, du *defUse, alsoUse bool) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		v := c.scopes.Resolve(node.Content(c.src))
		du.defs.Add(v)
		if alsoUse {
			du.uses.Add(v)
		}
	case "parenthesized_expression":
		c.target(node.NamedChild(0), du, alsoUse)
	case "subscript_expression":
		base := node.ChildByFieldName("argument")
		c.target(base, du, true)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child != nil && (base == nil || !sameNode(child, base)) {
				c.expr(child, du)
			}
		}
	case "field_expression", "pointer_expression":
		c.target(node.ChildByFieldName("argument"), du, true)
	default:
		c.expr(node, du)
	}
}

func (c *converter) newStmt(node *sitter.Node, kind frontend.Kind) *frontend.Stmt {
	return &frontend.Stmt{
		Kind: kind,
		Pos:  position(node.StartPoint(), node.StartByte()),
		End:  position(node.EndPoint(), node.EndByte()),
		Text: frontend.CollapseSpace(node.Content(c.src)),
	}
}

// header is the source text of node up to the start of its arm or body.
func (c *converter) header(node, arm *sitter.Node) string {
	end := node.EndByte()
	if arm != nil {
		end = arm.StartByte()
	}
	return frontend.CollapseSpace(string(c.src[node.StartByte():end]))
}

func position(p sitter.Point, offset uint32) frontend.Pos {
	return frontend.Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Offset: int(offset)}
}

// functionDeclarator unwraps pointer and reference declarators down to the
// function_declarator.
func functionDeclarator(node *sitter.Node) *sitter.Node {
	for node != nil {
		if node.Type() == "function_declarator" {
			return node
		}
		node = innerDeclarator(node)
	}
	return nil
}

// declaredIdentifier returns the identifier a declarator introduces.
func declaredIdentifier(node *sitter.Node) *sitter.Node {
	for node != nil {
		if node.Type() == "identifier" {
			return node
		}
		node = innerDeclarator(node)
	}
	return nil
}

func innerDeclarator(node *sitter.Node) *sitter.Node {
	switch node.Type() {
	case "pointer_declarator", "array_declarator", "init_declarator", "function_declarator",
		"parenthesized_declarator", "attributed_declarator":
		if inner := node.ChildByFieldName("declarator"); inner != nil {
			return inner
		}
	}
	if node.Type() == "reference_declarator" || node.Type() == "parenthesized_declarator" {
		if n := node.NamedChildCount(); n > 0 {
			return node.NamedChild(int(n) - 1)
		}
	}
	return nil
}

func nameOf(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier", "field_identifier", "destructor_name", "operator_name":
		return node.Content(src)
	case "qualified_identifier", "template_function":
		return nameOf(node.ChildByFieldName("name"), src)
	}
	return ""
}

func firstStatement(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child != nil && child.Type() != "comment" {
			return child
		}
	}
	return nil
}

func contentOf(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Content(src))
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

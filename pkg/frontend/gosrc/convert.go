package gosrc

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

type converter struct {
	fset  *token.FileSet
	file  *ast.File
	src   []byte
	info  *types.Info
	fn    *ast.FuncDecl
	stmts map[ast.Node]*frontend.Stmt
}

type defUse struct {
	defs frontend.VarSet
	uses frontend.VarSet
}

func newDefUse() *defUse {
	return &defUse{defs: make(frontend.VarSet), uses: make(frontend.VarSet)}
}

func (c *converter) function() *frontend.Function {
	fn := &frontend.Function{Name: funcName(c.fn), Pos: c.pos(c.fn.Pos())}
	for _, fields := range []*ast.FieldList{c.fn.Recv, c.fn.Type.Params} {
		if fields == nil {
			continue
		}
		for _, field := range fields.List {
			for _, name := range field.Names {
				if v, ok := c.varOf(name); ok {
					fn.Params = append(fn.Params, v)
				}
			}
		}
	}
	fn.Body = c.stmt(c.fn.Body)
	fn.SetLocator(c.locate)
	return fn
}

func (c *converter) stmt(s ast.Stmt) *frontend.Stmt {
	if s == nil {
		return nil
	}
	var out *frontend.Stmt
	switch s := s.(type) {
	case *ast.EmptyStmt:
		return nil

	case *ast.LabeledStmt:
		return c.stmt(s.Stmt)

	case *ast.BlockStmt:
		out = c.newStmt(s, frontend.KindCompound)
		out.Stmts = c.list(s.List)

	case *ast.CaseClause:
		out = c.newStmt(s, frontend.KindCompound)
		out.Stmts = c.list(s.Body)

	case *ast.CommClause:
		out = c.newStmt(s, frontend.KindCompound)
		if comm := c.stmt(s.Comm); comm != nil {
			out.Stmts = append(out.Stmts, comm)
		}
		out.Stmts = append(out.Stmts, c.list(s.Body)...)

	case *ast.IfStmt:
		out = c.newStmt(s, frontend.KindBranch)
		out.Header = c.header(s, s.Body)
		du := newDefUse()
		c.simple(s.Init, du)
		c.uses(s.Cond, du)
		out.Defines, out.Uses = du.defs.Sorted(), du.uses.Sorted()
		out.Then = c.stmt(s.Body)
		out.Else = c.stmt(s.Else)

	case *ast.SwitchStmt:
		out = c.newStmt(s, frontend.KindBranch)
		out.Header = c.header(s, s.Body)
		du := newDefUse()
		c.simple(s.Init, du)
		c.uses(s.Tag, du)
		out.Defines, out.Uses = du.defs.Sorted(), du.uses.Sorted()
		out.Then = c.stmt(s.Body)

	case *ast.TypeSwitchStmt:
		out = c.newStmt(s, frontend.KindBranch)
		out.Header = c.header(s, s.Body)
		du := newDefUse()
		c.simple(s.Init, du)
		c.simple(s.Assign, du)
		out.Defines, out.Uses = du.defs.Sorted(), du.uses.Sorted()
		out.Then = c.stmt(s.Body)

	case *ast.SelectStmt:
		out = c.newStmt(s, frontend.KindBranch)
		out.Header = c.header(s, s.Body)
		out.Then = c.stmt(s.Body)

	case *ast.ForStmt:
		out = c.newStmt(s, frontend.KindLoop)
		out.Header = c.header(s, s.Body)
		du := newDefUse()
		c.simple(s.Init, du)
		c.uses(s.Cond, du)
		c.simple(s.Post, du)
		out.Defines, out.Uses = du.defs.Sorted(), du.uses.Sorted()
		out.Body = c.stmt(s.Body)

	case *ast.RangeStmt:
		out = c.newStmt(s, frontend.KindLoop)
		out.Header = c.header(s, s.Body)
		du := newDefUse()
		c.uses(s.X, du)
		for _, e := range []ast.Expr{s.Key, s.Value} {
			if e != nil {
				c.target(e, du, false)
			}
		}
		out.Defines, out.Uses = du.defs.Sorted(), du.uses.Sorted()
		out.Body = c.stmt(s.Body)

	case *ast.AssignStmt, *ast.IncDecStmt, *ast.DeclStmt, *ast.ExprStmt,
		*ast.ReturnStmt, *ast.SendStmt, *ast.GoStmt, *ast.DeferStmt:
		du := newDefUse()
		c.simple(s, du)
		kind := frontend.KindOther
		if len(du.defs) > 0 {
			kind = frontend.KindAssign
		}
		out = c.newStmt(s, kind)
		out.Defines, out.Uses = du.defs.Sorted(), du.uses.Sorted()

	default:
		out = c.newStmt(s, frontend.KindOther)
	}
	c.stmts[s] = out
	return out
}

func (c *converter) list(stmts []ast.Stmt) []*frontend.Stmt {
	var out []*frontend.Stmt
	for _, s := range stmts {
		if conv := c.stmt(s); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

// simple records the effects of a simple statement, including the init and
// post statements folded into branch and loop headers.
func (c *converter) simple(s ast.Stmt, du *defUse) {
	switch s := s.(type) {
	case nil:
	case *ast.AssignStmt:
		for _, rhs := range s.Rhs {
			c.uses(rhs, du)
		}
		compound := s.Tok != token.ASSIGN && s.Tok != token.DEFINE
		for _, lhs := range s.Lhs {
			c.target(lhs, du, compound)
		}
	case *ast.IncDecStmt:
		c.target(s.X, du, true)
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			return
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, value := range vs.Values {
				c.uses(value, du)
			}
			for _, name := range vs.Names {
				if v, ok := c.varOf(name); ok {
					du.defs.Add(v)
				}
			}
		}
	case *ast.ExprStmt:
		c.uses(s.X, du)
	case *ast.ReturnStmt:
		for _, r := range s.Results {
			c.uses(r, du)
		}
	case *ast.SendStmt:
		c.uses(s.Chan, du)
		c.uses(s.Value, du)
	case *ast.GoStmt:
		c.uses(s.Call, du)
	case *ast.DeferStmt:
		c.uses(s.Call, du)
	}
}

// target records a write. Writes through index, selector and dereference
// expressions are weak updates of the base variable.
func (c *converter) target(e ast.Expr, du *defUse, alsoUse bool) {
	switch e := e.(type) {
	case *ast.Ident:
		if v, ok := c.varOf(e); ok {
			du.defs.Add(v)
			if alsoUse {
				du.uses.Add(v)
			}
		}
	case *ast.ParenExpr:
		c.target(e.X, du, alsoUse)
	case *ast.IndexExpr:
		c.target(e.X, du, true)
		c.uses(e.Index, du)
	case *ast.SelectorExpr:
		c.target(e.X, du, true)
	case *ast.StarExpr:
		c.target(e.X, du, true)
	default:
		c.uses(e, du)
	}
}

// uses records every variable read by an expression. Function literals are
// not descended into.
func (c *converter) uses(e ast.Expr, du *defUse) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.SelectorExpr:
			c.uses(n.X, du)
			return false
		case *ast.Ident:
			if v, ok := c.varOf(n); ok {
				du.uses.Add(v)
			}
		}
		return true
	})
}

// varOf resolves an identifier to a variable identity. Non-variables
// (functions, types, constants, packages, builtins, fields) are rejected.
func (c *converter) varOf(id *ast.Ident) (frontend.Var, bool) {
	if id.Name == "_" {
		return frontend.Var{}, false
	}
	obj, defined := c.info.Defs[id]
	if defined && obj == nil {
		// Symbolic variable of a type switch; its per-clause objects are
		// declared at this identifier.
		return frontend.Var{Name: id.Name, Decl: c.offset(id.Pos())}, true
	}
	if obj == nil {
		obj = c.info.Uses[id]
	}
	if obj == nil {
		return frontend.Var{Name: id.Name, Decl: -1}, true
	}
	v, ok := obj.(*types.Var)
	if !ok || v.IsField() {
		return frontend.Var{}, false
	}
	decl := -1
	if v.Pos() >= c.fn.Pos() && v.Pos() < c.fn.End() {
		decl = c.offset(v.Pos())
	}
	return frontend.Var{Name: id.Name, Decl: decl}, true
}

func (c *converter) newStmt(n ast.Node, kind frontend.Kind) *frontend.Stmt {
	start, end := c.offset(n.Pos()), c.offset(n.End())
	return &frontend.Stmt{
		Kind: kind,
		Pos:  c.pos(n.Pos()),
		End:  c.pos(n.End()),
		Text: frontend.CollapseSpace(string(c.src[start:end])),
	}
}

func (c *converter) header(n ast.Node, body *ast.BlockStmt) string {
	return frontend.CollapseSpace(string(c.src[c.offset(n.Pos()):c.offset(body.Pos())]))
}

func (c *converter) offset(p token.Pos) int {
	return c.fset.Position(p).Offset
}

func (c *converter) pos(p token.Pos) frontend.Pos {
	position := c.fset.Position(p)
	return frontend.Pos{Line: position.Line, Column: position.Column, Offset: position.Offset}
}

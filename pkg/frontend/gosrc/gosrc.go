// Package gosrc is the Go front-end. It parses a file with go/parser,
// resolves identifiers with go/types, and converts every function with a
// body into a frontend.Stmt tree.
package gosrc

import (
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// Parser parses Go sources.
type Parser struct{}

// New returns a Go parser.
func New() *Parser {
	return &Parser{}
}

// Parse implements frontend.Parser. Type errors are tolerated: the file does
// not need to build, only to parse.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*frontend.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", frontend.ErrParse, err)
	}

	info := &types.Info{
		Defs: make(map[*ast.Ident]types.Object),
		Uses: make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{
		Importer: importer.Default(),
		Error:    func(error) {},
	}
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file}, info)

	unit := &frontend.Unit{Path: path, Language: frontend.LanguageGo}
	insp := inspector.New([]*ast.File{file})
	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fd := n.(*ast.FuncDecl)
		if fd.Body == nil {
			return
		}
		conv := &converter{
			fset:  fset,
			file:  file,
			src:   src,
			info:  info,
			fn:    fd,
			stmts: make(map[ast.Node]*frontend.Stmt),
		}
		unit.Functions = append(unit.Functions, conv.function())
	})
	return unit, nil
}

// funcName qualifies methods with their receiver type: "T.Method".
func funcName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return fd.Name.Name
	}
	typ := fd.Recv.List[0].Type
	for {
		switch t := typ.(type) {
		case *ast.StarExpr:
			typ = t.X
			continue
		case *ast.IndexExpr:
			typ = t.X
			continue
		case *ast.IndexListExpr:
			typ = t.X
			continue
		case *ast.Ident:
			return t.Name + "." + fd.Name.Name
		}
		return fd.Name.Name
	}
}

// locate maps a line/column to the innermost converted statement enclosing
// it.
func (c *converter) locate(line, column int) *frontend.Stmt {
	tf := c.fset.File(c.file.Pos())
	if tf == nil || line < 1 || line > tf.LineCount() || column < 1 {
		return nil
	}
	lineEnd := tf.Size()
	if line < tf.LineCount() {
		lineEnd = tf.Offset(tf.LineStart(line + 1))
	}
	offset := tf.Offset(tf.LineStart(line)) + column - 1
	if offset >= lineEnd {
		return nil
	}
	pos := tf.Pos(offset)
	if pos < c.fn.Body.Pos() || pos >= c.fn.Body.End() {
		return nil
	}
	path, _ := astutil.PathEnclosingInterval(c.file, pos, pos)
	for _, node := range path {
		if s, ok := c.stmts[node]; ok && s.Kind != frontend.KindCompound {
			return s
		}
	}
	return nil
}

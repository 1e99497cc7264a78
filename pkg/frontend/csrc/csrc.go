// Package csrc is the tree-sitter front-end for C and C++. It converts each
// function definition into a frontend.Stmt tree and resolves identifiers to
// their declarations through lexical scopes.
package csrc

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// Parser parses C or C++ sources.
type Parser struct {
	lang frontend.Language
}

// New returns a parser for the given language. Anything other than
// frontend.LanguageCPP is parsed with the C grammar.
func New(lang frontend.Language) *Parser {
	if lang != frontend.LanguageCPP {
		lang = frontend.LanguageC
	}
	return &Parser{lang: lang}
}

func (p *Parser) grammar() *sitter.Language {
	if p.lang == frontend.LanguageCPP {
		return cpp.GetLanguage()
	}
	return c.GetLanguage()
}

// Parse implements frontend.Parser.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*frontend.Unit, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", frontend.ErrParse, path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			return nil, fmt.Errorf("%w: %s:%d:%d: unexpected %q", frontend.ErrParse, path,
				bad.StartPoint().Row+1, bad.StartPoint().Column+1, truncate(bad.Content(src), 32))
		}
		return nil, fmt.Errorf("%w: %s", frontend.ErrParse, path)
	}

	unit := &frontend.Unit{Path: path, Language: p.lang}
	conv := &converter{src: src}
	conv.collect(root, unit)
	return unit, nil
}

// collect finds function definitions anywhere outside other function bodies
// (namespaces, extern "C" blocks, class bodies, preprocessor conditionals).
func (c *converter) collect(node *sitter.Node, unit *frontend.Unit) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if child.Type() == "function_definition" {
			if fn := c.function(child); fn != nil {
				unit.Functions = append(unit.Functions, fn)
			}
			continue
		}
		c.collect(child, unit)
	}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

func truncate(s string, n int) string {
	s = frontend.CollapseSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

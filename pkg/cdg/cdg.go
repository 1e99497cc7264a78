// Package cdg builds the control-dependence skeleton of a function: one
// pdg node per statement-level construct, linked by labelled control edges
// that mirror the statement tree.
package cdg

import (
	"fmt"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// Result is a freshly built graph plus the statement-to-node mapping used to
// resolve slice targets.
type Result struct {
	Graph *pdg.Graph
	nodes map[*frontend.Stmt]pdg.NodeID
}

// NodeFor returns the node built for a statement.
func (r *Result) NodeFor(s *frontend.Stmt) (pdg.NodeID, bool) {
	id, ok := r.nodes[s]
	return id, ok
}

// Build creates the graph for fn. Node ids follow a pre-order walk of the
// statement tree, so every parent is issued before its children.
func Build(fn *frontend.Function) (*Result, error) {
	if fn == nil || fn.Body == nil {
		return nil, fmt.Errorf("%w: function has no body", pdg.ErrInvariant)
	}
	b := &builder{
		graph: pdg.New(fn.Name),
		nodes: make(map[*frontend.Stmt]pdg.NodeID),
	}
	root, err := b.build(fn.Body)
	if err != nil {
		return nil, err
	}
	if err := b.graph.SetRoot(root); err != nil {
		return nil, err
	}
	return &Result{Graph: b.graph, nodes: b.nodes}, nil
}

type builder struct {
	graph *pdg.Graph
	nodes map[*frontend.Stmt]pdg.NodeID
}

func (b *builder) build(s *frontend.Stmt) (pdg.NodeID, error) {
	n := b.graph.NewNode(pdg.KindOf(s.Kind), s, s.Defines, s.Uses)
	b.nodes[s] = n.ID

	switch s.Kind {
	case frontend.KindCompound:
		for _, child := range s.Stmts {
			if err := b.link(n.ID, child, pdg.Unconditional); err != nil {
				return 0, err
			}
		}
	case frontend.KindBranch:
		if err := b.link(n.ID, s.Then, pdg.True); err != nil {
			return 0, err
		}
		if err := b.link(n.ID, s.Else, pdg.False); err != nil {
			return 0, err
		}
	case frontend.KindLoop:
		if err := b.link(n.ID, s.Body, pdg.Unconditional); err != nil {
			return 0, err
		}
	}
	return n.ID, nil
}

func (b *builder) link(parent pdg.NodeID, child *frontend.Stmt, label pdg.EdgeLabel) error {
	if child == nil {
		return nil
	}
	id, err := b.build(child)
	if err != nil {
		return err
	}
	return b.graph.AddControlChild(parent, id, label)
}

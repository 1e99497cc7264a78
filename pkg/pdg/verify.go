package pdg

import (
	"fmt"
)

// Verify checks the graph's structural invariants: ids match arena slots,
// control edges form a tree rooted at Root with children issued after their
// parent, both ends of every edge agree, child lists are in source order,
// and each kind carries only the edge labels it allows. The first violation
// is returned wrapped in ErrInvariant.
func (g *Graph) Verify() error {
	if len(g.nodes) == 0 {
		return nil
	}
	if g.Root() == nil {
		return fmt.Errorf("%w: graph %q has no root", ErrInvariant, g.Function)
	}

	for i, n := range g.nodes {
		if n.ID != NodeID(i) {
			return fmt.Errorf("%w: node in slot %d has id %d", ErrInvariant, i, n.ID)
		}
		if err := g.verifyControl(n); err != nil {
			return err
		}
		if err := g.verifyData(n); err != nil {
			return err
		}
		if err := verifyShape(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) verifyControl(n *Node) error {
	switch {
	case n.ID == g.root && len(n.parents) != 0:
		return fmt.Errorf("%w: root %d has a control parent", ErrInvariant, n.ID)
	case n.ID != g.root && len(n.parents) != 1:
		return fmt.Errorf("%w: node %d has %d control parents, want 1", ErrInvariant, n.ID, len(n.parents))
	}

	for i, e := range n.children {
		child := g.Node(e.Node)
		if child == nil {
			return fmt.Errorf("%w: node %d has missing control child %d", ErrInvariant, n.ID, e.Node)
		}
		if child.ID <= n.ID {
			return fmt.Errorf("%w: control child %d issued before parent %d", ErrInvariant, child.ID, n.ID)
		}
		if !containsControl(child.parents, ControlEdge{Node: n.ID, Label: e.Label}) {
			return fmt.Errorf("%w: control edge %d -> %d has no mirror", ErrInvariant, n.ID, child.ID)
		}
		if i > 0 && !g.less(n.children[i-1].Node, e.Node) {
			return fmt.Errorf("%w: control children of %d out of source order", ErrInvariant, n.ID)
		}
	}
	for _, e := range n.parents {
		parent := g.Node(e.Node)
		if parent == nil || !containsControl(parent.children, ControlEdge{Node: n.ID, Label: e.Label}) {
			return fmt.Errorf("%w: control edge %d -> %d has no mirror", ErrInvariant, e.Node, n.ID)
		}
	}
	return nil
}

func (g *Graph) verifyData(n *Node) error {
	for _, id := range n.succs {
		succ := g.Node(id)
		if succ == nil || !containsID(succ.preds, n.ID) {
			return fmt.Errorf("%w: data edge %d -> %d has no mirror", ErrInvariant, n.ID, id)
		}
	}
	for _, id := range n.preds {
		pred := g.Node(id)
		if pred == nil || !containsID(pred.succs, n.ID) {
			return fmt.Errorf("%w: data edge %d -> %d has no mirror", ErrInvariant, id, n.ID)
		}
	}
	return nil
}

// verifyShape checks the labels on a node's control children against its
// kind.
func verifyShape(n *Node) error {
	switch n.Kind {
	case KindBranch:
		var trues, falses int
		for _, e := range n.children {
			switch e.Label {
			case True:
				trues++
			case False:
				falses++
			default:
				return fmt.Errorf("%w: branch %d has an unconditional child", ErrInvariant, n.ID)
			}
		}
		if trues > 1 || falses > 1 {
			return fmt.Errorf("%w: branch %d has %d true and %d false children", ErrInvariant, n.ID, trues, falses)
		}
	case KindLoop, KindCompound:
		for _, e := range n.children {
			if e.Label != Unconditional {
				return fmt.Errorf("%w: %s %d has a %s child", ErrInvariant, n.Kind, n.ID, e.Label)
			}
		}
		if n.Kind == KindLoop && len(n.children) > 1 {
			return fmt.Errorf("%w: loop %d has %d body entries", ErrInvariant, n.ID, len(n.children))
		}
	default:
		if len(n.children) != 0 {
			return fmt.Errorf("%w: %s %d has control children", ErrInvariant, n.Kind, n.ID)
		}
	}
	return nil
}

func containsControl(edges []ControlEdge, want ControlEdge) bool {
	for _, e := range edges {
		if e == want {
			return true
		}
	}
	return false
}

func containsID(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

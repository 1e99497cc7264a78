package pdg

import (
	"fmt"
	"sort"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// Graph is the dependence graph of one function body. Nodes live in an
// arena indexed by NodeID; the id sequence belongs to the graph, so
// separate graphs reuse ids freely.
type Graph struct {
	Function string

	nodes []*Node
	root  NodeID
}

// New returns an empty graph for the named function.
func New(function string) *Graph {
	return &Graph{Function: function, root: -1}
}

// NewNode appends a node with the next id. Defines and uses are fixed from
// here on.
func (g *Graph) NewNode(kind Kind, stmt *frontend.Stmt, defines, uses []frontend.Var) *Node {
	n := &Node{
		ID:      NodeID(len(g.nodes)),
		Kind:    kind,
		Stmt:    stmt,
		defines: defines,
		uses:    uses,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns every node in id order.
func (g *Graph) Nodes() []*Node {
	return clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Root returns the root of the control tree, or nil for an empty graph.
func (g *Graph) Root() *Node {
	return g.Node(g.root)
}

// SetRoot designates the root of the control tree.
func (g *Graph) SetRoot(id NodeID) error {
	if g.Node(id) == nil {
		return fmt.Errorf("%w: root %d out of range", ErrInvariant, id)
	}
	g.root = id
	return nil
}

// EdgeCount returns the number of control and data edges.
func (g *Graph) EdgeCount() (control, data int) {
	for _, n := range g.nodes {
		control += len(n.children)
		data += len(n.succs)
	}
	return control, data
}

// AddControlChild makes child control-dependent on parent. Both ends keep
// their lists ordered by source offset, ties broken by id.
func (g *Graph) AddControlChild(parent, child NodeID, label EdgeLabel) error {
	p, c := g.Node(parent), g.Node(child)
	if p == nil || c == nil {
		return fmt.Errorf("%w: control edge %d -> %d references a missing node", ErrInvariant, parent, child)
	}
	for _, e := range p.children {
		if e.Node == child {
			return nil
		}
	}
	p.children = g.insertControl(p.children, ControlEdge{Node: child, Label: label})
	c.parents = g.insertControl(c.parents, ControlEdge{Node: parent, Label: label})
	return nil
}

// AddDataEdge records that dst reads a definition made by src. Adding an
// existing edge is a no-op. Self edges are allowed.
func (g *Graph) AddDataEdge(src, dst NodeID) error {
	s, d := g.Node(src), g.Node(dst)
	if s == nil || d == nil {
		return fmt.Errorf("%w: data edge %d -> %d references a missing node", ErrInvariant, src, dst)
	}
	var added bool
	s.succs, added = insertID(s.succs, dst)
	if added {
		d.preds, _ = insertID(d.preds, src)
	}
	return nil
}

func (g *Graph) less(a, b NodeID) bool {
	pa, pb := g.nodes[a].Pos().Offset, g.nodes[b].Pos().Offset
	if pa != pb {
		return pa < pb
	}
	return a < b
}

func (g *Graph) insertControl(edges []ControlEdge, e ControlEdge) []ControlEdge {
	i := sort.Search(len(edges), func(i int) bool { return !g.less(edges[i].Node, e.Node) })
	edges = append(edges, ControlEdge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = e
	return edges
}

func insertID(ids []NodeID, id NodeID) ([]NodeID, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return ids, false
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids, true
}

// SortByPosition orders ids by source offset, ties by id.
func (g *Graph) SortByPosition(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return g.less(ids[i], ids[j]) })
}

// Variables returns every variable name defined or used in the graph.
func (g *Graph) Variables() []string {
	seen := make(map[string]bool)
	for _, n := range g.nodes {
		for _, v := range n.defines {
			seen[v.Name] = true
		}
		for _, v := range n.uses {
			seen[v.Name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodesReferencing returns the nodes that define or use a variable with the
// given name, by position.
func (g *Graph) NodesReferencing(name string) []NodeID {
	var ids []NodeID
	for _, n := range g.nodes {
		if hasName(n.defines, name) || hasName(n.uses, name) {
			ids = append(ids, n.ID)
		}
	}
	g.SortByPosition(ids)
	return ids
}

func hasName(vars []frontend.Var, name string) bool {
	for _, v := range vars {
		if v.Name == name {
			return true
		}
	}
	return false
}

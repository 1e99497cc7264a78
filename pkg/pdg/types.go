// Package pdg defines the Program Dependence Graph: an arena of statement
// nodes joined by control-dependence and data-dependence edges, plus the
// slicing traversal over it.
package pdg

import (
	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// Kind is the closed set of node kinds. Per-kind behaviour lives in the
// kind-indexed tables below rather than in per-kind types.
type Kind int

const (
	KindAssign   Kind = iota // Statement whose main effect is writing variables
	KindBranch               // if/switch
	KindLoop                 // for/while/do/range
	KindCompound             // Block of statements
	KindOther                // Anything else
	numKinds
)

var kindNames = [numKinds]string{
	KindAssign:   "Assign",
	KindBranch:   "Branch",
	KindLoop:     "Loop",
	KindCompound: "Compound",
	KindOther:    "Statement",
}

// kindText selects which source text represents a node of each kind.
var kindText = [numKinds]func(*frontend.Stmt) string{
	KindAssign:   fullText,
	KindBranch:   headerText,
	KindLoop:     headerText,
	KindCompound: func(*frontend.Stmt) string { return "{...}" },
	KindOther:    fullText,
}

func fullText(s *frontend.Stmt) string { return s.Text }

func headerText(s *frontend.Stmt) string {
	if s.Header != "" {
		return s.Header
	}
	return s.Text
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "Unknown"
	}
	return kindNames[k]
}

// KindOf maps a front-end statement kind to the node kind.
func KindOf(k frontend.Kind) Kind {
	switch k {
	case frontend.KindAssign:
		return KindAssign
	case frontend.KindBranch:
		return KindBranch
	case frontend.KindLoop:
		return KindLoop
	case frontend.KindCompound:
		return KindCompound
	default:
		return KindOther
	}
}

// EdgeLabel qualifies a control edge.
type EdgeLabel int

const (
	Unconditional EdgeLabel = iota
	True
	False
)

func (l EdgeLabel) String() string {
	switch l {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unconditional"
	}
}

// Short is the one-letter marker used in dumps; empty for Unconditional.
func (l EdgeLabel) Short() string {
	switch l {
	case True:
		return "T"
	case False:
		return "F"
	default:
		return ""
	}
}

// NodeID is a node handle. It indexes the owning graph's arena and is
// issued in construction order.
type NodeID int

// ControlEdge is one end of a control-dependence edge.
type ControlEdge struct {
	Node  NodeID    `json:"node"`
	Label EdgeLabel `json:"label"`
}

// Node is one statement-level construct of a function body.
type Node struct {
	ID   NodeID
	Kind Kind
	Stmt *frontend.Stmt // Source anchor; used for ordering and display only

	defines []frontend.Var
	uses    []frontend.Var

	children []ControlEdge
	parents  []ControlEdge
	succs    []NodeID
	preds    []NodeID

	inSlice bool
}

// Pos returns the node's source position.
func (n *Node) Pos() frontend.Pos {
	if n.Stmt == nil {
		return frontend.Pos{Offset: -1}
	}
	return n.Stmt.Pos
}

// SourceText returns the text shown for the node: the header for branches
// and loops, the statement text otherwise.
func (n *Node) SourceText() string {
	if n.Stmt == nil {
		return ""
	}
	return kindText[n.Kind](n.Stmt)
}

// Defines returns the variables the node writes.
func (n *Node) Defines() []frontend.Var { return n.defines }

// Uses returns the variables the node reads.
func (n *Node) Uses() []frontend.Var { return n.uses }

// ControlChildren returns the nodes control-dependent on n, by source order.
func (n *Node) ControlChildren() []ControlEdge { return clone(n.children) }

// ControlParents returns the nodes n is control-dependent on.
func (n *Node) ControlParents() []ControlEdge { return clone(n.parents) }

// DataSuccessors returns the nodes that read a definition made by n, by id.
func (n *Node) DataSuccessors() []NodeID { return clone(n.succs) }

// DataPredecessors returns the nodes whose definitions n reads, by id.
func (n *Node) DataPredecessors() []NodeID { return clone(n.preds) }

// Mark puts the node in the current slice.
func (n *Node) Mark() { n.inSlice = true }

// Unmark removes the node from the current slice.
func (n *Node) Unmark() { n.inSlice = false }

// IsMarked reports whether the node is in the current slice.
func (n *Node) IsMarked() bool { return n.inSlice }

func clone[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

package pdg

import (
	"container/list"
	"fmt"
	"strings"
)

// Direction selects which dependences a slice follows.
type Direction int

const (
	// Backward collects everything that may influence the seed.
	Backward Direction = iota
	// Forward collects everything the seed may influence.
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// ParseDirection parses "backward" or "forward" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "backward", "b":
		return Backward, nil
	case "forward", "f":
		return Forward, nil
	}
	return Backward, fmt.Errorf("unknown slice direction %q", s)
}

// Slice computes the closure of seed under the dependences selected by dir,
// marks every node it reaches and returns them by source position.
// Backward follows control parents and data predecessors; forward follows
// control children and data successors. The visited set is the only cycle
// guard, so loops and self edges terminate. An unknown seed yields nil.
func (g *Graph) Slice(seed NodeID, dir Direction) []NodeID {
	start := g.Node(seed)
	if start == nil {
		return nil
	}

	visited := make(map[NodeID]bool)
	queue := list.New()
	queue.PushBack(seed)
	visited[seed] = true

	result := make([]NodeID, 0)
	for queue.Len() > 0 {
		id := queue.Remove(queue.Front()).(NodeID)
		n := g.nodes[id]
		n.Mark()
		result = append(result, id)

		for _, next := range g.neighbours(n, dir) {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue.PushBack(next)
		}
	}

	g.SortByPosition(result)
	return result
}

func (g *Graph) neighbours(n *Node, dir Direction) []NodeID {
	var control []ControlEdge
	var data []NodeID
	if dir == Forward {
		control, data = n.children, n.succs
	} else {
		control, data = n.parents, n.preds
	}
	out := make([]NodeID, 0, len(control)+len(data))
	for _, e := range control {
		out = append(out, e.Node)
	}
	return append(out, data...)
}

// Marked returns the nodes currently in the slice, by source position.
func (g *Graph) Marked() []NodeID {
	var ids []NodeID
	for _, n := range g.nodes {
		if n.inSlice {
			ids = append(ids, n.ID)
		}
	}
	g.SortByPosition(ids)
	return ids
}

// Reset clears the slice mark on every node reachable from root through
// control edges. It is idempotent.
func (g *Graph) Reset(root NodeID) {
	n := g.Node(root)
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.Unmark()
		for _, e := range n.children {
			stack = append(stack, g.nodes[e.Node])
		}
	}
}

// ResetAll clears the slice mark on every node of the graph.
func (g *Graph) ResetAll() {
	for _, n := range g.nodes {
		n.Unmark()
	}
}

// DependencyInfo lists the immediate dependences of one node.
type DependencyInfo struct {
	ControlIn  []ControlEdge // Nodes this node is control-dependent on
	ControlOut []ControlEdge // Nodes control-dependent on this node
	DataIn     []NodeID      // Nodes whose definitions this node reads
	DataOut    []NodeID      // Nodes reading this node's definitions
}

// Dependencies returns the immediate dependences of id.
func (g *Graph) Dependencies(id NodeID) DependencyInfo {
	n := g.Node(id)
	if n == nil {
		return DependencyInfo{}
	}
	return DependencyInfo{
		ControlIn:  n.ControlParents(),
		ControlOut: n.ControlChildren(),
		DataIn:     n.DataPredecessors(),
		DataOut:    n.DataSuccessors(),
	}
}

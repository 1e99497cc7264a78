package dfg

import (
	"fmt"

	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// analyzer threads the reaching map through the control skeleton. Branch
// depth travels as an argument; loops keeps the loops currently being
// iterated, innermost last.
type analyzer struct {
	g     *pdg.Graph
	opts  Options
	loops []pdg.NodeID
	stats Stats
}

// Analyze adds a data edge from every definition of v that may reach a use
// of v. Rules:
//
//   - a node's uses read the map before its own definitions are applied;
//   - outside any branch arm a definition replaces the reaching set, inside
//     one it is added to it unless KillInBranches is set;
//   - a branch evaluates its header, then each arm from the post-header map,
//     and joins by union (a missing else contributes the post-header map);
//   - a loop iterates header and body from union(entry, body exit) until
//     that map is stable; the exit map is the header-evaluated map at the
//     fixed point, which also covers zero iterations.
//
// Exceeding MaxLoopIterations or MaxLoopDepth fails the run with
// pdg.ErrInvariant.
func Analyze(g *pdg.Graph, opts Options) (Stats, error) {
	root := g.Root()
	if root == nil {
		return Stats{}, nil
	}
	a := &analyzer{g: g, opts: opts.withDefaults()}
	if _, err := a.visit(root, reaching{}, 0); err != nil {
		return a.stats, err
	}
	return a.stats, nil
}

func (a *analyzer) visit(n *pdg.Node, in reaching, depth int) (reaching, error) {
	switch n.Kind {
	case pdg.KindCompound:
		cur := in
		for _, e := range n.ControlChildren() {
			var err error
			if cur, err = a.visit(a.g.Node(e.Node), cur, depth); err != nil {
				return nil, err
			}
		}
		return cur, nil
	case pdg.KindBranch:
		return a.branch(n, in, depth)
	case pdg.KindLoop:
		return a.loop(n, in, depth)
	default:
		return a.apply(n, in, depth)
	}
}

func (a *analyzer) branch(n *pdg.Node, in reaching, depth int) (reaching, error) {
	header, err := a.apply(n, in, depth)
	if err != nil {
		return nil, err
	}
	thenOut, elseOut := header, header
	for _, e := range n.ControlChildren() {
		out, err := a.visit(a.g.Node(e.Node), header, depth+1)
		if err != nil {
			return nil, err
		}
		if e.Label == pdg.False {
			elseOut = out
		} else {
			thenOut = out
		}
	}
	return thenOut.union(elseOut), nil
}

func (a *analyzer) loop(n *pdg.Node, entry reaching, depth int) (reaching, error) {
	if len(a.loops) >= a.opts.MaxLoopDepth {
		return nil, fmt.Errorf("%w: loop %d nested deeper than %d", pdg.ErrInvariant, n.ID, a.opts.MaxLoopDepth)
	}
	a.loops = append(a.loops, n.ID)
	defer func() { a.loops = a.loops[:len(a.loops)-1] }()

	a.stats.Loops++
	if len(a.loops) > a.stats.MaxLoopNesting {
		a.stats.MaxLoopNesting = len(a.loops)
	}

	head := entry
	for iter := 1; iter <= a.opts.MaxLoopIterations; iter++ {
		header, err := a.apply(n, head, depth)
		if err != nil {
			return nil, err
		}
		bodyOut := header
		for _, e := range n.ControlChildren() {
			if bodyOut, err = a.visit(a.g.Node(e.Node), header, depth); err != nil {
				return nil, err
			}
		}
		next := entry.union(bodyOut)
		if next.equal(head) {
			if iter > a.stats.MaxIterations {
				a.stats.MaxIterations = iter
			}
			return header, nil
		}
		head = next
	}
	return nil, fmt.Errorf("%w: loop %d did not converge within %d iterations", pdg.ErrInvariant, n.ID, a.opts.MaxLoopIterations)
}

// apply records the node's uses against in and returns the map after its
// definitions.
func (a *analyzer) apply(n *pdg.Node, in reaching, depth int) (reaching, error) {
	for _, v := range n.Uses() {
		for _, def := range in[v] {
			if err := a.g.AddDataEdge(def, n.ID); err != nil {
				return nil, err
			}
		}
	}
	defines := n.Defines()
	if len(defines) == 0 {
		return in, nil
	}
	out := in.clone()
	strong := depth == 0 || a.opts.KillInBranches
	for _, v := range defines {
		if strong {
			out[v] = defSet{n.ID}
		} else {
			out[v] = out[v].with(n.ID)
		}
	}
	return out, nil
}

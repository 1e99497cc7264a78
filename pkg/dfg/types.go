// Package dfg computes data dependences over a pdg control skeleton with a
// reaching-definitions fixed point evaluated construct by construct.
package dfg

import (
	"sort"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// Options tunes the analysis.
type Options struct {
	// KillInBranches makes definitions inside branch arms strong updates.
	// The join still unions every arm, so other paths survive.
	KillInBranches bool `json:"kill_in_branches"`
	// MaxLoopIterations bounds the fixed point of a single loop.
	MaxLoopIterations int `json:"max_loop_iterations"`
	// MaxLoopDepth bounds loop nesting.
	MaxLoopDepth int `json:"max_loop_depth"`
}

// DefaultOptions returns the conservative defaults.
func DefaultOptions() Options {
	return Options{
		MaxLoopIterations: 64,
		MaxLoopDepth:      32,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxLoopIterations <= 0 {
		o.MaxLoopIterations = def.MaxLoopIterations
	}
	if o.MaxLoopDepth <= 0 {
		o.MaxLoopDepth = def.MaxLoopDepth
	}
	return o
}

// Stats summarizes one analysis run.
type Stats struct {
	Loops          int // Loops analyzed
	MaxIterations  int // Most fixed-point iterations any loop needed
	MaxLoopNesting int // Deepest loop nesting seen
}

// defSet is a sorted set of defining nodes. Sets are never modified after
// creation; every update builds a new one.
type defSet []pdg.NodeID

func (s defSet) with(id pdg.NodeID) defSet {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	if i < len(s) && s[i] == id {
		return s
	}
	out := make(defSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, id)
	return append(out, s[i:]...)
}

func (s defSet) union(t defSet) defSet {
	if len(s) == 0 {
		return t
	}
	if len(t) == 0 {
		return s
	}
	out := make(defSet, 0, len(s)+len(t))
	i, j := 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] < t[j]:
			out = append(out, s[i])
			i++
		case s[i] > t[j]:
			out = append(out, t[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	return append(out, t[j:]...)
}

func (s defSet) equal(t defSet) bool {
	if len(s) != len(t) {
		return false
	}
	for i := range s {
		if s[i] != t[i] {
			return false
		}
	}
	return true
}

// reaching maps each variable to the definitions that may reach a program
// point. Maps are copied before writing, so a map handed to another arm or
// iteration is never changed underneath it.
type reaching map[frontend.Var]defSet

func (r reaching) clone() reaching {
	out := make(reaching, len(r)+1)
	for v, s := range r {
		out[v] = s
	}
	return out
}

func (r reaching) union(o reaching) reaching {
	out := r.clone()
	for v, s := range o {
		out[v] = out[v].union(s)
	}
	return out
}

func (r reaching) equal(o reaching) bool {
	if len(r) != len(o) {
		return false
	}
	for v, s := range r {
		t, ok := o[v]
		if !ok || !s.equal(t) {
			return false
		}
	}
	return true
}

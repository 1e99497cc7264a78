// Package render turns a dependence graph into text: an indented structural
// dump, or a graph description encoded as DOT, JSON or msgpack.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// Format is an output encoding.
type Format string

const (
	FormatDump    Format = "dump"
	FormatDOT     Format = "dot"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Formats lists every supported format.
var Formats = []Format{FormatDump, FormatDOT, FormatJSON, FormatMsgpack}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatDump, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want dump, dot, json or msgpack)", s)
}

// Edge classes in a Description.
const (
	ClassControl = "control"
	ClassData    = "data"
)

// NodeDesc describes one node.
type NodeDesc struct {
	ID      int      `json:"id" msgpack:"id"`
	Kind    string   `json:"kind" msgpack:"kind"`
	Text    string   `json:"text" msgpack:"text"`
	Line    int      `json:"line" msgpack:"line"`
	Column  int      `json:"column" msgpack:"column"`
	InSlice bool     `json:"in_slice" msgpack:"in_slice"`
	Defines []string `json:"defines,omitempty" msgpack:"defines,omitempty"`
	Uses    []string `json:"uses,omitempty" msgpack:"uses,omitempty"`
}

// EdgeDesc describes one control or data edge.
type EdgeDesc struct {
	From  int    `json:"from" msgpack:"from"`
	To    int    `json:"to" msgpack:"to"`
	Class string `json:"class" msgpack:"class"`
	Label string `json:"label,omitempty" msgpack:"label,omitempty"`
}

// Rank groups the nodes that start on one source line.
type Rank struct {
	Line  int   `json:"line" msgpack:"line"`
	Nodes []int `json:"nodes" msgpack:"nodes"`
}

// Description is the serializable form of a graph and its current slice.
type Description struct {
	Function string     `json:"function" msgpack:"function"`
	Nodes    []NodeDesc `json:"nodes" msgpack:"nodes"`
	Edges    []EdgeDesc `json:"edges" msgpack:"edges"`
	Ranks    []Rank     `json:"ranks" msgpack:"ranks"`
}

// Describe captures g, including slice marks. Nodes are in id order, control
// edges precede data edges, and ranks ascend by line.
func Describe(g *pdg.Graph) *Description {
	desc := &Description{
		Function: g.Function,
		Nodes:    make([]NodeDesc, 0, g.Len()),
		Edges:    make([]EdgeDesc, 0),
	}
	byLine := make(map[int][]int)

	for _, n := range g.Nodes() {
		pos := n.Pos()
		desc.Nodes = append(desc.Nodes, NodeDesc{
			ID:      int(n.ID),
			Kind:    n.Kind.String(),
			Text:    n.SourceText(),
			Line:    pos.Line,
			Column:  pos.Column,
			InSlice: n.IsMarked(),
			Defines: varNames(n.Defines()),
			Uses:    varNames(n.Uses()),
		})
		byLine[pos.Line] = append(byLine[pos.Line], int(n.ID))
	}

	for _, n := range g.Nodes() {
		for _, e := range n.ControlChildren() {
			desc.Edges = append(desc.Edges, EdgeDesc{From: int(n.ID), To: int(e.Node), Class: ClassControl, Label: e.Label.String()})
		}
	}
	for _, n := range g.Nodes() {
		for _, s := range n.DataSuccessors() {
			desc.Edges = append(desc.Edges, EdgeDesc{From: int(n.ID), To: int(s), Class: ClassData})
		}
	}

	lines := make([]int, 0, len(byLine))
	for line := range byLine {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	desc.Ranks = make([]Rank, 0, len(lines))
	for _, line := range lines {
		desc.Ranks = append(desc.Ranks, Rank{Line: line, Nodes: byLine[line]})
	}
	return desc
}

// Sliced returns the ids of the nodes marked in the slice.
func (d *Description) Sliced() []int {
	var ids []int
	for _, n := range d.Nodes {
		if n.InSlice {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func varNames[T fmt.Stringer](vars []T) []string {
	if len(vars) == 0 {
		return nil
	}
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.String()
	}
	return out
}

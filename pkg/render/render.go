package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// Write renders g to w in the given format.
func Write(w io.Writer, g *pdg.Graph, format Format) error {
	switch format {
	case FormatDump, "":
		_, err := io.WriteString(w, Dump(g))
		return err
	case FormatDOT:
		_, err := io.WriteString(w, DOT(Describe(g)))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Describe(g))
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(Describe(g))
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Dump renders the control tree depth-first, one node per line:
//
//	<indent>[T|F] #<id> <Kind>: <text> [*]
//
// The label appears only on True/False children; '*' marks slice members.
func Dump(g *pdg.Graph) string {
	var sb strings.Builder
	if root := g.Root(); root != nil {
		dumpNode(&sb, g, root, pdg.Unconditional, 0)
	}
	return sb.String()
}

func dumpNode(sb *strings.Builder, g *pdg.Graph, n *pdg.Node, label pdg.EdgeLabel, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	if short := label.Short(); short != "" {
		sb.WriteString("[" + short + "] ")
	}
	sb.WriteString(fmt.Sprintf("#%d %s: %s", n.ID, n.Kind, n.SourceText()))
	if n.IsMarked() {
		sb.WriteString(" *")
	}
	sb.WriteString("\n")
	for _, e := range n.ControlChildren() {
		dumpNode(sb, g, g.Node(e.Node), e.Label, depth+1)
	}
}

// DOT renders a description as a Graphviz digraph. Nodes sharing a source
// line share a rank, slice members are filled, and data edges are dashed.
func DOT(d *Description) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("digraph %s {\n", quoteDOT(d.Function)))
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, fontname=\"monospace\"];\n")
	sb.WriteString("\n")

	for _, n := range d.Nodes {
		attrs := fmt.Sprintf("label=%s", quoteDOT(fmt.Sprintf("#%d %s: %s", n.ID, n.Kind, n.Text)))
		if n.InSlice {
			attrs += ", style=filled, fillcolor=\"#ffd93d\""
		}
		sb.WriteString(fmt.Sprintf("    n%d [%s];\n", n.ID, attrs))
	}
	sb.WriteString("\n")

	for _, r := range d.Ranks {
		if len(r.Nodes) < 2 {
			continue
		}
		ids := make([]string, len(r.Nodes))
		for i, id := range r.Nodes {
			ids[i] = fmt.Sprintf("n%d", id)
		}
		sb.WriteString(fmt.Sprintf("    { rank=same; %s; }\n", strings.Join(ids, "; ")))
	}

	for _, e := range d.Edges {
		switch {
		case e.Class == ClassData:
			sb.WriteString(fmt.Sprintf("    n%d -> n%d [style=dashed, color=\"#10ac84\"];\n", e.From, e.To))
		case e.Label == pdg.True.String():
			sb.WriteString(fmt.Sprintf("    n%d -> n%d [label=\"T\"];\n", e.From, e.To))
		case e.Label == pdg.False.String():
			sb.WriteString(fmt.Sprintf("    n%d -> n%d [label=\"F\"];\n", e.From, e.To))
		default:
			sb.WriteString(fmt.Sprintf("    n%d -> n%d;\n", e.From, e.To))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func quoteDOT(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
	)
	return "\"" + replacer.Replace(s) + "\""
}

// Decode reads a description encoded as JSON or msgpack.
func Decode(r io.Reader, format Format) (*Description, error) {
	var d Description
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return nil, fmt.Errorf("decoding json description: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&d); err != nil {
			return nil, fmt.Errorf("decoding msgpack description: %w", err)
		}
	default:
		return nil, fmt.Errorf("format %q cannot be decoded", format)
	}
	return &d, nil
}

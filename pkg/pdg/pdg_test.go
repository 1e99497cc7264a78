package pdg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

func stmtAt(offset int, text string) *frontend.Stmt {
	return &frontend.Stmt{Pos: frontend.Pos{Line: offset/10 + 1, Column: 1, Offset: offset}, Text: text}
}

// sample builds:
//
//	0 Compound
//	  1 Assign   x = 1
//	  2 Branch   if (x)
//	    T 3 Assign y = x
//	  4 Other    print(y)
//
// with data edges 1->2, 1->3, 3->4.
func sample(t *testing.T) *Graph {
	t.Helper()
	g := New("f")
	x := frontend.Var{Name: "x", Decl: 10}
	y := frontend.Var{Name: "y", Decl: 30}

	root := g.NewNode(KindCompound, stmtAt(0, "{}"), nil, nil)
	a := g.NewNode(KindAssign, stmtAt(10, "x = 1;"), []frontend.Var{x}, nil)
	b := g.NewNode(KindBranch, &frontend.Stmt{Pos: frontend.Pos{Line: 3, Offset: 20}, Text: "if (x) y = x;", Header: "if (x)"}, nil, []frontend.Var{x})
	c := g.NewNode(KindAssign, stmtAt(30, "y = x;"), []frontend.Var{y}, []frontend.Var{x})
	d := g.NewNode(KindOther, stmtAt(40, "print(y);"), nil, []frontend.Var{y})

	require.NoError(t, g.SetRoot(root.ID))
	require.NoError(t, g.AddControlChild(root.ID, a.ID, Unconditional))
	require.NoError(t, g.AddControlChild(root.ID, b.ID, Unconditional))
	require.NoError(t, g.AddControlChild(b.ID, c.ID, True))
	require.NoError(t, g.AddControlChild(root.ID, d.ID, Unconditional))
	require.NoError(t, g.AddDataEdge(a.ID, b.ID))
	require.NoError(t, g.AddDataEdge(a.ID, c.ID))
	require.NoError(t, g.AddDataEdge(c.ID, d.ID))
	return g
}

func TestKindTables(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAssign, "Assign"},
		{KindBranch, "Branch"},
		{KindLoop, "Loop"},
		{KindCompound, "Compound"},
		{KindOther, "Statement"},
		{Kind(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}

	g := sample(t)
	assert.Equal(t, "if (x)", g.Node(2).SourceText())
	assert.Equal(t, "x = 1;", g.Node(1).SourceText())
	assert.Equal(t, "{...}", g.Node(0).SourceText())
	assert.Equal(t, KindLoop, KindOf(frontend.KindLoop))
	assert.Equal(t, KindOther, KindOf(frontend.KindOther))
}

func TestIDsArePerGraph(t *testing.T) {
	g1 := New("a")
	g2 := New("b")
	for i := 0; i < 5; i++ {
		n := g1.NewNode(KindOther, stmtAt(i, ""), nil, nil)
		if n.ID != NodeID(i) {
			t.Errorf("g1 node %d has id %d", i, n.ID)
		}
	}
	n := g2.NewNode(KindOther, stmtAt(0, ""), nil, nil)
	assert.Equal(t, NodeID(0), n.ID)
	assert.Equal(t, 5, g1.Len())
	assert.Nil(t, g1.Node(5))
	assert.Nil(t, g1.Node(-1))
}

func TestEdgeSymmetry(t *testing.T) {
	g := sample(t)
	require.NoError(t, g.Verify())

	for _, n := range g.Nodes() {
		for _, e := range n.ControlChildren() {
			assert.Contains(t, g.Node(e.Node).ControlParents(), ControlEdge{Node: n.ID, Label: e.Label})
		}
		for _, s := range n.DataSuccessors() {
			assert.Contains(t, g.Node(s).DataPredecessors(), n.ID)
		}
	}

	// Re-adding edges changes nothing.
	require.NoError(t, g.AddDataEdge(1, 3))
	require.NoError(t, g.AddControlChild(2, 3, True))
	assert.Equal(t, []NodeID{2, 3}, g.Node(1).DataSuccessors())
	assert.Len(t, g.Node(3).ControlParents(), 1)

	control, data := g.EdgeCount()
	assert.Equal(t, 4, control)
	assert.Equal(t, 3, data)
}

func TestEdgeToMissingNode(t *testing.T) {
	g := sample(t)
	assert.ErrorIs(t, g.AddDataEdge(1, 99), ErrInvariant)
	assert.ErrorIs(t, g.AddControlChild(99, 1, Unconditional), ErrInvariant)
	assert.ErrorIs(t, g.SetRoot(99), ErrInvariant)
}

func TestControlChildrenOrderedBySource(t *testing.T) {
	g := New("f")
	root := g.NewNode(KindCompound, stmtAt(0, ""), nil, nil)
	late := g.NewNode(KindOther, stmtAt(50, ""), nil, nil)
	early := g.NewNode(KindOther, stmtAt(10, ""), nil, nil)
	tie := g.NewNode(KindOther, stmtAt(10, ""), nil, nil)
	require.NoError(t, g.SetRoot(root.ID))
	require.NoError(t, g.AddControlChild(root.ID, late.ID, Unconditional))
	require.NoError(t, g.AddControlChild(root.ID, tie.ID, Unconditional))
	require.NoError(t, g.AddControlChild(root.ID, early.ID, Unconditional))

	var order []NodeID
	for _, e := range root.ControlChildren() {
		order = append(order, e.Node)
	}
	assert.Equal(t, []NodeID{early.ID, tie.ID, late.ID}, order)
}

func TestSlice(t *testing.T) {
	tests := []struct {
		name string
		seed NodeID
		dir  Direction
		want []NodeID
	}{
		{"backward from print", 4, Backward, []NodeID{0, 1, 2, 3, 4}},
		{"backward from definition", 1, Backward, []NodeID{0, 1}},
		{"forward from definition", 1, Forward, []NodeID{1, 2, 3, 4}},
		{"forward from branch", 2, Forward, []NodeID{2, 3, 4}},
		{"forward from leaf", 4, Forward, []NodeID{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sample(t)
			got := g.Slice(tt.seed, tt.dir)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, g.Marked())
			for _, id := range tt.want {
				assert.True(t, g.Node(id).IsMarked())
			}
		})
	}
}

func TestSliceUnknownSeed(t *testing.T) {
	g := sample(t)
	assert.Nil(t, g.Slice(99, Backward))
	assert.Empty(t, g.Marked())
}

func TestSliceTerminatesOnCycles(t *testing.T) {
	g := New("loop")
	root := g.NewNode(KindCompound, stmtAt(0, ""), nil, nil)
	loop := g.NewNode(KindLoop, stmtAt(10, "while (i < n)"), nil, nil)
	body := g.NewNode(KindAssign, stmtAt(20, "i = i + 1;"), nil, nil)
	require.NoError(t, g.SetRoot(root.ID))
	require.NoError(t, g.AddControlChild(root.ID, loop.ID, Unconditional))
	require.NoError(t, g.AddControlChild(loop.ID, body.ID, Unconditional))
	require.NoError(t, g.AddDataEdge(body.ID, body.ID))
	require.NoError(t, g.AddDataEdge(body.ID, loop.ID))
	require.NoError(t, g.AddDataEdge(loop.ID, body.ID))
	require.NoError(t, g.Verify())

	assert.Equal(t, []NodeID{0, 1, 2}, g.Slice(body.ID, Backward))
	g.ResetAll()
	assert.Equal(t, []NodeID{1, 2}, g.Slice(loop.ID, Forward))
}

func TestResetIsIdempotent(t *testing.T) {
	g := sample(t)
	g.Slice(4, Backward)
	require.NotEmpty(t, g.Marked())

	g.Reset(g.Root().ID)
	assert.Empty(t, g.Marked())
	g.Reset(g.Root().ID)
	assert.Empty(t, g.Marked())

	g.Slice(1, Forward)
	g.ResetAll()
	assert.Empty(t, g.Marked())

	// A second slice after reset matches a fresh one.
	fresh := sample(t)
	assert.Equal(t, fresh.Slice(3, Backward), g.Slice(3, Backward))
}

func TestVerifyDetectsViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Graph)
	}{
		{"asymmetric data edge", func(g *Graph) { g.nodes[3].preds = nil }},
		{"asymmetric control edge", func(g *Graph) { g.nodes[1].parents = nil }},
		{"unconditional branch child", func(g *Graph) {
			g.nodes[2].children[0].Label = Unconditional
			g.nodes[3].parents[0].Label = Unconditional
		}},
		{"labelled compound child", func(g *Graph) {
			g.nodes[0].children[0].Label = True
			g.nodes[1].parents[0].Label = True
		}},
		{"id mismatch", func(g *Graph) { g.nodes[4].ID = 7 }},
		{"no root", func(g *Graph) { g.root = -1 }},
		{"second parent", func(g *Graph) {
			g.nodes[2].children = append(g.nodes[2].children, ControlEdge{Node: 4, Label: False})
			g.nodes[4].parents = append(g.nodes[4].parents, ControlEdge{Node: 2, Label: False})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sample(t)
			tt.mutate(g)
			err := g.Verify()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvariant))
		})
	}
}

func TestDependencies(t *testing.T) {
	g := sample(t)
	deps := g.Dependencies(3)
	assert.Equal(t, []ControlEdge{{Node: 2, Label: True}}, deps.ControlIn)
	assert.Empty(t, deps.ControlOut)
	assert.Equal(t, []NodeID{1}, deps.DataIn)
	assert.Equal(t, []NodeID{4}, deps.DataOut)

	assert.Equal(t, DependencyInfo{}, g.Dependencies(99))
	assert.Equal(t, []string{"x", "y"}, g.Variables())
	assert.Equal(t, []NodeID{1, 2, 3}, g.NodesReferencing("x"))
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": Backward, "backward": Backward, "Forward": Forward, "f": Forward} {
		got, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

package dfg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/pkg/cdg"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend/csrc"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

func analyze(t *testing.T, body string, opts Options) *pdg.Graph {
	t.Helper()
	code := "int main() {\n" + body + "\n}\n"
	unit, err := csrc.New(frontend.LanguageC).Parse(context.Background(), "test.c", []byte(code))
	require.NoError(t, err)
	fn, err := unit.Function("main")
	require.NoError(t, err)
	res, err := cdg.Build(fn)
	require.NoError(t, err)
	_, err = Analyze(res.Graph, opts)
	require.NoError(t, err)
	require.NoError(t, res.Graph.Verify())
	return res.Graph
}

// node finds the node whose display text is text.
func node(t *testing.T, g *pdg.Graph, text string) pdg.NodeID {
	t.Helper()
	for _, n := range g.Nodes() {
		if n.SourceText() == text {
			return n.ID
		}
	}
	t.Fatalf("no node with text %q", text)
	return -1
}

// preds returns the display texts of a node's data predecessors.
func preds(g *pdg.Graph, id pdg.NodeID) []string {
	var out []string
	for _, p := range g.Node(id).DataPredecessors() {
		out = append(out, g.Node(p).SourceText())
	}
	return out
}

func TestStraightLine(t *testing.T) {
	g := analyze(t, `
    int x = 1;
    int y = x + 1;
    int z = y;
    x = 5;
    z = x;`, DefaultOptions())

	assert.Equal(t, []string{"int x = 1;"}, preds(g, node(t, g, "int y = x + 1;")))
	assert.Equal(t, []string{"int y = x + 1;"}, preds(g, node(t, g, "int z = y;")))
	assert.Equal(t, []string{"x = 5;"}, preds(g, node(t, g, "z = x;")))
}

func TestBranchUnion(t *testing.T) {
	body := `
    int x = 1;
    if (c) {
        x = 2;
    } else {
        x = 3;
    }
    int y = x;
    x = 4;
    int z = x;`

	tests := []struct {
		name string
		kill bool
		want []string
	}{
		{"arm definitions add to the entry", false, []string{"int x = 1;", "x = 2;", "x = 3;"}},
		{"arm definitions replace within the arm", true, []string{"x = 2;", "x = 3;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.KillInBranches = tt.kill
			g := analyze(t, body, opts)
			assert.Equal(t, tt.want, preds(g, node(t, g, "int y = x;")))
			// An unconditional definition after the join replaces them all.
			assert.Equal(t, []string{"x = 4;"}, preds(g, node(t, g, "int z = x;")))
		})
	}
}

func TestMissingElseKeepsEntry(t *testing.T) {
	g := analyze(t, `
    int x = 1;
    if (c)
        x = 2;
    int y = x;`, DefaultOptions())

	assert.Equal(t, []string{"int x = 1;", "x = 2;"}, preds(g, node(t, g, "int y = x;")))
}

func TestBranchIrrelevance(t *testing.T) {
	g := analyze(t, `
    int x = 1;
    int y = 0;
    if (c) {
        y = 2;
    }
    int z = x;`, DefaultOptions())

	z := node(t, g, "int z = x;")
	assert.Equal(t, []string{"int x = 1;"}, preds(g, z))

	g.Slice(z, pdg.Backward)
	assert.False(t, g.Node(node(t, g, "if (c)")).IsMarked())
	assert.False(t, g.Node(node(t, g, "y = 2;")).IsMarked())
}

func TestKillInBranches(t *testing.T) {
	body := `
    int x = 1;
    if (c) {
        x = 2;
        int y = x;
    }
    int z = x;`

	tests := []struct {
		name  string
		kill  bool
		wantY []string
	}{
		{"weak updates by default", false, []string{"int x = 1;", "x = 2;"}},
		{"strong updates when enabled", true, []string{"x = 2;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.KillInBranches = tt.kill
			g := analyze(t, body, opts)
			assert.Equal(t, tt.wantY, preds(g, node(t, g, "int y = x;")))
			// The join keeps both paths either way.
			assert.Equal(t, []string{"int x = 1;", "x = 2;"}, preds(g, node(t, g, "int z = x;")))
		})
	}
}

func TestLoopCarriedDependence(t *testing.T) {
	g := analyze(t, `
    int i = 0;
    while (i < n) {
        i = i + 1;
    }
    int r = i;`, DefaultOptions())

	incr := node(t, g, "i = i + 1;")
	assert.Equal(t, []string{"int i = 0;", "i = i + 1;"}, preds(g, node(t, g, "while (i < n)")))
	assert.Equal(t, []string{"int i = 0;", "i = i + 1;"}, preds(g, incr))
	assert.Contains(t, g.Node(incr).DataSuccessors(), incr, "self edge through the back edge")
	assert.Equal(t, []string{"int i = 0;", "i = i + 1;"}, preds(g, node(t, g, "int r = i;")))
}

func TestLoopSeesDefinitionsFromBodyEnd(t *testing.T) {
	g := analyze(t, `
    int a = 0;
    int b = 0;
    for (int k = 0; k < 3; k++) {
        b = a;
        a = k;
    }`, DefaultOptions())

	assert.Equal(t, []string{"int a = 0;", "a = k;"}, preds(g, node(t, g, "b = a;")))

	loop := node(t, g, "for (int k = 0; k < 3; k++)")
	assert.Contains(t, g.Node(loop).DataPredecessors(), loop)
}

func TestNestedLoops(t *testing.T) {
	body := `
    int s = 0;
    for (int i = 0; i < n; i++) {
        for (int j = 0; j < n; j++) {
            s = s + j;
        }
    }
    int out = s;`

	g := analyze(t, body, DefaultOptions())
	assert.Equal(t, []string{"int s = 0;", "s = s + j;"}, preds(g, node(t, g, "int out = s;")))

	code := "int main() {\n" + body + "\n}\n"
	unit, err := csrc.New(frontend.LanguageC).Parse(context.Background(), "test.c", []byte(code))
	require.NoError(t, err)
	fn, err := unit.Function("main")
	require.NoError(t, err)
	res, err := cdg.Build(fn)
	require.NoError(t, err)

	stats, err := Analyze(res.Graph, Options{MaxLoopDepth: 1})
	assert.ErrorIs(t, err, pdg.ErrInvariant)
	assert.Equal(t, 1, stats.MaxLoopNesting)
}

func TestStats(t *testing.T) {
	code := "int main() {\n int i = 0;\n while (i < 3) i++;\n}\n"
	unit, err := csrc.New(frontend.LanguageC).Parse(context.Background(), "test.c", []byte(code))
	require.NoError(t, err)
	fn, err := unit.Function("main")
	require.NoError(t, err)
	res, err := cdg.Build(fn)
	require.NoError(t, err)

	stats, err := Analyze(res.Graph, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loops)
	assert.Equal(t, 1, stats.MaxLoopNesting)
	assert.GreaterOrEqual(t, stats.MaxIterations, 2)
}

func TestDefSetOperations(t *testing.T) {
	s := defSet{1, 3}
	assert.Equal(t, defSet{1, 2, 3}, s.with(2))
	assert.Equal(t, defSet{1, 3}, s, "with must not modify the receiver")
	assert.Equal(t, defSet{1, 3}, s.with(3))
	assert.Equal(t, defSet{0, 1, 3, 4}, s.union(defSet{0, 3, 4}))
	assert.True(t, s.equal(defSet{1, 3}))
	assert.False(t, s.equal(defSet{1}))

	a := reaching{{Name: "x", Decl: 1}: defSet{1}}
	b := reaching{{Name: "x", Decl: 1}: defSet{2}, {Name: "y", Decl: 5}: defSet{3}}
	u := a.union(b)
	assert.Equal(t, defSet{1, 2}, u[frontend.Var{Name: "x", Decl: 1}])
	assert.Equal(t, defSet{1}, a[frontend.Var{Name: "x", Decl: 1}])
	assert.False(t, u.equal(a))
	assert.True(t, u.equal(u.clone()))
}

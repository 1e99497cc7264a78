package cdg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend/csrc"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

func build(t *testing.T, code string) (*frontend.Function, *Result) {
	t.Helper()
	unit, err := csrc.New(frontend.LanguageC).Parse(context.Background(), "test.c", []byte(code))
	require.NoError(t, err)
	fn, err := unit.Function("main")
	require.NoError(t, err)
	res, err := Build(fn)
	require.NoError(t, err)
	require.NoError(t, res.Graph.Verify())
	return fn, res
}

func TestBuildShape(t *testing.T) {
	code := `
int main() {
    int x = 1;
    if (x) {
        x = 2;
    } else {
        x = 3;
    }
    while (x < 10)
        x++;
    return x;
}
`
	fn, res := build(t, code)
	g := res.Graph
	assert.Equal(t, "main", g.Function)

	root := g.Root()
	require.NotNil(t, root)
	assert.Equal(t, pdg.KindCompound, root.Kind)
	assert.Equal(t, pdg.NodeID(0), root.ID)

	children := root.ControlChildren()
	require.Len(t, children, 4)
	for _, e := range children {
		assert.Equal(t, pdg.Unconditional, e.Label)
	}

	branch := g.Node(children[1].Node)
	assert.Equal(t, pdg.KindBranch, branch.Kind)
	arms := branch.ControlChildren()
	require.Len(t, arms, 2)
	assert.Equal(t, pdg.True, arms[0].Label)
	assert.Equal(t, pdg.False, arms[1].Label)

	loop := g.Node(children[2].Node)
	assert.Equal(t, pdg.KindLoop, loop.Kind)
	body := loop.ControlChildren()
	require.Len(t, body, 1)
	assert.Equal(t, pdg.Unconditional, body[0].Label)
	assert.Equal(t, "x++;", g.Node(body[0].Node).SourceText())

	stmt, ok := fn.Locate(10, 9)
	require.True(t, ok)
	id, ok := res.NodeFor(stmt)
	require.True(t, ok)
	assert.Equal(t, body[0].Node, id)
}

func TestIDsFollowPreorder(t *testing.T) {
	code := `
int main() {
    int a = 0;
    if (a) { a = 1; }
    a = 2;
}
`
	_, res := build(t, code)
	var kinds []pdg.Kind
	for _, n := range res.Graph.Nodes() {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []pdg.Kind{
		pdg.KindCompound, pdg.KindAssign, pdg.KindBranch, pdg.KindCompound, pdg.KindAssign, pdg.KindAssign,
	}, kinds)
}

func TestBuildRejectsMissingBody(t *testing.T) {
	_, err := Build(&frontend.Function{Name: "f"})
	assert.ErrorIs(t, err, pdg.ErrInvariant)
	_, err = Build(nil)
	assert.ErrorIs(t, err, pdg.ErrInvariant)
}

package neo4jexport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/pkg/render"
)

type call struct {
	cypher string
	params map[string]any
}

type recorder struct {
	calls  []call
	failOn string
}

func (r *recorder) run(_ context.Context, cypher string, params map[string]any) error {
	r.calls = append(r.calls, call{cypher: cypher, params: params})
	if r.failOn != "" && strings.Contains(cypher, r.failOn) {
		return errors.New("boom")
	}
	return nil
}

func description() *render.Description {
	return &render.Description{
		Function: "main",
		Nodes: []render.NodeDesc{
			{ID: 0, Kind: "Compound", Text: "{...}", Line: 1, Column: 12},
			{ID: 1, Kind: "Assign", Text: "int x = 1;", Line: 2, Column: 5, InSlice: true},
			{ID: 2, Kind: "Branch", Text: "if (x)", Line: 3, Column: 5, InSlice: true},
		},
		Edges: []render.EdgeDesc{
			{From: 0, To: 1, Class: render.ClassControl, Label: "unconditional"},
			{From: 0, To: 2, Class: render.ClassControl, Label: "unconditional"},
			{From: 1, To: 2, Class: render.ClassData},
		},
	}
}

func TestNodeRows(t *testing.T) {
	rows := nodeRows("a.c", description())
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{
		"key":      "a.c:main#1",
		"source":   "a.c",
		"function": "main",
		"id":       1,
		"kind":     "Assign",
		"text":     "int x = 1;",
		"line":     2,
		"column":   5,
		"in_slice": true,
	}, rows[1])
}

func TestEdgeRows(t *testing.T) {
	control, data := edgeRows("a.c", description())
	require.Len(t, control, 2)
	require.Len(t, data, 1)
	assert.Equal(t, map[string]any{"from": "a.c:main#0", "to": "a.c:main#2", "label": "unconditional"}, control[1])
	assert.Equal(t, map[string]any{"from": "a.c:main#1", "to": "a.c:main#2"}, data[0])
}

func TestBatches(t *testing.T) {
	rows := make([]map[string]any, 5)
	tests := []struct {
		size int
		want []int
	}{
		{size: 2, want: []int{2, 2, 1}},
		{size: 5, want: []int{5}},
		{size: 10, want: []int{5}},
	}
	for _, tt := range tests {
		var got []int
		for _, b := range batches(rows, tt.size) {
			got = append(got, len(b))
		}
		assert.Equal(t, tt.want, got, "size %d", tt.size)
	}
	assert.Empty(t, batches(nil, 3))
}

func TestLoad(t *testing.T) {
	rec := &recorder{}
	l := newLoader(rec.run, 2)

	require.NoError(t, l.Load(context.Background(), "a.c", description()))

	// clean, two node batches, one control batch, one data batch
	require.Len(t, rec.calls, 5)
	assert.Contains(t, rec.calls[0].cypher, "DETACH DELETE")
	assert.Equal(t, map[string]any{"source": "a.c", "function": "main"}, rec.calls[0].params)
	assert.Contains(t, rec.calls[1].cypher, "MERGE (n:PDGNode")
	assert.Len(t, rec.calls[1].params["batch"], 2)
	assert.Len(t, rec.calls[2].params["batch"], 1)
	assert.Contains(t, rec.calls[3].cypher, ":CONTROL")
	assert.Contains(t, rec.calls[4].cypher, ":DATA")
}

func TestLoadFailure(t *testing.T) {
	rec := &recorder{failOn: ":CONTROL"}
	l := newLoader(rec.run, 0)

	err := l.Load(context.Background(), "a.c", description())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading control edges")
	assert.Len(t, rec.calls, 3, "stops at the failing batch")
}

func TestCreateIndexes(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, newLoader(rec.run, 0).CreateIndexes(context.Background()))
	require.Len(t, rec.calls, 2)
	for _, c := range rec.calls {
		assert.Contains(t, c.cypher, "IF NOT EXISTS")
	}
	assert.NoError(t, newLoader(rec.run, 0).Close(context.Background()))
}

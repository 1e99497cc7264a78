package server

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/internal/log"
	"github.com/sunxfancy/cpp-slicer/pkg/render"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

const program = `int main() {
    int a = 1;
    int b = a + 1;
    int c = 7;
    print(b);
}
`

func newServer(t *testing.T, format render.Format) (*Server, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.c")
	require.NoError(t, os.WriteFile(path, []byte(program), 0o644))

	var logs bytes.Buffer
	s := New(slicer.New(slicer.DefaultOptions()), Options{
		Path:   path,
		Format: format,
		Logger: log.New(log.LoggerConfig{Level: log.DebugLevel, Output: &logs}),
	})
	return s, &logs
}

func serve(t *testing.T, s *Server, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))
	return out.String()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{}},
		{"   ", Command{}},
		{"exit", Command{Name: "exit", Args: []string{}}},
		{"SLICE main 3  4", Command{Name: "slice", Args: []string{"main", "3", "4"}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommand(tt.line), tt.line)
	}
}

func TestServeSlice(t *testing.T) {
	s, _ := newServer(t, render.FormatDump)
	out := serve(t, s, "slice main 5 5\n")

	assert.Contains(t, out, "Slicing main at 5:5\n")
	assert.Contains(t, out, "  #1 Assign: int a = 1; *\n")
	assert.Contains(t, out, "  #2 Assign: int b = a + 1; *\n")
	assert.Contains(t, out, "  #3 Assign: int c = 7;\n")
	assert.Contains(t, out, "  #4 Statement: print(b); *\n")
}

func TestServeForwardSlice(t *testing.T) {
	s, _ := newServer(t, render.FormatDump)
	out := serve(t, s, "slice main 4 5 forward\n")

	assert.Contains(t, out, "  #3 Assign: int c = 7; *\n")
	assert.Contains(t, out, "  #1 Assign: int a = 1;\n")
}

func TestServeKeepsGoing(t *testing.T) {
	s, logs := newServer(t, render.FormatDump)
	input := strings.Join([]string{
		"frobnicate",
		"slice main 100 1",
		"slice main x 1",
		"slice nothere 2 5",
		"",
		"slice main 2 5",
		"exit",
		"slice main 5 5",
	}, "\n")
	out := serve(t, s, input)

	assert.Contains(t, out, "Unknown command: frobnicate\n")
	assert.Contains(t, out, "No statement at 100:1 in main; slice is empty\n")
	assert.Contains(t, out, "error: usage: slice <function> <line> <column> [backward|forward]: invalid line \"x\"\n")
	assert.Contains(t, out, "error: ")
	assert.Contains(t, out, "function not found")
	assert.Contains(t, out, "Slicing main at 2:5\n")
	assert.NotContains(t, out, "Slicing main at 5:5", "nothing runs after exit")

	assert.Contains(t, logs.String(), "request_id=")
	assert.Contains(t, logs.String(), "session ended")
}

func TestServeStats(t *testing.T) {
	s, _ := newServer(t, render.FormatDump)
	out := serve(t, s, "stats\ndump main\nvars main\nstats\n")

	assert.Contains(t, out, "cache: 0 units, 0 hits, 0 misses, 0 stale, hit rate 0.0%\n")
	assert.Contains(t, out, "cache: 1 units, 1 hits, 1 misses, 0 stale, hit rate 50.0%\n")
	assert.Contains(t, out, "  "+s.path+"\n")
}

func TestServeSkipsOversizedLine(t *testing.T) {
	s, logs := newServer(t, render.FormatDump)
	input := strings.Repeat("x", 2*maxLineSize) + "\nslice main 5 5\nexit\n"
	out := serve(t, s, input)

	assert.Contains(t, out, "error: line too long\n")
	assert.Contains(t, out, "Slicing main at 5:5\n")
	assert.Contains(t, logs.String(), "request rejected")
}

func TestReadLine(t *testing.T) {
	long := strings.Repeat("y", maxLineSize+10)
	r := bufio.NewReaderSize(strings.NewReader("a\r\n"+long+"\nb\n"+long), 16)

	tests := []struct {
		want    string
		wantErr error
	}{
		{want: "a"},
		{wantErr: errLineTooLong},
		{want: "b"},
		{wantErr: errLineTooLong},
		{wantErr: io.EOF},
	}
	for i, tt := range tests {
		got, err := readLine(r)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "line %d", i)
			continue
		}
		require.NoError(t, err, "line %d", i)
		assert.Equal(t, tt.want, got, "line %d", i)
	}
}

func TestServeEndOfInput(t *testing.T) {
	s, _ := newServer(t, render.FormatDump)
	out := serve(t, s, "help")
	assert.Contains(t, out, "slice <function> <line> <column>")
}

func TestServeRecoversPanics(t *testing.T) {
	s, logs := newServer(t, render.FormatDump)
	s.handlers["boom"] = func(context.Context, Command, io.Writer) (bool, error) {
		panic("corrupted graph")
	}

	out := serve(t, s, "boom\nslice main 5 5\n")
	assert.Contains(t, out, "internal error (request ")
	assert.Contains(t, out, "panic while handling boom: corrupted graph")
	assert.Contains(t, out, "Slicing main at 5:5")
	assert.Contains(t, logs.String(), "category=internal")
}

func TestServeDumpDepsVars(t *testing.T) {
	s, _ := newServer(t, render.FormatDump)
	out := serve(t, s, "dump main\ndeps main 3 5\ndeps main 90 1\nvars main\n")

	assert.Contains(t, out, "#0 Compound: {...}\n")
	assert.NotContains(t, out, " *\n", "dump marks nothing")
	assert.Contains(t, out, "#2 Assign: int b = a + 1;\n"+
		"  control in:  #0 [unconditional]\n"+
		"  control out: -\n"+
		"  data in:     #1\n"+
		"  data out:    #4\n")
	assert.Contains(t, out, "No statement at 90:1 in main\n")
	assert.Contains(t, out, "a: #1 #2\n")
	assert.Contains(t, out, "b: #2 #4\n")
	assert.Contains(t, out, "c: #3\n")
}

func TestServeFormats(t *testing.T) {
	s, _ := newServer(t, render.FormatDOT)
	out := serve(t, s, "slice main 5 5\n")
	assert.Contains(t, out, "digraph \"main\" {")
	assert.Contains(t, out, "fillcolor")
}

func TestServeCancelled(t *testing.T) {
	s, _ := newServer(t, render.FormatDump)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Serve(ctx, strings.NewReader("slice main 5 5\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

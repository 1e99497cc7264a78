package csrc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

func parse(t *testing.T, lang frontend.Language, code string) *frontend.Unit {
	t.Helper()
	unit, err := New(lang).Parse(context.Background(), "test."+string(lang), []byte(code))
	require.NoError(t, err)
	return unit
}

func names(vars []frontend.Var) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

// lineCol returns the 1-based position of the first occurrence of needle.
func lineCol(code, needle string) (int, int) {
	idx := strings.Index(code, needle)
	before := code[:idx]
	line := strings.Count(before, "\n") + 1
	return line, idx - strings.LastIndex(before, "\n")
}

func TestParseFunctions(t *testing.T) {
	code := `
int add(int a, int b) {
    return a + b;
}

static char *name(void) {
    return "x";
}

int main() {
    return add(1, 2);
}
`
	unit := parse(t, frontend.LanguageC, code)
	assert.Equal(t, []string{"add", "name", "main"}, unit.FunctionNames())

	add, err := unit.Function("add")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(add.Params))
	assert.Equal(t, strings.Index(code, "a,"), add.Params[0].Decl)

	_, err = unit.Function("missing")
	assert.ErrorIs(t, err, frontend.ErrFunctionNotFound)
}

func TestParseError(t *testing.T) {
	_, err := New(frontend.LanguageC).Parse(context.Background(), "bad.c", []byte("int main( { x = ; }"))
	assert.ErrorIs(t, err, frontend.ErrParse)
}

func TestClassification(t *testing.T) {
	code := `
int main() {
    int x = 1;
    int y;
    x = x + 1;
    if (x > 0) {
        y = x;
    } else
        y = 0;
    printf("%d", y);
    return y;
}
`
	unit := parse(t, frontend.LanguageC, code)
	fn, err := unit.Function("main")
	require.NoError(t, err)

	body := fn.Body
	require.Equal(t, frontend.KindCompound, body.Kind)
	require.Len(t, body.Stmts, 6)

	xDecl := strings.Index(code, "x = 1")
	yDecl := strings.Index(code, "y;")

	decl := body.Stmts[0]
	assert.Equal(t, frontend.KindAssign, decl.Kind)
	assert.Equal(t, []frontend.Var{{Name: "x", Decl: xDecl}}, decl.Defines)
	assert.Empty(t, decl.Uses)
	assert.Equal(t, "int x = 1;", decl.Text)

	bare := body.Stmts[1]
	assert.Equal(t, frontend.KindOther, bare.Kind)
	assert.Empty(t, bare.Defines)

	incr := body.Stmts[2]
	assert.Equal(t, frontend.KindAssign, incr.Kind)
	assert.Equal(t, []frontend.Var{{Name: "x", Decl: xDecl}}, incr.Defines)
	assert.Equal(t, []frontend.Var{{Name: "x", Decl: xDecl}}, incr.Uses)

	branch := body.Stmts[3]
	assert.Equal(t, frontend.KindBranch, branch.Kind)
	assert.Equal(t, "if (x > 0)", branch.Header)
	assert.Equal(t, []string{"x"}, names(branch.Uses))
	require.NotNil(t, branch.Then)
	require.NotNil(t, branch.Else)
	assert.Equal(t, frontend.KindCompound, branch.Then.Kind)
	require.Len(t, branch.Then.Stmts, 1)
	assert.Equal(t, []frontend.Var{{Name: "y", Decl: yDecl}}, branch.Then.Stmts[0].Defines)
	assert.Equal(t, frontend.KindAssign, branch.Else.Kind)
	assert.Equal(t, "y = 0;", branch.Else.Text)

	call := body.Stmts[4]
	assert.Equal(t, frontend.KindOther, call.Kind)
	assert.Equal(t, []string{"y"}, names(call.Uses))

	ret := body.Stmts[5]
	assert.Equal(t, frontend.KindOther, ret.Kind)
	assert.Equal(t, []string{"y"}, names(ret.Uses))
}

func TestLoops(t *testing.T) {
	code := `
int sum(int n) {
    int s = 0;
    for (int i = 0; i < n; i++)
        s += i;
    while (n > 0) n--;
    do {
        s = s * 2;
    } while (s < 100);
    return s;
}
`
	unit := parse(t, frontend.LanguageC, code)
	fn, err := unit.Function("sum")
	require.NoError(t, err)
	require.Len(t, fn.Body.Stmts, 5)

	forLoop := fn.Body.Stmts[1]
	assert.Equal(t, frontend.KindLoop, forLoop.Kind)
	assert.Equal(t, "for (int i = 0; i < n; i++)", forLoop.Header)
	assert.Equal(t, []string{"i"}, names(forLoop.Defines))
	assert.Equal(t, []string{"i", "n"}, names(forLoop.Uses))
	require.NotNil(t, forLoop.Body)
	assert.Equal(t, frontend.KindAssign, forLoop.Body.Kind)
	assert.Equal(t, []string{"s"}, names(forLoop.Body.Defines))
	assert.Equal(t, []string{"i", "s"}, names(forLoop.Body.Uses))

	whileLoop := fn.Body.Stmts[2]
	assert.Equal(t, frontend.KindLoop, whileLoop.Kind)
	assert.Equal(t, []string{"n"}, names(whileLoop.Uses))
	assert.Equal(t, []string{"n"}, names(whileLoop.Body.Defines))

	doLoop := fn.Body.Stmts[3]
	assert.Equal(t, frontend.KindLoop, doLoop.Kind)
	assert.Equal(t, []string{"s"}, names(doLoop.Uses))
	assert.Equal(t, frontend.KindCompound, doLoop.Body.Kind)
}

func TestSwitch(t *testing.T) {
	code := `
int pick(int x) {
    int y = 0;
    switch (x) {
    case 1:
        y = 10;
        break;
    default:
        y = 20;
    }
    return y;
}
`
	unit := parse(t, frontend.LanguageC, code)
	fn, err := unit.Function("pick")
	require.NoError(t, err)

	sw := fn.Body.Stmts[1]
	assert.Equal(t, frontend.KindBranch, sw.Kind)
	assert.Equal(t, []string{"x"}, names(sw.Uses))
	require.NotNil(t, sw.Then)
	assert.Nil(t, sw.Else)
	require.Len(t, sw.Then.Stmts, 2)

	first := sw.Then.Stmts[0]
	assert.Equal(t, frontend.KindCompound, first.Kind)
	require.Len(t, first.Stmts, 2)
	assert.Equal(t, "y = 10;", first.Stmts[0].Text)
	assert.Equal(t, frontend.KindOther, first.Stmts[1].Kind)
}

func TestScopesAndWeakUpdates(t *testing.T) {
	code := `
int f(int a) {
    int x = a;
    int buf[4];
    {
        int x = 2;
        a = x;
    }
    buf[a] = x;
    return x;
}
`
	unit := parse(t, frontend.LanguageC, code)
	fn, err := unit.Function("f")
	require.NoError(t, err)

	outer := strings.Index(code, "x = a")
	inner := strings.Index(code, "x = 2")

	block := fn.Body.Stmts[2]
	require.Equal(t, frontend.KindCompound, block.Kind)
	assign := block.Stmts[1]
	assert.Equal(t, []frontend.Var{{Name: "x", Decl: inner}}, assign.Uses)

	store := fn.Body.Stmts[3]
	assert.Equal(t, frontend.KindAssign, store.Kind)
	assert.Equal(t, []string{"buf"}, names(store.Defines))
	assert.Equal(t, []string{"a", "buf", "x"}, names(store.Uses))
	for _, v := range store.Uses {
		if v.Name == "x" {
			assert.Equal(t, outer, v.Decl)
		}
	}
}

func TestGlobalsResolveOutside(t *testing.T) {
	code := `
int counter;

void bump() {
    counter = counter + 1;
}
`
	unit := parse(t, frontend.LanguageC, code)
	fn, err := unit.Function("bump")
	require.NoError(t, err)
	assert.Equal(t, []frontend.Var{{Name: "counter", Decl: -1}}, fn.Body.Stmts[0].Defines)
}

func TestLocate(t *testing.T) {
	code := `
int main() {
    int x = 1;
    if (x > 0) {
        x = 2;
    }
    return x;
}
`
	unit := parse(t, frontend.LanguageC, code)
	fn, err := unit.Function("main")
	require.NoError(t, err)

	tests := []struct {
		name   string
		needle string
		want   string
		kind   frontend.Kind
	}{
		{"inner assignment", "x = 2", "x = 2;", frontend.KindAssign},
		{"branch header", "if (x", "if (x > 0) { x = 2; }", frontend.KindBranch},
		{"declaration", "int x", "int x = 1;", frontend.KindAssign},
		{"return", "return", "return x;", frontend.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := lineCol(code, tt.needle)
			stmt, ok := fn.Locate(line, col)
			require.True(t, ok)
			assert.Equal(t, tt.want, stmt.Text)
			assert.Equal(t, tt.kind, stmt.Kind)
		})
	}

	_, ok := fn.Locate(1, 1)
	assert.False(t, ok)
}

func TestCPPRangeLoop(t *testing.T) {
	code := `
int total(std::vector<int> xs) {
    int s = 0;
    for (int e : xs) {
        s += e;
    }
    return s;
}
`
	unit := parse(t, frontend.LanguageCPP, code)
	fn, err := unit.Function("total")
	require.NoError(t, err)

	loop := fn.Body.Stmts[1]
	assert.Equal(t, frontend.KindLoop, loop.Kind)
	assert.Equal(t, []string{"e"}, names(loop.Defines))
	assert.Equal(t, []string{"xs"}, names(loop.Uses))
	body := loop.Body.Stmts[0]
	assert.Equal(t, []string{"e", "s"}, names(body.Uses))
}
